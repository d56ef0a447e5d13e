package domain

// RawPage is one page of source output before normalisation.
type RawPage struct {
	// Records are the instructor records on the page.
	Records []RawInstructor

	// NextCursor resumes iteration. Empty when the source is exhausted.
	NextCursor string
}

// HasNext reports whether another page follows.
func (p *RawPage) HasNext() bool {
	return p.NextCursor != ""
}

// RawCount is an unvalidated tag or course entry.
type RawCount struct {
	Name  *string
	Count *int
}

// RawInstructor is an instructor record as reported by the source.
// Every field may be missing.
type RawInstructor struct {
	// LegacyID is the stable numeric identifier.
	LegacyID *int64

	// NodeID is the opaque global identifier.
	NodeID string

	FirstName *string
	LastName  *string

	// Department is the free-text department name.
	Department *string

	// AvgRating is the mean quality. Zero means no ratings.
	AvgRating *float64

	// AvgDifficulty is the mean difficulty. Zero means no ratings.
	AvgDifficulty *float64

	// WouldTakeAgainPercent is 0-100. Negative means unknown.
	WouldTakeAgainPercent *float64

	// NumRatings is the number of reviews aggregated.
	NumRatings *int

	Tags    []RawCount
	Courses []RawCount

	// Reviews are the most recent reviews fetched with the record.
	Reviews []RawReview
}

// RawReview is a review as reported by the source.
type RawReview struct {
	ID *string

	// Quality is the helpfulness/clarity rating, 1-5.
	Quality *float64

	// Difficulty is the difficulty rating, 1-5.
	Difficulty *float64

	// WouldTakeAgain is 1, 0 or missing.
	WouldTakeAgain *int

	Class   *string
	Grade   *string
	Comment *string

	// Date is the source's timestamp text.
	Date *string

	// RatingTags are labels joined by "--".
	RatingTags *string

	ThumbsUp   *int
	ThumbsDown *int
}

// InstructorBundle is one normalised instructor with its reviews.
type InstructorBundle struct {
	Instructor Instructor
	Reviews    []Review
}

// NormalisationWarning describes a dropped record or review.
type NormalisationWarning struct {
	// Ref identifies the record, as far as it could be identified.
	Ref string

	// Reason says why it was dropped.
	Reason string
}

// NormalisedBatch is the normaliser's output for one page.
type NormalisedBatch struct {
	Items    []InstructorBundle
	Warnings []NormalisationWarning
}
