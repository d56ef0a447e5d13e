package domain

import "time"

// Review is a single immutable student review.
// Once cached, a review is never rewritten.
type Review struct {
	// ID is the source's stable review identifier.
	ID string `json:"id"`

	// InstructorID links the review to its instructor.
	InstructorID int64 `json:"instructor_id"`

	// Quality is the overall rating given, 1-5.
	Quality Metric `json:"quality"`

	// Difficulty is the difficulty rating given, 1-5.
	Difficulty Metric `json:"difficulty"`

	// WouldTakeAgain is the reviewer's answer, if any.
	WouldTakeAgain TriState `json:"would_take_again"`

	// Course is the canonical course code the review is about.
	Course string `json:"course,omitempty"`

	// Grade is the grade the reviewer reported.
	Grade string `json:"grade,omitempty"`

	// Comment is the free-text body.
	Comment string `json:"comment,omitempty"`

	// Tags are the labels the reviewer picked.
	Tags []string `json:"tags,omitempty"`

	// ThumbsUp is the helpful vote count.
	ThumbsUp int `json:"thumbs_up"`

	// ThumbsDown is the unhelpful vote count.
	ThumbsDown int `json:"thumbs_down"`

	// PostedAt is when the review was written. Zero if unknown.
	PostedAt time.Time `json:"posted_at"`

	// IngestedAt is when the review first entered the cache.
	IngestedAt time.Time `json:"ingested_at"`
}
