package ratings

import (
	"strings"
	"time"

	"github.com/custodia-labs/profrank/internal/core/domain"
)

// tagSeparator joins the labels in a review's rating tags.
const tagSeparator = "--"

// reviewDateLayouts are tried in order.
var reviewDateLayouts = []string{
	"2006-01-02 15:04:05 -0700 MST",
	time.RFC3339,
	"2006-01-02",
}

// normaliseReview validates and maps one raw review.
func normaliseReview(instructorID int64, raw *domain.RawReview) (*domain.Review, error) {
	id := trimmed(raw.ID)
	if id == "" {
		return nil, malformed("missing review id")
	}

	quality, err := ratingMetric("review quality", raw.Quality)
	if err != nil {
		return nil, err
	}
	difficulty, err := ratingMetric("review difficulty", raw.Difficulty)
	if err != nil {
		return nil, err
	}

	return &domain.Review{
		ID:             id,
		InstructorID:   instructorID,
		Quality:        quality,
		Difficulty:     difficulty,
		WouldTakeAgain: triState(raw.WouldTakeAgain),
		Course:         CanonicalCourse(trimmed(raw.Class)),
		Grade:          trimmed(raw.Grade),
		Comment:        cleanComment(trimmed(raw.Comment)),
		Tags:           splitTags(trimmed(raw.RatingTags)),
		ThumbsUp:       max(intOr(raw.ThumbsUp, 0), 0),
		ThumbsDown:     max(intOr(raw.ThumbsDown, 0), 0),
		PostedAt:       parseReviewDate(trimmed(raw.Date)),
	}, nil
}

// triState maps the source's 1/0 answer.
func triState(v *int) domain.TriState {
	if v == nil {
		return domain.TriUnknown
	}
	switch *v {
	case 1:
		return domain.TriYes
	case 0:
		return domain.TriNo
	default:
		return domain.TriUnknown
	}
}

// splitTags splits "A--B--C" into labels.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(s, tagSeparator) {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// parseReviewDate returns the zero time when the date is missing or
// unparsable.
func parseReviewDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range reviewDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
