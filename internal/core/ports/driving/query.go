package driving

import (
	"context"

	"github.com/custodia-labs/profrank/internal/core/domain"
)

const (
	// MaxScheduleCodes caps the course codes in one schedule match.
	MaxScheduleCodes = 20

	// DefaultMinRatings is the review floor outer surfaces apply to rankings
	// when the caller does not set one.
	DefaultMinRatings = 5
)

// QueryService serves read views over the cache. It never touches the source.
type QueryService interface {
	// GetStats returns the global headline view.
	GetStats(ctx context.Context) (*domain.Stats, error)

	// GetRankings returns filtered, sorted, ranked instructors.
	GetRankings(ctx context.Context, req RankingRequest) ([]domain.RankedInstructor, error)

	// GetDepartments returns every department rollup, by name.
	GetDepartments(ctx context.Context) ([]domain.DepartmentSummary, error)

	// GetDepartmentDetail returns one department with its full breakdown.
	// Returns domain.ErrNotFound for an unknown department.
	GetDepartmentDetail(ctx context.Context, name string) (*domain.DepartmentDetail, error)

	// GetScheduleMatches maps each canonical course code to the instructors
	// teaching it, best first. Codes nobody teaches map to an empty slice.
	GetScheduleMatches(ctx context.Context, codes []string) (map[string][]domain.Instructor, error)

	// GetInstructorReviews returns an instructor's cached reviews, newest first.
	// Returns domain.ErrNotFound for an unknown instructor.
	GetInstructorReviews(ctx context.Context, instructorID int64) ([]domain.Review, error)
}

// RankingRequest parameterises GetRankings.
type RankingRequest struct {
	// Department restricts to one department. Empty means all.
	Department string `json:"department"`

	// MinRatings keeps instructors with at least this many reviews.
	MinRatings int `json:"min_ratings" validate:"gte=0"`

	// SortBy is the ranking key. Empty means composite.
	SortBy domain.SortKey `json:"sort_by" validate:"omitempty,oneof=composite quality difficulty would_take_again rating_count name"`

	// Order overrides the key's natural direction.
	Order domain.SortOrder `json:"order" validate:"omitempty,oneof=asc desc"`

	// Limit truncates the result after ranking. Zero means no limit.
	Limit int `json:"limit" validate:"gte=0"`
}

// ScheduleRequest is the validated form of a schedule match.
type ScheduleRequest struct {
	Codes []string `validate:"min=1,max=20,dive,required,max=32"`
}
