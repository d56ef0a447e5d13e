package domain

import "time"

// UnknownDepartment is used when the source reports no department.
const UnknownDepartment = "Unknown"

// DepartmentSummary is the derived rollup for one department.
// It is recomputed from cached instructors and never stored.
type DepartmentSummary struct {
	// Name is the canonical department name.
	Name string `json:"name"`

	// InstructorCount is the number of instructors in the department.
	InstructorCount int `json:"instructor_count"`

	// RatedCount is the number of instructors with at least one review.
	RatedCount int `json:"rated_count"`

	// TotalReviews is the sum of review counts across instructors.
	TotalReviews int `json:"total_reviews"`

	// AvgQuality is the mean quality over instructors with known quality.
	AvgQuality Metric `json:"avg_quality"`

	// AvgDifficulty is the mean difficulty over instructors with known difficulty.
	AvgDifficulty Metric `json:"avg_difficulty"`

	// AvgWouldTakeAgain is the mean would-take-again percentage over
	// instructors with a known value.
	AvgWouldTakeAgain Metric `json:"avg_would_take_again"`

	// TopTags are the most frequent tags, by summed count then name.
	TopTags []Count `json:"top_tags"`

	// TopInstructors are the best instructors by composite score.
	TopInstructors []RankedInstructor `json:"top_instructors"`
}

// DepartmentDetail extends the summary with the full breakdown.
type DepartmentDetail struct {
	DepartmentSummary

	// Tags is the complete tag frequency table.
	Tags []Count `json:"tags"`

	// Courses is the complete course frequency table.
	Courses []Count `json:"courses"`
}

// StatsInstructor names an instructor in the stats headline.
type StatsInstructor struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Department  string  `json:"department"`
	Difficulty  float64 `json:"difficulty"`
	RatingCount int     `json:"rating_count"`
}

// StatsDepartment names a department in the stats headline.
type StatsDepartment struct {
	Name          string  `json:"name"`
	AvgDifficulty float64 `json:"avg_difficulty"`
	TotalReviews  int     `json:"total_reviews"`
}

// Stats is the global headline view of the cache.
type Stats struct {
	// TotalInstructors is the number of cached instructors.
	TotalInstructors int `json:"total_instructors"`

	// RatedInstructors is the number with at least one review.
	RatedInstructors int `json:"rated_instructors"`

	// TotalReviews is the number of cached reviews.
	TotalReviews int `json:"total_reviews"`

	// AvgQuality is the mean quality across well-reviewed instructors.
	AvgQuality Metric `json:"avg_quality"`

	// HardestDepartment has the highest mean difficulty among departments
	// with enough reviews. Nil when none qualify.
	HardestDepartment *StatsDepartment `json:"hardest_department"`

	// HardestInstructor has the highest difficulty among heavily reviewed
	// instructors. Nil when none qualify.
	HardestInstructor *StatsInstructor `json:"hardest_instructor"`

	// LastRefresh is when the last successful ingestion started.
	// Zero if the cache has never been filled.
	LastRefresh time.Time `json:"last_refresh"`

	// RefreshState is the freshness controller's current state.
	RefreshState RefreshState `json:"refresh_state"`
}
