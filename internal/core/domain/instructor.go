package domain

import (
	"strings"
	"time"
)

// Count is one entry of a tag or course multiset.
type Count struct {
	// Name is the tag label or canonical course code.
	Name string `json:"name"`

	// Count is how many reviews carried the entry. Always positive.
	Count int `json:"count"`
}

// Instructor is the canonical, cached view of one teaching staff member.
type Instructor struct {
	// ID is the source's stable numeric identifier.
	ID int64 `json:"id"`

	// NodeID is the source's opaque global identifier.
	NodeID string `json:"-"`

	// FirstName is the given name.
	FirstName string `json:"first_name"`

	// LastName is the family name.
	LastName string `json:"last_name"`

	// Department is the canonical department name.
	Department string `json:"department"`

	// RawDepartment is the department as reported by the source.
	RawDepartment string `json:"-"`

	// Quality is the average overall rating on a 1-5 scale.
	Quality Metric `json:"quality"`

	// Difficulty is the average difficulty on a 1-5 scale.
	Difficulty Metric `json:"difficulty"`

	// WouldTakeAgain is the percentage of reviewers who would take the
	// instructor again, 0-100.
	WouldTakeAgain Metric `json:"would_take_again"`

	// RatingCount is the number of reviews the source aggregated.
	RatingCount int `json:"rating_count"`

	// Composite is the cached weighted score in [0,1].
	Composite float64 `json:"composite_score"`

	// Tags is the tag multiset, ordered by count descending.
	Tags []Count `json:"tags"`

	// Courses is the course multiset, ordered by count descending.
	Courses []Count `json:"courses"`

	// UpdatedAt is when the record was last written to the cache.
	UpdatedAt time.Time `json:"updated_at"`
}

// Name returns the display name.
func (i *Instructor) Name() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// TeachesCourse reports whether the course multiset contains code.
// Code must already be canonical.
func (i *Instructor) TeachesCourse(code string) bool {
	for _, c := range i.Courses {
		if c.Name == code {
			return true
		}
	}
	return false
}

// InstructorFilter restricts cache reads.
type InstructorFilter struct {
	// Department matches the canonical department exactly when set.
	Department string

	// MinRatings keeps instructors with RatingCount >= MinRatings.
	MinRatings int

	// CourseCode keeps instructors teaching the canonical course code.
	CourseCode string
}

// Matches reports whether the instructor passes the filter.
func (f InstructorFilter) Matches(i *Instructor) bool {
	if f.Department != "" && i.Department != f.Department {
		return false
	}
	if i.RatingCount < f.MinRatings {
		return false
	}
	if f.CourseCode != "" && !i.TeachesCourse(f.CourseCode) {
		return false
	}
	return true
}

// RankedInstructor is an instructor with its 1-based position in a ranking.
type RankedInstructor struct {
	Rank int `json:"rank"`
	Instructor
}
