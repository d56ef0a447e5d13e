package driven

import (
	"context"

	"github.com/custodia-labs/profrank/internal/core/domain"
)

// Normaliser maps raw source records onto canonical entities.
// Malformed records are dropped and reported as warnings; the rest of the
// page is still returned. Raw shapes never pass this boundary.
type Normaliser interface {
	// Normalise converts one page.
	Normalise(ctx context.Context, page *domain.RawPage) (*domain.NormalisedBatch, error)

	// CanonicalDepartment applies the department naming rules used during
	// ingestion, so lookups match cached names.
	CanonicalDepartment(name string) string

	// CanonicalCourse applies the course code rules used during ingestion.
	CanonicalCourse(code string) string
}
