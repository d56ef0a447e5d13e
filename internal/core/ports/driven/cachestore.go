package driven

import (
	"context"

	"github.com/custodia-labs/profrank/internal/core/domain"
)

// CacheStore persists canonical entities and ingestion metadata.
// Writes happen inside a CacheTx; readers see only committed pages.
type CacheStore interface {
	// Begin opens a write transaction covering one page.
	Begin(ctx context.Context) (CacheTx, error)

	// GetIngestionMetadata returns the freshness record.
	// Returns domain.ErrNotFound until a cycle has succeeded.
	GetIngestionMetadata(ctx context.Context) (*domain.IngestionMetadata, error)

	// SetIngestionMetadata replaces the freshness record.
	SetIngestionMetadata(ctx context.Context, meta domain.IngestionMetadata) error

	// SetRefreshInProgress flips the in-progress flag without touching
	// the refresh timestamp.
	SetRefreshInProgress(ctx context.Context, runID string, inProgress bool) error

	// ListInstructors returns instructors passing the filter, ordered by ID.
	ListInstructors(ctx context.Context, filter domain.InstructorFilter) ([]domain.Instructor, error)

	// GetInstructor returns one instructor.
	// Returns domain.ErrNotFound if absent.
	GetInstructor(ctx context.Context, id int64) (*domain.Instructor, error)

	// ListReviews returns an instructor's reviews, newest first.
	ListReviews(ctx context.Context, instructorID int64) ([]domain.Review, error)

	// Counts returns row totals.
	Counts(ctx context.Context) (domain.CacheCounts, error)

	// UpdateComposites rewrites cached composite scores by instructor ID.
	UpdateComposites(ctx context.Context, scores map[int64]float64) error

	// RecordRun inserts or updates an ingestion run.
	RecordRun(ctx context.Context, run *domain.IngestionRun) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]domain.IngestionRun, error)

	// PruneRuns keeps only the newest keep runs.
	PruneRuns(ctx context.Context, keep int) error
}

// CacheTx is a page-scoped write transaction.
// Either every write in it becomes visible or none does.
type CacheTx interface {
	// UpsertInstructor inserts or replaces an instructor by ID.
	// Tags and courses are replaced wholesale.
	UpsertInstructor(ctx context.Context, instr *domain.Instructor) error

	// UpsertReviews inserts reviews whose IDs are not yet cached and
	// ignores the rest. Returns the number inserted.
	UpsertReviews(ctx context.Context, reviews []domain.Review) (int, error)

	// Commit makes the page visible.
	Commit() error

	// Rollback discards the page. Safe after Commit.
	Rollback() error
}
