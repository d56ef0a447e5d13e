package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/profrank/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "profrank-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

// testInstructor builds a fully populated instructor.
func testInstructor(id int64, dept string) domain.Instructor {
	return domain.Instructor{
		ID:             id,
		NodeID:         fmt.Sprintf("VGVhY2hlci0%d", id),
		FirstName:      "Test",
		LastName:       fmt.Sprintf("Instructor%d", id),
		Department:     dept,
		RawDepartment:  dept,
		Quality:        domain.Known(4.0),
		Difficulty:     domain.Known(2.0),
		WouldTakeAgain: domain.Known(80),
		RatingCount:    12,
		Composite:      0.75,
		Tags:           []domain.Count{{Name: "Caring", Count: 4}, {Name: "Tough grader", Count: 2}},
		Courses:        []domain.Count{{Name: "CS101", Count: 7}, {Name: "CS201", Count: 5}},
		UpdatedAt:      time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// commitPage writes instructors and reviews in one transaction.
func commitPage(t *testing.T, store *Store, instructors []domain.Instructor, reviews []domain.Review) int {
	t.Helper()
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	for i := range instructors {
		require.NoError(t, tx.UpsertInstructor(ctx, &instructors[i]))
	}
	n, err := tx.UpsertReviews(ctx, reviews)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	return n
}

// ==================== Store Creation ====================

func TestNewStore_CreatesDatabase(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := os.Stat(store.Path())
	assert.NoError(t, err)
	assert.Equal(t, "cache.db", filepath.Base(store.Path()))
}

func TestNewStore_MigrationsRecordedOnce(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening must not re-run the initial migration
	store, err = NewStore(tempDir)
	require.NoError(t, err)
	defer store.Close()

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

// ==================== Instructors ====================

func TestUpsertInstructor_RoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	want := testInstructor(42, "Computer Science")
	commitPage(t, store, []domain.Instructor{want}, nil)

	got, err := store.GetInstructor(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, want.Name(), got.Name())
	assert.Equal(t, want.Department, got.Department)
	assert.Equal(t, domain.Known(4.0), got.Quality)
	assert.Equal(t, domain.Known(2.0), got.Difficulty)
	assert.Equal(t, domain.Known(80), got.WouldTakeAgain)
	assert.Equal(t, 12, got.RatingCount)
	assert.InDelta(t, 0.75, got.Composite, 1e-9)
	assert.Equal(t, want.Tags, got.Tags)
	assert.Equal(t, want.Courses, got.Courses)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
}

func TestUpsertInstructor_UnknownMetricsStayUnknown(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	instr := testInstructor(7, "History")
	instr.Quality = domain.Unknown()
	instr.WouldTakeAgain = domain.Unknown()
	instr.RatingCount = 0
	commitPage(t, store, []domain.Instructor{instr}, nil)

	got, err := store.GetInstructor(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, got.Quality.Known)
	assert.False(t, got.WouldTakeAgain.Known)
	assert.True(t, got.Difficulty.Known)
}

func TestUpsertInstructor_ReplacesMultisetsWholesale(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	instr := testInstructor(1, "Mathematics")
	commitPage(t, store, []domain.Instructor{instr}, nil)

	instr.Tags = []domain.Count{{Name: "Inspirational", Count: 9}}
	instr.Courses = nil
	commitPage(t, store, []domain.Instructor{instr}, nil)

	got, err := store.GetInstructor(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.Count{{Name: "Inspirational", Count: 9}}, got.Tags)
	assert.Empty(t, got.Courses)
}

func TestUpsertInstructor_Invalid(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback() //nolint:errcheck

	assert.ErrorIs(t, tx.UpsertInstructor(ctx, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, tx.UpsertInstructor(ctx, &domain.Instructor{}), domain.ErrInvalidInput)
}

func TestGetInstructor_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.GetInstructor(context.Background(), 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIdempotentReingest(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	instructors := []domain.Instructor{testInstructor(1, "Physics"), testInstructor(2, "Physics")}
	reviews := []domain.Review{
		{ID: "r1", InstructorID: 1, Quality: domain.Known(5)},
		{ID: "r2", InstructorID: 2, Quality: domain.Known(3)},
	}

	first := commitPage(t, store, instructors, reviews)
	before, err := store.ListInstructors(ctx, domain.InstructorFilter{})
	require.NoError(t, err)

	second := commitPage(t, store, instructors, reviews)
	after, err := store.ListInstructors(ctx, domain.InstructorFilter{})
	require.NoError(t, err)

	assert.Equal(t, 2, first)
	assert.Equal(t, 0, second)
	assert.Equal(t, before, after)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.CacheCounts{Instructors: 2, Reviews: 2}, counts)
}

func TestListInstructors_Filters(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	a := testInstructor(1, "Physics")
	b := testInstructor(2, "Physics")
	b.RatingCount = 3
	b.Courses = []domain.Count{{Name: "PHYS195", Count: 2}}
	c := testInstructor(3, "Chemistry")
	commitPage(t, store, []domain.Instructor{c, b, a}, nil)

	tests := []struct {
		name   string
		filter domain.InstructorFilter
		want   []int64
	}{
		{"all ordered by id", domain.InstructorFilter{}, []int64{1, 2, 3}},
		{"department", domain.InstructorFilter{Department: "Physics"}, []int64{1, 2}},
		{"min ratings inclusive", domain.InstructorFilter{MinRatings: 12}, []int64{1, 3}},
		{"course", domain.InstructorFilter{CourseCode: "PHYS195"}, []int64{2}},
		{"combined", domain.InstructorFilter{Department: "Physics", CourseCode: "CS101"}, []int64{1}},
		{"no match", domain.InstructorFilter{Department: "Art"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListInstructors(ctx, tt.filter)
			require.NoError(t, err)
			var ids []int64
			for _, i := range got {
				ids = append(ids, i.ID)
				assert.True(t, tt.filter.Matches(&i))
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestListInstructors_LoadsMultisetsPerInstructor(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	a := testInstructor(1, "Physics")
	b := testInstructor(2, "Physics")
	b.Tags = []domain.Count{{Name: "Funny", Count: 1}}
	commitPage(t, store, []domain.Instructor{a, b}, nil)

	got, err := store.ListInstructors(context.Background(), domain.InstructorFilter{Department: "Physics"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.Tags, got[0].Tags)
	assert.Equal(t, b.Tags, got[1].Tags)
}

func TestRollback_DiscardsPage(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	instr := testInstructor(5, "Art")
	require.NoError(t, tx.UpsertInstructor(ctx, &instr))
	require.NoError(t, tx.Rollback())

	_, err = store.GetInstructor(ctx, 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRollback_AfterCommitIsSafe(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, tx.Rollback())
}

func TestUpdateComposites(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	commitPage(t, store, []domain.Instructor{testInstructor(1, "Art"), testInstructor(2, "Art")}, nil)
	require.NoError(t, store.UpdateComposites(ctx, map[int64]float64{1: 0.1, 2: 0.9}))
	require.NoError(t, store.UpdateComposites(ctx, nil))

	a, err := store.GetInstructor(ctx, 1)
	require.NoError(t, err)
	b, err := store.GetInstructor(ctx, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, a.Composite, 1e-9)
	assert.InDelta(t, 0.9, b.Composite, 1e-9)
}

// ==================== Reviews ====================

func TestUpsertReviews_DedupByID(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	posted := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	original := domain.Review{
		ID:             "review-1",
		InstructorID:   1,
		Quality:        domain.Known(5),
		Difficulty:     domain.Known(2),
		WouldTakeAgain: domain.TriYes,
		Course:         "CS101",
		Grade:          "A",
		Comment:        "Great lectures",
		Tags:           []string{"Caring", "Amazing lectures"},
		ThumbsUp:       3,
		PostedAt:       posted,
	}
	inserted := commitPage(t, store, []domain.Instructor{testInstructor(1, "CS")}, []domain.Review{original})
	assert.Equal(t, 1, inserted)

	// Same ID with different content is ignored
	changed := original
	changed.Comment = "Rewritten"
	inserted = commitPage(t, store, []domain.Instructor{testInstructor(1, "CS")}, []domain.Review{changed})
	assert.Equal(t, 0, inserted)

	reviews, err := store.ListReviews(ctx, 1)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Great lectures", reviews[0].Comment)
	assert.Equal(t, domain.TriYes, reviews[0].WouldTakeAgain)
	assert.Equal(t, []string{"Caring", "Amazing lectures"}, reviews[0].Tags)
	assert.True(t, posted.Equal(reviews[0].PostedAt))
	assert.False(t, reviews[0].IngestedAt.IsZero())
}

func TestListReviews_NewestFirst(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reviews := []domain.Review{
		{ID: "old", InstructorID: 1, PostedAt: base},
		{ID: "new", InstructorID: 1, PostedAt: base.Add(48 * time.Hour), WouldTakeAgain: domain.TriNo},
		{ID: "undated", InstructorID: 1},
	}
	commitPage(t, store, []domain.Instructor{testInstructor(1, "CS")}, reviews)

	got, err := store.ListReviews(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, domain.TriNo, got[0].WouldTakeAgain)
	assert.Equal(t, "old", got[1].ID)
	assert.Equal(t, "undated", got[2].ID)
	assert.False(t, got[2].Quality.Known)
	assert.Equal(t, domain.TriUnknown, got[2].WouldTakeAgain)
}

func TestUpsertReviews_MissingID(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback() //nolint:errcheck

	instr := testInstructor(1, "CS")
	require.NoError(t, tx.UpsertInstructor(ctx, &instr))
	_, err = tx.UpsertReviews(ctx, []domain.Review{{InstructorID: 1}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpsertReviews_UnknownInstructorFails(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.UpsertReviews(ctx, []domain.Review{{ID: "orphan", InstructorID: 404}})
	assert.ErrorIs(t, err, domain.ErrStorage)
}

// ==================== Ingestion Metadata ====================

func TestIngestionMetadata_AbsentUntilSet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.GetIngestionMetadata(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The in-progress flag alone does not make metadata present
	require.NoError(t, store.SetRefreshInProgress(ctx, "run-1", true))
	_, err = store.GetIngestionMetadata(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetRefreshInProgress_ClearsBeforeFirstRefresh(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SetRefreshInProgress(ctx, "crashed-run", true))
	require.NoError(t, store.SetRefreshInProgress(ctx, "", false))

	var inProgress int
	var lastRunID string
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT refresh_in_progress, last_run_id FROM ingestion_metadata WHERE id = 1`,
	).Scan(&inProgress, &lastRunID))
	assert.Equal(t, 0, inProgress)
	assert.Equal(t, "crashed-run", lastRunID)
}

func TestIngestionMetadata_RoundTrip(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	started := time.Date(2025, 2, 3, 4, 5, 6, 789, time.UTC)
	require.NoError(t, store.SetIngestionMetadata(ctx, domain.IngestionMetadata{
		LastRefresh:     started,
		InstructorCount: 10,
		ReviewCount:     55,
		LastRunID:       "run-1",
	}))

	meta, err := store.GetIngestionMetadata(ctx)
	require.NoError(t, err)
	assert.True(t, started.Equal(meta.LastRefresh))
	assert.Equal(t, 10, meta.InstructorCount)
	assert.Equal(t, 55, meta.ReviewCount)
	assert.False(t, meta.RefreshInProgress)
	assert.Equal(t, "run-1", meta.LastRunID)
}

func TestSetRefreshInProgress_KeepsTimestamp(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	started := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SetIngestionMetadata(ctx, domain.IngestionMetadata{LastRefresh: started, LastRunID: "run-1"}))

	require.NoError(t, store.SetRefreshInProgress(ctx, "run-2", true))
	meta, err := store.GetIngestionMetadata(ctx)
	require.NoError(t, err)
	assert.True(t, meta.RefreshInProgress)
	assert.Equal(t, "run-2", meta.LastRunID)
	assert.True(t, started.Equal(meta.LastRefresh))

	require.NoError(t, store.SetRefreshInProgress(ctx, "", false))
	meta, err = store.GetIngestionMetadata(ctx)
	require.NoError(t, err)
	assert.False(t, meta.RefreshInProgress)
	assert.Equal(t, "run-2", meta.LastRunID)
	assert.True(t, started.Equal(meta.LastRefresh))
}

// ==================== Ingestion Runs ====================

func TestRuns_RecordListPrune(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := &domain.IngestionRun{
			ID:        fmt.Sprintf("run-%d", i),
			StartedAt: base.Add(time.Duration(i) * time.Hour),
			Status:    domain.RunRunning,
		}
		require.NoError(t, store.RecordRun(ctx, run))

		run.Status = domain.RunSucceeded
		run.FinishedAt = run.StartedAt.Add(time.Minute)
		run.Pages = i
		require.NoError(t, store.RecordRun(ctx, run))
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-4", runs[0].ID)
	assert.Equal(t, domain.RunSucceeded, runs[0].Status)
	assert.Equal(t, 4, runs[0].Pages)
	assert.Equal(t, time.Minute, runs[0].Duration())

	require.NoError(t, store.PruneRuns(ctx, 3))
	runs, err = store.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
	assert.Equal(t, "run-2", runs[2].ID)
}

func TestRecordRun_Invalid(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	assert.ErrorIs(t, store.RecordRun(context.Background(), nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.RecordRun(context.Background(), &domain.IngestionRun{}), domain.ErrInvalidInput)
}
