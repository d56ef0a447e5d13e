package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/profrank/internal/core/domain"
	"github.com/custodia-labs/profrank/internal/core/ports/driven"
)

// Ensure CacheStore implements the interface.
var _ driven.CacheStore = (*CacheStore)(nil)

// CacheStore is an in-memory implementation of driven.CacheStore.
// Transactions stage writes and apply them atomically on commit.
type CacheStore struct {
	mu          sync.RWMutex
	instructors map[int64]domain.Instructor
	reviews     map[string]domain.Review
	meta        domain.IngestionMetadata
	runs        map[string]domain.IngestionRun
}

// NewCacheStore creates a new in-memory cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{
		instructors: make(map[int64]domain.Instructor),
		reviews:     make(map[string]domain.Review),
		runs:        make(map[string]domain.IngestionRun),
	}
}

// Begin opens a staged write transaction.
func (s *CacheStore) Begin(_ context.Context) (driven.CacheTx, error) {
	return &cacheTx{
		store:       s,
		instructors: make(map[int64]domain.Instructor),
		reviews:     make(map[string]domain.Review),
	}, nil
}

// GetIngestionMetadata returns the freshness record.
func (s *CacheStore) GetIngestionMetadata(_ context.Context) (*domain.IngestionMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.meta.LastRefresh.IsZero() {
		return nil, domain.ErrNotFound
	}
	meta := s.meta
	return &meta, nil
}

// SetIngestionMetadata replaces the freshness record.
func (s *CacheStore) SetIngestionMetadata(_ context.Context, meta domain.IngestionMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta = meta
	return nil
}

// SetRefreshInProgress flips the in-progress flag.
func (s *CacheStore) SetRefreshInProgress(_ context.Context, runID string, inProgress bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta.RefreshInProgress = inProgress
	if runID != "" {
		s.meta.LastRunID = runID
	}
	return nil
}

// ListInstructors returns instructors passing the filter, ordered by ID.
func (s *CacheStore) ListInstructors(_ context.Context, filter domain.InstructorFilter) ([]domain.Instructor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Instructor
	for id := range s.instructors {
		instr := s.instructors[id]
		if filter.Matches(&instr) {
			result = append(result, copyInstructor(instr))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// GetInstructor returns one instructor.
func (s *CacheStore) GetInstructor(_ context.Context, id int64) (*domain.Instructor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	instr, ok := s.instructors[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := copyInstructor(instr)
	return &c, nil
}

// ListReviews returns an instructor's reviews, newest first.
func (s *CacheStore) ListReviews(_ context.Context, instructorID int64) ([]domain.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Review
	for _, r := range s.reviews {
		if r.InstructorID == instructorID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].PostedAt.Equal(result[j].PostedAt) {
			return result[i].PostedAt.After(result[j].PostedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Counts returns row totals.
func (s *CacheStore) Counts(_ context.Context) (domain.CacheCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CacheCounts{Instructors: len(s.instructors), Reviews: len(s.reviews)}, nil
}

// UpdateComposites rewrites cached composite scores.
func (s *CacheStore) UpdateComposites(_ context.Context, scores map[int64]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, score := range scores {
		if instr, ok := s.instructors[id]; ok {
			instr.Composite = score
			s.instructors[id] = instr
		}
	}
	return nil
}

// RecordRun inserts or updates an ingestion run.
func (s *CacheStore) RecordRun(_ context.Context, run *domain.IngestionRun) error {
	if run == nil || run.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *CacheStore) ListRuns(_ context.Context, limit int) ([]domain.IngestionRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := s.sortedRuns()
	if limit >= 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// PruneRuns keeps only the newest keep runs.
func (s *CacheStore) PruneRuns(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := s.sortedRuns()
	for i := keep; i < len(runs); i++ {
		delete(s.runs, runs[i].ID)
	}
	return nil
}

// sortedRuns returns runs newest first (mu held).
func (s *CacheStore) sortedRuns() []domain.IngestionRun {
	runs := make([]domain.IngestionRun, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	return runs
}

// cacheTx stages writes until commit.
type cacheTx struct {
	store       *CacheStore
	instructors map[int64]domain.Instructor
	reviews     map[string]domain.Review
	order       []string
	done        bool
}

// UpsertInstructor stages an instructor.
func (t *cacheTx) UpsertInstructor(_ context.Context, instr *domain.Instructor) error {
	if instr == nil || instr.ID == 0 {
		return domain.ErrInvalidInput
	}
	if instr.UpdatedAt.IsZero() {
		instr.UpdatedAt = time.Now().UTC()
	}
	t.instructors[instr.ID] = copyInstructor(*instr)
	return nil
}

// UpsertReviews stages reviews whose IDs are not yet cached.
func (t *cacheTx) UpsertReviews(_ context.Context, reviews []domain.Review) (int, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	now := time.Now().UTC()
	inserted := 0
	for _, r := range reviews {
		if r.ID == "" {
			return inserted, domain.ErrInvalidInput
		}
		if _, ok := t.store.reviews[r.ID]; ok {
			continue
		}
		if _, ok := t.reviews[r.ID]; ok {
			continue
		}
		if _, ok := t.instructors[r.InstructorID]; !ok {
			if _, ok := t.store.instructors[r.InstructorID]; !ok {
				return inserted, domain.ErrStorage
			}
		}
		if r.IngestedAt.IsZero() {
			r.IngestedAt = now
		}
		r.Tags = append([]string(nil), r.Tags...)
		t.reviews[r.ID] = r
		t.order = append(t.order, r.ID)
		inserted++
	}
	return inserted, nil
}

// Commit applies staged writes atomically.
func (t *cacheTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for id, instr := range t.instructors {
		t.store.instructors[id] = instr
	}
	for _, id := range t.order {
		if _, ok := t.store.reviews[id]; !ok {
			t.store.reviews[id] = t.reviews[id]
		}
	}
	return nil
}

// Rollback discards staged writes.
func (t *cacheTx) Rollback() error {
	t.done = true
	return nil
}

// copyInstructor detaches the multisets from the caller's slices.
func copyInstructor(i domain.Instructor) domain.Instructor {
	i.Tags = append([]domain.Count(nil), i.Tags...)
	i.Courses = append([]domain.Count(nil), i.Courses...)
	return i
}
