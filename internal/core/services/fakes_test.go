package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/profrank/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/profrank/internal/core/domain"
	"github.com/custodia-labs/profrank/internal/core/ports/driving"
	"github.com/custodia-labs/profrank/internal/normalisers/ratings"
)

// --- Fake source ---

// fakeSource serves pages addressed by their index. Failures and a gate can
// be injected per page.
type fakeSource struct {
	mu       sync.Mutex
	pages    [][]domain.RawInstructor
	calls    int
	failures map[int]int   // page -> remaining transport failures
	errs     map[int]error // page -> permanent error
	gate     chan struct{} // blocks every fetch until closed
	started  chan struct{} // receives once per fetch
}

func newFakeSource(pages ...[]domain.RawInstructor) *fakeSource {
	return &fakeSource{
		pages:    pages,
		failures: make(map[int]int),
		errs:     make(map[int]error),
	}
}

func (f *fakeSource) FetchPage(ctx context.Context, cursor string) (*domain.RawPage, error) {
	f.mu.Lock()
	f.calls++
	gate, started := f.gate, f.started
	f.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	idx := 0
	if cursor != "" {
		var err error
		if idx, err = strconv.Atoi(cursor); err != nil {
			return nil, errors.New("bad cursor")
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[idx]; err != nil {
		return nil, err
	}
	if f.failures[idx] > 0 {
		f.failures[idx]--
		return nil, domain.ErrTransport
	}
	if idx >= len(f.pages) {
		return &domain.RawPage{}, nil
	}

	page := &domain.RawPage{Records: f.pages[idx]}
	if idx+1 < len(f.pages) {
		page.NextCursor = strconv.Itoa(idx + 1)
	}
	return page, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// --- Raw record builders ---

func ptr[T any](v T) *T { return &v }

type rawOpt func(*domain.RawInstructor)

func withCourses(codes ...string) rawOpt {
	return func(r *domain.RawInstructor) {
		for _, c := range codes {
			r.Courses = append(r.Courses, domain.RawCount{Name: ptr(c), Count: ptr(1)})
		}
	}
}

func withTags(tags map[string]int) rawOpt {
	return func(r *domain.RawInstructor) {
		for name, n := range tags {
			r.Tags = append(r.Tags, domain.RawCount{Name: ptr(name), Count: ptr(n)})
		}
	}
}

func withReviews(ids ...string) rawOpt {
	return func(r *domain.RawInstructor) {
		for _, id := range ids {
			r.Reviews = append(r.Reviews, domain.RawReview{
				ID:      ptr(id),
				Quality: ptr(4.0),
				Class:   ptr("HIST 100"),
				Date:    ptr("2024-01-02 10:00:00 +0000 UTC"),
			})
		}
	}
}

// raw builds a source record. Zero metrics are reported as absent.
func raw(id int64, dept string, quality, difficulty, wta float64, ratings int, opts ...rawOpt) domain.RawInstructor {
	r := domain.RawInstructor{
		LegacyID:   ptr(id),
		FirstName:  ptr("First" + strconv.FormatInt(id, 10)),
		LastName:   ptr("Last" + strconv.FormatInt(id, 10)),
		Department: ptr(dept),
		NumRatings: ptr(ratings),
	}
	if quality > 0 {
		r.AvgRating = ptr(quality)
	}
	if difficulty > 0 {
		r.AvgDifficulty = ptr(difficulty)
	}
	if wta >= 0 {
		r.WouldTakeAgainPercent = ptr(wta)
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// --- Fixture wiring ---

type fixture struct {
	store      *memory.CacheStore
	source     *fakeSource
	scoring    *ScoringEngine
	refresh    *RefreshController
	query      *QueryService
	clock      *fakeClock
	normaliser *ratings.Normaliser
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testRefreshSettings() domain.RefreshSettings {
	return domain.RefreshSettings{
		MaxAge:        7 * 24 * time.Hour,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
		CheckInterval: time.Hour,
	}
}

func newFixture(t *testing.T, source *fakeSource) *fixture {
	t.Helper()

	store := memory.NewCacheStore()
	normaliser := ratings.New()
	scoring := NewScoringEngine(store, domain.QuerySettings{TopN: 5, DepartmentTopMinRatings: 3})
	refresh := NewRefreshController(source, normaliser, store, scoring, testRefreshSettings())

	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	refresh.now = clock.Now
	refresh.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }

	return &fixture{
		store:      store,
		source:     source,
		scoring:    scoring,
		refresh:    refresh,
		query:      NewQueryService(store, normaliser, scoring, refresh),
		clock:      clock,
		normaliser: normaliser,
	}
}

// ingest runs one forced cycle to completion.
func (fx *fixture) ingest(t *testing.T) {
	t.Helper()
	out, err := fx.refresh.Refresh(context.Background(), driving.RefreshRequest{Force: true, Wait: true})
	require.NoError(t, err)
	require.Equal(t, driving.RefreshCompleted, out.Status)
}
