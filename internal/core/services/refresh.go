package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/custodia-labs/profrank/internal/core/domain"
	"github.com/custodia-labs/profrank/internal/core/ports/driven"
	"github.com/custodia-labs/profrank/internal/core/ports/driving"
	"github.com/custodia-labs/profrank/internal/logger"
	"github.com/custodia-labs/profrank/internal/metrics"
)

// Ensure RefreshController implements the interface.
var _ driving.RefreshService = (*RefreshController)(nil)

const (
	// runHistory is how many ingestion runs are kept.
	runHistory = 50

	// recentRuns is how many runs Status reports.
	recentRuns = 10
)

// RefreshController decides when the cache is re-ingested and guarantees
// at most one ingestion cycle runs at a time.
type RefreshController struct {
	source     driven.SourceAdapter
	normaliser driven.Normaliser
	store      driven.CacheStore
	scoring    *ScoringEngine
	settings   domain.RefreshSettings

	now        func() time.Time
	newBackOff func() backoff.BackOff

	mu      sync.Mutex
	state   domain.RefreshState
	lastErr error
	current *flight
}

// flight is one running cycle shared by everyone who asked for it.
type flight struct {
	run  *domain.IngestionRun
	done chan struct{}
	err  error
}

// NewRefreshController creates a refresh controller.
func NewRefreshController(
	source driven.SourceAdapter,
	normaliser driven.Normaliser,
	store driven.CacheStore,
	scoring *ScoringEngine,
	settings domain.RefreshSettings,
) *RefreshController {
	c := &RefreshController{
		source:     source,
		normaliser: normaliser,
		store:      store,
		scoring:    scoring,
		settings:   settings,
		now:        time.Now,
		state:      domain.RefreshIdle,
	}
	c.newBackOff = func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = c.settings.RetryDelay
		b.MaxElapsedTime = 0
		return b
	}
	return c
}

// Refresh checks freshness and ingests when the cache is absent, stale or
// a refresh is forced. A cycle already running is joined, never duplicated.
func (c *RefreshController) Refresh(ctx context.Context, req driving.RefreshRequest) (*driving.RefreshOutcome, error) {
	c.mu.Lock()

	// 1. Join a running cycle
	f, coalesced := c.current, c.current != nil

	// 2. Otherwise check freshness, holding the lock so two stale checks
	// cannot both start a cycle
	if f == nil {
		if !req.Force {
			meta, err := c.metadata(ctx)
			if err != nil {
				c.mu.Unlock()
				return nil, err
			}
			if !meta.IsStale(c.now(), c.settings.MaxAge) {
				c.mu.Unlock()
				return &driving.RefreshOutcome{Status: driving.RefreshFresh, Metadata: meta}, nil
			}
		}
		f = c.start(ctx, req.Force)
	}

	run := *f.run
	c.mu.Unlock()

	if coalesced {
		logger.Debug("refresh: joining running cycle %s", run.ID)
	}

	// 3. Report without waiting
	if !req.Wait {
		status := driving.RefreshStarted
		if coalesced {
			status = driving.RefreshInProgress
		}
		return &driving.RefreshOutcome{Status: status, Coalesced: coalesced, Run: &run}, nil
	}

	// 4. Wait for the cycle. Giving up waiting does not stop it.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.done:
	}

	if f.err != nil {
		return nil, f.err
	}

	meta, err := c.metadata(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	run = *f.run
	c.mu.Unlock()

	return &driving.RefreshOutcome{
		Status:    driving.RefreshCompleted,
		Coalesced: coalesced,
		Run:       &run,
		Metadata:  meta,
	}, nil
}

// Status reports the controller state and recent history.
func (c *RefreshController) Status(ctx context.Context) (*driving.RefreshReport, error) {
	c.mu.Lock()
	state, lastErr := c.state, c.lastErr
	c.mu.Unlock()

	meta, err := c.metadata(ctx)
	if err != nil {
		return nil, err
	}

	runs, err := c.store.ListRuns(ctx, recentRuns)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	report := &driving.RefreshReport{
		State:      state,
		Metadata:   meta,
		Stale:      meta.IsStale(c.now(), c.settings.MaxAge),
		RecentRuns: runs,
	}
	if lastErr != nil {
		report.LastError = lastErr.Error()
	}
	return report, nil
}

// State returns the current lifecycle state.
func (c *RefreshController) State() domain.RefreshState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Recover clears an in-progress flag left behind by a process that died
// mid-cycle. The timestamp is untouched, so the cache still reads as stale
// if the interrupted cycle was needed.
func (c *RefreshController) Recover(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		return nil
	}

	meta, err := c.metadata(ctx)
	if err != nil {
		return err
	}
	if meta != nil && meta.RefreshInProgress {
		logger.Warn("refresh: previous cycle %s did not finish, clearing flag", meta.LastRunID)
	}

	// The metadata stays hidden until a first cycle succeeds, so a crash
	// during that cycle can only be cleared blind.
	return c.store.SetRefreshInProgress(ctx, "", false)
}

// metadata returns the freshness record, or nil when the cache was never
// filled.
func (c *RefreshController) metadata(ctx context.Context) (*domain.IngestionMetadata, error) {
	meta, err := c.store.GetIngestionMetadata(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ingestion metadata: %w", err)
	}
	return meta, nil
}

// start launches a cycle (mu held). The cycle is detached from the
// caller's cancellation.
func (c *RefreshController) start(ctx context.Context, forced bool) *flight {
	f := &flight{
		run: &domain.IngestionRun{
			ID:        uuid.NewString(),
			StartedAt: c.now().UTC(),
			Status:    domain.RunRunning,
			Forced:    forced,
		},
		done: make(chan struct{}),
	}
	c.current = f
	c.state = domain.RefreshRunning

	go c.execute(context.WithoutCancel(ctx), f)
	return f
}

// execute runs a cycle and publishes its result.
func (c *RefreshController) execute(ctx context.Context, f *flight) {
	logger.Section("Ingestion " + f.run.ID)
	metrics.SetRefreshing(true)

	err := c.cycle(ctx, f)

	c.mu.Lock()
	f.run.FinishedAt = c.now().UTC()
	if err != nil {
		f.run.Status = domain.RunFailed
		f.run.Error = err.Error()
		c.state = domain.RefreshFailed
	} else {
		f.run.Status = domain.RunSucceeded
		c.state = domain.RefreshIdle
	}
	c.lastErr = err
	f.err = err
	run := *f.run
	c.mu.Unlock()

	metrics.SetRefreshing(false)
	metrics.RecordIngestion(run.Duration(), err)
	if err == nil {
		metrics.CacheLastRefresh.Set(float64(run.StartedAt.Unix()))
		logger.Info("refresh: cycle %s succeeded: %d pages, %d instructors, %d new reviews, %d skipped",
			run.ID, run.Pages, run.InstructorsUpserted, run.ReviewsAdded, run.RecordsSkipped)
	} else {
		logger.Error("refresh: cycle %s failed after %d pages: %v", run.ID, run.Pages, err)
	}

	if recErr := c.store.RecordRun(ctx, &run); recErr != nil {
		logger.Warn("refresh: failed to record run %s: %v", run.ID, recErr)
	}
	if pruneErr := c.store.PruneRuns(ctx, runHistory); pruneErr != nil {
		logger.Warn("refresh: failed to prune runs: %v", pruneErr)
	}

	// Publish last so waiters observe the final state
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
	close(f.done)
}

// cycle ingests every page. Pages commit one at a time, so a failure keeps
// the pages before it. The freshness timestamp only moves on full success.
func (c *RefreshController) cycle(ctx context.Context, f *flight) (err error) {
	runID := f.run.ID
	startedAt := f.run.StartedAt

	// 1. Mark in progress
	if err := c.store.SetRefreshInProgress(ctx, runID, true); err != nil {
		return fmt.Errorf("mark refresh in progress: %w", err)
	}
	defer func() {
		if err != nil {
			if clearErr := c.store.SetRefreshInProgress(ctx, runID, false); clearErr != nil {
				logger.Warn("refresh: failed to clear in-progress flag: %v", clearErr)
			}
		}
	}()

	run := *f.run
	if recErr := c.store.RecordRun(ctx, &run); recErr != nil {
		logger.Warn("refresh: failed to record run %s: %v", runID, recErr)
	}

	// 2. Walk pages
	seen := make(map[int64]bool)
	cursor := ""
	for {
		page, err := c.fetch(ctx, cursor)
		if err != nil {
			return err
		}

		batch, err := c.normaliser.Normalise(ctx, page)
		if err != nil {
			return fmt.Errorf("normalise page: %w", err)
		}

		upserted, added, err := c.commitPage(ctx, batch, seen)
		if err != nil {
			return err
		}
		c.scoring.Invalidate()

		metrics.IngestionPages.Inc()
		metrics.IngestionSkipped.Add(float64(len(batch.Warnings)))
		metrics.ReviewsAdded.Add(float64(added))

		c.mu.Lock()
		f.run.Pages++
		f.run.InstructorsUpserted += upserted
		f.run.ReviewsAdded += added
		f.run.RecordsSkipped += len(batch.Warnings)
		c.mu.Unlock()

		if !page.HasNext() {
			break
		}
		cursor = page.NextCursor
	}

	// 3. Publish freshness
	counts, err := c.store.Counts(ctx)
	if err != nil {
		return fmt.Errorf("count cache: %w", err)
	}

	meta := domain.IngestionMetadata{
		LastRefresh:     startedAt,
		InstructorCount: counts.Instructors,
		ReviewCount:     counts.Reviews,
		LastRunID:       runID,
	}
	if err := c.store.SetIngestionMetadata(ctx, meta); err != nil {
		return fmt.Errorf("set ingestion metadata: %w", err)
	}
	return nil
}

// fetch gets one page, retrying transport errors with exponential backoff.
func (c *RefreshController) fetch(ctx context.Context, cursor string) (*domain.RawPage, error) {
	attempts := c.settings.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(attempts-1)), ctx)

	var page *domain.RawPage
	op := func() error {
		p, err := c.source.FetchPage(ctx, cursor)
		if err != nil {
			if !errors.Is(err, domain.ErrTransport) {
				return backoff.Permanent(err)
			}
			return err
		}
		if p == nil {
			return backoff.Permanent(fmt.Errorf("%w: source returned no page", domain.ErrTransport))
		}
		page = p
		return nil
	}
	notify := func(err error, wait time.Duration) {
		metrics.FetchRetries.Inc()
		logger.Warn("refresh: fetch failed, retrying in %s: %v", wait.Round(time.Millisecond), err)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, fmt.Errorf("fetch page after %d attempts: %w", attempts, err)
	}
	return page, nil
}

// commitPage writes one normalised page in a single transaction.
// Instructors already written this cycle are skipped.
func (c *RefreshController) commitPage(ctx context.Context, batch *domain.NormalisedBatch, seen map[int64]bool) (upserted, added int, err error) {
	tx, err := c.store.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin page: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	fresh := make([]int64, 0, len(batch.Items))
	for i := range batch.Items {
		item := &batch.Items[i]
		id := item.Instructor.ID
		if seen[id] {
			continue
		}

		c.scoring.Apply(&item.Instructor)
		if err := tx.UpsertInstructor(ctx, &item.Instructor); err != nil {
			return 0, 0, fmt.Errorf("upsert instructor %d: %w", id, err)
		}

		n, err := tx.UpsertReviews(ctx, item.Reviews)
		if err != nil {
			return 0, 0, fmt.Errorf("upsert reviews for %d: %w", id, err)
		}
		fresh = append(fresh, id)
		added += n
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit page: %w", err)
	}

	for _, id := range fresh {
		seen[id] = true
	}
	return len(fresh), added, nil
}
