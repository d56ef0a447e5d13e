package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/profrank/internal/core/ports/driving"
	"github.com/custodia-labs/profrank/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler runs a freshness check on startup and then every interval.
// The controller decides whether a check actually ingests.
type Scheduler struct {
	interval time.Duration
	refresh  driving.RefreshService

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler. A non-positive interval checks only
// once on startup.
func NewScheduler(interval time.Duration, refresh driving.RefreshService) *Scheduler {
	return &Scheduler{
		interval: interval,
		refresh:  refresh,
	}
}

// Start begins the check loop. This method blocks until Stop is called or
// ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	return s.run(ctx, stopCh)
}

// Stop gracefully shuts down the loop and waits for an in-flight check.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// run is the main loop.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	s.check(ctx)

	if s.interval <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		}
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

// check asks the controller for a non-forced refresh and waits for it.
func (s *Scheduler) check(ctx context.Context) {
	out, err := s.refresh.Refresh(ctx, driving.RefreshRequest{Wait: true})
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("scheduler: refresh failed: %v", err)
		}
		return
	}
	logger.Debug("scheduler: freshness check: %s", out.Status)
}
