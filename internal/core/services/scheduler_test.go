package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/profrank/internal/core/ports/driving"
)

// --- Mock implementations for scheduler testing ---

// mockRefreshService records freshness checks.
type mockRefreshService struct {
	mu    sync.Mutex
	calls []driving.RefreshRequest
	err   error
	ch    chan struct{}
}

func newMockRefreshService() *mockRefreshService {
	return &mockRefreshService{ch: make(chan struct{}, 16)}
}

func (m *mockRefreshService) Refresh(_ context.Context, req driving.RefreshRequest) (*driving.RefreshOutcome, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	err := m.err
	m.mu.Unlock()

	select {
	case m.ch <- struct{}{}:
	default:
	}
	if err != nil {
		return nil, err
	}
	return &driving.RefreshOutcome{Status: driving.RefreshFresh}, nil
}

func (m *mockRefreshService) Status(_ context.Context) (*driving.RefreshReport, error) {
	return &driving.RefreshReport{}, nil
}

func (m *mockRefreshService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func waitForCall(t *testing.T, m *mockRefreshService) {
	t.Helper()
	select {
	case <-m.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a freshness check")
	}
}

// --- Tests ---

func TestScheduler_ChecksOnStartup(t *testing.T) {
	refresh := newMockRefreshService()
	s := NewScheduler(time.Hour, refresh)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	waitForCall(t, refresh)
	require.NoError(t, s.Stop())
	assert.NoError(t, <-done)

	refresh.mu.Lock()
	defer refresh.mu.Unlock()
	require.Len(t, refresh.calls, 1)
	assert.False(t, refresh.calls[0].Force, "scheduled checks respect freshness")
	assert.True(t, refresh.calls[0].Wait)
}

func TestScheduler_ChecksEveryInterval(t *testing.T) {
	refresh := newMockRefreshService()
	s := NewScheduler(10*time.Millisecond, refresh)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	for i := 0; i < 3; i++ {
		waitForCall(t, refresh)
	}
	require.NoError(t, s.Stop())
	assert.NoError(t, <-done)
	assert.GreaterOrEqual(t, refresh.callCount(), 3)
}

func TestScheduler_ContextCancel(t *testing.T) {
	refresh := newMockRefreshService()
	s := NewScheduler(0, refresh)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	waitForCall(t, refresh)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 1, refresh.callCount())
}

func TestScheduler_SurvivesFailedCheck(t *testing.T) {
	refresh := newMockRefreshService()
	refresh.err = errors.New("source down")
	s := NewScheduler(10*time.Millisecond, refresh)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	waitForCall(t, refresh)
	waitForCall(t, refresh)
	require.NoError(t, s.Stop())
	assert.NoError(t, <-done)
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	s := NewScheduler(time.Hour, newMockRefreshService())
	assert.NoError(t, s.Stop())
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	refresh := newMockRefreshService()
	s := NewScheduler(time.Hour, refresh)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()
	waitForCall(t, refresh)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	assert.NoError(t, <-done)
}

func TestScheduler_DoubleStartIsNoop(t *testing.T) {
	refresh := newMockRefreshService()
	s := NewScheduler(time.Hour, refresh)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()
	waitForCall(t, refresh)

	// Second Start returns immediately while the first loop runs
	assert.NoError(t, s.Start(context.Background()))

	require.NoError(t, s.Stop())
	assert.NoError(t, <-done)
	assert.Equal(t, 1, refresh.callCount())
}

func TestScheduler_WithController(t *testing.T) {
	fx := newFixture(t, twoPages())
	s := NewScheduler(time.Hour, fx.refresh)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	require.Eventually(t, func() bool {
		meta, err := fx.store.GetIngestionMetadata(context.Background())
		return err == nil && meta.InstructorCount == 3
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.NoError(t, <-done)
}
