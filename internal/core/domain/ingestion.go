package domain

import "time"

// RefreshState is the freshness controller's lifecycle state.
type RefreshState string

// Refresh states.
const (
	// RefreshIdle means no cycle is running and the last one succeeded
	// (or none has run yet).
	RefreshIdle RefreshState = "idle"

	// RefreshRunning means an ingestion cycle is in progress.
	RefreshRunning RefreshState = "refreshing"

	// RefreshFailed means the last cycle aborted. The next check retries.
	RefreshFailed RefreshState = "failed"
)

// IngestionMetadata is the singleton record describing the cache's freshness.
type IngestionMetadata struct {
	// LastRefresh is the start time of the last fully successful cycle.
	LastRefresh time.Time `json:"last_refresh"`

	// InstructorCount is the number of cached instructors after that cycle.
	InstructorCount int `json:"instructor_count"`

	// ReviewCount is the number of cached reviews after that cycle.
	ReviewCount int `json:"review_count"`

	// RefreshInProgress is set while a cycle runs.
	RefreshInProgress bool `json:"refresh_in_progress"`

	// LastRunID identifies the cycle that last touched the record.
	LastRunID string `json:"last_run_id,omitempty"`
}

// Age returns how long ago the last successful cycle started.
func (m *IngestionMetadata) Age(now time.Time) time.Duration {
	return now.Sub(m.LastRefresh)
}

// IsStale reports whether the cache is older than maxAge at now.
// A cache exactly maxAge old is still fresh.
func (m *IngestionMetadata) IsStale(now time.Time, maxAge time.Duration) bool {
	if m == nil || m.LastRefresh.IsZero() {
		return true
	}
	return m.Age(now) > maxAge
}

// RunStatus is the outcome of an ingestion cycle.
type RunStatus string

// Run statuses.
const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// IngestionRun records one ingestion cycle.
type IngestionRun struct {
	// ID uniquely identifies the cycle.
	ID string `json:"id"`

	// StartedAt is the cycle start time.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the cycle ended. Zero while running.
	FinishedAt time.Time `json:"finished_at"`

	// Status is the cycle outcome.
	Status RunStatus `json:"status"`

	// Forced is true when the cycle bypassed the freshness check.
	Forced bool `json:"forced"`

	// Pages is the number of committed pages.
	Pages int `json:"pages"`

	// InstructorsUpserted counts instructor writes.
	InstructorsUpserted int `json:"instructors_upserted"`

	// ReviewsAdded counts newly inserted reviews.
	ReviewsAdded int `json:"reviews_added"`

	// RecordsSkipped counts malformed records dropped by normalisation.
	RecordsSkipped int `json:"records_skipped"`

	// Error is the failure reason, if any.
	Error string `json:"error,omitempty"`
}

// Duration returns the cycle's run time so far.
func (r *IngestionRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// CacheCounts are row totals in the cache.
type CacheCounts struct {
	Instructors int
	Reviews     int
}
