package driving

import (
	"context"

	"github.com/custodia-labs/profrank/internal/core/domain"
)

// RefreshService decides when the cache is re-ingested and runs the cycle.
type RefreshService interface {
	// Refresh checks freshness and ingests when stale or forced.
	// A failed cycle returns its cause; the cache keeps the data it had.
	Refresh(ctx context.Context, req RefreshRequest) (*RefreshOutcome, error)

	// Status reports the controller state and recent history.
	Status(ctx context.Context) (*RefreshReport, error)
}

// RefreshRequest controls one freshness check.
type RefreshRequest struct {
	// Force bypasses the staleness check. Coalesces into a running cycle.
	Force bool

	// Wait blocks until the cycle ends. Without it the call returns as
	// soon as a cycle has been started or found running.
	Wait bool
}

// RefreshStatus is the result of a freshness check.
type RefreshStatus string

// Refresh outcomes.
const (
	// RefreshFresh means the cache was fresh and nothing ran.
	RefreshFresh RefreshStatus = "fresh"

	// RefreshStarted means a new cycle is running in the background.
	RefreshStarted RefreshStatus = "started"

	// RefreshInProgress means a cycle was already running.
	RefreshInProgress RefreshStatus = "in_progress"

	// RefreshCompleted means the caller waited for a cycle that succeeded.
	RefreshCompleted RefreshStatus = "completed"
)

// RefreshOutcome describes what a freshness check did.
type RefreshOutcome struct {
	Status RefreshStatus `json:"status"`

	// Coalesced is true when the call joined a cycle another caller began.
	Coalesced bool `json:"coalesced"`

	// Run is the cycle the call started or joined, if any.
	Run *domain.IngestionRun `json:"run,omitempty"`

	// Metadata is the freshness record after the call.
	Metadata *domain.IngestionMetadata `json:"metadata,omitempty"`
}

// RefreshReport is the controller's current state.
type RefreshReport struct {
	State      domain.RefreshState       `json:"state"`
	Metadata   *domain.IngestionMetadata `json:"metadata,omitempty"`
	Stale      bool                      `json:"stale"`
	LastError  string                    `json:"last_error,omitempty"`
	RecentRuns []domain.IngestionRun     `json:"recent_runs"`
}
