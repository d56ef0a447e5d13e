package driving

import "context"

// Scheduler runs periodic freshness checks in the background.
type Scheduler interface {
	// Start begins the check loop.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops the loop and waits for a running check.
	Stop() error
}
