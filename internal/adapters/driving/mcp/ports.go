package mcp

import (
	"github.com/custodia-labs/profrank/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query serves rankings, departments, schedules and stats.
	Query driving.QueryService

	// Refresh reports cache freshness. Optional.
	Refresh driving.RefreshService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
