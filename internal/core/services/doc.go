// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// RefreshController owns ingestion, ScoringEngine owns composite scores
// and department rollups, and QueryService serves reads from the cache.
package services
