// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - SourceAdapter: Fetches raw instructor pages from the review source
//   - Normaliser: Maps raw pages onto canonical entities
//   - CacheStore: Transactional persistence and ingestion metadata
//   - CacheTx: A page-scoped write transaction
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
