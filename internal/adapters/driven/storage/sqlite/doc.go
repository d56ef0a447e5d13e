// Package sqlite provides the SQLite-backed review cache.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Store implements driven.CacheStore:
//
//   - instructors with their tag and course multisets
//   - immutable reviews, deduplicated by ID
//   - the singleton ingestion metadata record
//   - ingestion run history
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory and recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.profrank/data/cache.db
//
// # Thread Safety
//
// All operations are thread-safe. WAL mode lets readers keep a consistent
// snapshot while an ingestion page commits.
package sqlite
