// Package domain defines the core business entities for profrank.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Instructor: A cached, scored teaching staff member
//   - Review: An immutable student review
//   - Metric: A measurement that may be unknown
//   - IngestionMetadata: The cache freshness record
//   - RawInstructor: Source output before normalisation
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
