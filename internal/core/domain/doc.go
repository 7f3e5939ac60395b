// Package domain defines the core entities of mlsq.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Connection: How to reach and authenticate against a listing server
//   - SessionInfo: A read-only view of an open session
//   - MetadataGraph: Normalised RETS/RESO metadata (resources, classes, fields)
//   - QuerySpec / ResultSet: A search request and its decoded rows
//   - LookupTable: Enumerated values of a lookup field
//   - Profile: A saved connection without secrets
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
