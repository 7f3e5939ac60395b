// Package reso implements the RESO Web API protocol client.
//
// The RESO Web API is OData v4 over HTTP. A connection authenticates with
// either a pre-issued bearer token or an OAuth2 resource-owner password
// grant, then:
//
//   - discovers the service root
//   - reads the EDM document at $metadata into a MetadataGraph
//   - queries EntitySets with $filter, $select and $top
//   - resolves enumerated fields from EnumType members, or by sampling
//     live data for untyped Collection(Edm.String) fields
//
// Tokens are never refreshed proactively. An expired token surfaces as an
// expired AuthError and the adapter logs in again.
package reso
