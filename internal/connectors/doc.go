// Package connectors provides the protocol clients for listing servers.
// Each sub-package speaks one protocol family:
//
//   - rets: RETS 1.x login, GetMetadata, Search and lookups
//   - reso: RESO Web API (OData v4) with OAuth2 or bearer tokens
//   - transport: the shared HTTP layer (auth, cookies, rate limits)
//
// Clients are created through the Factory at session open.
package connectors
