// Package transport is the HTTP layer shared by the RETS and RESO connectors.
//
// A Client owns one connection's request settings: timeout, User-Agent and
// protocol headers, Basic credentials with an automatic Digest fallback,
// bearer tokens through oauth2.Transport, a session cookie jar and a
// per-connection rate limiter. Connectivity failures and timeouts come back
// as *domain.NetworkError; every HTTP status is returned to the caller,
// which decides what it means for its protocol.
package transport
