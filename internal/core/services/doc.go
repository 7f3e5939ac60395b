// Package services implements the driving port interfaces.
//
// AdapterService owns the session registry and is the single entry point
// for RETS and RESO work: it validates queries against cached metadata,
// re-authenticates once on an expired session and retries once after a
// network failure. ProfileService joins saved profiles with secrets from
// the secret store. ParserRegistry picks a response parser per protocol
// and media type.
package services
