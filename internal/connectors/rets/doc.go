// Package rets implements the ProtocolClient interface for RETS 1.x servers.
//
// A session starts by probing the login path variants until one answers
// with capability URLs. Metadata is walked in COMPACT format (system,
// resources, classes per resource, tables per class), searches are DMQL2
// in COMPACT-DECODED format, and lookups are resolved from
// METADATA-LOOKUP_TYPE documents. Session state lives in the transport's
// cookie jar.
package rets
