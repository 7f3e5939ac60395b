// Package parsers provides implementations of the ResponseParser interface
// for the response formats listing servers return. Each parser knows how to
// turn one media type into a ResultSet:
//
//   - compact: RETS COMPACT and COMPACT-DECODED (tab-delimited XML)
//   - odata:   RESO Web API JSON ({"value": [...]})
//   - atom:    RESO Web API Atom/XML feeds
//
// Parsers are registered with the ParserRegistry at startup.
package parsers
