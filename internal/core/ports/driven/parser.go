package driven

import (
	"github.com/custodia-labs/mlsq/internal/core/domain"
)

// ResponseParser decodes a search response body into a ResultSet.
// Each parser handles specific protocols and media types (e.g. RETS COMPACT,
// OData JSON, OData Atom XML).
//
// Parsers are pure: they hold no state between calls and never touch globals.
type ResponseParser interface {
	// Name identifies the parser in logs and errors.
	Name() string

	// SupportedProtocols returns the protocols whose responses this parser reads.
	SupportedProtocols() []domain.ProtocolKind

	// SupportedContentTypes returns the media types this parser handles.
	SupportedContentTypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific parsers return 50-89; protocol fallbacks return 1-9.
	Priority() int

	// Parse decodes body. contentType is the raw Content-Type header value.
	Parse(body []byte, contentType string) (*domain.ResultSet, error)
}

// ParserRegistry selects the appropriate parser for a response.
type ParserRegistry interface {
	// Parse decodes body using the best matching parser for the protocol
	// and content type. Returns a *domain.ParseError when no parser matches.
	Parse(protocol domain.ProtocolKind, body []byte, contentType string) (*domain.ResultSet, error)

	// Register adds a parser to the registry.
	Register(parser ResponseParser)

	// SupportedContentTypes returns all media types that can be parsed for a protocol.
	SupportedContentTypes(protocol domain.ProtocolKind) []string
}
