package compact

import (
	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.ResponseParser = (*Parser)(nil)

// Parser handles RETS COMPACT and COMPACT-DECODED search responses.
type Parser struct{}

// New creates a new COMPACT parser.
func New() *Parser {
	return &Parser{}
}

// Name identifies the parser.
func (p *Parser) Name() string {
	return "compact"
}

// SupportedProtocols returns the protocols whose responses this parser reads.
func (p *Parser) SupportedProtocols() []domain.ProtocolKind {
	return []domain.ProtocolKind{domain.ProtocolRETS}
}

// SupportedContentTypes returns the media types this parser handles.
func (p *Parser) SupportedContentTypes() []string {
	return []string{
		"text/xml",
		"application/xml",
		"text/plain",
	}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 60
}

// Parse decodes a search response. A ReplyCode of 20201 yields an empty
// result; any other non-zero ReplyCode, or DATA without COLUMNS, is a
// *domain.ParseError.
func (p *Parser) Parse(body []byte, contentType string) (*domain.ResultSet, error) {
	doc, err := Decode(body)
	if err != nil {
		return nil, &domain.ParseError{ContentType: contentType, Err: err}
	}

	switch doc.ReplyCode {
	case 0:
		if doc.HeaderlessRows() {
			return nil, &domain.ParseError{ContentType: contentType, Err: ErrNoColumns}
		}
		return doc.ResultSet(), nil
	case ReplyNoRecords:
		rs := doc.ResultSet()
		rs.Rows = rs.Rows[:0]
		rs.Count = 0
		return rs, nil
	default:
		return nil, &domain.ParseError{
			ReplyCode:   doc.ReplyCode,
			ReplyText:   doc.ReplyText,
			ContentType: contentType,
		}
	}
}
