package odata

import (
	"errors"

	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.ResponseParser = (*Parser)(nil)

// Parser handles RESO Web API JSON responses.
type Parser struct{}

// New creates a new OData JSON parser.
func New() *Parser {
	return &Parser{}
}

// Name identifies the parser.
func (p *Parser) Name() string {
	return "odata"
}

// SupportedProtocols returns the protocols whose responses this parser reads.
func (p *Parser) SupportedProtocols() []domain.ProtocolKind {
	return []domain.ProtocolKind{domain.ProtocolRESO}
}

// SupportedContentTypes returns the media types this parser handles.
func (p *Parser) SupportedContentTypes() []string {
	return []string{
		"application/json",
		"text/json",
	}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 70
}

// Parse decodes an entity collection. The header is the first entity's key
// order; keys that first appear in later entities are reported as warnings
// and left out of the rows.
func (p *Parser) Parse(body []byte, contentType string) (*domain.ResultSet, error) {
	payload, err := Decode(body)
	if err != nil {
		var svcErr *ServiceError
		if errors.As(err, &svcErr) {
			return nil, &domain.ParseError{ReplyText: svcErr.Message, ContentType: contentType, Err: err}
		}
		return nil, &domain.ParseError{ContentType: contentType, Err: err}
	}

	var columns []string
	if len(payload.Entities) > 0 {
		for _, f := range payload.Entities[0] {
			if !IsAnnotation(f.Key) {
				columns = append(columns, f.Key)
			}
		}
	}
	if columns == nil {
		columns = []string{}
	}

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}

	rs := domain.NewResultSet(columns)
	rs.Count = payload.Count
	for row, entity := range payload.Entities {
		values := make([]string, len(columns))
		for _, f := range entity {
			if IsAnnotation(f.Key) {
				continue
			}
			i, ok := index[f.Key]
			if !ok {
				rs.Warn(row, "field %q is not in the header; value discarded", f.Key)
				continue
			}
			values[i] = Render(f.Raw)
		}
		rs.AppendRow(values)
	}
	return rs, nil
}
