package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mlsq/internal/core/domain"
)

// stubParser records calls and returns a one-column result named after itself.
type stubParser struct {
	name      string
	protocols []domain.ProtocolKind
	types     []string
	priority  int
	err       error
	calls     int
}

func (p *stubParser) Name() string                              { return p.name }
func (p *stubParser) SupportedProtocols() []domain.ProtocolKind { return p.protocols }
func (p *stubParser) SupportedContentTypes() []string           { return p.types }
func (p *stubParser) Priority() int                             { return p.priority }

func (p *stubParser) Parse([]byte, string) (*domain.ResultSet, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return domain.NewResultSet([]string{p.name}), nil
}

func TestParserRegistry_SelectsByMediaTypeAndPriority(t *testing.T) {
	r := NewParserRegistry()
	low := &stubParser{name: "low", protocols: []domain.ProtocolKind{domain.ProtocolRESO}, types: []string{"application/json"}, priority: 10}
	high := &stubParser{name: "high", protocols: []domain.ProtocolKind{domain.ProtocolRESO}, types: []string{"application/json"}, priority: 80}
	xml := &stubParser{name: "xml", protocols: []domain.ProtocolKind{domain.ProtocolRESO}, types: []string{"application/xml"}, priority: 5}
	r.Register(low)
	r.Register(xml)
	r.Register(high)

	rs, err := r.Parse(domain.ProtocolRESO, nil, "application/json; odata.metadata=minimal; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, []string{"high"}, rs.Columns)

	rs, err = r.Parse(domain.ProtocolRESO, nil, "Application/XML")
	require.NoError(t, err)
	assert.Equal(t, []string{"xml"}, rs.Columns)
}

func TestParserRegistry_UnknownMediaTypeFallsBackToLowestPriority(t *testing.T) {
	r := NewParserRegistry()
	r.Register(&stubParser{name: "json", protocols: []domain.ProtocolKind{domain.ProtocolRESO}, types: []string{"application/json"}, priority: 70})
	r.Register(&stubParser{name: "fallback", protocols: []domain.ProtocolKind{domain.ProtocolRESO}, types: []string{"application/atom+xml"}, priority: 5})

	for _, ct := range []string{"", "application/octet-stream", "garbage;;"} {
		rs, err := r.Parse(domain.ProtocolRESO, nil, ct)
		require.NoError(t, err, ct)
		assert.Equal(t, []string{"fallback"}, rs.Columns, ct)
	}
}

func TestParserRegistry_ProtocolsAreSeparate(t *testing.T) {
	r := NewParserRegistry()
	r.Register(&stubParser{name: "rets", protocols: []domain.ProtocolKind{domain.ProtocolRETS}, types: []string{"text/xml"}, priority: 60})

	_, err := r.Parse(domain.ProtocolRESO, nil, "text/xml")
	var perr *domain.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Error(), "no parser registered")
}

func TestParserRegistry_ParseErrorStopsSelection(t *testing.T) {
	r := NewParserRegistry()
	first := &stubParser{name: "first", protocols: []domain.ProtocolKind{domain.ProtocolRETS}, types: []string{"text/xml"}, priority: 60,
		err: &domain.ParseError{ReplyCode: 20206, ReplyText: "Invalid Query Syntax"}}
	second := &stubParser{name: "second", protocols: []domain.ProtocolKind{domain.ProtocolRETS}, types: []string{"text/xml"}, priority: 50}
	r.Register(first)
	r.Register(second)

	_, err := r.Parse(domain.ProtocolRETS, nil, "text/xml")
	assert.ErrorIs(t, err, domain.ErrParse)
	assert.Equal(t, 0, second.calls)
}

func TestParserRegistry_OtherErrorTriesNext(t *testing.T) {
	r := NewParserRegistry()
	first := &stubParser{name: "first", protocols: []domain.ProtocolKind{domain.ProtocolRETS}, types: []string{"text/xml"}, priority: 60,
		err: errors.New("unexpected EOF")}
	second := &stubParser{name: "second", protocols: []domain.ProtocolKind{domain.ProtocolRETS}, types: []string{"text/xml"}, priority: 50}
	r.Register(first)
	r.Register(second)

	rs, err := r.Parse(domain.ProtocolRETS, nil, "text/xml")
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, rs.Columns)

	second.err = errors.New("still broken")
	_, err = r.Parse(domain.ProtocolRETS, nil, "text/xml")
	assert.ErrorIs(t, err, domain.ErrParse)
	assert.Contains(t, err.Error(), "second: still broken")
}

func TestDefaultParserRegistry(t *testing.T) {
	r := NewDefaultParserRegistry()

	assert.ElementsMatch(t, []string{"text/xml", "application/xml", "text/plain"},
		r.SupportedContentTypes(domain.ProtocolRETS))
	assert.ElementsMatch(t, []string{"application/json", "text/json", "application/atom+xml", "application/xml", "text/xml"},
		r.SupportedContentTypes(domain.ProtocolRESO))

	body := "<RETS ReplyCode=\"0\" ReplyText=\"OK\">\n<COUNT Records=\"1\"/>\n" +
		"<DELIMITER value=\"09\"/>\n<COLUMNS>\tListingKey\tListPrice\t</COLUMNS>\n" +
		"<DATA>\tL1\t100000\t</DATA>\n</RETS>"
	rs, err := r.Parse(domain.ProtocolRETS, []byte(body), "text/xml; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, []string{"ListingKey", "ListPrice"}, rs.Columns)
	assert.Equal(t, 1, rs.Count)

	rs, err = r.Parse(domain.ProtocolRESO, []byte(`{"value":[{"ListingKey":"L1"}]}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, "L1", rs.Rows[0].Value("ListingKey"))
}

func TestDefaultParserRegistry_BuiltinErrorsAreParseErrors(t *testing.T) {
	r := NewDefaultParserRegistry()

	tests := []struct {
		name        string
		protocol    domain.ProtocolKind
		body        string
		contentType string
	}{
		{"compact html page", domain.ProtocolRETS, "<html><body>down</body></html>", "text/html"},
		{"compact data without columns", domain.ProtocolRETS, "<RETS ReplyCode=\"0\">\n<DATA>\tL1\t</DATA>\n</RETS>", "text/xml"},
		{"odata truncated json", domain.ProtocolRESO, `{"value":[{"ListingKey":`, "application/json; odata.metadata=minimal"},
		{"atom without feed", domain.ProtocolRESO, "<error/>", "application/atom+xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Parse(tt.protocol, []byte(tt.body), tt.contentType)
			var pe *domain.ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
		})
	}
}
