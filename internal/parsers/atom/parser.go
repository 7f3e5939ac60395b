package atom

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/core/ports/driven"
	"github.com/custodia-labs/mlsq/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.ResponseParser = (*Parser)(nil)

// ErrNoFeed is returned for XML bodies without an Atom feed or entry.
var ErrNoFeed = errors.New("no atom feed or entry")

// Parser handles RESO Web API Atom/XML responses.
type Parser struct{}

// New creates a new Atom parser.
func New() *Parser {
	return &Parser{}
}

// Name identifies the parser.
func (p *Parser) Name() string {
	return "atom"
}

// SupportedProtocols returns the protocols whose responses this parser reads.
func (p *Parser) SupportedProtocols() []domain.ProtocolKind {
	return []domain.ProtocolKind{domain.ProtocolRESO}
}

// SupportedContentTypes returns the media types this parser handles.
func (p *Parser) SupportedContentTypes() []string {
	return []string{
		"application/atom+xml",
		"application/xml",
		"text/xml",
	}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 5 // Fallback for RESO XML
}

type property struct {
	name  string
	value string
}

// Parse decodes <feed>/<entry>/<content>/<m:properties>. Null properties
// become empty values and collection elements are comma-joined.
func (p *Parser) Parse(body []byte, contentType string) (*domain.ResultSet, error) {
	entries, count, err := decode(body)
	if err != nil {
		return nil, &domain.ParseError{ContentType: contentType, Err: err}
	}

	columns := []string{}
	if len(entries) > 0 {
		for _, prop := range entries[0] {
			columns = append(columns, prop.name)
		}
	}
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}

	rs := domain.NewResultSet(columns)
	rs.Count = count
	for row, entry := range entries {
		values := make([]string, len(columns))
		for _, prop := range entry {
			i, ok := index[prop.name]
			if !ok {
				rs.Warn(row, "field %q is not in the header; value discarded", prop.name)
				continue
			}
			values[i] = prop.value
		}
		rs.AppendRow(values)
	}
	return rs, nil
}

func decode(body []byte) ([][]property, int, error) {
	dec := parsers.NewXMLDecoder(bytes.NewReader(body))

	var (
		entries   [][]property
		current   []property
		count     = domain.CountUnknown
		seenFeed  bool
		inEntry   bool
		propDepth int // depth inside m:properties, 0 when outside
		name      string
		isNull    bool
		text      strings.Builder
		elements  []string
		inCount   bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("decode xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			local := t.Name.Local
			switch {
			case propDepth > 0:
				propDepth++
				if propDepth == 2 {
					name = local
					isNull = strings.EqualFold(parsers.Attr(t.Attr, "null"), "true")
					text.Reset()
					elements = elements[:0]
				} else {
					text.Reset()
				}
			case local == "feed":
				seenFeed = true
			case local == "entry":
				seenFeed = true
				inEntry = true
				current = nil
			case local == "properties" && inEntry:
				propDepth = 1
			case local == "count" && !inEntry:
				inCount = true
				text.Reset()
			}

		case xml.CharData:
			if propDepth >= 2 || inCount {
				text.Write(t)
			}

		case xml.EndElement:
			local := t.Name.Local
			switch {
			case propDepth > 2:
				elements = append(elements, strings.TrimSpace(text.String()))
				text.Reset()
				propDepth--
			case propDepth == 2:
				value := strings.TrimSpace(text.String())
				if len(elements) > 0 {
					value = strings.Join(elements, ",")
				}
				if isNull {
					value = ""
				}
				current = append(current, property{name: name, value: value})
				propDepth--
			case propDepth == 1:
				propDepth = 0
			case local == "entry" && inEntry:
				entries = append(entries, current)
				inEntry = false
			case local == "count" && inCount:
				if n, err := strconv.Atoi(strings.TrimSpace(text.String())); err == nil {
					count = n
				}
				inCount = false
			}
		}
	}

	if !seenFeed {
		return nil, 0, ErrNoFeed
	}
	return entries, count, nil
}
