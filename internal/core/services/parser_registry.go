package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/core/ports/driven"
	"github.com/custodia-labs/mlsq/internal/parsers"
	"github.com/custodia-labs/mlsq/internal/parsers/atom"
	"github.com/custodia-labs/mlsq/internal/parsers/compact"
	"github.com/custodia-labs/mlsq/internal/parsers/odata"
)

// Ensure ParserRegistry implements the interface.
var _ driven.ParserRegistry = (*ParserRegistry)(nil)

// ParserRegistry selects a response parser by protocol and media type.
// Matching parsers are tried highest priority first. A media type no parser
// declares falls back to the protocol's lowest-priority parser.
type ParserRegistry struct {
	mu      sync.RWMutex
	parsers map[domain.ProtocolKind][]driven.ResponseParser
}

// NewParserRegistry creates an empty registry.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{
		parsers: make(map[domain.ProtocolKind][]driven.ResponseParser),
	}
}

// NewDefaultParserRegistry creates a registry holding the built-in COMPACT,
// OData JSON and Atom parsers.
func NewDefaultParserRegistry() *ParserRegistry {
	r := NewParserRegistry()
	r.Register(compact.New())
	r.Register(odata.New())
	r.Register(atom.New())
	return r
}

// Register adds a parser for every protocol it supports.
func (r *ParserRegistry) Register(parser driven.ResponseParser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range parser.SupportedProtocols() {
		list := append(r.parsers[p], parser)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.parsers[p] = list
	}
}

// Parse decodes body with the best parser for the protocol and content type.
// A ParseError from a candidate is final. The built-in parsers only fail
// with ParseError, so falling through to the next candidate applies to
// registered parsers that return other errors.
func (r *ParserRegistry) Parse(protocol domain.ProtocolKind, body []byte, contentType string) (*domain.ResultSet, error) {
	candidates := r.candidates(protocol, contentType)
	if len(candidates) == 0 {
		return nil, &domain.ParseError{
			ContentType: contentType,
			Err:         fmt.Errorf("no parser registered for protocol %q", protocol),
		}
	}

	var lastErr error
	for _, p := range candidates {
		rs, err := p.Parse(body, contentType)
		if err == nil {
			return rs, nil
		}
		var perr *domain.ParseError
		if errors.As(err, &perr) {
			return nil, err
		}
		lastErr = fmt.Errorf("%s: %w", p.Name(), err)
	}
	return nil, &domain.ParseError{ContentType: contentType, Err: lastErr}
}

// SupportedContentTypes returns every media type parseable for a protocol.
func (r *ParserRegistry) SupportedContentTypes(protocol domain.ProtocolKind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var types []string
	for _, p := range r.parsers[protocol] {
		for _, ct := range p.SupportedContentTypes() {
			if !seen[ct] {
				seen[ct] = true
				types = append(types, ct)
			}
		}
	}
	return types
}

// candidates returns the parsers to try, in order.
func (r *ParserRegistry) candidates(protocol domain.ProtocolKind, contentType string) []driven.ResponseParser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.parsers[protocol]
	if len(all) == 0 {
		return nil
	}

	media := parsers.MediaType(contentType)
	var out []driven.ResponseParser
	for _, p := range all {
		for _, ct := range p.SupportedContentTypes() {
			if strings.EqualFold(ct, media) {
				out = append(out, p)
				break
			}
		}
	}
	if len(out) == 0 {
		out = append(out, all[len(all)-1])
	}
	return out
}
