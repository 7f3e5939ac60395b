package connectors

import (
	"fmt"
	"net/http"

	"github.com/custodia-labs/mlsq/internal/connectors/reso"
	"github.com/custodia-labs/mlsq/internal/connectors/rets"
	"github.com/custodia-labs/mlsq/internal/core/domain"
	"github.com/custodia-labs/mlsq/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.ProtocolClientFactory = (*Factory)(nil)

// FactoryOptions tunes the clients a Factory builds.
type FactoryOptions struct {
	// SampleSize bounds RESO lookup sampling. Zero means the reso default.
	SampleSize int
	// Transport is the round tripper shared by every client. Nil means
	// http.DefaultTransport.
	Transport http.RoundTripper
}

// Factory creates a protocol client for each connection.
type Factory struct {
	parsers driven.ParserRegistry
	opts    FactoryOptions
}

// NewFactory creates a factory whose clients decode responses through parsers.
func NewFactory(parsers driven.ParserRegistry, opts FactoryOptions) *Factory {
	return &Factory{parsers: parsers, opts: opts}
}

// Create builds the client for the connection's protocol.
func (f *Factory) Create(conn domain.Connection) (driven.ProtocolClient, error) {
	switch conn.Protocol {
	case domain.ProtocolRETS:
		return rets.New(conn, f.parsers, f.opts.Transport)
	case domain.ProtocolRESO:
		return reso.New(conn, f.parsers, reso.Options{
			SampleSize: f.opts.SampleSize,
			Base:       f.opts.Transport,
		})
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedProtocol, conn.Protocol)
	}
}

// SupportedProtocols lists the protocol kinds this factory can build.
func (f *Factory) SupportedProtocols() []domain.ProtocolKind {
	return domain.AllProtocols()
}
