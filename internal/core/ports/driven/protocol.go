package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/mlsq/internal/core/domain"
)

// ProtocolClient speaks one protocol family to one server on behalf of one
// connection. RETS and RESO each provide an implementation; core services
// never inspect which one they hold beyond Kind.
//
// A ProtocolClient owns its authenticated transport state (cookie jar or
// bearer token). It is not shared between connections.
type ProtocolClient interface {
	// Kind returns the protocol family.
	Kind() domain.ProtocolKind

	// Login authenticates and discovers capability URLs.
	// Calling Login again replaces the previous session state.
	Login(ctx context.Context) (*LoginResult, error)

	// Logout ends the remote session. Errors are informational only.
	Logout(ctx context.Context) error

	// FetchMetadata retrieves and normalises the server metadata.
	// Partial failures are recorded as gaps in the returned graph.
	FetchMetadata(ctx context.Context) (*domain.MetadataGraph, error)

	// Search executes a validated query. It performs exactly one request
	// (or one request plus a format fallback) and never paginates.
	Search(ctx context.Context, graph *domain.MetadataGraph, spec domain.QuerySpec) (*domain.ResultSet, error)

	// ResolveLookups returns the lookup table of every enumerated field of the
	// target resource (and class for RETS), keyed by field name.
	ResolveLookups(
		ctx context.Context, graph *domain.MetadataGraph, resourceID, classID string,
	) (map[string]domain.LookupTable, error)
}

// LoginResult describes a successful login.
type LoginResult struct {
	// LoginURL is the endpoint that accepted the login.
	LoginURL string
	// Capabilities maps capability names to absolute URLs.
	Capabilities map[string]string
	// ExpiresAt is the token or session expiry, zero when unknown.
	ExpiresAt time.Time
}

// ProtocolClientFactory creates protocol clients for connections.
type ProtocolClientFactory interface {
	// Create builds a client for the connection's protocol.
	// Returns domain.ErrUnsupportedProtocol for unknown protocol kinds.
	Create(conn domain.Connection) (ProtocolClient, error)

	// SupportedProtocols lists the protocol kinds this factory can build.
	SupportedProtocols() []domain.ProtocolKind
}
