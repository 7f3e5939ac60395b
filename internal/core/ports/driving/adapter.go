package driving

import (
	"context"

	"github.com/custodia-labs/mlsq/internal/core/domain"
)

// ProtocolAdapter is the single contract over RETS and RESO servers.
// UIs, the CLI and the MCP server depend only on this interface.
//
// Every operation takes an explicit session handle; there is no ambient
// "current connection". Independent sessions may be used concurrently.
type ProtocolAdapter interface {
	// Connect validates the connection, logs in and opens a session.
	// Fails with AuthError, EndpointNotFoundError or NetworkError.
	Connect(ctx context.Context, conn domain.Connection) (domain.SessionHandle, error)

	// Disconnect closes the session. Logout failures are logged, never returned.
	Disconnect(ctx context.Context, handle domain.SessionHandle)

	// ListResources fetches metadata and replaces the session's cached graph.
	ListResources(ctx context.Context, handle domain.SessionHandle) (*domain.MetadataGraph, error)

	// RunQuery validates the query against metadata and executes it.
	// ValidationError is returned before any network call.
	RunQuery(ctx context.Context, handle domain.SessionHandle, spec domain.QuerySpec) (*domain.ResultSet, error)

	// GetLookups resolves enumerated values for the fields of a resource
	// (and class for RETS), keyed by field name.
	//
	// For RESO Collection(Edm.String) fields without a declared enum the
	// values are sampled from live data: such tables are marked Approximate
	// and list only values observed in the sample.
	GetLookups(
		ctx context.Context, handle domain.SessionHandle, resourceID, classID string,
	) (map[string]domain.LookupTable, error)

	// ExportMetadata returns the last fetched raw metadata documents unchanged.
	// Metadata is fetched first when the session has none cached.
	ExportMetadata(ctx context.Context, handle domain.SessionHandle) (*domain.RawMetadata, error)

	// Session returns the read-only view of an open session.
	Session(handle domain.SessionHandle) (domain.SessionInfo, error)

	// Sessions lists all open sessions.
	Sessions() []domain.SessionInfo
}
