package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/mlsq/internal/core/domain"
)

// ConnectInput is the input schema for the connect tool.
type ConnectInput struct {
	Profile string `json:"profile" jsonschema:"name or ID of a saved connection profile"`
}

// ConnectOutput is the output schema for the connect tool.
type ConnectOutput struct {
	Handle       string            `json:"handle"`
	Name         string            `json:"name"`
	Protocol     string            `json:"protocol"`
	LoginURL     string            `json:"login_url"`
	Capabilities map[string]string `json:"capabilities,omitempty"`
}

// HandleInput identifies an open session.
type HandleInput struct {
	Handle string `json:"handle" jsonschema:"session handle returned by connect"`
}

// DisconnectOutput is the output schema for the disconnect tool.
type DisconnectOutput struct {
	Closed bool `json:"closed"`
}

// ResourcesOutput is the output schema for the list_resources tool.
type ResourcesOutput struct {
	SystemID   string           `json:"system_id,omitempty"`
	Version    string           `json:"version,omitempty"`
	Incomplete bool             `json:"incomplete,omitempty"`
	Resources  []ResourceOutput `json:"resources"`
}

// ResourceOutput summarises one resource or entity set.
type ResourceOutput struct {
	ID       string        `json:"id"`
	Label    string        `json:"label,omitempty"`
	KeyField string        `json:"key_field,omitempty"`
	Fields   []string      `json:"fields,omitempty"`
	Classes  []ClassOutput `json:"classes,omitempty"`
	Gaps     []string      `json:"gaps,omitempty"`
}

// ClassOutput summarises one RETS class.
type ClassOutput struct {
	ID     string   `json:"id"`
	Label  string   `json:"label,omitempty"`
	Fields []string `json:"fields"`
}

// QueryInput is the input schema for the run_query tool.
type QueryInput struct {
	Handle   string   `json:"handle" jsonschema:"session handle returned by connect"`
	Resource string   `json:"resource" jsonschema:"resource or entity set to search"`
	Class    string   `json:"class,omitempty" jsonschema:"RETS class, omitted for RESO"`
	Filter   string   `json:"filter,omitempty" jsonschema:"DMQL2 query for RETS or an OData $filter for RESO"`
	Select   []string `json:"select,omitempty" jsonschema:"fields to return, all when empty"`
	Limit    int      `json:"limit,omitempty" jsonschema:"maximum number of rows (default 10)"`
}

// QueryOutput is the output schema for the run_query tool.
type QueryOutput struct {
	Columns  []string            `json:"columns"`
	Rows     []map[string]string `json:"rows"`
	Count    int                 `json:"count"`
	MaxRows  bool                `json:"max_rows,omitempty"`
	Warnings []string            `json:"warnings,omitempty"`
}

// LookupsInput is the input schema for the get_lookups tool.
type LookupsInput struct {
	Handle   string `json:"handle" jsonschema:"session handle returned by connect"`
	Resource string `json:"resource" jsonschema:"resource or entity set"`
	Class    string `json:"class,omitempty" jsonschema:"RETS class, omitted for RESO"`
}

// LookupsOutput is the output schema for the get_lookups tool.
type LookupsOutput struct {
	Fields map[string]domain.LookupTable `json:"fields"`
}

// MetadataOutput is the output schema for the export_metadata tool.
type MetadataOutput struct {
	ContentType string               `json:"content_type"`
	Parts       []MetadataPartOutput `json:"parts"`
}

// MetadataPartOutput is one raw metadata document.
type MetadataPartOutput struct {
	Name string `json:"name"`
	Body string `json:"body"`
}

const defaultQueryLimit = 10

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "connect",
		Description: "Log in to the RETS or RESO server of a saved profile and open a session",
	}, s.handleConnect)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "disconnect",
		Description: "Log out and close a session",
	}, s.handleDisconnect)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_resources",
		Description: "Fetch server metadata and list resources, classes and fields",
	}, s.handleListResources)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "run_query",
		Description: "Search a resource and return matching rows",
	}, s.handleRunQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_lookups",
		Description: "Resolve the enumerated values of the lookup fields of a resource",
	}, s.handleGetLookups)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "export_metadata",
		Description: "Return the raw metadata documents exactly as the server sent them",
	}, s.handleExportMetadata)
}

func (s *Server) handleConnect(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ConnectInput,
) (*mcp.CallToolResult, ConnectOutput, error) {
	conn, err := s.ports.Profiles.Resolve(ctx, input.Profile)
	if err != nil {
		return nil, ConnectOutput{}, err
	}

	handle, err := s.ports.Adapter.Connect(ctx, conn)
	if err != nil {
		return nil, ConnectOutput{}, err
	}

	info, err := s.ports.Adapter.Session(handle)
	if err != nil {
		return nil, ConnectOutput{}, err
	}

	return nil, ConnectOutput{
		Handle:       string(info.Handle),
		Name:         info.Name,
		Protocol:     info.Protocol.DisplayName(),
		LoginURL:     info.LoginURL,
		Capabilities: info.Capabilities,
	}, nil
}

func (s *Server) handleDisconnect(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HandleInput,
) (*mcp.CallToolResult, DisconnectOutput, error) {
	handle := domain.SessionHandle(input.Handle)
	if _, err := s.ports.Adapter.Session(handle); err != nil {
		return nil, DisconnectOutput{}, err
	}
	s.ports.Adapter.Disconnect(ctx, handle)
	return nil, DisconnectOutput{Closed: true}, nil
}

func (s *Server) handleListResources(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HandleInput,
) (*mcp.CallToolResult, ResourcesOutput, error) {
	graph, err := s.ports.Adapter.ListResources(ctx, domain.SessionHandle(input.Handle))
	if err != nil {
		return nil, ResourcesOutput{}, err
	}
	return nil, resourcesOutput(graph), nil
}

func (s *Server) handleRunQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	spec := domain.QuerySpec{
		ResourceID: input.Resource,
		ClassID:    input.Class,
		Filter:     input.Filter,
		Select:     input.Select,
		Limit:      limit,
	}
	rs, err := s.ports.Adapter.RunQuery(ctx, domain.SessionHandle(input.Handle), spec)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Columns: rs.Columns,
		Rows:    make([]map[string]string, len(rs.Rows)),
		Count:   rs.Count,
		MaxRows: rs.MaxRows,
	}
	for i := range rs.Rows {
		output.Rows[i] = rs.Rows[i].Map()
	}
	for _, w := range rs.Warnings {
		output.Warnings = append(output.Warnings, w.String())
	}
	return nil, output, nil
}

func (s *Server) handleGetLookups(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LookupsInput,
) (*mcp.CallToolResult, LookupsOutput, error) {
	tables, err := s.ports.Adapter.GetLookups(ctx, domain.SessionHandle(input.Handle), input.Resource, input.Class)
	if err != nil {
		return nil, LookupsOutput{}, err
	}
	if tables == nil {
		tables = map[string]domain.LookupTable{}
	}
	return nil, LookupsOutput{Fields: tables}, nil
}

func (s *Server) handleExportMetadata(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HandleInput,
) (*mcp.CallToolResult, MetadataOutput, error) {
	raw, err := s.ports.Adapter.ExportMetadata(ctx, domain.SessionHandle(input.Handle))
	if err != nil {
		return nil, MetadataOutput{}, err
	}

	output := MetadataOutput{
		ContentType: raw.ContentType,
		Parts:       make([]MetadataPartOutput, len(raw.Parts)),
	}
	for i, part := range raw.Parts {
		output.Parts[i] = MetadataPartOutput{Name: part.Name, Body: string(part.Body)}
	}
	return nil, output, nil
}

func resourcesOutput(graph *domain.MetadataGraph) ResourcesOutput {
	output := ResourcesOutput{
		SystemID:   graph.System.ID,
		Version:    graph.System.Version,
		Incomplete: graph.HasGaps(),
		Resources:  make([]ResourceOutput, len(graph.Resources)),
	}
	for i := range graph.Resources {
		res := &graph.Resources[i]
		out := ResourceOutput{
			ID:       res.ID,
			Label:    res.Label,
			KeyField: res.KeyField,
			Fields:   fieldNames(res.Fields),
		}
		for _, c := range res.Classes {
			out.Classes = append(out.Classes, ClassOutput{ID: c.ID, Label: c.Label, Fields: fieldNames(c.Fields)})
			for _, g := range c.Gaps {
				out.Gaps = append(out.Gaps, gapString(g))
			}
		}
		for _, g := range res.Gaps {
			out.Gaps = append(out.Gaps, gapString(g))
		}
		output.Resources[i] = out
	}
	return output
}

func fieldNames(fields []domain.FieldDescriptor) []string {
	if len(fields) == 0 {
		return nil
	}
	names := make([]string, len(fields))
	for i := range fields {
		names[i] = fields[i].Name
	}
	return names
}

func gapString(g domain.MetadataGap) string {
	return fmt.Sprintf("%s %s: %s", g.Type, g.ID, g.Reason)
}
