package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for mlsq resources.
	uriScheme = "mlsq://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "profiles",
		Name:        "profiles",
		Description: "Saved connection profiles (secrets are never included)",
		MIMEType:    "application/json",
	}, s.handleProfilesResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sessions",
		Name:        "sessions",
		Description: "Sessions currently open on this server",
		MIMEType:    "application/json",
	}, s.handleSessionsResource)
}

type profileInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Protocol string `json:"protocol"`
	BaseURL  string `json:"base_url"`
	Auth     string `json:"auth"`
}

// handleProfilesResource returns the saved profiles.
func (s *Server) handleProfilesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	profiles, err := s.ports.Profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}

	infos := make([]profileInfo, len(profiles))
	for i := range profiles {
		infos[i] = profileInfo{
			ID:       profiles[i].ID,
			Name:     profiles[i].Name,
			Protocol: string(profiles[i].Protocol),
			BaseURL:  profiles[i].BaseURL,
			Auth:     string(profiles[i].Auth),
		}
	}
	return jsonResource(req.Params.URI, infos)
}

// handleSessionsResource returns the open sessions.
func (s *Server) handleSessionsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	return jsonResource(req.Params.URI, s.ports.Adapter.Sessions())
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
