// Package mcp provides an MCP (Model Context Protocol) server adapter for mlsq.
// It lets AI assistants open RETS and RESO sessions from saved profiles and
// run metadata, lookup and search operations against them.
package mcp

import "errors"

var (
	// ErrMissingAdapter is returned when the protocol adapter is not provided.
	ErrMissingAdapter = errors.New("mcp: protocol adapter is required")

	// ErrMissingProfileService is returned when the profile service is not provided.
	ErrMissingProfileService = errors.New("mcp: profile service is required")
)
