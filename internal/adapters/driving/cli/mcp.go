package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mlsq/internal/adapters/driving/mcp"
	"github.com/custodia-labs/mlsq/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes saved profiles and tools to connect, list resources,
run queries, resolve lookups and export metadata. Sessions opened by a
client stay open until it disconnects them or the server stops.

By default the server communicates over stdio. Use --port to serve over
HTTP instead.

Examples:
  # Stdio mode (default)
  mlsq mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  mlsq mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "mlsq": {
        "command": "/path/to/mlsq",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Adapter:  adapterService,
		Profiles: profileService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if watchProfiles != nil {
		err := watchProfiles(ctx, func() {
			logger.Info("profiles reloaded")
		})
		if err != nil {
			logger.Warn("profiles will not reload: %v", err)
		}
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
