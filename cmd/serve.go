package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-brightspace/internal/agent"
	"github.com/giantswarm/mcp-brightspace/internal/brightspace"
	"github.com/giantswarm/mcp-brightspace/internal/logging"
)

var (
	serverTransport = agent.TransportStdio
	listenAddr      = ":8899"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Run the MCP server exposing the Brightspace API as tools.

With --server-transport stdio (default) the server speaks MCP over stdin and
stdout and logs to stderr. With --server-transport streamable-http it listens
on --listen-addr and serves MCP on the /mcp path.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serverTransport, "server-transport", agent.TransportStdio, "Transport protocol for the MCP server (stdio, streamable-http)")
	cmd.Flags().StringVar(&listenAddr, "listen-addr", ":8899", "Listen address for streamable-http server (path is fixed to /mcp)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx, cancel := commandContext(cmd, logger)
	defer cancel()

	session, err := newSession(logger)
	if err != nil {
		return err
	}
	return runMCPServer(ctx, session, logger)
}

// runMCPServer serves session until ctx is cancelled.
func runMCPServer(ctx context.Context, session *brightspace.Session, logger *logging.Logger) error {
	server, err := agent.NewMCPServer(session, serverTransport, logger, version)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	logger.Info("Starting Brightspace MCP server for %s (transport: %s)...", session.BaseURL(), serverTransport)
	if serverTransport == agent.TransportStreamableHTTP {
		addr := listenAddr
		if !strings.Contains(addr, ":") {
			addr = ":" + addr
		}
		logger.Info("Listening on %s%s", addr, "/mcp")
	}

	if err := server.Start(ctx, listenAddr); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
