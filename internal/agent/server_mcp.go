package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-brightspace/internal/brightspace"
	"github.com/giantswarm/mcp-brightspace/internal/logging"
)

const serverInstructions = `Tools for the Brightspace (D2L Valence) REST API.

Use bs.api_call for any route under /d2l/api/. bs.lp and bs.le take only the
path tail and try the configured API versions until one answers. List routes
page with bookmarks: pass the returned bookmark back, or use bs.paginate to
walk several pages at once. HTTP failures of bs.api_call are reported in the
"status" field; the named wrappers (bs.whoami, bs.list_courses, ...) fail the
call instead.`

// MCPServer exposes a Brightspace session as MCP tools.
type MCPServer struct {
	session         *brightspace.Session
	logger          *logging.Logger
	mcpServer       *server.MCPServer
	serverTransport string
}

// NewMCPServer creates a new MCP server that exposes the session
func NewMCPServer(session *brightspace.Session, serverTransport string, logger *logging.Logger, version string) (*MCPServer, error) {
	switch serverTransport {
	case TransportStdio, TransportStreamableHTTP:
	default:
		return nil, fmt.Errorf("unsupported server transport: %s", serverTransport)
	}

	mcpServer := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions),
	)

	ms := &MCPServer{
		session:         session,
		logger:          logger,
		mcpServer:       mcpServer,
		serverTransport: serverTransport,
	}

	for _, def := range ms.toolDefs() {
		mcpServer.AddTool(def.tool, def.handler)
	}

	return ms, nil
}

// Start serves until ctx is cancelled or the transport fails.
func (m *MCPServer) Start(ctx context.Context, listenAddr string) error {
	switch m.serverTransport {
	case TransportStdio:
		stdio := server.NewStdioServer(m.mcpServer)
		err := stdio.Listen(ctx, os.Stdin, os.Stdout)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case TransportStreamableHTTP:
		httpServer := server.NewStreamableHTTPServer(
			m.mcpServer,
			server.WithEndpointPath(endpointPath),
		)
		errChan := make(chan error, 1)
		go func() {
			errChan <- httpServer.Start(listenAddr)
		}()
		select {
		case err := <-errChan:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			return httpServer.Shutdown(context.Background())
		}
	default:
		return fmt.Errorf("unsupported server transport: %s", m.serverTransport)
	}
}

// ToolNames returns the registered tool names in registration order.
func (m *MCPServer) ToolNames() []string {
	defs := m.toolDefs()
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		names = append(names, def.tool.Name)
	}
	return names
}
