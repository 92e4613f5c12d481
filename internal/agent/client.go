package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-brightspace/internal/logging"
)

// PassthroughEnv lists the variables forwarded to a spawned server.
var PassthroughEnv = []string{
	"BS_BASE_URL",
	"BS_CLIENT_ID",
	"BS_CLIENT_SECRET",
	"BS_REFRESH_TOKEN",
	"BS_TOKEN_URL",
	"BS_LP_VERSION",
	"BS_LE_VERSION",
	"BS_LP_VERSION_CANDIDATES",
	"BS_LE_VERSION_CANDIDATES",
	"BS_TIMEOUT",
	"BS_MAX_RETRIES",
}

// Client drives an MCP server over stdio, streamable HTTP or in process.
type Client struct {
	cfg                ClientConfig
	logger             *logging.Logger
	client             *client.Client
	toolCache          []mcp.Tool
	mu                 sync.RWMutex
	serverCapabilities *mcp.ServerCapabilities
}

// ClientConfig holds configuration for creating a new Client. Exactly one of
// Command, Endpoint or Server selects the transport.
type ClientConfig struct {
	Command string
	Args    []string
	// Env is appended to the inherited environment of the spawned command.
	Env []string

	Endpoint string

	Server *server.MCPServer

	Logger  *logging.Logger
	Version string
}

// NewClient creates a new client from a configuration
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		cfg:       cfg,
		logger:    cfg.Logger,
		toolCache: []mcp.Tool{},
	}
}

// EnvFromOS collects the set PassthroughEnv variables as KEY=VALUE pairs.
func EnvFromOS() []string {
	var env []string
	for _, key := range PassthroughEnv {
		if v, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+v)
		}
	}
	return env
}

// Run connects, performs the handshake and caches the tool list.
func (c *Client) Run(ctx context.Context) error {
	return c.connectAndInitialize(ctx)
}

// Reconnect drops the current connection and performs the handshake again.
func (c *Client) Reconnect(ctx context.Context) error {
	c.logger.Info("Attempting to reconnect to MCP server...")
	if c.client != nil {
		_ = c.client.Close()
	}
	return c.connectAndInitialize(ctx)
}

// Close releases the connection and stops a spawned server.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) dial(ctx context.Context) (*client.Client, error) {
	switch {
	case c.cfg.Server != nil:
		c.logger.Info("Connecting to in-process MCP server...")
		mcpClient, err := client.NewInProcessClient(c.cfg.Server)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-process client: %w", err)
		}
		if err := mcpClient.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start in-process client: %w", err)
		}
		return mcpClient, nil

	case c.cfg.Endpoint != "":
		c.logger.Info("Connecting to MCP server at %s using %s transport...", c.cfg.Endpoint, TransportStreamableHTTP)
		mcpClient, err := client.NewStreamableHttpClient(c.cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create streamable HTTP client: %w", err)
		}
		if err := mcpClient.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start streamable HTTP client: %w", err)
		}
		return mcpClient, nil

	case c.cfg.Command != "":
		c.logger.Info("Spawning MCP server: %s %s", c.cfg.Command, strings.Join(c.cfg.Args, " "))
		mcpClient, err := client.NewStdioMCPClient(c.cfg.Command, c.cfg.Env, c.cfg.Args...)
		if err != nil {
			return nil, fmt.Errorf("failed to spawn %s: %w", c.cfg.Command, err)
		}
		return mcpClient, nil

	default:
		return nil, errors.New("no MCP server command, endpoint or in-process server configured")
	}
}

func (c *Client) connectAndInitialize(ctx context.Context) error {
	mcpClient, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.client = mcpClient

	if err := c.initialize(ctx); err != nil {
		return err
	}

	if !c.ServerSupportsTools() {
		c.logger.Info("Server does not support tools capability")
		return nil
	}
	if err := c.listTools(ctx); err != nil {
		return fmt.Errorf("initial tool listing failed: %w", err)
	}
	return nil
}

// initialize performs the MCP protocol handshake
func (c *Client) initialize(ctx context.Context) error {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{
		Name:    clientName,
		Version: c.cfg.Version,
	}
	req.Params.Capabilities = mcp.ClientCapabilities{}

	c.logger.Request("initialize", req.Params)

	result, err := c.client.Initialize(ctx, req)
	if err != nil {
		c.logger.Error("Initialize failed: %v", err)
		return err
	}

	c.logger.Response("initialize", result)

	c.mu.Lock()
	c.serverCapabilities = &result.Capabilities
	c.mu.Unlock()

	return nil
}

func (c *Client) listTools(ctx context.Context) error {
	req := mcp.ListToolsRequest{}

	c.logger.Request("tools/list", req.Params)

	result, err := c.client.ListTools(ctx, req)
	if err != nil {
		c.logger.Error("ListTools failed: %v", err)
		return err
	}

	c.logger.Response("tools/list", result)

	c.mu.Lock()
	c.toolCache = result.Tools
	c.mu.Unlock()
	return nil
}

// Tools returns the tools listed during the handshake.
func (c *Client) Tools() []mcp.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]mcp.Tool(nil), c.toolCache...)
}

// ServerSupportsTools reports whether the server advertised the tools capability.
func (c *Client) ServerSupportsTools() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverCapabilities != nil && c.serverCapabilities.Tools != nil
}

// CallTool executes a tool with the given arguments, with reconnection logic.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	c.logger.Request("tools/call", req.Params)

	const maxRetries = 1
	var result *mcp.CallToolResult
	var err error

	for i := 0; i <= maxRetries; i++ {
		result, err = c.client.CallTool(ctx, req)
		if err == nil {
			c.logger.Response("tools/call", result)
			return result, nil
		}

		if shouldReconnect(err) && ctx.Err() == nil && i < maxRetries {
			c.logger.Error("Connection lost during tool call. Attempting to reconnect...")
			if reconnErr := c.Reconnect(ctx); reconnErr != nil {
				err = fmt.Errorf("failed to reconnect: %w", reconnErr)
				break
			}
			c.logger.Info("Reconnected successfully. Retrying tool call...")
			continue
		}
		break
	}

	c.logger.Error("CallTool failed: %v", err)
	return nil, err
}

// shouldReconnect reports errors that indicate a lost connection.
func shouldReconnect(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "connection reset by peer") ||
		strings.Contains(errMsg, "transport is closing") ||
		strings.Contains(errMsg, "broken pipe") ||
		strings.Contains(errMsg, "unexpected eof")
}

// resultText concatenates the text content of a tool result.
func resultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// smokeCall is one step of the smoke test.
type smokeCall struct {
	tool string
	args map[string]interface{}
}

// smokeCalls are read-only calls that any authorised account can make.
var smokeCalls = []smokeCall{
	{tool: toolWhoAmI},
	{tool: toolListCourses, args: map[string]interface{}{"page_size": 5}},
	{tool: toolListOrgUnits, args: map[string]interface{}{"org_unit_type_id": orgUnitTypeCourseOffering, "page_size": 5}},
	{tool: toolListUsers, args: map[string]interface{}{"page_size": 5}},
}

// Smoke prints the tool list and runs the smoke calls, writing each result to
// out. Tool errors are reported and counted; the returned error summarises them.
func (c *Client) Smoke(ctx context.Context, out io.Writer) error {
	fmt.Fprintln(out, "Tools exposed:")
	for _, tool := range c.Tools() {
		fmt.Fprintf(out, "- %s\n", tool.Name)
	}

	failed := 0
	for _, call := range smokeCalls {
		args := call.args
		if args == nil {
			args = map[string]interface{}{}
		}
		fmt.Fprintf(out, "\n==> %s %s\n", call.tool, compactArgs(args))

		result, err := c.CallTool(ctx, call.tool, args)
		if err != nil {
			return fmt.Errorf("%s: %w", call.tool, err)
		}
		text := resultText(result)
		if result.IsError {
			failed++
			fmt.Fprintf(out, "error: %s\n", text)
			continue
		}
		fmt.Fprintln(out, prettyText(text))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d smoke calls failed", failed, len(smokeCalls))
	}
	return nil
}

func compactArgs(args map[string]interface{}) string {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprint(args)
	}
	return string(data)
}

// prettyText indents text when it holds JSON.
func prettyText(text string) string {
	var v interface{}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return text
	}
	return logging.PrettyJSON(v)
}
