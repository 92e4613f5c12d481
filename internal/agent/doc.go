// Package agent exposes the Brightspace request pipeline to MCP clients.
//
// # Key Components
//
//   - MCPServer: registers the bs.* tools on an mcp-go server and serves them
//     over stdio or streamable-http
//   - REPL: interactive shell over the same session, for exploring routes by hand
//   - Client: stdio MCP client that spawns the server and runs the smoke sequence
//
// Tool results are JSON text. Pipeline failures (refresh exhausted, transport
// errors, remote errors raised by wrappers) become tool errors; plain API
// calls report any HTTP status in the result instead.
package agent
