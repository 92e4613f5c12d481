package agent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/giantswarm/mcp-brightspace/internal/brightspace"
)

// callResult is the answer of the generic call tools.
type callResult struct {
	Status  int               `json:"status"`
	Data    brightspace.Body  `json:"data"`
	Headers map[string]string `json:"headers"`
}

func newCallResult(resp *brightspace.Response) *callResult {
	return &callResult{Status: resp.StatusCode, Data: resp.Body, Headers: resp.Headers()}
}

// invoke decodes the call arguments into args, runs fn and renders its result
// as JSON text. Errors from either step become tool errors.
func (m *MCPServer) invoke(ctx context.Context, request mcp.CallToolRequest, args interface{}, fn func(ctx context.Context) (interface{}, error)) (*mcp.CallToolResult, error) {
	name := request.Params.Name
	raw := argsOf(request)
	m.logger.Request(name, raw)

	if args != nil {
		if err := decodeArgs(raw, args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	result, err := fn(ctx)
	if err != nil {
		m.logger.Error("%s failed: %v", name, err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	m.logger.Response(name, result)

	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

type apiCallArgs struct {
	Method  string                 `json:"method" validate:"required"`
	Path    string                 `json:"path" validate:"required"`
	Params  map[string]interface{} `json:"params"`
	Body    interface{}            `json:"body"`
	Headers map[string]string      `json:"headers"`
}

// handleAPICall serves bs.api_call and bs.request.
func (m *MCPServer) handleAPICall(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args apiCallArgs
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		resp, err := m.session.Do(ctx, brightspace.Request{
			Method:           args.Method,
			Path:             args.Path,
			Params:           args.Params,
			Body:             args.Body,
			Headers:          args.Headers,
			ExpectStructured: true,
		})
		if err != nil {
			return nil, err
		}
		return newCallResult(resp), nil
	})
}

// handleFamily serves bs.lp and bs.le.
func (m *MCPServer) handleFamily(family brightspace.Family) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Method   string                 `json:"method" validate:"required"`
			Tail     string                 `json:"tail" validate:"required"`
			Params   map[string]interface{} `json:"params"`
			Body     interface{}            `json:"body"`
			Headers  map[string]string      `json:"headers"`
			Versions []string               `json:"versions"`
		}
		return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
			resp, err := m.session.Dispatch(ctx, family, brightspace.Request{
				Method:           args.Method,
				Path:             args.Tail,
				Params:           args.Params,
				Body:             args.Body,
				Headers:          args.Headers,
				ExpectStructured: true,
			}, args.Versions)
			if err != nil {
				return nil, err
			}
			return newCallResult(resp), nil
		})
	}
}

func (m *MCPServer) handlePaginate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Path     string                 `json:"path" validate:"required"`
		PageSize int                    `json:"page_size"`
		MaxPages int                    `json:"max_pages"`
		Params   map[string]interface{} `json:"params"`
	}
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.Paginate(ctx, args.Path, brightspace.PageOptions{
			PageSize: args.PageSize,
			MaxPages: args.MaxPages,
			Params:   args.Params,
		})
	})
}

func (m *MCPServer) handleBuildPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Service string `json:"service" validate:"required"`
		Tail    string `json:"tail" validate:"required"`
		Version string `json:"version"`
	}
	return m.invoke(ctx, request, &args, func(context.Context) (interface{}, error) {
		family, err := brightspace.ParseFamily(args.Service)
		if err != nil {
			return nil, err
		}
		return map[string]string{"path": m.session.Path(family, args.Tail, args.Version)}, nil
	})
}

type uploadFile struct {
	Filename   string `json:"filename" validate:"required"`
	ContentB64 string `json:"content_b64"`
	MIME       string `json:"mime"`
}

func (m *MCPServer) handleUploadMultipart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Path    string                `json:"path" validate:"required"`
		Fields  map[string]string     `json:"fields"`
		Files   map[string]uploadFile `json:"files" validate:"dive"`
		Headers map[string]string     `json:"headers"`
	}
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		files := make(map[string]brightspace.File, len(args.Files))
		for name, f := range args.Files {
			content, err := decodeBase64(f.ContentB64)
			if err != nil {
				return map[string]interface{}{
					"status": 400,
					"error":  fmt.Sprintf("Invalid base64 for file '%s': %v", name, err),
				}, nil
			}
			mime := f.MIME
			if mime == "" {
				mime = defaultUploadMIME
			}
			files[name] = brightspace.File{Filename: f.Filename, Content: content, ContentType: mime}
		}

		resp, err := m.session.UploadMultipart(ctx, args.Path, args.Fields, files, args.Headers)
		if err != nil {
			return nil, err
		}
		return newCallResult(resp), nil
	})
}

// decodeBase64 accepts standard base64 with or without padding and ignores
// embedded whitespace.
func decodeBase64(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func (m *MCPServer) handleDownloadB64(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Path   string                 `json:"path" validate:"required"`
		Params map[string]interface{} `json:"params"`
	}
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		return m.session.DownloadBase64(ctx, args.Path, args.Params)
	})
}

func (m *MCPServer) handleDiscoverVersions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Family string `json:"family"`
	}
	return m.invoke(ctx, request, &args, func(ctx context.Context) (interface{}, error) {
		products, err := m.session.DiscoverVersions(ctx)
		if err != nil {
			return nil, err
		}
		if args.Family == "" {
			return products, nil
		}
		family, err := brightspace.ParseFamily(args.Family)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"family":   family,
			"versions": brightspace.VersionsFor(products, family),
		}, nil
	})
}
