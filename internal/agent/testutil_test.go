package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-brightspace/internal/brightspace"
	"github.com/giantswarm/mcp-brightspace/internal/logging"
)

const testTimeoutNormal = 5 * time.Second

// mockBrightspace serves the token route and a handful of lp/le routes.
type mockBrightspace struct {
	*httptest.Server
	mux *http.ServeMux

	mu       sync.Mutex
	requests []string
}

func newMockBrightspace(t *testing.T) *mockBrightspace {
	t.Helper()

	m := &mockBrightspace{mux: http.NewServeMux()}
	m.mux.HandleFunc("/d2l/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"access_token": "access-1", "token_type": "Bearer"})
	})
	m.mux.HandleFunc("/d2l/api/lp/1.46/users/whoami", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"Identifier": "42", "FirstName": "Ada", "LastName": "Lovelace"})
	})
	m.mux.HandleFunc("/d2l/api/lp/1.46/courses/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"Items":    []interface{}{map[string]interface{}{"Name": "Biology 101"}},
			"PageSize": r.URL.Query().Get("pageSize"),
		})
	})
	m.mux.HandleFunc("/d2l/api/lp/1.46/orgstructure/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"Items":         []interface{}{map[string]interface{}{"Name": "Biology 101", "Type": r.URL.Query().Get("orgUnitTypeId")}},
			"PagingInfo":    map[string]interface{}{"Bookmark": "", "HasMoreItems": false},
			"OrgUnitTypeId": r.URL.Query().Get("orgUnitTypeId"),
		})
	})
	m.mux.HandleFunc("/d2l/api/lp/1.46/users/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"Items": []interface{}{map[string]interface{}{"UserId": 42}}})
	})
	m.mux.HandleFunc("/d2l/api/le/1.74/6606/news/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{"Error": "method"})
			return
		}
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		body["Id"] = 7
		writeJSON(w, http.StatusOK, body)
	})
	m.mux.HandleFunc("/d2l/api/le/1.74/6606/news/7", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	m.mux.HandleFunc("/d2l/api/le/1.74/403/news/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{"Error": "forbidden"})
	})
	m.mux.HandleFunc("/d2l/api/versions/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []interface{}{
			map[string]interface{}{"ProductCode": "lp", "LatestVersion": "1.47", "SupportedVersions": []string{"1.45", "1.46", "1.47"}},
			map[string]interface{}{"ProductCode": "le", "LatestVersion": "1.75", "SupportedVersions": []string{"1.74", "1.75"}},
		})
	})
	m.mux.HandleFunc("/d2l/api/lp/1.46/upload", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"Error": err.Error()})
			return
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"Error": err.Error()})
			return
		}
		defer f.Close()
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(f)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"filename": header.Filename,
			"content":  buf.String(),
			"title":    r.FormValue("title"),
		})
	})
	m.mux.HandleFunc("/files/report.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	})

	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests = append(m.requests, r.Method+" "+r.URL.Path)
		m.mu.Unlock()
		m.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

func (m *mockBrightspace) seen() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func testLogger() *logging.Logger {
	return logging.NewLoggerWithWriter(false, false, false, &bytes.Buffer{})
}

func newTestSession(m *mockBrightspace) *brightspace.Session {
	return brightspace.NewSession(brightspace.SessionConfig{
		BaseURL:        m.URL,
		ClientID:       "client",
		ClientSecret:   "secret",
		RefreshToken:   "refresh",
		TokenURL:       m.URL + "/d2l/oauth2/token",
		GlobalTokenURL: m.URL + "/d2l/oauth2/token",
		LPCandidates:   []string{"1.45"},
		LECandidates:   []string{"1.73"},
		MaxRetries:     -1,
		Logger:         testLogger(),
	})
}

func newTestServer(t *testing.T, m *mockBrightspace) *MCPServer {
	t.Helper()
	srv, err := NewMCPServer(newTestSession(m), TransportStdio, testLogger(), "test")
	require.NoError(t, err)
	return srv
}

// callTool invokes a registered tool handler directly.
func callTool(t *testing.T, srv *MCPServer, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()

	var handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
	for _, def := range srv.toolDefs() {
		if def.tool.Name == name {
			handler = def.handler
		}
	}
	require.NotNil(t, handler, "tool %s is not registered", name)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeoutNormal)
	defer cancel()

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := handler(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

// decodeResult parses the JSON text of a successful tool result.
func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.False(t, result.IsError, "unexpected tool error: %s", resultText(result))

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(result)), &out))
	return out
}
