package oauth

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/giantswarm/mcp-brightspace/internal/logging"
)

const testTimeoutNormal = 2 * time.Second

// mockIdentity is a minimal Brightspace identity host: it issues codes on
// /oauth2/auth and tokens on /core/connect/token, rotating refresh tokens.
//
// SECURITY NOTE: This is a TEST-ONLY implementation.
type mockIdentity struct {
	*httptest.Server
	t *testing.T

	mu            sync.Mutex
	issuedCodes   map[string]string // code -> redirect_uri
	refreshTokens map[string]bool
	tokenRequests []url.Values
	authRequests  []url.Values
	counter       int

	// omitRefresh makes the code grant answer without a refresh token.
	omitRefresh bool
}

func newMockIdentity(t *testing.T) *mockIdentity {
	t.Helper()

	m := &mockIdentity{
		t:             t,
		issuedCodes:   make(map[string]string),
		refreshTokens: make(map[string]bool),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/auth", m.handleAuthorize)
	mux.HandleFunc("/core/connect/token", m.handleToken)
	m.Server = httptest.NewServer(mux)
	t.Cleanup(m.Close)
	return m
}

func (m *mockIdentity) config(redirect string) *Config {
	cfg := DefaultConfig()
	cfg.ClientID = "client-id"
	cfg.ClientSecret = "client-secret"
	cfg.AuthHost = m.URL
	cfg.RedirectURL = redirect
	cfg.AuthorizationTimeout = testTimeoutNormal
	return cfg
}

// seedRefreshToken registers rt as valid.
func (m *mockIdentity) seedRefreshToken(rt string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshTokens[rt] = true
}

func (m *mockIdentity) tokenRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokenRequests)
}

func (m *mockIdentity) lastAuthRequest() url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.authRequests) == 0 {
		return nil
	}
	return m.authRequests[len(m.authRequests)-1]
}

func (m *mockIdentity) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	redirectURI := query.Get("redirect_uri")
	if query.Get("client_id") == "" || redirectURI == "" || query.Get("response_type") != "code" {
		http.Error(w, "invalid_request", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.authRequests = append(m.authRequests, query)
	m.counter++
	code := fmt.Sprintf("AUTH_CODE_%d", m.counter)
	m.issuedCodes[code] = redirectURI
	m.mu.Unlock()

	target, err := url.Parse(redirectURI)
	if err != nil {
		http.Error(w, "invalid_redirect_uri", http.StatusBadRequest)
		return
	}
	params := url.Values{}
	params.Set("code", code)
	params.Set("state", query.Get("state"))
	target.RawQuery = params.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (m *mockIdentity) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method_not_allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid_request", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenRequests = append(m.tokenRequests, r.PostForm)

	if r.PostForm.Get("client_id") != "client-id" || r.PostForm.Get("client_secret") != "client-secret" {
		writeTokenError(w, "invalid_client")
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		redirect, ok := m.issuedCodes[r.PostForm.Get("code")]
		if !ok || redirect != r.PostForm.Get("redirect_uri") {
			writeTokenError(w, "invalid_grant")
			return
		}
		delete(m.issuedCodes, r.PostForm.Get("code"))
	case "refresh_token":
		rt := r.PostForm.Get("refresh_token")
		if !m.refreshTokens[rt] {
			writeTokenError(w, "invalid_grant")
			return
		}
		delete(m.refreshTokens, rt)
	default:
		writeTokenError(w, "unsupported_grant_type")
		return
	}

	m.counter++
	resp := map[string]interface{}{
		"access_token": fmt.Sprintf("ACCESS_TOKEN_%d", m.counter),
		"token_type":   "Bearer",
		"expires_in":   3600,
		"scope":        "core:*:*",
	}
	if !m.omitRefresh || r.PostForm.Get("grant_type") == "refresh_token" {
		rt := fmt.Sprintf("REFRESH_TOKEN_%d", m.counter)
		m.refreshTokens[rt] = true
		resp["refresh_token"] = rt
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func writeTokenError(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

// localListener returns a loopback listener and the matching redirect URI.
func localListener(t *testing.T) (net.Listener, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	return ln, "http://" + ln.Addr().String() + "/callback"
}

// followBrowser plays the user: it visits the consent URL and follows the
// redirect to the callback server.
func followBrowser(t *testing.T) func(string) error {
	return func(authURL string) error {
		client := &http.Client{Timeout: testTimeoutNormal}
		resp, err := client.Get(authURL)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("callback answered %d", resp.StatusCode)
		}
		return nil
	}
}

func testLogger() *logging.Logger {
	return logging.NewLoggerWithWriter(true, false, false, io.Discard)
}
