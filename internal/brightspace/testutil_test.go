package brightspace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// mockBrightspace is a minimal Brightspace host: it mints access tokens on the
// tenant-local token route and serves whatever API handlers a test registers.
type mockBrightspace struct {
	*httptest.Server
	t   *testing.T
	mux *http.ServeMux

	mu            sync.Mutex
	tokenRequests int
	currentToken  string
	apiRequests   []*http.Request
}

func newMockBrightspace(t *testing.T) *mockBrightspace {
	t.Helper()

	m := &mockBrightspace{t: t, mux: http.NewServeMux()}
	m.mux.HandleFunc("/d2l/oauth2/token", m.handleToken)
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/d2l/oauth2/token" {
			m.mu.Lock()
			m.apiRequests = append(m.apiRequests, r.Clone(context.Background()))
			m.mu.Unlock()
		}
		m.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

func (m *mockBrightspace) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "refresh_token" {
		http.Error(w, `{"error":"invalid_request"}`, http.StatusBadRequest)
		return
	}
	m.mu.Lock()
	m.tokenRequests++
	m.currentToken = fmt.Sprintf("access-%d", m.tokenRequests)
	token := m.currentToken
	m.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

// handle registers an API handler on the mock host.
func (m *mockBrightspace) handle(pattern string, handler http.HandlerFunc) {
	m.mux.HandleFunc(pattern, handler)
}

// authorized reports whether r carries the most recently minted token.
func (m *mockBrightspace) authorized(r *http.Request) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentToken != "" && r.Header.Get("Authorization") == "Bearer "+m.currentToken
}

func (m *mockBrightspace) tokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokenRequests
}

func (m *mockBrightspace) requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request(nil), m.apiRequests...)
}

// session returns a Session bound to the mock host. Sleeps are recorded, not performed.
func (m *mockBrightspace) session(opts ...func(*SessionConfig)) (*Session, *sleepRecorder) {
	rec := &sleepRecorder{}
	cfg := SessionConfig{
		BaseURL:        m.URL,
		ClientID:       "client-id",
		ClientSecret:   "client-secret",
		RefreshToken:   "refresh-token",
		GlobalTokenURL: m.URL + "/global/token",
		Timeout:        testTimeoutNormal,
		Sleep:          rec.sleep,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewSession(cfg), rec
}

// sleepRecorder is an injectable clock for 429 handling.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sleeps = append(r.sleeps, d)
	return ctx.Err()
}

func (r *sleepRecorder) total() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum time.Duration
	for _, d := range r.sleeps {
		sum += d
	}
	return sum
}

// roundTripFunc adapts a function to http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

const testTimeoutNormal = 5 * time.Second
