package brightspace

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenHost serves scripted answers on the token endpoint candidates and
// records the order in which they were hit.
type tokenHost struct {
	*httptest.Server
	mu    sync.Mutex
	hits  []string
	forms []url.Values
}

func newTokenHost(t *testing.T, routes map[string]http.HandlerFunc) *tokenHost {
	t.Helper()
	h := &tokenHost{}
	h.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		h.mu.Lock()
		h.hits = append(h.hits, r.URL.Path)
		h.forms = append(h.forms, r.PostForm)
		h.mu.Unlock()
		if route, ok := routes[r.URL.Path]; ok {
			route(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(h.Close)
	return h
}

func (h *tokenHost) session() *Session {
	return NewSession(SessionConfig{
		BaseURL:        h.URL,
		ClientID:       "client-id",
		ClientSecret:   "client-secret",
		RefreshToken:   "refresh-token",
		TokenURL:       h.URL + "/override/token",
		GlobalTokenURL: h.URL + "/global/token",
	})
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(http.StatusText(code)))
	}
}

func issue(token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"access_token": token, "expires_in": 3600})
	}
}

func TestRefreshAdvancesPastMissingEndpoints(t *testing.T) {
	h := newTokenHost(t, map[string]http.HandlerFunc{
		"/override/token":     status(http.StatusNotFound),
		"/d2l/oauth2/token":   status(http.StatusGone),
		"/d2l/auth/api/token": issue("third"),
		"/global/token":       issue("global"),
	})
	s := h.session()

	token, err := s.refreshAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "third", token)
	assert.Equal(t, "third", s.cachedToken())
	assert.Equal(t, []string{"/override/token", "/d2l/oauth2/token", "/d2l/auth/api/token"}, h.hits)

	form := h.forms[2]
	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "refresh-token", form.Get("refresh_token"))
	assert.Equal(t, "client-id", form.Get("client_id"))
	assert.Equal(t, "client-secret", form.Get("client_secret"))
}

func TestRefreshTreatsRedirectAsWrongEndpoint(t *testing.T) {
	h := newTokenHost(t, map[string]http.HandlerFunc{
		"/override/token": func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/login", http.StatusFound)
		},
		"/d2l/oauth2/token": issue("second"),
		"/login":            issue("followed-redirect"),
	})

	token, err := h.session().refreshAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", token)
	assert.Equal(t, []string{"/override/token", "/d2l/oauth2/token"}, h.hits)
}

func TestRefreshStopsOnBadRequest(t *testing.T) {
	h := newTokenHost(t, map[string]http.HandlerFunc{
		"/override/token":   status(http.StatusBadRequest),
		"/d2l/oauth2/token": issue("never"),
	})

	_, err := h.session().refreshAccessToken(context.Background())
	require.Error(t, err)

	var aerr *AuthRefreshError
	require.True(t, errors.As(err, &aerr))
	assert.Contains(t, aerr.LastErr, "400")
	assert.Equal(t, []string{"/override/token"}, h.hits)
}

func TestRefreshReportsLastError(t *testing.T) {
	h := newTokenHost(t, map[string]http.HandlerFunc{
		"/override/token":     status(http.StatusInternalServerError),
		"/d2l/oauth2/token":   status(http.StatusNotFound),
		"/d2l/auth/api/token": issue(""),
		"/global/token":       status(http.StatusBadGateway),
	})
	s := h.session()

	_, err := s.refreshAccessToken(context.Background())
	require.Error(t, err)

	var aerr *AuthRefreshError
	require.True(t, errors.As(err, &aerr))
	assert.Len(t, aerr.Endpoints, 4)
	assert.Contains(t, aerr.LastErr, "502")
	assert.Len(t, h.hits, 4)
	assert.Empty(t, s.cachedToken())
}

func TestDoSurfacesRefreshFailure(t *testing.T) {
	h := newTokenHost(t, map[string]http.HandlerFunc{
		"/override/token": status(http.StatusBadRequest),
	})

	_, err := h.session().Do(context.Background(), Request{Method: http.MethodGet, Path: "/d2l/api/lp/1.46/users/whoami"})
	require.Error(t, err)

	var aerr *AuthRefreshError
	assert.True(t, errors.As(err, &aerr))
	assert.NotContains(t, h.hits, "/d2l/api/lp/1.46/users/whoami")
}

func TestTokenEndpoints(t *testing.T) {
	tests := []struct {
		name     string
		cfg      SessionConfig
		expected []string
	}{
		{
			name: "defaults",
			cfg:  SessionConfig{BaseURL: "https://school.example/"},
			expected: []string{
				"https://school.example/d2l/oauth2/token",
				"https://school.example/d2l/auth/api/token",
				DefaultGlobalTokenURL,
			},
		},
		{
			name: "override first and deduplicated",
			cfg: SessionConfig{
				BaseURL:  "https://school.example",
				TokenURL: DefaultGlobalTokenURL,
			},
			expected: []string{
				DefaultGlobalTokenURL,
				"https://school.example/d2l/oauth2/token",
				"https://school.example/d2l/auth/api/token",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewSession(tt.cfg).TokenEndpoints())
		})
	}
}
