// Package brightspace implements a resilient client for the Brightspace (D2L Valence) REST API.
//
// A Session owns the access token and performs authenticated calls against one
// Brightspace host. It refreshes the token on 401, backs off on 429 and classifies
// response bodies by content type. On top of the core request method it offers a
// bookmark pagination walker, a multi-version path dispatcher for the "lp" and "le"
// API families, multipart upload and base64 download helpers, and thin wrappers for
// frequently used routes.
package brightspace

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/giantswarm/mcp-brightspace/internal/logging"
)

// Defaults applied by NewSession when the corresponding SessionConfig field is empty.
const (
	DefaultLPVersion      = "1.46"
	DefaultLEVersion      = "1.74"
	DefaultTimeout        = 30 * time.Second
	DefaultMaxRetries     = 3
	DefaultGlobalTokenURL = "https://auth.brightspace.com/core/connect/token"
)

// SessionConfig holds everything needed to construct a Session.
type SessionConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RefreshToken string

	// TokenURL is tried before the tenant-local and global token endpoints.
	TokenURL string
	// GlobalTokenURL is the last token endpoint candidate.
	GlobalTokenURL string

	LPVersion    string
	LEVersion    string
	LPCandidates []string
	LECandidates []string

	Timeout time.Duration
	// MaxRetries bounds 401, 429 and transport retries together. A negative
	// value means no retries; zero selects DefaultMaxRetries.
	MaxRetries int

	HTTPClient *http.Client
	Logger     *logging.Logger

	// Sleep waits before a 429 retry. It defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Session is an authenticated handle to one Brightspace host.
//
// A Session is safe for concurrent use. Concurrent refreshes are not
// serialised: the last token written wins, and a stale token only costs an
// extra 401 and refresh.
type Session struct {
	baseURL        string
	clientID       string
	clientSecret   string
	refreshToken   string
	tokenURL       string
	globalTokenURL string

	lpVersion    string
	leVersion    string
	lpCandidates []string
	leCandidates []string

	maxRetries int
	httpClient *http.Client
	authClient *http.Client
	logger     *logging.Logger
	sleep      func(ctx context.Context, d time.Duration) error

	mu          sync.RWMutex
	accessToken string
}

// NewSession creates a Session from cfg, filling in defaults.
func NewSession(cfg SessionConfig) *Session {
	if cfg.LPVersion == "" {
		cfg.LPVersion = DefaultLPVersion
	}
	if cfg.LEVersion == "" {
		cfg.LEVersion = DefaultLEVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = DefaultMaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if cfg.GlobalTokenURL == "" {
		cfg.GlobalTokenURL = DefaultGlobalTokenURL
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if cfg.Logger != nil {
		transport = newTracingRoundTripper(transport, cfg.Logger)
	}

	httpClient := &http.Client{
		Transport:     transport,
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
		Timeout:       cfg.Timeout,
	}
	// Token endpoints answer a wrong tenant path with a redirect; keep it visible.
	authClient := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &Session{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		clientID:       cfg.ClientID,
		clientSecret:   cfg.ClientSecret,
		refreshToken:   cfg.RefreshToken,
		tokenURL:       cfg.TokenURL,
		globalTokenURL: cfg.GlobalTokenURL,
		lpVersion:      cfg.LPVersion,
		leVersion:      cfg.LEVersion,
		lpCandidates:   cleanVersions(cfg.LPCandidates),
		leCandidates:   cleanVersions(cfg.LECandidates),
		maxRetries:     cfg.MaxRetries,
		httpClient:     httpClient,
		authClient:     authClient,
		logger:         cfg.Logger,
		sleep:          cfg.Sleep,
	}
}

// BaseURL returns the host URL without a trailing slash.
func (s *Session) BaseURL() string {
	return s.baseURL
}

// MaxRetries returns the shared retry budget of a single request.
func (s *Session) MaxRetries() int {
	return s.maxRetries
}

func (s *Session) cachedToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *Session) storeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
}

// InvalidateToken drops the cached access token; the next call refreshes it.
func (s *Session) InvalidateToken() {
	s.storeToken("")
}

// accessTokenFor returns the cached token or performs a refresh.
func (s *Session) accessTokenFor(ctx context.Context) (string, error) {
	if tok := s.cachedToken(); tok != "" {
		return tok, nil
	}
	return s.refreshAccessToken(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func cleanVersions(versions []string) []string {
	out := make([]string, 0, len(versions))
	for _, v := range versions {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
