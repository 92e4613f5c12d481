package oauth

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/giantswarm/mcp-brightspace/internal/logging"
)

// callbackResult is what the redirect handler saw.
type callbackResult struct {
	code  string
	state string
	err   error
}

// newCallbackMux serves the redirect path only. The first result wins; later
// hits still get a page but are not forwarded.
func newCallbackMux(path string, results chan<- callbackResult) *http.ServeMux {
	// Create isolated ServeMux to avoid conflicts with global http.DefaultServeMux
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		// Only accept GET requests (standard for OAuth callbacks)
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			deliver(results, callbackResult{err: fmt.Errorf("authorization error: %s - %s", e, q.Get("error_description"))})
			http.Error(w, "Authorization failed", http.StatusBadRequest)
			return
		}
		if q.Get("code") == "" {
			http.Error(w, "Missing authorization code", http.StatusBadRequest)
			return
		}

		deliver(results, callbackResult{code: q.Get("code"), state: q.Get("state")})
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><h1>Authorization successful</h1><p>You can close this tab.</p></body></html>`))
	})
	return mux
}

func deliver(results chan<- callbackResult, res callbackResult) {
	select {
	case results <- res:
	default:
	}
}

// Flow runs the browser consent for one authorization code.
type Flow struct {
	Config *Config
	Logger *logging.Logger
	// HTTPClient is used for the code exchange.
	HTTPClient *http.Client
	// Browser opens the consent URL. It defaults to OpenBrowser.
	Browser func(url string) error
	// Listener overrides the callback listener, mostly for tests.
	Listener net.Listener
}

// Authorize opens the consent page, waits for the redirect and exchanges the code.
func (f *Flow) Authorize(ctx context.Context) (*Token, error) {
	cfg := f.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ln, err := f.listen()
	if err != nil {
		return nil, err
	}
	if cfg.UseTLS() {
		tlsCfg, err := tlsConfigFor(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			ln.Close()
			return nil, err
		}
		ln = tls.NewListener(ln, tlsCfg)
	}

	results := make(chan callbackResult, 1)
	errChan := make(chan error, 1)

	// Create server with timeouts
	server := &http.Server{
		Handler:      newCallbackMux(cfg.callbackPath(), results),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("callback server error: %w", err)
		}
	}()
	defer server.Shutdown(context.Background())

	state := uuid.NewString()
	authURL := cfg.AuthCodeURL(state)

	f.Logger.Info("Redirect URI must be registered exactly as: %s", cfg.RedirectURL)
	f.Logger.Info("Opening browser for authorization...")
	browser := f.Browser
	if browser == nil {
		browser = OpenBrowser
	}
	if err := browser(authURL); err != nil {
		f.Logger.Warning("Could not open browser automatically: %v", err)
		f.Logger.Info("Please open this URL in your browser:")
		f.Logger.Info("%s", authURL)
	}

	f.Logger.Info("Waiting for authorization...")
	var res callbackResult
	select {
	case res = <-results:
	case err := <-errChan:
		return nil, err
	case <-time.After(cfg.AuthorizationTimeout):
		return nil, fmt.Errorf("authorization timeout")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.err != nil {
		return nil, res.err
	}

	// Verify state
	if res.state != state {
		return nil, fmt.Errorf("state mismatch (CSRF protection)")
	}

	f.Logger.Success("Authorization code received")
	f.Logger.Info("Exchanging code for tokens...")
	tok, err := cfg.Exchange(ctx, f.HTTPClient, res.code)
	if err != nil {
		return nil, err
	}
	f.Logger.Success("Tokens obtained")
	return FromOAuth2(tok), nil
}

func (f *Flow) listen() (net.Listener, error) {
	if f.Listener != nil {
		return f.Listener, nil
	}
	addr, err := f.Config.listenAddr()
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return ln, nil
}

// tlsConfigFor loads the callback server certificate pair.
func tlsConfigFor(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS key pair: %w", err)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}, nil
}
