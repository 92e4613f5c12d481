// Package oauth mints and refreshes Brightspace OAuth 2.0 tokens for the API
// session: an authorization-code consent flow with a local callback server,
// optional self-signed TLS or an ngrok tunnel for the redirect, an atomic
// tokens file and a process lock around the running server.
package oauth

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config contains the settings of the Brightspace consent flow.
type Config struct {
	ClientID     string
	ClientSecret string

	// AuthHost is the Brightspace identity host, e.g. https://auth.brightspace.com.
	AuthHost string

	// Scopes are the OAuth scopes to request (default: core:*:* data:*:*)
	Scopes []string

	// RedirectURL is the callback URL registered with the Brightspace app.
	RedirectURL string

	// ListenAddr is where the callback server listens. It defaults to the
	// host and port of RedirectURL.
	ListenAddr string

	// AuthorizationTimeout bounds the wait for the browser callback.
	AuthorizationTimeout time.Duration

	TokensFile string
	LockFile   string

	// CertFile and KeyFile serve the callback over TLS when both are set.
	CertFile string
	KeyFile  string
}

// DefaultConfig returns a configuration with the Brightspace defaults.
func DefaultConfig() *Config {
	return &Config{
		AuthHost:             "https://auth.brightspace.com",
		Scopes:               []string{"core:*:*", "data:*:*"},
		RedirectURL:          "http://127.0.0.1:53682/callback",
		AuthorizationTimeout: 5 * time.Minute,
		TokensFile:           "tokens.json",
		LockFile:             ".tokens.lock",
	}
}

// SplitScopes splits a space separated scope string.
func SplitScopes(scope string) []string {
	return strings.Fields(scope)
}

// UseTLS reports whether the callback server serves HTTPS.
func (c *Config) UseTLS() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// Validate checks if the OAuth configuration is valid
func (c *Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("OAuth client ID and secret are required")
	}

	host, err := url.Parse(c.AuthHost)
	if err != nil || (host.Scheme != "https" && host.Scheme != "http") || host.Host == "" {
		return fmt.Errorf("invalid OAuth auth host: %q", c.AuthHost)
	}

	// RedirectURL is required for the callback server
	if c.RedirectURL == "" {
		return fmt.Errorf("OAuth redirect URL is required")
	}

	// Validate redirect URL and ensure HTTP is only used for localhost
	parsedURL, err := url.Parse(c.RedirectURL)
	if err != nil {
		return fmt.Errorf("invalid OAuth redirect URL: %w", err)
	}

	// Only allow HTTP for localhost/loopback addresses
	if parsedURL.Scheme == "http" {
		hostname := parsedURL.Hostname()
		// Note: Hostname() strips brackets from IPv6 addresses, so [::1] becomes ::1
		if hostname != "localhost" && hostname != "127.0.0.1" && hostname != "::1" {
			return fmt.Errorf("HTTP redirect URIs are only allowed for localhost/127.0.0.1/[::1], use HTTPS for other hosts")
		}
	} else if parsedURL.Scheme != "https" {
		return fmt.Errorf("redirect URI scheme must be http (localhost only) or https, got: %s", parsedURL.Scheme)
	}
	if parsedURL.Path == "" || parsedURL.Path == "/" {
		return fmt.Errorf("redirect URI needs a callback path, got: %s", c.RedirectURL)
	}

	if c.AuthorizationTimeout <= 0 {
		c.AuthorizationTimeout = 5 * time.Minute
	}

	// Set default scopes if none provided
	if len(c.Scopes) == 0 {
		c.Scopes = []string{"core:*:*", "data:*:*"}
	}

	return nil
}

// listenAddr returns ListenAddr or the host:port of the redirect URL.
func (c *Config) listenAddr() (string, error) {
	if c.ListenAddr != "" {
		return c.ListenAddr, nil
	}
	u, err := url.Parse(c.RedirectURL)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URI: %w", err)
	}
	if u.Port() == "" {
		return "", fmt.Errorf("redirect URI %s has no port; set a listen address", c.RedirectURL)
	}
	return u.Host, nil
}

func (c *Config) callbackPath() string {
	u, err := url.Parse(c.RedirectURL)
	if err != nil || u.Path == "" {
		return "/callback"
	}
	return u.Path
}
