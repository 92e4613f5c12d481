package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/giantswarm/mcp-brightspace/internal/logging"
)

// Bootstrapper keeps a usable token pair in the tokens file: it refreshes the
// stored refresh token when there is one and falls back to browser consent.
type Bootstrapper struct {
	Config     *Config
	Logger     *logging.Logger
	HTTPClient *http.Client

	// Tunnel, when set, exposes the callback through ngrok and registers the
	// public https URL as redirect URI.
	Tunnel *TunnelOptions

	// Confirm is shown the redirect URI before the browser opens, so the
	// operator can register it with the Brightspace app.
	Confirm func(redirectURI string) error

	// Browser overrides OpenBrowser.
	Browser func(url string) error
}

// Tokens returns a fresh token pair and persists it.
func (b *Bootstrapper) Tokens(ctx context.Context) (*Token, error) {
	tok, err := b.RefreshStored(ctx)
	if err == nil {
		return tok, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		b.Logger.Info("No tokens file at %s, starting browser consent", b.Config.TokensFile)
	} else {
		b.Logger.Warning("Stored refresh token unusable (%v), starting browser consent", err)
	}
	return b.Mint(ctx)
}

// RefreshStored exchanges the refresh token of the tokens file for a new pair
// and writes it back.
func (b *Bootstrapper) RefreshStored(ctx context.Context) (*Token, error) {
	stored, err := LoadTokens(b.Config.TokensFile)
	if err != nil {
		return nil, err
	}
	if stored.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	fresh, err := b.Config.Refresh(ctx, b.HTTPClient, stored.RefreshToken)
	if err != nil {
		return nil, err
	}
	tok := FromOAuth2(fresh)
	if err := SaveTokens(b.Config.TokensFile, tok); err != nil {
		return nil, err
	}
	b.Logger.Success("Refreshed tokens in %s", b.Config.TokensFile)
	return tok, nil
}

// Mint runs the browser consent and writes the resulting pair.
func (b *Bootstrapper) Mint(ctx context.Context) (*Token, error) {
	cfg := *b.Config

	if b.Tunnel != nil {
		b.Logger.Info("Starting ngrok tunnel...")
		opts := *b.Tunnel
		opts.Logger = b.Logger
		tunnel, err := StartTunnel(ctx, opts)
		if err != nil {
			return nil, err
		}
		defer tunnel.Close()
		cfg.RedirectURL = strings.TrimRight(tunnel.PublicURL, "/") + cfg.callbackPath()
		// The tunnel terminates TLS; the local listener stays plain HTTP.
		cfg.CertFile, cfg.KeyFile = "", ""
	}

	if cfg.UseTLS() {
		created, err := EnsureSelfSigned(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		if created {
			b.Logger.Info("Generated self-signed certificate %s", cfg.CertFile)
		}
	}

	if b.Confirm != nil {
		if err := b.Confirm(cfg.RedirectURL); err != nil {
			return nil, fmt.Errorf("aborted: %w", err)
		}
	}

	flow := &Flow{Config: &cfg, Logger: b.Logger, HTTPClient: b.HTTPClient, Browser: b.Browser}
	tok, err := flow.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	if err := SaveTokens(cfg.TokensFile, tok); err != nil {
		return nil, err
	}
	b.Logger.Success("%s written", cfg.TokensFile)
	return tok, nil
}
