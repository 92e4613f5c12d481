package oauth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// OAuth2 returns the golang.org/x/oauth2 configuration of the Brightspace
// identity host. Client credentials travel in the form body.
func (c *Config) OAuth2() *oauth2.Config {
	host := strings.TrimRight(c.AuthHost, "/")
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   host + "/oauth2/auth",
			TokenURL:  host + "/core/connect/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: c.RedirectURL,
		Scopes:      c.Scopes,
	}
}

// AuthCodeURL builds the consent URL. Consent is always prompted so that a
// refresh token is issued.
func (c *Config) AuthCodeURL(state string) string {
	return c.OAuth2().AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for tokens.
func (c *Config) Exchange(ctx context.Context, httpClient *http.Client, code string) (*oauth2.Token, error) {
	tok, err := c.OAuth2().Exchange(withClient(ctx, httpClient), code)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}
	if tok.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	return tok, nil
}

// Refresh mints a new access token from refreshToken. Brightspace rotates
// refresh tokens, so the returned token carries the one to keep.
func (c *Config) Refresh(ctx context.Context, httpClient *http.Client, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	src := c.OAuth2().TokenSource(withClient(ctx, httpClient), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	return tok, nil
}

func withClient(ctx context.Context, httpClient *http.Client) context.Context {
	if httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, httpClient)
}
