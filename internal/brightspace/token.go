package brightspace

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// maxTokenErrorBody bounds how much of a failed token response is kept for the error message.
const maxTokenErrorBody = 300

// TokenEndpoints lists the token endpoint candidates in the order they are
// tried: the configured override, the two tenant-local routes and the global
// Brightspace endpoint. Duplicates and empty entries are dropped.
func (s *Session) TokenEndpoints() []string {
	candidates := []string{
		s.tokenURL,
		s.baseURL + "/d2l/oauth2/token",
		s.baseURL + "/d2l/auth/api/token",
		s.globalTokenURL,
	}
	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// tokenOutcome is the verdict on one token endpoint.
type tokenOutcome int

const (
	tokenAccepted tokenOutcome = iota
	tokenSkip                  // endpoint absent or moved: try the next one
	tokenRejected              // credentials refused: stop
	tokenFailed                // unexpected answer: remember and try the next one
)

// refreshAccessToken exchanges the refresh token for a new access token,
// trying each endpoint of TokenEndpoints in turn.
func (s *Session) refreshAccessToken(ctx context.Context) (string, error) {
	endpoints := s.TokenEndpoints()
	lastErr := "no token endpoint responded"

	for _, endpoint := range endpoints {
		token, outcome, detail := s.tryTokenEndpoint(ctx, endpoint)
		switch outcome {
		case tokenAccepted:
			s.storeToken(token)
			s.logger.Debug("access token refreshed via %s", endpoint)
			return token, nil
		case tokenSkip:
			s.logger.Debug("token endpoint %s unavailable: %s", endpoint, detail)
			lastErr = detail
		case tokenRejected:
			s.logger.Warning("token endpoint %s rejected refresh: %s", endpoint, detail)
			return "", &AuthRefreshError{Endpoints: endpoints, LastErr: detail}
		default:
			s.logger.Debug("token endpoint %s failed: %s", endpoint, detail)
			lastErr = detail
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("token refresh aborted: %w", ctx.Err())
		}
	}

	return "", &AuthRefreshError{Endpoints: endpoints, LastErr: lastErr}
}

func (s *Session) tryTokenEndpoint(ctx context.Context, endpoint string) (string, tokenOutcome, string) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", s.refreshToken)
	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", tokenFailed, fmt.Sprintf("%s: %v", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.authClient.Do(req)
	if err != nil {
		return "", tokenFailed, fmt.Sprintf("%s: %v", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", tokenFailed, fmt.Sprintf("%s: failed to read response: %v", endpoint, err)
	}

	detail := fmt.Sprintf("%s: %d %s", endpoint, resp.StatusCode, truncate(string(body), maxTokenErrorBody))
	switch {
	case resp.StatusCode == http.StatusOK:
		token := gjson.GetBytes(body, "access_token")
		if token.Type != gjson.String || token.String() == "" {
			return "", tokenFailed, fmt.Sprintf("%s: response has no access_token", endpoint)
		}
		return token.String(), tokenAccepted, ""
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return "", tokenSkip, detail
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return "", tokenSkip, detail
	case resp.StatusCode == http.StatusBadRequest:
		return "", tokenRejected, detail
	default:
		return "", tokenFailed, detail
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
