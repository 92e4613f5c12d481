package oauth

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is the display summary of a Brightspace access token.
type TokenInfo struct {
	Subject   string
	Issuer    string
	Tenant    string
	Scopes    []string
	ExpiresAt time.Time
	Claims    jwt.MapClaims
}

// Expired reports whether the token expired before now.
func (i *TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// DescribeToken decodes the claims of a JWT access token without verifying
// its signature. It is for display only and must not be used for trust decisions.
func DescribeToken(accessToken string) (*TokenInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}

	info := &TokenInfo{Claims: claims}
	info.Subject, _ = claims.GetSubject()
	info.Issuer, _ = claims.GetIssuer()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	if tenant, ok := claims["tenantid"].(string); ok {
		info.Tenant = tenant
	}

	switch scope := claims["scope"].(type) {
	case string:
		info.Scopes = strings.Fields(scope)
	case []interface{}:
		for _, s := range scope {
			if str, ok := s.(string); ok {
				info.Scopes = append(info.Scopes, str)
			}
		}
	}
	sort.Strings(info.Scopes)
	return info, nil
}
