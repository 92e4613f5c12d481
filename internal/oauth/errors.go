package oauth

import "errors"

var (
	// ErrLocked means another server instance holds the tokens lock.
	ErrLocked = errors.New("another Brightspace MCP instance holds the lock")

	// ErrNoRefreshToken is returned when the token endpoint answers without a refresh token.
	ErrNoRefreshToken = errors.New("token response has no refresh_token")
)
