package brightspace

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidArgument is returned, wrapped, for malformed input detected before any I/O.
var ErrInvalidArgument = errors.New("invalid argument")

func invalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// AuthRefreshError reports that no token endpoint accepted the refresh token.
type AuthRefreshError struct {
	Endpoints []string
	LastErr   string
}

func (e *AuthRefreshError) Error() string {
	return fmt.Sprintf("failed to refresh access token (tried %s): last error: %s",
		strings.Join(e.Endpoints, ", "), e.LastErr)
}

// TransportError wraps a network level failure that survived the retry budget.
type TransportError struct {
	Method   string
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s failed after %d attempt(s): %v", e.Method, e.URL, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError is raised by convenience wrappers when Brightspace answers with status >= 400.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       Body
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s failed: %d %s", e.Op, e.StatusCode, e.Body.String())
}

// BodyMismatchError is returned when a body is not of the expected variant.
type BodyMismatchError struct {
	Op   string
	Want BodyKind
	Got  BodyKind
}

func (e *BodyMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s body, got %s", e.Op, e.Want, e.Got)
}

// StatusCode extracts the HTTP status carried by a RemoteError, or 0.
func StatusCode(err error) int {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.StatusCode
	}
	return 0
}
