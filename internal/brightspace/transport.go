package brightspace

import (
	"net/http"
	"time"

	"github.com/giantswarm/mcp-brightspace/internal/logging"
)

// UserAgent is sent with every request unless the caller sets one.
const UserAgent = "mcp-brightspace"

// tracingRoundTripper stamps a User-Agent on outgoing requests and logs each
// exchange at debug level. Credentials never reach the log: only the method,
// the path and the outcome are written.
type tracingRoundTripper struct {
	transport http.RoundTripper
	logger    *logging.Logger
}

func newTracingRoundTripper(base http.RoundTripper, logger *logging.Logger) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &tracingRoundTripper{
		transport: base,
		logger:    logger,
	}
}

// RoundTrip implements the http.RoundTripper interface
func (rt *tracingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	clonedReq := req.Clone(req.Context())
	if clonedReq.Header.Get("User-Agent") == "" {
		clonedReq.Header.Set("User-Agent", UserAgent)
	}

	start := time.Now()
	resp, err := rt.transport.RoundTrip(clonedReq)
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		rt.logger.Debug("http %s %s%s: %v (%s)", clonedReq.Method, clonedReq.URL.Host, clonedReq.URL.Path, err, elapsed)
		return nil, err
	}
	rt.logger.Debug("http %s %s%s: %d (%s)", clonedReq.Method, clonedReq.URL.Host, clonedReq.URL.Path, resp.StatusCode, elapsed)
	return resp, nil
}
