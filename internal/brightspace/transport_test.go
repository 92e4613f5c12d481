package brightspace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/mcp-brightspace/internal/logging"
)

func TestTracingRoundTripper(t *testing.T) {
	tests := []struct {
		name          string
		userAgent     string
		expectedAgent string
	}{
		{
			name:          "adds default user agent",
			expectedAgent: UserAgent,
		},
		{
			name:          "keeps caller user agent",
			userAgent:     "custom/1.0",
			expectedAgent: "custom/1.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var capturedAgent, capturedAuth string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedAgent = r.Header.Get("User-Agent")
				capturedAuth = r.Header.Get("Authorization")
				w.WriteHeader(http.StatusTeapot)
			}))
			defer server.Close()

			var buf bytes.Buffer
			logger := logging.NewLoggerWithWriter(true, false, false, &buf)
			client := &http.Client{Transport: newTracingRoundTripper(nil, logger)}

			req, err := http.NewRequest(http.MethodGet, server.URL+"/d2l/api/lp/1.46/users/whoami?secret=1", nil)
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer super-secret")
			if tt.userAgent != "" {
				req.Header.Set("User-Agent", tt.userAgent)
			}

			resp, err := client.Do(req)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, tt.expectedAgent, capturedAgent)
			assert.Equal(t, "Bearer super-secret", capturedAuth)
			if tt.userAgent == "" {
				assert.Empty(t, req.Header.Get("User-Agent"), "original request must not be modified")
			}

			out := buf.String()
			assert.Contains(t, out, "/d2l/api/lp/1.46/users/whoami: 418")
			assert.False(t, strings.Contains(out, "super-secret"), "token leaked into log")
			assert.False(t, strings.Contains(out, "secret=1"), "query leaked into log")
		})
	}
}
