package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupBrightspace points the BS_* environment at a mock host.
func setupBrightspace(t *testing.T) *httptest.Server {
	t.Helper()

	writeJSON := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/d2l/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"access_token": "access-1"})
	})
	mux.HandleFunc("/d2l/api/lp/1.46/users/whoami", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"FirstName": "Ada"})
	})
	mux.HandleFunc("/d2l/api/lp/1.46/courses/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"Items": []interface{}{}, "PageSize": r.URL.Query().Get("pageSize")})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Setenv("BS_BASE_URL", srv.URL)
	t.Setenv("BS_CLIENT_ID", "client")
	t.Setenv("BS_CLIENT_SECRET", "secret")
	t.Setenv("BS_REFRESH_TOKEN", "refresh")
	t.Setenv("BS_TOKEN_URL", srv.URL+"/d2l/oauth2/token")
	t.Setenv("BS_MAX_RETRIES", "0")
	envFile, noColor = "", true
	return srv
}

func TestAPICallCommand(t *testing.T) {
	setupBrightspace(t)

	t.Run("success", func(t *testing.T) {
		var out bytes.Buffer
		c := newAPICallCmd()
		c.SetOut(&out)
		c.SetContext(context.Background())
		callParams, callBody, callHeaders = `{"x": 1}`, "", ""

		require.NoError(t, runAPICall(c, []string{"GET", "/d2l/api/lp/1.46/users/whoami"}))

		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		assert.EqualValues(t, 200, got["status"])
		assert.Equal(t, map[string]interface{}{"FirstName": "Ada"}, got["data"])
		assert.Contains(t, got, "headers")
	})

	t.Run("error status fails the command", func(t *testing.T) {
		var out bytes.Buffer
		c := newAPICallCmd()
		c.SetOut(&out)
		c.SetContext(context.Background())
		callParams, callBody, callHeaders = "", "", ""

		err := runAPICall(c, []string{"GET", "/d2l/api/lp/1.46/nothing"})
		assert.ErrorContains(t, err, "returned status 404")
		assert.Contains(t, out.String(), `"status": 404`)
	})

	t.Run("invalid json flag", func(t *testing.T) {
		c := newAPICallCmd()
		c.SetContext(context.Background())
		callParams, callBody, callHeaders = "", "{", ""

		err := runAPICall(c, []string{"POST", "/d2l/api/lp/1.46/users/whoami"})
		assert.ErrorContains(t, err, "--body must be valid JSON")
	})
}

func TestSelftest(t *testing.T) {
	setupBrightspace(t)

	var out bytes.Buffer
	c := newSelftestCmd()
	c.SetOut(&out)
	c.SetContext(context.Background())

	require.NoError(t, c.RunE(c, nil))
	assert.Contains(t, out.String(), `"FirstName": "Ada"`)
	assert.Contains(t, out.String(), `"PageSize": "5"`)
}

func TestLoadConfig_Missing(t *testing.T) {
	setupBrightspace(t)
	t.Setenv("BS_REFRESH_TOKEN", "")

	_, err := loadConfig()
	assert.ErrorContains(t, err, "BS_REFRESH_TOKEN")
}

func TestSmokeTarget(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)

	tests := []struct {
		name     string
		argv     []string
		env      map[string]string
		wantCmd  string
		wantArgs []string
	}{
		{
			name:     "defaults to own binary",
			wantCmd:  exe,
			wantArgs: []string{"serve"},
		},
		{
			name:     "environment",
			env:      map[string]string{envSmokeCommand: "brightspace-mcp", envSmokeArgs: "serve --verbose"},
			wantCmd:  "brightspace-mcp",
			wantArgs: []string{"serve", "--verbose"},
		},
		{
			name:     "arguments win over environment",
			argv:     []string{"other", "--", "serve", "--no-color"},
			env:      map[string]string{envSmokeCommand: "brightspace-mcp", envSmokeArgs: "ignored"},
			wantCmd:  "other",
			wantArgs: []string{"serve", "--no-color"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(envSmokeCommand, "")
			t.Setenv(envSmokeArgs, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			envFile = ""

			c := newSmokeCmd()
			require.NoError(t, c.Flags().Parse(tt.argv))

			command, args, err := smokeTarget(c, c.Flags().Args())
			require.NoError(t, err)
			assert.Equal(t, tt.wantCmd, command)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestConfirmRedirect(t *testing.T) {
	var prompt bytes.Buffer
	confirm := confirmRedirect(bytes.NewBufferString("\n"), &prompt)

	require.NoError(t, confirm("https://abc.ngrok.app/callback"))
	assert.Contains(t, prompt.String(), "Redirect URI: https://abc.ngrok.app/callback")
}
