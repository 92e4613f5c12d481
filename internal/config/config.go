// Package config loads the Brightspace connection settings from the process
// environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/giantswarm/mcp-brightspace/internal/brightspace"
	"github.com/giantswarm/mcp-brightspace/internal/logging"
)

// Environment variable names.
const (
	EnvBaseURL        = "BS_BASE_URL"
	EnvClientID       = "BS_CLIENT_ID"
	EnvClientSecret   = "BS_CLIENT_SECRET"
	EnvRefreshToken   = "BS_REFRESH_TOKEN"
	EnvTokenURL       = "BS_TOKEN_URL"
	EnvLPVersion      = "BS_LP_VERSION"
	EnvLEVersion      = "BS_LE_VERSION"
	EnvLPCandidates   = "BS_LP_VERSION_CANDIDATES"
	EnvLECandidates   = "BS_LE_VERSION_CANDIDATES"
	EnvTimeout        = "BS_TIMEOUT"
	EnvMaxRetries     = "BS_MAX_RETRIES"
	EnvAuthHost       = "BS_AUTH_HOST"
	EnvScope          = "BS_SCOPE"
	EnvCallbackHost   = "BS_CALLBACK_HOST"
	EnvCallbackPort   = "BS_CALLBACK_PORT"
	EnvRedirectURI    = "BS_REDIRECT_URI"
	EnvTokensFile     = "BS_TOKENS_FILE"
	EnvTokensLockFile = "BS_TOKENS_LOCK"
	EnvNgrokAPI       = "NGROK_API"
)

// Bootstrap defaults.
const (
	DefaultAuthHost     = "https://auth.brightspace.com"
	DefaultScope        = "core:*:* data:*:*"
	DefaultCallbackHost = "127.0.0.1"
	DefaultCallbackPort = 53682
	DefaultTokensFile   = "tokens.json"
	DefaultLockFile     = ".tokens.lock"
	DefaultNgrokAPI     = "http://127.0.0.1:4040"
	CallbackPath        = "/callback"
)

// Config is the complete runtime configuration.
type Config struct {
	BaseURL      string `validate:"required,http_url"`
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`
	RefreshToken string `validate:"required"`
	TokenURL     string `validate:"omitempty,http_url"`

	LPVersion    string   `validate:"required,apiversion"`
	LEVersion    string   `validate:"required,apiversion"`
	LPCandidates []string `validate:"dive,apiversion"`
	LECandidates []string `validate:"dive,apiversion"`

	Timeout    time.Duration `validate:"gt=0"`
	MaxRetries int           `validate:"gte=0"`

	Bootstrap Bootstrap
}

// Bootstrap holds the settings of the OAuth consent flow that mints the
// refresh token.
type Bootstrap struct {
	AuthHost     string `validate:"required,http_url"`
	Scope        string `validate:"required"`
	CallbackHost string `validate:"required"`
	CallbackPort int    `validate:"min=1,max=65535"`
	RedirectURI  string `validate:"omitempty,http_url"`
	TokensFile   string `validate:"required"`
	LockFile     string `validate:"required"`
	NgrokAPI     string `validate:"required,http_url"`
}

// Redirect returns the configured redirect URI, or the local callback URL.
func (b Bootstrap) Redirect(useTLS bool) string {
	if b.RedirectURI != "" {
		return b.RedirectURI
	}
	scheme := "http"
	host := b.CallbackHost
	if useTLS {
		// Self-signed certificates are issued for localhost.
		scheme, host = "https", "localhost"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, host, b.CallbackPort, CallbackPath)
}

// CallbackAddr is the listen address of the local callback server.
func (b Bootstrap) CallbackAddr() string {
	return fmt.Sprintf("%s:%d", b.CallbackHost, b.CallbackPort)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("apiversion", apiVersionValidator)
	return v
}

// apiVersionValidator accepts Valence version strings such as "1.46".
func apiVersionValidator(fl validator.FieldLevel) bool {
	_, err := semver.NewVersion(fl.Field().String())
	return err == nil
}

// Load reads envFile (or ./.env when envFile is empty) into the environment
// without overriding variables that are already set, then parses the
// environment. An explicit envFile must exist; the implicit one is optional.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load() // no error if .env doesn't exist
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from a variable lookup function, applying defaults.
// It does not validate.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		BaseURL:      strings.TrimRight(get(EnvBaseURL, ""), "/"),
		ClientID:     get(EnvClientID, ""),
		ClientSecret: get(EnvClientSecret, ""),
		RefreshToken: get(EnvRefreshToken, ""),
		TokenURL:     get(EnvTokenURL, ""),
		LPVersion:    get(EnvLPVersion, brightspace.DefaultLPVersion),
		LEVersion:    get(EnvLEVersion, brightspace.DefaultLEVersion),
		LPCandidates: splitList(get(EnvLPCandidates, "")),
		LECandidates: splitList(get(EnvLECandidates, "")),
		Timeout:      brightspace.DefaultTimeout,
		MaxRetries:   brightspace.DefaultMaxRetries,
		Bootstrap: Bootstrap{
			AuthHost:     strings.TrimRight(get(EnvAuthHost, DefaultAuthHost), "/"),
			Scope:        get(EnvScope, DefaultScope),
			CallbackHost: get(EnvCallbackHost, DefaultCallbackHost),
			CallbackPort: DefaultCallbackPort,
			RedirectURI:  get(EnvRedirectURI, ""),
			TokensFile:   get(EnvTokensFile, DefaultTokensFile),
			LockFile:     get(EnvTokensLockFile, DefaultLockFile),
			NgrokAPI:     strings.TrimRight(get(EnvNgrokAPI, DefaultNgrokAPI), "/"),
		},
	}

	if raw := get(EnvTimeout, ""); raw != "" {
		d, err := parseTimeout(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		cfg.Timeout = d
	}
	if raw := get(EnvMaxRetries, ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvMaxRetries, err)
		}
		cfg.MaxRetries = n
	}
	if raw := get(EnvCallbackPort, ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvCallbackPort, err)
		}
		cfg.Bootstrap.CallbackPort = n
	}
	return cfg, nil
}

// Validate checks every setting needed to call the API.
func (c *Config) Validate() error {
	return describe(validate.Struct(c))
}

// ValidateBootstrap checks the settings needed to mint tokens. The refresh
// token is what the bootstrap produces, so it is not required.
func (c *Config) ValidateBootstrap() error {
	return describe(validate.StructExcept(c, "RefreshToken", "BaseURL"))
}

// Session converts the configuration into brightspace.SessionConfig.
func (c *Config) Session(httpClient *http.Client, logger *logging.Logger) brightspace.SessionConfig {
	return brightspace.SessionConfig{
		BaseURL:      c.BaseURL,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RefreshToken: c.RefreshToken,
		TokenURL:     c.TokenURL,
		LPVersion:    c.LPVersion,
		LEVersion:    c.LEVersion,
		LPCandidates: c.LPCandidates,
		LECandidates: c.LECandidates,
		Timeout:      c.Timeout,
		MaxRetries:   retriesOrNone(c.MaxRetries),
		HTTPClient:   httpClient,
		Logger:       logger,
	}
}

// retriesOrNone maps an explicit zero to the session's "no retries" value.
func retriesOrNone(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

// describe flattens validator errors into one message naming the variables.
func describe(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s (%s) failed %q", fe.Namespace(), envName(fe.StructNamespace()), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

var envNames = map[string]string{
	"Config.BaseURL":                EnvBaseURL,
	"Config.ClientID":               EnvClientID,
	"Config.ClientSecret":           EnvClientSecret,
	"Config.RefreshToken":           EnvRefreshToken,
	"Config.TokenURL":               EnvTokenURL,
	"Config.LPVersion":              EnvLPVersion,
	"Config.LEVersion":              EnvLEVersion,
	"Config.Timeout":                EnvTimeout,
	"Config.MaxRetries":             EnvMaxRetries,
	"Config.Bootstrap.AuthHost":     EnvAuthHost,
	"Config.Bootstrap.Scope":        EnvScope,
	"Config.Bootstrap.CallbackHost": EnvCallbackHost,
	"Config.Bootstrap.CallbackPort": EnvCallbackPort,
	"Config.Bootstrap.RedirectURI":  EnvRedirectURI,
	"Config.Bootstrap.TokensFile":   EnvTokensFile,
	"Config.Bootstrap.LockFile":     EnvTokensLockFile,
	"Config.Bootstrap.NgrokAPI":     EnvNgrokAPI,
}

func envName(namespace string) string {
	if name, ok := envNames[namespace]; ok {
		return name
	}
	switch {
	case strings.HasPrefix(namespace, "Config.LPCandidates"):
		return EnvLPCandidates
	case strings.HasPrefix(namespace, "Config.LECandidates"):
		return EnvLECandidates
	}
	return namespace
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseTimeout accepts a Go duration ("45s") or a number of seconds ("30", "2.5").
func parseTimeout(raw string) (time.Duration, error) {
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is neither a duration nor a number of seconds", raw)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
