package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-brightspace/internal/agent"
	"github.com/giantswarm/mcp-brightspace/internal/brightspace"
	"github.com/giantswarm/mcp-brightspace/internal/config"
	"github.com/giantswarm/mcp-brightspace/internal/logging"
	"github.com/giantswarm/mcp-brightspace/internal/oauth"
)

var (
	authTLS       bool
	authTunnel    bool
	authForce     bool
	authTimeout   time.Duration
	authCertFile  string
	authKeyFile   string
	authNoBrowser bool
)

func addAuthFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&authTLS, "tls", false, "Serve the local callback over HTTPS with a self-signed certificate")
	cmd.Flags().BoolVar(&authTunnel, "tunnel", false, "Expose the callback through an ngrok tunnel and use its https URL as redirect URI")
	cmd.Flags().BoolVar(&authForce, "force", false, "Skip the stored refresh token and run the browser consent")
	cmd.Flags().DurationVar(&authTimeout, "timeout", 5*time.Minute, "Maximum time to wait for the browser callback")
	cmd.Flags().StringVar(&authCertFile, "cert-file", "localhost.pem", "Certificate for --tls (generated if missing)")
	cmd.Flags().StringVar(&authKeyFile, "key-file", "localhost-key.pem", "Private key for --tls (generated if missing)")
	cmd.Flags().BoolVar(&authNoBrowser, "no-browser", false, "Print the authorization URL instead of opening a browser")
	cmd.MarkFlagsMutuallyExclusive("tls", "tunnel")
}

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Mint or refresh the Brightspace token pair",
		Long: `Mint or refresh the Brightspace token pair stored in BS_TOKENS_FILE.

When the tokens file holds a refresh token it is exchanged for a new pair.
Otherwise, or with --force, the browser is opened on the Brightspace consent
page and a local callback server receives the authorization code. The
redirect URI must be registered with the Brightspace OAuth app: by default
http://127.0.0.1:53682/callback, https://localhost:53682/callback with --tls,
or the ngrok URL shown before the browser opens with --tunnel.`,
		Args: cobra.NoArgs,
		RunE: runAuth,
	}
	addAuthFlags(cmd)
	return cmd
}

// tokenSummary is printed by auth.
type tokenSummary struct {
	TokensFile string    `json:"tokens_file"`
	Subject    string    `json:"subject,omitempty"`
	Tenant     string    `json:"tenant,omitempty"`
	Issuer     string    `json:"issuer,omitempty"`
	Scopes     []string  `json:"scopes,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
}

func runAuth(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx, cancel := commandContext(cmd, logger)
	defer cancel()

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	tok, err := obtainTokens(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}

	summary := tokenSummary{TokensFile: cfg.Bootstrap.TokensFile}
	if info, err := oauth.DescribeToken(tok.AccessToken); err != nil {
		logger.Warning("Access token is not a readable JWT: %v", err)
	} else {
		summary.Subject = info.Subject
		summary.Tenant = info.Tenant
		summary.Issuer = info.Issuer
		summary.Scopes = info.Scopes
		summary.ExpiresAt = info.ExpiresAt
	}
	printJSON(cmd.OutOrStdout(), summary)
	return nil
}

// obtainTokens refreshes or mints the token pair described by cfg.Bootstrap.
func obtainTokens(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *logging.Logger) (*oauth.Token, error) {
	if err := cfg.ValidateBootstrap(); err != nil {
		return nil, err
	}

	oauthCfg := &oauth.Config{
		ClientID:             cfg.ClientID,
		ClientSecret:         cfg.ClientSecret,
		AuthHost:             cfg.Bootstrap.AuthHost,
		Scopes:               oauth.SplitScopes(cfg.Bootstrap.Scope),
		RedirectURL:          cfg.Bootstrap.Redirect(authTLS),
		ListenAddr:           cfg.Bootstrap.CallbackAddr(),
		AuthorizationTimeout: authTimeout,
		TokensFile:           cfg.Bootstrap.TokensFile,
		LockFile:             cfg.Bootstrap.LockFile,
	}
	if authTLS {
		oauthCfg.CertFile, oauthCfg.KeyFile = authCertFile, authKeyFile
	}
	if err := oauthCfg.Validate(); err != nil {
		return nil, err
	}

	b := &oauth.Bootstrapper{Config: oauthCfg, Logger: logger}
	if authTunnel {
		b.Tunnel = &oauth.TunnelOptions{Port: cfg.Bootstrap.CallbackPort, APIURL: cfg.Bootstrap.NgrokAPI}
		b.Confirm = confirmRedirect(cmd.InOrStdin(), cmd.ErrOrStderr())
	}
	if authNoBrowser {
		b.Browser = func(url string) error {
			fmt.Fprintf(cmd.ErrOrStderr(), "Open this URL to authorize:\n  %s\n", url)
			return nil
		}
	}

	if authForce {
		return b.Mint(ctx)
	}
	return b.Tokens(ctx)
}

// confirmRedirect asks the operator to register the redirect URI before the
// browser opens.
func confirmRedirect(in io.Reader, out io.Writer) func(string) error {
	return func(redirectURI string) error {
		fmt.Fprintf(out, "Redirect URI: %s\nRegister it with your Brightspace OAuth app, then press Enter to continue...", redirectURI)
		if _, err := bufio.NewReader(in).ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	}
}

func newLaunchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Refresh tokens, check them and serve MCP over stdio",
		Long: `Prepare everything and run the MCP server on stdio.

launch refreshes (or mints) the token pair like auth, uses the new refresh
token for the session, checks it with whoami, takes the tokens lock so that
only one server uses the pair, and then serves MCP over stdio.`,
		Args: cobra.NoArgs,
		RunE: runLaunch,
	}
	addAuthFlags(cmd)
	return cmd
}

func runLaunch(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx, cancel := commandContext(cmd, logger)
	defer cancel()

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	lock, err := oauth.AcquireLock(cfg.Bootstrap.LockFile)
	if err != nil {
		return err
	}
	defer lock.Release()

	tok, err := obtainTokens(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}
	cfg.RefreshToken = tok.RefreshToken
	if err := cfg.Validate(); err != nil {
		return err
	}

	session := brightspace.NewSession(cfg.Session(nil, logger))
	who, err := session.WhoAmI(ctx)
	if err != nil {
		return fmt.Errorf("sanity check failed: %w", err)
	}
	logger.Success("Authenticated as %v %v", who["FirstName"], who["LastName"])

	serverTransport = agent.TransportStdio
	return runMCPServer(ctx, session, logger)
}
