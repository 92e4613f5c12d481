package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-brightspace/internal/brightspace"
	"github.com/giantswarm/mcp-brightspace/internal/config"
	"github.com/giantswarm/mcp-brightspace/internal/logging"
)

var (
	version string
	envFile string
	verbose bool
	noColor bool
	jsonRPC bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mcp-brightspace",
	Short: "MCP server and CLI for the Brightspace (D2L Valence) API",
	Long: `mcp-brightspace exposes the Brightspace (D2L Valence) REST API as MCP tools
and as a small command line client.

Every call goes through one request pipeline that refreshes the OAuth access
token on 401, waits out 429 rate limiting and retries transport failures
within a shared retry budget. Learning Platform (lp) and Learning Environment
(le) routes are tried against each configured API version until one answers.

Without a subcommand the MCP server is started on stdio, which is what AI
assistants such as Claude or Cursor expect in their MCP settings.

Configuration is read from the environment (BS_BASE_URL, BS_CLIENT_ID,
BS_CLIENT_SECRET, BS_REFRESH_TOKEN, ...) and from a .env file in the working
directory or the one named by --env-file. Use the auth command to mint a
refresh token through the browser.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// SetVersion sets the version for the application
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file (default: ./.env if present)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging (show every HTTP request)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&jsonRPC, "json-rpc", false, "Log every tool call and its result")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newWhoAmICmd())
	rootCmd.AddCommand(newListCoursesCmd())
	rootCmd.AddCommand(newCreateAnnouncementCmd())
	rootCmd.AddCommand(newAPICallCmd())
	rootCmd.AddCommand(newPaginateCmd())
	rootCmd.AddCommand(newVersionsCmd())
	rootCmd.AddCommand(newSelftestCmd())
	rootCmd.AddCommand(newSmokeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newLaunchCmd())
	rootCmd.AddCommand(newREPLCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}

// newLogger creates the stderr logger configured by the persistent flags.
func newLogger() *logging.Logger {
	return logging.NewLogger(verbose, !noColor, jsonRPC)
}

// loadConfig reads and validates the API configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newSession loads the configuration and opens a session on it.
func newSession(logger *logging.Logger) (*brightspace.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return brightspace.NewSession(cfg.Session(nil, logger)), nil
}

// setupSignalHandler sets up graceful shutdown on interrupt signals
func setupSignalHandler(cancel context.CancelFunc, logger *logging.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()
}

// commandContext returns a context cancelled on SIGINT or SIGTERM.
func commandContext(cmd *cobra.Command, logger *logging.Logger) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	setupSignalHandler(cancel, logger)
	return ctx, cancel
}
