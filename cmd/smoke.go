package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-brightspace/internal/agent"
)

// Environment overrides of the smoke target.
const (
	envSmokeCommand = "MCP_SMOKE_COMMAND"
	envSmokeArgs    = "MCP_SMOKE_ARGS"
)

func newSmokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "smoke [COMMAND] [-- ARGS...]",
		Short: "Spawn an MCP server over stdio and call a few read-only tools",
		Long: `Spawn an MCP server over stdio, list its tools and call bs.whoami,
bs.list_courses, bs.list_org_units and bs.list_users.

The server command is taken from the first argument, then MCP_SMOKE_COMMAND,
and defaults to this binary. Its arguments are taken from after "--", then
MCP_SMOKE_ARGS (split on whitespace), and default to "serve". The BS_*
variables of this process are passed to the server.`,
		RunE: runSmoke,
	}
}

// smokeTarget resolves the server command line.
func smokeTarget(cmd *cobra.Command, args []string) (string, []string, error) {
	positional, extra := args, []string(nil)
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		positional, extra = args[:dash], args[dash:]
	}
	if len(positional) > 1 {
		return "", nil, fmt.Errorf("expected at most one server command, got %d", len(positional))
	}

	command := os.Getenv(envSmokeCommand)
	if len(positional) == 1 {
		command = positional[0]
	}
	self := command == ""
	if self {
		exe, err := os.Executable()
		if err != nil {
			return "", nil, fmt.Errorf("failed to locate own executable: %w", err)
		}
		command = exe
	}

	serverArgs := extra
	if len(serverArgs) == 0 {
		serverArgs = strings.Fields(os.Getenv(envSmokeArgs))
	}
	if len(serverArgs) == 0 {
		serverArgs = []string{"serve"}
		if self && envFile != "" {
			serverArgs = append(serverArgs, "--env-file", envFile)
		}
	}
	return command, serverArgs, nil
}

func runSmoke(cmd *cobra.Command, args []string) error {
	command, serverArgs, err := smokeTarget(cmd, args)
	if err != nil {
		return err
	}

	logger := newLogger()
	ctx, cancel := commandContext(cmd, logger)
	defer cancel()

	client := agent.NewClient(agent.ClientConfig{
		Command: command,
		Args:    serverArgs,
		Env:     agent.EnvFromOS(),
		Logger:  logger,
		Version: version,
	})
	if err := client.Run(ctx); err != nil {
		return fmt.Errorf("failed to connect client: %w", err)
	}
	defer client.Close()

	return client.Smoke(ctx, cmd.OutOrStdout())
}
