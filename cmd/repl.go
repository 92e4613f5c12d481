package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-brightspace/internal/agent"
)

func newREPLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive shell against the Brightspace API",
		Long: `Start an interactive shell against the Brightspace API.

The shell offers whoami, get, call, lp, le, paginate, path and versions
commands with tab completion and history. Type 'help' inside for details.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx, cancel := commandContext(cmd, logger)
			defer cancel()

			session, err := newSession(logger)
			if err != nil {
				return err
			}
			if err := agent.NewREPL(session, logger).Run(ctx); err != nil {
				return fmt.Errorf("REPL error: %w", err)
			}
			return nil
		},
	}
}
