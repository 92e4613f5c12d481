package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-brightspace/internal/brightspace"
	"github.com/giantswarm/mcp-brightspace/internal/logging"
)

func newSelftestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Check credentials with whoami and a short course listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx, cancel := commandContext(cmd, logger)
			defer cancel()

			session, err := newSession(logger)
			if err != nil {
				return err
			}
			return runSelftest(ctx, session, cmd.OutOrStdout(), logger)
		},
	}
}

// runSelftest performs whoami and lists five courses.
func runSelftest(ctx context.Context, session *brightspace.Session, out io.Writer, logger *logging.Logger) error {
	who, err := session.WhoAmI(ctx)
	if err != nil {
		return fmt.Errorf("selftest whoami: %w", err)
	}
	fmt.Fprintln(out, "whoami:")
	printJSON(out, who)

	courses, err := session.ListCourses(ctx, brightspace.ListOptions{PageSize: 5})
	if err != nil {
		return fmt.Errorf("selftest list_courses: %w", err)
	}
	fmt.Fprintln(out, "list_courses(page_size=5):")
	printJSON(out, courses)

	logger.Success("Selftest passed against %s", session.BaseURL())
	return nil
}
