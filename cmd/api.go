package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-brightspace/internal/brightspace"
	"github.com/giantswarm/mcp-brightspace/internal/logging"
)

var (
	listPageSize int
	listBookmark string

	callParams  string
	callBody    string
	callHeaders string

	pagePageSize int
	pageMaxPages int
	pageParams   string
)

func printJSON(w io.Writer, v interface{}) {
	fmt.Fprintln(w, logging.PrettyJSON(v))
}

// decodeJSONFlag unmarshals a JSON flag value into out. An empty value leaves out untouched.
func decodeJSONFlag(name, raw string, out interface{}) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("--%s must be valid JSON: %w", name, err)
	}
	return nil
}

func newWhoAmICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user behind the configured refresh token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx, cancel := commandContext(cmd, logger)
			defer cancel()

			session, err := newSession(logger)
			if err != nil {
				return err
			}
			who, err := session.WhoAmI(ctx)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), who)
			return nil
		},
	}
}

func newListCoursesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list-courses",
		Short: "List one page of courses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx, cancel := commandContext(cmd, logger)
			defer cancel()

			session, err := newSession(logger)
			if err != nil {
				return err
			}
			courses, err := session.ListCourses(ctx, brightspace.ListOptions{PageSize: listPageSize, Bookmark: listBookmark})
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), courses)
			return nil
		},
	}
	cmd.Flags().IntVar(&listPageSize, "page-size", 10, "Number of courses per page")
	cmd.Flags().StringVar(&listBookmark, "bookmark", "", "Bookmark returned by the previous page")
	return cmd
}

func newCreateAnnouncementCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-announcement ORG_UNIT_ID TITLE HTML",
		Short: "Publish an HTML announcement in an org unit",
		Example: `  mcp-brightspace create-announcement 6606 "Welcome" "<p>Welcome to the course</p>"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			orgUnitID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid org unit id %q: %w", args[0], err)
			}

			logger := newLogger()
			ctx, cancel := commandContext(cmd, logger)
			defer cancel()

			session, err := newSession(logger)
			if err != nil {
				return err
			}
			created, err := session.CreateAnnouncement(ctx, orgUnitID, args[1], args[2])
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), created)
			return nil
		},
	}
}

// apiCallOutput is printed by api-call.
type apiCallOutput struct {
	Status  int               `json:"status"`
	Data    brightspace.Body  `json:"data"`
	Headers map[string]string `json:"headers"`
}

func newAPICallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api-call METHOD PATH",
		Short: "Call any Brightspace route",
		Long: `Call any Brightspace route and print {status, data, headers}.

PATH is host-relative, e.g. /d2l/api/lp/1.46/users/whoami. The command exits
with status 1 when the response status is 400 or above.`,
		Example: `  mcp-brightspace api-call GET /d2l/api/lp/1.46/users/ --params '{"pageSize": 5}'
  mcp-brightspace api-call POST /d2l/api/le/1.74/6606/news/ --body '{"Title": "Hi"}'`,
		Args: cobra.ExactArgs(2),
		RunE: runAPICall,
	}
	cmd.Flags().StringVar(&callParams, "params", "", "Query parameters as a JSON object")
	cmd.Flags().StringVar(&callBody, "body", "", "Request body as JSON")
	cmd.Flags().StringVar(&callHeaders, "headers", "", "Extra request headers as a JSON object of strings")
	return cmd
}

func runAPICall(cmd *cobra.Command, args []string) error {
	req := brightspace.Request{Method: args[0], Path: args[1], ExpectStructured: true}
	if err := decodeJSONFlag("params", callParams, &req.Params); err != nil {
		return err
	}
	if err := decodeJSONFlag("body", callBody, &req.Body); err != nil {
		return err
	}
	if err := decodeJSONFlag("headers", callHeaders, &req.Headers); err != nil {
		return err
	}

	logger := newLogger()
	ctx, cancel := commandContext(cmd, logger)
	defer cancel()

	session, err := newSession(logger)
	if err != nil {
		return err
	}
	resp, err := session.Do(ctx, req)
	if err != nil {
		return err
	}

	printJSON(cmd.OutOrStdout(), apiCallOutput{Status: resp.StatusCode, Data: resp.Body, Headers: resp.Headers()})
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s returned status %d", req.Method, req.Path, resp.StatusCode)
	}
	return nil
}

func newPaginateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paginate PATH",
		Short: "Walk a bookmark-paged listing and print the collected items",
		Example: `  mcp-brightspace paginate /d2l/api/lp/1.46/orgstructure/ --max-pages 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := brightspace.PageOptions{PageSize: pagePageSize, MaxPages: pageMaxPages}
			if err := decodeJSONFlag("params", pageParams, &opts.Params); err != nil {
				return err
			}

			logger := newLogger()
			ctx, cancel := commandContext(cmd, logger)
			defer cancel()

			session, err := newSession(logger)
			if err != nil {
				return err
			}
			result, err := session.Paginate(ctx, args[0], opts)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), result)
			if result.Failed {
				return fmt.Errorf("pagination of %s failed with status %d", args[0], result.StatusCode)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&pagePageSize, "page-size", brightspace.DefaultPageSize, "Items requested per page")
	cmd.Flags().IntVar(&pageMaxPages, "max-pages", brightspace.DefaultMaxPages, "Maximum number of pages to fetch")
	cmd.Flags().StringVar(&pageParams, "params", "", "Additional query parameters as a JSON object")
	return cmd
}

func newVersionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "Show the API versions the tenant supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx, cancel := commandContext(cmd, logger)
			defer cancel()

			session, err := newSession(logger)
			if err != nil {
				return err
			}
			products, err := session.DiscoverVersions(ctx)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), products)
			return nil
		},
	}
}
