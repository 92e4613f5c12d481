package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/giantswarm/mcp-brightspace/internal/brightspace"
	"github.com/giantswarm/mcp-brightspace/internal/logging"
)

// errExit is a sentinel error used to signal REPL exit
var errExit = errors.New("exit")

// httpMethods are offered for completion after call, lp and le.
var httpMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

// REPL is an interactive shell over a Brightspace session.
type REPL struct {
	session         *brightspace.Session
	logger          *logging.Logger
	out             io.Writer
	commandHandlers map[string]commandHandler
}

// NewREPL creates a new REPL instance
func NewREPL(session *brightspace.Session, logger *logging.Logger) *REPL {
	r := &REPL{
		session: session,
		logger:  logger,
		out:     os.Stdout,
	}
	r.commandHandlers = r.buildCommandHandlers()
	return r
}

// Run starts the REPL
func (r *REPL) Run(ctx context.Context) error {
	historyFile := filepath.Join(os.TempDir(), ".mcp_brightspace_history")

	config := &readline.Config{
		Prompt:          "BS> ",
		HistoryFile:     historyFile,
		AutoComplete:    createCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	}

	rl, err := readline.NewEx(config)
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer func() { _ = rl.Close() }()
	r.out = rl.Stdout()

	r.logger.Info("Brightspace REPL connected to %s. Type 'help' for available commands. Use TAB for completion.", r.session.BaseURL())
	fmt.Fprintln(r.out)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("REPL shutting down...")
			return nil
		default:
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				continue
			}
		} else if err == io.EOF {
			r.logger.Info("Goodbye!")
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if err := r.executeCommand(ctx, input); err != nil {
			if errors.Is(err, errExit) {
				r.logger.Info("Goodbye!")
				return nil
			}
			r.logger.Error("Error: %v", err)
		}

		fmt.Fprintln(r.out)
	}
}

func buildPcItems(names []string, children ...readline.PrefixCompleterInterface) []readline.PrefixCompleterInterface {
	items := make([]readline.PrefixCompleterInterface, len(names))
	for i, name := range names {
		items[i] = readline.PcItem(name, children...)
	}
	return items
}

// createCompleter creates the tab completion configuration
func createCompleter() *readline.PrefixCompleter {
	families := buildPcItems([]string{string(brightspace.FamilyLP), string(brightspace.FamilyLE)})
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("?"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
		readline.PcItem("whoami"),
		readline.PcItem("versions"),
		readline.PcItem("get", readline.PcItem(brightspace.APIRoot+"/")),
		readline.PcItem("paginate", readline.PcItem(brightspace.APIRoot+"/")),
		readline.PcItem("call", buildPcItems(httpMethods, readline.PcItem(brightspace.APIRoot+"/"))...),
		readline.PcItem("lp", buildPcItems(httpMethods)...),
		readline.PcItem("le", buildPcItems(httpMethods)...),
		readline.PcItem("path", families...),
		readline.PcItem("verbose",
			readline.PcItem("on"),
			readline.PcItem("off"),
		),
	)
}

// filterInput filters input characters for readline
func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// commandHandler defines a REPL command with its handler and argument requirements
type commandHandler struct {
	minArgs int
	usage   string
	handler func(ctx context.Context, parts []string) error
}

// buildCommandHandlers creates the map of command handlers
func (r *REPL) buildCommandHandlers() map[string]commandHandler {
	exit := commandHandler{minArgs: 1, handler: func(ctx context.Context, parts []string) error {
		return errExit
	}}
	help := commandHandler{minArgs: 1, handler: func(ctx context.Context, parts []string) error {
		return r.showHelp()
	}}
	family := func(f brightspace.Family) commandHandler {
		return commandHandler{
			minArgs: 3,
			usage:   fmt.Sprintf("usage: %s <METHOD> <tail> [body-json]", f),
			handler: func(ctx context.Context, parts []string) error {
				return r.handleFamily(ctx, f, parts[1], parts[2], strings.Join(parts[3:], " "))
			},
		}
	}

	return map[string]commandHandler{
		"help": help,
		"?":    help,
		"exit": exit,
		"quit": exit,
		"whoami": {minArgs: 1, handler: func(ctx context.Context, parts []string) error {
			return r.handleWhoAmI(ctx)
		}},
		"versions": {minArgs: 1, handler: func(ctx context.Context, parts []string) error {
			return r.handleVersions(ctx)
		}},
		"get": {
			minArgs: 2,
			usage:   "usage: get <path> [params-json]",
			handler: func(ctx context.Context, parts []string) error {
				return r.handleGet(ctx, parts[1], strings.Join(parts[2:], " "))
			},
		},
		"call": {
			minArgs: 3,
			usage:   "usage: call <METHOD> <path> [body-json]",
			handler: func(ctx context.Context, parts []string) error {
				return r.handleCall(ctx, parts[1], parts[2], strings.Join(parts[3:], " "))
			},
		},
		"lp": family(brightspace.FamilyLP),
		"le": family(brightspace.FamilyLE),
		"paginate": {
			minArgs: 2,
			usage:   "usage: paginate <path> [max-pages]",
			handler: func(ctx context.Context, parts []string) error {
				maxPages := ""
				if len(parts) > 2 {
					maxPages = parts[2]
				}
				return r.handlePaginate(ctx, parts[1], maxPages)
			},
		},
		"path": {
			minArgs: 3,
			usage:   "usage: path <lp|le> <tail> [version]",
			handler: func(ctx context.Context, parts []string) error {
				version := ""
				if len(parts) > 3 {
					version = parts[3]
				}
				return r.handlePath(parts[1], parts[2], version)
			},
		},
		"verbose": {
			minArgs: 2,
			usage:   "usage: verbose <on|off>",
			handler: func(ctx context.Context, parts []string) error {
				return r.handleVerbose(parts[1])
			},
		},
	}
}

// executeCommand parses and executes a command
func (r *REPL) executeCommand(ctx context.Context, input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	command := strings.ToLower(parts[0])

	handler, exists := r.commandHandlers[command]
	if !exists {
		return fmt.Errorf("unknown command: %s. Type 'help' for available commands", command)
	}

	if len(parts) < handler.minArgs {
		return errors.New(handler.usage)
	}

	return handler.handler(ctx, parts)
}

// showHelp displays available commands
func (r *REPL) showHelp() error {
	lines := []string{
		"Available commands:",
		"  help, ?                          - Show this help message",
		"  whoami                           - Show the authenticated user",
		"  get <path> [params-json]         - GET a path with optional query parameters",
		"  call <METHOD> <path> [body-json] - Call any path with an optional JSON body",
		"  lp <METHOD> <tail> [body-json]   - Call a Learning Platform route, trying each lp version",
		"  le <METHOD> <tail> [body-json]   - Call a Learning Environment route, trying each le version",
		"  paginate <path> [max-pages]      - Walk a bookmark-paged listing",
		"  path <lp|le> <tail> [version]    - Show the versioned path for a route",
		"  versions                         - Show API versions supported by the tenant",
		"  verbose <on|off>                 - Toggle request logging",
		"  exit, quit                       - Exit the REPL",
		"",
		"Keyboard shortcuts:",
		"  TAB                              - Auto-complete commands and arguments",
		"  ↑/↓ (arrow keys)                 - Navigate command history",
		"  Ctrl+R                           - Search command history",
		"  Ctrl+C                           - Cancel current line",
		"  Ctrl+D                           - Exit REPL",
		"",
		"Examples:",
		"  get /d2l/api/lp/1.46/users/ {\"pageSize\": 5}",
		"  lp GET /enrollments/myenrollments/",
		"  le POST /6606/news/ {\"Title\": \"Hi\", \"Body\": {\"Content\": \"<p>Hi</p>\", \"Type\": \"Html\"}}",
		"  paginate /d2l/api/lp/1.46/orgstructure/ 3",
	}
	for _, line := range lines {
		fmt.Fprintln(r.out, line)
	}
	return nil
}
