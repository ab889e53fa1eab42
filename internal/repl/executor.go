package repl

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/willibrandon/pgtail/internal/detector"
	"github.com/willibrandon/pgtail/internal/ui"
)

// knownCommands lists every top-level command name, used for suggesting
// a correction on an unrecognized command.
var knownCommands = []string{
	"list", "tail", "stop", "refresh", "levels", "filter",
	"since", "until", "between", "slow", "stats", "errors",
	"notify", "config", "enable-logging", "help", "quit", "exit", "clear",
}

// Executor parses and runs one REPL command line against a shared
// AppState.
type Executor struct {
	State  *AppState
	Output io.Writer
}

// NewExecutor creates a command executor writing to stdout.
func NewExecutor(state *AppState) *Executor {
	return &Executor{
		State:  state,
		Output: os.Stdout,
	}
}

// Execute parses and runs one line of input, returning the text to
// display to the user (empty if the command has nothing to say).
func (e *Executor) Execute(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "list":
		return e.cmdList()
	case "tail", "follow":
		return e.cmdTail(args)
	case "stop":
		return e.cmdStop()
	case "refresh":
		return e.cmdRefresh()
	case "levels":
		return e.cmdLevels(args)
	case "filter":
		return e.cmdFilter(args)
	case "since":
		return e.cmdSince(args)
	case "until":
		return e.cmdUntil(args)
	case "between":
		return e.cmdBetween(args)
	case "slow":
		return e.cmdSlow(args)
	case "stats":
		return e.cmdStats(args)
	case "errors":
		return e.cmdErrors(args)
	case "notify":
		return e.cmdNotify(args)
	case "config":
		return e.cmdConfig(args)
	case "enable-logging":
		return e.cmdEnableLogging(args)
	case "help":
		return e.cmdHelp()
	case "quit", "exit":
		return e.cmdQuit()
	case "clear":
		return e.cmdClear()
	default:
		if suggestion := suggestCommand(cmd, knownCommands); suggestion != "" {
			return fmt.Sprintf("Unknown command: %s. Did you mean %q?", cmd, suggestion)
		}
		return fmt.Sprintf("Unknown command: %s. Type 'help' for available commands.", cmd)
	}
}

// cmdList displays all detected PostgreSQL instances.
func (e *Executor) cmdList() string {
	if len(e.State.Instances) == 0 {
		return e.noInstancesMessage()
	}
	return e.formatInstanceTable()
}

// cmdRefresh re-scans for PostgreSQL instances.
func (e *Executor) cmdRefresh() string {
	fmt.Fprintln(e.Output, ui.RenderInfo("Scanning for PostgreSQL instances..."))

	result := detector.Detect(context.Background())
	e.State.SetInstances(result.Instances)

	if result.HasErrors() {
		for _, err := range result.Errors {
			fmt.Fprintln(e.Output, ui.RenderWarning(err.Error()))
		}
	}

	return ui.RenderInfo(fmt.Sprintf("Found %d instance(s)", len(result.Instances)))
}

// cmdHelp lists every command.
func (e *Executor) cmdHelp() string {
	return `pgtail - PostgreSQL log tailer

Instance commands:
  list                    Show detected PostgreSQL instances
  refresh                 Re-scan for instances
  tail <id|path>          Tail logs for an instance (alias: follow)
  stop                    Stop the current tail

Filter commands:
  levels [LEVEL...]       Restrict displayed levels (no args clears)
  filter +/re/[c]         Show only messages matching re (any include)
  filter -/re/[c]         Hide messages matching re
  filter &/re/[c]         Require messages to also match re
  filter clear            Clear include/exclude/and regex filters
  since <time>            Show only entries at or after <time>
  until <time>            Show only entries at or before <time>
  between <t1> <t2>       Show only entries within [t1, t2]

Slow query commands:
  slow show               Show current thresholds
  slow warn|slow|critical <ms>  Set a threshold

Stats commands:
  stats                   Show duration statistics
  stats reset             Clear duration statistics
  errors                  Show error counts by SQLSTATE
  errors --code <code>    Filter by SQLSTATE code
  errors --since <dur>    Restrict to a trailing window, e.g. 10m
  errors --trend          Show per-minute error counts
  errors clear            Clear error statistics

Notification commands:
  notify on|off           Enable/disable notifications
  notify level <LEVEL>    Add a level rule
  notify pattern <regex>  Add a pattern rule
  notify rate <n> <dur>   Add a rate rule, e.g. rate 10 1m
  notify slow <class>     Add a slow-query rule (warning|slow|critical)
  notify quiet <start> <end>  Set quiet hours, e.g. quiet 22:00 06:00
  notify rules            List configured rules
  notify clear            Remove all rules
  notify test             Show what would fire for a sample entry

Config commands:
  config show             Show current settings
  config save             Persist current settings to disk
  config path             Show the settings file path

  clear                   Clear screen
  help                    Show this help
  quit                    Exit pgtail (alias: exit)

Keyboard Shortcuts:
  Tab       Autocomplete
  Up/Down   Command history
  Ctrl+C    Stop tail / Clear input
  Ctrl+D    Exit (when input empty)
  Ctrl+L    Clear screen`
}

// cmdQuit signals the REPL to exit.
func (e *Executor) cmdQuit() string {
	e.State.StopTailing()
	os.Exit(0)
	return ""
}

// cmdClear clears the terminal screen.
func (e *Executor) cmdClear() string {
	fmt.Fprint(e.Output, "\033[2J\033[H")
	return ""
}

// formatInstanceTable formats instances as a table.
func (e *Executor) formatInstanceTable() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("  %s  %s  %s  %s  %s  %s\n",
		ui.TableHeader.Render(fmt.Sprintf("%-3s", "#")),
		ui.TableHeader.Render(fmt.Sprintf("%-8s", "VERSION")),
		ui.TableHeader.Render(fmt.Sprintf("%6s", "PORT")),
		ui.TableHeader.Render(fmt.Sprintf("%-8s", "STATUS")),
		ui.TableHeader.Render(fmt.Sprintf("%-8s", "SOURCE")),
		ui.TableHeader.Render("DATA DIRECTORY")))

	for i, inst := range e.State.Instances {
		portStr := ui.Muted.Render("-")
		if inst.Port > 0 {
			portStr = fmt.Sprintf("%d", inst.Port)
		}

		dataDir := shortenPath(inst.DataDir)

		sb.WriteString(fmt.Sprintf("  %s  %-8s  %6s  %s  %-8s  %s\n",
			ui.TableIndex.Render(fmt.Sprintf("%-3d", i)),
			inst.Version,
			portStr,
			fmt.Sprintf("%-8s", ui.RenderStatus(inst.Running)),
			inst.DisplaySource(),
			dataDir))
	}

	return sb.String()
}

// noInstancesMessage returns a helpful message when no instances are found.
func (e *Executor) noInstancesMessage() string {
	return `No PostgreSQL instances found.

Suggestions:
  - If PostgreSQL is running, check that the process is visible
  - Check if PGDATA environment variable is set correctly
  - For pgrx users: ensure ~/.pgrx/data-*/ directories exist
  - For Homebrew users: check /opt/homebrew/var/postgresql@*/
  - Run 'refresh' to re-scan after starting PostgreSQL

Common installation paths checked:
  - ~/.pgrx/data-*/              (pgrx development)
  - /opt/homebrew/var/postgres*  (Homebrew on Apple Silicon)
  - /usr/local/var/postgres*     (Homebrew on Intel)
  - /var/lib/postgresql/*/main   (Debian/Ubuntu)
  - /var/lib/pgsql/*/data        (RHEL/CentOS)`
}

// shortenPath replaces the home directory prefix with ~ for display.
func shortenPath(path string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, homeDir) {
		return "~" + path[len(homeDir):]
	}
	return path
}

// DetectAndSetInstances runs detection and updates state.
func (e *Executor) DetectAndSetInstances() *detector.DetectionResult {
	result := detector.Detect(context.Background())
	e.State.SetInstances(result.Instances)
	return result
}
