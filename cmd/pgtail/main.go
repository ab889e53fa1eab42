// Package main provides the entry point for the pgtail CLI.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/c-bata/go-prompt"

	"github.com/willibrandon/pgtail/internal/config"
	"github.com/willibrandon/pgtail/internal/detector"
	"github.com/willibrandon/pgtail/internal/logentry"
	"github.com/willibrandon/pgtail/internal/logging"
	"github.com/willibrandon/pgtail/internal/repl"
)

// Version is set at build time via -ldflags.
var Version = "0.1.0"

var shellMode bool

var historyFile string

const historyMaxLines = 1000

var lastHistoryCmd string

var historyIgnore = map[string]bool{
	"q": true, "quit": true, "exit": true, "": true,
}

func init() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	historyFile = filepath.Join(home, ".pgtail.hist")
}

func loadHistory() []string {
	if historyFile == "" {
		return nil
	}
	file, err := os.Open(historyFile)
	if err != nil {
		return nil
	}
	defer file.Close()

	var history []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			history = append(history, line)
		}
	}

	if len(history) > 0 {
		lastHistoryCmd = history[len(history)-1]
	}

	return history
}

func saveHistory(cmd string) {
	if historyFile == "" || cmd == "" {
		return
	}

	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return
	}
	if historyIgnore[strings.ToLower(fields[0])] {
		return
	}
	if len(strings.TrimSpace(cmd)) == 1 {
		return
	}
	if cmd == lastHistoryCmd {
		return
	}
	lastHistoryCmd = cmd

	file, err := os.OpenFile(historyFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	file.WriteString(cmd + "\n")
	file.Close()

	trimHistory()
}

func trimHistory() {
	if historyFile == "" {
		return
	}

	file, err := os.Open(historyFile)
	if err != nil {
		return
	}

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	file.Close()

	if len(lines) <= historyMaxLines {
		return
	}
	lines = lines[len(lines)-historyMaxLines:]

	file, err = os.OpenFile(historyFile, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer file.Close()
	for _, line := range lines {
		file.WriteString(line + "\n")
	}
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--help", "-h":
			printHelp()
			os.Exit(0)
		case "--version", "-v":
			fmt.Printf("pgtail version %s\n", Version)
			os.Exit(0)
		}
	}

	fs := flag.NewFlagSet("pgtail", flag.ExitOnError)
	since := fs.String("since", "", "tail the named instance starting from this long ago, e.g. 10m")
	fromStart := fs.Bool("from-start", false, "tail the named instance from the beginning of the file")
	fs.Parse(os.Args[1:])
	target := fs.Arg(0)

	logger := logging.Default()

	settingsPath, err := config.Path()
	if err != nil {
		logger.Warn().Err(err).Msg("cannot determine settings path, using defaults")
	}
	settings := config.Default()
	if settingsPath != "" {
		if loaded, err := config.Load(settingsPath); err != nil {
			logger.Warn().Err(err).Msg("cannot load settings, using defaults")
		} else {
			settings = loaded
		}
	}

	state := repl.NewAppState(settings)

	fmt.Println("[Scanning for PostgreSQL instances...]")
	result := detector.Detect(context.Background())
	state.SetInstances(result.Instances)
	for _, err := range result.Errors {
		logger.Debug().Err(err).Msg("detection strategy failed")
	}
	fmt.Printf("[Found %d instance(s)]\n", len(state.Instances))
	fmt.Println()

	executor := repl.NewExecutor(state)

	if target != "" {
		tailArgs := target
		switch {
		case *since != "":
			tailArgs += " --since=" + *since
		case *fromStart:
			tailArgs += " --from-start"
		}
		if out := executor.Execute("tail " + tailArgs); out != "" {
			fmt.Println(out)
		}
	}

	p := prompt.New(
		makeExecutor(executor),
		makeCompleter(state),
		prompt.OptionPrefix("pgtail> "),
		prompt.OptionLivePrefix(makeLivePrefix(state)),
		prompt.OptionTitle("pgtail"),
		prompt.OptionHistory(loadHistory()),
		prompt.OptionPrefixTextColor(prompt.Cyan),
		prompt.OptionPreviewSuggestionTextColor(prompt.Blue),
		prompt.OptionSelectedSuggestionBGColor(prompt.LightGray),
		prompt.OptionSuggestionBGColor(prompt.DarkGray),
		prompt.OptionAddASCIICodeBind(
			prompt.ASCIICodeBind{
				ASCIICode: []byte{'!'},
				Fn: func(buf *prompt.Buffer) {
					if buf.Text() == "" {
						shellMode = true
					} else {
						buf.InsertText("!", false, true)
					}
				},
			},
		),
		prompt.OptionAddKeyBind(
			prompt.KeyBind{
				Key: prompt.Escape,
				Fn: func(buf *prompt.Buffer) {
					shellMode = false
				},
			},
			prompt.KeyBind{
				Key: prompt.Backspace,
				Fn: func(buf *prompt.Buffer) {
					if shellMode && buf.Text() == "" {
						shellMode = false
					}
				},
			},
			prompt.KeyBind{
				Key: prompt.ControlC,
				Fn: func(buf *prompt.Buffer) {
					shellMode = false
					if state.Tailing {
						executor.Execute("stop")
						fmt.Println()
					}
				},
			},
		),
	)

	p.Run()
}

func printHelp() {
	fmt.Println(`pgtail - PostgreSQL log tailer

Usage:
  pgtail [flags]

Flags:
  -h, --help      Show this help message
  -v, --version   Show version information

Run 'help' inside the REPL for the full command list.`)
}

func makeExecutor(executor *repl.Executor) func(string) {
	return func(input string) {
		raw := input
		input = strings.TrimSpace(input)

		if input == "" {
			return
		}

		saveHistory(raw)

		if shellMode {
			shellMode = false
			runShell(input)
			return
		}

		if strings.ToLower(input) == "q" && executor.State.Tailing {
			input = "stop"
		}

		out := executor.Execute(input)
		if out != "" {
			fmt.Println(out)
		}
	}
}

func makeCompleter(state *repl.AppState) func(prompt.Document) []prompt.Suggest {
	return func(d prompt.Document) []prompt.Suggest {
		text := d.TextBeforeCursor()
		if text == "" {
			return nil
		}

		words := strings.Fields(text)
		if len(words) == 0 {
			return nil
		}

		if len(words) == 1 && !strings.HasSuffix(text, " ") {
			commands := []prompt.Suggest{
				{Text: "list", Description: "Show detected PostgreSQL instances"},
				{Text: "tail", Description: "Tail logs for an instance"},
				{Text: "follow", Description: "Alias for tail"},
				{Text: "stop", Description: "Stop current tail"},
				{Text: "refresh", Description: "Re-scan for instances"},
				{Text: "levels", Description: "Set log level filter"},
				{Text: "filter", Description: "Set message pattern filter"},
				{Text: "since", Description: "Show entries since a time"},
				{Text: "until", Description: "Show entries until a time"},
				{Text: "between", Description: "Show entries within a time range"},
				{Text: "slow", Description: "Show or set slow-query thresholds"},
				{Text: "stats", Description: "Show duration statistics"},
				{Text: "errors", Description: "Show SQLSTATE error statistics"},
				{Text: "notify", Description: "Configure notifications"},
				{Text: "config", Description: "Show or save settings"},
				{Text: "enable-logging", Description: "Enable logging for an instance"},
				{Text: "clear", Description: "Clear screen"},
				{Text: "help", Description: "Show help"},
				{Text: "quit", Description: "Exit pgtail"},
				{Text: "exit", Description: "Exit pgtail"},
			}
			return prompt.FilterHasPrefix(commands, words[0], true)
		}

		switch strings.ToLower(words[0]) {
		case "tail", "follow", "enable-logging":
			return suggestInstances(state)
		case "levels":
			return suggestLevels(words[1:])
		case "notify":
			return suggestNotifySubcommands(words[1:])
		case "config":
			return suggestConfigSubcommands(words[1:])
		}

		return nil
	}
}

func suggestInstances(state *repl.AppState) []prompt.Suggest {
	var suggestions []prompt.Suggest
	for i, inst := range state.Instances {
		suggestions = append(suggestions, prompt.Suggest{
			Text:        fmt.Sprintf("%d", i),
			Description: inst.DataDir,
		})
	}
	return suggestions
}

func suggestLevels(alreadyUsed []string) []prompt.Suggest {
	used := make(map[string]bool)
	for _, l := range alreadyUsed {
		used[strings.ToUpper(l)] = true
	}

	var suggestions []prompt.Suggest
	for _, name := range logentry.AllLevels() {
		if !used[name] {
			suggestions = append(suggestions, prompt.Suggest{Text: name})
		}
	}
	return suggestions
}

func suggestNotifySubcommands(args []string) []prompt.Suggest {
	if len(args) > 1 {
		return nil
	}
	return []prompt.Suggest{
		{Text: "on"}, {Text: "off"}, {Text: "level"}, {Text: "pattern"},
		{Text: "rate"}, {Text: "slow"}, {Text: "quiet"}, {Text: "rules"},
		{Text: "clear"}, {Text: "test"},
	}
}

func suggestConfigSubcommands(args []string) []prompt.Suggest {
	if len(args) > 1 {
		return nil
	}
	return []prompt.Suggest{{Text: "show"}, {Text: "save"}, {Text: "path"}}
}

func makeLivePrefix(state *repl.AppState) func() (string, bool) {
	return func() (string, bool) {
		if shellMode {
			return "! ", true
		}

		prefix := "pgtail"

		if state.CurrentIndex >= 0 {
			prefix += fmt.Sprintf("[%d]", state.CurrentIndex)
		}
		if state.Filter.IsActive() {
			prefix += "*"
		}

		prefix += "> "
		return prefix, true
	}
}

func runShell(cmdLine string) {
	if cmdLine == "" {
		return
	}
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/c", cmdLine)
	} else {
		cmd = exec.Command("sh", "-c", cmdLine)
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	_ = cmd.Run()
}
