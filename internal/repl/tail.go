package repl

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/willibrandon/pgtail/internal/parser"
	"github.com/willibrandon/pgtail/internal/tailer"
	"github.com/willibrandon/pgtail/internal/ui"
)

// cmdTail resolves args[0] (an instance index or a raw log directory
// path) and starts tailing it in the background, writing rendered
// entries to e.Output until stopped.
func (e *Executor) cmdTail(args []string) string {
	if len(args) == 0 {
		return "Usage: tail <id|path> [--since=<duration>] [--from-start]"
	}

	var logDir, logPattern string
	since := time.Time{}

	for _, a := range args[1:] {
		switch {
		case a == "--from-start":
			since = time.Unix(1, 0)
		default:
			if d, ok := parseSinceFlag(a); ok {
				since = time.Now().Add(-d)
			}
		}
	}

	if idx, err := strconv.Atoi(args[0]); err == nil {
		if !e.State.SelectInstance(idx) {
			return fmt.Sprintf("No instance with index %d. Run 'list' to see available instances.", idx)
		}
		inst := e.State.CurrentInstance()
		logDir = inst.LogDir
		logPattern = inst.LogPattern
	} else if idx, ok := e.findInstanceByPathSubstring(args[0]); ok {
		e.State.SelectInstance(idx)
		inst := e.State.CurrentInstance()
		logDir = inst.LogDir
		logPattern = inst.LogPattern
	} else {
		logDir = args[0]
	}

	e.State.StopTailing()

	tl, err := tailer.New(tailer.Config{LogDir: logDir, LogPattern: logPattern})
	if err != nil {
		return ui.RenderError(err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := tl.Start(ctx, since); err != nil {
		cancel()
		return ui.RenderError(err.Error())
	}

	e.State.TailCancel = cancel
	e.State.Tailing = true

	go e.runTailLoop(ctx, tl)

	return ui.RenderInfo(fmt.Sprintf("Tailing %s", tl.CurrentFile()))
}

// cmdStop stops the active tail, if any.
func (e *Executor) cmdStop() string {
	if !e.State.Tailing {
		return "Not currently tailing."
	}
	e.State.StopTailing()
	return ui.RenderInfo("Stopped tailing")
}

// runTailLoop is the per-session pipeline: Tailer -> Parser -> filter
// (time -> level -> regex) -> slow-query annotation -> stats -> notify ->
// render. A filter miss short-circuits every downstream stage, including
// stats and notify. It runs until ctx is cancelled or the tailer's line
// channel closes.
func (e *Executor) runTailLoop(ctx context.Context, tl *tailer.Tailer) {
	p := parser.New()
	renderer := ui.NewRenderer()
	display := e.State.Settings.Display
	if display.TimestampFormat != "" {
		renderer.TimestampFormat = display.TimestampFormat
	}
	renderer.ShowPID = display.ShowPID
	renderer.ShowLevel = display.ShowLevel

	for {
		select {
		case <-ctx.Done():
			tl.Stop()
			return
		case line, ok := <-tl.Lines():
			if !ok {
				return
			}
			entry := p.ParseLine(line.Text)

			if !e.State.Filter.Allow(entry) {
				continue
			}

			if !entry.IsContinuation {
				e.State.SlowConfig.Annotate(entry)
				if entry.DurationMs > 0 {
					e.State.DurationStats.Add(entry.DurationMs)
				}
				e.State.ErrorStats.Record(entry, time.Now())
				e.State.NotifyEngine.Evaluate(entry, time.Now())
			}

			fmt.Fprintln(e.Output, renderer.RenderEntry(entry))
		case err, ok := <-tl.Errors():
			if !ok {
				continue
			}
			fmt.Fprintln(e.Output, ui.RenderWarning(err.Error()))
		}
	}
}

// findInstanceByPathSubstring matches a non-numeric tail argument against
// known instances' data directories, so `tail 16main` works without
// requiring the exact list index.
func (e *Executor) findInstanceByPathSubstring(arg string) (int, bool) {
	arg = strings.ToLower(arg)
	match := -1
	for i, inst := range e.State.Instances {
		if strings.Contains(strings.ToLower(inst.DataDir), arg) {
			if match != -1 {
				return 0, false
			}
			match = i
		}
	}
	if match == -1 {
		return 0, false
	}
	return match, true
}

// parseSinceFlag parses a "--since=<duration>" argument.
func parseSinceFlag(arg string) (time.Duration, bool) {
	const prefix = "--since="
	if len(arg) <= len(prefix) || arg[:len(prefix)] != prefix {
		return 0, false
	}
	d, err := time.ParseDuration(arg[len(prefix):])
	if err != nil {
		return 0, false
	}
	return d, true
}
