package repl

import (
	"fmt"
	"strings"

	"github.com/willibrandon/pgtail/internal/config"
)

// cmdConfig dispatches the `config` subcommand table.
func (e *Executor) cmdConfig(args []string) string {
	if len(args) == 0 {
		return "Usage: config show|save|path"
	}

	switch strings.ToLower(args[0]) {
	case "show":
		return e.formatSettings()
	case "save":
		path, err := config.Path()
		if err != nil {
			return err.Error()
		}
		if err := config.Save(path, e.currentSettings()); err != nil {
			return err.Error()
		}
		return fmt.Sprintf("Settings saved to %s", path)
	case "path":
		path, err := config.Path()
		if err != nil {
			return err.Error()
		}
		return path
	default:
		return "Usage: config show|save|path"
	}
}

// currentSettings projects live session state back into the persisted
// Settings shape before a save.
func (e *Executor) currentSettings() config.Settings {
	s := e.State.Settings
	s.SlowWarningMs = e.State.SlowConfig.WarningMs
	s.SlowSlowMs = e.State.SlowConfig.SlowMs
	s.SlowCriticalMs = e.State.SlowConfig.CriticalMs
	return s
}

func (e *Executor) formatSettings() string {
	s := e.currentSettings()
	var b strings.Builder
	fmt.Fprintf(&b, "default_follow   = %v\n", s.DefaultFollow)
	fmt.Fprintf(&b, "slow_warning_ms  = %.0f\n", s.SlowWarningMs)
	fmt.Fprintf(&b, "slow_slow_ms     = %.0f\n", s.SlowSlowMs)
	fmt.Fprintf(&b, "slow_critical_ms = %.0f\n", s.SlowCriticalMs)
	fmt.Fprintf(&b, "theme            = %s\n", s.Theme.Name)
	fmt.Fprintf(&b, "show_pid         = %v\n", s.Display.ShowPID)
	fmt.Fprintf(&b, "show_level       = %v\n", s.Display.ShowLevel)
	return strings.TrimRight(b.String(), "\n")
}
