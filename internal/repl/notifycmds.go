package repl

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/willibrandon/pgtail/internal/logentry"
	"github.com/willibrandon/pgtail/internal/notify"
)

// notifyState carries the rule list and quiet hours outside
// notify.Config's value semantics so subcommands can mutate them
// incrementally; they are pushed into the Engine via SetConfig on every
// change.
type notifyState struct {
	enabled bool
	rules   []notify.Rule
	quiet   notify.QuietHours
}

// notifyState lazily attaches per-session notify state, since
// AppState is constructed before notify rules exist.
func (e *Executor) notifyState() *notifyState {
	if e.State.notifyState == nil {
		e.State.notifyState = &notifyState{}
	}
	return e.State.notifyState
}

func (e *Executor) applyNotifyConfig() {
	ns := e.notifyState()
	if !ns.enabled {
		e.State.NotifyEngine.SetConfig(notify.Config{})
		return
	}
	e.State.NotifyEngine.SetConfig(notify.Config{Rules: ns.rules, QuietHours: ns.quiet})
}

// cmdNotify dispatches the `notify` subcommand table.
func (e *Executor) cmdNotify(args []string) string {
	if len(args) == 0 {
		return "Usage: notify on|off|level|pattern|rate|slow|quiet|rules|clear|test"
	}

	ns := e.notifyState()

	switch strings.ToLower(args[0]) {
	case "on":
		ns.enabled = true
		e.applyNotifyConfig()
		return "Notifications enabled."
	case "off":
		ns.enabled = false
		e.applyNotifyConfig()
		return "Notifications disabled."
	case "level":
		if len(args) < 2 {
			return "Usage: notify level <LEVEL>"
		}
		lvl, ok := logentry.ParseLevel(args[1])
		if !ok {
			return fmt.Sprintf("Unknown level: %s", args[1])
		}
		ns.rules = append(ns.rules, notify.LevelRule(lvl))
		e.applyNotifyConfig()
		return fmt.Sprintf("Added rule: level >= %s", lvl)
	case "pattern":
		if len(args) < 2 {
			return "Usage: notify pattern <regex>"
		}
		pattern := strings.Join(args[1:], " ")
		rule, err := notify.PatternRule(pattern)
		if err != nil {
			return err.Error()
		}
		ns.rules = append(ns.rules, rule)
		e.applyNotifyConfig()
		return fmt.Sprintf("Added rule: pattern %q", pattern)
	case "rate":
		if len(args) < 3 {
			return "Usage: notify rate <n> <duration>"
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Sprintf("Invalid count: %s", args[1])
		}
		window, err := time.ParseDuration(args[2])
		if err != nil {
			return fmt.Sprintf("Invalid duration: %s", args[2])
		}
		ns.rules = append(ns.rules, notify.RateRule(n, window))
		e.applyNotifyConfig()
		return fmt.Sprintf("Added rule: rate > %d per %s", n, window)
	case "slow":
		if len(args) < 2 {
			return "Usage: notify slow warning|slow|critical"
		}
		class, ok := parseClassification(args[1])
		if !ok {
			return fmt.Sprintf("Unknown slow class: %s", args[1])
		}
		ns.rules = append(ns.rules, notify.SlowRule(class))
		e.applyNotifyConfig()
		return fmt.Sprintf("Added rule: slow >= %s", class)
	case "quiet":
		if len(args) < 3 {
			return "Usage: notify quiet <start HH:MM> <end HH:MM>"
		}
		start, err := parseClockMinutes(args[1])
		if err != nil {
			return err.Error()
		}
		end, err := parseClockMinutes(args[2])
		if err != nil {
			return err.Error()
		}
		ns.quiet = notify.QuietHours{Enabled: true, Start: start, End: end}
		e.applyNotifyConfig()
		return fmt.Sprintf("Quiet hours set: %s - %s", args[1], args[2])
	case "rules":
		if len(ns.rules) == 0 {
			return "No notification rules configured."
		}
		var b strings.Builder
		for i, r := range ns.rules {
			fmt.Fprintf(&b, "%d: %s\n", i, r)
		}
		return strings.TrimRight(b.String(), "\n")
	case "clear":
		ns.rules = nil
		ns.quiet = notify.QuietHours{}
		e.applyNotifyConfig()
		return "Notification rules cleared."
	case "test":
		e.State.Recording.Clear()
		sample := &logentry.Entry{Level: logentry.LevelError, Message: "sample notification test entry"}
		e.State.NotifyEngine.Test(sample, time.Now())
		if len(e.State.Recording.Notifications) == 0 {
			return "No rule matched the sample entry."
		}
		var b strings.Builder
		for _, n := range e.State.Recording.Notifications {
			fmt.Fprintln(&b, n.Text)
		}
		return strings.TrimRight(b.String(), "\n")
	default:
		return "Usage: notify on|off|level|pattern|rate|slow|quiet|rules|clear|test"
	}
}

func parseClassification(s string) (logentry.Classification, bool) {
	switch strings.ToLower(s) {
	case "warning":
		return logentry.ClassificationWarning, true
	case "slow":
		return logentry.ClassificationSlow, true
	case "critical":
		return logentry.ClassificationCritical, true
	default:
		return logentry.ClassificationNone, false
	}
}

func parseClockMinutes(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
