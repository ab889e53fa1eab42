package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/willibrandon/pgtail/internal/logentry"
)

// styleForLevel returns the lipgloss style used to render a given
// severity, falling back to the LogDebug style for the DEBUG levels and
// anything not explicitly called out.
func styleForLevel(level logentry.Level) lipgloss.Style {
	switch level {
	case logentry.LevelPanic:
		return LogPanic
	case logentry.LevelFatal:
		return LogFatal
	case logentry.LevelError:
		return LogError
	case logentry.LevelWarning:
		return LogWarning
	case logentry.LevelNotice:
		return LogNotice
	case logentry.LevelInfo:
		return LogInfo
	case logentry.LevelLog:
		return LogLog
	default:
		return LogDebug
	}
}

// Renderer formats parsed log entries for terminal display according to
// a set of display preferences, decoupling the REPL's tail loop from
// any particular theme or field layout.
type Renderer struct {
	TimestampFormat string
	ShowPID         bool
	ShowLevel       bool
	Color           bool
}

// NewRenderer returns a Renderer with pgtail's default field layout,
// colorizing output only when the terminal supports it.
func NewRenderer() *Renderer {
	return &Renderer{
		TimestampFormat: "15:04:05",
		ShowPID:         true,
		ShowLevel:       true,
		Color:           ColorEnabled(),
	}
}

func (r *Renderer) render(style lipgloss.Style, s string) string {
	if !r.Color {
		return s
	}
	return style.Render(s)
}

// RenderEntry formats entry as one display line (continuation lines are
// indented rather than repeating the timestamp/pid/level prefix).
func (r *Renderer) RenderEntry(entry *logentry.Entry) string {
	if entry.IsContinuation {
		return "  " + r.render(styleForLevel(entry.Level), entry.Message)
	}

	var b strings.Builder

	if !entry.Timestamp.IsZero() {
		b.WriteString(r.render(Muted, entry.Timestamp.Format(r.TimestampFormat)))
		b.WriteByte(' ')
	}

	if r.ShowPID && entry.PID != 0 {
		b.WriteString(r.render(Muted, fmt.Sprintf("[%d]", entry.PID)))
		b.WriteByte(' ')
	}

	if r.ShowLevel {
		b.WriteString(r.render(styleForLevel(entry.Level), entry.Level.Short()))
		b.WriteByte(' ')
	}

	b.WriteString(entry.Message)

	if entry.SlowClass != logentry.ClassificationNone {
		b.WriteByte(' ')
		b.WriteString(r.renderSlowBadge(entry.SlowClass))
	}

	return b.String()
}

func (r *Renderer) renderSlowBadge(class logentry.Classification) string {
	switch class {
	case logentry.ClassificationCritical:
		return r.render(Error, "[CRITICAL]")
	case logentry.ClassificationSlow:
		return r.render(Warning, "[SLOW]")
	case logentry.ClassificationWarning:
		return r.render(Info, "[WARN]")
	default:
		return ""
	}
}
