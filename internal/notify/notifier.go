package notify

import (
	"os/exec"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/willibrandon/pgtail/internal/logentry"
)

// Notification is one rule match ready for delivery. ID uniquely
// identifies a single dispatch; LogNotifier records it as the "id"
// field so repeats of the same rule can be told apart.
type Notification struct {
	ID    uuid.UUID
	Rule  Rule
	Entry *logentry.Entry
	Text  string
	Time  time.Time
}

// Notifier delivers a Notification somewhere: a log sink, an external
// command, or (in tests) an in-memory slice.
type Notifier interface {
	Notify(n Notification) error
}

// LogNotifier writes notifications through a structured logger.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier returns a LogNotifier writing through logger.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(note Notification) error {
	n.logger.Warn().
		Str("id", note.ID.String()).
		Str("rule", note.Rule.String()).
		Str("message", note.Entry.Message).
		Time("time", note.Time).
		Msg(note.Text)
	return nil
}

// CommandNotifier runs an external command for each notification,
// passing the rendered text as its final argument, for integration with
// desktop notifiers (terminal-notifier, notify-send) or webhooks.
type CommandNotifier struct {
	Command string
	Args    []string
}

// NewCommandNotifier returns a CommandNotifier invoking command with
// args, appending the notification text as a final argument.
func NewCommandNotifier(command string, args ...string) *CommandNotifier {
	return &CommandNotifier{Command: command, Args: args}
}

func (n *CommandNotifier) Notify(note Notification) error {
	args := append(append([]string{}, n.Args...), note.Text)
	cmd := exec.Command(n.Command, args...)
	return cmd.Run()
}

// RecordingNotifier stores every notification it receives, used by
// tests and the REPL's `notify test` command to show what would fire
// without actually dispatching it externally.
type RecordingNotifier struct {
	Notifications []Notification
}

// NewRecordingNotifier returns an empty RecordingNotifier.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) Notify(note Notification) error {
	n.Notifications = append(n.Notifications, note)
	return nil
}

// Clear discards all recorded notifications.
func (n *RecordingNotifier) Clear() {
	n.Notifications = nil
}
