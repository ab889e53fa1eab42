package logentry

import "time"

// Classification is the slow-query bucket attached to an entry by the
// analyzer, zero value meaning "not classified".
type Classification int

const (
	ClassificationNone Classification = iota
	ClassificationWarning
	ClassificationSlow
	ClassificationCritical
)

func (c Classification) String() string {
	switch c {
	case ClassificationWarning:
		return "warning"
	case ClassificationSlow:
		return "slow"
	case ClassificationCritical:
		return "critical"
	default:
		return "none"
	}
}

// Entry is a parsed PostgreSQL log entry.
type Entry struct {
	// Timestamp is the parsed instant, zero-value if unparseable.
	Timestamp time.Time

	// TimestampText is the original timestamp text from the log line.
	TimestampText string

	// PID is the backend process ID, 0 if unknown.
	PID int

	// Level is the parsed severity; continuation lines inherit their
	// parent entry's level.
	Level Level

	// Message is the log message content (prefix stripped).
	Message string

	// Raw is the original, unparsed line.
	Raw string

	// IsContinuation is true when this entry is a continuation of the
	// previous one (e.g. a DETAIL/HINT/CONTEXT line).
	IsContinuation bool

	// DurationMs is the parsed "duration: N ms" value, if any (see
	// analyzer.ExtractDuration); 0 means none was found.
	DurationMs float64

	// SlowClass is set by the analyzer once DurationMs has been
	// classified against the active thresholds.
	SlowClass Classification

	// SQLSTATE is the extracted five-character error code, if any.
	SQLSTATE string
}
