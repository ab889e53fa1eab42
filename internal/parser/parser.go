// Package parser turns raw PostgreSQL log lines into structured entries.
//
// PostgreSQL's default log_line_prefix is close to "%t [%p] " or "%m [%p] ";
// this parser assumes that shape rather than consulting log_line_prefix
// from postgresql.conf (see SPEC_FULL.md §4.3's Open Question resolution).
// A single prefix pattern accepts both the space-separated default
// timestamp and an RFC3339-with-T %m.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/willibrandon/pgtail/internal/logentry"
)

// MaxLineLength is the longest line accepted before truncation, per
// SPEC_FULL.md §4.3.
const MaxLineLength = 64 * 1024

const truncationMarker = "...[truncated]"

// prefixPattern captures timestamp, pid, optional user=/db= label, level,
// and the remainder of the line as message.
var prefixPattern = regexp.MustCompile(
	`^(?P<ts>\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2}|\s+[A-Za-z]{2,5})?)\s+` +
		`\[(?P<pid>\d+)\]\s*` +
		`(?:(?P<label>\w+=[^\s:]*):?\s+)?` +
		`(?P<level>DEBUG[1-5]|INFO|NOTICE|WARNING|ERROR|LOG|FATAL|PANIC):\s*` +
		`(?P<msg>.*)$`,
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05.000 MST",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05.000-07:00",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
}

// Parser holds the state needed to attribute continuation lines (ones with
// no recognizable prefix) to the entry they belong to. Create one Parser
// per tailed file; it is not safe for concurrent use.
type Parser struct {
	last *logentry.Entry
}

// New returns a Parser with no prior entry.
func New() *Parser {
	return &Parser{}
}

// ParseLine parses a single line, which may be a continuation of the
// previously parsed entry. The returned Entry is always non-nil.
func (p *Parser) ParseLine(line string) *logentry.Entry {
	truncated := line
	if len(truncated) > MaxLineLength {
		truncated = truncated[:MaxLineLength-len(truncationMarker)] + truncationMarker
	}

	if isContinuation(truncated, p.last) {
		level := logentry.LevelLog
		if p.last != nil {
			level = p.last.Level
		}
		entry := &logentry.Entry{
			Level:          level,
			Message:        strings.TrimSpace(truncated),
			Raw:            truncated,
			IsContinuation: true,
		}
		// Continuation lines extend the logical entry they belong to but
		// are returned as distinct Entry values; callers that want a
		// single merged message should concatenate consumer-side.
		return entry
	}

	entry := parsePrefixed(truncated)
	p.last = entry
	return entry
}

// Reset clears continuation state, used when starting a new file after
// rotation so a leading continuation-shaped line in the new file is not
// mistakenly attributed to the old file's last entry.
func (p *Parser) Reset() {
	p.last = nil
}

// isContinuation reports whether line lacks a recognizable timestamp
// prefix and therefore belongs to the previous entry. A line is only
// ever a continuation when a previous entry exists; the very first line
// of a stream that fails to parse is instead an unparseable root entry.
func isContinuation(line string, last *logentry.Entry) bool {
	if last == nil {
		return false
	}
	if strings.HasPrefix(line, "\t") || strings.HasPrefix(line, " ") {
		return true
	}
	return !prefixPattern.MatchString(line)
}

// parsePrefixed parses a line that is expected to start a new entry. If
// the prefix regex fails to match, the line becomes a raw-only entry with
// LevelLog, per SPEC_FULL.md §4.3.
func parsePrefixed(line string) *logentry.Entry {
	match := prefixPattern.FindStringSubmatch(line)
	if match == nil {
		return &logentry.Entry{
			Level: logentry.LevelLog,
			Raw:   line,
		}
	}

	names := prefixPattern.SubexpNames()
	fields := make(map[string]string, len(names))
	for i, name := range names {
		if name != "" && i < len(match) {
			fields[name] = match[i]
		}
	}

	level, _ := logentry.ParseLevel(fields["level"])
	pid, _ := strconv.Atoi(fields["pid"])

	return &logentry.Entry{
		Timestamp:     parseTimestamp(fields["ts"]),
		TimestampText: fields["ts"],
		PID:           pid,
		Level:         level,
		Message:       fields["msg"],
		Raw:           line,
	}
}

// parseTimestamp tries each known layout in turn. A failure yields the
// zero time.Time without failing the overall parse, per SPEC_FULL.md §4.3.
func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ParseLine is a convenience wrapper for parsing a single line with no
// continuation context, e.g. in tests or one-off tooling.
func ParseLine(line string) *logentry.Entry {
	return New().ParseLine(line)
}
