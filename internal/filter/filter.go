// Package filter decides whether a parsed log entry should be shown,
// based on level, regex, and time criteria evaluated in a fixed,
// cheapest-first order: time, then level, then regex.
package filter

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/willibrandon/pgtail/internal/logentry"
)

// RegexFilter is one compiled `/pattern/[c]` token: case-insensitive
// unless the trailing `c` flag is present.
type RegexFilter struct {
	Source        string
	CaseSensitive bool
	Compiled      *regexp.Regexp
}

func newRegexFilter(pattern string, caseSensitive bool) (*RegexFilter, error) {
	toCompile := pattern
	if !caseSensitive {
		toCompile = "(?i)" + pattern
	}
	re, err := regexp.Compile(toCompile)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	return &RegexFilter{Source: pattern, CaseSensitive: caseSensitive, Compiled: re}, nil
}

// ParseToken parses a command token of the form `[+/-/&]/pattern/[c]` into
// an operator byte ('+', '-', or '&') and the regex it names.
func ParseToken(token string) (byte, *RegexFilter, error) {
	if len(token) < 1 {
		return 0, nil, fmt.Errorf("empty filter token")
	}

	op := byte('+')
	rest := token
	switch token[0] {
	case '+', '-', '&':
		op = token[0]
		rest = token[1:]
	}

	if len(rest) < 2 || rest[0] != '/' {
		return 0, nil, fmt.Errorf("filter token must look like [+/-/&]/pattern/[c], got %q", token)
	}

	closing := strings.LastIndexByte(rest, '/')
	if closing <= 0 {
		return 0, nil, fmt.Errorf("filter token must look like [+/-/&]/pattern/[c], got %q", token)
	}

	pattern := rest[1:closing]
	flags := rest[closing+1:]
	caseSensitive := strings.Contains(flags, "c")

	rf, err := newRegexFilter(pattern, caseSensitive)
	if err != nil {
		return 0, nil, err
	}
	return op, rf, nil
}

// State holds the active filter criteria for a tailing session. The
// zero value shows everything.
type State struct {
	// Levels, when non-empty, restricts entries to these levels. An
	// empty set means all levels pass.
	Levels map[logentry.Level]bool

	// Includes, Excludes, and Ands are three disjoint regex lists.
	// shouldShow(text) = (Includes empty OR any Include matches) AND
	// (no Exclude matches) AND (Ands empty OR all Ands match).
	Includes []*RegexFilter
	Excludes []*RegexFilter
	Ands     []*RegexFilter

	// Highlights marks patterns of interest without affecting
	// visibility; actual emphasis rendering is a UI concern.
	Highlights []*RegexFilter

	// Since and Until bound the entry's Timestamp, when non-zero.
	Since time.Time
	Until time.Time
}

// New returns a State with no restrictions.
func New() *State {
	return &State{}
}

// SetLevels replaces the level set. Passing no levels clears the filter.
func (s *State) SetLevels(levels ...logentry.Level) {
	if len(levels) == 0 {
		s.Levels = nil
		return
	}
	s.Levels = make(map[logentry.Level]bool, len(levels))
	for _, l := range levels {
		s.Levels[l] = true
	}
}

// AddInclude adds a regex to the include list.
func (s *State) AddInclude(pattern string, caseSensitive bool) error {
	rf, err := newRegexFilter(pattern, caseSensitive)
	if err != nil {
		return err
	}
	s.Includes = append(s.Includes, rf)
	return nil
}

// AddExclude adds a regex to the exclude list.
func (s *State) AddExclude(pattern string, caseSensitive bool) error {
	rf, err := newRegexFilter(pattern, caseSensitive)
	if err != nil {
		return err
	}
	s.Excludes = append(s.Excludes, rf)
	return nil
}

// AddAnd adds a regex to the and list.
func (s *State) AddAnd(pattern string, caseSensitive bool) error {
	rf, err := newRegexFilter(pattern, caseSensitive)
	if err != nil {
		return err
	}
	s.Ands = append(s.Ands, rf)
	return nil
}

// AddHighlight adds a regex to the highlight list.
func (s *State) AddHighlight(pattern string, caseSensitive bool) error {
	rf, err := newRegexFilter(pattern, caseSensitive)
	if err != nil {
		return err
	}
	s.Highlights = append(s.Highlights, rf)
	return nil
}

// ApplyToken parses and applies one `[+/-/&]/pattern/[c]` command token
// to the matching regex list.
func (s *State) ApplyToken(token string) error {
	op, rf, err := ParseToken(token)
	if err != nil {
		return err
	}
	switch op {
	case '+':
		s.Includes = append(s.Includes, rf)
	case '-':
		s.Excludes = append(s.Excludes, rf)
	case '&':
		s.Ands = append(s.Ands, rf)
	}
	return nil
}

// ClearRegex discards every include/exclude/and/highlight filter.
func (s *State) ClearRegex() {
	s.Includes = nil
	s.Excludes = nil
	s.Ands = nil
	s.Highlights = nil
}

// SetSince sets the lower time bound. A zero value clears it.
func (s *State) SetSince(t time.Time) {
	s.Since = t
}

// SetUntil sets the upper time bound. A zero value clears it.
func (s *State) SetUntil(t time.Time) {
	s.Until = t
}

// Clear resets all criteria.
func (s *State) Clear() {
	*s = State{}
}

// Allow reports whether entry passes every active criterion. Checks run
// cheapest first: a bare timestamp comparison, then a level set lookup,
// then (only if both pass) the regex composition.
func (s *State) Allow(entry *logentry.Entry) bool {
	return s.allowTime(entry) && s.allowLevel(entry) && s.allowRegex(entry)
}

func (s *State) allowTime(entry *logentry.Entry) bool {
	if !s.Since.IsZero() && entry.Timestamp.Before(s.Since) {
		return false
	}
	if !s.Until.IsZero() && entry.Timestamp.After(s.Until) {
		return false
	}
	return true
}

func (s *State) allowLevel(entry *logentry.Entry) bool {
	if len(s.Levels) == 0 {
		return true
	}
	return s.Levels[entry.Level]
}

// allowRegex implements shouldShow's regex predicate: (Includes empty OR
// any Include matches) AND (no Exclude matches) AND (Ands empty OR all
// Ands match).
func (s *State) allowRegex(entry *logentry.Entry) bool {
	if len(s.Includes) > 0 {
		matched := false
		for _, f := range s.Includes {
			if f.Compiled.MatchString(entry.Message) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, f := range s.Excludes {
		if f.Compiled.MatchString(entry.Message) {
			return false
		}
	}

	for _, f := range s.Ands {
		if !f.Compiled.MatchString(entry.Message) {
			return false
		}
	}

	return true
}

// IsActive reports whether any criterion is currently set, used by the
// REPL's `filter` status display to distinguish "no filter" from "filter
// matching everything".
func (s *State) IsActive() bool {
	return len(s.Levels) > 0 || len(s.Includes) > 0 || len(s.Excludes) > 0 ||
		len(s.Ands) > 0 || !s.Since.IsZero() || !s.Until.IsZero()
}
