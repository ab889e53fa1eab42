// Package notify evaluates log entries against configured notification
// rules and dispatches matches through a pluggable Notifier.
package notify

import (
	"fmt"
	"regexp"
	"time"

	"github.com/willibrandon/pgtail/internal/logentry"
)

// RuleKind identifies which concrete rule a Rule wraps.
type RuleKind int

const (
	KindLevel RuleKind = iota
	KindPattern
	KindRate
	KindSlow
)

// Rule is a tagged union over the four rule shapes SPEC_FULL.md names.
// Exactly the field matching Kind is meaningful.
type Rule struct {
	Kind RuleKind

	// Level: fire for entries whose severity class (Level.Class) is at or
	// above this level's, so LOG, which sorts after ERROR in Level order
	// but is a low-severity class, does not trip an ERROR rule.
	Level logentry.Level

	// Pattern: fire for entries whose message matches this regex.
	Pattern        *regexp.Regexp
	PatternSource  string

	// Rate: fire when more than Threshold matching entries (matching
	// PatternSource if set, else any entry) occur within Window.
	Threshold int
	Window    time.Duration

	// Slow: fire for entries classified at or above this severity by
	// the analyzer.
	SlowClass logentry.Classification
}

// LevelRule builds a Rule that fires for entries whose severity class is
// at or above level's.
func LevelRule(level logentry.Level) Rule {
	return Rule{Kind: KindLevel, Level: level}
}

// PatternRule builds a Rule that fires when an entry's message matches
// pattern.
func PatternRule(pattern string) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid pattern: %w", err)
	}
	return Rule{Kind: KindPattern, Pattern: re, PatternSource: pattern}, nil
}

// RateRule builds a Rule that fires once more than threshold entries
// occur within window.
func RateRule(threshold int, window time.Duration) Rule {
	return Rule{Kind: KindRate, Threshold: threshold, Window: window}
}

// SlowRule builds a Rule that fires for entries classified at or above
// class by the analyzer.
func SlowRule(class logentry.Classification) Rule {
	return Rule{Kind: KindSlow, SlowClass: class}
}

// matches reports whether entry satisfies a non-rate rule's own
// criterion, ignoring rate-limiting state (handled separately by Engine).
func (r Rule) matches(entry *logentry.Entry) bool {
	switch r.Kind {
	case KindLevel:
		return entry.Level.Class() >= r.Level.Class()
	case KindPattern:
		return r.Pattern.MatchString(entry.Message)
	case KindSlow:
		return entry.SlowClass >= r.SlowClass
	default:
		return false
	}
}

// String renders a human-readable description, used by the REPL's
// `notify rules` listing.
func (r Rule) String() string {
	switch r.Kind {
	case KindLevel:
		return fmt.Sprintf("level >= %s", r.Level)
	case KindPattern:
		return fmt.Sprintf("pattern %q", r.PatternSource)
	case KindRate:
		return fmt.Sprintf("rate > %d per %s", r.Threshold, r.Window)
	case KindSlow:
		return fmt.Sprintf("slow >= %s", r.SlowClass)
	default:
		return "unknown rule"
	}
}
