package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/willibrandon/pgtail/internal/logentry"
)

// QuietHours suppresses all but Fatal+/critical-severity pattern
// notifications between Start and End, both expressed as minutes since
// midnight local time; a window that wraps past midnight (Start > End)
// is supported.
type QuietHours struct {
	Enabled bool
	Start   int // minutes since midnight
	End     int
}

// contains reports whether t's local time-of-day falls within the quiet
// window.
func (q QuietHours) contains(t time.Time) bool {
	if !q.Enabled {
		return false
	}
	minutes := t.Hour()*60 + t.Minute()
	if q.Start <= q.End {
		return minutes >= q.Start && minutes < q.End
	}
	return minutes >= q.Start || minutes < q.End
}

// Config holds an Engine's rule set, quiet-hours policy, and the global
// notification rate limit.
type Config struct {
	Rules      []Rule
	QuietHours QuietHours

	// RateLimitPerMinute caps the number of notifications Evaluate
	// dispatches per sliding minute, across every rule. Zero means no
	// limit. Dispatches beyond the cap are coalesced into a single
	// summary notification once the window clears.
	RateLimitPerMinute int
}

// rateState tracks a rate rule's recent match timestamps for its sliding
// window, plus whether a coalesced summary is owed once the window
// closes.
type rateState struct {
	hits      []time.Time
	suppressed int
}

// globalRateState enforces Config.RateLimitPerMinute across all rules,
// independent of any per-rule rateState.
type globalRateState struct {
	hits       []time.Time
	suppressed int
}

// Engine evaluates entries against a Config's rules and dispatches
// matches to a Notifier, applying quiet-hours suppression and rate-limit
// coalescing.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	notifier Notifier
	rates    map[int]*rateState // keyed by rule index
	global   globalRateState
}

// NewEngine returns an Engine dispatching through notifier.
func NewEngine(cfg Config, notifier Notifier) *Engine {
	return &Engine{
		cfg:      cfg,
		notifier: notifier,
		rates:    make(map[int]*rateState),
	}
}

// SetConfig replaces the rule set and quiet-hours policy, discarding any
// in-flight rate-limit state (a `notify` reconfiguration starts fresh).
func (e *Engine) SetConfig(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	e.rates = make(map[int]*rateState)
	e.global = globalRateState{}
}

// Evaluate checks entry against every configured rule at time now,
// dispatching a Notification for the first one that fires and is not
// suppressed by quiet hours, subject to the global rate limit.
func (e *Engine) Evaluate(entry *logentry.Entry, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evaluate(entry, now, false)
}

// Test evaluates entry the same way Evaluate does, but bypasses both
// quiet-hours and rate-limit suppression, so `notify test` always shows
// what a rule would say.
func (e *Engine) Test(entry *logentry.Entry, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evaluate(entry, now, true)
}

func (e *Engine) evaluate(entry *logentry.Entry, now time.Time, bypass bool) {
	quiet := !bypass && e.cfg.QuietHours.contains(now)

ruleLoop:
	for i, rule := range e.cfg.Rules {
		switch rule.Kind {
		case KindRate:
			if e.evaluateRate(i, rule, entry, now, quiet, bypass) {
				break ruleLoop
			}
		default:
			if !rule.matches(entry) {
				continue
			}
			if quiet && !overridesQuietHours(rule, entry) {
				continue
			}
			n := Notification{
				ID:    uuid.New(),
				Rule:  rule,
				Entry: entry,
				Text:  fmt.Sprintf("%s: %s", rule, entry.Message),
				Time:  now,
			}
			if bypass {
				e.dispatch(n)
			} else {
				e.dispatchRateLimited(n)
			}
			break ruleLoop
		}
	}
}

// overridesQuietHours implements the one documented exception: a
// pattern rule matching a Fatal-or-worse entry still fires during quiet
// hours.
func overridesQuietHours(rule Rule, entry *logentry.Entry) bool {
	return rule.Kind == KindPattern && entry.Level >= logentry.LevelFatal
}

// evaluateRate records entry against a rate rule and reports whether the
// rule fired and dispatched a notification.
func (e *Engine) evaluateRate(ruleIndex int, rule Rule, entry *logentry.Entry, now time.Time, quiet bool, bypass bool) bool {
	if rule.PatternSource != "" && !rule.Pattern.MatchString(entry.Message) {
		return false
	}

	st, ok := e.rates[ruleIndex]
	if !ok {
		st = &rateState{}
		e.rates[ruleIndex] = st
	}

	st.hits = append(st.hits, now)
	cutoff := now.Add(-rule.Window)
	kept := st.hits[:0]
	for _, h := range st.hits {
		if h.After(cutoff) {
			kept = append(kept, h)
		}
	}
	st.hits = kept

	if len(st.hits) <= rule.Threshold {
		return false
	}

	if quiet {
		st.suppressed++
		return false
	}

	text := fmt.Sprintf("%s: %d matches in %s", rule, len(st.hits), rule.Window)
	if st.suppressed > 0 {
		text = fmt.Sprintf("%s (plus %d suppressed during quiet hours)", text, st.suppressed)
		st.suppressed = 0
	}

	n := Notification{ID: uuid.New(), Rule: rule, Entry: entry, Text: text, Time: now}
	if bypass {
		e.dispatch(n)
	} else {
		e.dispatchRateLimited(n)
	}
	st.hits = nil
	return true
}

// dispatchRateLimited applies Config.RateLimitPerMinute across every
// rule before handing n to the notifier. Once the sliding one-minute
// window holding n.Time is full, n is counted as suppressed instead of
// dispatched; the accumulated suppressed count is flushed as a single
// summary notification the next time the window has fully cleared.
func (e *Engine) dispatchRateLimited(n Notification) {
	limit := e.cfg.RateLimitPerMinute
	if limit <= 0 {
		e.dispatch(n)
		return
	}

	now := n.Time
	cutoff := now.Add(-time.Minute)
	kept := e.global.hits[:0]
	for _, h := range e.global.hits {
		if h.After(cutoff) {
			kept = append(kept, h)
		}
	}
	e.global.hits = kept

	if len(e.global.hits) == 0 && e.global.suppressed > 0 {
		e.flushRateLimitSummary(now)
	}

	if len(e.global.hits) < limit {
		e.dispatch(n)
		e.global.hits = append(e.global.hits, now)
		return
	}

	e.global.suppressed++
}

// FlushRateLimit forces any pending rate-limit summary to dispatch as of
// now, regardless of whether the sliding window has cleared on its own.
// Call it once traffic has quieted down, e.g. from a periodic tick.
func (e *Engine) FlushRateLimit(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushRateLimitSummary(now)
}

func (e *Engine) flushRateLimitSummary(now time.Time) {
	if e.global.suppressed == 0 {
		return
	}
	text := fmt.Sprintf("%d additional events suppressed by rate limit", e.global.suppressed)
	e.dispatch(Notification{ID: uuid.New(), Entry: &logentry.Entry{Message: text}, Text: text, Time: now})
	e.global.suppressed = 0
}

func (e *Engine) dispatch(n Notification) {
	// Notify errors are dropped, not retried or surfaced.
	_ = e.notifier.Notify(n)
}
