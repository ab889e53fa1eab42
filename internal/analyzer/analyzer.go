// Package analyzer classifies slow-query log entries against configured
// duration thresholds and tracks running duration statistics.
package analyzer

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/willibrandon/pgtail/internal/logentry"
)

// durationPattern matches PostgreSQL's "duration: N.NNN ms" log_duration
// / log_min_duration_statement output, in either milliseconds or, for
// very long-running statements, seconds.
var durationPattern = regexp.MustCompile(`duration:\s*(\d+(?:\.\d+)?)\s*(ms|s)\b`)

// ExtractDuration returns the statement duration in milliseconds found
// in message, and whether one was found at all.
func ExtractDuration(message string) (float64, bool) {
	match := durationPattern.FindStringSubmatch(message)
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	if match[2] == "s" {
		value *= 1000
	}
	return value, true
}

// SlowQueryConfig holds the three ascending thresholds (in milliseconds)
// used to classify a statement's duration.
type SlowQueryConfig struct {
	WarningMs  float64
	SlowMs     float64
	CriticalMs float64
}

// DefaultSlowQueryConfig matches common log_min_duration_statement
// tuning advice: flag anything over 100ms, call out 1s as slow, and 5s
// as critical.
func DefaultSlowQueryConfig() SlowQueryConfig {
	return SlowQueryConfig{WarningMs: 100, SlowMs: 1000, CriticalMs: 5000}
}

// Validate enforces the strict ascending invariant
// 0 < WarningMs < SlowMs < CriticalMs.
func (c SlowQueryConfig) Validate() error {
	if c.WarningMs <= 0 {
		return fmt.Errorf("warning threshold must be positive, got %v", c.WarningMs)
	}
	if !(c.WarningMs < c.SlowMs) {
		return fmt.Errorf("warning threshold (%v) must be less than slow threshold (%v)", c.WarningMs, c.SlowMs)
	}
	if !(c.SlowMs < c.CriticalMs) {
		return fmt.Errorf("slow threshold (%v) must be less than critical threshold (%v)", c.SlowMs, c.CriticalMs)
	}
	return nil
}

// Classify buckets a duration in milliseconds against cfg's thresholds.
func (c SlowQueryConfig) Classify(durationMs float64) logentry.Classification {
	switch {
	case durationMs >= c.CriticalMs:
		return logentry.ClassificationCritical
	case durationMs >= c.SlowMs:
		return logentry.ClassificationSlow
	case durationMs >= c.WarningMs:
		return logentry.ClassificationWarning
	default:
		return logentry.ClassificationNone
	}
}

// Annotate extracts a duration from entry's message (if present) and
// sets DurationMs/SlowClass in place, returning whether a duration was
// found at all.
func (c SlowQueryConfig) Annotate(entry *logentry.Entry) bool {
	ms, ok := ExtractDuration(entry.Message)
	if !ok {
		return false
	}
	entry.DurationMs = ms
	entry.SlowClass = c.Classify(ms)
	return true
}

// DurationStats accumulates statement durations and computes percentile
// summaries on demand via a sorted copy, which keeps the implementation
// simple and exact; this is only ever run over an in-memory session's
// samples, not a persistent high-volume stream, so the O(n log n) cost
// per report is acceptable.
type DurationStats struct {
	samples []float64
}

// NewDurationStats returns an empty stats accumulator.
func NewDurationStats() *DurationStats {
	return &DurationStats{}
}

// Add records a duration sample in milliseconds.
func (d *DurationStats) Add(durationMs float64) {
	d.samples = append(d.samples, durationMs)
}

// Count returns the number of recorded samples.
func (d *DurationStats) Count() int {
	return len(d.samples)
}

// Reset discards all recorded samples.
func (d *DurationStats) Reset() {
	d.samples = d.samples[:0]
}

// Summary is a point-in-time report of duration statistics.
type Summary struct {
	Count   int
	Avg     float64
	P50     float64
	P95     float64
	P99     float64
	Max     float64
}

// Summarize computes count/avg/p50/p95/p99/max over the recorded
// samples. An empty accumulator yields a zero-value Summary.
func (d *DurationStats) Summarize() Summary {
	n := len(d.samples)
	if n == 0 {
		return Summary{}
	}

	sorted := make([]float64, n)
	copy(sorted, d.samples)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	return Summary{
		Count: n,
		Avg:   sum / float64(n),
		P50:   percentile(sorted, 0.50),
		P95:   percentile(sorted, 0.95),
		P99:   percentile(sorted, 0.99),
		Max:   sorted[n-1],
	}
}

// percentile returns the value at fraction p (0..1) of a sorted slice
// using linear interpolation between the two nearest ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := p * float64(len(sorted)-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
