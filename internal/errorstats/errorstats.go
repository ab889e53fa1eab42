// Package errorstats aggregates ERROR/FATAL/PANIC log entries by
// SQLSTATE code over a rolling time window, for the REPL's `errors`
// command.
package errorstats

import (
	"regexp"
	"sort"
	"time"

	"github.com/willibrandon/pgtail/internal/logentry"
)

// sqlstatePattern matches PostgreSQL's "SQLSTATE: XXXXX" detail, which
// appears on a continuation line under verbose logging, as well as the
// inline "ERROR:  ... (SQLSTATE XXXXX)" form some drivers add.
var sqlstatePattern = regexp.MustCompile(`SQLSTATE:?\s*([0-9A-Z]{5})`)

// ExtractSQLSTATE returns the five-character SQLSTATE code found in
// message, if any.
func ExtractSQLSTATE(message string) (string, bool) {
	match := sqlstatePattern.FindStringSubmatch(message)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// bucketWindow is the rolling window width; windowCount buckets of this
// width give a 60-minute retention.
const (
	bucketWindow = time.Minute
	windowCount  = 60
)

// bucket counts occurrences within one minute-wide slot, keyed by
// SQLSTATE code.
type bucket struct {
	start time.Time
	codes map[string]int
	total int
}

// Tracker is a ring buffer of per-minute error counts, queryable by
// SQLSTATE code and time range.
type Tracker struct {
	buckets []bucket // ordered oldest to newest, len <= windowCount
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{}
}

// Record adds one occurrence of entry to the tracker if it is an
// ERROR/FATAL/PANIC level entry, bucketed by its timestamp (or now, if
// the entry has no parsed timestamp).
func (t *Tracker) Record(entry *logentry.Entry, now time.Time) {
	if entry.Level != logentry.LevelError && entry.Level != logentry.LevelFatal && entry.Level != logentry.LevelPanic {
		return
	}

	ts := entry.Timestamp
	if ts.IsZero() {
		ts = now
	}
	slot := ts.Truncate(bucketWindow)

	code, _ := ExtractSQLSTATE(entry.Message)
	if code == "" {
		code = "00000"
	}

	t.recordAt(slot, code)
	t.evict(now)
}

func (t *Tracker) recordAt(slot time.Time, code string) {
	for i := range t.buckets {
		if t.buckets[i].start.Equal(slot) {
			t.buckets[i].codes[code]++
			t.buckets[i].total++
			return
		}
	}
	t.buckets = append(t.buckets, bucket{
		start: slot,
		codes: map[string]int{code: 1},
		total: 1,
	})
	sort.Slice(t.buckets, func(i, j int) bool {
		return t.buckets[i].start.Before(t.buckets[j].start)
	})
}

// evict drops buckets older than windowCount minutes from now.
func (t *Tracker) evict(now time.Time) {
	cutoff := now.Truncate(bucketWindow).Add(-windowCount * bucketWindow)
	i := 0
	for i < len(t.buckets) && t.buckets[i].start.Before(cutoff) {
		i++
	}
	t.buckets = t.buckets[i:]
}

// CodeCount is one SQLSTATE code's total occurrence count.
type CodeCount struct {
	Code  string
	Count int
}

// TotalsByCode returns occurrence counts per SQLSTATE code across all
// retained buckets, most frequent first.
func (t *Tracker) TotalsByCode() []CodeCount {
	totals := make(map[string]int)
	for _, b := range t.buckets {
		for code, n := range b.codes {
			totals[code] += n
		}
	}

	result := make([]CodeCount, 0, len(totals))
	for code, n := range totals {
		result = append(result, CodeCount{Code: code, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Code < result[j].Code
	})
	return result
}

// CountSince returns the total error count at or after since, optionally
// restricted to a single SQLSTATE code (empty string means all codes).
func (t *Tracker) CountSince(since time.Time, code string) int {
	total := 0
	for _, b := range t.buckets {
		if b.start.Before(since.Truncate(bucketWindow)) {
			continue
		}
		if code == "" {
			total += b.total
			continue
		}
		total += b.codes[code]
	}
	return total
}

// TrendPoint is one minute's total error count, for the `errors --trend`
// display.
type TrendPoint struct {
	Minute time.Time
	Count  int
}

// Trend returns one TrendPoint per retained minute, oldest first.
func (t *Tracker) Trend() []TrendPoint {
	points := make([]TrendPoint, 0, len(t.buckets))
	for _, b := range t.buckets {
		points = append(points, TrendPoint{Minute: b.start, Count: b.total})
	}
	return points
}

// Clear discards all retained buckets.
func (t *Tracker) Clear() {
	t.buckets = nil
}
