package repl

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// cmdSlow shows or updates the slow-query thresholds.
func (e *Executor) cmdSlow(args []string) string {
	if len(args) == 0 || strings.ToLower(args[0]) == "show" {
		c := e.State.SlowConfig
		return fmt.Sprintf("Slow query thresholds: warning=%.0fms slow=%.0fms critical=%.0fms",
			c.WarningMs, c.SlowMs, c.CriticalMs)
	}

	if len(args) < 2 {
		return "Usage: slow warn|slow|critical <ms>"
	}

	ms, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Sprintf("Invalid duration: %s", args[1])
	}

	next := e.State.SlowConfig
	switch strings.ToLower(args[0]) {
	case "warn", "warning":
		next.WarningMs = ms
	case "slow":
		next.SlowMs = ms
	case "critical":
		next.CriticalMs = ms
	default:
		return "Usage: slow warn|slow|critical <ms>"
	}

	if err := next.Validate(); err != nil {
		return err.Error()
	}
	e.State.SlowConfig = next
	return fmt.Sprintf("Updated: warning=%.0fms slow=%.0fms critical=%.0fms", next.WarningMs, next.SlowMs, next.CriticalMs)
}

// cmdStats shows or resets duration statistics.
func (e *Executor) cmdStats(args []string) string {
	if len(args) > 0 && strings.ToLower(args[0]) == "reset" {
		e.State.DurationStats.Reset()
		return "Duration statistics cleared."
	}

	s := e.State.DurationStats.Summarize()
	if s.Count == 0 {
		return "No statement durations recorded yet."
	}

	return fmt.Sprintf(
		"count=%d avg=%.1fms p50=%.1fms p95=%.1fms p99=%.1fms max=%.1fms",
		s.Count, s.Avg, s.P50, s.P95, s.P99, s.Max,
	)
}

// cmdErrors shows, queries, or clears SQLSTATE error statistics.
func (e *Executor) cmdErrors(args []string) string {
	if len(args) > 0 && strings.ToLower(args[0]) == "clear" {
		e.State.ErrorStats.Clear()
		return "Error statistics cleared."
	}

	var code string
	var since time.Time
	trend := false

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--code" && i+1 < len(args):
			code = args[i+1]
			i++
		case args[i] == "--since" && i+1 < len(args):
			d, err := time.ParseDuration(args[i+1])
			if err != nil {
				return fmt.Sprintf("Invalid duration: %s", args[i+1])
			}
			since = time.Now().Add(-d)
			i++
		case args[i] == "--trend":
			trend = true
		}
	}

	if trend {
		points := e.State.ErrorStats.Trend()
		if len(points) == 0 {
			return "No errors recorded yet."
		}
		var b strings.Builder
		for _, p := range points {
			fmt.Fprintf(&b, "%s  %d\n", p.Minute.Format("15:04"), p.Count)
		}
		return strings.TrimRight(b.String(), "\n")
	}

	if !since.IsZero() || code != "" {
		if since.IsZero() {
			since = time.Now().Add(-time.Hour)
		}
		count := e.State.ErrorStats.CountSince(since, code)
		if code != "" {
			return fmt.Sprintf("%s: %d occurrences since %s", code, count, since.Format("15:04:05"))
		}
		return fmt.Sprintf("%d total errors since %s", count, since.Format("15:04:05"))
	}

	totals := e.State.ErrorStats.TotalsByCode()
	if len(totals) == 0 {
		return "No errors recorded yet."
	}

	var b strings.Builder
	for _, t := range totals {
		fmt.Fprintf(&b, "%s  %d\n", t.Code, t.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}
