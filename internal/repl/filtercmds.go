package repl

import (
	"fmt"
	"strings"
	"time"

	"github.com/willibrandon/pgtail/internal/filter"
	"github.com/willibrandon/pgtail/internal/logentry"
)

// cmdLevels sets or clears the active level filter.
func (e *Executor) cmdLevels(args []string) string {
	if len(args) == 0 {
		e.State.Filter.SetLevels()
		return "Level filter cleared."
	}

	levels := make([]logentry.Level, 0, len(args))
	for _, a := range args {
		lvl, ok := logentry.ParseLevel(a)
		if !ok {
			return fmt.Sprintf("Unknown level: %s. Valid levels: %s", a, strings.Join(logentry.AllLevels(), " "))
		}
		levels = append(levels, lvl)
	}

	e.State.Filter.SetLevels(levels...)
	return fmt.Sprintf("Showing levels: %s", strings.Join(args, " "))
}

// cmdFilter manages the regex filter state: `filter +/re/[c]` adds an
// include, `-/re/[c]` an exclude, `&/re/[c]` an and-term, and `filter
// clear` discards all three lists.
func (e *Executor) cmdFilter(args []string) string {
	if len(args) == 0 {
		return e.formatRegexFilter()
	}

	if strings.ToLower(args[0]) == "clear" {
		e.State.Filter.ClearRegex()
		return "Regex filters cleared."
	}

	var applied []string
	for _, token := range args {
		if err := e.State.Filter.ApplyToken(token); err != nil {
			return err.Error()
		}
		applied = append(applied, token)
	}
	return fmt.Sprintf("Applied: %s", strings.Join(applied, " "))
}

// formatRegexFilter summarizes the current include/exclude/and lists.
func (e *Executor) formatRegexFilter() string {
	f := e.State.Filter
	if len(f.Includes) == 0 && len(f.Excludes) == 0 && len(f.Ands) == 0 {
		return "No active regex filters."
	}

	var b strings.Builder
	writeList := func(label string, list []*filter.RegexFilter) {
		if len(list) == 0 {
			return
		}
		sources := make([]string, len(list))
		for i, f := range list {
			sources[i] = "/" + f.Source + "/"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, strings.Join(sources, " "))
	}
	writeList("include", f.Includes)
	writeList("exclude", f.Excludes)
	writeList("and", f.Ands)
	return strings.TrimRight(b.String(), "\n")
}

// cmdSince sets the filter's lower time bound.
func (e *Executor) cmdSince(args []string) string {
	if len(args) == 0 {
		return "Usage: since <time>"
	}
	t, err := parseTimeArg(strings.Join(args, " "))
	if err != nil {
		return err.Error()
	}
	e.State.Filter.SetSince(t)
	return fmt.Sprintf("Showing entries since %s", t.Format(time.RFC3339))
}

// cmdUntil sets the filter's upper time bound.
func (e *Executor) cmdUntil(args []string) string {
	if len(args) == 0 {
		return "Usage: until <time>"
	}
	t, err := parseTimeArg(strings.Join(args, " "))
	if err != nil {
		return err.Error()
	}
	e.State.Filter.SetUntil(t)
	return fmt.Sprintf("Showing entries until %s", t.Format(time.RFC3339))
}

// cmdBetween sets both time bounds at once.
func (e *Executor) cmdBetween(args []string) string {
	if len(args) < 2 {
		return "Usage: between <start> <end>"
	}
	start, err := parseTimeArg(args[0])
	if err != nil {
		return err.Error()
	}
	end, err := parseTimeArg(args[1])
	if err != nil {
		return err.Error()
	}
	e.State.Filter.SetSince(start)
	e.State.Filter.SetUntil(end)
	return fmt.Sprintf("Showing entries between %s and %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
}

// timeLayouts are tried in order when parsing a user-supplied time
// argument; a bare duration like "10m" is also accepted and is
// interpreted relative to now.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"15:04:05",
	"15:04",
}

func parseTimeArg(s string) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return time.Now().Add(-d), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if layout == "15:04:05" || layout == "15:04" {
				now := time.Now()
				t = time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), t.Second(), 0, now.Location())
			}
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q (try RFC3339, \"HH:MM:SS\", or a duration like \"10m\")", s)
}
