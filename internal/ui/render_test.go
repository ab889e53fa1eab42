package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/willibrandon/pgtail/internal/logentry"
)

func TestRenderEntry_IncludesMessage(t *testing.T) {
	r := NewRenderer()
	entry := &logentry.Entry{
		Timestamp: time.Date(2026, 1, 1, 10, 30, 0, 0, time.UTC),
		PID:       1234,
		Level:     logentry.LevelError,
		Message:   "connection refused",
	}

	out := r.RenderEntry(entry)
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "1234")
}

func TestRenderEntry_ContinuationIndented(t *testing.T) {
	r := NewRenderer()
	entry := &logentry.Entry{
		Level:          logentry.LevelError,
		Message:        "DETAIL: at character 1",
		IsContinuation: true,
	}

	out := r.RenderEntry(entry)
	assert.True(t, strings.HasPrefix(out, "  "))
	assert.Contains(t, out, "DETAIL")
}

func TestRenderEntry_SlowBadge(t *testing.T) {
	r := NewRenderer()
	entry := &logentry.Entry{
		Message:   "duration: 2000 ms",
		SlowClass: logentry.ClassificationCritical,
	}

	out := r.RenderEntry(entry)
	assert.Contains(t, out, "CRITICAL")
}

func TestRenderEntry_HidesPIDWhenDisabled(t *testing.T) {
	r := NewRenderer()
	r.ShowPID = false
	entry := &logentry.Entry{PID: 999, Message: "x"}

	out := r.RenderEntry(entry)
	assert.NotContains(t, out, "999")
}
