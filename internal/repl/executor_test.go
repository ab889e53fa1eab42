package repl

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/pgtail/internal/config"
	"github.com/willibrandon/pgtail/internal/instance"
	"github.com/willibrandon/pgtail/internal/logentry"
)

func newTestExecutor() (*Executor, *bytes.Buffer) {
	state := NewAppState(config.Default())
	buf := &bytes.Buffer{}
	return &Executor{State: state, Output: buf}, buf
}

func TestExecute_EmptyInput(t *testing.T) {
	e, _ := newTestExecutor()
	assert.Equal(t, "", e.Execute("   "))
}

func TestExecute_UnknownCommand(t *testing.T) {
	e, _ := newTestExecutor()
	out := e.Execute("bogus")
	assert.Contains(t, out, "Unknown command")
}

func TestExecute_UnknownCommandSuggestsClosest(t *testing.T) {
	e, _ := newTestExecutor()
	out := e.Execute("lits")
	assert.Contains(t, out, "list")
}

func TestCmdList_NoInstances(t *testing.T) {
	e, _ := newTestExecutor()
	out := e.Execute("list")
	assert.Contains(t, out, "No PostgreSQL instances found")
}

func TestCmdList_WithInstances(t *testing.T) {
	e, _ := newTestExecutor()
	e.State.SetInstances([]*instance.Instance{
		{DataDir: "/var/lib/postgresql/16/main", Version: "16", Port: 5432, Running: true},
	})
	out := e.Execute("list")
	assert.Contains(t, out, "5432")
	assert.Contains(t, out, "16")
}

func TestCmdLevels_SetAndClear(t *testing.T) {
	e, _ := newTestExecutor()
	out := e.Execute("levels ERROR FATAL")
	assert.Contains(t, out, "ERROR")
	assert.True(t, e.State.Filter.IsActive())

	out = e.Execute("levels")
	assert.Contains(t, out, "cleared")
	assert.False(t, e.State.Filter.IsActive())
}

func TestCmdLevels_UnknownLevel(t *testing.T) {
	e, _ := newTestExecutor()
	out := e.Execute("levels BOGUS")
	assert.Contains(t, out, "Unknown level")
}

func TestCmdFilter_IncludeExcludeAndClear(t *testing.T) {
	e, _ := newTestExecutor()
	out := e.Execute("filter +/deadlock/")
	assert.Contains(t, out, "deadlock")
	assert.True(t, e.State.Filter.IsActive())

	out = e.Execute("filter")
	assert.Contains(t, out, "include")

	out = e.Execute("filter -/deadlock/")
	assert.Contains(t, out, "deadlock")

	out = e.Execute("filter clear")
	assert.Contains(t, out, "cleared")
	assert.False(t, e.State.Filter.IsActive())
}

func TestCmdFilter_S3Scenario(t *testing.T) {
	e, _ := newTestExecutor()
	e.Execute("levels ERROR")
	e.Execute("filter +/duplicate/")

	entry := &logentry.Entry{Level: logentry.LevelError, Message: "duplicate key"}
	assert.True(t, e.State.Filter.Allow(entry))

	e.Execute("filter -/duplicate/")
	assert.False(t, e.State.Filter.Allow(entry))
}

func TestCmdSince_ParsesDuration(t *testing.T) {
	e, _ := newTestExecutor()
	out := e.Execute("since 10m")
	assert.Contains(t, out, "Showing entries since")
	assert.False(t, e.State.Filter.Since.IsZero())
}

func TestCmdSlow_ShowAndSet(t *testing.T) {
	e, _ := newTestExecutor()
	out := e.Execute("slow show")
	assert.Contains(t, out, "warning=")

	out = e.Execute("slow warn 250")
	assert.Contains(t, out, "250")
	assert.Equal(t, 250.0, e.State.SlowConfig.WarningMs)
}

func TestCmdSlow_RejectsInvalidOrdering(t *testing.T) {
	e, _ := newTestExecutor()
	out := e.Execute("slow warn 99999")
	assert.Contains(t, out, "must be less than")
}

func TestCmdStats_EmptyThenPopulated(t *testing.T) {
	e, _ := newTestExecutor()
	out := e.Execute("stats")
	assert.Contains(t, out, "No statement durations")

	e.State.DurationStats.Add(42)
	out = e.Execute("stats")
	assert.Contains(t, out, "count=1")

	out = e.Execute("stats reset")
	assert.Contains(t, out, "cleared")
}

func TestCmdErrors_EmptyThenClear(t *testing.T) {
	e, _ := newTestExecutor()
	out := e.Execute("errors")
	assert.Contains(t, out, "No errors recorded")

	out = e.Execute("errors clear")
	assert.Contains(t, out, "cleared")
}

func TestCmdNotify_OnOffAndRules(t *testing.T) {
	e, _ := newTestExecutor()
	out := e.Execute("notify level ERROR")
	assert.Contains(t, out, "Added rule")

	out = e.Execute("notify on")
	assert.Contains(t, out, "enabled")

	out = e.Execute("notify rules")
	assert.Contains(t, out, "level >= ERROR")

	out = e.Execute("notify clear")
	assert.Contains(t, out, "cleared")
}

func TestCmdNotify_Test(t *testing.T) {
	e, _ := newTestExecutor()
	e.Execute("notify level ERROR")
	e.Execute("notify on")

	out := e.Execute("notify test")
	assert.Contains(t, out, "level >= ERROR")
}

func TestCmdConfig_ShowAndPath(t *testing.T) {
	e, _ := newTestExecutor()
	out := e.Execute("config show")
	assert.Contains(t, out, "slow_warning_ms")

	out = e.Execute("config path")
	assert.Contains(t, out, "config.toml")
}

func TestCmdTail_UnknownIndex(t *testing.T) {
	e, _ := newTestExecutor()
	out := e.Execute("tail 5")
	assert.Contains(t, out, "No instance with index")
}

func TestCmdStop_NotTailing(t *testing.T) {
	e, _ := newTestExecutor()
	out := e.Execute("stop")
	assert.Contains(t, out, "Not currently tailing")
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("list", "list"))
	assert.Equal(t, 2, levenshtein("lits", "list"))
	require.Greater(t, levenshtein("abc", "xyz"), 2)
}

func TestSuggestCommand(t *testing.T) {
	assert.Equal(t, "list", suggestCommand("lits", knownCommands))
	assert.Equal(t, "", suggestCommand("zzzzzzzzzz", knownCommands))
}
