package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/pgtail/internal/logentry"
)

func entry(level logentry.Level, msg string, ts time.Time) *logentry.Entry {
	return &logentry.Entry{Level: level, Message: msg, Timestamp: ts}
}

func TestState_NoFilterAllowsEverything(t *testing.T) {
	s := New()
	assert.True(t, s.Allow(entry(logentry.LevelError, "anything", time.Now())))
	assert.False(t, s.IsActive())
}

func TestState_LevelFilter(t *testing.T) {
	s := New()
	s.SetLevels(logentry.LevelError, logentry.LevelFatal)

	assert.True(t, s.Allow(entry(logentry.LevelError, "x", time.Time{})))
	assert.False(t, s.Allow(entry(logentry.LevelLog, "x", time.Time{})))
	assert.True(t, s.IsActive())

	s.SetLevels()
	assert.False(t, s.IsActive())
}

func TestParseToken_IncludeExcludeAnd(t *testing.T) {
	op, rf, err := ParseToken("+/duplicate/")
	require.NoError(t, err)
	assert.Equal(t, byte('+'), op)
	assert.Equal(t, "duplicate", rf.Source)
	assert.False(t, rf.CaseSensitive)

	op, rf, err = ParseToken("-/duplicate/c")
	require.NoError(t, err)
	assert.Equal(t, byte('-'), op)
	assert.True(t, rf.CaseSensitive)

	op, _, err = ParseToken("&/timeout/")
	require.NoError(t, err)
	assert.Equal(t, byte('&'), op)
}

func TestParseToken_DefaultOperatorIsInclude(t *testing.T) {
	op, _, err := ParseToken("/duplicate/")
	require.NoError(t, err)
	assert.Equal(t, byte('+'), op)
}

func TestParseToken_InvalidToken(t *testing.T) {
	_, _, err := ParseToken("duplicate")
	assert.Error(t, err)

	_, _, err = ParseToken("+duplicate")
	assert.Error(t, err)
}

func TestParseToken_InvalidRegex(t *testing.T) {
	_, _, err := ParseToken("+/[unterminated/")
	assert.Error(t, err)
}

func TestState_IncludeFilter(t *testing.T) {
	s := New()
	require.NoError(t, s.AddInclude("duplicate", false))

	assert.True(t, s.Allow(entry(logentry.LevelLog, "duplicate key", time.Time{})))
	assert.False(t, s.Allow(entry(logentry.LevelLog, "no match here", time.Time{})))
}

func TestState_IncludeFilter_AnyMatches(t *testing.T) {
	s := New()
	require.NoError(t, s.AddInclude("foo", false))
	require.NoError(t, s.AddInclude("bar", false))

	assert.True(t, s.Allow(entry(logentry.LevelLog, "has foo", time.Time{})))
	assert.True(t, s.Allow(entry(logentry.LevelLog, "has bar", time.Time{})))
	assert.False(t, s.Allow(entry(logentry.LevelLog, "has neither", time.Time{})))
}

func TestState_ExcludeFilter(t *testing.T) {
	s := New()
	require.NoError(t, s.AddExclude("noise", false))

	assert.True(t, s.Allow(entry(logentry.LevelLog, "signal", time.Time{})))
	assert.False(t, s.Allow(entry(logentry.LevelLog, "some noise here", time.Time{})))
}

func TestState_AndFilter_RequiresAllMatches(t *testing.T) {
	s := New()
	require.NoError(t, s.AddAnd("foo", false))
	require.NoError(t, s.AddAnd("bar", false))

	assert.True(t, s.Allow(entry(logentry.LevelLog, "foo and bar", time.Time{})))
	assert.False(t, s.Allow(entry(logentry.LevelLog, "only foo", time.Time{})))
}

func TestState_CaseSensitivity(t *testing.T) {
	s := New()
	require.NoError(t, s.AddInclude("ERROR", false))
	assert.True(t, s.Allow(entry(logentry.LevelLog, "error: boom", time.Time{})), "default is case-insensitive")

	s2 := New()
	require.NoError(t, s2.AddInclude("ERROR", true))
	assert.False(t, s2.Allow(entry(logentry.LevelLog, "error: boom", time.Time{})), "c flag requests case sensitivity")
	assert.True(t, s2.Allow(entry(logentry.LevelLog, "ERROR: boom", time.Time{})))
}

func TestState_ApplyToken_S3Scenario(t *testing.T) {
	s := New()
	s.SetLevels(logentry.LevelError)
	e := entry(logentry.LevelError, "duplicate key", time.Time{})

	require.NoError(t, s.ApplyToken("+/duplicate/"))
	assert.True(t, s.Allow(e))

	require.NoError(t, s.ApplyToken("-/duplicate/"))
	assert.False(t, s.Allow(e))
}

func TestState_Monotonicity_ExcludeNeverIncreasesShown(t *testing.T) {
	s := New()
	e := entry(logentry.LevelLog, "duplicate key", time.Time{})
	before := s.Allow(e)

	require.NoError(t, s.AddExclude("duplicate", false))
	after := s.Allow(e)

	assert.True(t, before)
	assert.False(t, after)
}

func TestState_Monotonicity_RemovingIncludeNeverDecreasesShown(t *testing.T) {
	s := New()
	require.NoError(t, s.AddInclude("foo", false))
	require.NoError(t, s.AddInclude("bar", false))
	e := entry(logentry.LevelLog, "has bar only", time.Time{})

	before := s.Allow(e)
	s.Includes = s.Includes[:1] // remove the "bar" include, "foo" remains
	after := s.Allow(e)

	assert.False(t, before)
	assert.False(t, after)

	s.Includes = nil
	assert.True(t, s.Allow(e))
}

func TestState_ClearRegex(t *testing.T) {
	s := New()
	require.NoError(t, s.AddInclude("foo", false))
	require.NoError(t, s.AddExclude("bar", false))
	require.NoError(t, s.AddAnd("baz", false))

	s.ClearRegex()
	assert.False(t, s.IsActive())
	assert.True(t, s.Allow(entry(logentry.LevelLog, "anything", time.Time{})))
}

func TestState_TimeFilter(t *testing.T) {
	now := time.Now()
	s := New()
	s.SetSince(now.Add(-time.Hour))
	s.SetUntil(now.Add(time.Hour))

	assert.True(t, s.Allow(entry(logentry.LevelLog, "x", now)))
	assert.False(t, s.Allow(entry(logentry.LevelLog, "x", now.Add(-2*time.Hour))))
	assert.False(t, s.Allow(entry(logentry.LevelLog, "x", now.Add(2*time.Hour))))
}

func TestState_CombinedFilters(t *testing.T) {
	now := time.Now()
	s := New()
	s.SetLevels(logentry.LevelError)
	require.NoError(t, s.AddInclude("timeout", false))
	s.SetSince(now.Add(-time.Minute))

	assert.True(t, s.Allow(entry(logentry.LevelError, "connection timeout", now)))
	assert.False(t, s.Allow(entry(logentry.LevelLog, "connection timeout", now)))
	assert.False(t, s.Allow(entry(logentry.LevelError, "no issue", now)))
	assert.False(t, s.Allow(entry(logentry.LevelError, "connection timeout", now.Add(-time.Hour))))
}

func TestState_Clear(t *testing.T) {
	s := New()
	s.SetLevels(logentry.LevelError)
	require.NoError(t, s.AddInclude("x", false))
	s.SetSince(time.Now())

	s.Clear()
	assert.False(t, s.IsActive())
}
