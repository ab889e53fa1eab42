// Package repl implements pgtail's interactive command loop: instance
// selection, tail lifecycle, and the filter/stats/notify subcommands
// that operate on whichever instance is currently selected.
package repl

import (
	"context"

	"github.com/willibrandon/pgtail/internal/analyzer"
	"github.com/willibrandon/pgtail/internal/config"
	"github.com/willibrandon/pgtail/internal/errorstats"
	"github.com/willibrandon/pgtail/internal/filter"
	"github.com/willibrandon/pgtail/internal/instance"
	"github.com/willibrandon/pgtail/internal/notify"
)

// AppState is the REPL's in-memory session state, as distinct from the
// persisted config.Settings a session starts from.
type AppState struct {
	// Instances is the list of detected PostgreSQL instances (indexed 0-N).
	Instances []*instance.Instance

	// CurrentIndex is the selected instance index (-1 if none selected).
	CurrentIndex int

	// Filter is the active level/pattern/time filter.
	Filter *filter.State

	// SlowConfig holds the active slow-query thresholds.
	SlowConfig analyzer.SlowQueryConfig

	// DurationStats accumulates statement durations seen while tailing.
	DurationStats *analyzer.DurationStats

	// ErrorStats tracks SQLSTATE occurrences seen while tailing.
	ErrorStats *errorstats.Tracker

	// NotifyEngine evaluates tailed entries against configured rules.
	NotifyEngine *notify.Engine

	// Recording is the in-memory notifier NotifyEngine dispatches to;
	// `notify test` inspects it.
	Recording *notify.RecordingNotifier

	// Settings is the persisted configuration this session started
	// from, kept live so `config save` writes current values.
	Settings config.Settings

	// Tailing indicates whether we are actively tailing logs.
	Tailing bool

	// TailCancel stops the current tail operation.
	TailCancel context.CancelFunc

	// notifyState tracks the rule list and quiet-hours config that
	// back NotifyEngine; see notifyState in notifycmds.go.
	notifyState *notifyState
}

// NewAppState creates an AppState seeded from settings.
func NewAppState(settings config.Settings) *AppState {
	slowCfg := analyzer.SlowQueryConfig{
		WarningMs:  settings.SlowWarningMs,
		SlowMs:     settings.SlowSlowMs,
		CriticalMs: settings.SlowCriticalMs,
	}
	if err := slowCfg.Validate(); err != nil {
		slowCfg = analyzer.DefaultSlowQueryConfig()
	}

	recording := notify.NewRecordingNotifier()

	return &AppState{
		Instances:     make([]*instance.Instance, 0),
		CurrentIndex:  -1,
		Filter:        filter.New(),
		SlowConfig:    slowCfg,
		DurationStats: analyzer.NewDurationStats(),
		ErrorStats:    errorstats.New(),
		NotifyEngine:  notify.NewEngine(notify.Config{}, recording),
		Recording:     recording,
		Settings:      settings,
	}
}

// CurrentInstance returns the currently selected instance, or nil if none.
func (s *AppState) CurrentInstance() *instance.Instance {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Instances) {
		return nil
	}
	return s.Instances[s.CurrentIndex]
}

// SelectInstance sets the current instance by index, reporting whether
// the index was valid.
func (s *AppState) SelectInstance(index int) bool {
	if index < 0 || index >= len(s.Instances) {
		return false
	}
	s.CurrentIndex = index
	return true
}

// ClearSelection clears the current instance selection.
func (s *AppState) ClearSelection() {
	s.CurrentIndex = -1
}

// StopTailing cancels any active tail operation.
func (s *AppState) StopTailing() {
	if s.TailCancel != nil {
		s.TailCancel()
		s.TailCancel = nil
	}
	s.Tailing = false
}

// SetInstances updates the list of detected instances and clears
// selection, since indices from the previous scan no longer apply.
func (s *AppState) SetInstances(instances []*instance.Instance) {
	s.Instances = instances
	s.CurrentIndex = -1
}
