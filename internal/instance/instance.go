// Package instance defines the value type produced by instance detection.
package instance

import "fmt"

// DetectionSource records which detection strategy produced an Instance.
type DetectionSource int

const (
	// SourceProcess indicates the instance was found via a running postmaster process.
	SourceProcess DetectionSource = iota
	// SourcePgrx indicates the instance was found under ~/.pgrx/data-*/.
	SourcePgrx
	// SourceEnvVar indicates the instance was found via the PGDATA environment variable.
	SourceEnvVar
	// SourceKnownPath indicates the instance was found in a platform well-known directory.
	SourceKnownPath
	// SourceService indicates the instance was found via the OS service registry.
	SourceService
)

// String returns the display name for a DetectionSource.
func (s DetectionSource) String() string {
	switch s {
	case SourceProcess:
		return "process"
	case SourcePgrx:
		return "pgrx"
	case SourceEnvVar:
		return "env"
	case SourceKnownPath:
		return "path"
	case SourceService:
		return "service"
	default:
		return "unknown"
	}
}

// priority returns the strategy's collision priority; lower wins.
func (s DetectionSource) priority() int {
	switch s {
	case SourceProcess:
		return 0
	case SourcePgrx:
		return 1
	case SourceEnvVar:
		return 2
	case SourceKnownPath:
		return 3
	case SourceService:
		return 4
	default:
		return 99
	}
}

// Instance represents one detected PostgreSQL cluster.
//
// Instances are keyed by canonical DataDir for deduplication purposes;
// see detector.Detect.
type Instance struct {
	// DataDir is the absolute, cleaned path to the data directory.
	DataDir string

	// Version is the contents of PG_VERSION, e.g. "16.1" or "16".
	Version string

	// Port is the listening port, or 0 if unknown.
	Port int

	// Running is true when a live postmaster was found for this data directory.
	Running bool

	// LogDir is the resolved log directory, possibly synthesized.
	LogDir string

	// LogPattern is the strftime-style log_filename pattern, possibly empty.
	LogPattern string

	// Source records how this instance was discovered.
	Source DetectionSource

	// SourceDetail is a short human label for the source, e.g. "brew", "apt".
	SourceDetail string

	// LoggingEnabled reflects postgresql.conf's logging_collector setting.
	LoggingEnabled bool
}

// String renders a short identifying description, used in log messages
// and error guidance.
func (i *Instance) String() string {
	if i == nil {
		return "<nil instance>"
	}
	return fmt.Sprintf("%s (pg%s, port %d)", i.DataDir, i.Version, i.Port)
}

// DisplaySource renders the source for table display, preferring the
// short human label when one is available.
func (i *Instance) DisplaySource() string {
	if i.SourceDetail != "" {
		return i.SourceDetail
	}
	return i.Source.String()
}

// WinsDedup reports whether candidate should replace existing when both
// resolve to the same canonical data directory. A running, service-sourced
// instance always wins over a bare path match regardless of the normal
// strategy priority table (see SPEC_FULL.md §4.2).
func WinsDedup(existing, candidate *Instance) bool {
	if candidate.Source == SourceService && candidate.Running {
		return true
	}
	if existing.Source == SourceService && existing.Running {
		return false
	}
	return candidate.Source.priority() < existing.Source.priority()
}
