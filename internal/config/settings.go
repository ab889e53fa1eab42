// Package config loads and persists pgtail's user settings, a small
// TOML document distinct from the in-memory session state the REPL
// tracks while running.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DisplaySettings controls how entries are rendered.
type DisplaySettings struct {
	TimestampFormat string `toml:"timestamp_format"`
	ShowPID         bool   `toml:"show_pid"`
	ShowLevel       bool   `toml:"show_level"`
}

// ThemeSettings names a color theme. The ui package has a single fixed
// palette and does not read it.
type ThemeSettings struct {
	Name string `toml:"name"`
}

// NotificationSettings is the persisted form of a notify.Config: string
// patterns and levels rather than compiled regexes or parsed enums, so
// it round-trips cleanly through TOML.
type NotificationSettings struct {
	Enabled     bool     `toml:"enabled"`
	Levels      []string `toml:"levels"`
	Patterns    []string `toml:"patterns"`
	ErrorRate   int      `toml:"error_rate"`
	SlowQueryMs float64  `toml:"slow_query_ms"`
	QuietStart  string   `toml:"quiet_start"` // "HH:MM", empty disables
	QuietEnd    string   `toml:"quiet_end"`
}

// Settings is pgtail's full persisted configuration.
type Settings struct {
	DefaultLevels []string `toml:"default_levels"`
	DefaultFollow bool     `toml:"default_follow"`

	SlowWarningMs  float64 `toml:"slow_warning_ms"`
	SlowSlowMs     float64 `toml:"slow_slow_ms"`
	SlowCriticalMs float64 `toml:"slow_critical_ms"`

	Display       DisplaySettings      `toml:"display"`
	Theme         ThemeSettings        `toml:"theme"`
	Notifications NotificationSettings `toml:"notifications"`
}

// Default returns the settings a fresh installation starts with.
func Default() Settings {
	return Settings{
		DefaultFollow: true,
		SlowWarningMs: 100,
		SlowSlowMs:    1000,
		SlowCriticalMs: 5000,
		Display: DisplaySettings{
			TimestampFormat: time.RFC3339,
			ShowPID:         true,
			ShowLevel:       true,
		},
		Theme: ThemeSettings{Name: "default"},
		Notifications: NotificationSettings{
			Enabled:   false,
			ErrorRate: 10,
		},
	}
}

// Path returns the platform-conventional location of the settings file,
// honoring XDG_CONFIG_HOME on Unix-likes, %APPDATA% on Windows, and
// falling back to ~/.config.
func Path() (string, error) {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "pgtail", "config.toml"), nil
		}
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pgtail", "config.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "pgtail", "config.toml"), nil
}

// Load reads settings from path, returning Default() (with no error) if
// the file does not exist yet.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Settings{}, fmt.Errorf("cannot read settings: %w", err)
	}

	settings := Default()
	if err := toml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("cannot parse settings: %w", err)
	}
	return settings, nil
}

// Save writes settings to path atomically: it writes to a temp file in
// the same directory, then renames it over path, so a crash mid-write
// never leaves a truncated config file.
func Save(path string, settings Settings) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("cannot encode settings: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "config-*.toml.tmp")
	if err != nil {
		return fmt.Errorf("cannot create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("cannot write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("cannot close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("cannot replace settings file: %w", err)
	}

	return nil
}
