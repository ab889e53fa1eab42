package detector

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/willibrandon/pgtail/internal/instance"
)

// pathCandidate describes a known PostgreSQL installation path pattern.
type pathCandidate struct {
	Pattern string
	Detail  string
}

// DetectFromPgrx finds instances under ~/.pgrx/data-*/, used by the pgrx
// extension-development framework.
func DetectFromPgrx(ctx context.Context) ([]*instance.Instance, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	pgrxDir := filepath.Join(home, ".pgrx")
	info, err := os.Stat(pgrxDir)
	if err != nil || !info.IsDir() {
		return nil, nil
	}

	entries, err := os.ReadDir(pgrxDir)
	if err != nil {
		return nil, err
	}

	var out []*instance.Instance
	for _, e := range entries {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "data-") {
			continue
		}
		dataDir := filepath.Join(pgrxDir, e.Name())
		if !IsValidDataDir(dataDir) {
			continue
		}
		inst, err := instanceFromDataDir(dataDir, instance.SourcePgrx, "pgrx")
		if err != nil {
			continue
		}
		out = append(out, inst)
	}

	return out, nil
}

// DetectFromEnvVar resolves PGDATA from the current environment.
func DetectFromEnvVar(ctx context.Context) (*instance.Instance, error) {
	pgdata := os.Getenv("PGDATA")
	if pgdata == "" {
		return nil, nil
	}

	if strings.HasPrefix(pgdata, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		pgdata = filepath.Join(home, pgdata[1:])
	}

	if !IsValidDataDir(pgdata) {
		return nil, nil
	}

	return instanceFromDataDir(pgdata, instance.SourceEnvVar, "env")
}

// DetectFromKnownPaths scans platform-specific well-known installation
// directories.
func DetectFromKnownPaths(ctx context.Context) ([]*instance.Instance, error) {
	var out []*instance.Instance
	for _, cand := range knownPaths() {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		matches, err := filepath.Glob(cand.Pattern)
		if err != nil {
			return out, err
		}
		for _, m := range matches {
			if !IsValidDataDir(m) {
				continue
			}
			inst, err := instanceFromDataDir(m, instance.SourceKnownPath, cand.Detail)
			if err != nil {
				continue
			}
			out = append(out, inst)
		}
	}
	return out, nil
}

func knownPaths() []pathCandidate {
	switch runtime.GOOS {
	case "darwin":
		return darwinPaths()
	case "linux":
		return linuxPaths()
	case "windows":
		return windowsPaths()
	default:
		return nil
	}
}

func darwinPaths() []pathCandidate {
	home, _ := os.UserHomeDir()

	paths := []pathCandidate{
		{Pattern: "/opt/homebrew/var/postgresql@*", Detail: "brew"},
		{Pattern: "/opt/homebrew/var/postgres", Detail: "brew"},
		{Pattern: "/usr/local/var/postgresql@*", Detail: "brew"},
		{Pattern: "/usr/local/var/postgres", Detail: "brew"},
	}
	if home != "" {
		paths = append(paths, pathCandidate{
			Pattern: filepath.Join(home, "Library/Application Support/Postgres/var-*"),
			Detail:  "app",
		})
	}
	return paths
}

func linuxPaths() []pathCandidate {
	return []pathCandidate{
		{Pattern: "/var/lib/postgresql/*/main", Detail: "apt"},
		{Pattern: "/var/lib/pgsql/*/data", Detail: "yum"},
		{Pattern: "/var/lib/pgsql/data", Detail: "yum"},
	}
}

func windowsPaths() []pathCandidate {
	programFiles := os.Getenv("ProgramFiles")
	if programFiles == "" {
		programFiles = `C:\Program Files`
	}
	return []pathCandidate{
		{Pattern: filepath.Join(programFiles, `PostgreSQL\*\data`), Detail: "installer"},
		{Pattern: `C:\Program Files (x86)\PostgreSQL\*\data`, Detail: "installer"},
	}
}

// instanceFromDataDir assembles an Instance from a validated data directory.
func instanceFromDataDir(dataDir string, source instance.DetectionSource, detail string) (*instance.Instance, error) {
	version, err := ReadPGVersion(dataDir)
	if err != nil {
		return nil, err
	}

	inst := &instance.Instance{
		DataDir:      dataDir,
		Version:      version,
		Source:       source,
		SourceDetail: detail,
	}

	cfg, _ := ParsePostgresConfig(dataDir)
	inst.Port = cfg.Port
	inst.LogDir = cfg.ResolveLogDir(dataDir)
	inst.LogPattern = cfg.LogFilename
	inst.LoggingEnabled = cfg.LoggingCollector

	if pm, err := ParsePostmasterPID(dataDir); err == nil {
		inst.Running = isProcessRunning(pm.PID)
		if pm.Port > 0 {
			inst.Port = pm.Port
		}
	}

	return inst, nil
}
