package detector

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/willibrandon/pgtail/internal/instance"
)

// DetectFromProcesses scans running processes for a postgres/postmaster
// executable and derives a data directory from its -D argument or PGDATA
// environment variable.
func DetectFromProcesses(ctx context.Context) ([]*instance.Instance, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	var out []*instance.Instance
	for _, p := range procs {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		inst, err := checkProcess(ctx, p)
		if err != nil || inst == nil {
			continue
		}
		out = append(out, inst)
	}

	return out, nil
}

func checkProcess(ctx context.Context, p *process.Process) (*instance.Instance, error) {
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return nil, err
	}
	lname := strings.ToLower(name)
	if !strings.Contains(lname, "postgres") && !strings.Contains(lname, "postmaster") {
		return nil, nil
	}

	cmdline, err := p.CmdlineSliceWithContext(ctx)
	if err != nil {
		return nil, err
	}

	dataDir := extractDataDir(cmdline)
	if dataDir == "" {
		if env, err := p.EnvironWithContext(ctx); err == nil {
			dataDir = extractPGDataFromEnviron(env)
		}
	}
	if dataDir == "" || !IsValidDataDir(dataDir) {
		return nil, nil
	}

	version, err := ReadPGVersion(dataDir)
	if err != nil {
		return nil, err
	}

	cfg, _ := ParsePostgresConfig(dataDir)

	inst := &instance.Instance{
		DataDir:        dataDir,
		Version:        version,
		Running:        true,
		Source:         instance.SourceProcess,
		Port:           cfg.Port,
		LogDir:         cfg.ResolveLogDir(dataDir),
		LogPattern:     cfg.LogFilename,
		LoggingEnabled: cfg.LoggingCollector,
	}

	if inst.Port == 0 {
		if pm, err := ParsePostmasterPID(dataDir); err == nil && pm.Port > 0 {
			inst.Port = pm.Port
		}
	}

	return inst, nil
}

// extractDataDir extracts the -D/--pgdata argument from a postmaster
// command line's argv.
func extractDataDir(argv []string) string {
	for i, arg := range argv {
		switch {
		case arg == "-D" && i+1 < len(argv):
			return argv[i+1]
		case strings.HasPrefix(arg, "--pgdata="):
			return strings.TrimPrefix(arg, "--pgdata=")
		case strings.HasPrefix(arg, "-D") && len(arg) > 2:
			return arg[2:]
		}
	}
	return ""
}

func extractPGDataFromEnviron(env []string) string {
	for _, kv := range env {
		if strings.HasPrefix(kv, "PGDATA=") {
			return strings.TrimPrefix(kv, "PGDATA=")
		}
	}
	return ""
}
