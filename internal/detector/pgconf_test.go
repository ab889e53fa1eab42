package detector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestParsePostgresConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Config
	}{
		{
			name:    "basic settings",
			content: "port = 5433\nlog_directory = 'pg_log'\nlogging_collector = on\n",
			want:    Config{Port: 5433, LogDirectory: "pg_log", LoggingCollector: true},
		},
		{
			name:    "comments and blank lines",
			content: "# a comment\n\nport = 5555  # inline comment\n",
			want:    Config{Port: 5555},
		},
		{
			name:    "double-quoted value",
			content: `log_filename = "postgresql-%Y-%m-%d.log"` + "\n",
			want:    Config{Port: 5432, LogFilename: "postgresql-%Y-%m-%d.log"},
		},
		{
			name:    "truthy variants",
			content: "logging_collector = 1\n",
			want:    Config{Port: 5432, LoggingCollector: true},
		},
		{
			name:    "unknown keys ignored",
			content: "shared_buffers = 256MB\nport = 5432\n",
			want:    Config{Port: 5432},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "postgresql.conf", tt.content)

			got, err := ParsePostgresConfig(dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePostgresConfig_FileNotFound(t *testing.T) {
	cfg, err := ParsePostgresConfig(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Equal(t, Config{Port: 5432}, cfg)
}

func TestResolveLogDir(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		prepare func(dataDir string)
		want    func(dataDir string) string
	}{
		{
			name: "absolute log_directory used as-is",
			cfg:  Config{LogDirectory: "/var/log/postgresql"},
			want: func(string) string { return "/var/log/postgresql" },
		},
		{
			name: "relative log_directory joined to data dir",
			cfg:  Config{LogDirectory: "pg_log"},
			want: func(dataDir string) string { return filepath.Join(dataDir, "pg_log") },
		},
		{
			name:    "empty falls back to dataDir/log when present",
			cfg:     Config{},
			prepare: func(dataDir string) { _ = os.MkdirAll(filepath.Join(dataDir, "log"), 0755) },
			want:    func(dataDir string) string { return filepath.Join(dataDir, "log") },
		},
		{
			name: "empty falls back to dataDir/pg_log when log absent",
			cfg:  Config{},
			prepare: func(dataDir string) {
				_ = os.MkdirAll(filepath.Join(dataDir, "pg_log"), 0755)
			},
			want: func(dataDir string) string { return filepath.Join(dataDir, "pg_log") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataDir := t.TempDir()
			if tt.prepare != nil {
				tt.prepare(dataDir)
			}
			got := tt.cfg.ResolveLogDir(dataDir)
			assert.Equal(t, tt.want(dataDir), got)
		})
	}
}

func TestParsePostmasterPID(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    PostmasterInfo
	}{
		{
			name:    "full seven lines",
			content: "12345\n/var/lib/postgresql/16/main\n1700000000\n5432\n/var/run/postgresql\nlocalhost\nmain\n",
			want: PostmasterInfo{
				PID: 12345, DataDir: "/var/lib/postgresql/16/main", StartTime: 1700000000,
				Port: 5432, SocketDir: "/var/run/postgresql", Host: "localhost", Cluster: "main",
			},
		},
		{
			name:    "three lines only",
			content: "777\n/data\n1690000000\n",
			want:    PostmasterInfo{PID: 777, DataDir: "/data", StartTime: 1690000000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "postmaster.pid", tt.content)

			got, err := ParsePostmasterPID(dir)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParsePostmasterPID_FileNotFound(t *testing.T) {
	_, err := ParsePostmasterPID(t.TempDir())
	assert.Error(t, err)
}

func TestParsePostmasterPID_MissingPID(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "postmaster.pid", "\n/data\n")
	_, err := ParsePostmasterPID(dir)
	assert.Error(t, err)
}

func TestReadPGVersion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "PG_VERSION", "16\n")

	version, err := ReadPGVersion(dir)
	require.NoError(t, err)
	assert.Equal(t, "16", version)
}

func TestIsValidDataDir(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, IsValidDataDir(dir))

	writeFile(t, dir, "PG_VERSION", "16\n")
	assert.True(t, IsValidDataDir(dir))
}
