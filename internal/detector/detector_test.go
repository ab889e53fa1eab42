package detector

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/pgtail/internal/instance"
)

func TestNormalizeDataDir(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "removes trailing slash", input: "/var/lib/postgresql/"},
		{name: "cleans double slashes", input: "/var//lib/postgresql"},
		{name: "handles dot components", input: "/var/lib/../lib/postgresql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalizeDataDir(tt.input)
			assert.False(t, strings.HasSuffix(result, "/") && result != "/")
			assert.NotContains(t, result, "//")
			assert.NotContains(t, result, "/./")
			assert.NotContains(t, result, "/../")
		})
	}
}

func TestNormalizeDataDir_CaseHandling(t *testing.T) {
	path := "/Var/Lib/PostgreSQL"
	result := normalizeDataDir(path)

	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		assert.Equal(t, strings.ToLower(result), result)
	}
}

func TestDetectionResult_HasErrors(t *testing.T) {
	tests := []struct {
		name   string
		errors []error
		want   bool
	}{
		{name: "no errors", errors: nil, want: false},
		{name: "empty errors slice", errors: []error{}, want: false},
		{name: "with errors", errors: []error{os.ErrNotExist}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &DetectionResult{Errors: tt.errors}
			assert.Equal(t, tt.want, r.HasErrors())
		})
	}
}

func TestDetectionResult_InstanceCount(t *testing.T) {
	tests := []struct {
		name      string
		instances []*instance.Instance
		want      int
	}{
		{name: "no instances", instances: nil, want: 0},
		{name: "one instance", instances: []*instance.Instance{{}}, want: 1},
		{name: "multiple instances", instances: []*instance.Instance{{}, {}, {}}, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &DetectionResult{Instances: tt.instances}
			assert.Equal(t, tt.want, r.InstanceCount())
		})
	}
}

// createMockDataDir creates a mock PostgreSQL data directory for testing.
func createMockDataDir(t *testing.T, baseDir, name, version string, port int) string {
	t.Helper()

	dataDir := filepath.Join(baseDir, name)
	require.NoError(t, os.MkdirAll(dataDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "PG_VERSION"), []byte(version+"\n"), 0644))

	configContent := ""
	if port > 0 {
		configContent = "port = " + strconv.Itoa(port) + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "postgresql.conf"), []byte(configContent), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "log"), 0755))

	return dataDir
}

func TestDetectFromPgrx(t *testing.T) {
	tmpDir := t.TempDir()

	pgrxDir := filepath.Join(tmpDir, ".pgrx")
	require.NoError(t, os.MkdirAll(pgrxDir, 0755))

	createMockDataDir(t, pgrxDir, "data-16", "16", 5432)
	createMockDataDir(t, pgrxDir, "data-15", "15", 5433)
	require.NoError(t, os.MkdirAll(filepath.Join(pgrxDir, "not-data"), 0755))

	t.Setenv("HOME", tmpDir)

	instances, err := DetectFromPgrx(context.Background())
	require.NoError(t, err)
	assert.Len(t, instances, 2)

	for _, inst := range instances {
		assert.Equal(t, instance.SourcePgrx, inst.Source)
		assert.Equal(t, "pgrx", inst.SourceDetail)
	}
}

func TestDetectFromEnvVar(t *testing.T) {
	tmpDir := t.TempDir()
	dataDir := createMockDataDir(t, tmpDir, "pgdata", "16", 5432)

	t.Setenv("PGDATA", dataDir)

	inst, err := DetectFromEnvVar(context.Background())
	require.NoError(t, err)
	require.NotNil(t, inst)
	assert.Equal(t, instance.SourceEnvVar, inst.Source)
	assert.Equal(t, "16", inst.Version)
}

func TestDetectFromEnvVar_NotSet(t *testing.T) {
	t.Setenv("PGDATA", "")

	inst, err := DetectFromEnvVar(context.Background())
	require.NoError(t, err)
	assert.Nil(t, inst)
}

func TestDetectFromEnvVar_InvalidPath(t *testing.T) {
	t.Setenv("PGDATA", "/nonexistent/path/to/data")

	inst, err := DetectFromEnvVar(context.Background())
	require.NoError(t, err)
	assert.Nil(t, inst)
}

func TestInstanceDeduplication(t *testing.T) {
	tmpDir := t.TempDir()
	dataDir := createMockDataDir(t, tmpDir, "data", "16", 5432)

	seen := make(map[string]bool)

	key1 := normalizeDataDir(dataDir)
	assert.False(t, seen[key1])
	seen[key1] = true

	key2 := normalizeDataDir(dataDir)
	assert.True(t, seen[key2])

	key3 := normalizeDataDir(filepath.Join(tmpDir, "other"))
	assert.False(t, seen[key3])
}

func TestExtractDataDir(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want string
	}{
		{
			name: "standard -D flag",
			argv: []string{"/usr/lib/postgresql/16/bin/postgres", "-D", "/var/lib/postgresql/16/main"},
			want: "/var/lib/postgresql/16/main",
		},
		{
			name: "-D flag with other args",
			argv: []string{"postgres", "-D", "/data", "-c", "shared_buffers=256MB"},
			want: "/data",
		},
		{
			name: "--pgdata= style",
			argv: []string{"postgres", "--pgdata=/var/lib/pgsql/data"},
			want: "/var/lib/pgsql/data",
		},
		{
			name: "-D attached to value",
			argv: []string{"postgres", "-D/data/postgresql"},
			want: "/data/postgresql",
		},
		{
			name: "no data directory",
			argv: []string{"postgres", "-c", "log_connections=on"},
			want: "",
		},
		{
			name: "empty cmdline",
			argv: nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractDataDir(tt.argv))
		})
	}
}

func TestDetect_RunningFirst(t *testing.T) {
	stopped := &instance.Instance{DataDir: "/a", Running: false}
	running := &instance.Instance{DataDir: "/b", Running: true}
	instances := []*instance.Instance{stopped, running}
	sortRunningFirst(instances)
	assert.True(t, instances[0].Running)
	assert.False(t, instances[1].Running)
}

func TestDetect_Idempotent(t *testing.T) {
	// Detection on an unchanged environment should yield the same
	// instance set (keyed by canonical data directory) across two runs.
	t.Setenv("PGDATA", "")

	first := Detect(context.Background())
	second := Detect(context.Background())

	keys := func(r *DetectionResult) map[string]bool {
		m := make(map[string]bool)
		for _, inst := range r.Instances {
			m[normalizeDataDir(inst.DataDir)] = true
		}
		return m
	}

	assert.Equal(t, keys(first), keys(second))
}

func TestWinsDedup_ServiceRunningOverridesPriority(t *testing.T) {
	path := &instance.Instance{Source: instance.SourceKnownPath, Running: false}
	service := &instance.Instance{Source: instance.SourceService, Running: true}
	assert.True(t, instance.WinsDedup(path, service))
	assert.False(t, instance.WinsDedup(service, path))
}
