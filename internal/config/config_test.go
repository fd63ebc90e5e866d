package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "Edge.Cuts", cfg.OutlineLayer)
	assert.Equal(t, FormatTable, cfg.Format)
	assert.Equal(t, slog.LevelWarn, cfg.Level())
	assert.Equal(t, 200*time.Millisecond, cfg.Debounce())
	assert.True(t, cfg.ShouldReport("anything"))
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), ".kpx.toml", `
outline_layer = "User.Drawings"
format = "JSON"
only_references = "^(R|C)[0-9]+$"
log_level = "debug"
cache_path = "/tmp/kpx.db"
watch = true
debounce_ms = 50
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "User.Drawings", cfg.OutlineLayer)
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, "/tmp/kpx.db", cfg.CachePath)
	assert.True(t, cfg.Watch)
	assert.Equal(t, 50*time.Millisecond, cfg.Debounce())
	assert.True(t, cfg.ShouldReport("R10"))
	assert.False(t, cfg.ShouldReport("U1"))
}

func TestLoadYAMLKeepsDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "kpx.yaml", "format: json\nlog_level: error\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, FormatJSON, cfg.Format)
	assert.Equal(t, slog.LevelError, cfg.Level())
	assert.Equal(t, "Edge.Cuts", cfg.OutlineLayer)
	assert.Equal(t, 200, cfg.DebounceMS)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "absent.toml")},
		{"unknown extension", writeFile(t, dir, "kpx.ini", "format=json")},
		{"bad toml", writeFile(t, dir, "bad.toml", "format = ")},
		{"bad yaml", writeFile(t, dir, "bad.yaml", "format: [json")},
		{"bad format", writeFile(t, dir, "fmt.toml", `format = "xml"`)},
		{"bad level", writeFile(t, dir, "lvl.yaml", "log_level: loud\n")},
		{"bad pattern", writeFile(t, dir, "re.toml", `only_references = "("`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			assert.Error(t, err)
		})
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	want := writeFile(t, root, ".kpx.yaml", "format: json\n")
	assert.Equal(t, want, Discover(nested))

	// TOML wins over YAML in the same directory
	want = writeFile(t, root, ".kpx.toml", `format = "json"`)
	assert.Equal(t, want, Discover(root))
}
