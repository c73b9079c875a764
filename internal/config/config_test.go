package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantErr     bool
		errContains string
		check       func(t *testing.T, c *Config)
	}{
		{
			name: "full config",
			content: `version: "1.0"
db_path: /var/xcoff
timeout_seconds: 60
parallel: true
object_mode: "64"
max_output_bytes: 1024
analyzers:
  - what
  - dump-T
exclude:
  - dump-h`,
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "/var/xcoff", c.DBPath)
				assert.Equal(t, time.Minute, c.Timeout())
				assert.True(t, c.Parallel)
				assert.Equal(t, "64", c.ObjectMode)
				assert.Equal(t, int64(1024), c.MaxOutputBytes)
				assert.Equal(t, []string{"what", "dump-T"}, c.Analyzers)
				assert.Equal(t, []string{"dump-h"}, c.Exclude)
			},
		},
		{
			name:    "defaults kept",
			content: `version: "1.0"`,
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 300*time.Second, c.Timeout())
				assert.Equal(t, DefaultMaxOutputBytes, c.MaxOutputBytes)
				assert.False(t, c.Parallel)
				assert.Empty(t, c.ObjectMode)
			},
		},
		{
			name:        "missing version",
			content:     `parallel: true`,
			wantErr:     true,
			errContains: "version field is required",
		},
		{
			name:        "explicit empty version",
			content:     `version: ""`,
			wantErr:     true,
			errContains: "version field is required",
		},
		{
			name:        "unsupported version",
			content:     `version: "2.0"`,
			wantErr:     true,
			errContains: "unsupported version",
		},
		{
			name:        "negative timeout",
			content:     "version: \"1.0\"\ntimeout_seconds: -5",
			wantErr:     true,
			errContains: "timeout_seconds",
		},
		{
			name:        "bad object mode",
			content:     "version: \"1.0\"\nobject_mode: \"128\"",
			wantErr:     true,
			errContains: "object_mode",
		},
		{
			name:        "invalid yaml",
			content:     "version: \"1.0\"\nanalyzers: [[[",
			wantErr:     true,
			errContains: "parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ConfigFileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			cfg, err := Load(path, false)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.yml")

	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(path, true)
	assert.Error(t, err)

	cfg, err = Load("", false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestPath(t *testing.T) {
	t.Setenv(EnvConfig, "")
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, "/etc/x.yml", Path("/etc/x.yml"))
	assert.Equal(t, filepath.Join(home, ".config", ConfigFileName), Path(""))

	t.Setenv(EnvConfig, "/opt/xcoff.yml")
	assert.Equal(t, "/opt/xcoff.yml", Path(""))
	assert.Equal(t, "/etc/x.yml", Path("/etc/x.yml"))
}

func TestResolveDBPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvDBPath, "")

	cfg := Default()
	got, err := cfg.ResolveDBPath("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".xcoffscandb"), got)

	cfg.DBPath = "~/scans"
	got, err = cfg.ResolveDBPath("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "scans"), got)

	t.Setenv(EnvDBPath, "/env/db")
	got, err = cfg.ResolveDBPath("")
	require.NoError(t, err)
	assert.Equal(t, "/env/db", got)

	got, err = cfg.ResolveDBPath("/flag/db")
	require.NoError(t, err)
	assert.Equal(t, "/flag/db", got)
}

func TestTimeout_ZeroMeansDefault(t *testing.T) {
	c := &Config{Version: Version}
	assert.Equal(t, 300*time.Second, c.Timeout())
}
