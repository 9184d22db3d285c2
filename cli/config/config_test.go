package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "1", cfg.Version)
	assert.Equal(t, "shortener", cfg.Service.Name)
	assert.Equal(t, "timestamp", cfg.Slug.Generator)
	assert.Equal(t, 7, cfg.Slug.Length)
	assert.Equal(t, "basic", cfg.Validator.Kind)
	assert.Equal(t, "json", cfg.EventLog.Encoding)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Telemetry.Metrics)
	assert.Empty(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name       string
		modify     func(*Config)
		wantErrors int
	}{
		{
			name:       "strict msgpack config",
			modify:     func(c *Config) { c.Validator.Kind = "strict"; c.EventLog.Encoding = "msgpack" },
			wantErrors: 0,
		},
		{
			name:       "missing service name",
			modify:     func(c *Config) { c.Service.Name = "" },
			wantErrors: 1,
		},
		{
			name:       "unknown generator",
			modify:     func(c *Config) { c.Slug.Generator = "sequential" },
			wantErrors: 1,
		},
		{
			name:       "negative lengths",
			modify:     func(c *Config) { c.Slug.Length = -1; c.Validator.MaxLength = -1 },
			wantErrors: 2,
		},
		{
			name:       "unknown validator",
			modify:     func(c *Config) { c.Validator.Kind = "regex" },
			wantErrors: 1,
		},
		{
			name:       "unknown encoding",
			modify:     func(c *Config) { c.EventLog.Encoding = "protobuf" },
			wantErrors: 1,
		},
		{
			name:       "bad logging",
			modify:     func(c *Config) { c.Logging.Level = "loud"; c.Logging.Format = "xml" },
			wantErrors: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			errors := cfg.Validate()
			assert.Equal(t, tt.wantErrors, len(errors), "errors: %v", errors)
		})
	}
}

func TestConfig_SaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Service.Name = "edge"
	cfg.Validator.Kind = "strict"
	cfg.Validator.BlockedDomains = []string{"evil.com"}
	cfg.Telemetry.Tracing = true

	require.NoError(t, cfg.Save(tmpDir))

	_, err := os.Stat(filepath.Join(tmpDir, ConfigFileName))
	require.NoError(t, err)

	loaded, err := Load(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, cfg, loaded)
}

func TestLoadFile(t *testing.T) {
	t.Run("missing keys keep defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "partial.yaml")
		require.NoError(t, os.WriteFile(path, []byte("slug:\n  generator: random\n"), 0644))

		cfg, err := LoadFile(path)

		require.NoError(t, err)
		assert.Equal(t, "random", cfg.Slug.Generator)
		assert.Equal(t, 7, cfg.Slug.Length)
		assert.Equal(t, "shortener", cfg.Service.Name)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("slug: [unterminated"), 0644))

		_, err := LoadFile(path)

		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))

		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestExists(t *testing.T) {
	tmpDir := t.TempDir()

	assert.False(t, Exists(tmpDir))
	require.NoError(t, DefaultConfig().Save(tmpDir))
	assert.True(t, Exists(tmpDir))
}

func TestFindConfig(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Service.Name = "root-service"
	require.NoError(t, cfg.Save(tmpDir))

	nested := filepath.Join(tmpDir, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0755))

	foundDir, foundCfg, err := FindConfig(nested)
	require.NoError(t, err)

	assert.Equal(t, tmpDir, foundDir)
	assert.Equal(t, "root-service", foundCfg.Service.Name)
}

func TestGenerateYAML(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Service.Name = "edge"

	out := GenerateYAML(cfg)

	assert.Contains(t, out, "# Shortener Configuration File")
	assert.Contains(t, out, `name: "edge"`)

	var parsed Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, *cfg, parsed)
}
