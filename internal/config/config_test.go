package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaborank/metaborank/internal/domain/scoring"
	"github.com/metaborank/metaborank/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "rules_data/reaction_rules.csv", cfg.Rules.Path)
	assert.Equal(t, "models", cfg.Scoring.ModelDir)
	assert.Equal(t, scoring.MissingModelZero, cfg.Scoring.Policy())
	assert.Equal(t, 5, cfg.Scoring.Radius)
	assert.Equal(t, 0, cfg.Pipeline.Workers)
	assert.False(t, cfg.Pipeline.StrictSites)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metaborank.yaml")
	content := `
logging:
  level: debug
  format: console
rules:
  path: /etc/metaborank/rules.csv
scoring:
  radius: 3
  missing_model_policy: error
pipeline:
  workers: 4
  strict_sites: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/etc/metaborank/rules.csv", cfg.Rules.Path)
	assert.Equal(t, 3, cfg.Scoring.Radius)
	assert.Equal(t, scoring.MissingModelError, cfg.Scoring.Policy())
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.True(t, cfg.Pipeline.StrictSites)
	// Unset sections keep their defaults.
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("METABORANK_SCORING_MODEL_DIR", "/opt/models")
	t.Setenv("METABORANK_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/opt/models", cfg.Scoring.ModelDir)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeConfiguration))
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing_rules_path", func(c *Config) { c.Rules.Path = "" }},
		{"zero_radius", func(c *Config) { c.Scoring.Radius = 0 }},
		{"bad_policy", func(c *Config) { c.Scoring.MissingModelPolicy = "maybe" }},
		{"negative_workers", func(c *Config) { c.Pipeline.Workers = -1 }},
		{"missing_addr", func(c *Config) { c.Server.Addr = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeConfiguration))
		})
	}
}
