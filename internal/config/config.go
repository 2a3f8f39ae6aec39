// Package config defines MetaboRank's configuration model and its loader.
// Configuration comes from three layers, lowest precedence first: built-in
// defaults, an optional YAML file, and METABORANK_* environment variables.
package config

import (
	"github.com/metaborank/metaborank/internal/domain/scoring"
	"github.com/metaborank/metaborank/internal/infrastructure/monitoring/logging"
	"github.com/metaborank/metaborank/pkg/errors"
)

// Config is the root configuration.
type Config struct {
	Logging  logging.LogConfig `mapstructure:"logging"`
	Rules    RulesConfig       `mapstructure:"rules"`
	Scoring  ScoringConfig     `mapstructure:"scoring"`
	Pipeline PipelineConfig    `mapstructure:"pipeline"`
	Server   ServerConfig      `mapstructure:"server"`
}

// RulesConfig locates the biotransformation rule table.
type RulesConfig struct {
	// Path is the rule table CSV file.
	Path string `mapstructure:"path"`
}

// ScoringConfig configures the vectorizer and model provider.
type ScoringConfig struct {
	// ModelDir holds one <subset>.json model per rule subset.
	ModelDir string `mapstructure:"model_dir"`

	// MissingModelPolicy is "zero" (score unmodeled subsets as 0) or
	// "error" (fail the molecule).
	MissingModelPolicy string `mapstructure:"missing_model_policy"`

	// Radius is the topological descriptor radius.
	Radius int `mapstructure:"radius"`
}

// PipelineConfig tunes batch execution.
type PipelineConfig struct {
	// Workers bounds batch parallelism; 0 means one worker per CPU.
	Workers int `mapstructure:"workers"`

	// StrictSites selects the strict site-annotation policy.
	StrictSites bool `mapstructure:"strict_sites"`
}

// ServerConfig configures the HTTP interface.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `mapstructure:"addr"`

	// Mode is the gin mode: "debug", "release" or "test".
	Mode string `mapstructure:"mode"`
}

// Validate checks cross-field consistency.  A failed validation aborts
// startup.
func (c *Config) Validate() error {
	if c.Rules.Path == "" {
		return errors.New(errors.CodeConfiguration, "rules.path must be set")
	}
	if c.Scoring.Radius < 1 {
		return errors.New(errors.CodeConfiguration, "scoring.radius must be at least 1")
	}
	if !scoring.MissingModelPolicy(c.Scoring.MissingModelPolicy).Valid() {
		return errors.New(errors.CodeConfiguration, "scoring.missing_model_policy must be \"zero\" or \"error\"").
			WithDetail(c.Scoring.MissingModelPolicy)
	}
	if c.Pipeline.Workers < 0 {
		return errors.New(errors.CodeConfiguration, "pipeline.workers must not be negative")
	}
	if c.Server.Addr == "" {
		return errors.New(errors.CodeConfiguration, "server.addr must be set")
	}
	return nil
}

// MissingModelPolicy returns the typed policy value.
func (c *ScoringConfig) Policy() scoring.MissingModelPolicy {
	return scoring.MissingModelPolicy(c.MissingModelPolicy)
}
