package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/metaborank/metaborank/pkg/errors"
)

// envPrefix is the prefix of configuration environment variables, e.g.
// METABORANK_SCORING_MODEL_DIR overrides scoring.model_dir.
const envPrefix = "METABORANK"

// Load reads the configuration.  path names an explicit config file; when
// empty, metaborank.yaml is searched in the working directory and ./configs,
// and a missing file is not an error because defaults plus environment can
// form a complete configuration.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.CodeConfiguration, "failed to read config file").
				WithDetail(path)
		}
	} else {
		v.SetConfigName("metaborank")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errors.Wrap(err, errors.CodeConfiguration, "failed to read config file")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfiguration, "failed to unmarshal configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_paths", []string{"stderr"})

	v.SetDefault("rules.path", "rules_data/reaction_rules.csv")

	v.SetDefault("scoring.model_dir", "models")
	v.SetDefault("scoring.missing_model_policy", "zero")
	v.SetDefault("scoring.radius", 5)

	v.SetDefault("pipeline.workers", 0)
	v.SetDefault("pipeline.strict_sites", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
}
