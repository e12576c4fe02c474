// Package config loads the command line configuration from stagerun.yaml and STAGERUN_ variables.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"

	"github.com/askiada/go-stagerun/pkg/pipeline"
)

// DefaultFile is read when no configuration file is given. It may be missing.
const DefaultFile = "stagerun.yaml"

// EnvPrefix prefixes the variables overriding the file. A double underscore separates
// levels: STAGERUN_RUN__AFTER_ALL sets run.after_all.
const EnvPrefix = "STAGERUN_"

type Config struct {
	Log LogConfig `koanf:"log"`
	Run RunConfig `koanf:"run"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // text or json
}

type RunConfig struct {
	AfterAll string `koanf:"after_all"` // last-job or baseline
	Graph    string `koanf:"graph"`     // DOT file written after each run
	Trace    bool   `koanf:"trace"`     // spans written to stderr
	Metrics  bool   `koanf:"metrics"`   // Prometheus text written to stderr
}

var defaults = map[string]any{
	"log.level":     "INFO",
	"log.format":    "text",
	"run.after_all": pipeline.AfterAllLastJobEnv.String(),
}

// Load reads path, or DefaultFile when path is empty, then the STAGERUN_ variables, then
// the defaults. Only an explicit path must exist.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	required := path != ""
	if !required {
		path = DefaultFile
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if required || !errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(err, "unable to load %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, errors.Wrap(err, "unable to load environment")
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			if err := k.Set(key, value); err != nil {
				return nil, errors.Wrapf(err, "unable to set default %s", key)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "unable to decode configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the values the engine depends on.
func (c *Config) Validate() error {
	_, err := c.AfterAllMode()

	return err
}

// AfterAllMode parses run.after_all.
func (c *Config) AfterAllMode() (pipeline.AfterAllMode, error) {
	mode, err := pipeline.ParseAfterAllMode(c.Run.AfterAll)
	if err != nil {
		return mode, errors.Wrap(err, "invalid run.after_all")
	}

	return mode, nil
}
