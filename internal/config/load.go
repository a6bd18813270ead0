package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads, parses, and validates a YAML configuration file.
// Defaults are merged in before validation, so a partial file only needs the
// sections it overrides.
func LoadConfig(filename string) (*Config, error) {
	fileBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(fileBytes, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in '%s': %w", filename, err)
	}

	applyDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills unset sections from the built-in configuration. An
// entity present in the file keeps its own settings, with empty sub-sections
// inherited from the default for that entity.
func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.ErrorFile == "" {
		cfg.ErrorFile = def.ErrorFile
	}

	if cfg.Entities == nil {
		cfg.Entities = def.Entities
	} else {
		for name, defEntity := range def.Entities {
			entity, ok := cfg.Entities[name]
			if !ok {
				cfg.Entities[name] = defEntity
				continue
			}
			if entity.CSVAttempts == nil {
				entity.CSVAttempts = defEntity.CSVAttempts
			}
			if entity.Synonyms == nil {
				entity.Synonyms = defEntity.Synonyms
			}
			if entity.Fallbacks == nil {
				entity.Fallbacks = defEntity.Fallbacks
			}
			cfg.Entities[name] = entity
		}
	}

	if len(cfg.Matcher.Weights) == 0 {
		cfg.Matcher.Weights = def.Matcher.Weights
	}
	if cfg.Matcher.Threshold == 0 {
		cfg.Matcher.Threshold = def.Matcher.Threshold
	}
	if cfg.Matcher.Perfect == 0 {
		cfg.Matcher.Perfect = def.Matcher.Perfect
	}
}
