package config

import (
	"fmt"

	"github.com/Knetic/govaluate"

	"maintsync/internal/io"
	"maintsync/internal/logging"
)

// ValidateConfig checks the assembled configuration for problems that would
// otherwise only surface mid-import.
func ValidateConfig(cfg *Config) error {
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	known := make(map[string]bool)
	for _, name := range EntityNames() {
		known[name] = true
	}
	for name, entity := range cfg.Entities {
		if !known[name] {
			return fmt.Errorf("config validation failed: unknown entity '%s'", name)
		}
		// The reader constructor checks encodings and delimiters.
		if _, err := io.NewCSVReader(entity.CSVAttempts); err != nil {
			return fmt.Errorf("config validation failed for entity '%s': %w", name, err)
		}
		if entity.Filter != "" {
			if _, err := govaluate.NewEvaluableExpression(entity.Filter); err != nil {
				return fmt.Errorf("config validation failed for entity '%s': invalid filter: %w", name, err)
			}
		}
		for _, rule := range entity.Fallbacks {
			if rule.Target == "" {
				return fmt.Errorf("config validation failed for entity '%s': fallback rule without target", name)
			}
			if rule.Prefix == "" && rule.Contains == "" {
				return fmt.Errorf("config validation failed for entity '%s': fallback rule without condition", name)
			}
		}
	}

	for _, w := range cfg.Matcher.Weights {
		if w.PlanField == "" || w.RoutineField == "" {
			return fmt.Errorf("config validation failed: matcher weight with empty field name")
		}
		if w.Weight <= 0 {
			return fmt.Errorf("config validation failed: matcher weight for '%s' must be positive", w.PlanField)
		}
	}
	if cfg.Matcher.Threshold < 0 || cfg.Matcher.Threshold > 100 {
		return fmt.Errorf("config validation failed: matcher threshold %.1f out of range", cfg.Matcher.Threshold)
	}
	if cfg.Matcher.Perfect < cfg.Matcher.Threshold {
		return fmt.Errorf("config validation failed: perfect score %.1f below threshold %.1f",
			cfg.Matcher.Perfect, cfg.Matcher.Threshold)
	}
	return nil
}
