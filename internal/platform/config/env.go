// Package config loads host settings from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/louisbranch/dicenotation/internal/core/limit"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Limits loads compile limits from the DICENOTATION_MAX_* variables,
// keeping the defaults for unset ones.
func Limits() (limit.Config, error) {
	cfg := limit.DefaultConfig()
	if err := ParseEnv(&cfg); err != nil {
		return limit.Config{}, err
	}
	return cfg, nil
}
