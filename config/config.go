// Package config loads the coordinator's run-time configuration, grounded
// on the pack's mpisat-qumo repo (gopkg.in/yaml.v3 config file) with
// defaults and validation applied in code the way the teacher applies
// constants at the top of hub.go.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxPlaybackDriftSeconds is the default bound, in seconds,
	// beyond which a peer's projected position is considered drifted
	// (spec.md §4.3).
	DefaultMaxPlaybackDriftSeconds = 1.0
	// DefaultPositionUpdateIntervalSeconds is the default period between
	// broadcast position_update ticks (spec.md §4.5).
	DefaultPositionUpdateIntervalSeconds = 2.0
)

// Config is the coordinator's external configuration surface (spec.md
// §6.3), expanded with load-from-file support for a standalone process.
type Config struct {
	MaxPlaybackDriftSeconds       float64  `yaml:"maxPlaybackDriftSeconds"`
	PositionUpdateIntervalSeconds float64  `yaml:"positionUpdateIntervalSeconds"`
	AllowedTransportRoles         []string `yaml:"allowedTransportRoles"`
}

// Default returns a Config with the spec's documented defaults.
func Default() Config {
	return Config{
		MaxPlaybackDriftSeconds:       DefaultMaxPlaybackDriftSeconds,
		PositionUpdateIntervalSeconds: DefaultPositionUpdateIntervalSeconds,
	}
}

// Validate enforces spec.md §6.3's constraints: both intervals must be
// strictly positive.
func (c Config) Validate() error {
	if c.MaxPlaybackDriftSeconds <= 0 {
		return fmt.Errorf("config: maxPlaybackDriftSeconds must be > 0, got %v", c.MaxPlaybackDriftSeconds)
	}
	if c.PositionUpdateIntervalSeconds <= 0 {
		return fmt.Errorf("config: positionUpdateIntervalSeconds must be > 0, got %v", c.PositionUpdateIntervalSeconds)
	}
	return nil
}

// Load reads a YAML config file, applying defaults for any zero-valued
// field before validating the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.MaxPlaybackDriftSeconds == 0 {
		cfg.MaxPlaybackDriftSeconds = DefaultMaxPlaybackDriftSeconds
	}
	if cfg.PositionUpdateIntervalSeconds == 0 {
		cfg.PositionUpdateIntervalSeconds = DefaultPositionUpdateIntervalSeconds
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
