package schema

import "errors"

// ServiceConfig defines defaults and limits for the core service.
type ServiceConfig struct {
	// MRUCapacity bounds each per-window tracker.
	MRUCapacity int
	// CommandRate limits keyboard commands per second. Zero disables limiting.
	CommandRate float64
	// CommandBurst is the limiter burst size.
	CommandBurst int
}

// DefaultCommandRate is the default keyboard command rate.
const DefaultCommandRate = 20

// DefaultCommandBurst is the default keyboard command burst.
const DefaultCommandBurst = 5

// NormalizeServiceConfig applies defaults and validates the config.
func NormalizeServiceConfig(cfg ServiceConfig) (ServiceConfig, error) {
	if cfg.MRUCapacity == 0 {
		cfg.MRUCapacity = DefaultMRUCapacity
	}
	if cfg.MRUCapacity < 1 {
		return ServiceConfig{}, errors.New("mru capacity must be positive")
	}
	if cfg.CommandRate < 0 {
		return ServiceConfig{}, errors.New("command rate must not be negative")
	}
	if cfg.CommandRate > 0 && cfg.CommandBurst <= 0 {
		cfg.CommandBurst = DefaultCommandBurst
	}
	return cfg, nil
}
