package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Limits holds every configurable ceiling the workflow engine enforces.
type Limits struct {
	MaxLandingsPerDocument int      `yaml:"maxLandingsPerDocument"`
	MaxEEZPerLanding       int      `yaml:"maxEEZPerLanding"`
	MaxFutureDaysDraft     int      `yaml:"maxFutureDaysDraft"`
	MaxFutureDaysFinal     int      `yaml:"maxFutureDaysFinal"`
	MaxUploadRows          int      `yaml:"maxUploadRows"`
	MaxUploadBytes         int64    `yaml:"maxUploadBytes"`
	DateFormats            []string `yaml:"dateFormats"`
}

// Config is the top-level service configuration.
type Config struct {
	Limits Limits `yaml:"limits"`
}

// Default returns the configuration used when no config file is supplied.
func Default() Config {
	return Config{
		Limits: Limits{
			MaxLandingsPerDocument: 100,
			MaxEEZPerLanding:       5,
			MaxFutureDaysDraft:     7,
			MaxFutureDaysFinal:     3,
			MaxUploadRows:          100,
			MaxUploadBytes:         1 << 20,
			DateFormats:            []string{"02/01/2006", "2/1/2006", "2006-01-02"},
		},
	}
}

// Load reads a YAML config file, layering it over the defaults. Zero values
// in the file keep their defaults so a partial file is valid.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	merge(&cfg.Limits, file.Limits)
	return cfg, nil
}

func merge(dst *Limits, src Limits) {
	if src.MaxLandingsPerDocument > 0 {
		dst.MaxLandingsPerDocument = src.MaxLandingsPerDocument
	}
	if src.MaxEEZPerLanding > 0 {
		dst.MaxEEZPerLanding = src.MaxEEZPerLanding
	}
	if src.MaxFutureDaysDraft > 0 {
		dst.MaxFutureDaysDraft = src.MaxFutureDaysDraft
	}
	if src.MaxFutureDaysFinal > 0 {
		dst.MaxFutureDaysFinal = src.MaxFutureDaysFinal
	}
	if src.MaxUploadRows > 0 {
		dst.MaxUploadRows = src.MaxUploadRows
	}
	if src.MaxUploadBytes > 0 {
		dst.MaxUploadBytes = src.MaxUploadBytes
	}
	if len(src.DateFormats) > 0 {
		dst.DateFormats = src.DateFormats
	}
}
