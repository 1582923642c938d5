package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Load reads and validates the application configuration. An empty path
// falls back to the default search locations.
func Load(path string) (AppConfig, error) {
	paths := []string{"config.yml", "/etc/siri-hub/config.yml"}
	if path != "" {
		paths = []string{path}
	}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return AppConfig{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("parsing config: %w", err)
	}
	applyDefaults(&cfg)

	v := validator.New()
	if err := v.Struct(cfg.Server); err != nil {
		return AppConfig{}, fmt.Errorf("invalid server config: %w", err)
	}
	if err := v.Struct(cfg.Repository); err != nil {
		return AppConfig{}, fmt.Errorf("invalid repository config: %w", err)
	}
	if err := v.Struct(cfg.Storage); err != nil {
		return AppConfig{}, fmt.Errorf("invalid storage config: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 16181
	}
	if cfg.Server.ProducerRef == "" {
		cfg.Server.ProducerRef = "SIRI-HUB"
	}
	r := &cfg.Repository
	if r.TrackingPeriodMinutes == 0 {
		r.TrackingPeriodMinutes = 30
	}
	if r.AdHocTrackingPeriodMinutes == 0 {
		r.AdHocTrackingPeriodMinutes = 3
	}
	if r.CommitFrequencySeconds == 0 {
		r.CommitFrequencySeconds = 2
	}
	if r.DefaultPageSize == 0 {
		r.DefaultPageSize = 1500
	}
	if r.VM.GraceMinutes == 0 {
		r.VM.GraceMinutes = 5
	}
	if r.ET.GraceMinutes == 0 {
		r.ET.GraceMinutes = 30
	}
	if r.SX.GraceMinutes == 0 {
		r.SX.GraceMinutes = 5
	}
	if r.PT.GraceMinutes == 0 {
		r.PT.GraceMinutes = 5
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
}
