// Package config handles loading, defaulting, and validation of the
// simulator daemon's TOML configuration file. Every section maps to a
// typed struct so the rest of the codebase gets strong typing without
// manual key lookups.
package config

import (
	"errors"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Logging  LoggingConfig  `toml:"logging"  json:"logging"`
	Server   ServerConfig   `toml:"server"   json:"server"`
	Analyzer AnalyzerConfig `toml:"analyzer" json:"analyzer"`
	Tracking TrackingConfig `toml:"tracking" json:"tracking"`
	Alarms   AlarmsConfig   `toml:"alarms"   json:"alarms"`
	Recorder RecorderConfig `toml:"recorder" json:"recorder"`
	Scenario ScenarioConfig `toml:"scenario" json:"scenario"`
}

type LoggingConfig struct {
	Level  string `toml:"level"  json:"level"`
	Format string `toml:"format" json:"format"`
}

type ServerConfig struct {
	Bind string `toml:"bind" json:"bind"`
}

type AnalyzerConfig struct {
	RefreshMillis   int     `toml:"refresh_millis"    json:"refresh_millis"`
	BinCount        int     `toml:"bin_count"         json:"bin_count"`
	Seed            int64   `toml:"seed"              json:"seed"`
	PeakExcursionDB float64 `toml:"peak_excursion_db" json:"peak_excursion_db"`
	JitterDB        float64 `toml:"jitter_db"         json:"jitter_db"`
}

type TrackingConfig struct {
	ToleranceDeg           float64 `toml:"tolerance_deg"            json:"tolerance_deg"`
	AcquisitionSeconds     float64 `toml:"acquisition_seconds"      json:"acquisition_seconds"`
	AcquisitionThresholdDB float64 `toml:"acquisition_threshold_db" json:"acquisition_threshold_db"`
}

type AlarmsConfig struct {
	PollSeconds float64 `toml:"poll_seconds" json:"poll_seconds"`
}

type RecorderConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path"    json:"path"`
}

type ScenarioConfig struct {
	Path string `toml:"path" json:"path"`
}

// Default returns a Config populated with sane defaults. Values here
// are used whenever the TOML file omits a field.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Bind: "0.0.0.0:8080",
		},
		Analyzer: AnalyzerConfig{
			RefreshMillis:   100,
			BinCount:        501,
			Seed:            1,
			PeakExcursionDB: 6,
			JitterDB:        1.0,
		},
		Tracking: TrackingConfig{
			ToleranceDeg:           2.0,
			AcquisitionSeconds:     5.0,
			AcquisitionThresholdDB: -120,
		},
		Alarms: AlarmsConfig{
			PollSeconds: 1.0,
		},
		Recorder: RecorderConfig{
			Enabled: false,
			Path:    "/var/lib/rfsim/sessions.db",
		},
		Scenario: ScenarioConfig{
			Path: "configs/scenario.yaml",
		},
	}
}

// Load reads the TOML file at path, layers it on top of the defaults,
// and validates the result. An error is returned if the file can't be
// read, parsed, or if any constraint is violated.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Server.Bind == "" {
		return errors.New("server.bind must not be empty")
	}
	if cfg.Analyzer.RefreshMillis <= 0 {
		return errors.New("analyzer.refresh_millis must be > 0")
	}
	if cfg.Analyzer.BinCount < 2 {
		return errors.New("analyzer.bin_count must be >= 2")
	}
	if cfg.Analyzer.JitterDB < 0 {
		return errors.New("analyzer.jitter_db must be >= 0")
	}
	if cfg.Tracking.ToleranceDeg <= 0 || cfg.Tracking.ToleranceDeg > 90 {
		return errors.New("tracking.tolerance_deg must be in (0, 90]")
	}
	if cfg.Tracking.AcquisitionSeconds <= 0 {
		return errors.New("tracking.acquisition_seconds must be > 0")
	}
	if cfg.Alarms.PollSeconds <= 0 {
		return errors.New("alarms.poll_seconds must be > 0")
	}
	if cfg.Recorder.Enabled && cfg.Recorder.Path == "" {
		return errors.New("recorder.path must not be empty when the recorder is enabled")
	}
	if cfg.Scenario.Path == "" {
		return errors.New("scenario.path must not be empty")
	}
	return nil
}
