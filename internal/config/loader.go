package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/parlatore/parlatore/pkg/audio"
)

// Defaults applied by [LoadFromReader] when the corresponding field is unset.
const (
	DefaultPauseTimeSeconds        = 1.0
	DefaultMinValidDurationSeconds = 0.6
	DefaultStoragePath             = "parlatore.db"
	DefaultTrimPolicy              = "speech-start"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogInfo
	}
	if cfg.Audio.SilenceThreshold == 0 {
		cfg.Audio.SilenceThreshold = audio.DefaultSilenceThreshold
	}
	if cfg.Audio.PauseTimeSeconds == 0 {
		cfg.Audio.PauseTimeSeconds = DefaultPauseTimeSeconds
	}
	if cfg.Audio.MinValidDurationSeconds == 0 {
		cfg.Audio.MinValidDurationSeconds = DefaultMinValidDurationSeconds
	}
	if cfg.Audio.TrimPolicy == "" {
		cfg.Audio.TrimPolicy = DefaultTrimPolicy
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.Tutor.InterventionLevel == "" {
		cfg.Tutor.InterventionLevel = InterventionMedium
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Backend.BaseURL == "" {
		errs = append(errs, errors.New("backend.base_url is required"))
	}
	if cfg.Backend.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("backend.timeout_seconds %.2f must not be negative", cfg.Backend.TimeoutSeconds))
	}

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	if cfg.Audio.SilenceThreshold < 0 || cfg.Audio.SilenceThreshold > 255 {
		errs = append(errs, fmt.Errorf("audio.silence_threshold %.1f is out of range [0, 255]", cfg.Audio.SilenceThreshold))
	}
	if cfg.Audio.PauseTimeSeconds <= 0 {
		errs = append(errs, fmt.Errorf("audio.pause_time_seconds %.2f must be positive", cfg.Audio.PauseTimeSeconds))
	}
	if cfg.Audio.MinValidDurationSeconds < 0 {
		errs = append(errs, fmt.Errorf("audio.min_valid_duration_seconds %.2f must not be negative", cfg.Audio.MinValidDurationSeconds))
	}
	if _, err := audio.ParseTrimPolicy(cfg.Audio.TrimPolicy); err != nil {
		errs = append(errs, fmt.Errorf("audio.trim_policy: %w", err))
	}

	if !cfg.Tutor.InterventionLevel.IsValid() {
		errs = append(errs, fmt.Errorf("tutor.intervention_level %q is invalid; valid values: low, medium, high", cfg.Tutor.InterventionLevel))
	}
	if cfg.Tutor.PlaybackSpeed < 0 || cfg.Tutor.PlaybackSpeed > 1 {
		errs = append(errs, fmt.Errorf("tutor.playback_speed %.2f is out of range [0, 1]", cfg.Tutor.PlaybackSpeed))
	}
	if cfg.Tutor.TutoringLanguage == "" {
		errs = append(errs, errors.New("tutor.tutoring_language is required"))
	}

	return errors.Join(errs...)
}
