package config

import (
	"strings"
	"testing"
)

const validYAML = `
backend:
  base_url: "http://127.0.0.1:8080"
  api_key: "sk-test"
tutor:
  tutoring_language: "Italian"
  tutors_language: "English"
`

func TestLoadFromReaderDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.LogLevel != LogInfo {
		t.Errorf("log level = %q, want info", cfg.LogLevel)
	}
	if cfg.Audio.SilenceThreshold != 24 {
		t.Errorf("silence threshold = %v, want 24", cfg.Audio.SilenceThreshold)
	}
	if cfg.Audio.PauseTimeSeconds != 1.0 {
		t.Errorf("pause time = %v, want 1.0", cfg.Audio.PauseTimeSeconds)
	}
	if cfg.Audio.MinValidDurationSeconds != 0.6 {
		t.Errorf("min valid duration = %v, want 0.6", cfg.Audio.MinValidDurationSeconds)
	}
	if cfg.Audio.TrimPolicy != "speech-start" {
		t.Errorf("trim policy = %q, want speech-start", cfg.Audio.TrimPolicy)
	}
	if cfg.Storage.Path != DefaultStoragePath {
		t.Errorf("storage path = %q, want %q", cfg.Storage.Path, DefaultStoragePath)
	}
	if cfg.Tutor.InterventionLevel != InterventionMedium {
		t.Errorf("intervention level = %q, want medium", cfg.Tutor.InterventionLevel)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	yaml := validYAML + "\nbogus_section:\n  key: value\n"
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.Backend.BaseURL = "http://localhost:8080"
		cfg.Tutor.TutoringLanguage = "Italian"
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.Backend.BaseURL = "" },
			wantErr: "backend.base_url",
		},
		{
			name:    "missing tutoring language",
			mutate:  func(c *Config) { c.Tutor.TutoringLanguage = "" },
			wantErr: "tutoring_language",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "loud" },
			wantErr: "log_level",
		},
		{
			name:    "threshold out of range",
			mutate:  func(c *Config) { c.Audio.SilenceThreshold = 300 },
			wantErr: "silence_threshold",
		},
		{
			name:    "negative pause",
			mutate:  func(c *Config) { c.Audio.PauseTimeSeconds = -1 },
			wantErr: "pause_time_seconds",
		},
		{
			name:    "bad trim policy",
			mutate:  func(c *Config) { c.Audio.TrimPolicy = "middle" },
			wantErr: "trim_policy",
		},
		{
			name:    "bad intervention level",
			mutate:  func(c *Config) { c.Tutor.InterventionLevel = "extreme" },
			wantErr: "intervention_level",
		},
		{
			name:    "playback speed out of range",
			mutate:  func(c *Config) { c.Tutor.PlaybackSpeed = 1.5 },
			wantErr: "playback_speed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Tutor.PlaybackSpeed = 2
	cfg.LogLevel = "noisy"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"backend.base_url", "tutoring_language", "playback_speed", "log_level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error missing %q: %v", want, err)
		}
	}
}
