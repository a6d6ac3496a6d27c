// Package config provides the configuration schema and loader for the
// Parlatore voice tutoring client.
package config

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// InterventionLevel selects how actively the tutor corrects the learner.
type InterventionLevel string

const (
	InterventionLow    InterventionLevel = "low"
	InterventionMedium InterventionLevel = "medium"
	InterventionHigh   InterventionLevel = "high"
)

// IsValid reports whether i is a recognised intervention level.
func (i InterventionLevel) IsValid() bool {
	switch i {
	case InterventionLow, InterventionMedium, InterventionHigh:
		return true
	}
	return false
}

// Config is the root configuration structure for Parlatore.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Backend  BackendConfig `yaml:"backend"`
	Audio    AudioConfig   `yaml:"audio"`
	Tutor    TutorConfig   `yaml:"tutor"`
	Storage  StorageConfig `yaml:"storage"`
	Metrics  MetricsConfig `yaml:"metrics"`
	LogLevel LogLevel      `yaml:"log_level"`
}

// BackendConfig locates the tutoring backend.
type BackendConfig struct {
	// BaseURL is the backend's base URL (e.g., "http://127.0.0.1:8080").
	BaseURL string `yaml:"base_url"`

	// APIKey is the language model API key forwarded with every request.
	APIKey string `yaml:"api_key"`

	// TimeoutSeconds is the per-request timeout. Zero means the client
	// default.
	TimeoutSeconds float64 `yaml:"timeout_seconds"`
}

// AudioConfig holds capture and segmentation tuning.
type AudioConfig struct {
	// MicrophoneID selects the input device. Empty selects the system
	// default.
	MicrophoneID string `yaml:"microphone_id"`

	// SilenceThreshold is the mean frequency magnitude (0-255) below which a
	// sample counts as silent. Zero means the built-in default.
	SilenceThreshold float64 `yaml:"silence_threshold"`

	// PauseTimeSeconds is the contiguous silence that ends an utterance.
	PauseTimeSeconds float64 `yaml:"pause_time_seconds"`

	// MinValidDurationSeconds is the shortest utterance worth dispatching.
	MinValidDurationSeconds float64 `yaml:"min_valid_duration_seconds"`

	// TrimPolicy selects how leading or trailing silence is removed:
	// "speech-start" or "tail".
	TrimPolicy string `yaml:"trim_policy"`
}

// TutorConfig holds the tutoring settings sent to the backend with every
// utterance.
type TutorConfig struct {
	// TutoringLanguage is the language being practised.
	TutoringLanguage string `yaml:"tutoring_language"`

	// TutorsLanguage is the language the tutor gives feedback in.
	TutorsLanguage string `yaml:"tutors_language"`

	// TutorsVoice and PartnersVoice select the synthesis voices.
	TutorsVoice   string `yaml:"tutors_voice"`
	PartnersVoice string `yaml:"partners_voice"`

	// InterventionLevel controls how actively the tutor interrupts.
	InterventionLevel InterventionLevel `yaml:"intervention_level"`

	// DisableTutor turns off tutor feedback, leaving only the conversation
	// partner.
	DisableTutor bool `yaml:"disable_tutor"`

	// IgnoreAccent stops the tutor from correcting pronunciation.
	IgnoreAccent bool `yaml:"ignore_accent"`

	// Model is the backend language model name.
	Model string `yaml:"model"`

	// PlaybackSpeed is the speed slider in [0, 1]; 0 plays responses at 0.9x
	// and 1 at full speed.
	PlaybackSpeed float64 `yaml:"playback_speed"`
}

// StorageConfig locates local persistence.
type StorageConfig struct {
	// Path is the SQLite database file for conversations.
	Path string `yaml:"path"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	// ListenAddr is the address /metrics is served on (e.g., ":9090").
	// Empty disables the endpoint.
	ListenAddr string `yaml:"listen_addr"`
}
