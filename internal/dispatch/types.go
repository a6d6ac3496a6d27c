// Package dispatch is the HTTP client for the tutoring backend. It uploads
// finished utterances together with the current conversation state and
// returns synthesized speech plus the updated conversation, and covers the
// backend's auxiliary endpoints (homework generation, chat naming, API key
// verification).
package dispatch

import (
	"context"
	"fmt"

	"github.com/parlatore/parlatore/internal/chat"
)

// Settings carries the user-selected tutoring configuration sent with every
// utterance. JSON tags match the backend wire format, mixed casing included.
type Settings struct {
	TutoringLanguage  string  `json:"tutoringLanguage"`
	TutorsLanguage    string  `json:"tutorsLanguage"`
	TutorsVoice       string  `json:"tutorsVoice"`
	PartnersVoice     string  `json:"partnersVoice"`
	InterventionLevel string  `json:"interventionLevel"`
	DisableTutor      bool    `json:"disableTutor"`
	IgnoreAccent      bool    `json:"accentignore"`
	Model             string  `json:"model"`
	PlaybackSpeed     float64 `json:"playbackSpeed"`
	PauseTime         float64 `json:"pauseTime"`
	APIKey            string  `json:"api_key"`
}

// processPayload is the "data" part of the multipart utterance upload.
type processPayload struct {
	Settings
	Conversation chat.Conversation `json:"chatObject"`
}

// ProcessResult is the backend's answer to an utterance upload: synthesized
// speech as base64 WAV and the full replacement conversation state.
type ProcessResult struct {
	AudioBase64  string            `json:"audio_base64"`
	Conversation chat.Conversation `json:"chatObject"`
}

// chatNamePayload is the request body for conversation naming. The backend
// takes the conversation fields flattened rather than under chatObject.
type chatNamePayload struct {
	History          []chat.Turn `json:"chat_history"`
	TutorComments    []string    `json:"tutors_comments"`
	Summary          []string    `json:"summary"`
	Model            string      `json:"model"`
	TutoringLanguage string      `json:"tutoringLanguage"`
	APIKey           string      `json:"api_key"`
}

// RemoteError is a non-2xx response from the backend. The body is retained
// for logging; backends put human-readable detail there.
type RemoteError struct {
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("dispatch: backend returned %d: %s", e.Status, e.Body)
}

// Service is the backend surface the session controller depends on.
// [Client] is the HTTP implementation; tests substitute a mock.
type Service interface {
	// ProcessAudio uploads one utterance (WAV bytes) with the conversation
	// state and settings, returning synthesized speech and the replacement
	// conversation.
	ProcessAudio(ctx context.Context, wav []byte, conv chat.Conversation, settings Settings) (*ProcessResult, error)

	// GenerateHomework asks the backend for homework derived from the
	// conversation.
	GenerateHomework(ctx context.Context, conv chat.Conversation, settings Settings) (string, error)

	// GenerateChatName asks the backend for a short display name for the
	// conversation.
	GenerateChatName(ctx context.Context, conv chat.Conversation, settings Settings) (string, error)

	// VerifyAPIKey checks whether key is accepted for model.
	VerifyAPIKey(ctx context.Context, key, model string) (bool, error)
}
