package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/parlatore/parlatore/internal/chat"
)

func testConversation() chat.Conversation {
	return chat.Conversation{
		ID:            1700000000000,
		History:       []chat.Turn{{Role: chat.RoleUser, Content: "Buongiorno"}},
		TutorComments: []string{"comment"},
		Summary:       []string{"summary"},
	}
}

func testSettings() Settings {
	return Settings{
		TutoringLanguage:  "Italian",
		TutorsLanguage:    "English",
		TutorsVoice:       "onyx",
		PartnersVoice:     "nova",
		InterventionLevel: "medium",
		IgnoreAccent:      true,
		Model:             "gpt-4o-mini",
		PlaybackSpeed:     0.5,
		PauseTime:         1,
		APIKey:            "sk-test",
	}
}

func TestProcessAudio(t *testing.T) {
	wav := []byte("RIFFfake-wav-bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/process_audio" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}

		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("audio part: %v", err)
		}
		defer file.Close()
		if header.Filename != "recording.wav" {
			t.Errorf("audio filename = %q, want recording.wav", header.Filename)
		}
		body, _ := io.ReadAll(file)
		if string(body) != string(wav) {
			t.Errorf("audio bytes do not match upload")
		}

		var payload map[string]any
		if err := json.Unmarshal([]byte(r.FormValue("data")), &payload); err != nil {
			t.Fatalf("data part: %v", err)
		}
		for _, key := range []string{
			"tutoringLanguage", "tutorsLanguage", "tutorsVoice", "partnersVoice",
			"interventionLevel", "disableTutor", "accentignore", "model",
			"playbackSpeed", "pauseTime", "api_key", "chatObject",
		} {
			if _, ok := payload[key]; !ok {
				t.Errorf("data payload missing %q", key)
			}
		}
		chatObject := payload["chatObject"].(map[string]any)
		if chatObject["timestamp"].(float64) != 1700000000000 {
			t.Errorf("chatObject timestamp = %v", chatObject["timestamp"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"audio_base64": "UklGRg==",
			"chatObject": map[string]any{
				"timestamp":       1700000000000,
				"chat_history":    []map[string]string{{"type": chat.RoleUser, "content": "Buongiorno"}, {"type": chat.RoleAssistant, "content": "Buongiorno! Come stai?"}},
				"tutors_comments": []string{"comment"},
				"summary":         []string{"summary"},
			},
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	result, err := c.ProcessAudio(context.Background(), wav, testConversation(), testSettings())
	if err != nil {
		t.Fatalf("ProcessAudio: %v", err)
	}
	if result.AudioBase64 != "UklGRg==" {
		t.Errorf("audio = %q", result.AudioBase64)
	}
	if len(result.Conversation.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(result.Conversation.History))
	}
	if result.Conversation.History[1].Role != chat.RoleAssistant {
		t.Errorf("second turn role = %q", result.Conversation.History[1].Role)
	}
}

func TestProcessAudioRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "transcription failed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	_, err := c.ProcessAudio(context.Background(), []byte("x"), testConversation(), testSettings())
	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("error = %v, want *RemoteError", err)
	}
	if remoteErr.Status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", remoteErr.Status)
	}
	if remoteErr.Body != "transcription failed" {
		t.Errorf("body = %q", remoteErr.Body)
	}
}

func TestGenerateHomework(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate_homework" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if _, ok := payload["chatObject"]; !ok {
			t.Error("payload missing chatObject")
		}
		json.NewEncoder(w).Encode(map[string]string{"homework": "Practice the passato prossimo."})
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	got, err := c.GenerateHomework(context.Background(), testConversation(), testSettings())
	if err != nil {
		t.Fatalf("GenerateHomework: %v", err)
	}
	if got != "Practice the passato prossimo." {
		t.Errorf("homework = %q", got)
	}
}

func TestGenerateChatName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate_chat_name" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		// Conversation fields travel flattened on this endpoint.
		for _, key := range []string{"chat_history", "tutors_comments", "summary", "model", "tutoringLanguage", "api_key"} {
			if _, ok := payload[key]; !ok {
				t.Errorf("payload missing %q", key)
			}
		}
		json.NewEncoder(w).Encode(map[string]string{"chatName": "Morning greetings"})
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	got, err := c.GenerateChatName(context.Background(), testConversation(), testSettings())
	if err != nil {
		t.Fatalf("GenerateChatName: %v", err)
	}
	if got != "Morning greetings" {
		t.Errorf("chat name = %q", got)
	}
}

func TestVerifyAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/verify_api_key" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.FormValue("api_key"); got != "sk-test" {
			t.Errorf("api_key = %q", got)
		}
		if got := r.FormValue("model"); got != "gpt-4o-mini" {
			t.Errorf("model = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]bool{"valid": true})
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	valid, err := c.VerifyAPIKey(context.Background(), "sk-test", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("VerifyAPIKey: %v", err)
	}
	if !valid {
		t.Error("valid = false, want true")
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(""); err == nil {
		t.Error("expected error for empty base URL")
	}
}
