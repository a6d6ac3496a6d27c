package chat

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewConversation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := New(now)

	if c.ID != now.UnixMilli() {
		t.Errorf("ID = %d, want %d", c.ID, now.UnixMilli())
	}
	if !c.Empty() {
		t.Error("fresh conversation not empty")
	}
	// Slices must marshal as [] rather than null; the backend rejects nulls.
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"timestamp":` + "1748779200000" + `,"chat_history":[],"tutors_comments":[],"summary":[]}`
	if string(data) != want {
		t.Errorf("marshal = %s, want %s", data, want)
	}
}

func TestConversationEmpty(t *testing.T) {
	tests := []struct {
		name string
		conv Conversation
		want bool
	}{
		{name: "zero value", conv: Conversation{}, want: true},
		{name: "with history", conv: Conversation{History: []Turn{{Role: RoleUser, Content: "ciao"}}}, want: false},
		{name: "with comments only", conv: Conversation{TutorComments: []string{"note"}}, want: false},
		{name: "with summary only", conv: Conversation{Summary: []string{"s"}}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.conv.Empty(); got != tt.want {
				t.Errorf("Empty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFallbackName(t *testing.T) {
	c := Conversation{ID: time.Date(2025, 6, 1, 12, 30, 0, 0, time.Local).UnixMilli()}
	want := "Chat 2025-06-01 12:30"
	if got := c.FallbackName(); got != want {
		t.Errorf("FallbackName() = %q, want %q", got, want)
	}
}
