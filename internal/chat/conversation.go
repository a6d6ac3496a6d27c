// Package chat holds the conversation model exchanged with the tutoring
// backend and its local SQLite persistence.
package chat

import "time"

// Role values the backend uses to tag history turns.
const (
	RoleUser      = "HumanMessage"
	RoleAssistant = "AIMessage"
)

// Turn is one entry in a conversation's history: a role tag and the text
// spoken by that role. The backend serialises the role under "type".
type Turn struct {
	Role    string `json:"type"`
	Content string `json:"content"`
}

// Conversation is one tutoring conversation. The ID is the creation
// timestamp in Unix milliseconds and is the natural key — it never changes
// after creation. History, TutorComments, and Summary only grow or are
// wholesale-replaced by a backend response, never partially mutated.
//
// JSON tags match the backend's chatObject wire format; DisplayName is local
// presentation state and never leaves the client.
type Conversation struct {
	ID            int64    `json:"timestamp"`
	History       []Turn   `json:"chat_history"`
	TutorComments []string `json:"tutors_comments"`
	Summary       []string `json:"summary"`
	DisplayName   string   `json:"-"`
}

// New creates an empty conversation keyed by now.
func New(now time.Time) Conversation {
	return Conversation{
		ID:            now.UnixMilli(),
		History:       []Turn{},
		TutorComments: []string{},
		Summary:       []string{},
	}
}

// Empty reports whether the conversation has no content worth keeping: no
// history and no tutor comments.
func (c Conversation) Empty() bool {
	return len(c.History) == 0 && len(c.TutorComments) == 0
}

// FallbackName returns the timestamp-derived display name used when the
// backend's chat-naming call fails or has not run yet.
func (c Conversation) FallbackName() string {
	return "Chat " + time.UnixMilli(c.ID).Format("2006-01-02 15:04")
}
