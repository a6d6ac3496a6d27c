package tutor

// EventType identifies what a session [Event] reports.
type EventType string

const (
	// EventMonitoringStarted fires when the session begins (or resumes)
	// listening for speech.
	EventMonitoringStarted EventType = "monitoring-started"

	// EventProcessingStarted fires when an utterance has been accepted and
	// its upload begins.
	EventProcessingStarted EventType = "processing-started"

	// EventUtteranceDiscarded fires when a finished utterance is dropped
	// without dispatch; Message carries the reason.
	EventUtteranceDiscarded EventType = "utterance-discarded"

	// EventSoundLevel fires on every sound-level poll; Level carries the
	// current average magnitude.
	EventSoundLevel EventType = "sound-level"

	// EventError reports a recoverable failure; Message carries the error
	// text.
	EventError EventType = "error"

	// EventResponseReceived fires when the backend's answer has been applied
	// to the current conversation.
	EventResponseReceived EventType = "response-received"

	// EventConversationCreated and EventConversationSwitched report
	// conversation lifecycle changes; ConversationID identifies the
	// conversation.
	EventConversationCreated  EventType = "conversation-created"
	EventConversationSwitched EventType = "conversation-switched"

	// EventPlaybackStarted fires just before response audio starts playing.
	EventPlaybackStarted EventType = "playback-started"

	// EventSessionStopped fires when the session ends.
	EventSessionStopped EventType = "session-stopped"
)

// Event is one session notification delivered to subscribers. Fields beyond
// Type are populated per event type; see the [EventType] constants.
type Event struct {
	Type           EventType
	Message        string
	Level          float64
	ConversationID int64
}
