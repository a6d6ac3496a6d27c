// Package tutor wires capture, segmentation, dispatch, persistence, and
// playback into one tutoring session.
package tutor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parlatore/parlatore/internal/chat"
	"github.com/parlatore/parlatore/internal/dispatch"
	"github.com/parlatore/parlatore/internal/observe"
	"github.com/parlatore/parlatore/internal/resilience"
	"github.com/parlatore/parlatore/internal/segment"
	"github.com/parlatore/parlatore/pkg/audio"
)

// ErrEmptyConversation is returned by [Controller.NewConversation] when the
// newest conversation has no content yet: use it instead of stacking up
// blanks.
var ErrEmptyConversation = errors.New("tutor: current conversation is still empty")

// Config holds the session tuning a [Controller] is created with. Settings
// travels to the backend with every utterance; the rest drives capture and
// segmentation locally.
type Config struct {
	// Settings is the tutoring configuration sent with every request.
	// PauseTime is overwritten from the live value at dispatch time.
	Settings dispatch.Settings

	// MicrophoneID selects the input device; empty means system default.
	MicrophoneID string

	// SilenceThreshold classifies sound samples; zero means the default.
	SilenceThreshold float64

	// PauseTime is the contiguous silence that ends an utterance.
	PauseTime time.Duration

	// MinValidDuration is the shortest utterance worth dispatching.
	MinValidDuration time.Duration

	// TrimPolicy selects how silence is removed from finished recordings.
	TrimPolicy audio.TrimPolicy
}

// Controller owns one tutoring session end to end: it opens the microphone,
// segments speech into utterances, ships them to the backend, applies the
// returned conversation state, and plays the synthesized answer.
//
// At most one utterance is in flight at a time. The segmenter suspends
// itself after every finished utterance and is only resumed once processing
// and playback have completed, so a second dispatch cannot start while the
// first is outstanding. Results that arrive after the session they belong to
// has stopped are discarded by session-token comparison.
//
// All exported methods are safe for concurrent use.
type Controller struct {
	platform audio.Platform
	player   audio.Player
	service  dispatch.Service
	store    *chat.Store
	breaker  *resilience.Breaker
	metrics  *observe.Metrics
	cfg      Config

	mu              sync.Mutex
	active          bool
	token           string
	processingToken string
	stream          audio.CaptureStream
	machine         *segment.Machine
	cancelRun       context.CancelFunc
	conversations   []chat.Conversation
	currentID       int64
	pauseTime       time.Duration
	listeners       []func(Event)
}

// NewController creates a Controller and loads the persisted conversations,
// creating a fresh one when the store is empty. The store, service, platform,
// and player must be non-nil; metrics may be nil to disable instrumentation.
func NewController(ctx context.Context, platform audio.Platform, player audio.Player, service dispatch.Service, store *chat.Store, metrics *observe.Metrics, cfg Config) (*Controller, error) {
	if cfg.PauseTime <= 0 {
		cfg.PauseTime = time.Second
	}
	if cfg.MinValidDuration <= 0 {
		cfg.MinValidDuration = audio.DefaultMinValidDuration
	}

	c := &Controller{
		platform:  platform,
		player:    player,
		service:   service,
		store:     store,
		breaker:   resilience.NewBreaker("backend", 3, 30*time.Second, 1),
		metrics:   metrics,
		cfg:       cfg,
		pauseTime: cfg.PauseTime,
	}

	convs, err := store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("tutor: load conversations: %w", err)
	}
	if len(convs) == 0 {
		convs = []chat.Conversation{chat.New(time.Now())}
		if err := store.ReplaceAll(ctx, convs); err != nil {
			return nil, fmt.Errorf("tutor: persist initial conversation: %w", err)
		}
	}
	c.conversations = convs
	c.currentID = convs[len(convs)-1].ID
	return c, nil
}

// Subscribe registers fn to receive every session [Event]. Subscribers are
// invoked synchronously from session goroutines and must return quickly.
func (c *Controller) Subscribe(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Controller) emit(ev Event) {
	c.mu.Lock()
	listeners := make([]func(Event), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// Start opens the microphone and begins monitoring for speech. A no-op when
// the session is already active.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	stream, err := c.platform.Open(ctx, c.cfg.MicrophoneID)
	if err != nil {
		return fmt.Errorf("tutor: open microphone: %w", err)
	}

	monitor := audio.NewMonitor(stream.Analyser(), c.cfg.SilenceThreshold)
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	c.mu.Lock()
	if c.active {
		// Lost a race with a concurrent Start: the other call owns the
		// session. Release our device acquisition and defer to it.
		c.mu.Unlock()
		cancel()
		stream.Close()
		return nil
	}
	c.active = true
	c.token = uuid.NewString()
	c.stream = stream
	c.cancelRun = cancel
	token := c.token
	machine := segment.New(stream, monitor, segment.Config{
		PauseTime: c.pauseTime,
	}, func(s audio.Sample) {
		c.emit(Event{Type: EventSoundLevel, Level: s.Average})
	}, func(capture segment.Capture) {
		go c.handleCapture(runCtx, token, capture)
	})
	c.machine = machine
	c.mu.Unlock()

	go func() {
		if err := machine.Run(runCtx); err != nil {
			c.handleStreamFailure(token, err)
		}
	}()

	if c.metrics != nil {
		c.metrics.ActiveSessions.Add(ctx, 1)
	}
	slog.Info("session started", "token", token)
	c.emit(Event{Type: EventMonitoringStarted})
	return nil
}

// Stop ends the session: monitoring ceases, the device is released, and any
// in-flight dispatch result will be discarded on arrival. A no-op when the
// session is not active.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return nil
	}
	c.active = false
	c.token = ""
	cancel := c.cancelRun
	stream := c.stream
	c.cancelRun = nil
	c.stream = nil
	c.machine = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if stream != nil {
		err = stream.Close()
	}
	if c.metrics != nil {
		c.metrics.ActiveSessions.Add(context.Background(), -1)
	}
	slog.Info("session stopped")
	c.emit(Event{Type: EventSessionStopped})
	return err
}

// handleStreamFailure tears the session down after the capture stream died
// mid-session (device unplugged, driver failure). Device errors are fatal:
// the session ends and the failure is surfaced, never silently retried.
// A no-op when the session already stopped or was restarted.
func (c *Controller) handleStreamFailure(token string, cause error) {
	c.mu.Lock()
	if !c.active || c.token != token {
		c.mu.Unlock()
		return
	}
	c.active = false
	c.token = ""
	cancel := c.cancelRun
	stream := c.stream
	c.cancelRun = nil
	c.stream = nil
	c.machine = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stream != nil {
		stream.Close()
	}
	if c.metrics != nil {
		c.metrics.ActiveSessions.Add(context.Background(), -1)
	}
	slog.Error("capture stream failed", "error", cause)
	c.emit(Event{Type: EventError, Message: "microphone stream ended: " + cause.Error()})
	c.emit(Event{Type: EventSessionStopped})
}

// ManualStop ends the current utterance immediately instead of waiting for
// the silence timeout.
func (c *Controller) ManualStop() {
	c.mu.Lock()
	machine := c.machine
	c.mu.Unlock()
	if machine != nil {
		machine.ManualStop()
	}
}

// SetPauseTime adjusts the silence window for subsequent utterances.
func (c *Controller) SetPauseTime(pause time.Duration) {
	c.mu.Lock()
	c.pauseTime = pause
	machine := c.machine
	c.mu.Unlock()
	if machine != nil {
		machine.SetPauseTime(pause)
	}
}

// handleCapture processes one finished utterance: trim, encode, dispatch,
// apply, play. It runs on its own goroutine; the segmenter stays suspended
// until the deferred resume.
func (c *Controller) handleCapture(ctx context.Context, token string, capture segment.Capture) {
	c.mu.Lock()
	if c.processingToken == token {
		// A dispatch for this session is already outstanding; the segmenter
		// should make this impossible. Drop rather than race. A leftover
		// dispatch from a stopped session does not block here: its result is
		// rejected by token comparison, not by this guard.
		c.mu.Unlock()
		c.emit(Event{Type: EventUtteranceDiscarded, Message: "previous utterance still processing"})
		return
	}
	c.processingToken = token
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.processingToken == token {
			c.processingToken = ""
		}
		resume := c.active && c.token == token
		machine := c.machine
		c.mu.Unlock()
		if resume && machine != nil {
			machine.Resume()
			c.emit(Event{Type: EventMonitoringStarted})
		}
	}()

	if capture.Discarded {
		c.recordUtterance(ctx, "discarded")
		c.emit(Event{Type: EventUtteranceDiscarded, Message: capture.Reason})
		return
	}

	buf := capture.Buffer()
	trimmed, err := audio.TrimSilence(buf, audio.TrimParams{
		Policy:           c.cfg.TrimPolicy,
		SilenceDuration:  c.currentPause(),
		MinValidDuration: c.cfg.MinValidDuration,
		RecordingStart:   capture.Start,
		SpeechStart:      capture.SpeechStart,
	})
	if err != nil {
		if errors.Is(err, audio.ErrTooShort) {
			c.recordUtterance(ctx, "discarded")
			c.emit(Event{Type: EventUtteranceDiscarded, Message: "recording too short"})
			return
		}
		c.recordUtterance(ctx, "error")
		c.emit(Event{Type: EventError, Message: err.Error()})
		return
	}
	if c.metrics != nil {
		c.metrics.UtteranceDuration.Record(ctx, trimmed.Duration().Seconds())
	}

	wav, err := audio.EncodeWAV(trimmed)
	if err != nil {
		c.recordUtterance(ctx, "error")
		c.emit(Event{Type: EventError, Message: err.Error()})
		return
	}

	conv, ok := c.snapshotCurrent()
	if !ok {
		c.recordUtterance(ctx, "error")
		c.emit(Event{Type: EventError, Message: "no current conversation"})
		return
	}
	settings := c.settings()

	c.emit(Event{Type: EventProcessingStarted})

	var result *dispatch.ProcessResult
	start := time.Now()
	err = c.breaker.Execute(func() error {
		var callErr error
		result, callErr = c.service.ProcessAudio(ctx, wav, conv, settings)
		return callErr
	})
	if c.metrics != nil {
		c.metrics.DispatchDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Session stopped while the upload was in flight.
			c.recordUtterance(ctx, "stale")
			c.emit(Event{Type: EventUtteranceDiscarded, Message: "session stopped"})
			return
		}
		if c.metrics != nil {
			c.metrics.RecordDispatchError(ctx, "process_audio")
		}
		c.recordUtterance(ctx, "error")
		slog.Error("utterance dispatch failed", "error", err)
		c.emit(Event{Type: EventError, Message: err.Error()})
		return
	}

	// A result for a stopped or restarted session must not touch state.
	c.mu.Lock()
	stale := !c.active || c.token != token
	c.mu.Unlock()
	if stale {
		c.recordUtterance(ctx, "stale")
		c.emit(Event{Type: EventUtteranceDiscarded, Message: "session no longer active"})
		return
	}

	c.applyResponse(ctx, result.Conversation)
	c.recordUtterance(ctx, "dispatched")

	if result.AudioBase64 != "" {
		c.playResponse(ctx, result.AudioBase64)
	}
}

// applyResponse replaces the current conversation's content with the
// backend's version, keeping the immutable ID, and persists the full set.
func (c *Controller) applyResponse(ctx context.Context, updated chat.Conversation) {
	c.mu.Lock()
	var id int64
	for i := range c.conversations {
		if c.conversations[i].ID == c.currentID {
			updated.ID = c.currentID
			updated.DisplayName = c.conversations[i].DisplayName
			c.conversations[i] = updated
			id = c.currentID
			break
		}
	}
	convs := make([]chat.Conversation, len(c.conversations))
	copy(convs, c.conversations)
	c.mu.Unlock()

	if err := c.store.ReplaceAll(ctx, convs); err != nil {
		slog.Error("persist conversations", "error", err)
		c.emit(Event{Type: EventError, Message: "failed to save conversation: " + err.Error()})
	}
	c.emit(Event{Type: EventResponseReceived, ConversationID: id})
}

// playResponse decodes the base64 WAV answer, applies the playback-speed
// setting, and plays it to completion.
func (c *Controller) playResponse(ctx context.Context, audioBase64 string) {
	raw, err := base64.StdEncoding.DecodeString(audioBase64)
	if err != nil {
		c.emit(Event{Type: EventError, Message: "malformed response audio: " + err.Error()})
		return
	}
	buf, err := audio.DecodeWAV(raw)
	if err != nil {
		c.emit(Event{Type: EventError, Message: "malformed response audio: " + err.Error()})
		return
	}

	// Slider domain [0, 1] maps to playback rate [0.9, 1.0].
	rate := 0.9 + c.settings().PlaybackSpeed*0.1
	buf = audio.Resample(buf, rate)

	c.emit(Event{Type: EventPlaybackStarted})
	start := time.Now()
	if err := c.player.Play(ctx, buf); err != nil && !errors.Is(err, context.Canceled) {
		c.emit(Event{Type: EventError, Message: "playback failed: " + err.Error()})
	}
	if c.metrics != nil {
		c.metrics.PlaybackDuration.Record(ctx, time.Since(start).Seconds())
	}
}

// NewConversation creates and switches to a fresh conversation. Returns
// [ErrEmptyConversation] without creating one when the newest conversation
// has no content yet.
func (c *Controller) NewConversation(ctx context.Context) (chat.Conversation, error) {
	c.mu.Lock()
	if n := len(c.conversations); n > 0 && c.conversations[n-1].Empty() {
		c.mu.Unlock()
		return chat.Conversation{}, ErrEmptyConversation
	}
	conv := chat.New(time.Now())
	c.conversations = append(c.conversations, conv)
	c.currentID = conv.ID
	convs := make([]chat.Conversation, len(c.conversations))
	copy(convs, c.conversations)
	c.mu.Unlock()

	if err := c.store.ReplaceAll(ctx, convs); err != nil {
		return chat.Conversation{}, fmt.Errorf("tutor: persist new conversation: %w", err)
	}
	c.emit(Event{Type: EventConversationCreated, ConversationID: conv.ID})
	return conv, nil
}

// SwitchConversation makes the conversation with the given ID current.
func (c *Controller) SwitchConversation(id int64) error {
	c.mu.Lock()
	found := false
	for i := range c.conversations {
		if c.conversations[i].ID == id {
			found = true
			break
		}
	}
	if found {
		c.currentID = id
	}
	c.mu.Unlock()

	if !found {
		return fmt.Errorf("tutor: no conversation with id %d", id)
	}
	c.emit(Event{Type: EventConversationSwitched, ConversationID: id})
	return nil
}

// Conversations returns a copy of all conversations, oldest first.
func (c *Controller) Conversations() []chat.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chat.Conversation, len(c.conversations))
	copy(out, c.conversations)
	return out
}

// Current returns the current conversation.
func (c *Controller) Current() (chat.Conversation, bool) {
	return c.snapshotCurrent()
}

// GenerateHomework asks the backend for homework derived from the current
// conversation.
func (c *Controller) GenerateHomework(ctx context.Context) (string, error) {
	conv, ok := c.snapshotCurrent()
	if !ok {
		return "", errors.New("tutor: no current conversation")
	}
	homework, err := c.service.GenerateHomework(ctx, conv, c.settings())
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordDispatchError(ctx, "generate_homework")
		}
		return "", fmt.Errorf("tutor: generate homework: %w", err)
	}
	return homework, nil
}

// NameCurrentConversation asks the backend for a display name for the
// current conversation, falling back to a timestamp-derived name on failure,
// and persists the result.
func (c *Controller) NameCurrentConversation(ctx context.Context) (string, error) {
	conv, ok := c.snapshotCurrent()
	if !ok {
		return "", errors.New("tutor: no current conversation")
	}

	name, err := c.service.GenerateChatName(ctx, conv, c.settings())
	if err != nil || name == "" {
		if err != nil {
			if c.metrics != nil {
				c.metrics.RecordDispatchError(ctx, "generate_chat_name")
			}
			slog.Warn("chat naming failed, using fallback", "error", err)
		}
		name = conv.FallbackName()
	}

	c.mu.Lock()
	for i := range c.conversations {
		if c.conversations[i].ID == conv.ID {
			c.conversations[i].DisplayName = name
			break
		}
	}
	convs := make([]chat.Conversation, len(c.conversations))
	copy(convs, c.conversations)
	c.mu.Unlock()

	if err := c.store.ReplaceAll(ctx, convs); err != nil {
		return name, fmt.Errorf("tutor: persist conversation name: %w", err)
	}
	return name, nil
}

// Active reports whether the session is currently monitoring or processing.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Controller) snapshotCurrent() (chat.Conversation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.conversations {
		if c.conversations[i].ID == c.currentID {
			return c.conversations[i], true
		}
	}
	return chat.Conversation{}, false
}

func (c *Controller) currentPause() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pauseTime
}

// settings returns the dispatch settings with the live pause time filled in.
func (c *Controller) settings() dispatch.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.cfg.Settings
	s.PauseTime = c.pauseTime.Seconds()
	return s
}

func (c *Controller) recordUtterance(ctx context.Context, status string) {
	if c.metrics != nil {
		c.metrics.RecordUtterance(ctx, status)
	}
}
