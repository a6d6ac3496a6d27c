// Package segment turns a stream of sound-level samples into utterance
// boundaries.
//
// The [Machine] implements the capture-then-trim strategy: raw audio is
// recorded continuously from the moment monitoring starts, and the
// speech/silence [Tracker] only decides where the utterance *ends*. The
// leading room tone is removed later by the silence trimmer, which avoids
// clipping the first word of an utterance the way detect-then-start
// segmentation does.
package segment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/parlatore/parlatore/pkg/audio"
)

// ErrStreamClosed is returned by [Machine.Run] when the capture stream's
// frame channel closes while the session is still running, meaning the
// device died underneath it.
var ErrStreamClosed = errors.New("segment: capture stream closed")

// Capture is one finalized recording, handed to the session controller by
// value. After finalization the machine keeps no reference to its data.
type Capture struct {
	// Samples holds the recorded PCM, interleaved per Format, in chunk
	// arrival order.
	Samples []float32

	// Format is the capture stream's format.
	Format audio.Format

	// Start is when this capture window began (monitoring start or the most
	// recent resume).
	Start time.Time

	// SpeechStart is when speech was first detected, or zero if never.
	SpeechStart time.Time

	// Discarded marks a capture that should not be dispatched; Reason says
	// why.
	Discarded bool
	Reason    string
}

// Buffer de-interleaves the captured samples into an [audio.Buffer].
func (c Capture) Buffer() audio.Buffer {
	channels := c.Format.Channels
	if channels < 1 {
		channels = 1
	}
	frames := len(c.Samples) / channels
	buf := audio.Buffer{SampleRate: c.Format.SampleRate, Channels: make([][]float32, channels)}
	for ch := range buf.Channels {
		buf.Channels[ch] = make([]float32, frames)
		for i := 0; i < frames; i++ {
			buf.Channels[ch][i] = c.Samples[i*channels+ch]
		}
	}
	return buf
}

// Config holds the tuning knobs for a [Machine].
type Config struct {
	// PauseTime is the contiguous silence required to end an utterance.
	PauseTime time.Duration

	// PollInterval is the period between sound samples. Defaults to
	// [audio.DefaultPollInterval].
	PollInterval time.Duration

	// GraceDelay is how long a manual stop waits before finalizing, letting
	// the capture stream flush its last chunk. Defaults to 90% of
	// PauseTime.
	GraceDelay time.Duration

	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// Machine owns the speech/silence timers and the chunk accumulator for one
// session. It polls the sound-level monitor at a fixed interval, accumulates
// raw frames from the capture stream in arrival order, and emits exactly one
// [Capture] per utterance through the completion callback.
//
// After emitting, the machine suspends itself: no samples are evaluated and
// no frames retained until [Machine.Resume]. This is what makes utterances
// non-overlapping — a new capture cannot begin while the controller is still
// processing the previous one.
//
// All exported methods are safe for concurrent use.
type Machine struct {
	monitor    *audio.Monitor
	stream     audio.CaptureStream
	cfg        Config
	onSample   func(audio.Sample)
	onComplete func(Capture)

	mu        sync.Mutex
	tracker   *Tracker
	samples   []float32
	start     time.Time
	capturing bool
	stopped   bool
}

// New creates a Machine reading sound levels from monitor and raw audio
// from stream. onSample is invoked for every poll (may be nil); onComplete
// receives each finalized capture. Zero-value config fields get defaults.
func New(stream audio.CaptureStream, monitor *audio.Monitor, cfg Config, onSample func(audio.Sample), onComplete func(Capture)) *Machine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = audio.DefaultPollInterval
	}
	if cfg.PauseTime <= 0 {
		cfg.PauseTime = time.Second
	}
	if cfg.GraceDelay <= 0 {
		cfg.GraceDelay = cfg.PauseTime * 9 / 10
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Machine{
		monitor:    monitor,
		stream:     stream,
		cfg:        cfg,
		onSample:   onSample,
		onComplete: onComplete,
		tracker:    NewTracker(cfg.PauseTime),
	}
}

// Run starts capturing and polls until ctx is cancelled or the capture
// stream closes. It blocks; run it on its own goroutine. Frames are consumed
// on a second, internal goroutine so that a slow poll never backs up the
// device.
//
// Run returns nil when ctx ends the session and [ErrStreamClosed] when the
// stream's frame channel closed first — the device going away is a failure
// the session owner must react to.
func (m *Machine) Run(ctx context.Context) error {
	m.mu.Lock()
	m.capturing = true
	m.start = m.cfg.Clock()
	m.mu.Unlock()

	frameDone := make(chan struct{})
	go func() {
		defer close(frameDone)
		for frame := range m.stream.Frames() {
			m.mu.Lock()
			if m.capturing && !m.stopped {
				m.samples = append(m.samples, frame.Data...)
			}
			m.mu.Unlock()
		}
	}()

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			m.stopped = true
			m.capturing = false
			m.mu.Unlock()
			return nil
		case <-frameDone:
			// Device went away underneath us.
			m.mu.Lock()
			m.stopped = true
			m.capturing = false
			m.mu.Unlock()
			return ErrStreamClosed
		case <-ticker.C:
			m.poll()
		}
	}
}

// poll takes one sound sample and advances the tracker. Holding the lock for
// the whole step keeps sample evaluation and finalization atomic with
// respect to ManualStop.
func (m *Machine) poll() {
	m.mu.Lock()
	if !m.capturing || m.stopped {
		m.mu.Unlock()
		return
	}
	sample := m.monitor.Sample()
	boundary := m.tracker.Observe(sample.Silent, m.cfg.Clock())
	var capture Capture
	if boundary {
		capture = m.finalizeLocked("")
	}
	onSample := m.onSample
	m.mu.Unlock()

	if onSample != nil {
		onSample(sample)
	}
	if boundary {
		m.onComplete(capture)
	}
}

// ManualStop ends the current utterance immediately, bypassing the silence
// timeout. It keeps accepting frames for the grace delay so the device can
// flush its final chunk, then finalizes and emits exactly as the automatic
// path does. A no-op when nothing is being captured.
func (m *Machine) ManualStop() {
	m.mu.Lock()
	if !m.capturing || m.stopped {
		m.mu.Unlock()
		return
	}
	// Suspend the tracker so a tick during the grace window cannot also
	// finalize.
	m.tracker.done = true
	grace := m.cfg.GraceDelay
	m.mu.Unlock()

	time.AfterFunc(grace, func() {
		m.mu.Lock()
		if !m.capturing || m.stopped {
			m.mu.Unlock()
			return
		}
		capture := m.finalizeLocked("")
		m.mu.Unlock()
		m.onComplete(capture)
	})
}

// Resume re-arms the machine for the next utterance after the controller has
// finished processing the previous one: timers reset, accumulator cleared,
// capture window restarted.
func (m *Machine) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.tracker.Reset()
	m.samples = nil
	m.start = m.cfg.Clock()
	m.capturing = true
}

// SetPauseTime adjusts the silence window for subsequent utterances.
func (m *Machine) SetPauseTime(pause time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.PauseTime = pause
	m.tracker.SetPause(pause)
}

// finalizeLocked snapshots the current capture and suspends the machine.
// Must be called with m.mu held. The samples slice is handed off, not
// copied: the machine drops its reference.
func (m *Machine) finalizeLocked(reason string) Capture {
	capture := Capture{
		Samples:     m.samples,
		Format:      m.stream.Format(),
		Start:       m.start,
		SpeechStart: m.tracker.SpeechStart(),
	}
	if len(capture.Samples) == 0 {
		capture.Discarded = true
		capture.Reason = "no audio captured"
	}
	if reason != "" {
		capture.Discarded = true
		capture.Reason = reason
	}
	m.samples = nil
	m.capturing = false
	m.tracker.Reset()
	return capture
}
