// Package mock provides in-memory mock implementations of the
// [audio.Platform], [audio.CaptureStream], [audio.Player], and
// [audio.Analyser] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	stream := mock.NewCaptureStream(audio.Format{SampleRate: 16000, Channels: 1})
//	platform := &mock.Platform{OpenResult: stream}
//	got, err := platform.Open(ctx, "mic-1")
package mock

import (
	"context"
	"sync"

	"github.com/parlatore/parlatore/pkg/audio"
)

// ─── Analyser ─────────────────────────────────────────────────────────────────

// Analyser is a mock implementation of [audio.Analyser]. Set Levels to the
// byte magnitudes each call should report; calls past the end of Levels
// repeat the final entry.
type Analyser struct {
	mu sync.Mutex

	// Levels holds one flat magnitude per call: every bin of call i is
	// filled with Levels[i].
	Levels []byte

	// Bins is the bin count reported per call. Defaults to 128 if zero.
	Bins int

	// CallCount records how many times FrequencyData was called.
	CallCount int
}

// FrequencyData implements [audio.Analyser].
func (a *Analyser) FrequencyData(dst []byte) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.Levels) == 0 {
		return 0
	}
	i := a.CallCount
	a.CallCount++
	if i >= len(a.Levels) {
		i = len(a.Levels) - 1
	}
	n := a.Bins
	if n == 0 {
		n = 128
	}
	if n > len(dst) {
		n = len(dst)
	}
	for j := 0; j < n; j++ {
		dst[j] = a.Levels[i]
	}
	return n
}

// ─── CaptureStream ────────────────────────────────────────────────────────────

// CaptureStream is a mock implementation of [audio.CaptureStream]. Feed
// frames to tests via [CaptureStream.Emit]; Close closes the frame channel.
type CaptureStream struct {
	mu sync.Mutex

	// AnalyserResult is returned by Analyser. Defaults to an empty
	// (always-silent) mock analyser if nil.
	AnalyserResult audio.Analyser

	// CloseError is returned by Close.
	CloseError error

	// CallCountClose records how many times Close was called.
	CallCountClose int

	format audio.Format
	frames chan audio.Frame
	closed bool
}

// NewCaptureStream creates a mock stream with the given format and a
// buffered frame channel.
func NewCaptureStream(format audio.Format) *CaptureStream {
	return &CaptureStream{
		format: format,
		frames: make(chan audio.Frame, 64),
	}
}

// Emit delivers a frame to the stream's consumers. Emitting after Close is a
// no-op.
func (s *CaptureStream) Emit(f audio.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.frames <- f
}

// Frames implements [audio.CaptureStream].
func (s *CaptureStream) Frames() <-chan audio.Frame { return s.frames }

// Analyser implements [audio.CaptureStream].
func (s *CaptureStream) Analyser() audio.Analyser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AnalyserResult == nil {
		s.AnalyserResult = &Analyser{}
	}
	return s.AnalyserResult
}

// Format implements [audio.CaptureStream].
func (s *CaptureStream) Format() audio.Format { return s.format }

// Close implements [audio.CaptureStream]. The frame channel is closed on the
// first call; subsequent calls only increment the counter.
func (s *CaptureStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	if !s.closed {
		s.closed = true
		close(s.frames)
	}
	return s.CloseError
}

// ─── Platform ─────────────────────────────────────────────────────────────────

// OpenCall records the arguments of a single [Platform.Open] invocation.
type OpenCall struct {
	// DeviceID is the deviceID argument passed to Open.
	DeviceID string
}

// Platform is a mock implementation of [audio.Platform].
type Platform struct {
	mu sync.Mutex

	// DevicesResult is returned by Devices.
	DevicesResult []audio.Device

	// DevicesError is returned by Devices.
	DevicesError error

	// OpenResult is the stream returned by Open. When nil and OpenError is
	// also nil, a fresh mock stream (16 kHz mono) is created per call.
	OpenResult audio.CaptureStream

	// OpenError is the error returned by Open.
	OpenError error

	// OpenDelay, when non-nil, is received from before Open returns. Lets
	// tests hold a device acquisition in flight.
	OpenDelay <-chan struct{}

	// OpenCalls records all Open invocations.
	OpenCalls []OpenCall

	// Opened records every stream Open returned, in order.
	Opened []audio.CaptureStream
}

// Devices implements [audio.Platform].
func (p *Platform) Devices() ([]audio.Device, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.DevicesResult, p.DevicesError
}

// Open implements [audio.Platform]. Records the call, optionally blocks on
// OpenDelay (or ctx), and returns OpenResult / OpenError.
func (p *Platform) Open(ctx context.Context, deviceID string) (audio.CaptureStream, error) {
	p.mu.Lock()
	p.OpenCalls = append(p.OpenCalls, OpenCall{DeviceID: deviceID})
	delay := p.OpenDelay
	openErr := p.OpenError
	result := p.OpenResult
	p.mu.Unlock()

	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if openErr != nil {
		return nil, openErr
	}
	if result == nil {
		result = NewCaptureStream(audio.Format{SampleRate: 16000, Channels: 1})
	}
	p.mu.Lock()
	p.Opened = append(p.Opened, result)
	p.mu.Unlock()
	return result, nil
}

// CallCountOpen returns how many times Open was called.
func (p *Platform) CallCountOpen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.OpenCalls)
}

// ─── Player ───────────────────────────────────────────────────────────────────

// PlayCall records the arguments of a single [Player.Play] invocation.
type PlayCall struct {
	// Buffer is the buffer passed to Play.
	Buffer audio.Buffer
}

// Player is a mock implementation of [audio.Player].
type Player struct {
	mu sync.Mutex

	// PlayError is returned by Play.
	PlayError error

	// Block, when non-nil, is received from before Play returns. Use it to
	// hold playback open while a test asserts on intermediate state.
	Block <-chan struct{}

	// PlayCalls records all Play invocations.
	PlayCalls []PlayCall
}

// Play implements [audio.Player]. Records the call, optionally blocks on
// Block (or ctx), and returns PlayError.
func (p *Player) Play(ctx context.Context, buf audio.Buffer) error {
	p.mu.Lock()
	p.PlayCalls = append(p.PlayCalls, PlayCall{Buffer: buf})
	block := p.Block
	err := p.PlayError
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// CallCountPlay returns how many times Play was called.
func (p *Player) CallCountPlay() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.PlayCalls)
}
