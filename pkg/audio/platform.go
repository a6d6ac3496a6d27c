// Package audio defines the audio primitives and device abstractions for the
// Parlatore voice tutoring client.
//
// The two primary abstractions are:
//
//   - [Platform] — enumerates input devices and opens a [CaptureStream] on one.
//   - [Player] — plays a decoded [Buffer] on the output device, blocking until
//     playback naturally ends.
//
// Around them the package provides the pure building blocks of the capture
// pipeline: the WAV codec ([EncodeWAV], [DecodeWAV]), the silence trimmer
// ([TrimSilence]), the sound-level [Monitor] with its [Analyser] view, and
// linear-interpolation resampling ([Resample]) for the playback-speed
// setting.
//
// Implementations of [Platform] and [Player] are provided by device-specific
// adapter packages (e.g. audio/portaudio); audio/mock supplies in-memory
// doubles for tests. The interfaces are intentionally narrow to keep the
// session controller decoupled from device details.
package audio

import (
	"context"
	"fmt"
)

// Device identifies a single audio input device.
type Device struct {
	// ID is the platform-specific device identifier. The empty string means
	// the system default device.
	ID string

	// Name is the human-readable device name.
	Name string

	// Default reports whether this is the system default input device.
	Default bool
}

// CaptureStream is an open microphone stream. Frames are delivered strictly
// in arrival order until the stream is closed.
//
// A CaptureStream is owned exclusively by one session controller for the
// lifetime of a start/stop pair; no other component may open a competing
// stream on the same device.
type CaptureStream interface {
	// Frames returns the channel delivering captured PCM frames in arrival
	// order. The channel is closed when the stream is closed or the device
	// fails.
	Frames() <-chan Frame

	// Analyser returns the frequency-domain view of this stream for
	// sound-level monitoring.
	Analyser() Analyser

	// Format reports the stream's sample rate and channel count.
	Format() Format

	// Close releases the device. Safe to call more than once.
	Close() error
}

// Platform is the entry point for an audio input provider.
//
// Implementations must be safe for concurrent use.
type Platform interface {
	// Devices lists the available input devices.
	Devices() ([]Device, error)

	// Open acquires the input device identified by deviceID (empty for the
	// system default) and starts capturing. The supplied ctx governs the
	// lifetime of the acquisition attempt only; once open, the stream lives
	// until [CaptureStream.Close].
	//
	// Acquisition failures are returned as a [*DeviceError].
	Open(ctx context.Context, deviceID string) (CaptureStream, error)
}

// Player plays decoded audio on the output device.
type Player interface {
	// Play writes buf to the output device and blocks until playback
	// naturally ends or ctx is cancelled. Playback failures are returned as
	// a [*DeviceError].
	Play(ctx context.Context, buf Buffer) error
}

// DeviceError reports a failure to acquire or use an audio device. Device
// errors are fatal to a session: the controller tears the session down
// rather than retrying.
type DeviceError struct {
	// Op names the failing operation ("open", "play", "devices").
	Op string

	// Device is the device ID involved, if any.
	Device string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *DeviceError) Error() string {
	if e.Device != "" {
		return fmt.Sprintf("audio: %s device %q: %v", e.Op, e.Device, e.Err)
	}
	return fmt.Sprintf("audio: %s device: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DeviceError) Unwrap() error { return e.Err }
