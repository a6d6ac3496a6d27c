package audio

import (
	"errors"
	"fmt"
	"time"
)

// ErrTooShort is returned by [TrimSilence] when the remaining audio after
// trimming is too short to be a meaningful utterance. It marks a normal
// outcome, not a failure: callers should discard the recording and resume
// listening.
var ErrTooShort = errors.New("audio: trimmed recording too short")

// SpeechStartLead is how much audio before the detected speech start is kept
// when head-trimming, so that the first syllable is not clipped.
const SpeechStartLead = 300 * time.Millisecond

// TrimPolicy selects which end of a finalized recording the trimmer removes
// silence from.
type TrimPolicy int

const (
	// TrimTail drops a fixed duration of trailing silence — the span the
	// segmenter waited through before declaring the utterance over.
	TrimTail TrimPolicy = iota

	// TrimFromSpeechStart drops everything recorded before the detected
	// speech start (minus [SpeechStartLead]). Used with capture-then-trim,
	// where recording runs from session start and may carry seconds of
	// leading room tone.
	TrimFromSpeechStart
)

// String returns the configuration name of the policy.
func (p TrimPolicy) String() string {
	switch p {
	case TrimTail:
		return "tail"
	case TrimFromSpeechStart:
		return "speech-start"
	default:
		return "unknown"
	}
}

// ParseTrimPolicy converts a configuration string into a [TrimPolicy].
func ParseTrimPolicy(s string) (TrimPolicy, error) {
	switch s {
	case "tail":
		return TrimTail, nil
	case "speech-start":
		return TrimFromSpeechStart, nil
	default:
		return 0, fmt.Errorf("audio: unknown trim policy %q (valid: tail, speech-start)", s)
	}
}

// TrimParams carries the inputs for one [TrimSilence] call.
type TrimParams struct {
	// Policy selects the trim strategy.
	Policy TrimPolicy

	// SilenceDuration is the trailing span removed by [TrimTail]. Usually
	// equal to the segmenter's configured pause time.
	SilenceDuration time.Duration

	// MinValidDuration is the minimum remaining duration for the recording
	// to be kept. Anything at or below it yields [ErrTooShort].
	MinValidDuration time.Duration

	// RecordingStart and SpeechStart anchor [TrimFromSpeechStart]: the
	// removed prefix is SpeechStart − RecordingStart − [SpeechStartLead],
	// floored at zero. Both are ignored by [TrimTail].
	RecordingStart time.Time
	SpeechStart    time.Time
}

// TrimSilence removes silence from a finalized recording according to
// p.Policy and rejects recordings that end up too short. Channel count and
// sample rate are preserved exactly; sample indices are clamped to the valid
// range, so a zero-length removal window returns the input unchanged.
func TrimSilence(buf Buffer, p TrimParams) (Buffer, error) {
	if buf.SampleRate <= 0 {
		return Buffer{}, fmt.Errorf("audio: trim: sample rate must be positive, got %d", buf.SampleRate)
	}

	n := buf.Len()
	from, to := 0, n

	switch p.Policy {
	case TrimTail:
		to = n - samplesFor(p.SilenceDuration, buf.SampleRate)
	case TrimFromSpeechStart:
		offset := p.SpeechStart.Sub(p.RecordingStart) - SpeechStartLead
		if offset < 0 {
			offset = 0
		}
		from = samplesFor(offset, buf.SampleRate)
	default:
		return Buffer{}, fmt.Errorf("audio: trim: unknown policy %d", int(p.Policy))
	}

	out := buf.Slice(from, to)
	if out.Duration() <= p.MinValidDuration {
		return Buffer{}, ErrTooShort
	}
	return out, nil
}

// samplesFor converts a duration to a per-channel sample count at rate Hz.
func samplesFor(d time.Duration, rate int) int {
	if d <= 0 {
		return 0
	}
	return int(d.Seconds() * float64(rate))
}
