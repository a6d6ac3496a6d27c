package segment

import "time"

// Tracker is the pure speech/silence transition core of the segmenter. It
// consumes one classification per sound sample and reports when sustained
// silence after speech marks the end of an utterance.
//
// The rule, evaluated on every sample:
//
//   - Not silent: record the speech start if unset, clear the silence timer.
//   - Silent after speech: start the silence timer if unset; once the timer
//     has run for the configured pause time, signal the boundary.
//   - Silent before any speech: no-op, still waiting for the first word.
//
// Tracker reports at most one boundary per utterance; [Tracker.Reset] arms
// it for the next one. It is used from a single polling goroutine and is
// not safe for concurrent use.
type Tracker struct {
	pause        time.Duration
	speechStart  time.Time
	silenceStart time.Time
	done         bool
}

// NewTracker creates a Tracker that ends an utterance after pause of
// contiguous silence following at least one non-silent sample.
func NewTracker(pause time.Duration) *Tracker {
	return &Tracker{pause: pause}
}

// Observe feeds one classified sound sample taken at now. It returns true
// exactly once per utterance, on the sample that completes the silence
// window.
func (t *Tracker) Observe(silent bool, now time.Time) bool {
	if t.done {
		return false
	}
	if !silent {
		if t.speechStart.IsZero() {
			t.speechStart = now
		}
		t.silenceStart = time.Time{}
		return false
	}
	if t.speechStart.IsZero() {
		return false
	}
	if t.silenceStart.IsZero() {
		t.silenceStart = now
		return false
	}
	if now.Sub(t.silenceStart) >= t.pause {
		t.done = true
		return true
	}
	return false
}

// SpeechStart returns when speech was first detected in the current
// utterance, or the zero time if none was.
func (t *Tracker) SpeechStart() time.Time { return t.speechStart }

// SetPause updates the silence duration required to end an utterance. It
// applies from the next sample onward.
func (t *Tracker) SetPause(pause time.Duration) { t.pause = pause }

// Reset clears all timers and re-arms the tracker for the next utterance.
func (t *Tracker) Reset() {
	t.speechStart = time.Time{}
	t.silenceStart = time.Time{}
	t.done = false
}
