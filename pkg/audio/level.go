package audio

import "time"

// Default tuning for the sound-level monitor. Values match the reference
// behaviour of the tutoring client: a 256-point analysis window polled every
// 20 ms, with anything quieter than 24 (on the 0–255 byte scale) treated as
// silence.
const (
	// DefaultSilenceThreshold is the byte-scale energy level below which a
	// sample is classified as silence.
	DefaultSilenceThreshold = 24

	// DefaultPollInterval is the fixed period between sound samples.
	DefaultPollInterval = 20 * time.Millisecond

	// AnalysisWindowSize is the FFT size of the analysis window; the monitor
	// averages over AnalysisWindowSize/2 frequency bins.
	AnalysisWindowSize = 256

	// DefaultMinValidDuration is the shortest recording worth dispatching.
	DefaultMinValidDuration = 600 * time.Millisecond
)

// Analyser exposes a frequency-domain view of a live audio stream. Each call
// to FrequencyData fills dst with the current per-bin magnitudes on a 0–255
// byte scale and returns the number of bins written.
//
// Implementations must not block: FrequencyData reads whatever window of
// audio is currently available.
type Analyser interface {
	FrequencyData(dst []byte) int
}

// Sample is a single ephemeral sound-level reading: the mean bin magnitude
// and its silence classification. Samples are produced at a fixed polling
// interval, consumed immediately by the segmenter, and discarded.
type Sample struct {
	// Average is the mean magnitude across the analysis bins (0–255).
	Average float64

	// Silent reports whether Average fell below the silence threshold.
	Silent bool
}

// Monitor converts a live capture stream's [Analyser] into a repeating
// stream of [Sample] values. It holds no state beyond its scratch buffer and
// never fails: before the analyser is wired up it reports silence rather
// than erroring.
//
// A Monitor is used from the segmenter's single polling goroutine and is not
// safe for concurrent use.
type Monitor struct {
	analyser  Analyser
	threshold float64
	bins      []byte
}

// NewMonitor creates a Monitor reading from analyser. A nil analyser is
// valid and yields silent samples until [Monitor.SetAnalyser] is called.
// A non-positive threshold falls back to [DefaultSilenceThreshold].
func NewMonitor(analyser Analyser, threshold float64) *Monitor {
	if threshold <= 0 {
		threshold = DefaultSilenceThreshold
	}
	return &Monitor{
		analyser:  analyser,
		threshold: threshold,
		bins:      make([]byte, AnalysisWindowSize/2),
	}
}

// SetAnalyser swaps the underlying analyser, e.g. when monitoring resumes on
// a fresh capture stream.
func (m *Monitor) SetAnalyser(a Analyser) {
	m.analyser = a
}

// Sample reads the current analysis window and classifies it. With no
// analyser wired, or an analyser that produced no bins yet, it returns a
// silent zero sample instead of failing.
func (m *Monitor) Sample() Sample {
	if m.analyser == nil {
		return Sample{Average: 0, Silent: true}
	}
	n := m.analyser.FrequencyData(m.bins)
	if n == 0 {
		return Sample{Average: 0, Silent: true}
	}
	var sum float64
	for _, v := range m.bins[:n] {
		sum += float64(v)
	}
	avg := sum / float64(n)
	return Sample{Average: avg, Silent: avg < m.threshold}
}
