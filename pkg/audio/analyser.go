package audio

import (
	"math"
	"math/bits"
	"sync"
)

// Decibel range mapped onto the 0–255 byte scale, matching the behaviour of
// the browser analyser node the tutoring client was tuned against.
const (
	minDecibels = -100.0
	maxDecibels = -30.0
)

// SpectrumAnalyser implements [Analyser] over raw PCM pushed from a capture
// stream. It keeps a ring of the most recent [AnalysisWindowSize] samples
// and, on demand, runs a windowed FFT over them, reporting per-bin
// magnitudes on the byte scale.
//
// Push and FrequencyData may be called from different goroutines.
type SpectrumAnalyser struct {
	mu     sync.Mutex
	ring   [AnalysisWindowSize]float32
	pos    int
	filled bool

	// Scratch reused across FrequencyData calls; guarded by mu.
	re, im [AnalysisWindowSize]float64
}

// NewSpectrumAnalyser creates an empty analyser. Until the first full window
// of samples has been pushed, FrequencyData reports zero bins.
func NewSpectrumAnalyser() *SpectrumAnalyser {
	return &SpectrumAnalyser{}
}

// Push appends mono PCM samples to the analysis ring. Multi-channel callers
// should push a single downmixed channel.
func (a *SpectrumAnalyser) Push(samples []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range samples {
		a.ring[a.pos] = s
		a.pos++
		if a.pos == AnalysisWindowSize {
			a.pos = 0
			a.filled = true
		}
	}
}

// FrequencyData implements [Analyser]. It fills dst with up to
// [AnalysisWindowSize]/2 byte-scaled bin magnitudes and returns the count
// written. Before a full window has accumulated it returns 0.
func (a *SpectrumAnalyser) FrequencyData(dst []byte) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.filled {
		return 0
	}

	// Unroll the ring into FFT input, oldest sample first, with a Hann
	// window to limit spectral leakage.
	for i := 0; i < AnalysisWindowSize; i++ {
		s := float64(a.ring[(a.pos+i)%AnalysisWindowSize])
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(AnalysisWindowSize-1)))
		a.re[i] = s * w
		a.im[i] = 0
	}
	fft(a.re[:], a.im[:])

	n := AnalysisWindowSize / 2
	if len(dst) < n {
		n = len(dst)
	}
	for k := 0; k < n; k++ {
		mag := math.Hypot(a.re[k], a.im[k]) / (AnalysisWindowSize / 2)
		db := minDecibels
		if mag > 0 {
			db = 20 * math.Log10(mag)
		}
		scaled := (db - minDecibels) / (maxDecibels - minDecibels) * 255
		if scaled < 0 {
			scaled = 0
		} else if scaled > 255 {
			scaled = 255
		}
		dst[k] = byte(scaled)
	}
	return n
}

// fft computes an in-place radix-2 Cooley–Tukey FFT. len(re) must be a power
// of two and equal to len(im).
func fft(re, im []float64) {
	n := len(re)
	shift := 64 - uint(bits.TrailingZeros(uint(n)))

	// Bit-reversal permutation.
	for i := 1; i < n; i++ {
		j := int(bits.Reverse64(uint64(i)) >> shift)
		if j > i {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	for size := 2; size <= n; size *= 2 {
		half := size / 2
		step := -2 * math.Pi / float64(size)
		for start := 0; start < n; start += size {
			for k := 0; k < half; k++ {
				angle := step * float64(k)
				wr, wi := math.Cos(angle), math.Sin(angle)
				i, j := start+k, start+k+half
				tr := re[j]*wr - im[j]*wi
				ti := re[j]*wi + im[j]*wr
				re[j] = re[i] - tr
				im[j] = im[i] - ti
				re[i] += tr
				im[i] += ti
			}
		}
	}
}
