package audio

import (
	"math"
	"testing"
)

func TestSpectrumAnalyserEmptyWindow(t *testing.T) {
	a := NewSpectrumAnalyser()
	dst := make([]byte, AnalysisWindowSize/2)
	if n := a.FrequencyData(dst); n != 0 {
		t.Errorf("bins before first full window = %d, want 0", n)
	}

	// A partial window still reports nothing.
	a.Push(make([]float32, AnalysisWindowSize-1))
	if n := a.FrequencyData(dst); n != 0 {
		t.Errorf("bins after partial window = %d, want 0", n)
	}
}

func TestSpectrumAnalyserSilenceVersusTone(t *testing.T) {
	dst := make([]byte, AnalysisWindowSize/2)

	silent := NewSpectrumAnalyser()
	silent.Push(make([]float32, AnalysisWindowSize))
	n := silent.FrequencyData(dst)
	if n != AnalysisWindowSize/2 {
		t.Fatalf("bins = %d, want %d", n, AnalysisWindowSize/2)
	}
	silentAvg := binAverage(dst[:n])

	// A full-scale tone at bin 8 of the analysis window.
	tone := NewSpectrumAnalyser()
	samples := make([]float32, AnalysisWindowSize)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 8 * float64(i) / AnalysisWindowSize))
	}
	tone.Push(samples)
	n = tone.FrequencyData(dst)
	if n != AnalysisWindowSize/2 {
		t.Fatalf("bins = %d, want %d", n, AnalysisWindowSize/2)
	}
	toneAvg := binAverage(dst[:n])

	if toneAvg <= silentAvg {
		t.Errorf("tone average %v not louder than silence average %v", toneAvg, silentAvg)
	}
	if toneAvg < DefaultSilenceThreshold {
		t.Errorf("full-scale tone average %v below silence threshold %v", toneAvg, DefaultSilenceThreshold)
	}
}

func TestSpectrumAnalyserRingWraps(t *testing.T) {
	a := NewSpectrumAnalyser()
	// Push several windows' worth; the ring must keep only the newest.
	for i := 0; i < 5; i++ {
		a.Push(make([]float32, AnalysisWindowSize))
	}
	dst := make([]byte, AnalysisWindowSize/2)
	if n := a.FrequencyData(dst); n != AnalysisWindowSize/2 {
		t.Errorf("bins = %d, want %d", n, AnalysisWindowSize/2)
	}
}

func binAverage(bins []byte) float64 {
	var sum float64
	for _, v := range bins {
		sum += float64(v)
	}
	return sum / float64(len(bins))
}
