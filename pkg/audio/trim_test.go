package audio

import (
	"errors"
	"testing"
	"time"
)

// monoBuffer builds a mono buffer of n samples at 1 kHz so that one sample
// equals one millisecond.
func monoBuffer(n int) Buffer {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(i) / float32(n)
	}
	return Buffer{SampleRate: 1000, Channels: [][]float32{samples}}
}

func TestTrimSilenceTail(t *testing.T) {
	tests := []struct {
		name       string
		samples    int
		silence    time.Duration
		minValid   time.Duration
		wantLen    int
		wantErr    error
	}{
		{
			name:    "removes trailing silence",
			samples: 2000,
			silence: 500 * time.Millisecond,
			wantLen: 1500,
		},
		{
			name:    "zero removal is a no-op",
			samples: 1000,
			silence: 0,
			wantLen: 1000,
		},
		{
			name:     "too short after trim",
			samples:  1000,
			silence:  500 * time.Millisecond,
			minValid: 600 * time.Millisecond,
			wantErr:  ErrTooShort,
		},
		{
			name:     "exactly at minimum is rejected",
			samples:  1100,
			silence:  500 * time.Millisecond,
			minValid: 600 * time.Millisecond,
			wantErr:  ErrTooShort,
		},
		{
			name:     "just above minimum survives",
			samples:  1101,
			silence:  500 * time.Millisecond,
			minValid: 600 * time.Millisecond,
			wantLen:  601,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TrimSilence(monoBuffer(tt.samples), TrimParams{
				Policy:           TrimTail,
				SilenceDuration:  tt.silence,
				MinValidDuration: tt.minValid,
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("TrimSilence: %v", err)
			}
			if got.Len() != tt.wantLen {
				t.Errorf("length = %d, want %d", got.Len(), tt.wantLen)
			}
		})
	}
}

func TestTrimSilenceFromSpeechStart(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		speechStart time.Time
		wantLen     int
	}{
		{
			// Speech at 800ms keeps the 300ms lead: cut at 500ms.
			name:        "leading room tone removed",
			speechStart: start.Add(800 * time.Millisecond),
			wantLen:     1500,
		},
		{
			// Speech within the lead window means nothing to cut.
			name:        "immediate speech is a no-op",
			speechStart: start.Add(100 * time.Millisecond),
			wantLen:     2000,
		},
		{
			name:        "zero speech start is a no-op",
			speechStart: time.Time{},
			wantLen:     2000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TrimSilence(monoBuffer(2000), TrimParams{
				Policy:         TrimFromSpeechStart,
				RecordingStart: start,
				SpeechStart:    tt.speechStart,
			})
			if err != nil {
				t.Fatalf("TrimSilence: %v", err)
			}
			if got.Len() != tt.wantLen {
				t.Errorf("length = %d, want %d", got.Len(), tt.wantLen)
			}
		})
	}
}

func TestTrimSilenceNoOpKeepsData(t *testing.T) {
	buf := monoBuffer(1000)
	got, err := TrimSilence(buf, TrimParams{Policy: TrimTail, SilenceDuration: 0})
	if err != nil {
		t.Fatalf("TrimSilence: %v", err)
	}
	if got.Len() != buf.Len() {
		t.Fatalf("length = %d, want %d", got.Len(), buf.Len())
	}
	for i := range buf.Channels[0] {
		if got.Channels[0][i] != buf.Channels[0][i] {
			t.Fatalf("sample %d changed: %v != %v", i, got.Channels[0][i], buf.Channels[0][i])
		}
	}
}

func TestParseTrimPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    TrimPolicy
		wantErr bool
	}{
		{in: "tail", want: TrimTail},
		{in: "speech-start", want: TrimFromSpeechStart},
		{in: "bogus", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseTrimPolicy(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTrimPolicy(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTrimPolicy(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTrimPolicy(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if got.String() != tt.in {
			t.Errorf("String() = %q, want %q", got.String(), tt.in)
		}
	}
}
