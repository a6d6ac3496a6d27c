package audio

import (
	"testing"
	"time"
)

func TestBufferDuration(t *testing.T) {
	buf := Buffer{SampleRate: 16000, Channels: [][]float32{make([]float32, 8000)}}
	if got := buf.Duration(); got != 500*time.Millisecond {
		t.Errorf("Duration = %v, want 500ms", got)
	}

	var empty Buffer
	if got := empty.Duration(); got != 0 {
		t.Errorf("empty Duration = %v, want 0", got)
	}
}

func TestBufferSlice(t *testing.T) {
	src := make([]float32, 100)
	for i := range src {
		src[i] = float32(i)
	}
	buf := Buffer{SampleRate: 1000, Channels: [][]float32{src}}

	tests := []struct {
		name      string
		from, to  int
		wantLen   int
		wantFirst float32
	}{
		{name: "interior", from: 10, to: 20, wantLen: 10, wantFirst: 10},
		{name: "full range", from: 0, to: 100, wantLen: 100, wantFirst: 0},
		{name: "from clamped", from: -5, to: 10, wantLen: 10, wantFirst: 0},
		{name: "to clamped", from: 90, to: 500, wantLen: 10, wantFirst: 90},
		{name: "inverted range is empty", from: 50, to: 40, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buf.Slice(tt.from, tt.to)
			if got.Len() != tt.wantLen {
				t.Fatalf("length = %d, want %d", got.Len(), tt.wantLen)
			}
			if got.SampleRate != buf.SampleRate {
				t.Errorf("sample rate = %d, want %d", got.SampleRate, buf.SampleRate)
			}
			if tt.wantLen > 0 && got.Channels[0][0] != tt.wantFirst {
				t.Errorf("first sample = %v, want %v", got.Channels[0][0], tt.wantFirst)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	f := Format{SampleRate: 16000, Channels: 1}
	if got := f.Duration(16000); got != time.Second {
		t.Errorf("Duration(16000) = %v, want 1s", got)
	}
}
