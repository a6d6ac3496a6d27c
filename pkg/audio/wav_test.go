package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	buf := Buffer{
		SampleRate: 16000,
		Channels:   [][]float32{{0, 0.5, -0.5, 1}},
	}
	data, err := EncodeWAV(buf)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	wantLen := 44 + 2*buf.Len()
	if len(data) != wantLen {
		t.Fatalf("encoded length = %d, want %d", len(data), wantLen)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Errorf("missing RIFF/WAVE tags: %q %q", data[0:4], data[8:12])
	}
	if got := binary.LittleEndian.Uint32(data[24:28]); got != 16000 {
		t.Errorf("sample rate = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint16(data[34:36]); got != 16 {
		t.Errorf("bits per sample = %d, want 16", got)
	}
	if got := binary.LittleEndian.Uint32(data[40:44]); got != uint32(2*buf.Len()) {
		t.Errorf("data chunk size = %d, want %d", got, 2*buf.Len())
	}
}

func TestWAVRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		buf  Buffer
	}{
		{
			name: "mono",
			buf: Buffer{
				SampleRate: 16000,
				Channels:   [][]float32{{0, 0.25, -0.25, 0.999, -1, 0.0001}},
			},
		},
		{
			name: "stereo",
			buf: Buffer{
				SampleRate: 44100,
				Channels: [][]float32{
					{0.1, -0.2, 0.3},
					{-0.1, 0.2, -0.3},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeWAV(tt.buf)
			if err != nil {
				t.Fatalf("EncodeWAV: %v", err)
			}
			got, err := DecodeWAV(data)
			if err != nil {
				t.Fatalf("DecodeWAV: %v", err)
			}

			if got.SampleRate != tt.buf.SampleRate {
				t.Errorf("sample rate = %d, want %d", got.SampleRate, tt.buf.SampleRate)
			}
			if len(got.Channels) != len(tt.buf.Channels) {
				t.Fatalf("channels = %d, want %d", len(got.Channels), len(tt.buf.Channels))
			}
			for ch := range tt.buf.Channels {
				if len(got.Channels[ch]) != len(tt.buf.Channels[ch]) {
					t.Fatalf("channel %d length = %d, want %d", ch, len(got.Channels[ch]), len(tt.buf.Channels[ch]))
				}
				for i, want := range tt.buf.Channels[ch] {
					if diff := math.Abs(float64(got.Channels[ch][i] - want)); diff > 1.0/32767 {
						t.Errorf("channel %d sample %d = %v, want %v (diff %v)", ch, i, got.Channels[ch][i], want, diff)
					}
				}
			}
		})
	}
}

func TestEncodeWAVClamps(t *testing.T) {
	buf := Buffer{
		SampleRate: 16000,
		Channels:   [][]float32{{2.0, -2.0}},
	}
	data, err := EncodeWAV(buf)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	got, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if got.Channels[0][0] != 1 {
		t.Errorf("over-range sample = %v, want 1", got.Channels[0][0])
	}
	if got.Channels[0][1] != -1 {
		t.Errorf("under-range sample = %v, want -1", got.Channels[0][1])
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "truncated", data: []byte("RIFF")},
		{name: "not riff", data: make([]byte, 64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeWAV(tt.data); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
