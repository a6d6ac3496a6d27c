package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// wavHeaderSize is the fixed byte length of the canonical PCM WAV header:
// RIFF chunk descriptor (12) + fmt chunk (24) + data chunk header (8).
const wavHeaderSize = 44

// EncodeWAV serialises buf as a 16-bit signed little-endian PCM RIFF/WAVE
// file. Channels are interleaved per sample frame. Each float sample is
// clamped to [-1, 1] and scaled asymmetrically (negative values by 32768,
// positive by 32767) before truncation to an integer, so that -1.0 maps to
// the full int16 range without overflow.
func EncodeWAV(buf Buffer) ([]byte, error) {
	channels := len(buf.Channels)
	if channels == 0 || buf.Len() == 0 {
		return nil, fmt.Errorf("audio: encode wav: empty buffer")
	}
	if buf.SampleRate <= 0 {
		return nil, fmt.Errorf("audio: encode wav: sample rate must be positive, got %d", buf.SampleRate)
	}
	for i, ch := range buf.Channels {
		if len(ch) != buf.Len() {
			return nil, fmt.Errorf("audio: encode wav: channel %d has %d samples, want %d", i, len(ch), buf.Len())
		}
	}

	dataBytes := buf.Len() * channels * 2
	out := make([]byte, wavHeaderSize+dataBytes)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(dataBytes+36))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(buf.SampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(buf.SampleRate*2*channels))
	binary.LittleEndian.PutUint16(out[32:34], uint16(channels*2))
	binary.LittleEndian.PutUint16(out[34:36], 16)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataBytes))

	pos := wavHeaderSize
	for i := 0; i < buf.Len(); i++ {
		for _, ch := range buf.Channels {
			s := float64(ch[i])
			if s < -1 {
				s = -1
			} else if s > 1 {
				s = 1
			}
			var v int16
			if s < 0 {
				v = int16(math.Trunc(s * 32768))
			} else {
				v = int16(math.Trunc(s * 32767))
			}
			binary.LittleEndian.PutUint16(out[pos:pos+2], uint16(v))
			pos += 2
		}
	}
	return out, nil
}

// DecodeWAV parses a 16-bit PCM RIFF/WAVE file into a Buffer with
// non-interleaved float channels. Only uncompressed 16-bit PCM is accepted;
// anything else yields an error.
func DecodeWAV(data []byte) (Buffer, error) {
	if len(data) < wavHeaderSize {
		return Buffer{}, fmt.Errorf("audio: decode wav: %d bytes is shorter than a WAV header", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Buffer{}, fmt.Errorf("audio: decode wav: missing RIFF/WAVE signature")
	}
	if string(data[12:16]) != "fmt " {
		return Buffer{}, fmt.Errorf("audio: decode wav: missing fmt chunk")
	}
	if format := binary.LittleEndian.Uint16(data[20:22]); format != 1 {
		return Buffer{}, fmt.Errorf("audio: decode wav: unsupported audio format %d (want PCM)", format)
	}
	channels := int(binary.LittleEndian.Uint16(data[22:24]))
	sampleRate := int(binary.LittleEndian.Uint32(data[24:28]))
	bits := binary.LittleEndian.Uint16(data[34:36])
	if bits != 16 {
		return Buffer{}, fmt.Errorf("audio: decode wav: unsupported bit depth %d (want 16)", bits)
	}
	if channels <= 0 || sampleRate <= 0 {
		return Buffer{}, fmt.Errorf("audio: decode wav: invalid format %d channels @ %d Hz", channels, sampleRate)
	}
	if string(data[36:40]) != "data" {
		return Buffer{}, fmt.Errorf("audio: decode wav: missing data chunk")
	}
	dataBytes := int(binary.LittleEndian.Uint32(data[40:44]))
	if dataBytes > len(data)-wavHeaderSize {
		dataBytes = len(data) - wavHeaderSize
	}

	frames := dataBytes / (channels * 2)
	buf := Buffer{SampleRate: sampleRate, Channels: make([][]float32, channels)}
	for c := range buf.Channels {
		buf.Channels[c] = make([]float32, frames)
	}

	pos := wavHeaderSize
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			v := int16(binary.LittleEndian.Uint16(data[pos : pos+2]))
			pos += 2
			// Inverse of the encoder's asymmetric scaling.
			if v < 0 {
				buf.Channels[c][i] = float32(v) / 32768
			} else {
				buf.Channels[c][i] = float32(v) / 32767
			}
		}
	}
	return buf, nil
}
