package audio

import "time"

// Frame represents a single chunk of captured audio flowing through the
// pipeline. Frames are the atomic unit of transport — produced by capture
// streams in arrival order and accumulated by the segmenter until an
// utterance boundary is found.
type Frame struct {
	// Data holds PCM samples as floats in [-1, 1], interleaved when the
	// stream has more than one channel.
	Data []float32

	// Timestamp marks when this frame was captured.
	Timestamp time.Time
}

// Format describes the sample rate and channel count of an audio stream.
type Format struct {
	SampleRate int
	Channels   int
}

// Duration returns the playing time of n interleaved samples in this format.
func (f Format) Duration(n int) time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	frames := n / f.Channels
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Buffer is a decoded, non-interleaved audio buffer: one sample slice per
// channel, all of equal length. It is the unit the trimmer and the WAV codec
// operate on.
type Buffer struct {
	// Channels holds one PCM slice per channel, samples in [-1, 1].
	Channels [][]float32

	// SampleRate in Hz.
	SampleRate int
}

// Len returns the per-channel sample count.
func (b Buffer) Len() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playing time of the buffer.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Len()) * time.Second / time.Duration(b.SampleRate)
}

// Slice returns a view of the buffer restricted to sample indices [from, to)
// on every channel. Indices are clamped to the valid range; an inverted range
// yields an empty buffer. The underlying sample data is shared, not copied.
func (b Buffer) Slice(from, to int) Buffer {
	n := b.Len()
	if from < 0 {
		from = 0
	}
	if to > n {
		to = n
	}
	if from > to {
		from = to
	}
	out := Buffer{SampleRate: b.SampleRate, Channels: make([][]float32, len(b.Channels))}
	for i, ch := range b.Channels {
		out.Channels[i] = ch[from:to]
	}
	return out
}
