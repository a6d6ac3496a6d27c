package audio

// Resample stretches or compresses buf in time by the given playback rate
// using linear interpolation, preserving the sample rate and channel count.
// A rate below 1.0 slows playback down (more output samples), above 1.0
// speeds it up. Rates at or below zero, or exactly 1.0, return the input
// unchanged.
//
// This is how the playback-speed slider is realised: the synthesized reply
// is resampled to rate 0.9 + slider*0.1 before being written to the output
// device at its native clock.
func Resample(buf Buffer, rate float64) Buffer {
	if rate <= 0 || rate == 1.0 || buf.Len() < 2 {
		return buf
	}

	srcLen := buf.Len()
	dstLen := int(float64(srcLen) / rate)
	if dstLen < 1 {
		dstLen = 1
	}

	out := Buffer{SampleRate: buf.SampleRate, Channels: make([][]float32, len(buf.Channels))}
	for c, src := range buf.Channels {
		dst := make([]float32, dstLen)
		for i := 0; i < dstLen; i++ {
			pos := float64(i) * rate
			idx := int(pos)
			frac := pos - float64(idx)

			s0 := src[idx]
			s1 := s0
			if idx+1 < srcLen {
				s1 = src[idx+1]
			}
			dst[i] = float32(float64(s0)*(1-frac) + float64(s1)*frac)
		}
		out.Channels[c] = dst
	}
	return out
}
