// Package portaudio provides the PortAudio-backed implementations of
// [audio.Platform] and [audio.Player] used for real microphone capture and
// speaker playback.
package portaudio

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/parlatore/parlatore/pkg/audio"
)

// Compile-time checks that the adapter satisfies the audio interfaces.
var (
	_ audio.Platform = (*Platform)(nil)
	_ audio.Player   = (*Player)(nil)
)

const (
	// captureRate is the capture sample rate. 16 kHz mono is what the
	// backend's speech recognition expects.
	captureRate = 16000

	// framesPerBuffer is the PortAudio buffer size per read: 320 frames is
	// 20 ms at 16 kHz, matching the monitor's polling period.
	framesPerBuffer = 320
)

// initOnce guards the process-wide PortAudio initialisation.
var (
	initOnce sync.Once
	initErr  error
)

func ensureInit() error {
	initOnce.Do(func() {
		initErr = portaudio.Initialize()
	})
	return initErr
}

// Platform implements [audio.Platform] on top of PortAudio. Device IDs are
// the stringified PortAudio device indices.
type Platform struct{}

// New creates the PortAudio platform, initialising the PortAudio runtime on
// first use.
func New() (*Platform, error) {
	if err := ensureInit(); err != nil {
		return nil, &audio.DeviceError{Op: "init", Err: err}
	}
	return &Platform{}, nil
}

// Devices implements [audio.Platform]. Only devices with input channels are
// listed.
func (p *Platform) Devices() ([]audio.Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, &audio.DeviceError{Op: "devices", Err: err}
	}
	def, _ := portaudio.DefaultInputDevice()

	var out []audio.Device
	for i, info := range infos {
		if info.MaxInputChannels < 1 {
			continue
		}
		out = append(out, audio.Device{
			ID:      strconv.Itoa(i),
			Name:    info.Name,
			Default: def != nil && info == def,
		})
	}
	return out, nil
}

// Open implements [audio.Platform]. It acquires the device, starts the
// PortAudio stream, and spawns the reader goroutine that fans captured
// frames out to the frame channel and the spectrum analyser.
func (p *Platform) Open(ctx context.Context, deviceID string) (audio.CaptureStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := resolveInput(deviceID)
	if err != nil {
		return nil, &audio.DeviceError{Op: "open", Device: deviceID, Err: err}
	}

	buf := make([]float32, framesPerBuffer)
	params := portaudio.LowLatencyParameters(info, nil)
	params.Input.Channels = 1
	params.SampleRate = captureRate
	params.FramesPerBuffer = framesPerBuffer

	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, &audio.DeviceError{Op: "open", Device: deviceID, Err: err}
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, &audio.DeviceError{Op: "open", Device: deviceID, Err: err}
	}

	cs := &captureStream{
		stream:   stream,
		buf:      buf,
		frames:   make(chan audio.Frame, 32),
		analyser: audio.NewSpectrumAnalyser(),
		done:     make(chan struct{}),
	}
	go cs.readLoop()
	return cs, nil
}

// resolveInput maps a device ID to its PortAudio device info, falling back
// to the system default input for the empty ID.
func resolveInput(deviceID string) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		return portaudio.DefaultInputDevice()
	}
	idx, err := strconv.Atoi(deviceID)
	if err != nil {
		return nil, fmt.Errorf("malformed device id %q", deviceID)
	}
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(infos) {
		return nil, fmt.Errorf("device index %d out of range", idx)
	}
	if infos[idx].MaxInputChannels < 1 {
		return nil, fmt.Errorf("device %q has no input channels", infos[idx].Name)
	}
	return infos[idx], nil
}

// captureStream implements [audio.CaptureStream] over a running PortAudio
// input stream.
type captureStream struct {
	stream   *portaudio.Stream
	buf      []float32
	frames   chan audio.Frame
	analyser *audio.SpectrumAnalyser

	closeOnce sync.Once
	done      chan struct{}
}

func (cs *captureStream) readLoop() {
	defer close(cs.frames)
	for {
		select {
		case <-cs.done:
			return
		default:
		}
		if err := cs.stream.Read(); err != nil {
			// Overflows just lose one buffer; anything else ends the stream.
			if err == portaudio.InputOverflowed {
				continue
			}
			return
		}
		data := make([]float32, len(cs.buf))
		copy(data, cs.buf)
		cs.analyser.Push(data)

		select {
		case cs.frames <- audio.Frame{Data: data, Timestamp: time.Now()}:
		case <-cs.done:
			return
		}
	}
}

// Frames implements [audio.CaptureStream].
func (cs *captureStream) Frames() <-chan audio.Frame { return cs.frames }

// Analyser implements [audio.CaptureStream].
func (cs *captureStream) Analyser() audio.Analyser { return cs.analyser }

// Format implements [audio.CaptureStream].
func (cs *captureStream) Format() audio.Format {
	return audio.Format{SampleRate: captureRate, Channels: 1}
}

// Close implements [audio.CaptureStream]. Stops the device and terminates
// the reader goroutine. Safe to call more than once.
func (cs *captureStream) Close() error {
	var err error
	cs.closeOnce.Do(func() {
		close(cs.done)
		if stopErr := cs.stream.Stop(); stopErr != nil {
			err = stopErr
		}
		if closeErr := cs.stream.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	})
	return err
}

// Player implements [audio.Player] on the default PortAudio output device.
type Player struct{}

// NewPlayer creates the PortAudio player, initialising the PortAudio runtime
// on first use.
func NewPlayer() (*Player, error) {
	if err := ensureInit(); err != nil {
		return nil, &audio.DeviceError{Op: "init", Err: err}
	}
	return &Player{}, nil
}

// Play implements [audio.Player]. It writes buf to the default output device
// in 20 ms slices, returning when the final slice has been written or ctx is
// cancelled. Multi-channel buffers are interleaved on the fly.
func (pl *Player) Play(ctx context.Context, buf audio.Buffer) error {
	channels := len(buf.Channels)
	if channels == 0 || buf.Len() == 0 {
		return nil
	}

	slice := buf.SampleRate / 50 // 20 ms of frames
	if slice < 1 {
		slice = 1
	}
	out := make([]float32, slice*channels)

	stream, err := portaudio.OpenDefaultStream(0, channels, float64(buf.SampleRate), slice, out)
	if err != nil {
		return &audio.DeviceError{Op: "play", Err: err}
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return &audio.DeviceError{Op: "play", Err: err}
	}
	defer stream.Stop()

	for off := 0; off < buf.Len(); off += slice {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := 0; i < slice; i++ {
			for c := 0; c < channels; c++ {
				v := float32(0)
				if off+i < buf.Len() {
					v = buf.Channels[c][off+i]
				}
				out[i*channels+c] = v
			}
		}
		if err := stream.Write(); err != nil {
			if err == portaudio.OutputUnderflowed {
				continue
			}
			return &audio.DeviceError{Op: "play", Err: err}
		}
	}
	return nil
}
