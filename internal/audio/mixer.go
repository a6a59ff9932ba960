package audio

import "time"

// Mixed output is 48kHz interleaved stereo signed 16-bit little endian PCM.
const (
	SampleRate    = 48000
	Channels      = 2
	BitsPerSample = 16
	FrameDuration = 20 * time.Millisecond
	FrameSamples  = SampleRate * Channels * int(FrameDuration/time.Millisecond) / 1000
	FrameBytes    = FrameSamples * BitsPerSample / 8
)

type Mixer interface {
	WriteOpusPacket(speakerID string, opus []byte)
	ReadMixedPCM(buf []byte) (int, error)
	Close()
}

type MixerFactory func() Mixer
