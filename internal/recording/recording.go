package recording

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNoAudio          = errors.New("no audio was recorded")
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNoPacketSource   = errors.New("joined meeting does not provide audio")
)

// SpeakerSpan is a stretch of continuous speech from one participant,
// in seconds relative to the start of the recording.
type SpeakerSpan struct {
	SpeakerID string
	Start     float64
	End       float64
}

type AudioHandle struct {
	Path         string
	SampleRate   int
	Channels     int
	StartedAt    time.Time
	EndedAt      time.Time
	Samples      int64
	SpeakerSpans []SpeakerSpan
}

func (h AudioHandle) DurationSeconds() float64 {
	if h.SampleRate <= 0 || h.Channels <= 0 {
		return 0
	}
	return float64(h.Samples) / float64(h.SampleRate*h.Channels)
}

type Recorder interface {
	Start(ctx context.Context, sessionID int64) (AudioHandle, error)
	Stop(ctx context.Context) (*AudioHandle, error)
	IsRecording() bool
}

// PacketSource delivers opus packets tagged by speaker until the meeting
// connection closes.
type PacketSource interface {
	ReceiveAudio(callback func(speakerID string, opus []byte)) error
}
