//go:build opus

package audio

import (
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/foxseedlab/meetbot/internal/audio"
	"github.com/hraban/opus"
)

// maxQueuedFrames bounds the per-speaker backlog to one second of audio.
const maxQueuedFrames = 50

type OpusMixer struct {
	mu       sync.Mutex
	decoders map[string]*opus.Decoder
	queues   map[string]*frameQueue
	dropped  int64
	closed   bool
}

type frameQueue struct {
	frames [][]int16
}

func (q *frameQueue) push(frame []int16) bool {
	if len(q.frames) >= maxQueuedFrames {
		q.frames = q.frames[1:]
		q.frames = append(q.frames, frame)
		return false
	}
	q.frames = append(q.frames, frame)
	return true
}

func (q *frameQueue) pop() ([]int16, bool) {
	if len(q.frames) == 0 {
		return nil, false
	}
	f := q.frames[0]
	q.frames = q.frames[1:]
	return f, true
}

func (q *frameQueue) hasFrame() bool {
	return len(q.frames) > 0
}

func NewOpusMixer() audio.Mixer {
	return &OpusMixer{
		decoders: make(map[string]*opus.Decoder),
		queues:   make(map[string]*frameQueue),
	}
}

func (m *OpusMixer) WriteOpusPacket(speakerID string, opusData []byte) {
	if len(opusData) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	dec, ok := m.decoders[speakerID]
	if !ok {
		var err error
		dec, err = opus.NewDecoder(audio.SampleRate, audio.Channels)
		if err != nil {
			slog.Warn("failed to create opus decoder", "speaker_id", speakerID, "error", err)
			return
		}
		m.decoders[speakerID] = dec
		m.queues[speakerID] = &frameQueue{}
	}
	pcm := make([]int16, audio.FrameSamples)
	n, err := dec.Decode(opusData, pcm)
	if err != nil || n <= 0 {
		return
	}
	total := min(n*audio.Channels, audio.FrameSamples)
	frame := make([]int16, total)
	copy(frame, pcm[:total])
	if !m.queues[speakerID].push(frame) {
		m.dropped++
		if m.dropped == 1 || m.dropped%500 == 0 {
			slog.Warn("mixer backlog full; dropping oldest frame", "speaker_id", speakerID, "dropped_frames", m.dropped)
		}
	}
}

func (m *OpusMixer) ReadMixedPCM(buf []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !hasQueuedFrames(m.queues) {
		return 0, nil
	}
	mixed := make([]int16, audio.FrameSamples)
	for _, q := range m.queues {
		frame, ok := q.pop()
		if !ok {
			continue
		}
		for i := 0; i < len(frame) && i < audio.FrameSamples; i++ {
			mixed[i] = clampPCM(int32(mixed[i]) + int32(frame[i]))
		}
	}
	return writeMixedPCM(buf, mixed), nil
}

func hasQueuedFrames(queues map[string]*frameQueue) bool {
	for _, q := range queues {
		if q.hasFrame() {
			return true
		}
	}
	return false
}

func clampPCM(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

func writeMixedPCM(buf []byte, mixed []int16) int {
	toWrite := min(len(buf)/2, len(mixed))
	for i := 0; i < toWrite; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(mixed[i]))
	}
	return toWrite * 2
}

func (m *OpusMixer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.decoders = nil
	m.queues = nil
}
