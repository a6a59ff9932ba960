//go:build !opus

package audio

import (
	"log/slog"
	"sync"

	"github.com/foxseedlab/meetbot/internal/audio"
)

// Without the opus tag there is no decoder; packets are counted and dropped
// so recordings made by such a build come out empty.
type noopMixer struct {
	once sync.Once
}

func NewOpusMixer() audio.Mixer {
	return &noopMixer{}
}

func (m *noopMixer) WriteOpusPacket(speakerID string, _ []byte) {
	m.once.Do(func() {
		slog.Warn("opus support not compiled in; dropping voice packets", "speaker_id", speakerID)
	})
}

func (m *noopMixer) ReadMixedPCM(_ []byte) (int, error) {
	return 0, nil
}

func (m *noopMixer) Close() {}
