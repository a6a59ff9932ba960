package recording

import (
	"github.com/foxseedlab/meetbot/internal/audio"
	"github.com/foxseedlab/meetbot/internal/config"
	"github.com/foxseedlab/meetbot/internal/recording"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (recording.Recorder, error) {
		cfg := do.MustInvoke[*config.Config](i)
		source := do.MustInvoke[recording.PacketSource](i)
		newMixer := do.MustInvoke[audio.MixerFactory](i)
		return NewVoiceRecorder(source, newMixer, cfg.RecordingDir), nil
	})
}
