package meeting

import (
	"log/slog"

	"github.com/foxseedlab/meetbot/internal/config"
	"github.com/foxseedlab/meetbot/internal/discord"
	"github.com/foxseedlab/meetbot/internal/meeting"
	"github.com/foxseedlab/meetbot/internal/recording"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Router, error) {
		cfg := do.MustInvoke[*config.Config](i)
		router := NewRouter()
		if cfg.DiscordToken != "" {
			dc := do.MustInvoke[discord.Client](i)
			router.Register(meeting.PlatformDiscord, NewDiscordJoiner(dc, cfg.BotName))
		} else {
			slog.Info("DISCORD_TOKEN is not set; discord meetings are disabled")
		}
		return router, nil
	})
	do.Provide(injector, func(i do.Injector) (meeting.Joiner, error) {
		return do.MustInvoke[*Router](i), nil
	})
	do.Provide(injector, func(i do.Injector) (recording.PacketSource, error) {
		return do.MustInvoke[*Router](i), nil
	})
}
