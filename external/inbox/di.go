package inbox

import (
	"errors"

	"github.com/foxseedlab/meetbot/internal/config"
	"github.com/foxseedlab/meetbot/internal/session"
	"github.com/samber/do/v2"
)

var ErrDisabled = errors.New("INBOX_DIR is not set")

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Watcher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.InboxDir == "" {
			return nil, ErrDisabled
		}
		return NewWatcher(cfg.InboxDir, do.MustInvoke[*session.Manager](i))
	})
}
