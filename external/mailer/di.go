package mailer

import (
	"log/slog"

	"github.com/foxseedlab/meetbot/internal/config"
	"github.com/foxseedlab/meetbot/internal/mailer"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (mailer.Mailer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if !cfg.EmailConfigured() {
			slog.Warn("smtp credentials are not configured; email delivery is disabled")
			return disabledMailer{}, nil
		}
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	})
}
