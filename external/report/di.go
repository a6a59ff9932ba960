package report

import (
	"github.com/foxseedlab/meetbot/internal/config"
	"github.com/foxseedlab/meetbot/internal/report"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (report.Renderer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		var companions []report.Renderer
		if cfg.Features.ReportDOCX {
			companions = append(companions, NewDOCXRenderer(cfg.OutputDir))
		}
		return NewPDFRenderer(cfg.OutputDir, companions...), nil
	})
}
