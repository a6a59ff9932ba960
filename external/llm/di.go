package llm

import (
	"log/slog"

	"github.com/foxseedlab/meetbot/internal/config"
	"github.com/foxseedlab/meetbot/internal/llm"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (llm.Generator, error) {
		c := do.MustInvoke[*config.Config](i)
		if len(c.GeminiAPIKeys) == 0 {
			slog.Warn("GEMINI_API_KEYS is not set; summaries and memory answers will degrade")
		}
		return NewGeminiGenerator(c.GeminiAPIKeys, c.GeminiModel), nil
	})
}
