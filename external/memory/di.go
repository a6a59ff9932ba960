package memory

import (
	"github.com/foxseedlab/meetbot/internal/config"
	"github.com/foxseedlab/meetbot/internal/llm"
	"github.com/foxseedlab/meetbot/internal/memory"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*SQLiteIndex, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewSQLiteIndex(c.MemoryDBPath, do.MustInvoke[llm.Generator](i))
	})
	do.Provide(injector, func(i do.Injector) (memory.Index, error) {
		return do.MustInvoke[*SQLiteIndex](i), nil
	})
}
