package mcp

import (
	"github.com/foxseedlab/meetbot/internal/memory"
	"github.com/foxseedlab/meetbot/internal/session"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		return NewServer(do.MustInvoke[*session.Manager](i), do.MustInvoke[memory.Index](i)), nil
	})
}
