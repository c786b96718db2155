package system

import (
	"time"

	coresys "github.com/atriumverse/atrium/internal/core/system"
	"github.com/atriumverse/atrium/internal/handler"
)

// OutputSystem flushes every session's buffered frames to its writer
// goroutine at the end of the tick. Phase 2 (Output).
type OutputSystem struct {
	deps *handler.Deps
}

func NewOutputSystem(deps *handler.Deps) *OutputSystem {
	return &OutputSystem{deps: deps}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(_ time.Duration) {
	for _, sess := range s.deps.Sessions {
		sess.FlushOutput()
	}
}
