package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput  Phase = iota // 0: drain connection and event queues
	PhaseUpdate              // 1: world logic (proximity, presence)
	PhaseOutput              // 2: flush buffered frames to writers
)

// System is one stage of the game loop.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
