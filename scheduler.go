package archon

import (
	"context"

	"github.com/rs/zerolog"
)

// System is one named unit of per-frame work a Scheduler runs against a
// World (AMBIENT §S).
type System struct {
	Name string
	Run  func(ctx context.Context, w *World) error
}

// Scheduler runs a fixed ordered list of systems each frame, followed by
// World.Update's garbage collection pass. It is a thin convenience wrapper,
// not a dependency-graph scheduler: systems run in registration order,
// matching the teacher's straight-line frame-loop style rather than
// introducing a parallel job graph the spec does not ask for.
type Scheduler struct {
	systems []System
	log     zerolog.Logger
}

// NewScheduler creates an empty Scheduler bound to w's logger.
func NewScheduler(w *World) *Scheduler {
	return &Scheduler{log: w.log}
}

// RegisterSystem appends name/fn to the run order.
func (s *Scheduler) RegisterSystem(name string, fn func(ctx context.Context, w *World) error) {
	s.systems = append(s.systems, System{Name: name, Run: fn})
}

// Run executes every registered system in order, then advances the world
// (World.Update), stopping at the first error.
func (s *Scheduler) Run(ctx context.Context, w *World) error {
	for _, sys := range s.systems {
		if err := sys.Run(ctx, w); err != nil {
			s.log.Error().Str("system", sys.Name).Err(err).Msg("system returned error")
			return Trace(err)
		}
	}
	return w.Update(ctx)
}
