package simulation

import (
	"context"
	"fmt"
	"sort"

	"github.com/gitwitcho/var-agent-model-sub001/internal/clock"
)

// Callback is invoked once per tick after the clock has moved to that tick.
type Callback func(ctx context.Context, tick int) error

type callback struct {
	name     string
	priority int
	fn       Callback
}

// Scheduler drives the ticks of one run. Callbacks run in ascending priority, ties in
// registration order.
type Scheduler struct {
	clock     *clock.Clock
	callbacks []callback
}

func NewScheduler(c *clock.Clock) *Scheduler {
	return &Scheduler{clock: c}
}

func (s *Scheduler) Register(name string, priority int, fn Callback) {
	s.callbacks = append(s.callbacks, callback{name: name, priority: priority, fn: fn})
	sort.SliceStable(s.callbacks, func(i, j int) bool {
		return s.callbacks[i].priority < s.callbacks[j].priority
	})
}

// Run steps ticks 0..last. The context is checked between ticks, never inside one.
func (s *Scheduler) Run(ctx context.Context, last int) error {
	for s.clock.Now() < last {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("stopped before tick %d: %w", s.clock.Now()+1, err)
		}
		tick := s.clock.Advance()
		for _, cb := range s.callbacks {
			if err := cb.fn(ctx, tick); err != nil {
				return fmt.Errorf("%s at tick %d: %w", cb.name, tick, err)
			}
		}
	}
	return nil
}
