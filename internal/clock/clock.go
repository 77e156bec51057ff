// Package clock holds the tick counter shared by every component of a run.
package clock

// Clock is advanced by the scheduler once per tick; everything else only reads it.
type Clock struct {
	tick int
}

// New returns a clock positioned before tick 0.
func New() *Clock { return &Clock{tick: -1} }

// Now returns the current tick, -1 before the first tick.
func (c *Clock) Now() int { return c.tick }

// Advance moves to the next tick and returns it.
func (c *Clock) Advance() int {
	c.tick++
	return c.tick
}
