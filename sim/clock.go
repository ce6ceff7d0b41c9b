package sim

import "fmt"

// Clock holds the current simulated time of one Engine.
// It is owned by the simulation goroutine; stations and arrival processes
// hold a pointer to read "now".
type Clock struct {
	now float64
}

// NewClock returns a clock at time 0.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current simulated time.
func (c *Clock) Now() float64 {
	return c.now
}

// Advance moves the clock to t. Simulated time never runs backwards.
func (c *Clock) Advance(t float64) {
	if t < c.now {
		panic(fmt.Sprintf("Clock.Advance: time moved backwards from %g to %g", c.now, t))
	}
	c.now = t
}

// Reset rewinds the clock to 0 for a fresh run.
func (c *Clock) Reset() {
	c.now = 0
}
