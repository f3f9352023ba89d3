// Package pulsegen provides the pulse-width generator that turns a slot's
// actuator control code into a fixed-period pulse train.
package pulsegen

import (
	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/sim/wiring"
	"github.com/chat2snack/snacksim/snack/snack"
)

// Comp emits one pulse per period on its output signal. The pulse width is
// selected by the control code sampled from the code bus at every tick, so
// a mid-period code change reshapes the next comparison rather than the
// period itself.
//
// With the code at stop, the generator goes dormant after the falling edge
// of the stop pulse and holds the output low until the code changes. On
// wake it realigns its counter from the global cycle count, so the
// free-running phase is the same as if it had ticked throughout.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	item    snack.Item
	codeBus *wiring.Bus
	out     *wiring.Signal

	periodTicks int
	stopTicks   int
	pushTicks   int
	revertTicks int

	counter int
	width   int
	dormant bool

	pulsesEmitted uint64
}

// Tick updates the generator state by one cycle.
func (c *Comp) Tick() bool {
	return c.MiddlewareHolder.Tick()
}

// NotifyWireChange wakes the generator when the control code changes.
func (c *Comp) NotifyWireChange() {
	c.TickLater()
}

// Reset returns the counter to zero with the stop width latched. The
// generator stays dormant until the code bus changes.
func (c *Comp) Reset() {
	c.counter = 0
	c.width = c.stopTicks
	c.dormant = true
}

// Item returns the slot this generator serves.
func (c *Comp) Item() snack.Item {
	return c.item
}

// PeriodTicks returns the pulse period in ticks.
func (c *Comp) PeriodTicks() int {
	return c.periodTicks
}

// WidthTicks returns the pulse width in ticks for a control code. Unknown
// codes fall back to the stop width.
func (c *Comp) WidthTicks(code snack.ControlCode) int {
	switch code {
	case snack.CodePush:
		return c.pushTicks
	case snack.CodeRevert:
		return c.revertTicks
	}

	return c.stopTicks
}

// PulsesEmitted returns the number of rising edges driven so far.
func (c *Comp) PulsesEmitted() uint64 {
	return c.pulsesEmitted
}

type middleware struct {
	*Comp
}

func (m *middleware) Tick() bool {
	now := m.CurrentTime()

	if m.dormant {
		m.counter = int(m.Freq.Cycle(now) % uint64(m.periodTicks))
		m.dormant = false
	}

	code := snack.ControlCode(m.codeBus.Sample(now))
	m.width = m.WidthTicks(code)

	level := m.counter < m.width
	if level && !m.out.Level() {
		m.pulsesEmitted++
	}
	m.out.Drive(level, now)

	m.counter++
	if m.counter >= m.periodTicks {
		m.counter = 0
	}

	if code == snack.CodeStop && !level {
		m.dormant = true
		return false
	}

	return true
}
