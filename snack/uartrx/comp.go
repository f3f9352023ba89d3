// Package uartrx provides the bit-level receiver that recovers bytes from
// the serial line using 8-N-1 framing.
package uartrx

import (
	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/sim/wiring"
	"github.com/chat2snack/snacksim/snack/snack"
	"github.com/chat2snack/snacksim/tracing"
)

// HookPosByteRecovered marks when a validly framed byte is published.
var HookPosByteRecovered = &sim.HookPos{Name: "UartRx Byte Recovered"}

// HookPosFramingError marks when a byte is dropped for a bad stop bit.
var HookPosFramingError = &sim.HookPos{Name: "UartRx Framing Error"}

// HookPosStartGlitch marks when a start edge fails the half-bit
// confirmation.
var HookPosStartGlitch = &sim.HookPos{Name: "UartRx Start Glitch"}

type state int

const (
	stateIdle state = iota
	stateStart
	stateData
	stateStop
)

// Comp samples the serial line once per tick and publishes one ByteMsg per
// validly framed byte. Framing errors and start glitches are dropped
// silently; they are observable only through counters and hooks.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	line     *wiring.Signal
	byteOut  sim.Port
	byteDst  sim.RemotePort
	bitTicks int

	state     state
	tickCount int
	bitIndex  int
	shift     byte
	taskID    string

	bytesReceived uint64
	framingErrors uint64
	startGlitches uint64
	bytesDropped  uint64
}

// Tick updates the receiver state by one cycle.
func (c *Comp) Tick() bool {
	return c.MiddlewareHolder.Tick()
}

// NotifyWireChange wakes the receiver when the line level changes.
func (c *Comp) NotifyWireChange() {
	c.TickLater()
}

// Reset forces the receiver back to its idle state. A byte still sitting
// in the output port dies with the reset, as a pulse would in hardware.
func (c *Comp) Reset() {
	for c.byteOut.RetrieveOutgoing() != nil {
	}

	if c.taskID != "" {
		tracing.EndTask(c.taskID, c)
		c.taskID = ""
	}

	c.state = stateIdle
	c.tickCount = 0
	c.bitIndex = 0
	c.shift = 0
}

// BytesReceived returns the number of bytes published so far.
func (c *Comp) BytesReceived() uint64 {
	return c.bytesReceived
}

// FramingErrors returns the number of bytes dropped for a bad stop bit.
func (c *Comp) FramingErrors() uint64 {
	return c.framingErrors
}

// StartGlitches returns the number of start edges that failed confirmation.
func (c *Comp) StartGlitches() uint64 {
	return c.startGlitches
}

// BytesDropped returns the number of bytes lost because the output port was
// full.
func (c *Comp) BytesDropped() uint64 {
	return c.bytesDropped
}

type middleware struct {
	*Comp
}

func (m *middleware) Tick() bool {
	level := m.line.Sample(m.CurrentTime())

	switch m.state {
	case stateIdle:
		return m.watchForStart(level)
	case stateStart:
		return m.confirmStart(level)
	case stateData:
		return m.sampleData(level)
	case stateStop:
		return m.checkStop(level)
	}

	return false
}

// watchForStart looks for the line falling low. With the line idle high
// there is nothing to do until the next edge.
func (m *middleware) watchForStart(level bool) bool {
	if level {
		return false
	}

	m.state = stateStart
	m.tickCount = 0

	return true
}

// confirmStart re-samples the line half a bit period after the falling
// edge. A line back high is a glitch, not an error.
func (m *middleware) confirmStart(level bool) bool {
	if m.tickCount != (m.bitTicks-1)/2 {
		m.tickCount++
		return true
	}

	if level {
		m.startGlitches++
		m.state = stateIdle

		if m.NumHooks() > 0 {
			m.InvokeHook(sim.HookCtx{
				Domain: m.Comp,
				Pos:    HookPosStartGlitch,
			})
		}

		return true
	}

	m.state = stateData
	m.tickCount = 0
	m.bitIndex = 0
	m.shift = 0

	m.taskID = sim.GetIDGenerator().Generate()
	tracing.StartTask(m.taskID, "", m.Comp, "frame", "byte", m.Name(), nil)

	return true
}

// sampleData samples one data bit per bit period, LSB first.
func (m *middleware) sampleData(level bool) bool {
	if m.tickCount < m.bitTicks-1 {
		m.tickCount++
		return true
	}

	m.tickCount = 0

	if level {
		m.shift |= 1 << m.bitIndex
	}

	if m.bitIndex < 7 {
		m.bitIndex++
		return true
	}

	m.state = stateStop

	return true
}

// checkStop samples the stop bit one bit period later. A high line frames
// the byte; a low line drops it with no retry and no backpressure.
func (m *middleware) checkStop(level bool) bool {
	if m.tickCount < m.bitTicks-1 {
		m.tickCount++
		return true
	}

	if level {
		m.publish(m.shift)
	} else {
		m.framingErrors++

		if m.NumHooks() > 0 {
			m.InvokeHook(sim.HookCtx{
				Domain: m.Comp,
				Pos:    HookPosFramingError,
				Item:   m.shift,
			})
		}
	}

	tracing.EndTask(m.taskID, m.Comp)
	m.taskID = ""
	m.state = stateIdle

	return true
}

func (m *middleware) publish(value byte) {
	msg := snack.ByteMsgBuilder{}.
		WithSrc(m.byteOut.AsRemote()).
		WithDst(m.byteDst).
		WithValue(value).
		Build()

	if err := m.byteOut.Send(msg); err != nil {
		m.bytesDropped++
		return
	}

	m.bytesReceived++

	if m.NumHooks() > 0 {
		m.InvokeHook(sim.HookCtx{
			Domain: m.Comp,
			Pos:    HookPosByteRecovered,
			Item:   value,
		})
	}
}
