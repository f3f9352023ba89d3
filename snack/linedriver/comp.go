// Package linedriver provides the harness-side serial transmitter that
// drives the receive line with 8-N-1 frames.
package linedriver

import (
	"log"
	"reflect"

	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/sim/wiring"
	"github.com/chat2snack/snacksim/snack/snack"
)

const frameBits = 10

type sendBytesEvent struct {
	*sim.EventBase
	bytes []byte
}

func newSendBytesEvent(
	time sim.VTimeInSec,
	handler sim.Handler,
	bytes []byte,
) *sendBytesEvent {
	return &sendBytesEvent{sim.NewEventBase(time, handler), bytes}
}

// Comp shifts queued bytes onto the line one frame at a time: a low start
// bit, eight data bits LSB first, and a high stop bit, each held for one
// bit period. Between frames the line idles high for the configured gap.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	line     *wiring.Signal
	bitTicks int
	gapTicks int

	pending   []byte
	frame     [frameBits]bool
	shifting  bool
	slot      int
	tickCount int
	gapLeft   int

	bytesSent uint64
}

// Handle processes transmit-queue events and ticks.
func (c *Comp) Handle(e sim.Event) error {
	switch e := e.(type) {
	case *sendBytesEvent:
		return c.handleSendBytesEvent(e)
	case sim.TickEvent:
		return c.TickingComponent.Handle(e)
	default:
		log.Panicf("cannot handle event of %s", reflect.TypeOf(e))
	}

	return nil
}

func (c *Comp) handleSendBytesEvent(e *sendBytesEvent) error {
	c.pending = append(c.pending, e.bytes...)
	c.TickLater()

	return nil
}

// Tick updates the driver state by one cycle.
func (c *Comp) Tick() bool {
	return c.MiddlewareHolder.Tick()
}

// ScheduleBytes enqueues bytes for transmission at the given time.
func (c *Comp) ScheduleBytes(t sim.VTimeInSec, bytes ...byte) {
	c.Engine.Schedule(newSendBytesEvent(t, c, bytes))
}

// ScheduleCommand enqueues the two bytes of a command word, low byte
// first, for transmission at the given time.
func (c *Comp) ScheduleCommand(t sim.VTimeInSec, cmd snack.Command) {
	low, high := cmd.Bytes()
	c.ScheduleBytes(t, low, high)
}

// ScheduleClear enqueues the all-zero command that blanks the command
// register.
func (c *Comp) ScheduleClear(t sim.VTimeInSec) {
	c.ScheduleCommand(t, snack.Command(0))
}

// BytesSent returns the number of frames fully shifted out so far.
func (c *Comp) BytesSent() uint64 {
	return c.bytesSent
}

type middleware struct {
	*Comp
}

func (m *middleware) Tick() bool {
	if !m.shifting {
		if m.gapLeft > 0 {
			m.gapLeft--
			return true
		}

		if len(m.pending) == 0 {
			return false
		}

		m.loadFrame(m.pending[0])
		m.pending = m.pending[1:]
	}

	m.line.Drive(m.frame[m.slot], m.CurrentTime())

	m.tickCount++
	if m.tickCount < m.bitTicks {
		return true
	}

	m.tickCount = 0
	m.slot++
	if m.slot < frameBits {
		return true
	}

	m.shifting = false
	m.slot = 0
	m.gapLeft = m.gapTicks
	m.bytesSent++

	return true
}

func (m *middleware) loadFrame(value byte) {
	m.frame[0] = false
	for i := 0; i < 8; i++ {
		m.frame[1+i] = value&(1<<i) != 0
	}
	m.frame[frameBits-1] = true

	m.shifting = true
	m.slot = 0
	m.tickCount = 0
}
