// Package dispensecontroller provides the per-slot state machine that turns
// one start pulse into a timed sequence of push and revert actuations.
package dispensecontroller

import (
	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/sim/wiring"
	"github.com/chat2snack/snacksim/snack/snack"
	"github.com/chat2snack/snacksim/tracing"
)

// HookPosDispenseStarted marks when a start pulse with a non-zero count is
// accepted.
var HookPosDispenseStarted = &sim.HookPos{Name: "Dispense Started"}

// HookPosDispenseCompleted marks when the last revert of a run finishes.
var HookPosDispenseCompleted = &sim.HookPos{Name: "Dispense Completed"}

// HookPosZeroCountStart marks when a start pulse with a zero count is
// absorbed without actuating.
var HookPosZeroCountStart = &sim.HookPos{Name: "Dispense Zero Count Start"}

// DispenseRun is the hook detail attached when a run starts or completes.
type DispenseRun struct {
	Item  snack.Item
	Count uint8
}

type state int

const (
	stateIdle state = iota
	statePush
	stateRevert
	stateWait
)

func (s state) String() string {
	switch s {
	case statePush:
		return "push"
	case stateRevert:
		return "revert"
	case stateWait:
		return "wait"
	}

	return "idle"
}

// Comp dispenses one slot. A start pulse with count N runs N push/revert
// cycles with a wait between consecutive cycles, each phase holding for
// durationTicks. The final revert returns to idle directly, so the busy
// flag is high for exactly (3N-1)*durationTicks ticks.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	item      snack.Item
	startIn   sim.Port
	busyOut   *wiring.Signal
	indicator *wiring.Signal
	codeBus   *wiring.Bus

	durationTicks int

	state     state
	tickCount int
	remaining uint8
	count     uint8
	taskID    string

	dispensesStarted   uint64
	dispensesCompleted uint64
	cyclesRun          uint64
	zeroCountStarts    uint64
}

// Tick updates the controller state by one cycle.
func (c *Comp) Tick() bool {
	return c.MiddlewareHolder.Tick()
}

// Reset aborts any running dispense and returns the controller to idle.
// The wires are cleared by the machine-level reset. A start pulse already
// delivered but not yet sampled dies with the reset; the open dispense
// task is closed at the reset time.
func (c *Comp) Reset() {
	for c.startIn.RetrieveIncoming() != nil {
	}

	if c.taskID != "" {
		tracing.EndTask(c.taskID, c)
		c.taskID = ""
	}

	c.state = stateIdle
	c.tickCount = 0
	c.remaining = 0
	c.count = 0
}

// Item returns the slot this controller serves.
func (c *Comp) Item() snack.Item {
	return c.item
}

// Phase returns the current phase name, one of idle, push, revert, and
// wait.
func (c *Comp) Phase() string {
	return c.state.String()
}

// Remaining returns the number of push/revert cycles still to run,
// including the one in progress.
func (c *Comp) Remaining() uint8 {
	return c.remaining
}

// DurationTicks returns the length of one push, revert, or wait phase in
// ticks.
func (c *Comp) DurationTicks() int {
	return c.durationTicks
}

// DispensesStarted returns the number of non-zero runs accepted so far.
func (c *Comp) DispensesStarted() uint64 {
	return c.dispensesStarted
}

// DispensesCompleted returns the number of runs fully finished so far.
func (c *Comp) DispensesCompleted() uint64 {
	return c.dispensesCompleted
}

// CyclesRun returns the number of push/revert cycles completed so far.
func (c *Comp) CyclesRun() uint64 {
	return c.cyclesRun
}

// ZeroCountStarts returns the number of start pulses absorbed with a zero
// count.
func (c *Comp) ZeroCountStarts() uint64 {
	return c.zeroCountStarts
}

type middleware struct {
	*Comp
}

func (m *middleware) Tick() bool {
	if m.state == stateIdle {
		return m.acceptStart()
	}

	return m.advancePhase()
}

// acceptStart samples the start port. Start pulses are only sampled in the
// idle state; the sequencer never overlaps pulses to one slot.
func (m *middleware) acceptStart() bool {
	item := m.startIn.RetrieveIncoming()
	if item == nil {
		return false
	}

	msg := item.(*snack.StartDispenseMsg)

	if msg.Count == 0 {
		m.zeroCountStarts++

		if m.NumHooks() > 0 {
			m.InvokeHook(sim.HookCtx{
				Domain: m.Comp,
				Pos:    HookPosZeroCountStart,
				Item:   DispenseRun{Item: m.item},
			})
		}

		return true
	}

	m.count = msg.Count
	m.remaining = msg.Count
	m.dispensesStarted++

	now := m.CurrentTime()
	m.busyOut.Drive(true, now)
	m.enterPush(now)

	m.taskID = tracing.MsgIDAtReceiver(msg, m.Comp)
	tracing.StartTask(m.taskID, tracing.MsgIDAtSender(msg), m.Comp,
		"dispense", m.item.String(), m.Name(),
		DispenseRun{Item: m.item, Count: msg.Count})

	if m.NumHooks() > 0 {
		m.InvokeHook(sim.HookCtx{
			Domain: m.Comp,
			Pos:    HookPosDispenseStarted,
			Item:   DispenseRun{Item: m.item, Count: msg.Count},
		})
	}

	return true
}

// advancePhase burns one tick of the current phase and rolls to the next
// phase when durationTicks have elapsed.
func (m *middleware) advancePhase() bool {
	m.tickCount++
	if m.tickCount < m.durationTicks {
		return true
	}

	now := m.CurrentTime()

	switch m.state {
	case statePush:
		m.enterRevert(now)
	case stateRevert:
		m.completeCycle(now)
	case stateWait:
		m.enterPush(now)
	}

	return true
}

func (m *middleware) enterPush(now sim.VTimeInSec) {
	m.state = statePush
	m.tickCount = 0
	m.indicator.Drive(true, now)
	m.codeBus.Drive(uint16(snack.CodePush), now)
}

func (m *middleware) enterRevert(now sim.VTimeInSec) {
	m.state = stateRevert
	m.tickCount = 0
	m.codeBus.Drive(uint16(snack.CodeRevert), now)
}

func (m *middleware) completeCycle(now sim.VTimeInSec) {
	m.remaining--
	m.cyclesRun++
	tracing.AddTaskStep(m.taskID, m.Comp, "cycle complete")

	if m.remaining > 0 {
		m.state = stateWait
		m.tickCount = 0
		m.indicator.Drive(false, now)
		m.codeBus.Drive(uint16(snack.CodeStop), now)

		return
	}

	m.state = stateIdle
	m.tickCount = 0
	m.indicator.Drive(false, now)
	m.codeBus.Drive(uint16(snack.CodeStop), now)
	m.busyOut.Drive(false, now)
	m.dispensesCompleted++

	tracing.EndTask(m.taskID, m.Comp)
	m.taskID = ""

	if m.NumHooks() > 0 {
		m.InvokeHook(sim.HookCtx{
			Domain: m.Comp,
			Pos:    HookPosDispenseCompleted,
			Item:   DispenseRun{Item: m.item, Count: m.count},
		})
	}
}
