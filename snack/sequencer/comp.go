// Package sequencer provides the dispense sequencer that walks the five
// slots in their fixed serving order, one at a time.
package sequencer

import (
	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/sim/wiring"
	"github.com/chat2snack/snacksim/snack/snack"
	"github.com/chat2snack/snacksim/tracing"
)

// HookPosOrderStarted marks when a go trigger is accepted and an order
// begins.
var HookPosOrderStarted = &sim.HookPos{Name: "Sequencer Order Started"}

// HookPosOrderCompleted marks when the last slot of an order finishes.
var HookPosOrderCompleted = &sim.HookPos{Name: "Sequencer Order Completed"}

// HookPosTriggerLost marks when a go trigger arrives while an order is
// already running and is dropped.
var HookPosTriggerLost = &sim.HookPos{Name: "Sequencer Trigger Lost"}

type state int

const (
	stateIdle state = iota
	stateStart
	stateAwaitBusyRise
	stateAwaitBusyFall
)

// Comp serves one order at a time. It pulses each slot controller in the
// fixed visit order and waits for the controller's busy flag to rise and
// fall again before moving on, so at most one slot is ever dispensing.
// Triggers that arrive while an order is running are dropped.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	goIn      sim.Port
	startOuts [snack.NumItems]sim.Port
	startDsts [snack.NumItems]sim.RemotePort
	slotBusy  [snack.NumItems]*wiring.Signal
	busyOut   *wiring.Signal

	state       state
	step        int
	counts      [snack.NumItems]uint8
	pendingMsg  *snack.StartDispenseMsg
	orderTaskID string

	ordersStarted   uint64
	ordersCompleted uint64
	lostTriggers    uint64
}

// Tick updates the sequencer state by one cycle.
func (c *Comp) Tick() bool {
	return c.MiddlewareHolder.Tick()
}

// NotifyWireChange wakes the sequencer when a slot busy flag changes.
func (c *Comp) NotifyWireChange() {
	c.TickLater()
}

// Reset abandons any running order and returns the sequencer to idle. The
// busy flag is cleared by the machine-level reset of the wires. Triggers
// already delivered but not yet sampled and start pulses not yet forwarded
// die with the reset; the open order task is closed at the reset time.
func (c *Comp) Reset() {
	for c.goIn.RetrieveIncoming() != nil {
	}
	for _, p := range c.startOuts {
		for p.RetrieveOutgoing() != nil {
		}
	}

	if c.pendingMsg != nil {
		tracing.TraceReqFinalize(c.pendingMsg, c)
		c.pendingMsg = nil
	}

	if c.orderTaskID != "" {
		tracing.EndTask(c.orderTaskID, c)
		c.orderTaskID = ""
	}

	c.state = stateIdle
	c.step = 0
	c.counts = [snack.NumItems]uint8{}
}

// Busy returns whether an order is running.
func (c *Comp) Busy() bool {
	return c.state != stateIdle
}

// OrdersStarted returns the number of go triggers accepted so far.
func (c *Comp) OrdersStarted() uint64 {
	return c.ordersStarted
}

// OrdersCompleted returns the number of orders fully served so far.
func (c *Comp) OrdersCompleted() uint64 {
	return c.ordersCompleted
}

// LostTriggers returns the number of go triggers dropped because an order
// was already running.
func (c *Comp) LostTriggers() uint64 {
	return c.lostTriggers
}

type middleware struct {
	*Comp
}

func (m *middleware) Tick() bool {
	madeProgress := m.acceptTrigger()

	switch m.state {
	case stateStart:
		madeProgress = m.sendStart() || madeProgress
	case stateAwaitBusyRise:
		madeProgress = m.watchBusyRise() || madeProgress
	case stateAwaitBusyFall:
		madeProgress = m.watchBusyFall() || madeProgress
	}

	return madeProgress
}

// acceptTrigger drains the go port every tick. Triggers that arrive
// mid-order must still be retrieved, or they would fire a stale order the
// moment the current one finishes.
func (m *middleware) acceptTrigger() bool {
	item := m.goIn.RetrieveIncoming()
	if item == nil {
		return false
	}

	goMsg := item.(*snack.GoMsg)

	if m.state != stateIdle {
		m.lostTriggers++

		if m.NumHooks() > 0 {
			m.InvokeHook(sim.HookCtx{
				Domain: m.Comp,
				Pos:    HookPosTriggerLost,
				Item:   goMsg.Command,
			})
		}

		return true
	}

	m.counts = goMsg.Command.Counts()
	m.step = 0
	m.state = stateStart
	m.ordersStarted++
	m.busyOut.Drive(true, m.CurrentTime())

	m.orderTaskID = sim.GetIDGenerator().Generate()
	tracing.StartTask(m.orderTaskID, "", m.Comp, "order",
		goMsg.Command.String(), m.Name(), goMsg.Command)

	if m.NumHooks() > 0 {
		m.InvokeHook(sim.HookCtx{
			Domain: m.Comp,
			Pos:    HookPosOrderStarted,
			Item:   goMsg.Command,
		})
	}

	return true
}

// sendStart pulses the controller of the current slot. A slot with a zero
// count still gets its pulse, but the sequencer does not wait on it: the
// controller never raises its busy flag for a zero count.
func (m *middleware) sendStart() bool {
	it := snack.VisitOrder[m.step]
	count := m.counts[it]

	msg := snack.StartDispenseMsgBuilder{}.
		WithSrc(m.startOuts[it].AsRemote()).
		WithDst(m.startDsts[it]).
		WithItem(it).
		WithCount(count).
		Build()

	if err := m.startOuts[it].Send(msg); err != nil {
		return false
	}

	if count == 0 {
		m.advance()
		return true
	}

	tracing.TraceReqInitiate(msg, m.Comp, m.orderTaskID)
	m.pendingMsg = msg
	m.state = stateAwaitBusyRise

	return true
}

// watchBusyRise waits for the slot controller to acknowledge the start
// pulse by raising its busy flag. Watching for the rise before the fall
// absorbs the delivery latency of the pulse; sampling for the fall alone
// would see the flag still low and skip the slot.
func (m *middleware) watchBusyRise() bool {
	it := snack.VisitOrder[m.step]

	if !m.slotBusy[it].Sample(m.CurrentTime()) {
		return false
	}

	m.state = stateAwaitBusyFall

	return true
}

// watchBusyFall waits for the slot controller to finish.
func (m *middleware) watchBusyFall() bool {
	it := snack.VisitOrder[m.step]

	if m.slotBusy[it].Sample(m.CurrentTime()) {
		return false
	}

	tracing.TraceReqFinalize(m.pendingMsg, m.Comp)
	tracing.AddTaskStep(m.orderTaskID, m.Comp, it.String()+" served")
	m.pendingMsg = nil
	m.advance()

	return true
}

func (m *middleware) advance() {
	m.step++
	if m.step < len(snack.VisitOrder) {
		m.state = stateStart
		return
	}

	m.state = stateIdle
	m.step = 0
	m.ordersCompleted++
	m.busyOut.Drive(false, m.CurrentTime())

	tracing.EndTask(m.orderTaskID, m.Comp)
	m.orderTaskID = ""

	if m.NumHooks() > 0 {
		m.InvokeHook(sim.HookCtx{
			Domain: m.Comp,
			Pos:    HookPosOrderCompleted,
		})
	}
}
