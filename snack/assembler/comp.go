// Package assembler provides the packet assembler that pairs serial bytes
// into 16-bit commands and fires the go trigger.
package assembler

import (
	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/sim/wiring"
	"github.com/chat2snack/snacksim/snack/snack"
	"github.com/chat2snack/snacksim/tracing"
)

// HookPosCommandLatched marks when a byte pair is latched into the command
// register.
var HookPosCommandLatched = &sim.HookPos{Name: "Assembler Command Latched"}

// CommandLatch is the hook detail attached when a command is latched.
type CommandLatch struct {
	Command   snack.Command
	Triggered bool
}

// Comp pairs consecutive bytes into one 16-bit command word, low byte
// first. Every completed pair overwrites the command register, whether or
// not it carries the go flag; the register exists for external inspection
// as much as for execution.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	byteIn     sim.Port
	goOut      sim.Port
	goDst      sim.RemotePort
	commandBus *wiring.Bus

	waitingHigh bool
	lowByte     byte
	command     snack.Command
	taskID      string

	commandsLatched uint64
	triggersFired   uint64
	triggersDropped uint64
}

// Tick updates the assembler state by one cycle.
func (c *Comp) Tick() bool {
	return c.MiddlewareHolder.Tick()
}

// Reset forces the assembler back to waiting for a low byte with a cleared
// register. Bytes still queued on the input port and triggers not yet
// forwarded die with the reset.
func (c *Comp) Reset() {
	for c.byteIn.RetrieveIncoming() != nil {
	}
	for c.goOut.RetrieveOutgoing() != nil {
	}

	if c.taskID != "" {
		tracing.EndTask(c.taskID, c)
		c.taskID = ""
	}

	c.waitingHigh = false
	c.lowByte = 0
	c.command = 0
}

// Command returns the latched command register.
func (c *Comp) Command() snack.Command {
	return c.command
}

// CommandsLatched returns the number of byte pairs latched so far.
func (c *Comp) CommandsLatched() uint64 {
	return c.commandsLatched
}

// TriggersFired returns the number of go triggers sent so far.
func (c *Comp) TriggersFired() uint64 {
	return c.triggersFired
}

// TriggersDropped returns the number of go triggers lost because the
// trigger port was full.
func (c *Comp) TriggersDropped() uint64 {
	return c.triggersDropped
}

type middleware struct {
	*Comp
}

func (m *middleware) Tick() bool {
	item := m.byteIn.RetrieveIncoming()
	if item == nil {
		return false
	}

	byteMsg := item.(*snack.ByteMsg)

	if !m.waitingHigh {
		m.lowByte = byteMsg.Value
		m.waitingHigh = true

		m.taskID = sim.GetIDGenerator().Generate()
		tracing.StartTask(m.taskID, "", m.Comp, "command", "assemble",
			m.Name(), nil)

		return true
	}

	m.latch(snack.CommandFromBytes(m.lowByte, byteMsg.Value))
	m.waitingHigh = false

	return true
}

func (m *middleware) latch(cmd snack.Command) {
	m.command = cmd
	m.commandBus.Drive(uint16(cmd), m.CurrentTime())
	m.commandsLatched++

	triggered := false
	if cmd.Go() {
		msg := snack.GoMsgBuilder{}.
			WithSrc(m.goOut.AsRemote()).
			WithDst(m.goDst).
			WithCommand(cmd).
			Build()

		if err := m.goOut.Send(msg); err == nil {
			m.triggersFired++
			triggered = true
		} else {
			m.triggersDropped++
		}
	}

	tracing.EndTask(m.taskID, m.Comp)
	m.taskID = ""

	if m.NumHooks() > 0 {
		m.InvokeHook(sim.HookCtx{
			Domain: m.Comp,
			Pos:    HookPosCommandLatched,
			Item: CommandLatch{
				Command:   cmd,
				Triggered: triggered,
			},
		})
	}
}
