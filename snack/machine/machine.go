// Package machine assembles the whole dispenser board: the serial receiver,
// the packet assembler, the dispense sequencer, five dispense controllers,
// five pulse generators, and the wires between them.
package machine

import (
	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/sim/directconnection"
	"github.com/chat2snack/snacksim/sim/wiring"
	"github.com/chat2snack/snacksim/snack/assembler"
	"github.com/chat2snack/snacksim/snack/dispensecontroller"
	"github.com/chat2snack/snacksim/snack/linedriver"
	"github.com/chat2snack/snacksim/snack/pulsegen"
	"github.com/chat2snack/snacksim/snack/sequencer"
	"github.com/chat2snack/snacksim/snack/snack"
	"github.com/chat2snack/snacksim/snack/uartrx"
)

// A Machine is one fully wired dispenser board. The components are exported
// so that harnesses can attach hooks and tracers to them directly.
type Machine struct {
	name   string
	engine sim.Engine
	freq   sim.Freq

	rxLine     *wiring.Signal
	commandBus *wiring.Bus
	seqBusy    *wiring.Signal
	slotBusy   [snack.NumItems]*wiring.Signal
	indicators [snack.NumItems]*wiring.Signal
	codeBuses  [snack.NumItems]*wiring.Bus
	pulses     [snack.NumItems]*wiring.Signal

	Driver      *linedriver.Comp
	Receiver    *uartrx.Comp
	Assembler   *assembler.Comp
	Sequencer   *sequencer.Comp
	Controllers [snack.NumItems]*dispensecontroller.Comp
	Generators  [snack.NumItems]*pulsegen.Comp

	conn *directconnection.Comp
}

// Name returns the name of the machine.
func (m *Machine) Name() string {
	return m.name
}

// Command returns the value of the debug command register, the last word
// latched by the assembler.
func (m *Machine) Command() snack.Command {
	return snack.Command(m.commandBus.Value())
}

// CommandBus returns the 16-bit debug bus that continuously exposes the
// command register.
func (m *Machine) CommandBus() *wiring.Bus {
	return m.commandBus
}

// RxLine returns the serial receive line.
func (m *Machine) RxLine() *wiring.Signal {
	return m.rxLine
}

// SequencerBusy returns the signal that is high while an order is being
// served.
func (m *Machine) SequencerBusy() *wiring.Signal {
	return m.seqBusy
}

// Busy returns the busy flag of one slot controller.
func (m *Machine) Busy(item snack.Item) *wiring.Signal {
	return m.slotBusy[item]
}

// Indicator returns the indicator light of one slot. It is high exactly
// while the slot's controller is pushing or reverting.
func (m *Machine) Indicator(item snack.Item) *wiring.Signal {
	return m.indicators[item]
}

// Pulse returns the actuator pulse output of one slot.
func (m *Machine) Pulse(item snack.Item) *wiring.Signal {
	return m.pulses[item]
}

// CodeBus returns the control-code bus between one slot's controller and
// its pulse generator.
func (m *Machine) CodeBus(item snack.Item) *wiring.Bus {
	return m.codeBuses[item]
}

// Components returns every component of the board, the stimulus driver
// included when one was built.
func (m *Machine) Components() []sim.Component {
	comps := []sim.Component{m.Receiver, m.Assembler, m.Sequencer, m.conn}

	for _, item := range snack.VisitOrder {
		comps = append(comps, m.Controllers[item], m.Generators[item])
	}

	if m.Driver != nil {
		comps = append(comps, m.Driver)
	}

	return comps
}

// Reset is the asynchronous reset line. It forces every component back to
// its initial state and re-drives every wire to its default level,
// abandoning any partially completed dispense. Messages still in flight
// between components are discarded by the component resets, so a trigger
// or start pulse sent just before the reset cannot actuate after it.
func (m *Machine) Reset() {
	now := m.engine.CurrentTime()

	m.Receiver.Reset()
	m.Assembler.Reset()
	m.Sequencer.Reset()

	for _, item := range snack.VisitOrder {
		m.Controllers[item].Reset()
		m.Generators[item].Reset()

		m.slotBusy[item].Reset(false, now)
		m.indicators[item].Reset(false, now)
		m.pulses[item].Reset(false, now)
		m.codeBuses[item].Reset(uint16(snack.CodeStop), now)
	}

	m.rxLine.Reset(true, now)
	m.commandBus.Reset(0, now)
	m.seqBusy.Reset(false, now)
}

// A SlotStatus is the snapshot of one dispenser slot.
type SlotStatus struct {
	Item       string `json:"item"`
	Phase      string `json:"phase"`
	Remaining  uint8  `json:"remaining"`
	Busy       bool   `json:"busy"`
	Indicator  bool   `json:"indicator"`
	Pulse      bool   `json:"pulse"`
	Dispensed  uint64 `json:"dispensed"`
	CyclesRun  uint64 `json:"cycles_run"`
	ZeroStarts uint64 `json:"zero_starts"`
}

// A Status is the snapshot of the whole board, served by the monitoring
// server's machine endpoint.
type Status struct {
	Now             float64      `json:"now"`
	Command         string       `json:"command"`
	CommandWord     uint16       `json:"command_word"`
	SequencerBusy   bool         `json:"sequencer_busy"`
	OrdersStarted   uint64       `json:"orders_started"`
	OrdersCompleted uint64       `json:"orders_completed"`
	LostTriggers    uint64       `json:"lost_triggers"`
	BytesReceived   uint64       `json:"bytes_received"`
	FramingErrors   uint64       `json:"framing_errors"`
	StartGlitches   uint64       `json:"start_glitches"`
	CommandsLatched uint64       `json:"commands_latched"`
	TriggersFired   uint64       `json:"triggers_fired"`
	TriggersDropped uint64       `json:"triggers_dropped"`
	Slots           []SlotStatus `json:"slots"`
}

// Summary reports the snapshot of the board.
func (m *Machine) Summary() any {
	status := Status{
		Now:             float64(m.engine.CurrentTime()),
		Command:         m.Command().String(),
		CommandWord:     uint16(m.Command()),
		SequencerBusy:   m.Sequencer.Busy(),
		OrdersStarted:   m.Sequencer.OrdersStarted(),
		OrdersCompleted: m.Sequencer.OrdersCompleted(),
		LostTriggers:    m.Sequencer.LostTriggers(),
		BytesReceived:   m.Receiver.BytesReceived(),
		FramingErrors:   m.Receiver.FramingErrors(),
		StartGlitches:   m.Receiver.StartGlitches(),
		CommandsLatched: m.Assembler.CommandsLatched(),
		TriggersFired:   m.Assembler.TriggersFired(),
		TriggersDropped: m.Assembler.TriggersDropped(),
	}

	for _, item := range snack.VisitOrder {
		ctrl := m.Controllers[item]
		status.Slots = append(status.Slots, SlotStatus{
			Item:       item.String(),
			Phase:      ctrl.Phase(),
			Remaining:  ctrl.Remaining(),
			Busy:       m.slotBusy[item].Level(),
			Indicator:  m.indicators[item].Level(),
			Pulse:      m.pulses[item].Level(),
			Dispensed:  ctrl.DispensesCompleted(),
			CyclesRun:  ctrl.CyclesRun(),
			ZeroStarts: ctrl.ZeroCountStarts(),
		})
	}

	return status
}
