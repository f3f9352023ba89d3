package machine

import (
	"github.com/chat2snack/snacksim/datarecording"
	"github.com/chat2snack/snacksim/monitoring"
	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/sim/directconnection"
	"github.com/chat2snack/snacksim/sim/wiring"
	"github.com/chat2snack/snacksim/simulation"
	"github.com/chat2snack/snacksim/snack/assembler"
	"github.com/chat2snack/snacksim/snack/dispensecontroller"
	"github.com/chat2snack/snacksim/snack/linedriver"
	"github.com/chat2snack/snacksim/snack/pulsegen"
	"github.com/chat2snack/snacksim/snack/sequencer"
	"github.com/chat2snack/snacksim/snack/snack"
	"github.com/chat2snack/snacksim/snack/uartrx"
)

// Builder can build dispenser boards.
type Builder struct {
	engine       sim.Engine
	freq         sim.Freq
	bitRate      int
	period       sim.VTimeInSec
	stopWidth    sim.VTimeInSec
	pushWidth    sim.VTimeInSec
	revertWidth  sim.VTimeInSec
	pushDuration sim.VTimeInSec
	withDriver   bool
	simulation   *simulation.Simulation
	recorder     datarecording.DataRecorder
	monitor      *monitoring.Monitor
}

// MakeBuilder creates a builder with the default board parameters: a 50 MHz
// clock, 115200 bit/s serial, half-second actuations, and a 20 ms servo
// period with 1.5/2.45/0.35 ms pulses.
func MakeBuilder() Builder {
	return Builder{
		freq:         50 * sim.MHz,
		bitRate:      115200,
		period:       0.020,
		stopWidth:    0.0015,
		pushWidth:    0.00245,
		revertWidth:  0.00035,
		pushDuration: 0.5,
	}
}

// WithEngine sets the event engine driving the board.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the board clock frequency.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithBitRate sets the serial bit rate in bits per second.
func (b Builder) WithBitRate(bitRate int) Builder {
	b.bitRate = bitRate
	return b
}

// WithPulsePeriod sets the actuator pulse period.
func (b Builder) WithPulsePeriod(period sim.VTimeInSec) Builder {
	b.period = period
	return b
}

// WithPulseWidths sets the actuator pulse widths for the stop, push, and
// revert codes.
func (b Builder) WithPulseWidths(stop, push, revert sim.VTimeInSec) Builder {
	b.stopWidth = stop
	b.pushWidth = push
	b.revertWidth = revert
	return b
}

// WithPushDuration sets how long each push, revert, and wait phase holds.
func (b Builder) WithPushDuration(d sim.VTimeInSec) Builder {
	b.pushDuration = d
	return b
}

// WithLineDriver adds a harness-side serial transmitter on the receive
// line, so that scenarios can schedule commands onto the board.
func (b Builder) WithLineDriver() Builder {
	b.withDriver = true
	return b
}

// WithSimulation takes the engine, the data recorder, and the monitor from
// a simulation, and registers every component of the board with it.
func (b Builder) WithSimulation(s *simulation.Simulation) Builder {
	b.simulation = s
	return b
}

// WithDataRecorder lets the board record latched commands, received bytes,
// dispense runs, and pulse edges into the recorder's tables.
func (b Builder) WithDataRecorder(rec datarecording.DataRecorder) Builder {
	b.recorder = rec
	return b
}

// WithMonitor registers the board and its components with a monitor.
func (b Builder) WithMonitor(monitor *monitoring.Monitor) Builder {
	b.monitor = monitor
	return b
}

// Build creates a dispenser board with the given name.
func (b Builder) Build(name string) *Machine {
	if b.simulation != nil {
		b.engine = b.simulation.GetEngine()

		if b.recorder == nil {
			b.recorder = b.simulation.GetDataRecorder()
		}

		if b.monitor == nil {
			b.monitor = b.simulation.GetMonitor()
		}
	}

	if b.engine == nil {
		panic("machine requires an engine")
	}

	m := &Machine{
		name:   name,
		engine: b.engine,
		freq:   b.freq,
	}

	b.buildWires(m, name)
	b.buildComponents(m, name)
	b.connectPorts(m, name)

	if b.recorder != nil {
		attachRecorder(m, b.engine, b.recorder)
	}

	if b.monitor != nil {
		b.registerWithMonitor(m)
	}

	if b.simulation != nil {
		for _, c := range m.Components() {
			b.simulation.RegisterComponent(c)
		}
	}

	return m
}

func (b Builder) buildWires(m *Machine, name string) {
	m.rxLine = wiring.NewSignal(name+".RxLine", b.freq, true)
	m.commandBus = wiring.NewBus(name+".CommandBus", b.freq, 0)
	m.seqBusy = wiring.NewSignal(name+".SeqBusy", b.freq, false)

	for i := 0; i < snack.NumItems; i++ {
		m.slotBusy[i] = wiring.NewSignal(
			sim.BuildNameWithIndex(name, "SlotBusy", i), b.freq, false)
		m.indicators[i] = wiring.NewSignal(
			sim.BuildNameWithIndex(name, "Indicator", i), b.freq, false)
		m.pulses[i] = wiring.NewSignal(
			sim.BuildNameWithIndex(name, "Pulse", i), b.freq, false)
		m.codeBuses[i] = wiring.NewBus(
			sim.BuildNameWithIndex(name, "CodeBus", i),
			b.freq, uint16(snack.CodeStop))
	}
}

func (b Builder) buildComponents(m *Machine, name string) {
	for _, item := range snack.VisitOrder {
		m.Controllers[item] = dispensecontroller.MakeBuilder().
			WithEngine(b.engine).
			WithFreq(b.freq).
			WithItem(item).
			WithBusySignal(m.slotBusy[item]).
			WithIndicatorSignal(m.indicators[item]).
			WithCodeBus(m.codeBuses[item]).
			WithPushDuration(b.pushDuration).
			Build(sim.BuildNameWithIndex(name, "Controller", int(item)))

		m.Generators[item] = pulsegen.MakeBuilder().
			WithEngine(b.engine).
			WithFreq(b.freq).
			WithItem(item).
			WithCodeBus(m.codeBuses[item]).
			WithOutputSignal(m.pulses[item]).
			WithPeriod(b.period).
			WithPulseWidths(b.stopWidth, b.pushWidth, b.revertWidth).
			Build(sim.BuildNameWithIndex(name, "PulseGen", int(item)))
	}

	seqBuilder := sequencer.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.freq).
		WithBusySignal(m.seqBusy)
	for _, item := range snack.VisitOrder {
		seqBuilder = seqBuilder.
			WithSlotBusySignal(item, m.slotBusy[item]).
			WithStartDst(item,
				m.Controllers[item].GetPortByName("StartIn").AsRemote())
	}
	m.Sequencer = seqBuilder.Build(name + ".Sequencer")

	m.Assembler = assembler.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.freq).
		WithCommandBus(m.commandBus).
		WithGoDst(m.Sequencer.GetPortByName("GoIn").AsRemote()).
		Build(name + ".Assembler")

	m.Receiver = uartrx.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.freq).
		WithBitRate(b.bitRate).
		WithLine(m.rxLine).
		WithByteDst(m.Assembler.GetPortByName("ByteIn").AsRemote()).
		Build(name + ".Receiver")

	if b.withDriver {
		m.Driver = linedriver.MakeBuilder().
			WithEngine(b.engine).
			WithFreq(b.freq).
			WithBitRate(b.bitRate).
			WithLine(m.rxLine).
			Build(name + ".Driver")
	}
}

func (b Builder) connectPorts(m *Machine, name string) {
	m.conn = directconnection.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.freq).
		Build(name + ".Conn")

	m.conn.PlugIn(m.Receiver.GetPortByName("ByteOut"))
	m.conn.PlugIn(m.Assembler.GetPortByName("ByteIn"))
	m.conn.PlugIn(m.Assembler.GetPortByName("GoOut"))
	m.conn.PlugIn(m.Sequencer.GetPortByName("GoIn"))

	for i, item := range snack.VisitOrder {
		m.conn.PlugIn(m.Sequencer.GetPortByName(
			sim.BuildNameWithIndex("", "Start", i)))
		m.conn.PlugIn(m.Controllers[item].GetPortByName("StartIn"))
	}
}

func (b Builder) registerWithMonitor(m *Machine) {
	b.monitor.RegisterSummaryProvider(m)

	for _, c := range m.Components() {
		b.monitor.RegisterComponent(c)
	}
}
