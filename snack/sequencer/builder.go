package sequencer

import (
	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/sim/wiring"
	"github.com/chat2snack/snacksim/snack/snack"
)

// Builder can build dispense sequencers.
type Builder struct {
	engine    sim.Engine
	freq      sim.Freq
	startDsts [snack.NumItems]sim.RemotePort
	slotBusy  [snack.NumItems]*wiring.Signal
	busyOut   *wiring.Signal
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq: 50 * sim.MHz,
	}
}

// WithEngine sets the event engine the sequencer uses.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the tick frequency of the sequencer.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithStartDst sets the port the start pulse for one slot is sent to.
func (b Builder) WithStartDst(item snack.Item, dst sim.RemotePort) Builder {
	b.startDsts[item] = dst
	return b
}

// WithSlotBusySignal sets the busy flag of one slot controller.
func (b Builder) WithSlotBusySignal(
	item snack.Item,
	signal *wiring.Signal,
) Builder {
	b.slotBusy[item] = signal
	return b
}

// WithBusySignal sets the signal the sequencer drives while an order is
// running.
func (b Builder) WithBusySignal(signal *wiring.Signal) Builder {
	b.busyOut = signal
	return b
}

// Build creates a dispense sequencer with the given name.
func (b Builder) Build(name string) *Comp {
	c := &Comp{}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	if b.busyOut == nil {
		panic("sequencer requires a busy signal")
	}

	for _, it := range snack.VisitOrder {
		if b.slotBusy[it] == nil {
			panic("sequencer requires a busy signal for the " +
				it.String() + " slot")
		}
	}

	c.startDsts = b.startDsts
	c.slotBusy = b.slotBusy
	c.busyOut = b.busyOut

	c.goIn = sim.NewPort(c, 4, 4, name+".GoIn")
	c.AddPort("GoIn", c.goIn)

	for i := 0; i < snack.NumItems; i++ {
		c.startOuts[i] = sim.NewPort(c, 1, 1,
			sim.BuildNameWithIndex(name, "Start", i))
		c.AddPort(sim.BuildNameWithIndex("", "Start", i), c.startOuts[i])
	}

	for _, s := range b.slotBusy {
		s.Subscribe(c)
	}

	c.AddMiddleware(&middleware{Comp: c})

	return c
}
