package pulsegen

import (
	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/sim/wiring"
	"github.com/chat2snack/snacksim/snack/snack"
)

// Builder can build pulse generators.
type Builder struct {
	engine      sim.Engine
	freq        sim.Freq
	item        snack.Item
	codeBus     *wiring.Bus
	out         *wiring.Signal
	period      sim.VTimeInSec
	stopWidth   sim.VTimeInSec
	pushWidth   sim.VTimeInSec
	revertWidth sim.VTimeInSec
}

// MakeBuilder creates a builder with default parameters: a 20 ms period
// with a 1.5 ms stop pulse, a 2.45 ms push pulse, and a 0.35 ms revert
// pulse.
func MakeBuilder() Builder {
	return Builder{
		freq:        50 * sim.MHz,
		period:      0.020,
		stopWidth:   0.0015,
		pushWidth:   0.00245,
		revertWidth: 0.00035,
	}
}

// WithEngine sets the event engine the generator uses.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the tick frequency of the generator.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithItem sets the slot the generator serves.
func (b Builder) WithItem(item snack.Item) Builder {
	b.item = item
	return b
}

// WithCodeBus sets the bus the control code is sampled from.
func (b Builder) WithCodeBus(bus *wiring.Bus) Builder {
	b.codeBus = bus
	return b
}

// WithOutputSignal sets the signal the pulse train is driven onto.
func (b Builder) WithOutputSignal(signal *wiring.Signal) Builder {
	b.out = signal
	return b
}

// WithPeriod sets the pulse period.
func (b Builder) WithPeriod(period sim.VTimeInSec) Builder {
	b.period = period
	return b
}

// WithPulseWidths sets the pulse widths for the stop, push, and revert
// codes.
func (b Builder) WithPulseWidths(
	stop, push, revert sim.VTimeInSec,
) Builder {
	b.stopWidth = stop
	b.pushWidth = push
	b.revertWidth = revert
	return b
}

// Build creates a pulse generator with the given name.
func (b Builder) Build(name string) *Comp {
	c := &Comp{}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	if b.codeBus == nil || b.out == nil {
		panic("pulse generator requires a code bus and an output signal")
	}

	c.item = b.item
	c.codeBus = b.codeBus
	c.out = b.out

	c.periodTicks = int(b.freq.Cycle(b.period))
	c.stopTicks = int(b.freq.Cycle(b.stopWidth))
	c.pushTicks = int(b.freq.Cycle(b.pushWidth))
	c.revertTicks = int(b.freq.Cycle(b.revertWidth))

	for _, w := range []int{c.stopTicks, c.pushTicks, c.revertTicks} {
		if w < 1 {
			panic("a pulse width must be at least one tick")
		}

		if w >= c.periodTicks {
			panic("the pulse period must cover the longest pulse width")
		}
	}

	c.width = c.stopTicks
	c.dormant = true

	b.codeBus.Subscribe(c)

	c.AddMiddleware(&middleware{Comp: c})

	return c
}
