package dispensecontroller

import (
	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/sim/wiring"
	"github.com/chat2snack/snacksim/snack/snack"
)

// Builder can build dispense controllers.
type Builder struct {
	engine       sim.Engine
	freq         sim.Freq
	item         snack.Item
	busyOut      *wiring.Signal
	indicator    *wiring.Signal
	codeBus      *wiring.Bus
	pushDuration sim.VTimeInSec
}

// MakeBuilder creates a builder with default parameters. The default phase
// duration is half a second.
func MakeBuilder() Builder {
	return Builder{
		freq:         50 * sim.MHz,
		pushDuration: 0.5,
	}
}

// WithEngine sets the event engine the controller uses.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the tick frequency of the controller.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithItem sets the slot the controller serves.
func (b Builder) WithItem(item snack.Item) Builder {
	b.item = item
	return b
}

// WithBusySignal sets the signal the controller raises while dispensing.
func (b Builder) WithBusySignal(signal *wiring.Signal) Builder {
	b.busyOut = signal
	return b
}

// WithIndicatorSignal sets the signal that lights the slot during push and
// revert.
func (b Builder) WithIndicatorSignal(signal *wiring.Signal) Builder {
	b.indicator = signal
	return b
}

// WithCodeBus sets the bus the controller drives with the actuator control
// code.
func (b Builder) WithCodeBus(bus *wiring.Bus) Builder {
	b.codeBus = bus
	return b
}

// WithPushDuration sets how long each push, revert, and wait phase holds.
func (b Builder) WithPushDuration(d sim.VTimeInSec) Builder {
	b.pushDuration = d
	return b
}

// Build creates a dispense controller with the given name.
func (b Builder) Build(name string) *Comp {
	c := &Comp{}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	if b.busyOut == nil || b.indicator == nil || b.codeBus == nil {
		panic("dispense controller requires busy, indicator, and code wires")
	}

	c.item = b.item
	c.busyOut = b.busyOut
	c.indicator = b.indicator
	c.codeBus = b.codeBus

	c.durationTicks = int(b.freq.Cycle(b.pushDuration))
	if c.durationTicks < 1 {
		panic("the push duration must be at least one tick")
	}

	c.startIn = sim.NewPort(c, 4, 4, name+".StartIn")
	c.AddPort("StartIn", c.startIn)

	c.AddMiddleware(&middleware{Comp: c})

	return c
}
