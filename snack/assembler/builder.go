package assembler

import (
	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/sim/wiring"
)

// Builder can build packet assemblers.
type Builder struct {
	engine     sim.Engine
	freq       sim.Freq
	commandBus *wiring.Bus
	goDst      sim.RemotePort
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq: 50 * sim.MHz,
	}
}

// WithEngine sets the event engine the assembler uses.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the tick frequency of the assembler.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithCommandBus sets the bus the assembler drives with the latched
// command word.
func (b Builder) WithCommandBus(bus *wiring.Bus) Builder {
	b.commandBus = bus
	return b
}

// WithGoDst sets the port the go trigger is sent to.
func (b Builder) WithGoDst(dst sim.RemotePort) Builder {
	b.goDst = dst
	return b
}

// Build creates a packet assembler with the given name.
func (b Builder) Build(name string) *Comp {
	c := &Comp{}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	if b.commandBus == nil {
		panic("assembler requires a command bus")
	}

	c.commandBus = b.commandBus
	c.goDst = b.goDst

	c.byteIn = sim.NewPort(c, 4, 4, name+".ByteIn")
	c.AddPort("ByteIn", c.byteIn)

	c.goOut = sim.NewPort(c, 4, 4, name+".GoOut")
	c.AddPort("GoOut", c.goOut)

	c.AddMiddleware(&middleware{Comp: c})

	return c
}
