package directconnection

import (
	"github.com/chat2snack/snacksim/sim"
)

// Builder assembles direct connections.
type Builder struct {
	engine sim.Engine
	freq   sim.Freq
}

// MakeBuilder returns a Builder with a default 1 GHz frequency.
func MakeBuilder() Builder {
	return Builder{
		freq: 1 * sim.GHz,
	}
}

// WithEngine sets the engine that drives the connection.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the rate at which the connection forwards messages.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// Build creates a connection with the given name.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		endByDst: make(map[sim.RemotePort]sim.Port),
	}
	c.TickingComponent = sim.NewSecondaryTickingComponent(
		name, b.engine, b.freq, c)
	c.AddMiddleware(&middleware{Comp: c})

	return c
}
