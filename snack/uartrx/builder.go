package uartrx

import (
	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/sim/wiring"
)

// Builder can build bit-level receivers.
type Builder struct {
	engine  sim.Engine
	freq    sim.Freq
	bitRate int
	line    *wiring.Signal
	byteDst sim.RemotePort
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:    50 * sim.MHz,
		bitRate: 115200,
	}
}

// WithEngine sets the engine that the receiver uses.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the tick rate of the receiver.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithBitRate sets the serial bit rate in bits per second.
func (b Builder) WithBitRate(bitRate int) Builder {
	b.bitRate = bitRate
	return b
}

// WithLine sets the serial line the receiver samples.
func (b Builder) WithLine(line *wiring.Signal) Builder {
	b.line = line
	return b
}

// WithByteDst sets the port recovered bytes are sent to.
func (b Builder) WithByteDst(dst sim.RemotePort) Builder {
	b.byteDst = dst
	return b
}

// Build creates a new receiver.
func (b Builder) Build(name string) *Comp {
	c := &Comp{}

	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)
	c.line = b.line
	c.byteDst = b.byteDst
	c.bitTicks = int(float64(b.freq) / float64(b.bitRate))

	if c.bitTicks < 2 {
		panic("the tick rate must be at least twice the bit rate")
	}

	c.byteOut = sim.NewPort(c, 1, 4, name+".ByteOut")
	c.AddPort("ByteOut", c.byteOut)

	b.line.Subscribe(c)

	c.AddMiddleware(&middleware{Comp: c})

	return c
}
