package linedriver

import (
	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/sim/wiring"
)

// Builder can build line drivers.
type Builder struct {
	engine  sim.Engine
	freq    sim.Freq
	bitRate int
	gapBits int
	line    *wiring.Signal
}

// MakeBuilder creates a builder with default parameters: 115200 bit/s and
// a one-bit gap between frames.
func MakeBuilder() Builder {
	return Builder{
		freq:    50 * sim.MHz,
		bitRate: 115200,
		gapBits: 1,
	}
}

// WithEngine sets the engine that the driver uses.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the tick rate of the driver.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithBitRate sets the serial bit rate in bits per second.
func (b Builder) WithBitRate(bitRate int) Builder {
	b.bitRate = bitRate
	return b
}

// WithGapBits sets the idle gap between frames in bit periods.
func (b Builder) WithGapBits(gapBits int) Builder {
	b.gapBits = gapBits
	return b
}

// WithLine sets the serial line the driver drives.
func (b Builder) WithLine(line *wiring.Signal) Builder {
	b.line = line
	return b
}

// Build creates a new line driver.
func (b Builder) Build(name string) *Comp {
	c := &Comp{}

	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)
	c.line = b.line
	c.bitTicks = int(float64(b.freq) / float64(b.bitRate))
	c.gapTicks = b.gapBits * c.bitTicks

	if c.bitTicks < 2 {
		panic("the tick rate must be at least twice the bit rate")
	}

	c.AddMiddleware(&middleware{Comp: c})

	return c
}
