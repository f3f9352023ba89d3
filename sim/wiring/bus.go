package wiring

import (
	"log"

	"github.com/chat2snack/snacksim/sim"
)

// BusChange is the hook detail attached to a bus value change.
type BusChange struct {
	From, To uint16
	Cycle    uint64
	Time     sim.VTimeInSec
}

// A Bus is a single-driver 16-bit wire bundle with the same latching
// behavior as a Signal.
type Bus struct {
	sim.HookableBase

	name string
	freq sim.Freq

	prev        uint16
	curr        uint16
	changeCycle uint64

	listeners []Listener
}

// NewBus creates a bus that latches values on the grid of the given
// frequency.
func NewBus(name string, freq sim.Freq, initial uint16) *Bus {
	sim.NameMustBeValid(name)

	return &Bus{
		name: name,
		freq: freq,
		prev: initial,
		curr: initial,
	}
}

// Name returns the name of the bus.
func (b *Bus) Name() string {
	return b.name
}

// Subscribe registers a listener to be woken up on value changes.
func (b *Bus) Subscribe(l Listener) {
	b.listeners = append(b.listeners, l)
}

// Drive latches a value onto the bus. The value becomes visible to samplers
// at the cycle after now.
func (b *Bus) Drive(value uint16, now sim.VTimeInSec) {
	cycle := b.freq.Cycle(now)

	if cycle < b.changeCycle {
		log.Panic("driving a bus in the past")
	}

	if cycle == b.changeCycle {
		b.curr = value
		return
	}

	if value == b.curr {
		return
	}

	b.prev = b.curr
	b.curr = value
	b.changeCycle = cycle

	if b.NumHooks() > 0 {
		b.InvokeHook(sim.HookCtx{
			Domain: b,
			Pos:    HookPosWireChange,
			Item: BusChange{
				From:  b.prev,
				To:    b.curr,
				Cycle: cycle,
				Time:  now,
			},
		})
	}

	for _, l := range b.listeners {
		l.NotifyWireChange()
	}
}

// Sample returns the value visible at the given time.
func (b *Bus) Sample(now sim.VTimeInSec) uint16 {
	if b.freq.Cycle(now) > b.changeCycle {
		return b.curr
	}

	return b.prev
}

// Value returns the most recently driven value, regardless of visibility.
func (b *Bus) Value() uint16 {
	return b.curr
}

// Reset forces the bus to a value that is immediately visible, as an
// asynchronous reset line would.
func (b *Bus) Reset(value uint16, now sim.VTimeInSec) {
	b.prev = value
	b.curr = value
	b.changeCycle = b.freq.Cycle(now)

	for _, l := range b.listeners {
		l.NotifyWireChange()
	}
}
