// Package wiring provides level-latched wires that carry board signals
// between components outside of the messaging system. A level driven during
// one cycle becomes visible to samplers at the next cycle, matching the
// register semantics of synchronous hardware.
package wiring

import (
	"log"

	"github.com/chat2snack/snacksim/sim"
)

// HookPosWireChange marks when the level of a signal or bus changes.
var HookPosWireChange = &sim.HookPos{Name: "Wire Change"}

// A Listener is woken up when a wire it subscribes to changes level. Ticking
// components use this to sleep while their inputs are stable.
type Listener interface {
	NotifyWireChange()
}

// SignalChange is the hook detail attached to a signal level change.
type SignalChange struct {
	From, To bool
	Cycle    uint64
	Time     sim.VTimeInSec
}

// A Signal is a single-driver boolean wire. Any number of components can
// sample it; the level seen at cycle N is the level driven at cycle N-1 or
// earlier.
type Signal struct {
	sim.HookableBase

	name string
	freq sim.Freq

	prev        bool
	curr        bool
	changeCycle uint64

	listeners []Listener
}

// NewSignal creates a signal that latches levels on the grid of the given
// frequency.
func NewSignal(name string, freq sim.Freq, initial bool) *Signal {
	sim.NameMustBeValid(name)

	return &Signal{
		name: name,
		freq: freq,
		prev: initial,
		curr: initial,
	}
}

// Name returns the name of the signal.
func (s *Signal) Name() string {
	return s.name
}

// Subscribe registers a listener to be woken up on level changes.
func (s *Signal) Subscribe(l Listener) {
	s.listeners = append(s.listeners, l)
}

// Drive latches a level onto the signal. The level becomes visible to
// samplers at the cycle after now. Driving the level that is already latched
// is a no-op.
func (s *Signal) Drive(level bool, now sim.VTimeInSec) {
	cycle := s.freq.Cycle(now)

	if cycle < s.changeCycle {
		log.Panic("driving a signal in the past")
	}

	if cycle == s.changeCycle {
		s.curr = level
		return
	}

	if level == s.curr {
		return
	}

	s.prev = s.curr
	s.curr = level
	s.changeCycle = cycle

	if s.NumHooks() > 0 {
		s.InvokeHook(sim.HookCtx{
			Domain: s,
			Pos:    HookPosWireChange,
			Item: SignalChange{
				From:  s.prev,
				To:    s.curr,
				Cycle: cycle,
				Time:  now,
			},
		})
	}

	for _, l := range s.listeners {
		l.NotifyWireChange()
	}
}

// Sample returns the level visible at the given time.
func (s *Signal) Sample(now sim.VTimeInSec) bool {
	if s.freq.Cycle(now) > s.changeCycle {
		return s.curr
	}

	return s.prev
}

// Level returns the most recently driven level, regardless of visibility.
func (s *Signal) Level() bool {
	return s.curr
}

// Reset forces the signal to a level that is immediately visible, as an
// asynchronous reset line would.
func (s *Signal) Reset(level bool, now sim.VTimeInSec) {
	s.prev = level
	s.curr = level
	s.changeCycle = s.freq.Cycle(now)

	for _, l := range s.listeners {
		l.NotifyWireChange()
	}
}
