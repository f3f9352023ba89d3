package sim

import "sync"

// A TickEvent asks a component to run one cycle of its state machines.
type TickEvent struct {
	EventBase
}

// MakeTickEvent creates a TickEvent for the given handler and time.
func MakeTickEvent(handler Handler, time VTimeInSec) TickEvent {
	return TickEvent{EventBase{
		ID:      GetIDGenerator().Generate(),
		time:    time,
		handler: handler,
	}}
}

// A Ticker runs one cycle of work per call. It returns true while it still
// has work to do.
type Ticker interface {
	Tick() bool
}

// A TickScheduler schedules tick events on a frequency grid, at most one per
// cycle.
type TickScheduler struct {
	lock      sync.Mutex
	handler   Handler
	Freq      Freq
	Engine    Engine
	secondary bool

	nextTickTime VTimeInSec
}

// NewTickScheduler creates a scheduler that emits primary tick events.
func NewTickScheduler(
	handler Handler, engine Engine, freq Freq,
) *TickScheduler {
	return &TickScheduler{
		handler: handler,
		Engine:  engine,
		Freq:    freq,
		// Before any time 0 tick, so the first request always schedules.
		nextTickTime: -1,
	}
}

// NewSecondaryTickScheduler creates a scheduler whose tick events run after
// all the primary events of the same cycle.
func NewSecondaryTickScheduler(
	handler Handler, engine Engine, freq Freq,
) *TickScheduler {
	t := NewTickScheduler(handler, engine, freq)
	t.secondary = true

	return t
}

// TickNow schedules a tick at the current cycle, unless one is already
// scheduled at or after it.
func (t *TickScheduler) TickNow() {
	t.lock.Lock()
	defer t.lock.Unlock()

	now := t.CurrentTime()
	if t.nextTickTime >= now {
		return
	}

	t.nextTickTime = t.Freq.ThisTick(now)
	t.schedule()
}

// TickLater schedules a tick at the next cycle, unless one is already
// scheduled at or after it.
func (t *TickScheduler) TickLater() {
	t.lock.Lock()
	defer t.lock.Unlock()

	next := t.Freq.NextTick(t.CurrentTime())
	if t.nextTickTime >= next {
		return
	}

	t.nextTickTime = next
	t.schedule()
}

func (t *TickScheduler) schedule() {
	tick := MakeTickEvent(t.handler, t.nextTickTime)
	tick.secondary = t.secondary

	t.Engine.Schedule(tick)
}

// CurrentTime returns the current time of the engine.
func (t *TickScheduler) CurrentTime() VTimeInSec {
	return t.Engine.CurrentTime()
}

// A TickingComponent updates its state cycle by cycle. Concrete components
// embed it and provide the Tick function.
type TickingComponent struct {
	*ComponentBase
	*TickScheduler

	ticker Ticker
}

// NewTickingComponent creates a TickingComponent that ticks with primary
// events.
func NewTickingComponent(
	name string, engine Engine, freq Freq, ticker Ticker,
) *TickingComponent {
	tc := &TickingComponent{
		ComponentBase: NewComponentBase(name),
		ticker:        ticker,
	}
	tc.TickScheduler = NewTickScheduler(tc, engine, freq)

	return tc
}

// NewSecondaryTickingComponent creates a TickingComponent that ticks with
// secondary events.
func NewSecondaryTickingComponent(
	name string, engine Engine, freq Freq, ticker Ticker,
) *TickingComponent {
	tc := &TickingComponent{
		ComponentBase: NewComponentBase(name),
		ticker:        ticker,
	}
	tc.TickScheduler = NewSecondaryTickScheduler(tc, engine, freq)

	return tc
}

// NotifyPortFree wakes the component up.
func (c *TickingComponent) NotifyPortFree(_ Port) {
	c.TickLater()
}

// NotifyRecv wakes the component up.
func (c *TickingComponent) NotifyRecv(_ Port) {
	c.TickLater()
}

// Handle runs one tick and keeps ticking while progress is made.
func (c *TickingComponent) Handle(_ Event) error {
	if c.ticker.Tick() {
		c.TickLater()
	}

	return nil
}
