package sim

import (
	"log"
	"reflect"
	"sync"
)

// A SerialEngine runs events one at a time, in time order. Primary events of
// a given time all run before the secondary events of that time.
type SerialEngine struct {
	HookableBase

	timeLock       sync.RWMutex
	now            VTimeInSec
	queue          EventQueue
	secondaryQueue EventQueue

	paused     bool
	pausedLock sync.Mutex
	stepLock   sync.Mutex

	runLock sync.Mutex

	endHandlers []SimulationEndHandler
}

// NewSerialEngine creates a SerialEngine with empty queues.
func NewSerialEngine() *SerialEngine {
	return &SerialEngine{
		queue:          NewEventQueue(),
		secondaryQueue: NewEventQueue(),
	}
}

// Schedule queues an event. Scheduling into the past panics.
func (e *SerialEngine) Schedule(evt Event) {
	if evt.Time() < e.readNow() {
		log.Panic("scheduling an event earlier than current time")
	}

	if evt.IsSecondary() {
		e.secondaryQueue.Push(evt)
		return
	}

	e.queue.Push(evt)
}

func (e *SerialEngine) readNow() VTimeInSec {
	e.timeLock.RLock()
	defer e.timeLock.RUnlock()

	return e.now
}

func (e *SerialEngine) writeNow(t VTimeInSec) {
	e.timeLock.Lock()
	defer e.timeLock.Unlock()

	e.now = t
}

// Run processes events until both queues are empty.
func (e *SerialEngine) Run() error {
	e.runLock.Lock()
	defer e.runLock.Unlock()

	for !e.noMoreEvent() {
		e.step()
	}

	return nil
}

// step runs one event. Pause blocks the engine between steps.
func (e *SerialEngine) step() {
	e.stepLock.Lock()
	defer e.stepLock.Unlock()

	evt := e.nextEvent()
	if now := e.readNow(); evt.Time() < now {
		log.Panicf(
			"cannot run event in the past, evt %s @ %.10f, now %.10f",
			reflect.TypeOf(evt), evt.Time(), now,
		)
	}
	e.writeNow(evt.Time())

	ctx := HookCtx{Domain: e, Pos: HookPosBeforeEvent, Item: evt}
	e.InvokeHook(ctx)

	_ = evt.Handler().Handle(evt)

	ctx.Pos = HookPosAfterEvent
	e.InvokeHook(ctx)
}

func (e *SerialEngine) noMoreEvent() bool {
	return e.queue.Len() == 0 && e.secondaryQueue.Len() == 0
}

// nextEvent pops the earliest event, preferring the primary queue on ties.
func (e *SerialEngine) nextEvent() Event {
	if e.queue.Len() == 0 {
		return e.secondaryQueue.Pop()
	}

	if e.secondaryQueue.Len() == 0 {
		return e.queue.Pop()
	}

	if e.queue.Peek().Time() <= e.secondaryQueue.Peek().Time() {
		return e.queue.Pop()
	}

	return e.secondaryQueue.Pop()
}

// Pause holds the engine between events until Continue is called.
func (e *SerialEngine) Pause() {
	e.pausedLock.Lock()
	defer e.pausedLock.Unlock()

	if e.paused {
		return
	}

	e.stepLock.Lock()
	e.paused = true
}

// Continue lets a paused engine process events again.
func (e *SerialEngine) Continue() {
	e.pausedLock.Lock()
	defer e.pausedLock.Unlock()

	if !e.paused {
		return
	}

	e.stepLock.Unlock()
	e.paused = false
}

// CurrentTime returns the time of the event being handled.
func (e *SerialEngine) CurrentTime() VTimeInSec {
	return e.readNow()
}

// RegisterSimulationEndHandler registers a handler to run when the
// simulation finishes.
func (e *SerialEngine) RegisterSimulationEndHandler(
	handler SimulationEndHandler,
) {
	e.endHandlers = append(e.endHandlers, handler)
}

// Finished runs all the registered SimulationEndHandlers. Call it after Run
// returns for the last time.
func (e *SerialEngine) Finished() {
	now := e.readNow()
	for _, handler := range e.endHandlers {
		handler.Handle(now)
	}
}
