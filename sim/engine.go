package sim

// A TimeTeller reports the current virtual time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// An EventScheduler accepts events to run at their scheduled time.
type EventScheduler interface {
	Schedule(e Event)
}

// A SimulationEndHandler runs after the last event is handled.
type SimulationEndHandler interface {
	Handle(now VTimeInSec)
}

// An Engine owns the event queue and drives the simulation.
type Engine interface {
	Hookable
	TimeTeller
	EventScheduler

	// Run processes events until no event is left.
	Run() error

	// Pause holds event processing until Continue is called.
	Pause()

	// Continue resumes a paused simulation.
	Continue()

	// RegisterSimulationEndHandler registers a handler to run when the
	// simulation finishes.
	RegisterSimulationEndHandler(handler SimulationEndHandler)

	// Finished invokes all the registered SimulationEndHandlers.
	Finished()
}
