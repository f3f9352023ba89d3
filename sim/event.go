package sim

// VTimeInSec is virtual time, in seconds.
type VTimeInSec float64

// An Event is something that happens at a point in virtual time.
type Event interface {
	// Time returns when the event happens.
	Time() VTimeInSec

	// Handler returns the handler the event is dispatched to.
	Handler() Handler

	// IsSecondary tells if the event is a secondary event. Secondary events
	// run after all the primary events of the same time.
	IsSecondary() bool
}

// EventBase carries the fields shared by all events. Concrete events embed
// it and add their payload.
type EventBase struct {
	ID        string
	time      VTimeInSec
	handler   Handler
	secondary bool
}

// NewEventBase creates an EventBase for the given time and handler.
func NewEventBase(t VTimeInSec, handler Handler) *EventBase {
	return &EventBase{
		ID:      GetIDGenerator().Generate(),
		time:    t,
		handler: handler,
	}
}

// Time returns when the event happens.
func (e EventBase) Time() VTimeInSec {
	return e.time
}

// Handler returns the handler the event is dispatched to.
func (e EventBase) Handler() Handler {
	return e.handler
}

// IsSecondary returns true if the event is a secondary event.
func (e EventBase) IsSecondary() bool {
	return e.secondary
}

// A Handler handles events.
//
// An event belongs to one handler: only that handler schedules it, and
// handling it only mutates that handler's state. The scenario kick-start is
// the one exception, scheduling the first event of each component.
type Handler interface {
	Handle(e Event) error
}
