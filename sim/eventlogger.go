package sim

import (
	"fmt"
	"log"
	"reflect"
)

// An EventLogger writes one line per event to a logger, before the event is
// handled.
type EventLogger struct {
	LogHookBase
}

// NewEventLogger creates an EventLogger that writes to the given logger.
func NewEventLogger(logger *log.Logger) *EventLogger {
	return &EventLogger{LogHookBase{logger}}
}

// Func logs the event time, type, and handling component.
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, isEvent := ctx.Item.(Event)
	if !isEvent {
		return
	}

	h.Logger.Print(describeEvent(evt))
}

func describeEvent(evt Event) string {
	line := fmt.Sprintf("%.10f, %s", evt.Time(), reflect.TypeOf(evt))

	if comp, handledByComp := evt.Handler().(Component); handledByComp {
		line += " -> " + comp.Name()
	}

	return line
}
