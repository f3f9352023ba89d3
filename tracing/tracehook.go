package tracing

import (
	"fmt"
	"reflect"

	"github.com/chat2snack/snacksim/sim"
)

// CollectTrace attaches a tracer to a hookable domain. Attaching the same
// tracer to a domain twice panics.
func CollectTrace(domain sim.NamedHookable, tracer Tracer) {
	for _, h := range domain.Hooks() {
		attached, ok := h.(*taskHook)
		if ok && attached.tracer == tracer {
			panic(fmt.Sprintf(
				"domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	domain.AcceptHook(&taskHook{tracer: tracer})
}

// A taskHook forwards task hook invocations to a tracer.
type taskHook struct {
	tracer Tracer
}

func (h *taskHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case HookPosTaskStart:
		h.tracer.StartTask(ctx.Item.(Task))
	case HookPosTaskStep:
		h.tracer.StepTask(ctx.Item.(Task))
	case HookPosTaskEnd:
		h.tracer.EndTask(ctx.Item.(Task))
	}
}
