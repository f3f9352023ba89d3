package sim

// A HookPos identifies one place in the code where hooks fire. Positions are
// compared by pointer.
type HookPos struct {
	Name string
}

// HookPosBeforeEvent fires before an event is handled.
var HookPosBeforeEvent = &HookPos{Name: "BeforeEvent"}

// HookPosAfterEvent fires after an event is handled.
var HookPosAfterEvent = &HookPos{Name: "AfterEvent"}

// A HookCtx describes one hook invocation: where it fired, on what domain,
// and the item involved.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   any
	Detail any
}

// A Hook observes the simulation without altering it.
type Hook interface {
	// Func runs when the hook fires.
	Func(ctx HookCtx)
}

// A Hookable object accepts hooks.
type Hookable interface {
	// AcceptHook registers a hook.
	AcceptHook(hook Hook)

	// NumHooks returns the number of hooks registered.
	NumHooks() int

	// Hooks returns the hooks registered.
	Hooks() []Hook
}

// A NamedHookable is both named and hookable, and can fire its hooks.
type NamedHookable interface {
	Named
	Hookable
	InvokeHook(HookCtx)
}

// HookableBase implements hook registration for embedding.
type HookableBase struct {
	hooks []Hook
}

// NewHookableBase creates an empty HookableBase.
func NewHookableBase() *HookableBase {
	return &HookableBase{}
}

// AcceptHook registers a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.hooks = append(h.hooks, hook)
}

// NumHooks returns the number of hooks registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// Hooks returns the hooks registered.
func (h *HookableBase) Hooks() []Hook {
	return h.hooks
}

// InvokeHook fires all the registered hooks in registration order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}
