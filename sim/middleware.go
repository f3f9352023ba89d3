package sim

// A Middleware implements one slice of a component's per-cycle behavior.
type Middleware interface {
	// Tick runs one cycle of the middleware. It returns true if any state
	// changed.
	Tick() bool
}

// MiddlewareHolder keeps the ordered list of middleware of a component.
type MiddlewareHolder struct {
	middlewares []Middleware
}

// AddMiddleware appends a middleware to the holder.
func (h *MiddlewareHolder) AddMiddleware(m Middleware) {
	h.middlewares = append(h.middlewares, m)
}

// Middlewares returns the middleware in registration order.
func (h *MiddlewareHolder) Middlewares() []Middleware {
	return h.middlewares
}

// Tick runs one cycle of every middleware. It returns true if any of them
// made progress.
func (h *MiddlewareHolder) Tick() bool {
	progress := false

	for _, m := range h.middlewares {
		if m.Tick() {
			progress = true
		}
	}

	return progress
}
