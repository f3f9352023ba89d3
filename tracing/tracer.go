package tracing

// A Tracer observes task lifetimes.
type Tracer interface {
	StartTask(task Task)
	StepTask(task Task)
	EndTask(task Task)
}
