package tracing

import (
	"sync"

	"github.com/tebeka/atexit"

	"github.com/chat2snack/snacksim/sim"
)

// TracerBackend can write tasks to a persistent storage.
type TracerBackend interface {
	// Init prepares the storage for writing.
	Init()

	// Write writes a task to the storage. Writing may be buffered.
	Write(task Task)

	// Flush flushes all the buffered tasks to the storage.
	Flush()
}

// DBTracer is a tracer that can store tasks into a database. DBTracers can
// connect with different backends so that the tasks can be stored in
// different types of storage (e.g., CSV files, SQLite databases).
type DBTracer struct {
	mu         sync.Mutex
	timeTeller sim.TimeTeller
	backend    TracerBackend

	startTime, endTime sim.VTimeInSec

	inflight map[string]Task
}

// NewDBTracer creates a new DBTracer.
func NewDBTracer(
	timeTeller sim.TimeTeller,
	backend TracerBackend,
) *DBTracer {
	backend.Init()

	t := &DBTracer{
		timeTeller: timeTeller,
		backend:    backend,
		inflight:   make(map[string]Task),
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// SetTimeRange sets the time range of the tracer. Only tasks that overlap
// the range are recorded.
func (t *DBTracer) SetTimeRange(startTime, endTime sim.VTimeInSec) {
	t.startTime = startTime
	t.endTime = endTime
}

func taskMustBeComplete(task Task) {
	switch {
	case task.ID == "":
		panic("task ID must be set")
	case task.Kind == "":
		panic("task kind must be set")
	case task.What == "":
		panic("task what must be set")
	case task.Where == "":
		panic("task where must be set")
	}
}

// StartTask marks the start of a task.
func (t *DBTracer) StartTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	taskMustBeComplete(task)

	task.StartTime = t.timeTeller.CurrentTime()
	if t.endTime > 0 && task.StartTime > t.endTime {
		return
	}

	t.inflight[task.ID] = task
}

// StepTask marks a step of a task.
func (t *DBTracer) StepTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	started, ok := t.inflight[task.ID]
	if !ok {
		return
	}

	step := task.Steps[0]
	step.Time = t.timeTeller.CurrentTime()

	started.Steps = append(started.Steps, step)
	t.inflight[task.ID] = started
}

// EndTask marks the end of a task.
func (t *DBTracer) EndTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	endTime := t.timeTeller.CurrentTime()
	if t.startTime > 0 && endTime < t.startTime {
		delete(t.inflight, task.ID)
		return
	}

	started, ok := t.inflight[task.ID]
	if !ok {
		return
	}
	delete(t.inflight, task.ID)

	started.EndTime = endTime
	t.backend.Write(started)
}

// Terminate drops the tasks that are still in flight and flushes the
// completed ones.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.inflight = nil
	t.backend.Flush()
}
