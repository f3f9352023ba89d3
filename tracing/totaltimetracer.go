package tracing

import (
	"sync"

	"github.com/chat2snack/snacksim/sim"
)

// TotalTimeTracer sums the durations of the tasks that pass its filter.
// Overlapping tasks each contribute their full duration.
type TotalTimeTracer struct {
	timeTeller sim.TimeTeller
	filter     TaskFilter

	lock     sync.Mutex
	total    sim.VTimeInSec
	inflight map[string]Task
}

// NewTotalTimeTracer creates a TotalTimeTracer that counts the tasks accepted
// by the filter.
func NewTotalTimeTracer(
	timeTeller sim.TimeTeller,
	filter TaskFilter,
) *TotalTimeTracer {
	return &TotalTimeTracer{
		timeTeller: timeTeller,
		filter:     filter,
		inflight:   make(map[string]Task),
	}
}

// TotalTime returns the summed duration of all completed tasks.
func (t *TotalTimeTracer) TotalTime() sim.VTimeInSec {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.total
}

// StartTask stamps the task start time and remembers the task if the filter
// accepts it.
func (t *TotalTimeTracer) StartTask(task Task) {
	task.StartTime = t.timeTeller.CurrentTime()

	if !t.filter(task) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	t.inflight[task.ID] = task
}

// StepTask does nothing.
func (t *TotalTimeTracer) StepTask(_ Task) {
}

// EndTask adds the finished task's duration to the total. Tasks the filter
// rejected at start are ignored.
func (t *TotalTimeTracer) EndTask(task Task) {
	task.EndTime = t.timeTeller.CurrentTime()

	t.lock.Lock()
	defer t.lock.Unlock()

	started, ok := t.inflight[task.ID]
	if !ok {
		return
	}

	t.total += task.EndTime - started.StartTime
	delete(t.inflight, task.ID)
}
