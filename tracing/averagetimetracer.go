package tracing

import (
	"sync"

	"github.com/chat2snack/snacksim/sim"
)

// AverageTimeTracer reports the mean duration of the tasks that pass its
// filter. Overlapping tasks each contribute their full duration.
type AverageTimeTracer struct {
	timeTeller sim.TimeTeller
	filter     TaskFilter

	lock     sync.Mutex
	average  sim.VTimeInSec
	count    uint64
	inflight map[string]Task
}

// NewAverageTimeTracer creates an AverageTimeTracer that averages the tasks
// accepted by the filter.
func NewAverageTimeTracer(
	timeTeller sim.TimeTeller,
	filter TaskFilter,
) *AverageTimeTracer {
	return &AverageTimeTracer{
		timeTeller: timeTeller,
		filter:     filter,
		inflight:   make(map[string]Task),
	}
}

// AverageTime returns the mean duration of all completed tasks.
func (t *AverageTimeTracer) AverageTime() sim.VTimeInSec {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.average
}

// TotalCount returns the number of completed tasks.
func (t *AverageTimeTracer) TotalCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.count
}

// StartTask stamps the task start time and remembers the task if the filter
// accepts it.
func (t *AverageTimeTracer) StartTask(task Task) {
	task.StartTime = t.timeTeller.CurrentTime()

	if !t.filter(task) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	t.inflight[task.ID] = task
}

// StepTask does nothing.
func (t *AverageTimeTracer) StepTask(_ Task) {
}

// EndTask folds the finished task's duration into the running mean. Tasks the
// filter rejected at start are ignored.
func (t *AverageTimeTracer) EndTask(task Task) {
	task.EndTime = t.timeTeller.CurrentTime()

	t.lock.Lock()
	defer t.lock.Unlock()

	started, ok := t.inflight[task.ID]
	if !ok {
		return
	}

	duration := task.EndTime - started.StartTime
	t.average = sim.VTimeInSec(
		(float64(t.average)*float64(t.count) + float64(duration)) /
			float64(t.count+1))
	t.count++
	delete(t.inflight, task.ID)
}
