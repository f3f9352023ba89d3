package tracing

import (
	"sync"
)

// StepCountTracer counts how many times each step name is reached across
// the traced tasks.
type StepCountTracer struct {
	filter TaskFilter

	lock       sync.Mutex
	inflight   map[string]Task
	stepNames  []string
	stepTotals map[string]uint64
	taskTotals map[string]uint64
}

// NewStepCountTracer creates a StepCountTracer that counts the steps of tasks
// accepted by the filter.
func NewStepCountTracer(filter TaskFilter) *StepCountTracer {
	return &StepCountTracer{
		filter:     filter,
		inflight:   make(map[string]Task),
		stepTotals: make(map[string]uint64),
		taskTotals: make(map[string]uint64),
	}
}

// GetStepNames returns the step names seen so far, in first-seen order.
func (t *StepCountTracer) GetStepNames() []string {
	return t.stepNames
}

// GetStepCount returns how many times a step with the given name was
// recorded.
func (t *StepCountTracer) GetStepCount(stepName string) uint64 {
	return t.stepTotals[stepName]
}

// GetTaskCount returns how many distinct tasks reached a step with the given
// name.
func (t *StepCountTracer) GetTaskCount(stepName string) uint64 {
	return t.taskTotals[stepName]
}

// StartTask remembers the task if the filter accepts it.
func (t *StepCountTracer) StartTask(task Task) {
	if !t.filter(task) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	t.inflight[task.ID] = task
}

// StepTask counts the step and, for known tasks, the task that reached it.
func (t *StepCountTracer) StepTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	step := task.Steps[0]

	t.countStep(step)
	t.countTask(task.ID, step)
}

func (t *StepCountTracer) countStep(step TaskStep) {
	if _, seen := t.stepTotals[step.What]; !seen {
		t.stepNames = append(t.stepNames, step.What)
	}

	t.stepTotals[step.What]++
}

func (t *StepCountTracer) countTask(taskID string, step TaskStep) {
	started, ok := t.inflight[taskID]
	if !ok {
		return
	}

	if !taskContainsStep(started, step) {
		t.taskTotals[step.What]++
	}

	started.Steps = append(started.Steps, step)
	t.inflight[taskID] = started
}

func taskContainsStep(task Task, step TaskStep) bool {
	for _, s := range task.Steps {
		if s.What == step.What {
			return true
		}
	}

	return false
}

// EndTask forgets the task.
func (t *StepCountTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	delete(t.inflight, task.ID)
}
