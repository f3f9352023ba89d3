package tracing

import "github.com/chat2snack/snacksim/sim"

// A TaskStep marks a named milestone within a running task.
type TaskStep struct {
	Time sim.VTimeInSec `json:"time"`
	What string         `json:"what"`
}

// A Task is one traced activity of a component, from StartTask to EndTask.
type Task struct {
	ID         string         `json:"id"`
	ParentID   string         `json:"parent_id"`
	Kind       string         `json:"kind"`
	What       string         `json:"what"`
	Where      string         `json:"where"`
	StartTime  sim.VTimeInSec `json:"start_time"`
	EndTime    sim.VTimeInSec `json:"end_time"`
	Steps      []TaskStep     `json:"steps"`
	Detail     any            `json:"-"`
	ParentTask *Task          `json:"-"`
}

// TaskFilter selects the tasks a tracer should count. Returning true keeps
// the task.
type TaskFilter func(t Task) bool
