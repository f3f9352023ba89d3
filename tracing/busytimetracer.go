package tracing

import (
	"container/list"

	"github.com/chat2snack/snacksim/sim"
)

type span struct {
	start, end sim.VTimeInSec
	done       bool
}

// absorb grows the span to cover another span.
func (s *span) absorb(other *span) {
	if other.start < s.start {
		s.start = other.start
	}

	if other.end > s.end {
		s.end = other.end
	}
}

func overlaps(a, b *span) bool {
	if a.start <= b.start && a.end >= b.start {
		return true
	}

	if a.start <= b.end && a.end >= b.end {
		return true
	}

	if a.start >= b.start && a.end <= b.end {
		return true
	}

	return false
}

// BusyTimeTracer measures how long a domain spends with at least one task in
// flight. Time covered by several overlapping tasks counts once. A nil filter
// accepts every task.
type BusyTimeTracer struct {
	timeTeller sim.TimeTeller
	filter     TaskFilter
	inflight   map[string]*list.Element
	spans      *list.List
	busy       sim.VTimeInSec
}

// NewBusyTimeTracer creates a BusyTimeTracer that measures the tasks accepted
// by the filter.
func NewBusyTimeTracer(
	timeTeller sim.TimeTeller,
	filter TaskFilter,
) *BusyTimeTracer {
	return &BusyTimeTracer{
		timeTeller: timeTeller,
		filter:     filter,
		inflight:   make(map[string]*list.Element),
		spans:      list.New(),
	}
}

// BusyTime returns the measured busy time so far.
func (t *BusyTimeTracer) BusyTime() sim.VTimeInSec {
	return t.busy
}

// TerminateAllTasks ends every in-flight task at the given time. Call it when
// the simulation stops with tasks still running.
func (t *BusyTimeTracer) TerminateAllTasks(now sim.VTimeInSec) {
	for e := t.spans.Front(); e != nil; e = e.Next() {
		s := e.Value.(*span)
		if !s.done {
			s.done = true
			s.end = now
		}
	}

	t.collapse(now)
}

// StartTask opens a span for the task if the filter accepts it.
func (t *BusyTimeTracer) StartTask(task Task) {
	task.StartTime = t.timeTeller.CurrentTime()

	if t.filter != nil && !t.filter(task) {
		return
	}

	elem := t.spans.PushBack(&span{start: task.StartTime})
	t.inflight[task.ID] = elem
}

// StepTask does nothing.
func (t *BusyTimeTracer) StepTask(_ Task) {
}

// EndTask closes the task's span and folds finished spans into the busy time.
func (t *BusyTimeTracer) EndTask(task Task) {
	task.EndTime = t.timeTeller.CurrentTime()

	elem, ok := t.inflight[task.ID]
	if !ok {
		return
	}

	s := elem.Value.(*span)
	s.end = task.EndTime
	s.done = true
	delete(t.inflight, task.ID)

	t.collapse(task.EndTime)
}

// collapse retires the finished spans at the front of the list and adds their
// union to the busy time. Spans stay in the list while an earlier task is
// still running, as that task can stretch the union.
func (t *BusyTimeTracer) collapse(now sim.VTimeInSec) {
	earliest, running := t.firstOpenSpanStart()
	if running && earliest < now {
		return
	}

	finished := make([]*span, 0)

	var next *list.Element
	for e := t.spans.Front(); e != nil; e = next {
		next = e.Next()

		s := e.Value.(*span)
		if !s.done {
			break
		}

		if s.end <= now {
			finished = append(finished, s)
			t.spans.Remove(e)
		}
	}

	t.busy += unionTime(finished)
}

func (t *BusyTimeTracer) firstOpenSpanStart() (sim.VTimeInSec, bool) {
	for e := t.spans.Front(); e != nil; e = e.Next() {
		s := e.Value.(*span)
		if !s.done {
			return s.start, true
		}
	}

	return 0, false
}

func unionTime(spans []*span) sim.VTimeInSec {
	total := sim.VTimeInSec(0.0)
	covered := make(map[int]bool)

	for i, base := range spans {
		if covered[i] {
			continue
		}

		covered[i] = true

		merged := span{start: base.start, end: base.end}

		for j, other := range spans {
			if covered[j] {
				continue
			}

			if overlaps(base, other) {
				covered[j] = true
				merged.absorb(other)
			}
		}

		total += merged.end - merged.start
	}

	return total
}
