package sim

import (
	"container/heap"
	"container/list"
	"sync"
)

// An EventQueue hands out events in time order.
type EventQueue interface {
	Push(evt Event)
	Pop() Event
	Len() int
	Peek() Event
}

// EventQueueImpl is a thread-safe event queue backed by a binary heap.
type EventQueueImpl struct {
	mu   sync.Mutex
	heap eventHeap
}

// NewEventQueue creates an empty heap-backed event queue.
func NewEventQueue() *EventQueueImpl {
	q := &EventQueueImpl{
		heap: make(eventHeap, 0, 64),
	}
	heap.Init(&q.heap)

	return q
}

// Push adds an event to the queue.
func (q *EventQueueImpl) Push(evt Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	heap.Push(&q.heap, evt)
}

// Pop removes and returns the earliest event in the queue.
func (q *EventQueueImpl) Pop() Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	return heap.Pop(&q.heap).(Event)
}

// Len returns the number of events in the queue.
func (q *EventQueueImpl) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.heap.Len()
}

// Peek returns the earliest event without removing it.
func (q *EventQueueImpl) Peek() Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.heap[0]
}

type eventHeap []Event

func (h eventHeap) Len() int {
	return len(h)
}

func (h eventHeap) Less(i, j int) bool {
	return h[i].Time() < h[j].Time()
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() any {
	last := len(*h) - 1
	evt := (*h)[last]
	*h = (*h)[:last]

	return evt
}

// An InsertionQueue keeps events in a sorted linked list. It beats the heap
// queue when most pushed events land near the back, as tick events do.
type InsertionQueue struct {
	lock   sync.RWMutex
	events *list.List
}

// NewInsertionQueue creates an empty list-backed event queue.
func NewInsertionQueue() *InsertionQueue {
	return &InsertionQueue{
		events: list.New(),
	}
}

// Push inserts an event before the first event with a later time. Events that
// share a time stay in push order.
func (q *InsertionQueue) Push(evt Event) {
	at := q.insertionPoint(evt)

	q.lock.Lock()
	defer q.lock.Unlock()

	if at == nil {
		q.events.PushBack(evt)
	} else {
		q.events.InsertBefore(evt, at)
	}
}

// insertionPoint returns the first queued element that happens strictly after
// evt, or nil when evt belongs at the back.
func (q *InsertionQueue) insertionPoint(evt Event) *list.Element {
	q.lock.RLock()
	defer q.lock.RUnlock()

	for at := q.events.Front(); at != nil; at = at.Next() {
		if at.Value.(Event).Time() > evt.Time() {
			return at
		}
	}

	return nil
}

// Pop removes and returns the earliest event in the queue.
func (q *InsertionQueue) Pop() Event {
	q.lock.Lock()
	defer q.lock.Unlock()

	return q.events.Remove(q.events.Front()).(Event)
}

// Len returns the number of events in the queue.
func (q *InsertionQueue) Len() int {
	q.lock.RLock()
	defer q.lock.RUnlock()

	return q.events.Len()
}

// Peek returns the earliest event without removing it.
func (q *InsertionQueue) Peek() Event {
	q.lock.RLock()
	defer q.lock.RUnlock()

	return q.events.Front().Value.(Event)
}
