package sim

import "log"

// HookPosBufPush marks when an element is pushed into a buffer.
var HookPosBufPush = &HookPos{Name: "Buffer Push"}

// HookPosBufPop marks when an element is popped from a buffer.
var HookPosBufPop = &HookPos{Name: "Buffer Pop"}

// A Buffer is a bounded FIFO queue with push/pop hooks.
type Buffer interface {
	Named
	Hookable

	CanPush() bool
	Push(e any)
	Pop() any
	Peek() any
	Capacity() int
	Size() int

	// Clear removes all elements in the buffer.
	Clear()
}

// NewBuffer creates a buffer with the given name and capacity.
func NewBuffer(name string, capacity int) Buffer {
	NameMustBeValid(name)

	b := new(boundedBuffer)
	b.name = name
	b.capacity = capacity

	return b
}

type boundedBuffer struct {
	HookableBase

	name     string
	capacity int
	elements []any
}

func (b *boundedBuffer) Name() string {
	return b.name
}

func (b *boundedBuffer) CanPush() bool {
	return len(b.elements) < b.capacity
}

// Push appends an element. Pushing into a full buffer panics; callers must
// check CanPush first.
func (b *boundedBuffer) Push(e any) {
	if !b.CanPush() {
		log.Panic("buffer overflow")
	}

	b.elements = append(b.elements, e)
	b.fireHook(HookPosBufPush, e)
}

// Pop removes and returns the oldest element, or nil when empty.
func (b *boundedBuffer) Pop() any {
	if len(b.elements) == 0 {
		return nil
	}

	e := b.elements[0]
	b.elements = b.elements[1:]
	b.fireHook(HookPosBufPop, e)

	return e
}

// Peek returns the oldest element without removing it, or nil when empty.
func (b *boundedBuffer) Peek() any {
	if len(b.elements) == 0 {
		return nil
	}

	return b.elements[0]
}

func (b *boundedBuffer) Capacity() int {
	return b.capacity
}

func (b *boundedBuffer) Size() int {
	return len(b.elements)
}

func (b *boundedBuffer) Clear() {
	b.elements = nil
}

func (b *boundedBuffer) fireHook(pos *HookPos, e any) {
	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(HookCtx{
		Domain: b,
		Pos:    pos,
		Item:   e,
	})
}
