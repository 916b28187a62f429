// Package fifo is a general-purpose linked-list queue. It has no relation
// to the record store; it ships alongside it as a standalone utility.
package fifo

type node[T any] struct {
	value T
	next  *node[T]
}

// Queue is a first-in-first-out sequence with O(1) Enqueue, Dequeue and
// Peek.
//
// IMPORTANT: Queue does not provide thread safety.
type Queue[T any] struct {
	head *node[T]
	tail *node[T]
	size int
}

func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

func (q *Queue[T]) Len() int {
	return q.size
}

// Enqueue appends v at the tail.
func (q *Queue[T]) Enqueue(v T) {
	n := &node[T]{value: v}
	if q.tail == nil {
		q.head = n
	} else {
		q.tail.next = n
	}
	q.tail = n
	q.size++
}

// Dequeue removes and returns the head, reporting an empty queue through
// the second return.
func (q *Queue[T]) Dequeue() (T, bool) {
	var zero T
	if q.head == nil {
		return zero, false
	}
	n := q.head
	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	q.size--
	return n.value, true
}

// Peek returns the head without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	var zero T
	if q.head == nil {
		return zero, false
	}
	return q.head.value, true
}
