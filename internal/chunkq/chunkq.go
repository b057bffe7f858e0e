// Package chunkq implements a FIFO queue, stored as a linked list of
// fixed-size chunks.
package chunkq

// chunkSize is the number of values per node in the linked list.
const chunkSize = 32

// Queue is a chunked linked-list FIFO queue.
//
// Thread Safety: Queue is NOT thread-safe.
// The caller must provide external synchronization.
//
// The zero value is an empty queue, ready to use.
type Queue[T any] struct { // betteralign:ignore
	head   *chunk[T]
	tail   *chunk[T]
	spare  *chunk[T] // at most one exhausted chunk, kept for reuse
	length int
}

// chunk is a fixed-size node in the chunked linked-list.
// It uses readPos/pos cursors for O(1) push/pop without shifting.
type chunk[T any] struct {
	values  [chunkSize]T
	next    *chunk[T]
	readPos int // First unread slot
	pos     int // First unused slot
}

func (q *Queue[T]) newChunk() *chunk[T] {
	if c := q.spare; c != nil {
		q.spare = nil
		return c
	}
	return &chunk[T]{}
}

// returnChunk keeps an exhausted chunk for reuse.
// All slots must have been cleared by Pop.
func (q *Queue[T]) returnChunk(c *chunk[T]) {
	c.pos = 0
	c.readPos = 0
	c.next = nil
	if q.spare == nil {
		q.spare = c
	}
}

// Push adds a value to the back of the queue.
func (q *Queue[T]) Push(value T) {
	if q.tail == nil {
		q.tail = q.newChunk()
		q.head = q.tail
	}

	if q.tail.pos == len(q.tail.values) {
		newTail := q.newChunk()
		q.tail.next = newTail
		q.tail = newTail
	}

	q.tail.values[q.tail.pos] = value
	q.tail.pos++
	q.length++
}

// Pop removes and returns the value at the front of the queue.
//
// Returns false if the queue is empty.
func (q *Queue[T]) Pop() (value T, ok bool) {
	if q.head == nil || q.head.readPos >= q.head.pos {
		return value, false
	}

	value = q.head.values[q.head.readPos]
	// zero out popped slot for GC safety
	var zero T
	q.head.values[q.head.readPos] = zero
	q.head.readPos++
	q.length--

	if q.head.readPos >= q.head.pos {
		if q.head == q.tail {
			q.head.pos = 0
			q.head.readPos = 0
		} else {
			oldHead := q.head
			q.head = q.head.next
			q.returnChunk(oldHead)
		}
	}

	return value, true
}

// Peek returns the value at the front of the queue, without removing it.
func (q *Queue[T]) Peek() (value T, ok bool) {
	if q.head == nil || q.head.readPos >= q.head.pos {
		return value, false
	}
	return q.head.values[q.head.readPos], true
}

// Len returns the number of values in the queue.
func (q *Queue[T]) Len() int {
	return q.length
}
