package buffer

import (
	"sync"

	"github.com/joeycumines/go-dispatchflow/executor"
	"github.com/joeycumines/go-dispatchflow/internal/chunkq"
)

type (
	// Pool is a bounded pool of buffers, each holding a T.
	// Instances must be initialized using the NewPool factory.
	Pool[T any] struct {
		slots   []Buffer[T]
		free    []int // stack of free slot indices
		waiters chunkq.Queue[executor.Notifiable]
		peak    int
		mu      sync.Mutex
	}

	// Buffer is a slot of a Pool. It has exactly one owner at a time, which
	// must eventually call Unref, exactly once.
	Buffer[T any] struct {
		data    T
		pool    *Pool[T]
		barrier *Barrier
		index   int
		inUse   bool
	}
)

// NewPool allocates a pool with the given number of slots, which must be
// positive.
func NewPool[T any](capacity int) *Pool[T] {
	if capacity <= 0 {
		panic(`buffer: capacity must be positive`)
	}
	x := &Pool[T]{
		slots: make([]Buffer[T], capacity),
		free:  make([]int, capacity),
	}
	for i := range x.slots {
		x.slots[i].pool = x
		x.slots[i].index = i
		// lowest index is allocated first
		x.free[i] = capacity - 1 - i
	}
	return x
}

// Alloc takes a free buffer from the pool, returning nil if there are none.
// The returned buffer holds the zero value of T, and has no barrier.
//
// If the pool is exhausted, and waiter is non-nil, it will be notified on the
// next release. Another allocation may win that buffer, so the waiter must
// call Alloc again, which may re-register it.
func (x *Pool[T]) Alloc(waiter executor.Notifiable) *Buffer[T] {
	x.mu.Lock()
	defer x.mu.Unlock()

	n := len(x.free)
	if n == 0 {
		if waiter != nil {
			x.waiters.Push(waiter)
		}
		return nil
	}

	b := &x.slots[x.free[n-1]]
	x.free = x.free[:n-1]
	b.inUse = true

	if used := len(x.slots) - len(x.free); used > x.peak {
		x.peak = used
	}

	return b
}

// Cap returns the total number of slots.
func (x *Pool[T]) Cap() int { return len(x.slots) }

// Free returns the number of slots available for allocation.
func (x *Pool[T]) Free() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.free)
}

// Peak returns the maximum number of slots that have been in use at once.
func (x *Pool[T]) Peak() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.peak
}

// Waiting returns the number of registered waiters.
func (x *Pool[T]) Waiting() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.waiters.Len()
}

func (x *Pool[T]) release(b *Buffer[T]) {
	var zero T

	x.mu.Lock()
	if !b.inUse {
		x.mu.Unlock()
		panic(`buffer: buffer released twice`)
	}
	b.inUse = false
	b.data = zero
	barrier := b.barrier
	b.barrier = nil
	x.free = append(x.free, b.index)

	var waiters []executor.Notifiable
	if n := x.waiters.Len(); n != 0 {
		waiters = make([]executor.Notifiable, 0, n)
		for {
			w, ok := x.waiters.Pop()
			if !ok {
				break
			}
			waiters = append(waiters, w)
		}
	}
	x.mu.Unlock()

	barrier.Done()

	for _, w := range waiters {
		w.Notify()
	}
}

// Data returns a pointer to the payload. It must not be retained past Unref.
func (x *Buffer[T]) Data() *T { return &x.data }

// Pool returns the pool the buffer belongs to.
func (x *Buffer[T]) Pool() *Pool[T] { return x.pool }

// Barrier returns the completion barrier, which may be nil.
func (x *Buffer[T]) Barrier() *Barrier { return x.barrier }

// SetBarrier links the buffer to a completion barrier, which Unref will
// signal. It does not call Barrier.Retain.
func (x *Buffer[T]) SetBarrier(barrier *Barrier) { x.barrier = barrier }

// Unref releases the buffer back to its pool, zeroing the payload and
// signaling the completion barrier (if any). It panics if the buffer was
// already released.
func (x *Buffer[T]) Unref() { x.pool.release(x) }
