package buffer

import (
	"sync/atomic"
)

// Barrier is a count-down completion barrier. It is created with a count of
// one, and fires once that count reaches zero.
//
// All methods are safe to call on a nil Barrier, which behaves as if it were
// never going to fire (Done and Retain do nothing, Fired returns false).
type Barrier struct {
	fn    func()
	ch    chan struct{}
	count atomic.Int64
	fired atomic.Bool
}

// NewBarrier returns a Barrier with a count of one. The optional fn is called
// exactly once, on the goroutine that releases the last owner.
func NewBarrier(fn func()) *Barrier {
	x := &Barrier{fn: fn, ch: make(chan struct{})}
	x.count.Store(1)
	return x
}

// Retain adds an owner. It panics if the barrier has already fired.
func (x *Barrier) Retain() {
	if x == nil {
		return
	}
	if x.count.Add(1) <= 1 {
		panic(`buffer: barrier retained after firing`)
	}
}

// Done removes an owner, firing the barrier if it was the last.
// It panics if called more times than there were owners.
func (x *Barrier) Done() {
	if x == nil {
		return
	}
	switch n := x.count.Add(-1); {
	case n > 0:
	case n == 0:
		x.fired.Store(true)
		close(x.ch)
		if x.fn != nil {
			x.fn()
		}
	default:
		panic(`buffer: barrier released more times than retained`)
	}
}

// Fired returns true once the barrier has fired.
func (x *Barrier) Fired() bool {
	return x != nil && x.fired.Load()
}

// Pending returns the number of outstanding owners.
func (x *Barrier) Pending() int {
	if x == nil {
		return 0
	}
	return int(x.count.Load())
}

// C returns a channel that is closed when the barrier fires.
// A nil Barrier returns a nil channel.
func (x *Barrier) C() <-chan struct{} {
	if x == nil {
		return nil
	}
	return x.ch
}
