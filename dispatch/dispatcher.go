package dispatch

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-dispatchflow/executor"
	"github.com/joeycumines/go-dispatchflow/internal/chunkq"
	"github.com/joeycumines/logiface"
	"golang.org/x/exp/constraints"
)

type (
	// Binding adapts a message type M, and handler type H, for a Dispatcher.
	// Methods are called from dispatch instances, one state at a time, and
	// must not block.
	Binding[M any, ID constraints.Unsigned, H any] interface {
		// ID returns the key of msg, that handler filters are matched against.
		ID(msg M) ID

		// Clone attempts to allocate a copy of msg, linked to the completion
		// barrier of msg, and deliver it to handler. If no copy can be
		// allocated, it must return false, and arrange for waiter to be
		// notified once it may be retried.
		Clone(msg M, handler H, priority int, waiter executor.Notifiable) bool

		// Transfer delivers msg itself to handler, passing on ownership.
		Transfer(msg M, handler H, priority int)

		// Release disposes of msg, which matched no handler.
		Release(msg M)
	}

	// Dispatcher delivers each message it is sent to every handler with a
	// matching filter. Instances must be initialized using the New factory.
	Dispatcher[M any, ID constraints.Unsigned, H comparable] struct {
		// betteralign:ignore

		binding  Binding[M, ID, H]
		logger   *logiface.Logger[logiface.Event]
		limiter  *catrate.Limiter
		name     string
		negate   bool
		registry registry[ID, H]

		idle    []*instance[M, ID, H] // guarded by mu, a stack
		queued  []chunkq.Queue[M]     // guarded by mu, one per priority
		nqueued int                   // guarded by mu
		active  int                   // guarded by mu
		closed  bool                  // guarded by mu
		mu      sync.Mutex

		stats struct {
			dispatched   atomic.Uint64
			clones       atomic.Uint64
			transfers    atomic.Uint64
			unmatched    atomic.Uint64
			backpressure atomic.Uint64
		}
	}

	// Stats are counters, for a Dispatcher.
	Stats struct {
		// Dispatched is the number of messages that have completed dispatch.
		Dispatched uint64
		// Clones is the number of clones delivered.
		Clones uint64
		// Transfers is the number of messages delivered by transfer.
		Transfers uint64
		// Unmatched is the number of messages that matched no handler.
		Unmatched uint64
		// Backpressure is the number of clone allocation failures.
		Backpressure uint64
	}

	// instance is a single dispatch state machine.
	instance[M any, ID constraints.Unsigned, H comparable] struct {
		executor.Flow
		d *Dispatcher[M, ID, H]

		msg     M
		hasMsg  bool // guarded by d.mu
		started bool // guarded by d.mu

		// cursor
		key        ID
		index      int
		pending    H // receives the next copy
		current    H // most recent match, receives a copy after pending
		hasPending bool
	}
)

// New initializes a new Dispatcher, with instances that run on exec.
// It panics if exec or binding are nil, or if the backpressure log rates
// are invalid (see catrate.NewLimiter).
func New[M any, ID constraints.Unsigned, H comparable](exec *executor.Executor, binding Binding[M, ID, H], opts ...Option) (*Dispatcher[M, ID, H], error) {
	if exec == nil {
		panic(`dispatch: nil executor`)
	}
	if binding == nil {
		panic(`dispatch: nil binding`)
	}

	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	x := &Dispatcher[M, ID, H]{
		binding: binding,
		logger:  cfg.logger,
		name:    cfg.name,
		negate:  cfg.negate,
		idle:    make([]*instance[M, ID, H], cfg.concurrency),
		queued:  make([]chunkq.Queue[M], exec.Priorities()),
	}
	if len(cfg.logRates) != 0 {
		x.limiter = catrate.NewLimiter(cfg.logRates)
	}

	for i := 0; i < cfg.concurrency; i++ {
		inst := &instance[M, ID, H]{d: x}
		inst.Init(exec, x.name+`.`+strconv.Itoa(i))
		// the first instance is used first
		x.idle[cfg.concurrency-1-i] = inst
	}

	x.logger.Debug().
		Str(`dispatcher`, x.name).
		Int(`concurrency`, cfg.concurrency).
		Bool(`negate`, x.negate).
		Log(`dispatcher created`)

	return x, nil
}

// RegisterHandler adds a filter, delivering messages with a key that matches
// id, under mask, to handler. A mask of zero matches every key. Duplicate
// filters are permitted, and each receives its own copy.
func (x *Dispatcher[M, ID, H]) RegisterHandler(handler H, id, mask ID) {
	x.registry.register(handler, id, mask)
}

// UnregisterHandler removes the first filter equal to the given one. It
// panics if there is no such filter.
func (x *Dispatcher[M, ID, H]) UnregisterHandler(handler H, id, mask ID) {
	x.registry.unregister(handler, id, mask)
}

// UnregisterHandlerAll removes every filter for handler, returning the
// number removed.
func (x *Dispatcher[M, ID, H]) UnregisterHandlerAll(handler H) int {
	return x.registry.unregisterAll(handler)
}

// Size returns the number of registered filters.
func (x *Dispatcher[M, ID, H]) Size() int {
	return x.registry.size()
}

// Name returns the configured name. Dispatch instances are named after it,
// suffixed by their index, e.g. `dispatch.0`.
func (x *Dispatcher[M, ID, H]) Name() string {
	return x.name
}

// Send enqueues msg for dispatch at the given priority, which is clamped to
// the range supported by the executor. If no dispatch instance is available,
// msg waits, first in first out, per priority. It panics after Close.
func (x *Dispatcher[M, ID, H]) Send(msg M, priority int) {
	priority = clampPriority(priority, len(x.queued))

	x.mu.Lock()
	if x.closed {
		x.mu.Unlock()
		panic(`dispatch: send after close`)
	}

	n := len(x.idle)
	if n == 0 {
		x.queued[priority].Push(msg)
		x.nqueued++
		x.mu.Unlock()
		return
	}

	inst := x.idle[n-1]
	x.idle[n-1] = nil
	x.idle = x.idle[:n-1]
	x.active++
	inst.msg = msg
	inst.hasMsg = true
	started := inst.started
	inst.started = true
	x.mu.Unlock()

	if !started {
		inst.Start(inst.entry, priority)
		return
	}
	inst.SetPriority(priority)
	inst.Notify()
}

// Idle returns true if no message is being dispatched, or waiting to be.
func (x *Dispatcher[M, ID, H]) Idle() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.active == 0 && x.nqueued == 0
}

// Close marks the dispatcher as closed, after which Send panics. It panics
// if any message is being dispatched, or waiting to be. Subsequent calls
// have no effect.
func (x *Dispatcher[M, ID, H]) Close() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return
	}
	if x.active != 0 || x.nqueued != 0 {
		panic(`dispatch: close while dispatch in flight`)
	}
	x.closed = true
	x.logger.Debug().
		Str(`dispatcher`, x.name).
		Log(`dispatcher closed`)
}

// Stats returns a snapshot of the dispatcher's counters.
func (x *Dispatcher[M, ID, H]) Stats() Stats {
	return Stats{
		Dispatched:   x.stats.dispatched.Load(),
		Clones:       x.stats.clones.Load(),
		Transfers:    x.stats.transfers.Load(),
		Unmatched:    x.stats.unmatched.Load(),
		Backpressure: x.stats.backpressure.Load(),
	}
}

// popQueuedLocked takes the next waiting message, highest priority first.
func (x *Dispatcher[M, ID, H]) popQueuedLocked() (msg M, priority int, ok bool) {
	if x.nqueued == 0 {
		return msg, 0, false
	}
	for i := range x.queued {
		if msg, ok = x.queued[i].Pop(); ok {
			x.nqueued--
			return msg, i, true
		}
	}
	panic(`dispatch: queued count out of sync`)
}

func clampPriority(priority, n int) int {
	if priority < 0 {
		return 0
	}
	if priority >= n {
		return n - 1
	}
	return priority
}

// await idles until Send assigns a message.
func (x *instance[M, ID, H]) await() executor.Action {
	x.d.mu.Lock()
	ok := x.hasMsg
	x.d.mu.Unlock()
	if !ok {
		return executor.WaitFor(x.await)
	}
	return executor.Call(x.entry)
}

func (x *instance[M, ID, H]) entry() executor.Action {
	x.key = x.d.binding.ID(x.msg)
	x.index = 0
	x.hasPending = false
	return executor.Call(x.iterate)
}

func (x *instance[M, ID, H]) iterate() executor.Action {
	index, handler, ok := x.d.registry.next(x.index, x.key, x.d.negate)
	x.index = index
	if !ok {
		return executor.Call(x.iterationDone)
	}
	if !x.hasPending {
		x.pending = handler
		x.hasPending = true
		x.index++
		return executor.Call(x.iterate)
	}
	x.current = handler
	return executor.Call(x.allocateClone)
}

func (x *instance[M, ID, H]) allocateClone() executor.Action {
	if !x.d.binding.Clone(x.msg, x.pending, x.Priority(), x) {
		x.d.stats.backpressure.Add(1)
		if x.d.logger != nil {
			if _, ok := x.d.limiter.Allow(x.pending); ok {
				x.d.logger.Warning().
					Str(`dispatcher`, x.d.name).
					Str(`flow`, x.Name()).
					Uint64(`key`, uint64(x.key)).
					Log(`dispatch waiting for clone allocation`)
			}
		}
		return executor.WaitFor(x.allocateClone)
	}
	x.d.stats.clones.Add(1)
	return executor.Call(x.cloneDone)
}

func (x *instance[M, ID, H]) cloneDone() executor.Action {
	x.pending = x.current
	var zero H
	x.current = zero
	x.index++
	return executor.Yield(x.iterate)
}

func (x *instance[M, ID, H]) iterationDone() executor.Action {
	d := x.d
	if x.hasPending {
		d.binding.Transfer(x.msg, x.pending, x.Priority())
		d.stats.transfers.Add(1)
	} else {
		d.binding.Release(x.msg)
		d.stats.unmatched.Add(1)
	}
	d.stats.dispatched.Add(1)

	d.logger.Trace().
		Str(`dispatcher`, d.name).
		Uint64(`key`, uint64(x.key)).
		Bool(`matched`, x.hasPending).
		Log(`dispatch done`)

	var zeroM M
	var zeroH H
	x.msg = zeroM
	x.pending = zeroH
	x.hasPending = false

	d.mu.Lock()
	if msg, priority, ok := d.popQueuedLocked(); ok {
		x.msg = msg
		d.mu.Unlock()
		x.SetPriority(priority)
		return executor.Yield(x.entry)
	}
	x.hasMsg = false
	d.active--
	d.idle = append(d.idle, x)
	d.mu.Unlock()

	return executor.WaitFor(x.await)
}
