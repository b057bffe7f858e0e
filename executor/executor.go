package executor

import (
	"context"
	"sync"
	"sync/atomic"

	eventloop "github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/go-dispatchflow/internal/chunkq"
	"github.com/joeycumines/logiface"
)

type (
	// Executor runs flows, one state at a time, in priority order.
	// Instances must be initialized using the New factory.
	Executor struct {
		// betteralign:ignore

		loop     *eventloop.Loop                  // configurable
		observer Observer                         // configurable
		logger   *logiface.Logger[logiface.Event] // configurable

		queues  []chunkq.Queue[*Flow] // guarded by mu
		metrics Metrics               // guarded by mu
		queued  int                   // guarded by mu

		wakeCh    chan struct{}
		loopBatch int

		mu    sync.Mutex
		runMu sync.Mutex // serializes stepping

		running   atomic.Bool
		scheduled atomic.Bool // a drain task is pending on loop
	}

	// Observer is notified around each step of a flow, e.g. to attribute
	// time to the running flow. Both methods are called on the goroutine
	// draining the executor.
	Observer interface {
		StepBegin(name string)
		StepEnd()
	}
)

// New initializes a new Executor.
func New(opts ...Option) (*Executor, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	x := &Executor{
		loop:      cfg.loop,
		observer:  cfg.observer,
		logger:    cfg.logger,
		queues:    make([]chunkq.Queue[*Flow], cfg.priorities),
		wakeCh:    make(chan struct{}, 1),
		loopBatch: cfg.loopBatch,
	}
	x.metrics.Queued = make([]int, cfg.priorities)

	x.logger.Debug().
		Int(`priorities`, cfg.priorities).
		Bool(`loop`, cfg.loop != nil).
		Log(`executor created`)

	return x, nil
}

// Priorities returns the number of priority run queues.
func (x *Executor) Priorities() int {
	return len(x.queues)
}

// Logger returns the configured logger, which may be nil.
func (x *Executor) Logger() *logiface.Logger[logiface.Event] {
	return x.logger
}

// Run drains the executor whenever work is enqueued, blocking until ctx is
// canceled, which is the only way it returns (other than errors on start).
//
// Run must not be used if the executor is driven by an event loop.
func (x *Executor) Run(ctx context.Context) error {
	if x.loop != nil {
		return ErrLoopAttached
	}
	if !x.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer x.running.Store(false)

	for {
		x.Drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-x.wakeCh:
		}
	}
}

// Drain runs steps until no flow is runnable, returning the number of steps
// that were run. It must not be called from within a state.
func (x *Executor) Drain() (n int) {
	for x.RunOnce() {
		n++
	}
	return n
}

// RunOnce runs a single step, of the first flow on the highest priority
// non-empty run queue, returning false if there was no runnable flow.
// It must not be called from within a state.
func (x *Executor) RunOnce() bool {
	x.runMu.Lock()
	defer x.runMu.Unlock()

	x.mu.Lock()
	f := x.dequeueLocked()
	x.mu.Unlock()
	if f == nil {
		return false
	}

	x.step(f)
	return true
}

// step runs states of f until one returns an action other than Call.
func (x *Executor) step(f *Flow) {
	if x.observer != nil {
		x.observer.StepBegin(f.name)
		defer x.observer.StepEnd()
	}

	var states uint64
	for {
		states++
		action := f.state()
		if action.kind == actionCall {
			f.state = action.next
			continue
		}

		x.mu.Lock()
		x.metrics.States += states
		switch action.kind {
		case actionYield:
			f.state = action.next
			x.metrics.Yields++
			x.enqueueLocked(f)
			x.mu.Unlock()
			x.wake()

		case actionWait:
			f.state = action.next
			x.metrics.Waits++
			if f.notified {
				f.notified = false
				x.enqueueLocked(f)
				x.mu.Unlock()
				x.wake()
			} else {
				f.status = StatusWaiting
				x.mu.Unlock()
			}

		default:
			f.state = nil
			f.status = StatusIdle
			f.notified = false
			x.metrics.Exits++
			x.mu.Unlock()
		}
		return
	}
}

func (x *Executor) clampPriority(priority int) int {
	if priority < 0 {
		return 0
	}
	if priority >= len(x.queues) {
		return len(x.queues) - 1
	}
	return priority
}

// enqueueLocked must be called with mu held, and be followed by wake, after
// releasing mu.
func (x *Executor) enqueueLocked(f *Flow) {
	f.status = StatusQueued
	x.queues[f.priority].Push(f)
	x.queued++
	x.metrics.Queued[f.priority]++
	if x.queued > x.metrics.MaxQueued {
		x.metrics.MaxQueued = x.queued
	}
}

func (x *Executor) dequeueLocked() *Flow {
	if x.queued == 0 {
		return nil
	}
	for i := range x.queues {
		if f, ok := x.queues[i].Pop(); ok {
			x.queued--
			x.metrics.Queued[i]--
			x.metrics.Runs++
			f.status = StatusRunning
			return f
		}
	}
	panic(`executor: queued count out of sync`)
}

func (x *Executor) hasWork() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.queued != 0
}

// wake ensures whatever drives the executor will run it.
func (x *Executor) wake() {
	if x.loop == nil {
		select {
		case x.wakeCh <- struct{}{}:
		default:
		}
		return
	}

	if !x.scheduled.CompareAndSwap(false, true) {
		return
	}
	if err := x.loop.Submit(x.drainLoopBatch); err != nil {
		x.scheduled.Store(false)
		x.logger.Err().
			Err(err).
			Log(`executor failed to submit to event loop`)
	}
}

// drainLoopBatch runs on the event loop.
func (x *Executor) drainLoopBatch() {
	x.scheduled.Store(false)
	for i := 0; i < x.loopBatch; i++ {
		if !x.RunOnce() {
			return
		}
	}
	if x.hasWork() {
		x.wake()
	}
}
