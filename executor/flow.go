package executor

type (
	// State is a single state of a Flow. It must not block.
	State func() Action

	// Action is returned by each State, to indicate what happens next.
	// Use Call, Yield, WaitFor, or Exit to construct it.
	Action struct {
		next State
		kind actionKind
	}

	actionKind uint8

	// Notifiable is implemented by anything that can be woken up, once a
	// resource it was waiting for becomes available.
	Notifiable interface {
		Notify()
	}

	// Flow is a cooperative state machine, run by an Executor.
	//
	// Flow is intended to be embedded. It must be initialized with Init, and
	// must not be copied after first use.
	Flow struct {
		executor *Executor
		state    State
		name     string
		priority int
		status   FlowStatus
		notified bool
	}
)

const (
	actionExit actionKind = iota
	actionCall
	actionYield
	actionWait
)

var _ Notifiable = (*Flow)(nil)

// Call continues with next, immediately, within the same step.
func Call(next State) Action {
	return Action{kind: actionCall, next: next}
}

// Yield re-enqueues the flow, continuing with next once it is dequeued.
// Other runnable flows may be stepped in the meantime.
func Yield(next State) Action {
	return Action{kind: actionYield, next: next}
}

// WaitFor suspends the flow until Flow.Notify is called, then continues with
// next. A notification that arrives while the current state is still running
// is not lost. Resumption may be spurious: next must re-check whatever
// condition it was waiting for.
func WaitFor(next State) Action {
	return Action{kind: actionWait, next: next}
}

// Exit terminates the flow, returning it to StatusIdle.
func Exit() Action {
	return Action{kind: actionExit}
}

// Init binds the flow to an executor. The name is used as the key reported
// to any Observer, and in logs.
func (x *Flow) Init(executor *Executor, name string) {
	if executor == nil {
		panic(`executor: nil executor`)
	}
	if x.executor != nil {
		panic(`executor: flow already initialized`)
	}
	x.executor = executor
	x.name = name
}

// Name returns the name the flow was initialized with.
func (x *Flow) Name() string { return x.name }

// Executor returns the executor the flow was initialized with.
func (x *Flow) Executor() *Executor { return x.executor }

// Start enqueues an idle flow, at the given priority, to run entry.
// It panics if the flow is not idle.
func (x *Flow) Start(entry State, priority int) {
	if x.executor == nil {
		panic(`executor: flow not initialized`)
	}
	if entry == nil {
		panic(`executor: nil entry state`)
	}
	e := x.executor
	e.mu.Lock()
	if x.status != StatusIdle {
		status := x.status
		e.mu.Unlock()
		panic(`executor: start of flow ` + x.name + ` in status ` + status.String())
	}
	x.state = entry
	x.priority = e.clampPriority(priority)
	x.notified = false
	e.enqueueLocked(x)
	e.mu.Unlock()
	e.wake()
}

// Notify resumes a flow suspended by WaitFor. Calling Notify on a flow that
// is running, or queued, records the notification, so a subsequent WaitFor
// resumes immediately. Notifying an idle flow has no effect.
func (x *Flow) Notify() {
	e := x.executor
	if e == nil {
		return
	}
	e.mu.Lock()
	switch x.status {
	case StatusWaiting:
		e.enqueueLocked(x)
		e.mu.Unlock()
		e.wake()
		return
	case StatusRunning, StatusQueued:
		x.notified = true
	}
	e.mu.Unlock()
}

// Status returns the current scheduling status of the flow.
func (x *Flow) Status() FlowStatus {
	if x.executor == nil {
		return StatusIdle
	}
	x.executor.mu.Lock()
	defer x.executor.mu.Unlock()
	return x.status
}

// IsIdle returns true if the flow is not started, or has exited.
func (x *Flow) IsIdle() bool {
	return x.Status() == StatusIdle
}

// Priority returns the priority the flow is scheduled at.
func (x *Flow) Priority() int {
	if x.executor == nil {
		return x.priority
	}
	x.executor.mu.Lock()
	defer x.executor.mu.Unlock()
	return x.priority
}

// SetPriority changes the priority of the flow, taking effect the next time
// it is enqueued, e.g. by Yield or Notify. The priority is clamped.
func (x *Flow) SetPriority(priority int) {
	if x.executor == nil {
		panic(`executor: flow not initialized`)
	}
	x.executor.mu.Lock()
	x.priority = x.executor.clampPriority(priority)
	x.executor.mu.Unlock()
}
