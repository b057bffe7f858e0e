package executor

// FlowStatus represents the scheduling status of a Flow.
//
// Transitions (all guarded by the executor's mutex):
//
//	StatusIdle → StatusQueued        [Flow.Start]
//	StatusQueued → StatusRunning     [dequeued by the executor]
//	StatusRunning → StatusQueued     [Yield, or WaitFor with a pending notification]
//	StatusRunning → StatusWaiting    [WaitFor]
//	StatusWaiting → StatusQueued     [Flow.Notify]
//	StatusRunning → StatusIdle       [Exit]
type FlowStatus uint8

const (
	// StatusIdle indicates the flow is not started, or has exited.
	StatusIdle FlowStatus = iota
	// StatusQueued indicates the flow is on a run queue.
	StatusQueued
	// StatusRunning indicates the flow is currently executing a step.
	StatusRunning
	// StatusWaiting indicates the flow is suspended, pending Flow.Notify.
	StatusWaiting
)

// String returns a human-readable representation of the status.
func (s FlowStatus) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusQueued:
		return "Queued"
	case StatusRunning:
		return "Running"
	case StatusWaiting:
		return "Waiting"
	default:
		return "Unknown"
	}
}
