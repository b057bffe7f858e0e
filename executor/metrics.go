package executor

// Metrics is a snapshot of runtime statistics, for an Executor.
type Metrics struct {
	// Queued is the current number of flows per priority run queue.
	Queued []int

	// MaxQueued is the maximum number of flows that have been queued at once.
	MaxQueued int

	// Runs is the number of steps, i.e. flows dequeued.
	Runs uint64

	// States is the number of states executed, across all steps.
	States uint64

	// Yields is the number of steps that ended with Yield.
	Yields uint64

	// Waits is the number of steps that ended with WaitFor.
	Waits uint64

	// Exits is the number of steps that ended with Exit.
	Exits uint64
}

// Metrics returns a snapshot of the executor's statistics.
func (x *Executor) Metrics() Metrics {
	x.mu.Lock()
	defer x.mu.Unlock()
	m := x.metrics
	m.Queued = append([]int(nil), x.metrics.Queued...)
	return m
}
