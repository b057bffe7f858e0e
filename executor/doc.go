// Package executor implements a cooperative executor for state-machine flows.
//
// # Execution Model
//
// A [Flow] is a unit of cooperative execution. Its behavior is expressed as a
// chain of [State] functions, each returning an [Action] that names what
// happens next:
//
//   - [Call]: continue immediately with the next state, within the same step
//   - [Yield]: re-enqueue the flow, and continue with the next state later
//   - [WaitFor]: suspend until [Flow.Notify] is called, e.g. by a resource
//   - [Exit]: terminate, returning the flow to the idle state
//
// A state is never interrupted. Flows that are runnable are held on one of
// several priority run queues (index 0 is the highest priority), and the
// [Executor] always steps the first flow of the highest priority non-empty
// queue.
//
// # Driving The Executor
//
// An [Executor] does not own a goroutine. It may be driven by:
//   - [Executor.Run], which blocks, draining whenever work is enqueued
//   - a [github.com/joeycumines/go-eventloop] Loop, see [WithLoop]
//   - the caller, via [Executor.RunOnce] or [Executor.Drain]
//
// # Thread Safety
//
// [Flow.Start] and [Flow.Notify] are safe to call from any goroutine. States
// only ever run on whichever goroutine is currently draining the executor,
// one at a time.
package executor
