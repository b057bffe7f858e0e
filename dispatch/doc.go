// Package dispatch routes messages to every registered handler whose
// identifier filter matches, without a goroutine per handler.
//
// Handlers register an (id, mask) filter, and receive each message whose key
// satisfies (key & mask) == (id & mask). When more than one handler matches,
// the message is cloned for all but the last match (in registry order), which
// receives the original, by transfer. The original and its clones share one
// completion barrier (see buffer.Barrier), which fires once every copy has
// been released.
//
// Each Dispatcher runs a fixed number of dispatch instances, as flows on an
// executor.Executor. An instance is a cooperative state machine, which may be
// suspended between states, e.g. while waiting for a clone to be allocated,
// from an exhausted pool. The handler registry may be modified at any time,
// including while a dispatch is suspended, and dispatch continues from where
// it left off.
//
// The generic Dispatcher is agnostic to the message type, relying on a
// Binding. BufferFlow binds it to buffer.Buffer messages, and Handler
// implementations.
package dispatch
