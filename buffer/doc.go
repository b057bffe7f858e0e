// Package buffer implements bounded pools of fixed-size message buffers, and
// the completion barrier shared by a message and all of its clones.
//
// A Pool is an arena of slots, allocated up front, plus a free-list of slot
// indices. Allocation never grows the arena: when the pool is exhausted,
// Pool.Alloc returns nil, and registers the caller (an
// executor.Notifiable) to be woken on the next release.
//
// A Barrier counts outstanding owners. It starts at one (the original
// message), is retained once per clone, and fires exactly once, when the last
// owner releases its buffer.
package buffer
