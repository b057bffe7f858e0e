package dispatch

import (
	"github.com/joeycumines/go-dispatchflow/buffer"
	"github.com/joeycumines/go-dispatchflow/executor"
	"golang.org/x/exp/constraints"
)

type (
	// Keyed is implemented by message payloads, to provide the key that
	// handler filters are matched against.
	Keyed[ID constraints.Unsigned] interface {
		DispatchID() ID
	}

	// Handler receives buffers holding a T. Send takes ownership of the
	// buffer, which the handler must eventually release using
	// buffer.Buffer.Unref. Send must not block.
	//
	// Handler implementations must be comparable (e.g. pointers), as they are
	// identified by equality, e.g. by Dispatcher.UnregisterHandler.
	Handler[T any] interface {
		Send(msg *buffer.Buffer[T], priority int)

		// Pool returns the pool that clones sent to this handler are
		// allocated from. It must not be nil, see BufferFlow.RegisterHandler.
		Pool() *buffer.Pool[T]
	}

	// BufferBinding implements Binding for buffer.Buffer messages.
	BufferBinding[T Keyed[ID], ID constraints.Unsigned] struct{}

	// BufferFlow is a Dispatcher of buffer.Buffer messages. It is itself a
	// Handler, so dispatchers may be chained.
	BufferFlow[T Keyed[ID], ID constraints.Unsigned] struct {
		*Dispatcher[*buffer.Buffer[T], ID, Handler[T]]
		pool *buffer.Pool[T]
	}

	// FuncHandler adapts a function to a Handler. Use it by pointer, see
	// NewFuncHandler.
	FuncHandler[T any] struct {
		fn   func(msg *buffer.Buffer[T], priority int)
		pool *buffer.Pool[T]
	}
)

var (
	_ Binding[*buffer.Buffer[keyed32], uint32, Handler[keyed32]] = BufferBinding[keyed32, uint32]{}
	_ Handler[keyed32]                                           = (*BufferFlow[keyed32, uint32])(nil)
	_ Handler[keyed32]                                           = (*FuncHandler[keyed32])(nil)
)

// ID returns the key of the payload.
func (BufferBinding[T, ID]) ID(msg *buffer.Buffer[T]) ID {
	return (*msg.Data()).DispatchID()
}

// Clone allocates a buffer from the pool of handler, copies the payload,
// retains the completion barrier of msg, and sends the copy to handler.
// It panics if handler has no pool.
func (BufferBinding[T, ID]) Clone(msg *buffer.Buffer[T], handler Handler[T], priority int, waiter executor.Notifiable) bool {
	pool := handler.Pool()
	if pool == nil {
		panic(errNoClonePool)
	}
	c := pool.Alloc(waiter)
	if c == nil {
		return false
	}
	*c.Data() = *msg.Data()
	barrier := msg.Barrier()
	barrier.Retain()
	c.SetBarrier(barrier)
	handler.Send(c, priority)
	return true
}

// Transfer sends msg to handler.
func (BufferBinding[T, ID]) Transfer(msg *buffer.Buffer[T], handler Handler[T], priority int) {
	handler.Send(msg, priority)
}

// Release releases msg back to its pool.
func (BufferBinding[T, ID]) Release(msg *buffer.Buffer[T]) {
	msg.Unref()
}

// NewBufferFlow initializes a BufferFlow. The pool is returned by
// BufferFlow.Pool, i.e. it is used for clones sent to the returned flow, by
// any upstream dispatcher. It panics if pool is nil.
func NewBufferFlow[T Keyed[ID], ID constraints.Unsigned](exec *executor.Executor, pool *buffer.Pool[T], opts ...Option) (*BufferFlow[T, ID], error) {
	if pool == nil {
		panic(errNoClonePool)
	}
	d, err := New[*buffer.Buffer[T], ID, Handler[T]](exec, BufferBinding[T, ID]{}, opts...)
	if err != nil {
		return nil, err
	}
	return &BufferFlow[T, ID]{Dispatcher: d, pool: pool}, nil
}

// Pool implements Handler.
func (x *BufferFlow[T, ID]) Pool() *buffer.Pool[T] {
	return x.pool
}

// RegisterHandler behaves like Dispatcher.RegisterHandler, but panics if
// handler has no pool.
func (x *BufferFlow[T, ID]) RegisterHandler(handler Handler[T], id, mask ID) {
	if handler == nil || handler.Pool() == nil {
		panic(errNoClonePool)
	}
	x.Dispatcher.RegisterHandler(handler, id, mask)
}

// NewFuncHandler returns a Handler that calls fn with each message, and
// receives clones allocated from pool.
func NewFuncHandler[T any](pool *buffer.Pool[T], fn func(msg *buffer.Buffer[T], priority int)) *FuncHandler[T] {
	if fn == nil {
		panic(`dispatch: nil handler func`)
	}
	if pool == nil {
		panic(errNoClonePool)
	}
	return &FuncHandler[T]{fn: fn, pool: pool}
}

// Send implements Handler.
func (x *FuncHandler[T]) Send(msg *buffer.Buffer[T], priority int) {
	x.fn(msg, priority)
}

// Pool implements Handler.
func (x *FuncHandler[T]) Pool() *buffer.Pool[T] {
	return x.pool
}

const errNoClonePool = `dispatch: handler has no clone pool`

// keyed32 is used for compile time assertions.
type keyed32 uint32

func (x keyed32) DispatchID() uint32 { return uint32(x) }
