package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	ID   uint32
	Data [8]byte
}

type countingWaiter struct{ n int }

func (x *countingWaiter) Notify() { x.n++ }

func TestNewPool_invalidCapacity(t *testing.T) {
	assert.PanicsWithValue(t, `buffer: capacity must be positive`, func() { NewPool[payload](0) })
	assert.PanicsWithValue(t, `buffer: capacity must be positive`, func() { NewPool[payload](-3) })
}

func TestPool_allocExhaustRelease(t *testing.T) {
	p := NewPool[payload](2)
	assert.Equal(t, 2, p.Cap())
	assert.Equal(t, 2, p.Free())

	a := p.Alloc(nil)
	require.NotNil(t, a)
	b := p.Alloc(nil)
	require.NotNil(t, b)
	assert.NotSame(t, a, b)
	assert.Same(t, p, a.Pool())
	assert.Equal(t, 0, p.Free())
	assert.Equal(t, 2, p.Peak())

	assert.Nil(t, p.Alloc(nil))
	assert.Equal(t, 0, p.Waiting())

	a.Data().ID = 7
	a.Unref()
	assert.Equal(t, 1, p.Free())

	c := p.Alloc(nil)
	require.Same(t, a, c)
	assert.Equal(t, payload{}, *c.Data(), `payload must be zeroed on release`)
	assert.Nil(t, c.Barrier())
	assert.Equal(t, 2, p.Peak())
}

func TestPool_lowestSlotFirst(t *testing.T) {
	p := NewPool[payload](3)
	a := p.Alloc(nil)
	b := p.Alloc(nil)
	c := p.Alloc(nil)
	assert.Equal(t, 0, a.index)
	assert.Equal(t, 1, b.index)
	assert.Equal(t, 2, c.index)
}

func TestPool_waitersNotifiedOnRelease(t *testing.T) {
	p := NewPool[payload](1)
	held := p.Alloc(nil)
	require.NotNil(t, held)

	w1, w2 := &countingWaiter{}, &countingWaiter{}
	assert.Nil(t, p.Alloc(w1))
	assert.Nil(t, p.Alloc(w2))
	assert.Equal(t, 2, p.Waiting())

	held.Unref()
	assert.Equal(t, 1, w1.n)
	assert.Equal(t, 1, w2.n)
	assert.Equal(t, 0, p.Waiting())

	// only one wins, the other re-registers
	require.NotNil(t, p.Alloc(w1))
	assert.Nil(t, p.Alloc(w2))
	assert.Equal(t, 1, p.Waiting())
}

func TestBuffer_unrefSignalsBarrier(t *testing.T) {
	p := NewPool[payload](2)
	fired := false
	bar := NewBarrier(func() { fired = true })

	orig := p.Alloc(nil)
	orig.SetBarrier(bar)
	clone := p.Alloc(nil)
	bar.Retain()
	clone.SetBarrier(bar)
	assert.Same(t, bar, clone.Barrier())

	clone.Unref()
	assert.False(t, fired)
	orig.Unref()
	assert.True(t, fired)
	assert.Equal(t, 2, p.Free())
}

func TestBuffer_doubleRelease(t *testing.T) {
	p := NewPool[payload](1)
	b := p.Alloc(nil)
	b.Unref()
	assert.PanicsWithValue(t, `buffer: buffer released twice`, b.Unref)
	assert.Equal(t, 1, p.Free())
}
