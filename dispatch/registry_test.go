package dispatch

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func liveHandlers(r *registry[uint32, string]) (handlers []string) {
	for _, e := range r.entries {
		if e.live {
			handlers = append(handlers, e.handler)
		} else {
			handlers = append(handlers, ``)
		}
	}
	return handlers
}

func TestRegistry_reusesLowestTombstone(t *testing.T) {
	var r registry[uint32, string]
	r.register(`a`, 1, 0xF)
	r.register(`b`, 2, 0xF)
	r.register(`c`, 3, 0xF)
	r.register(`d`, 4, 0xF)

	r.unregister(`c`, 3, 0xF)
	r.unregister(`a`, 1, 0xF)
	assert.Equal(t, []string{``, `b`, ``, `d`}, liveHandlers(&r))
	assert.Equal(t, 2, r.size())

	r.register(`e`, 5, 0xF)
	assert.Equal(t, []string{`e`, `b`, ``, `d`}, liveHandlers(&r))
	r.register(`f`, 6, 0xF)
	assert.Equal(t, []string{`e`, `b`, `f`, `d`}, liveHandlers(&r))
	r.register(`g`, 7, 0xF)
	assert.Equal(t, []string{`e`, `b`, `f`, `d`, `g`}, liveHandlers(&r))
}

func TestRegistry_truncatesOnlyTrailingSlot(t *testing.T) {
	var r registry[uint32, string]
	r.register(`a`, 1, 0xF)
	r.register(`b`, 2, 0xF)
	r.register(`c`, 3, 0xF)

	r.unregister(`b`, 2, 0xF)
	assert.Equal(t, 3, r.slots())

	// only the trailing slot goes, the tombstone before it stays
	r.unregister(`c`, 3, 0xF)
	assert.Equal(t, 2, r.slots())
	assert.Equal(t, []string{`a`, ``}, liveHandlers(&r))
}

func TestRegistry_unregisterExactTriple(t *testing.T) {
	var r registry[uint32, string]
	r.register(`a`, 1, 0xF)
	r.register(`a`, 1, 0xFF)
	r.register(`a`, 1, 0xF)

	r.unregister(`a`, 1, 0xF)
	assert.Equal(t, []string{``, `a`, `a`}, liveHandlers(&r))
	assert.Equal(t, uint32(0xFF), r.entries[1].mask)

	assert.PanicsWithValue(t, `dispatch: unregister of a handler that is not registered`, func() {
		r.unregister(`a`, 2, 0xF)
	})
	assert.PanicsWithValue(t, `dispatch: unregister of a handler that is not registered`, func() {
		r.unregister(`b`, 1, 0xF)
	})
	assert.Equal(t, 2, r.size())
}

func TestRegistry_unregisterAllTrimsTrailingTombstones(t *testing.T) {
	var r registry[uint32, string]
	r.register(`a`, 1, 0xF)
	r.register(`b`, 2, 0xF)
	r.register(`x`, 3, 0xF)
	r.register(`b`, 4, 0xF)
	r.register(`b`, 5, 0xF)
	r.unregister(`x`, 3, 0xF)

	assert.Equal(t, 3, r.unregisterAll(`b`))
	assert.Equal(t, []string{`a`}, liveHandlers(&r))
	assert.Equal(t, 0, r.unregisterAll(`b`))

	assert.Equal(t, 1, r.unregisterAll(`a`))
	assert.Equal(t, 0, r.slots())
}

func TestRegistry_next(t *testing.T) {
	var r registry[uint32, string]
	r.register(`a`, 0x123, 0x7FF)
	r.register(`b`, 0x100, 0x700)
	r.register(`c`, 0x200, 0x700)

	i, h, ok := r.next(0, 0x123, false)
	require.True(t, ok)
	assert.Equal(t, 0, i)
	assert.Equal(t, `a`, h)

	i, h, ok = r.next(1, 0x123, false)
	require.True(t, ok)
	assert.Equal(t, 1, i)
	assert.Equal(t, `b`, h)

	_, _, ok = r.next(2, 0x123, false)
	assert.False(t, ok)

	i, h, ok = r.next(0, 0x123, true)
	require.True(t, ok)
	assert.Equal(t, 2, i)
	assert.Equal(t, `c`, h)

	// a saved index past a truncation is exhaustion
	r.unregister(`c`, 0x200, 0x700)
	r.unregister(`b`, 0x100, 0x700)
	i, _, ok = r.next(2, 0x123, true)
	assert.False(t, ok)
	assert.Equal(t, 2, i)

	_, _, ok = r.next(1, 0x123, false)
	assert.False(t, ok, `tombstones are skipped`)
}

func TestRegistry_sizeMatchesModel(t *testing.T) {
	type filter struct {
		handler  string
		id, mask uint32
	}
	handlers := []string{`a`, `b`, `c`, `d`}
	rng := rand.New(rand.NewSource(1))

	for trial := 0; trial < 50; trial++ {
		var (
			r     registry[uint32, string]
			model []filter
		)
		for op := 0; op < 200; op++ {
			switch n := rng.Intn(10); {
			case n < 5 || len(model) == 0:
				f := filter{handlers[rng.Intn(len(handlers))], uint32(rng.Intn(4)), uint32(rng.Intn(2))}
				r.register(f.handler, f.id, f.mask)
				model = append(model, f)
			case n < 9:
				i := rng.Intn(len(model))
				f := model[i]
				r.unregister(f.handler, f.id, f.mask)
				model = append(model[:i], model[i+1:]...)
			default:
				h := handlers[rng.Intn(len(handlers))]
				var removed int
				kept := model[:0]
				for _, f := range model {
					if f.handler == h {
						removed++
					} else {
						kept = append(kept, f)
					}
				}
				model = kept
				assert.Equal(t, removed, r.unregisterAll(h))
			}
			require.Equal(t, len(model), r.size())
			require.GreaterOrEqual(t, r.slots(), len(model))
		}
	}
}
