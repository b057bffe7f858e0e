package chunkq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_zeroValue(t *testing.T) {
	var q Queue[int]
	assert.Equal(t, 0, q.Len())
	_, ok := q.Pop()
	assert.False(t, ok)
	_, ok = q.Peek()
	assert.False(t, ok)
}

func TestQueue_fifoAcrossChunks(t *testing.T) {
	var q Queue[int]
	const n = chunkSize*3 + 7
	for i := 0; i < n; i++ {
		q.Push(i)
	}
	require.Equal(t, n, q.Len())

	for i := 0; i < n; i++ {
		v, ok := q.Peek()
		require.True(t, ok)
		require.Equal(t, i, v)
		v, ok = q.Pop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}

	assert.Equal(t, 0, q.Len())
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestQueue_interleaved(t *testing.T) {
	var q Queue[string]
	var model []string
	next := 0
	for round := 0; round < 200; round++ {
		for i := 0; i < round%5+1; i++ {
			s := string(rune('a' + next%26))
			next++
			q.Push(s)
			model = append(model, s)
		}
		for i := 0; i < round%3+1 && len(model) > 0; i++ {
			v, ok := q.Pop()
			require.True(t, ok)
			require.Equal(t, model[0], v)
			model = model[1:]
		}
		require.Equal(t, len(model), q.Len())
	}
}

func TestQueue_popClearsSlot(t *testing.T) {
	var q Queue[*int]
	v := new(int)
	q.Push(v)
	q.Push(v)
	_, _ = q.Pop()
	assert.Nil(t, q.head.values[0])
}
