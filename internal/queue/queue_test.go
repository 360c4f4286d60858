package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample stands in for a tick snapshot record.
type sample struct {
	Frame uint64
	Fuel  float64
}

func TestQueue_New(t *testing.T) {
	q := New[sample]()
	require.NotNil(t, q)
	assert.True(t, q.Empty())
	assert.Equal(t, 0, q.Len())
}

func TestQueue_PushPop(t *testing.T) {
	q := New[sample]()

	// Pop from empty queue returns zero value
	assert.Equal(t, sample{}, q.Pop())

	q.Push(sample{Frame: 1, Fuel: 600})
	q.Push(sample{Frame: 2}, sample{Frame: 3})
	assert.Equal(t, 3, q.Len())

	first := q.Pop()
	assert.Equal(t, uint64(1), first.Frame)
	assert.Equal(t, 2, q.Len())
}

func TestQueue_GetAndEmpty(t *testing.T) {
	q := New[sample]()
	q.Push(sample{Frame: 1}, sample{Frame: 2}, sample{Frame: 3})

	drained := q.GetAndEmpty()
	require.Len(t, drained, 3)
	assert.Equal(t, uint64(2), drained[1].Frame)
	assert.True(t, q.Empty())

	// Drain of an empty queue yields an empty slice, not nil panic.
	assert.Empty(t, q.GetAndEmpty())
}

func TestQueue_Clear(t *testing.T) {
	q := New[sample]()
	q.Push(sample{Frame: 1})
	q.Clear()
	assert.True(t, q.Empty())
}

func TestQueue_ConcurrentPushDrain(t *testing.T) {
	q := New[sample]()

	const writers = 8
	const perWriter = 500

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				q.Push(sample{Frame: uint64(i)})
			}
		}()
	}

	done := make(chan struct{})
	var drained int
	go func() {
		defer close(done)
		for {
			drained += len(q.GetAndEmpty())
			if drained == writers*perWriter {
				return
			}
		}
	}()

	wg.Wait()
	<-done
	assert.Equal(t, writers*perWriter, drained)
}
