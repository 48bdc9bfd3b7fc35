package sendqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFIFOOrder(t *testing.T) {
	q := New()
	for _, seq := range []uint32{1, 2, 3} {
		q.Enqueue(seq)
	}
	for _, want := range []uint32{1, 2, 3} {
		got, ok := q.Dequeue()
		require.True(t, ok)
		require.Equal(t, want, got)
	}
}

func TestCloseDrainsThenStops(t *testing.T) {
	q := New()
	q.Enqueue(1)
	q.Close()

	got, ok := q.Dequeue()
	require.True(t, ok)
	require.Equal(t, uint32(1), got)

	_, ok = q.Dequeue()
	require.False(t, ok, "Dequeue after drain must report closed")
}

func TestEnqueueAfterCloseIsNoop(t *testing.T) {
	q := New()
	q.Close()
	q.Enqueue(99)

	_, ok := q.Dequeue()
	require.False(t, ok)
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	q := New()
	done := make(chan uint32, 1)
	go func() {
		seq, ok := q.Dequeue()
		if ok {
			done <- seq
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Enqueue(42)

	select {
	case got := <-done:
		require.Equal(t, uint32(42), got)
	case <-time.After(time.Second):
		t.Fatal("Dequeue never returned")
	}
}
