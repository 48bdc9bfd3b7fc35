package acklog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAppendAndLen(t *testing.T) {
	l := New()
	require.Equal(t, 0, l.Len())
	l.Append(5)
	l.Append(7)
	require.Equal(t, 2, l.Len())
}

func TestAtSentinel(t *testing.T) {
	l := New()
	_, ok := l.At(-1)
	require.False(t, ok, "sentinel should never report ok")

	_, ok = l.At(0)
	require.False(t, ok, "index 0 does not exist yet")

	l.Append(3)
	rec, ok := l.At(0)
	require.True(t, ok)
	require.Equal(t, uint32(3), rec.Seq)
}

func TestLastAckMonotonic(t *testing.T) {
	l := New()
	_, ok := l.LastAck()
	require.False(t, ok)

	for _, seq := range []uint32{1, 1, 2, 5, 5, 9} {
		l.Append(seq)
	}
	last, ok := l.LastAck()
	require.True(t, ok)
	require.Equal(t, uint32(9), last)
}

func TestAtFromEnd(t *testing.T) {
	l := New()
	for _, seq := range []uint32{1, 2, 3, 4} {
		l.Append(seq)
	}
	last, ok := l.AtFromEnd(0)
	require.True(t, ok)
	require.Equal(t, uint32(4), last.Seq)

	prev, ok := l.AtFromEnd(1)
	require.True(t, ok)
	require.Equal(t, uint32(3), prev.Seq)

	_, ok = l.AtFromEnd(10)
	require.False(t, ok, "fewer than offset+1 records must report ok=false")
}

func TestAwaitSucceedsOnGrowth(t *testing.T) {
	l := New()
	go func() {
		time.Sleep(10 * time.Millisecond)
		l.Append(1)
	}()
	ok := l.Await(context.Background(), 1, time.Second)
	require.True(t, ok)
}

func TestAwaitTimesOut(t *testing.T) {
	l := New()
	ok := l.Await(context.Background(), 1, 20*time.Millisecond)
	require.False(t, ok)
}

func TestFromIndex(t *testing.T) {
	l := New()
	for _, seq := range []uint32{10, 20, 30} {
		l.Append(seq)
	}
	recs := l.FromIndex(1)
	require.Len(t, recs, 2)
	require.Equal(t, uint32(20), recs[0].Seq)
	require.Equal(t, uint32(30), recs[1].Seq)
}
