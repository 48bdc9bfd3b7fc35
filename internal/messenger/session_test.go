package messenger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionsAssociateAndLookup(t *testing.T) {
	s := newSessions()
	st := &fakeStream{"a"}
	require.True(t, s.associate(3, st))
	require.True(t, s.lookup(3))
	require.False(t, s.lookup(4))
}

func TestSessionsRejectsDuplicateID(t *testing.T) {
	s := newSessions()
	require.True(t, s.associate(3, &fakeStream{"a"}))
	require.False(t, s.associate(3, &fakeStream{"b"}))
}

func TestSessionsReleaseFreesID(t *testing.T) {
	s := newSessions()
	st := &fakeStream{"a"}
	s.associate(3, st)
	s.release(st)
	require.False(t, s.lookup(3))
}

func TestSessionsReleaseUnknownStreamIsNoop(t *testing.T) {
	s := newSessions()
	s.release(&fakeStream{"ghost"})
}

func TestSessionsSameIDReusableAfterRelease(t *testing.T) {
	s := newSessions()
	first := &fakeStream{"a"}
	s.associate(3, first)
	s.release(first)

	second := &fakeStream{"b"}
	require.True(t, s.associate(3, second))
}
