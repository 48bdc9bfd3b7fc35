package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, seq := range []uint32{0, 1, 1000, 1 << 31, ^uint32(0)} {
		got, ok := Decode(Encode(seq))
		require.True(t, ok)
		require.Equal(t, seq, got)
	}
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		{1, 2, 3},
		{1, 2, 3, 4, 5},
	}
	for _, c := range cases {
		_, ok := Decode(c)
		require.False(t, ok)
	}
}

func TestEncodeBigEndian(t *testing.T) {
	got := Encode(0x01020304)
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, got)
}
