package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSenderFlagsRequiresRemote(t *testing.T) {
	_, err := ParseSenderFlags([]string{"-target", "10"})
	require.Error(t, err)
}

func TestParseSenderFlagsDefaults(t *testing.T) {
	cfg, err := ParseSenderFlags([]string{"-remote", "127.0.0.1:9000"})
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.RemoteAddr)
	require.Equal(t, "sender.log", cfg.LogPath)
	require.Equal(t, uint32(1000), cfg.TargetSeq)
}

func TestParseSenderFlagsOverrides(t *testing.T) {
	cfg, err := ParseSenderFlags([]string{"-remote", "10.0.0.1:1", "-log", "custom.log", "-target", "42"})
	require.NoError(t, err)
	require.Equal(t, "custom.log", cfg.LogPath)
	require.Equal(t, uint32(42), cfg.TargetSeq)
}
