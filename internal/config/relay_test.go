package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadRelayConfigDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadRelayConfig(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	require.Equal(t, defaultRelayConfig(), cfg)
}

func TestLoadRelayConfigOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"listen":":9999","mailboxCapacity":50}`), 0o644))

	cfg, err := LoadRelayConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.Listen)
	require.Equal(t, 50, cfg.MailboxCapacity)
	require.Equal(t, defaultRelayConfig().LogPath, cfg.LogPath)
}

func TestLoadRelayConfigRejectsInvalidMailboxCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mailboxCapacity":0}`), 0o644))

	_, err := LoadRelayConfig(path)
	require.Error(t, err)
}

func TestLoadRelayConfigRejectsOversizedPayloadLen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"maxPayloadLen":300}`), 0o644))

	_, err := LoadRelayConfig(path)
	require.Error(t, err)
}

func TestLoadRelayConfigEnvVarOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"listen":":7000"}`), 0o644))
	t.Setenv("UDPFLOW_RELAY_CONFIG", path)

	cfg, err := LoadRelayConfig("")
	require.NoError(t, err)
	require.Equal(t, ":7000", cfg.Listen)
}
