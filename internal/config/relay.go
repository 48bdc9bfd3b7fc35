package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// RelayConfig mirrors the shape of cppla-moto's projectConfig: a small JSON
// document, overridable by an environment variable holding the config path,
// with the same load/verify split. It is loaded once; there is no reload.
type RelayConfig struct {
	Listen            string `json:"listen"`
	LogPath           string `json:"logPath"`
	LogLevel          string `json:"logLevel"`
	MailboxCapacity   int    `json:"mailboxCapacity"`
	MaxPayloadLen     int    `json:"maxPayloadLen"`
	AssociateBurst    int    `json:"associateBurst"`
	AssociateWindowMS int    `json:"associateWindowMs"`
}

// defaultRelayConfig fills in the constants named by spec §3/§4.10 when the
// JSON document omits them.
func defaultRelayConfig() RelayConfig {
	return RelayConfig{
		Listen:            ":4242",
		LogPath:           "messenger.log",
		LogLevel:          "info",
		MailboxCapacity:   100,
		MaxPayloadLen:     254,
		AssociateBurst:    20,
		AssociateWindowMS: 30_000,
	}
}

// LoadRelayConfig reads path (or, if empty, the UDPFLOW_RELAY_CONFIG env var,
// or "config/relay.json") and fills any unset field with its default.
func LoadRelayConfig(path string) (RelayConfig, error) {
	if path == "" {
		path = os.Getenv("UDPFLOW_RELAY_CONFIG")
	}
	if path == "" {
		path = "config/relay.json"
	}

	cfg := defaultRelayConfig()
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return RelayConfig{}, fmt.Errorf("read relay config: %w", err)
	}
	if err := json.Unmarshal(buf, &cfg); err != nil {
		return RelayConfig{}, fmt.Errorf("parse relay config: %w", err)
	}
	if err := cfg.verify(); err != nil {
		return RelayConfig{}, fmt.Errorf("verify relay config: %w", err)
	}
	return cfg, nil
}

func (c *RelayConfig) verify() error {
	if c.Listen == "" {
		return fmt.Errorf("empty listen address")
	}
	if c.MailboxCapacity <= 0 {
		return fmt.Errorf("invalid mailbox capacity %d", c.MailboxCapacity)
	}
	if c.MaxPayloadLen <= 0 || c.MaxPayloadLen > 254 {
		return fmt.Errorf("invalid max payload length %d", c.MaxPayloadLen)
	}
	return nil
}
