package config

import (
	"flag"
	"fmt"
	"time"
)

// SenderConfig carries the sender CLI's configuration (spec §6, "Sender
// CLI / configuration"). Unlike the messenger's RelayConfig it is built
// directly from flags, not a JSON file.
type SenderConfig struct {
	RemoteAddr string
	LogPath    string
	TargetSeq  uint32

	// FirstAckTimeout and SecondAckTimeout bound Stage 1's waits (spec §4.5,
	// "10-second timeout"); overridable for tests.
	FirstAckTimeout  time.Duration
	SecondAckTimeout time.Duration
}

// ParseSenderFlags builds a SenderConfig from args, following the teacher's
// flag.FlagSet usage in run.go.
func ParseSenderFlags(args []string) (SenderConfig, error) {
	fs := flag.NewFlagSet("sender", flag.ContinueOnError)
	remote := fs.String("remote", "", "host:port of the peer datagram endpoint")
	logPath := fs.String("log", "sender.log", "path to receive DEBUG-level log records")
	target := fs.Uint("target", 1000, "sequence number that signals success once acked")

	if err := fs.Parse(args); err != nil {
		return SenderConfig{}, err
	}
	if *remote == "" {
		return SenderConfig{}, fmt.Errorf("missing required -remote flag")
	}

	return SenderConfig{
		RemoteAddr:       *remote,
		LogPath:          *logPath,
		TargetSeq:        uint32(*target),
		FirstAckTimeout:  10 * time.Second,
		SecondAckTimeout: 10 * time.Second,
	}, nil
}
