package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/cppla/udpflow/internal/config"
	"github.com/cppla/udpflow/internal/supervisor"
	"github.com/cppla/udpflow/internal/telemetry"
)

func main() {
	cfg, err := config.ParseSenderFlags(os.Args[1:])
	if err != nil {
		fmt.Printf("failed to parse flags: %v\n", err)
		os.Exit(supervisor.ExitIOFailure)
	}

	logger, err := telemetry.New(telemetry.Config{Path: cfg.LogPath, Level: "debug"})
	if err != nil {
		fmt.Printf("failed to set up logging: %v\n", err)
		os.Exit(supervisor.ExitIOFailure)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup, err := supervisor.New(cfg, logger)
	if err != nil {
		logger.Error("sender: failed to start", zap.Error(err))
		os.Exit(supervisor.ExitIOFailure)
	}

	os.Exit(sup.Run(ctx))
}
