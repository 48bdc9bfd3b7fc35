package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/udpflow/internal/config"
	"github.com/cppla/udpflow/internal/messenger"
	"github.com/cppla/udpflow/internal/telemetry"
)

func main() {
	confPath := flag.String("config", "", "path to the relay's JSON config file")
	flag.Parse()

	cfg, err := config.LoadRelayConfig(*confPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := telemetry.New(telemetry.Config{Path: cfg.LogPath, Level: cfg.LogLevel})
	if err != nil {
		fmt.Printf("failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	srv := messenger.NewServer(cfg, logger)
	relay, err := messenger.NewRelay(cfg.Listen, srv, logger,
		cfg.AssociateBurst, time.Duration(cfg.AssociateWindowMS)*time.Millisecond)
	if err != nil {
		logger.Sugar().Errorf("failed to start relay: %v", err)
		os.Exit(1)
	}
	defer relay.Close()

	logger.Info("messenger: listening", zap.String("addr", cfg.Listen))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := relay.Serve(ctx); err != nil {
		logger.Sugar().Errorf("relay serve failed: %v", err)
		os.Exit(1)
	}
}
