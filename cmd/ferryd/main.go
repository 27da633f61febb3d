package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"ferry/internal/assets"
	"ferry/internal/config"
	"ferry/internal/daemon"
	"ferry/internal/logging"
	"ferry/internal/pipeline"
)

func main() {
	configFlag := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := assets.Open(cfg)
	if err != nil {
		logger.Error("open asset store", logging.Error(err))
		return
	}

	manager := pipeline.NewManager(cfg, store, logger)
	d, err := daemon.New(cfg, store, logger, manager, nil)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("ferryd shutting down")
}
