// Command vidsumd runs the vidsum daemon: the metadata store, job queue,
// pipeline workers, upload reaper, and HTTP surface as a single
// long-running process.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"vidsum/internal/config"
	"vidsum/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, path, existed, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	if !existed {
		logger.Info("no config file found, using defaults", logging.String("checked_path", path))
	}

	d, err := build(cfg, logger)
	if err != nil {
		logger.Error("build daemon", logging.Error(err))
		log.Fatalf("build daemon: %v", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		log.Fatalf("daemon start: %v", err)
	}

	<-ctx.Done()
	logger.Info("vidsumd shutting down")
	d.Stop()
}
