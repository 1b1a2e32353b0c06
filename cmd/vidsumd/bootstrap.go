package main

import (
	"log/slog"

	"vidsum/internal/adapters/asr"
	"vidsum/internal/adapters/downloader"
	"vidsum/internal/adapters/llm"
	"vidsum/internal/adapters/subtitlefetch"
	"vidsum/internal/bundle"
	"vidsum/internal/cache"
	"vidsum/internal/cachekey"
	"vidsum/internal/config"
	"vidsum/internal/daemon"
	"vidsum/internal/gc"
	"vidsum/internal/httpapi"
	"vidsum/internal/jobqueue"
	"vidsum/internal/metadata"
	"vidsum/internal/notifications"
	"vidsum/internal/stages"
	"vidsum/internal/uploadstore"
)

// build wires every engine component from cfg and returns the assembled
// daemon: main.go owns the process lifecycle, bootstrap.go owns
// dependency construction.
func build(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	store, err := metadata.Open(cfg)
	if err != nil {
		return nil, err
	}

	bundles, err := bundle.NewStore(cfg)
	if err != nil {
		return nil, err
	}

	uploads, err := uploadstore.New(cfg, store, logger)
	if err != nil {
		return nil, err
	}

	prober := cachekey.NewCLI()
	notifier := notifications.NewService(cfg)

	q := jobqueue.New(cfg, store, notifier, logger, nil)
	coordinator := cache.New(store, bundles, prober, cfg, q)

	dl := downloader.New(cfg)
	subFetch := subtitlefetch.New(cfg)
	transcriber := asr.New(cfg)
	summarizer := llm.NewClient(cfg)

	builder := stages.New(dl, subFetch, transcriber, summarizer, bundles, cfg, q.TranscodeSemaphore(), q.TranscribeSemaphore())
	q.SetBuilder(builder.Build)

	sweeper := gc.New(store, bundles, coordinator, cfg, logger)

	server := httpapi.New(cfg, logger, store, coordinator, uploads, q, sweeper)

	return daemon.New(cfg, logger, store, coordinator, uploads, q, server, sweeper)
}
