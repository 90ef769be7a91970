// Package main is the entry point for the docnum background worker. It relays
// document_number.assigned events from the outbox.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"docnum/internal/app"
	"docnum/internal/config"
	"docnum/internal/infrastructure/events"
	"docnum/pkg/logger"
)

const statsInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if !cfg.OutboxEnabled {
		log.Info("outbox disabled, worker has nothing to do")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Infow("starting docnum worker", "version", app.Version, "driver", cfg.StorageDriver)

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to open application", "error", err)
	}
	defer a.Close()

	publisher, closePublisher, err := newPublisher(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to create event publisher", "error", err)
	}
	defer closePublisher()

	relay := events.NewRelay(a.Backend.TxManager, a.Backend.Outbox, publisher, cfg.OutboxBatchSize, log)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		relay.Run(ctx, cfg.OutboxPollInterval)
	}()
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.Backend.LogStats(ctx)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// newPublisher picks the Redis stream when REDIS_URL is set and the log otherwise.
func newPublisher(ctx context.Context, cfg *config.Config, log *logger.Logger) (events.Publisher, func(), error) {
	if cfg.RedisURL == "" {
		log.Info("REDIS_URL is not set; events are written to the log")
		return events.NewLogPublisher(log), func() {}, nil
	}

	pub, err := events.NewRedisPublisher(cfg.RedisURL, cfg.EventsStream)
	if err != nil {
		return nil, nil, err
	}
	if err := pub.Ping(ctx); err != nil {
		_ = pub.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Infow("publishing events to redis", "stream", cfg.EventsStream)
	return pub, func() { _ = pub.Close() }, nil
}
