// Package main is the entry point for the docnum API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"docnum/internal/app"
	"docnum/internal/config"
	"docnum/internal/domain/auth"
	v1 "docnum/internal/infrastructure/http/v1"
)

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

	ctx := context.Background()
	log.Infow("starting docnum server", "version", app.Version, "driver", cfg.StorageDriver)

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to open application", "error", err)
	}
	defer a.Close()

	routerCfg := v1.RouterConfig{
		Engine:      a.Engine,
		Lifecycle:   a.Lifecycle,
		Audit:       a.Backend.Audit,
		DB:          a.Backend,
		Driver:      a.Backend.Driver,
		Logger:      log,
		Version:     app.Version,
		Development: cfg.IsDevelopment(),
	}
	if cfg.JWTSecret != "" {
		routerCfg.JWTValidator = auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret))
		log.Info("bearer authentication enabled")
	} else {
		log.Warn("JWT_SECRET is not set; the API accepts unauthenticated requests")
	}
	router := v1.NewRouter(routerCfg)

	gzip, err := gzhttp.NewWrapper(gzhttp.MinSize(1024))
	if err != nil {
		log.Fatalw("failed to build gzip wrapper", "error", err)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           gzip(router),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Infow("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
