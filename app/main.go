package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ykarpov/newshound/app/api"
	"github.com/ykarpov/newshound/app/cfg"
	"github.com/ykarpov/newshound/app/database"
	"github.com/ykarpov/newshound/app/dedup"
	"github.com/ykarpov/newshound/app/feed"
	"github.com/ykarpov/newshound/app/publisher"
	"github.com/ykarpov/newshound/app/scraper"
	"github.com/ykarpov/newshound/app/sources"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	c, err := cfg.Load()
	if err != nil {
		return err
	}
	if c == nil {
		// Help was shown, exit gracefully.
		return nil
	}

	setupLogger(c.Debug)
	slog.Info("Starting Newshound", "version", c.Version)

	store, err := openStore(c)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	slog.Info("Storage ready", "driver", c.DBDriver)

	registry, err := sources.Load(c.SourcesFile)
	if err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}
	slog.Info("Source registry loaded", "sources", len(registry))

	fetcher := feed.NewFetcher(&http.Client{Timeout: 30 * time.Second})
	resolver := dedup.NewResolver(store)

	var announcer scraper.Announcer
	if c.KafkaBrokers != "" {
		kafkaPublisher := publisher.NewKafkaPublisher(c.KafkaBrokers, c.KafkaTopic)
		defer kafkaPublisher.Close()
		announcer = kafkaPublisher
		slog.Info("Kafka announcer enabled", "brokers", c.KafkaBrokers, "topic", c.KafkaTopic)
	}

	orchestrator := scraper.NewOrchestrator(registry, fetcher, resolver, store, announcer)
	orchestrator.Start(time.Duration(c.ScrapeInterval) * time.Minute)
	defer orchestrator.Stop()
	slog.Info("Scraper started", "interval_minutes", c.ScrapeInterval, "workers", c.WorkerCount)

	handler := api.NewHandler(store, orchestrator, len(registry), c.Version)
	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      api.NewServer(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", c.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var fatalErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down", "signal", sig.String())
	case err := <-serverErrChan:
		fatalErr = err
	case err := <-orchestrator.Done():
		fatalErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown error", "error", err)
	}

	// Orchestrator and store are stopped via defer.
	return fatalErr
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func openStore(c *cfg.Cfg) (database.Store, error) {
	switch c.DBDriver {
	case "postgres":
		return database.NewPostgresStore(c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
	default:
		return database.NewSQLiteStore(c.DBPath)
	}
}
