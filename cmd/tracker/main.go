// Package main is the entry point for the location tracker daemon. It
// consumes a ward location feed over WebSocket and forwards decoded
// observations to the API server's ingest endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mireles/tether/internal/config"
	"github.com/mireles/tether/internal/middleware"
	"github.com/mireles/tether/internal/tracker"
	"github.com/mireles/tether/internal/validate"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configFile := flag.String("config", "", "path to YAML config file")
	metricsAddr := flag.String("metrics-addr", ":9090", "listen address for the metrics endpoint")
	flag.Parse()

	if *help {
		fmt.Println("Tether Location Tracker")
		fmt.Println()
		fmt.Println("Usage: tracker [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configFile)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}
	if cfg.FeedURL == "" {
		fmt.Fprintln(os.Stderr, "config error: FEED_URL is required")
		os.Exit(1)
	}
	if cfg.Env == "production" {
		// Production feeds must resolve to a public endpoint.
		if _, err := validate.FeedURL(cfg.FeedURL); err != nil {
			fmt.Fprintf(os.Stderr, "config error: FEED_URL: %v\n", err)
			os.Exit(1)
		}
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	metrics := tracker.NewMetrics()
	if err := metrics.Register(registry); err != nil {
		logger.Error("failed to register tracker metrics", "error", err)
		os.Exit(1)
	}

	forwarder := tracker.NewForwarder(cfg.IngestURL, cfg.IngestToken, logger)
	handler := tracker.NewHandler(forwarder, logger, metrics)

	client, err := tracker.NewClient(tracker.DefaultConfig(cfg.FeedURL), handler.HandleMessage, logger)
	if err != nil {
		logger.Error("failed to create feed client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", tracker.MetricsHandler(registry))
	metricsServer := &http.Server{
		Addr:         *metricsAddr,
		Handler:      metricsMux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		logger.Info("starting metrics server", "addr", *metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	clientDone := make(chan error, 1)
	go func() {
		logger.Info("starting tracker", "feed_url", cfg.FeedURL, "ingest_url", cfg.IngestURL)
		clientDone <- client.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutting down tracker...")
		cancel()
		<-clientDone
	case err := <-clientDone:
		if err != nil && err != context.Canceled {
			logger.Error("feed client stopped", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server forced to shutdown", "error", err)
	}

	logger.Info("tracker stopped")
}
