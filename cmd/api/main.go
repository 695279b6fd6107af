// Package main is the entry point for the API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mireles/tether/internal/api"
	"github.com/mireles/tether/internal/auth"
	"github.com/mireles/tether/internal/config"
	"github.com/mireles/tether/internal/db"
	"github.com/mireles/tether/internal/friend"
	"github.com/mireles/tether/internal/health"
	"github.com/mireles/tether/internal/jobs"
	"github.com/mireles/tether/internal/middleware"
	"github.com/mireles/tether/internal/monitor"
	"github.com/mireles/tether/internal/notify"
	"github.com/mireles/tether/internal/user"
	"github.com/mireles/tether/internal/validate"
	"github.com/mireles/tether/internal/zone"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configFile := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("Tether API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
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

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	for key, val := range cfg.LogSummary() {
		logger.Debug("config", key, val)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sqlDB, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	// Repositories
	zones := zone.NewPostgresRepository(sqlDB, logger)
	statuses := zone.NewPostgresStatusStore(sqlDB)
	ledger := notify.NewPostgresLedger(sqlDB)
	friends := friend.NewPostgresRepository(sqlDB)
	users := user.NewPostgresRepository(sqlDB)

	// Metrics
	registry := prometheus.NewRegistry()
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register HTTP metrics", "error", err)
		os.Exit(1)
	}
	notifyMetrics := notify.NewMetrics()
	if err := notifyMetrics.Register(registry); err != nil {
		logger.Error("failed to register notify metrics", "error", err)
		os.Exit(1)
	}
	monitorMetrics := monitor.NewMetrics()
	if err := monitorMetrics.Register(registry); err != nil {
		logger.Error("failed to register monitor metrics", "error", err)
		os.Exit(1)
	}
	jobMetrics := jobs.NewMetrics()
	if err := jobMetrics.Register(registry); err != nil {
		logger.Error("failed to register job metrics", "error", err)
		os.Exit(1)
	}

	// Delivery channel: webhook preferred, SMTP otherwise. Config
	// validation guarantees at least one is configured.
	var channel notify.Channel
	if cfg.WebhookURL != "" {
		webhookURL := cfg.WebhookURL
		if cfg.Env == "production" {
			// Production deliveries must target a public HTTPS endpoint.
			validated, err := validate.WebhookURL(webhookURL)
			if err != nil {
				logger.Error("invalid webhook URL", "error", err)
				os.Exit(1)
			}
			webhookURL = validated
		}
		channel = notify.NewWebhookChannel(webhookURL)
	} else {
		channel = notify.NewSMTPChannel(cfg.SMTPAddr, cfg.SMTPFrom, nil)
	}

	dispatcher := notify.NewDispatcher(ledger, notify.NewUserDirectory(users), channel, notify.DispatcherConfig{
		RateLimitWindow: cfg.NotifyRateWindow,
		RateLimitMax:    cfg.NotifyRateMax,
		Logger:          logger,
		Metrics:         notifyMetrics,
	})

	hub := monitor.NewHub(func(ownerID string) *monitor.Session {
		watcher := friend.NewWatcher(friend.WatcherConfig{
			UserID:     ownerID,
			Interval:   cfg.FriendPollInterval,
			Logger:     logger,
			JobMetrics: jobMetrics,
		}, friends, dispatcher)

		evaluator := monitor.NewEvaluator(zones, statuses, logger, monitorMetrics)
		return monitor.NewSession(monitor.SessionConfig{
			OwnerID: ownerID,
			Logger:  logger,
			Metrics: monitorMetrics,
		}, evaluator, dispatcher, watcher)
	}, logger, monitorMetrics)

	// Rate limiting: Redis-backed when configured so limits hold across
	// replicas, in-memory otherwise.
	var limitStore middleware.RateLimitStore
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		limitStore = middleware.NewRedisRateLimitStore(redisClient, httpMetrics)
	} else {
		limitStore = middleware.NewInMemoryRateLimitStore()
	}
	ingestLimiter := middleware.RateLimiter(limitStore, middleware.DefaultIngestLimit(), middleware.UserKeyFunc())

	// Dual-key validation keeps old tokens valid during a secret rotation.
	currentSecret, previousSecret := cfg.GetJWTSecrets()
	var jwtService *auth.JWTService
	if previousSecret != "" {
		jwtService = auth.NewJWTServiceWithRotation(currentSecret, previousSecret)
	} else {
		jwtService = auth.NewJWTService(currentSecret)
	}
	authed := middleware.Auth(jwtService)

	healthConfig := api.HealthHandlersConfig{
		DBChecker:      health.NewDBChecker(sqlDB),
		MetricsEnabled: true,
	}
	if redisClient != nil {
		healthConfig.RedisChecker = health.NewRedisChecker(redisClient)
	}

	zoneHandlers := api.NewZoneHandlers(zones, statuses)
	locationHandlers := api.NewLocationHandlers(hub)
	sessionHandlers := api.NewSessionHandlers(hub)
	notificationHandlers := api.NewNotificationHandlers(ledger)
	friendHandlers := api.NewFriendHandlers(friends, users)
	healthHandlers := api.NewHealthHandlers(healthConfig)

	mux := http.NewServeMux()

	// Health and observability endpoints are unauthenticated.
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.Handle("/v1/zones", authed(http.HandlerFunc(zoneHandlers.HandleZones)))
	mux.Handle("/v1/zones/", authed(http.HandlerFunc(zoneHandlers.HandleZoneByID)))
	mux.Handle("/v1/locations", authed(ingestLimiter(http.HandlerFunc(locationHandlers.IngestLocation))))
	mux.Handle("/v1/sessions", authed(http.HandlerFunc(sessionHandlers.HandleSessions)))
	mux.Handle("/v1/notifications", authed(http.HandlerFunc(notificationHandlers.ListNotifications)))
	mux.Handle("/v1/friends/requests", authed(http.HandlerFunc(friendHandlers.HandleRequests)))
	mux.Handle("/v1/friends/requests/", authed(http.HandlerFunc(friendHandlers.HandleRequestAction)))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Only handle exact root path, everything else returns 404
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"tether-api","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	// Middleware order: RequestID -> CORS -> Logging -> HTTPMetrics -> global limit
	var handler http.Handler = mux
	handler = middleware.RateLimiter(limitStore, middleware.DefaultGlobalLimit(), middleware.IPKeyFunc())(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	if len(cfg.CORSAllowedOrigins) > 0 {
		handler = middleware.CORS(middleware.CORSConfig{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		})(handler)
	}
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	// Stop monitoring sessions after the listener closes so queued
	// observations still drain through evaluation.
	hub.Shutdown()

	logger.Info("server stopped")
}
