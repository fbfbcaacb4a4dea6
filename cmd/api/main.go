// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cityscout-ai/event-discovery-platform/internal/agent"
	"github.com/cityscout-ai/event-discovery-platform/internal/config"
	"github.com/cityscout-ai/event-discovery-platform/internal/geocode"
	"github.com/cityscout-ai/event-discovery-platform/internal/handler"
	"github.com/cityscout-ai/event-discovery-platform/internal/llm"
	"github.com/cityscout-ai/event-discovery-platform/internal/middleware"
	natsclient "github.com/cityscout-ai/event-discovery-platform/internal/nats"
	"github.com/cityscout-ai/event-discovery-platform/internal/search"
	"github.com/cityscout-ai/event-discovery-platform/internal/session"
	"github.com/cityscout-ai/event-discovery-platform/internal/stream"
	"github.com/cityscout-ai/event-discovery-platform/pkg/logger"
	"github.com/cityscout-ai/event-discovery-platform/pkg/tracing"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server", zap.String("version", version))

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "event-discovery-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS for session persistence
	natsClient, err := natsclient.Connect(natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer natsClient.Close()

	store, err := session.NewKVStore(ctx, natsClient, cfg.SessionTTL, cfg.MaxMessagesPerSession)
	if err != nil {
		log.Error("failed to initialize session store", zap.Error(err))
		os.Exit(1)
	}

	// Upstream clients
	geocoder, err := geocode.New(cfg.MapboxToken, geocode.WithBaseURL(cfg.MapboxBaseURL))
	if err != nil {
		log.Error("failed to create geocoding client", zap.Error(err))
		os.Exit(1)
	}

	searcher, err := search.New(cfg.PerplexityAPIKey, search.WithBaseURL(cfg.PerplexityBaseURL))
	if err != nil {
		log.Error("failed to create event search client", zap.Error(err))
		os.Exit(1)
	}

	// Location extraction: model-backed when a key is present, rule-based
	// fallback otherwise.
	var extractor llm.Extractor = llm.RuleExtractor{}
	if cfg.AnthropicAPIKey != "" {
		anthro, err := llm.NewAnthropicExtractor(cfg.AnthropicAPIKey)
		if err != nil {
			log.Warn("failed to create Anthropic extractor, using rule-based extraction", zap.Error(err))
		} else {
			extractor = anthro
		}
	}

	// Wire the turn pipeline
	orchestrator := agent.New(geocoder, searcher, extractor, log)
	guard := session.NewTurnGuard()
	manager := stream.NewManager(store, guard, orchestrator, cfg.StatusInterval, cfg.TurnTimeout, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(store, version)
	sessionHandler := handler.NewSessionHandler(store, log)
	messageHandler := handler.NewMessageHandler(manager, log)
	streamHandler := handler.NewStreamHandler(manager, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/health/detailed", healthHandler.Ready)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)
			// Listing every session is an operator action, not a user one.
			r.With(middleware.RequireScope("sessions:admin")).Get("/", sessionHandler.List)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Delete("/", sessionHandler.Delete)

				r.Get("/messages", sessionHandler.History)
				r.Post("/messages", messageHandler.Send)
				r.Post("/messages/stream", streamHandler.Stream)
			})
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
