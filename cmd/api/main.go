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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/propsignal/tenant-assistant/internal/audit"
	"github.com/propsignal/tenant-assistant/internal/autopilot"
	"github.com/propsignal/tenant-assistant/internal/config"
	"github.com/propsignal/tenant-assistant/internal/directory"
	"github.com/propsignal/tenant-assistant/internal/draft"
	"github.com/propsignal/tenant-assistant/internal/handler"
	"github.com/propsignal/tenant-assistant/internal/llm"
	"github.com/propsignal/tenant-assistant/internal/middleware"
	natsclient "github.com/propsignal/tenant-assistant/internal/nats"
	"github.com/propsignal/tenant-assistant/internal/router"
	"github.com/propsignal/tenant-assistant/internal/scheduler"
	"github.com/propsignal/tenant-assistant/internal/store"
	"github.com/propsignal/tenant-assistant/internal/transport"
	"github.com/propsignal/tenant-assistant/internal/triage"
	"github.com/propsignal/tenant-assistant/pkg/logger"
	"github.com/propsignal/tenant-assistant/pkg/tracing"
)

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

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "tenant-assistant", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS for the audit mirror, if configured
	var natsConn *natsclient.Client
	var auditPub *audit.Publisher
	if cfg.NATSURL != "" {
		natsConn, err = natsclient.Connect(natsclient.Config{
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
		defer natsConn.Close()

		auditPub = audit.NewPublisher(natsConn, log)
		if err := auditPub.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure audit stream", zap.Error(err))
			os.Exit(1)
		}
	}

	// Initialize LLM client
	var llmClient llm.Client
	if cfg.AnthropicAPIKey != "" {
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
		if err != nil {
			log.Warn("failed to create Anthropic client, LLM features disabled", zap.Error(err))
		}
	} else if cfg.OpenAIAPIKey != "" {
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
		if err != nil {
			log.Warn("failed to create OpenAI client, LLM features disabled", zap.Error(err))
		}
	}

	// Outbound messaging transport
	var messenger transport.Messenger
	if cfg.TwilioAccountSID != "" {
		messenger, err = transport.NewTwilioClient(transport.TwilioConfig{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			From:       cfg.TwilioFrom,
			BaseURL:    cfg.TwilioBaseURL,
		}, log)
		if err != nil {
			log.Error("failed to create Twilio client", zap.Error(err))
			os.Exit(1)
		}
	} else {
		log.Warn("no transport configured, outbound messages will be recorded only")
		messenger = transport.NewRecorder()
	}

	// Cooldown store: redis when configured, else in-process
	var cooldowns store.CooldownStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("invalid REDIS_URL", zap.Error(err))
			os.Exit(1)
		}
		cooldowns = store.NewRedisCooldownStore(redis.NewClient(opts))
	} else {
		cooldowns = store.NewMemoryCooldownStore()
	}

	// Core services
	dir := directory.New(cfg.LandlordNumbers)
	conversations := store.NewMemoryStore()
	classifier := triage.NewClassifier(llmClient, log)
	drafts := draft.NewGenerator(llmClient, log)
	engine := autopilot.NewEngine(conversations, auditPub, log)

	routerSvc := router.New(
		router.Config{
			AutopilotDefault: cfg.AutopilotDefault,
			Scheduler: scheduler.Config{
				IntakeDelay:   cfg.IntakeDelay,
				ReplyCooldown: cfg.ReplyCooldown,
				MaxDefer:      cfg.DebounceMaxDefer,
			},
		},
		dir, conversations, classifier, drafts, messenger,
		scheduler.NewMemoryPendingStore(), cooldowns,
		engine, auditPub, log,
	)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsConn)
	webhookHandler := handler.NewWebhookHandler(routerSvc, log)
	conversationHandler := handler.NewConversationHandler(conversations, log)
	autopilotHandler := handler.NewAutopilotHandler(engine, routerSvc, conversations, log)
	directoryHandler := handler.NewDirectoryHandler(dir, log)

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
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Provider webhook (authenticated upstream by the provider's signing,
	// terminated before this service)
	r.Post("/webhook/inbound", webhookHandler.Inbound)
	r.Get("/webhook/status", webhookHandler.Status)

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Post("/autopilot", autopilotHandler.Set)
				r.Post("/autopilot/run", autopilotHandler.Run)
			})
		})

		r.Route("/tenants", func(r chi.Router) {
			r.Post("/", directoryHandler.RegisterTenant)
			r.Get("/", directoryHandler.ListTenants)
		})

		r.Route("/contractors", func(r chi.Router) {
			r.Post("/", directoryHandler.RegisterContractor)
			r.Get("/", directoryHandler.ListContractors)
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
