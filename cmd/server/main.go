package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/DukeRupert/monfournisseur/internal"
	"github.com/DukeRupert/monfournisseur/internal/catalog"
	"github.com/DukeRupert/monfournisseur/internal/handler"
	"github.com/DukeRupert/monfournisseur/internal/leadapi"
	"github.com/DukeRupert/monfournisseur/internal/leadapi/mock"
	"github.com/DukeRupert/monfournisseur/internal/metrics"
	"github.com/DukeRupert/monfournisseur/internal/middleware"
	"github.com/DukeRupert/monfournisseur/internal/service"
	"github.com/DukeRupert/monfournisseur/internal/storage"
	"github.com/DukeRupert/monfournisseur/web"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Load reference data
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("catalog load failed: %w", err)
	}
	logger.Info("Catalog loaded", "products", cat.Stats().Total, "override", cfg.CatalogPath != "")

	// Initialize object storage
	store, err := storage.New(storage.Config{
		Provider: cfg.StorageProvider,
		Local:    storage.LocalConfig{BasePath: cfg.LocalStoragePath},
		R2: storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info("Storage ready", "provider", cfg.StorageProvider)

	// Initialize lead submitter
	var submitter leadapi.Submitter
	switch cfg.LeadProvider {
	case "http":
		submitter = leadapi.NewClient(leadapi.ClientConfig{
			Endpoint: cfg.LeadEndpointURL,
			APIKey:   cfg.LeadAPIKey,
			Timeout:  cfg.LeadTimeout,
		}, logger)
	default:
		submitter = mock.New(logger)
		logger.Warn("Using mock lead provider, leads are not forwarded")
	}

	// Initialize rate limiter
	limiter, closeLimiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	// Initialize template renderer
	renderer, err := handler.NewRenderer(handler.RendererConfig{
		FS:           web.Templates(),
		TemplatesDir: cfg.TemplatesDir,
		Logger:       logger,
		IsDev:        cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("renderer initialization failed: %w", err)
	}
	logger.Info("Templates loaded", "count", len(renderer.ListTemplates()))

	// Initialize services
	calculatorService := service.NewCalculatorService(cat, cfg.DefaultMaxOrderQuantity, logger)
	leadService := service.NewLeadService(submitter, store, logger)
	imageService := service.NewImageService(cat, store, service.NewImagingProcessor(), service.ImageServiceConfig{
		AllowedHosts: cfg.ImageHosts,
		FetchTimeout: cfg.ImageFetchTimeout,
	}, logger)

	// Initialize middleware
	leadLimit := middleware.NewRateLimitMiddleware(limiter, "lead", logger).Limit
	metricsAuth := middleware.NewBasicAuth("metrics", cfg.MetricsUsername, cfg.MetricsPassword, logger)
	requestLogging := middleware.NewRequestLoggingMiddleware(logger)
	securityHeaders := middleware.NewSecurityHeadersMiddleware(cfg.SecureCookies, cfg.ImageHosts)

	// Initialize handlers
	pageHandler := handler.NewPageHandler(cat, calculatorService, imageService, renderer, logger)
	leadHandler := handler.NewLeadHandler(leadService, calculatorService, renderer, logger, cfg.SecureCookies)
	apiHandler := handler.NewAPIHandler(cat, calculatorService, leadService, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Static files
	staticFS := http.FileServerFS(web.Static())
	mux.Handle("GET /static/", http.StripPrefix("/static/", staticFS))

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Prometheus metrics
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	pageHandler.RegisterRoutes(mux)
	leadHandler.RegisterRoutes(mux, leadLimit)
	apiHandler.RegisterRoutes(mux, leadLimit)

	// Outermost first: metrics see every request, including rejected ones
	global := middleware.Stack(
		metrics.Middleware,
		requestLogging.Handler,
		securityHeaders.Handler,
	)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           global(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env, "lead_provider", cfg.LeadProvider)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// newLimiter shares the lead rate limit through Redis when REDIS_URL is
// set, and keeps it in memory otherwise.
func newLimiter(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (middleware.Limiter, func(), error) {
	if cfg.RedisURL == "" {
		limiter := middleware.NewMemoryLimiter(cfg.LeadRateLimit, cfg.LeadRateWindow)
		logger.Info("Rate limiter ready", "backend", "memory", "limit", cfg.LeadRateLimit, "window", cfg.LeadRateWindow)
		return limiter, limiter.Close, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("Rate limiter ready", "backend", "redis", "limit", cfg.LeadRateLimit, "window", cfg.LeadRateWindow)
	limiter := middleware.NewRedisLimiter(client, "", cfg.LeadRateLimit, cfg.LeadRateWindow)
	return limiter, func() { _ = client.Close() }, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
