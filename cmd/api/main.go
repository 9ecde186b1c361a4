package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dkazakov/pipesentry/internal/adapters/cache"
	"github.com/dkazakov/pipesentry/internal/adapters/database"
	"github.com/dkazakov/pipesentry/internal/adapters/events"
	"github.com/dkazakov/pipesentry/internal/api/handlers"
	"github.com/dkazakov/pipesentry/internal/api/middleware"
	"github.com/dkazakov/pipesentry/internal/api/routes"
	"github.com/dkazakov/pipesentry/internal/application/services"
	"github.com/dkazakov/pipesentry/internal/domain/providers"
	"github.com/dkazakov/pipesentry/internal/infrastructure/clients/gemini"
	"github.com/dkazakov/pipesentry/internal/infrastructure/clients/postgres"
	"github.com/dkazakov/pipesentry/internal/infrastructure/clients/redis"
	"github.com/dkazakov/pipesentry/internal/infrastructure/observability"
	"github.com/dkazakov/pipesentry/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer pgClient.Close()
	log.Println("PostgreSQL client initialized successfully")

	// Initialize Redis client. The application degrades gracefully
	// without it: no response cache, no realtime events.
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to initialize Redis client: %v", err)
	} else {
		defer redisClient.Close()
		log.Println("Redis client initialized successfully")
	}

	// Initialize adapters
	objectAdapter := database.NewObjectAdapter(pgClient)
	diagnosticAdapter := database.NewDiagnosticAdapter(pgClient)
	planAdapter := database.NewPlanAdapter(pgClient)

	var cacheProvider providers.CacheProvider
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
	}

	var eventBus providers.EventBus
	if redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient)
		log.Println("Event bus initialized successfully")
	} else {
		log.Println("Event bus disabled (Redis not available)")
	}

	// Initialize the AI assessment client
	geminiClient, err := gemini.NewClient(&cfg.Gemini)
	if err != nil {
		log.Fatalf("Failed to initialize Gemini client: %v", err)
	}

	// Initialize services
	objectService := services.NewObjectService(objectAdapter, diagnosticAdapter)
	planService := services.NewPlanService(planAdapter, objectAdapter, eventBus)
	analysisService := services.NewAnalysisService(
		objectAdapter,
		diagnosticAdapter,
		planAdapter,
		geminiClient,
		eventBus,
	)
	importService := services.NewImportService(objectAdapter, diagnosticAdapter, eventBus, cfg.Import.MaxRows)

	// Initialize cache invalidation service
	var cacheInvalidationService *services.CacheInvalidationService
	if cacheProvider != nil && eventBus != nil {
		cacheInvalidationService = services.NewCacheInvalidationService(cacheProvider, eventBus)
		if err := cacheInvalidationService.Start(); err != nil {
			log.Printf("Warning: Failed to start cache invalidation service: %v", err)
		} else {
			log.Println("Cache invalidation service started successfully")
		}
	}

	// Initialize handlers
	objectHandler := handlers.NewObjectHandler(objectService)
	analysisHandler := handlers.NewAnalysisHandler(analysisService)
	planHandler := handlers.NewPlanHandler(planService)
	importHandler := handlers.NewImportHandler(importService, cfg.Import.MaxBodySize)
	sseHandler := handlers.NewSSEHandler(eventBus)

	// Initialize cache middleware
	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, metrics)
		log.Println("Cache middleware initialized successfully")
	}

	// Set up router
	router := routes.NewRouter(
		objectHandler,
		analysisHandler,
		planHandler,
		importHandler,
		sseHandler,
		cacheMiddleware,
		metrics,
	)

	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // batch analysis and SSE hold connections open
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Printf("Error closing event bus: %v", err)
		}
	}

	if cacheInvalidationService != nil {
		cacheInvalidationService.Stop()
	}

	log.Println("Server stopped")
}
