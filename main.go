package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/broadcast"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/config"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/handler"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/middleware"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/repository"
	"github.com/13jisse-music/ChanteEnScene-sub000/internal/service"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/database"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/logger"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/metrics"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/redis"
)

// Resources holds all resources that need cleanup
type Resources struct {
	db          *database.PostgresDB
	redisClient *redis.Client
	hub         *broadcast.Hub
	tracker     *broadcast.Tracker
	reveal      *service.RevealService
	server      *http.Server
	log         *logger.Logger
	mu          sync.Mutex
	closed      bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errors []error

	r.log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first to stop accepting new requests
	if r.server != nil {
		r.log.Info("Shutting down HTTP server...")
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errors = append(errors, fmt.Errorf("HTTP server shutdown: %w", err))
		} else {
			r.log.Info("HTTP server shutdown complete")
		}
	}

	// Stop the reveal ceremony timers and the realtime fan-out
	if r.reveal != nil {
		r.reveal.Close()
	}
	if r.tracker != nil {
		r.tracker.Close()
	}
	if r.hub != nil {
		r.hub.Close()
	}

	// Close Redis connection
	if r.redisClient != nil {
		r.log.Info("Closing Redis connection...")
		if err := r.redisClient.Close(); err != nil {
			r.log.WithError(err).Error("Failed to close Redis connection")
			errors = append(errors, fmt.Errorf("Redis close: %w", err))
		} else {
			r.log.Info("Redis connection closed successfully")
		}
	}

	// Close database connection pool
	if r.db != nil {
		r.log.Info("Closing database connection pool...")
		r.db.Close()
		r.log.Info("Database connection pool closed successfully")
	}

	if len(errors) > 0 {
		r.log.WithField("error_count", len(errors)).Error("Cleanup completed with errors")
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errors), errors)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Starting live contest server")

	// Initialize database connection
	ctx := context.Background()
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	// Initialize Redis connection
	redisClient, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}

	// Initialize repositories, metrics and services
	repos := repository.NewRepositories(db)
	m := metrics.New(prometheus.DefaultRegisterer)

	broadcaster := broadcast.NewBroadcaster(redisClient, m, log.Logger)
	hub := broadcast.NewHub(redisClient, m, log.Logger)
	tracker := broadcast.NewTracker(broadcaster, cfg.HeartbeatTimeout, log.Logger)

	rankingService := service.NewRankingService(repos, redisClient, m, cfg, log.Logger)
	orchestratorService := service.NewOrchestratorService(repos, rankingService, broadcaster, m, log.Logger)
	ingestionService := service.NewIngestionService(repos, rankingService, orchestratorService, redisClient, m, log.Logger)
	revealService := service.NewRevealService(repos, rankingService, orchestratorService, m, cfg.RevealCleanupDelay, log.Logger)

	// Setup router
	router := setupRouter(cfg, log, db, redisClient, broadcaster, hub, tracker,
		rankingService, ingestionService, orchestratorService, revealService)

	// Create HTTP server. The write timeout must stay generous enough for
	// long-lived SSE streams; streams are bounded by the client, not us.
	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   0,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Create resources manager for cleanup
	resources := &Resources{
		db:          db,
		redisClient: redisClient,
		hub:         hub,
		tracker:     tracker,
		reveal:      revealService,
		server:      server,
		log:         log,
	}

	// Setup graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	// Start server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server error occurred")
			serverErrChan <- err
		}
	}()

	// Wait for interrupt signal or server error
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	log.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(
	cfg *config.Config,
	log *logger.Logger,
	db *database.PostgresDB,
	redisClient *redis.Client,
	broadcaster *broadcast.Broadcaster,
	hub *broadcast.Hub,
	tracker *broadcast.Tracker,
	rankingService *service.RankingService,
	ingestionService *service.IngestionService,
	orchestratorService *service.OrchestratorService,
	revealService *service.RevealService,
) *chi.Mux {
	r := chi.NewRouter()

	// Setup CORS middleware
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins

	// Setup middlewares
	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RequestID(log))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))

	// Create handlers
	healthHandler := handler.NewHealthHandler(db, redisClient, log)
	adminHandler := handler.NewAdminHandler(orchestratorService, revealService, rankingService, broadcaster, log)
	juryHandler := handler.NewJuryHandler(ingestionService, log)
	votingHandler := handler.NewVotingHandler(ingestionService, log)
	liveHandler := handler.NewLiveHandler(orchestratorService, rankingService, broadcaster, hub, tracker, log)

	voteLimiter := middleware.NewRateLimiter(cfg.VoteRatePerSecond, cfg.VoteRateBurst, log)

	// Health check and metrics (no auth required)
	r.Get("/health", healthHandler.Check)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public follower surface. The SSE stream must not sit behind the
		// request timeout middleware.
		r.Route("/live", func(r chi.Router) {
			liveHandler.RegisterRoutes(r)
		})

		// Public voting, throttled per device
		r.Route("/votes", func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(60 * time.Second))
			r.Use(voteLimiter.Middleware)
			votingHandler.RegisterRoutes(r)
		})

		// Juror endpoints
		r.Route("/jury", func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(60 * time.Second))
			r.Use(middleware.Auth(cfg.JWTSecret, log))
			r.Use(middleware.RequireRole(middleware.RoleJury, log))
			juryHandler.RegisterRoutes(r)
		})

		// Control desk endpoints
		r.Route("/admin", func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(60 * time.Second))
			r.Use(middleware.Auth(cfg.JWTSecret, log))
			r.Use(middleware.RequireRole(middleware.RoleAdmin, log))
			adminHandler.RegisterRoutes(r)
		})
	})

	return r
}
