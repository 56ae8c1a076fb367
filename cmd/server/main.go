package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/CragHollow/deckforge/internal/config"
	"github.com/CragHollow/deckforge/internal/database"
	"github.com/CragHollow/deckforge/internal/handlers"
	"github.com/CragHollow/deckforge/internal/logging"
	"github.com/CragHollow/deckforge/internal/middleware"
	"github.com/CragHollow/deckforge/internal/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	// Initialize logger
	logger := logging.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
		logger.Debug("Debug logging enabled", map[string]interface{}{
			"env": cfg.Server.Environment,
		})
	}

	logger.Info("Starting Deckforge server...")

	// Connect to PostgreSQL
	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Run migrations
	logger.Info("Running database migrations...")
	migrator, err := database.NewMigrator(cfg.Database.DSN(), "migrations")
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()
	logger.Info("Migrations completed")

	// Connect to Redis
	logger.Info("Connecting to Redis", map[string]interface{}{
		"addr": cfg.Redis.Addr(),
	})
	redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()
	logger.Info("Connected to Redis")

	// Initialize services
	dbAdapter := services.NewPoolAdapter(db.Pool)
	redisAdapter := services.NewRedisAdapter(redisDB.Client)

	guestDecks := services.NewGuestDeckService(
		services.WithGuestDeckTTL(cfg.GuestDecks.TTL),
		services.WithGuestDeckSweepInterval(cfg.GuestDecks.SweepInterval),
	)
	defer guestDecks.Destroy()

	sessionService := services.NewSessionService(redisAdapter)
	catalogService := services.NewCatalogService(dbAdapter)
	shareService := services.NewDeckShareService(dbAdapter)
	prefService := services.NewPreferenceService(dbAdapter)

	// Durable deck storage is supplied by the hosting deployment; without it,
	// non-guest deck ids resolve to not found.
	var deckStore services.DeckStore

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisDB)
	deckHandler := handlers.NewDeckHandler(guestDecks, deckStore)
	shareHandler := handlers.NewShareHandler(shareService, guestDecks, deckStore)
	prefHandler := handlers.NewPreferenceHandler(prefService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)

	// Initialize middleware
	identity := middleware.NewIdentityMiddleware(sessionService, shareService, cfg.Server.Secure)
	requestLogger := middleware.NewRequestLogger(logger)

	mutationRateLimit := resolveMutationRateLimit(cfg, logger, os.LookupEnv)
	mutationLimiter := middleware.NewRateLimiter(redisDB.Client, mutationRateLimit, time.Minute, "ratelimit:mutation:", middleware.GetClientIP, true)
	limit := mutationLimiter.Middleware

	// Set up router
	mux := http.NewServeMux()

	// Health endpoints (no auth, no rate limit)
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)

	// Deck endpoints
	mux.Handle("POST /api/decks", limit(http.HandlerFunc(deckHandler.Create)))
	mux.Handle("GET /api/decks", http.HandlerFunc(deckHandler.List))
	mux.Handle("DELETE /api/decks", limit(http.HandlerFunc(deckHandler.Cleanup)))
	mux.Handle("GET /api/decks/stats", http.HandlerFunc(deckHandler.Stats))
	mux.Handle("GET /api/decks/{id}", http.HandlerFunc(deckHandler.Get))
	mux.Handle("PUT /api/decks/{id}", limit(http.HandlerFunc(deckHandler.Update)))
	mux.Handle("DELETE /api/decks/{id}", limit(http.HandlerFunc(deckHandler.Delete)))

	// Share endpoints
	mux.Handle("POST /api/decks/{id}/share", limit(http.HandlerFunc(shareHandler.Create)))
	mux.Handle("GET /api/decks/{id}/share", http.HandlerFunc(shareHandler.Status))
	mux.Handle("DELETE /api/decks/{id}/share", limit(http.HandlerFunc(shareHandler.Revoke)))
	mux.Handle("GET /api/share/{token}", http.HandlerFunc(shareHandler.Resolve))

	// Preference endpoints
	mux.Handle("PUT /api/decks/{id}/preferences/sections", limit(http.HandlerFunc(prefHandler.SaveSections)))
	mux.Handle("GET /api/decks/{id}/preferences/sections", http.HandlerFunc(prefHandler.GetSections))
	mux.Handle("PUT /api/decks/{id}/preferences/layout", limit(http.HandlerFunc(prefHandler.SaveLayout)))
	mux.Handle("GET /api/decks/{id}/preferences/layout", http.HandlerFunc(prefHandler.GetLayout))

	// Catalog endpoints
	mux.Handle("GET /api/cards", http.HandlerFunc(catalogHandler.ListCards))
	mux.Handle("GET /api/cards/sets", http.HandlerFunc(catalogHandler.ListSets))
	mux.Handle("GET /api/cards/{id}", http.HandlerFunc(catalogHandler.GetCard))

	// Build middleware chain (order matters: outermost first)
	var handler http.Handler = mux
	handler = identity.Resolve(handler)
	handler = requestLogger.Apply(handler)

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")
		guestDecks.Destroy()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr": addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

func resolveMutationRateLimit(cfg *config.Config, logger *logging.Logger, lookupEnv func(string) (string, bool)) int64 {
	rateLimit := int64(120)
	if cfg.Server.Environment == "development" {
		rateLimit = 1000
		logger.Info("Using development mutation rate limit", map[string]interface{}{"limit": rateLimit})
	}
	if v, ok := lookupEnv("MUTATION_RATE_LIMIT"); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			rateLimit = parsed
			logger.Info("Using mutation rate limit from env", map[string]interface{}{"limit": rateLimit})
		} else {
			logger.Warn("Invalid MUTATION_RATE_LIMIT; using default", map[string]interface{}{
				"value": v,
				"limit": rateLimit,
			})
		}
	}
	return rateLimit
}
