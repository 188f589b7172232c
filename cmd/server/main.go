package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/solvedigitale/Digitext-last/internal/api"
	"github.com/solvedigitale/Digitext-last/internal/config"
	"github.com/solvedigitale/Digitext-last/internal/graph"
	"github.com/solvedigitale/Digitext-last/internal/handlers"
	"github.com/solvedigitale/Digitext-last/internal/relay"
	"github.com/solvedigitale/Digitext-last/internal/state"
	"github.com/solvedigitale/Digitext-last/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Initialize the account store: PostgreSQL when configured, SQLite
	// otherwise.
	var accounts store.AccountStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		accounts = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		accounts = sqliteStore
		logger.Info().Msg("using SQLite account store")
	}
	defer accounts.Close()

	// Initialize Redis (optional: redelivery dedupe and rate limiting)
	var redisStore *store.RedisStore
	var deduper store.Deduper
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		deduper = redisStore
		logger.Info().Msg("connected to Redis")
	} else {
		deduper = store.NewMemoryDeduper()
		logger.Info().Msg("redis not configured, using in-memory dedupe")
	}

	// Seed conversation state with persisted accounts
	conv := state.NewConversationStore()
	seeded, err := accounts.ListAccounts(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("account load failed")
	}
	for _, a := range seeded {
		conv.AddAccount(a)
	}
	logger.Info().Int("accounts", len(seeded)).Msg("conversation state seeded")

	// Create the relay hub and handler
	hub := relay.NewHub(logger)
	graphClient := graph.NewClient(cfg.GraphAPIBaseURL)
	h := handlers.NewHandler(cfg, accounts, redisStore, conv, hub, deduper, graphClient, logger)

	// Create router
	router := api.NewRouter(cfg, logger, h, hub, redisStore)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting Digitext relay server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Disconnect websocket clients, then drain HTTP with a 30 second timeout
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
