// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/caro/internal/auth"
	"github.com/jason-s-yu/caro/internal/cache"
	"github.com/jason-s-yu/caro/internal/config"
	"github.com/jason-s-yu/caro/internal/database"
	"github.com/jason-s-yu/caro/internal/handlers"
	"github.com/jason-s-yu/caro/internal/lobby"
	"github.com/jason-s-yu/caro/internal/stats"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel, cfg.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := database.Migrate(cfg.PostgresDSN, logger); err != nil {
			logger.Fatalf("migration failed: %v", err)
		}
	}

	store, err := database.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer store.Close()

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	statsSvc := stats.New(store, cache.NewLeaderboardCache(rdb, cfg.LeaderboardCacheTTL), logger)

	sessions, err := auth.NewSessions(cfg.TokenExpire.Duration())
	if err != nil {
		logger.Fatalf("failed to init session keys: %v", err)
	}

	manager := lobby.NewManager(logger,
		lobby.WithStorage(statsSvc),
		lobby.WithEventPublisher(cache.NewEventQueue(rdb, cfg.MatchEventQueue)),
		lobby.WithDefaultTimeLimit(cfg.DefaultTurnTimeLimit),
	)

	srv := &handlers.Server{
		Manager:        manager,
		Accounts:       store,
		Stats:          statsSvc,
		Tokens:         sessions,
		Logger:         logger,
		OriginPatterns: cfg.AllowedOrigins,
		TokenMaxAge:    int(cfg.TokenExpire.Duration() / time.Second),
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Router(cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("shutdown: %v", err)
		}
		if err := manager.Drain(shutdownCtx); err != nil {
			logger.Warnf("pending match writes not flushed: %v", err)
		}
	}()

	logger.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "queue": cfg.MatchEventQueue}).Info("Running")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
}
