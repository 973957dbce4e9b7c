// cmd/historian/main.go is the asynchronous historian: it pops match events from the Redis queue and
// persists them to the match_moves table in batches.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/caro/internal/cache"
	"github.com/jason-s-yu/caro/internal/config"
	"github.com/jason-s-yu/caro/internal/database"
	"github.com/jason-s-yu/caro/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadHistorian()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel, cfg.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	queue := cache.NewEventQueue(rdb, cfg.MatchEventQueue)
	svc := historian.New(queue, store, logger, cfg.BatchSize, cfg.FlushInterval)

	logger.WithFields(logrus.Fields{"queue": queue.Name(), "batch": cfg.BatchSize}).Info("Historian started")
	if err := svc.Run(ctx); err != nil {
		logger.Errorf("historian stopped: %v", err)
	}
	logger.Info("Historian shutting down")
}
