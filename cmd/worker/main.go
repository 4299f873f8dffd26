package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/warbler/warbler/internal/config"
	"github.com/warbler/warbler/internal/repository"
	"github.com/warbler/warbler/internal/services"
	"github.com/warbler/warbler/internal/workers"
	"github.com/warbler/warbler/pkg/cache"
	"github.com/warbler/warbler/pkg/logger"
	"github.com/warbler/warbler/pkg/queue"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logger.NewLoggerWithLevel(cfg.Log.Level)
	logger.Info("Starting Warbler feed worker...")

	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	redisClient := cache.NewRedisClient(
		cfg.Redis.Addr(),
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
		cfg.Redis.MinIdleConns,
	)
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}

	feedEventsConsumer := queue.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.FeedEvents, "warbler-feed-worker")

	userRepo := repository.NewUserRepository(db.DB)
	followRepo := repository.NewFollowRepository(db.DB)
	messageRepo := repository.NewMessageRepository(db.DB)

	timelineService := services.NewTimelineService(messageRepo, userRepo, redisClient, &cfg.Feed, logger)
	feedWorker := workers.NewFeedWorker(timelineService, followRepo, feedEventsConsumer, logger)

	go func() {
		if err := feedWorker.Start(ctx); err != nil && err != context.Canceled {
			logger.WithError(err).Error("Feed worker stopped with error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")

	if err := feedWorker.Stop(); err != nil {
		logger.WithError(err).Error("Failed to stop feed worker")
	}

	logger.Info("Worker exited")
}
