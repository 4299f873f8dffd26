package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/warbler/warbler/internal/config"
	"github.com/warbler/warbler/internal/handlers"
	"github.com/warbler/warbler/internal/middleware"
	"github.com/warbler/warbler/internal/repository"
	"github.com/warbler/warbler/internal/services"
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
	logger.Info("Starting Warbler API server...")

	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

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

	userEventsProducer := queue.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.UserEvents)
	defer userEventsProducer.Close()

	feedEventsProducer := queue.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.FeedEvents)
	defer feedEventsProducer.Close()

	userRepo := repository.NewUserRepository(db.DB)
	followRepo := repository.NewFollowRepository(db.DB)
	messageRepo := repository.NewMessageRepository(db.DB)
	likeRepo := repository.NewLikeRepository(db.DB)

	userService := services.NewUserService(userRepo, userEventsProducer, logger)
	graphService := services.NewGraphService(userRepo, followRepo, feedEventsProducer, logger)
	messageService := services.NewMessageService(messageRepo, likeRepo, userRepo, feedEventsProducer, logger)
	timelineService := services.NewTimelineService(messageRepo, userRepo, redisClient, &cfg.Feed, logger)

	jwtConfig := &middleware.JWTConfig{
		Secret:      cfg.JWT.Secret,
		Revocations: redisClient,
	}
	tokenTTL := int64(cfg.JWT.ExpireTime / time.Second)

	userHandler := handlers.NewUserHandler(userService, graphService, messageService, jwtConfig, tokenTTL)
	messageHandler := handlers.NewMessageHandler(messageService, timelineService)
	feedHandler := handlers.NewFeedHandler(timelineService)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/users/register", userHandler.Register)
		api.POST("/users/login", userHandler.Login)
		api.GET("/users", userHandler.ListUsers)
		api.GET("/users/:id", userHandler.GetProfile)
		api.GET("/users/:id/warbles", messageHandler.GetUserWarbles)
		api.GET("/warbles/:id", messageHandler.GetWarble)

		protected := api.Group("")
		protected.Use(middleware.NewJWTAuth(jwtConfig))
		{
			protected.POST("/auth/logout", userHandler.Logout)

			protected.GET("/feed", feedHandler.GetHomeFeed)

			protected.GET("/users/:id/followers", userHandler.GetFollowers)
			protected.GET("/users/:id/following", userHandler.GetFollowing)
			protected.GET("/users/:id/likes", userHandler.GetLikes)
			protected.POST("/users/:id/follow", userHandler.Follow)
			protected.POST("/users/:id/unfollow", userHandler.Unfollow)
			protected.PUT("/users/profile", userHandler.UpdateProfile)
			protected.DELETE("/users/account", userHandler.DeleteAccount)

			protected.POST("/warbles", messageHandler.CreateWarble)
			protected.DELETE("/warbles/:id", messageHandler.DeleteWarble)
			protected.POST("/warbles/:id/like", messageHandler.LikeWarble)
			protected.DELETE("/warbles/:id/like", messageHandler.UnlikeWarble)
		}
	}

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func init() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.MkdirAll("configs", 0755); err != nil {
			log.Printf("Failed to create config directory: %v", err)
			return
		}
		if err := createDefaultConfig(configPath); err != nil {
			log.Printf("Failed to create default config: %v", err)
		}
	}
}

func createDefaultConfig(path string) error {
	defaultConfig := `server:
  port: ":8080"
  mode: "debug"
  read_timeout: 30s
  write_timeout: 30s

database:
  host: "localhost"
  port: 5432
  user: "warbler"
  password: "warbler"
  dbname: "warbler"
  sslmode: "disable"
  max_open_conns: 100
  max_idle_conns: 10

redis:
  host: "localhost"
  port: 6379
  password: ""
  db: 0
  pool_size: 100
  min_idle_conns: 10

kafka:
  brokers:
    - "localhost:9092"
  topics:
    user_events: "user-events"
    feed_events: "feed-events"

jwt:
  secret: "change-me-in-production"
  expire_time: 24h

feed:
  home_limit: 100
  cache_ttl: 5m

log:
  level: "info"`

	return os.WriteFile(path, []byte(defaultConfig), 0644)
}
