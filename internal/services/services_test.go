package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/warbler/warbler/internal/config"
	"github.com/warbler/warbler/internal/models"
	"github.com/warbler/warbler/internal/repository"
	"github.com/warbler/warbler/internal/services"
	"github.com/warbler/warbler/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// env bundles services over a fresh in-memory database. Kafka producer and
// redis cache are nil; the services treat both as optional.
type env struct {
	db       *gorm.DB
	users    *services.UserService
	graph    *services.GraphService
	messages *services.MessageService
	timeline *services.TimelineService

	userRepo    *repository.UserRepository
	followRepo  *repository.FollowRepository
	messageRepo *repository.MessageRepository
	likeRepo    *repository.LikeRepository
}

func setupEnv(t *testing.T) *env {
	t.Helper()

	// A named shared-cache DB so every pooled connection sees the same
	// schema; the name keeps parallel tests apart.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	log := logger.NewLoggerWithLevel("error")

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	feedCfg := &config.FeedConfig{HomeLimit: 100}

	return &env{
		db:          db,
		users:       services.NewUserService(userRepo, nil, log),
		graph:       services.NewGraphService(userRepo, followRepo, nil, log),
		messages:    services.NewMessageService(messageRepo, likeRepo, userRepo, nil, log),
		timeline:    services.NewTimelineService(messageRepo, userRepo, nil, feedCfg, log),
		userRepo:    userRepo,
		followRepo:  followRepo,
		messageRepo: messageRepo,
		likeRepo:    likeRepo,
	}
}

func (e *env) createUser(t *testing.T, username string) *models.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(hashed),
	}
	require.NoError(t, e.userRepo.Create(context.Background(), user))
	return user
}

func (e *env) postWarble(t *testing.T, author *models.User, text string) *models.Message {
	t.Helper()

	message, err := e.messages.Post(context.Background(), author.ID.String(),
		&services.CreateMessageRequest{Text: text})
	require.NoError(t, err)
	return message
}

func (e *env) countFollows(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&models.Follow{}).Count(&count).Error)
	return count
}

func (e *env) countLikes(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&models.Like{}).Count(&count).Error)
	return count
}
