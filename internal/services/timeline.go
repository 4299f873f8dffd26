package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/warbler/warbler/internal/config"
	"github.com/warbler/warbler/internal/models"
	"github.com/warbler/warbler/internal/repository"
	"github.com/warbler/warbler/pkg/cache"
	"github.com/warbler/warbler/pkg/logger"
)

// TimelineService composes feeds from messages filtered through the follow
// graph. Home feeds are cached in redis; a stale read within the cache TTL
// is acceptable, and the worker deletes affected entries on mutation events.
type TimelineService struct {
	messageRepo *repository.MessageRepository
	userRepo    *repository.UserRepository
	cache       *cache.RedisClient
	config      *config.FeedConfig
	logger      *logger.Logger
}

func NewTimelineService(messageRepo *repository.MessageRepository, userRepo *repository.UserRepository, cacheClient *cache.RedisClient, cfg *config.FeedConfig, logger *logger.Logger) *TimelineService {
	return &TimelineService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		cache:       cacheClient,
		config:      cfg,
		logger:      logger,
	}
}

// HomeTimeline returns messages authored by the viewer or anyone the viewer
// follows, newest first, truncated to limit. An anonymous viewer gets an
// empty feed.
func (s *TimelineService) HomeTimeline(ctx context.Context, viewerID string, limit int) ([]*models.Message, error) {
	if viewerID == "" {
		return []*models.Message{}, nil
	}

	viewerUUID, err := uuid.Parse(viewerID)
	if err != nil {
		return nil, models.NewValidationError("invalid viewer ID")
	}

	if limit <= 0 || limit > s.config.HomeLimit {
		limit = s.config.HomeLimit
	}

	// Only the default page size goes through the cache, so each viewer
	// has a single cache entry the worker can invalidate.
	useCache := s.cache != nil && limit == s.config.HomeLimit
	cacheKey := HomeFeedKey(viewerID)

	if useCache {
		var cached []*models.Message
		if err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		} else if !cache.IsNil(err) {
			s.logger.WithError(err).Warn("Home feed cache read failed")
		}
	}

	messages, err := s.messageRepo.GetHomeFeed(ctx, viewerUUID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to compose home timeline: %w", err)
	}

	if useCache {
		if err := s.cache.SetJSON(ctx, cacheKey, messages, s.config.CacheTTL); err != nil {
			s.logger.WithError(err).Warn("Home feed cache write failed")
		}
	}

	return messages, nil
}

// UserTimeline returns all messages by one user, newest first, for profile
// pages. No follow-relationship filter.
func (s *TimelineService) UserTimeline(ctx context.Context, userID string, limit int) ([]*models.Message, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, models.NewValidationError("invalid user ID")
	}

	user, err := s.userRepo.GetByID(ctx, userUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, models.NewNotFoundError("user", userID)
	}

	if limit <= 0 || limit > s.config.HomeLimit {
		limit = s.config.HomeLimit
	}

	messages, err := s.messageRepo.GetByUserID(ctx, userUUID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to compose user timeline: %w", err)
	}
	return messages, nil
}

// InvalidateHomeFeeds drops cached home feeds for the given users.
func (s *TimelineService) InvalidateHomeFeeds(ctx context.Context, userIDs ...string) error {
	if s.cache == nil || len(userIDs) == 0 {
		return nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = HomeFeedKey(id)
	}
	return s.cache.Delete(ctx, keys...)
}

func HomeFeedKey(viewerID string) string {
	return fmt.Sprintf("feed:home:%s", viewerID)
}
