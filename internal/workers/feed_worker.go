package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/warbler/warbler/internal/repository"
	"github.com/warbler/warbler/internal/services"
	"github.com/warbler/warbler/pkg/logger"
	"github.com/warbler/warbler/pkg/queue"
)

// FeedWorker consumes mutation events and drops the cached home feeds they
// made stale. Feeds are recomputed lazily on the next read.
type FeedWorker struct {
	timelineService *services.TimelineService
	followRepo      *repository.FollowRepository
	consumer        *queue.KafkaConsumer
	logger          *logger.Logger
	cancel          context.CancelFunc
}

func NewFeedWorker(timelineService *services.TimelineService, followRepo *repository.FollowRepository, consumer *queue.KafkaConsumer, logger *logger.Logger) *FeedWorker {
	return &FeedWorker{
		timelineService: timelineService,
		followRepo:      followRepo,
		consumer:        consumer,
		logger:          logger,
	}
}

func (w *FeedWorker) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)

	w.logger.Info("Feed worker started")
	return w.consumer.Subscribe(ctx, func(event queue.Event) error {
		if err := w.handleEvent(ctx, event); err != nil {
			w.logger.WithError(err).WithField("event_type", event.Type).Error("Failed to handle event")
			return err
		}
		return nil
	})
}

func (w *FeedWorker) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	return w.consumer.Close()
}

func (w *FeedWorker) handleEvent(ctx context.Context, event queue.Event) error {
	switch event.Type {
	case queue.EventWarbleCreated, queue.EventWarbleDeleted:
		var data queue.WarbleEventData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("failed to decode warble event: %w", err)
		}
		// The author's own feed and every follower's feed show this warble.
		return w.invalidateAudience(ctx, data.UserID)

	case queue.EventFollowCreated, queue.EventFollowDeleted:
		var data queue.FollowEventData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("failed to decode follow event: %w", err)
		}
		// Only the follower's feed changes shape.
		return w.timelineService.InvalidateHomeFeeds(ctx, data.FollowerID)

	case queue.EventUserDeleted:
		var data queue.UserEventData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("failed to decode user event: %w", err)
		}
		return w.invalidateAudience(ctx, data.UserID)

	default:
		// Like events do not change feed membership or order.
		return nil
	}
}

func (w *FeedWorker) invalidateAudience(ctx context.Context, authorID string) error {
	authorUUID, err := uuid.Parse(authorID)
	if err != nil {
		return fmt.Errorf("invalid author ID in event: %w", err)
	}

	followerIDs, err := w.followRepo.GetFollowerIDs(ctx, authorUUID)
	if err != nil {
		return fmt.Errorf("failed to get followers: %w", err)
	}

	audience := make([]string, 0, len(followerIDs)+1)
	audience = append(audience, authorID)
	for _, id := range followerIDs {
		audience = append(audience, id.String())
	}

	return w.timelineService.InvalidateHomeFeeds(ctx, audience...)
}
