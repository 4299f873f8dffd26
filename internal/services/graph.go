package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/warbler/warbler/internal/models"
	"github.com/warbler/warbler/internal/repository"
	"github.com/warbler/warbler/pkg/logger"
	"github.com/warbler/warbler/pkg/queue"
)

// GraphService owns the follow edges between users.
type GraphService struct {
	userRepo   *repository.UserRepository
	followRepo *repository.FollowRepository
	producer   *queue.KafkaProducer
	logger     *logger.Logger
}

func NewGraphService(userRepo *repository.UserRepository, followRepo *repository.FollowRepository, producer *queue.KafkaProducer, logger *logger.Logger) *GraphService {
	return &GraphService{
		userRepo:   userRepo,
		followRepo: followRepo,
		producer:   producer,
		logger:     logger,
	}
}

// Follow adds an edge from the actor to the target and returns the actor's
// updated following set. Following a user twice is a no-op success.
func (s *GraphService) Follow(ctx context.Context, actorID, targetID string) ([]*models.User, error) {
	actorUUID, err := parseActorID(actorID)
	if err != nil {
		return nil, err
	}

	targetUUID, err := uuid.Parse(targetID)
	if err != nil {
		return nil, models.NewValidationError("invalid target user ID")
	}

	if actorUUID == targetUUID {
		return nil, models.NewSelfReferenceError("you cannot follow yourself")
	}

	target, err := s.userRepo.GetByID(ctx, targetUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get target user: %w", err)
	}
	if target == nil {
		return nil, models.NewNotFoundError("user", targetID)
	}

	follow := &models.Follow{
		FollowerID: actorUUID,
		FollowedID: targetUUID,
	}

	if err := s.followRepo.Create(ctx, follow); err != nil {
		return nil, fmt.Errorf("failed to create follow: %w", err)
	}

	s.publish(ctx, actorID, queue.EventFollowCreated, queue.FollowEventData{
		FollowerID: actorID,
		FollowedID: targetID,
	})

	s.logger.WithFields(map[string]interface{}{
		"follower_id": actorID,
		"followed_id": targetID,
	}).Info("User followed")

	return s.followRepo.GetFollowing(ctx, actorUUID, 0, followPageLimit)
}

// Unfollow removes the edge if present. Removing an absent edge is a no-op
// success, mirroring idempotent-delete semantics.
func (s *GraphService) Unfollow(ctx context.Context, actorID, targetID string) error {
	actorUUID, err := parseActorID(actorID)
	if err != nil {
		return err
	}

	targetUUID, err := uuid.Parse(targetID)
	if err != nil {
		return models.NewValidationError("invalid target user ID")
	}

	if err := s.followRepo.Delete(ctx, actorUUID, targetUUID); err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}

	s.publish(ctx, actorID, queue.EventFollowDeleted, queue.FollowEventData{
		FollowerID: actorID,
		FollowedID: targetID,
	})

	s.logger.WithFields(map[string]interface{}{
		"follower_id": actorID,
		"followed_id": targetID,
	}).Info("User unfollowed")

	return nil
}

// IsFollowing reports whether a follows b.
func (s *GraphService) IsFollowing(ctx context.Context, a, b string) (bool, error) {
	aUUID, err := uuid.Parse(a)
	if err != nil {
		return false, models.NewValidationError("invalid user ID")
	}
	bUUID, err := uuid.Parse(b)
	if err != nil {
		return false, models.NewValidationError("invalid user ID")
	}

	return s.followRepo.Exists(ctx, aUUID, bUUID)
}

// IsFollowedBy reports whether a is followed by b.
func (s *GraphService) IsFollowedBy(ctx context.Context, a, b string) (bool, error) {
	return s.IsFollowing(ctx, b, a)
}

func (s *GraphService) GetFollowers(ctx context.Context, userID string, offset, limit int) ([]*models.User, error) {
	userUUID, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	followers, err := s.followRepo.GetFollowers(ctx, userUUID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get followers: %w", err)
	}
	return followers, nil
}

func (s *GraphService) GetFollowing(ctx context.Context, userID string, offset, limit int) ([]*models.User, error) {
	userUUID, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	following, err := s.followRepo.GetFollowing(ctx, userUUID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get following: %w", err)
	}
	return following, nil
}

const followPageLimit = 100

func (s *GraphService) requireUser(ctx context.Context, userID string) (uuid.UUID, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, models.NewValidationError("invalid user ID")
	}

	user, err := s.userRepo.GetByID(ctx, userUUID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return uuid.Nil, models.NewNotFoundError("user", userID)
	}
	return userUUID, nil
}

func (s *GraphService) publish(ctx context.Context, key string, eventType queue.EventType, data interface{}) {
	if s.producer == nil {
		return
	}

	event, err := queue.NewEvent(eventType, data)
	if err != nil {
		s.logger.WithError(err).Error("Failed to build event")
		return
	}
	if err := s.producer.Publish(ctx, key, event); err != nil {
		s.logger.WithError(err).WithField("event_type", eventType).Error("Failed to publish event")
	}
}

// parseActorID resolves the acting user, distinguishing "no actor at all"
// from a malformed ID.
func parseActorID(actorID string) (uuid.UUID, error) {
	if actorID == "" {
		return uuid.Nil, models.ErrUnauthenticated
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return uuid.Nil, models.NewValidationError("invalid actor ID")
	}
	return actorUUID, nil
}
