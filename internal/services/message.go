package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/warbler/warbler/internal/models"
	"github.com/warbler/warbler/internal/repository"
	"github.com/warbler/warbler/pkg/logger"
	"github.com/warbler/warbler/pkg/queue"
)

// MessageService owns warbles and their like edges.
type MessageService struct {
	messageRepo *repository.MessageRepository
	likeRepo    *repository.LikeRepository
	userRepo    *repository.UserRepository
	producer    *queue.KafkaProducer
	logger      *logger.Logger
}

func NewMessageService(messageRepo *repository.MessageRepository, likeRepo *repository.LikeRepository, userRepo *repository.UserRepository, producer *queue.KafkaProducer, logger *logger.Logger) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		likeRepo:    likeRepo,
		userRepo:    userRepo,
		producer:    producer,
		logger:      logger,
	}
}

type CreateMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *MessageService) Post(ctx context.Context, actorID string, req *CreateMessageRequest) (*models.Message, error) {
	actorUUID, err := parseActorID(actorID)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, models.NewValidationError("warble text must not be empty")
	}
	if utf8.RuneCountInString(text) > models.MaxMessageLength {
		return nil, models.NewValidationError(
			fmt.Sprintf("warble text must be at most %d characters", models.MaxMessageLength))
	}

	message := &models.Message{
		UserID: actorUUID,
		Text:   text,
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	s.publish(ctx, actorID, queue.EventWarbleCreated, queue.WarbleEventData{
		MessageID: message.ID.String(),
		UserID:    actorID,
		CreatedAt: message.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})

	s.logger.WithFields(map[string]interface{}{
		"message_id": message.ID,
		"user_id":    actorID,
	}).Info("Warble posted")

	return message, nil
}

func (s *MessageService) Get(ctx context.Context, messageID string) (*models.Message, error) {
	messageUUID, err := uuid.Parse(messageID)
	if err != nil {
		return nil, models.NewValidationError("invalid message ID")
	}

	message, err := s.messageRepo.GetByID(ctx, messageUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	if message == nil {
		return nil, models.NewNotFoundError("message", messageID)
	}
	return message, nil
}

// Delete removes a warble. Only the author may delete it; the message's
// likes go with it in the same transaction.
func (s *MessageService) Delete(ctx context.Context, actorID, messageID string) error {
	actorUUID, err := parseActorID(actorID)
	if err != nil {
		return err
	}

	message, err := s.Get(ctx, messageID)
	if err != nil {
		return err
	}

	if message.UserID != actorUUID {
		return models.NewForbiddenError("only the author can delete a warble")
	}

	if err := s.messageRepo.Delete(ctx, message.ID); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	s.publish(ctx, actorID, queue.EventWarbleDeleted, queue.WarbleEventData{
		MessageID: messageID,
		UserID:    actorID,
	})

	s.logger.WithFields(map[string]interface{}{
		"message_id": messageID,
		"user_id":    actorID,
	}).Info("Warble deleted")

	return nil
}

// Like marks a warble as liked by the actor. Liking your own warble is
// rejected; liking twice leaves exactly one edge.
func (s *MessageService) Like(ctx context.Context, actorID, messageID string) error {
	actorUUID, err := parseActorID(actorID)
	if err != nil {
		return err
	}

	message, err := s.Get(ctx, messageID)
	if err != nil {
		return err
	}

	if message.UserID == actorUUID {
		return models.NewSelfReferenceError("you cannot like your own warble")
	}

	like := &models.Like{
		UserID:    actorUUID,
		MessageID: message.ID,
	}

	if err := s.likeRepo.Create(ctx, like); err != nil {
		return fmt.Errorf("failed to create like: %w", err)
	}

	s.publish(ctx, actorID, queue.EventLikeCreated, queue.LikeEventData{
		UserID:    actorID,
		MessageID: messageID,
	})

	s.logger.WithFields(map[string]interface{}{
		"user_id":    actorID,
		"message_id": messageID,
	}).Info("Warble liked")

	return nil
}

// Unlike removes the like edge if present; an absent edge is a no-op success.
func (s *MessageService) Unlike(ctx context.Context, actorID, messageID string) error {
	actorUUID, err := parseActorID(actorID)
	if err != nil {
		return err
	}

	messageUUID, err := uuid.Parse(messageID)
	if err != nil {
		return models.NewValidationError("invalid message ID")
	}

	if err := s.likeRepo.Delete(ctx, actorUUID, messageUUID); err != nil {
		return fmt.Errorf("failed to delete like: %w", err)
	}

	s.publish(ctx, actorID, queue.EventLikeDeleted, queue.LikeEventData{
		UserID:    actorID,
		MessageID: messageID,
	})

	return nil
}

// GetLikedMessages returns the warbles the user has liked.
func (s *MessageService) GetLikedMessages(ctx context.Context, userID string, offset, limit int) ([]*models.Message, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, models.NewValidationError("invalid user ID")
	}

	messages, err := s.likeRepo.GetLikedMessages(ctx, userUUID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get liked messages: %w", err)
	}
	return messages, nil
}

func (s *MessageService) IsLiked(ctx context.Context, userID, messageID string) (bool, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return false, models.NewValidationError("invalid user ID")
	}
	messageUUID, err := uuid.Parse(messageID)
	if err != nil {
		return false, models.NewValidationError("invalid message ID")
	}

	return s.likeRepo.Exists(ctx, userUUID, messageUUID)
}

func (s *MessageService) GetLikeCount(ctx context.Context, messageID string) (int64, error) {
	messageUUID, err := uuid.Parse(messageID)
	if err != nil {
		return 0, models.NewValidationError("invalid message ID")
	}

	count, err := s.likeRepo.CountByMessageID(ctx, messageUUID)
	if err != nil {
		return 0, fmt.Errorf("failed to get like count: %w", err)
	}
	return count, nil
}

func (s *MessageService) publish(ctx context.Context, key string, eventType queue.EventType, data interface{}) {
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
