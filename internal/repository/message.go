package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/warbler/warbler/internal/models"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).
		Preload("User").
		First(&message, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &message, nil
}

// Delete removes the message and its likes in one transaction.
func (r *MessageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Message{}, "id = ?", id).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// GetByUserID returns the user's messages, newest first. Equal timestamps
// fall back to id so pagination stays deterministic.
func (r *MessageRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Message, error) {
	var messages []*models.Message
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to get messages by user: %w", err)
	}
	return messages, nil
}

// GetHomeFeed returns messages authored by the viewer or anyone the viewer
// follows, newest first.
func (r *MessageRepository) GetHomeFeed(ctx context.Context, viewerID uuid.UUID, limit int) ([]*models.Message, error) {
	var messages []*models.Message
	following := r.db.Model(&models.Follow{}).
		Select("followed_id").
		Where("follower_id = ?", viewerID)

	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ? OR user_id IN (?)", viewerID, following).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to get home feed: %w", err)
	}
	return messages, nil
}

func (r *MessageRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}
