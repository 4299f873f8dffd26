package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/warbler/warbler/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LikeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

// Create inserts a like edge; a duplicate lands on the composite unique
// index and is dropped, so repeated likes leave exactly one edge.
func (r *LikeRepository) Create(ctx context.Context, like *models.Like) error {
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "message_id"}},
			DoNothing: true,
		}).
		Create(like).Error; err != nil {
		return fmt.Errorf("failed to create like: %w", err)
	}
	return nil
}

// Delete removes the edge if present; deleting an absent edge is a no-op.
func (r *LikeRepository) Delete(ctx context.Context, userID, messageID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Delete(&models.Like{}).Error; err != nil {
		return fmt.Errorf("failed to delete like: %w", err)
	}
	return nil
}

func (r *LikeRepository) Exists(ctx context.Context, userID, messageID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check like status: %w", err)
	}
	return count == 1, nil
}

// GetLikedMessages returns the messages the user has liked, newest like first.
func (r *LikeRepository) GetLikedMessages(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.Message, error) {
	var messages []*models.Message
	if err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Preload("User").
		Joins("JOIN likes ON likes.message_id = messages.id").
		Where("likes.user_id = ?", userID).
		Order("likes.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to get liked messages: %w", err)
	}
	return messages, nil
}

func (r *LikeRepository) CountByMessageID(ctx context.Context, messageID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("message_id = ?", messageID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return count, nil
}
