package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/warbler/warbler/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FollowRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) *FollowRepository {
	return &FollowRepository{db: db}
}

// Create inserts a follow edge. A concurrent duplicate insert lands on the
// composite unique index and is dropped, so the call is idempotent.
func (r *FollowRepository) Create(ctx context.Context, follow *models.Follow) error {
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "follower_id"}, {Name: "followed_id"}},
			DoNothing: true,
		}).
		Create(follow).Error; err != nil {
		return fmt.Errorf("failed to create follow: %w", err)
	}
	return nil
}

// Delete removes the edge if present; deleting an absent edge is a no-op.
func (r *FollowRepository) Delete(ctx context.Context, followerID, followedID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Follow{}).Error; err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}
	return nil
}

func (r *FollowRepository) Exists(ctx context.Context, followerID, followedID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check follow status: %w", err)
	}
	return count == 1, nil
}

func (r *FollowRepository) GetFollowers(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.User, error) {
	var users []*models.User
	if err := r.db.WithContext(ctx).
		Table("users").
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.followed_id = ?", userID).
		Offset(offset).
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get followers: %w", err)
	}
	return users, nil
}

func (r *FollowRepository) GetFollowing(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.User, error) {
	var users []*models.User
	if err := r.db.WithContext(ctx).
		Table("users").
		Joins("JOIN follows ON follows.followed_id = users.id").
		Where("follows.follower_id = ?", userID).
		Offset(offset).
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get following: %w", err)
	}
	return users, nil
}

func (r *FollowRepository) GetFollowerIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("followed_id = ?", userID).
		Pluck("follower_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get follower IDs: %w", err)
	}
	return ids, nil
}

func (r *FollowRepository) CountFollowers(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("followed_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}
	return count, nil
}

func (r *FollowRepository) CountFollowing(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count following: %w", err)
	}
	return count, nil
}
