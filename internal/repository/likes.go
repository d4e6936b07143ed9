package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"photogram/internal/models"
)

type LikeRepository interface {
	// Create devuelve ErrDuplicate si el usuario ya dio like al post.
	Create(ctx context.Context, like *models.Like) error
	Delete(ctx context.Context, userID, postID string) (bool, error)
}

type likeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Create(ctx context.Context, like *models.Like) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(like).Error; err != nil {
		return fmt.Errorf("create like: %w", translate(err))
	}
	return nil
}

func (r *likeRepository) Delete(ctx context.Context, userID, postID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Like{})
	if res.Error != nil {
		return false, fmt.Errorf("delete like: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
