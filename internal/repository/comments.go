package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"photogram/internal/models"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	// FindByID carga también el post para comprobar su dueño.
	FindByID(ctx context.Context, id string) (*models.Comment, error)
	ListByPost(ctx context.Context, postID string, page Page) ([]models.Comment, int64, error)
	Delete(ctx context.Context, id string) error
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		return fmt.Errorf("create comment: %w", translate(err))
	}
	if err := r.db.WithContext(ctx).Where("id = ?", comment.UserID).First(&comment.User).Error; err != nil {
		return fmt.Errorf("load comment author: %w", translate(err))
	}
	return nil
}

func (r *commentRepository) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	var c models.Comment
	err := r.db.WithContext(ctx).Preload("Post").Where("id = ?", id).First(&c).Error
	if err != nil {
		return nil, fmt.Errorf("find comment %s: %w", id, translate(err))
	}
	return &c, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID string, page Page) ([]models.Comment, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}

	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order(newestFirst).
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&comments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}
	return comments, total, nil
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Comment{})
	if res.Error != nil {
		return fmt.Errorf("delete comment %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete comment %s: %w", id, ErrNotFound)
	}
	return nil
}
