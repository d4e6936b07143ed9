package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"photogram/internal/models"
)

// PostStats son los agregados que acompañan a cada post en las respuestas.
type PostStats struct {
	Likes    int64
	Comments int64
	Liked    bool
}

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id string) (*models.Post, error)
	// Delete borra el post con sus likes y comentarios en una transacción.
	Delete(ctx context.Context, id string) error
	Feed(ctx context.Context, viewerID string, page Page) ([]models.Post, int64, error)
	RecentByUser(ctx context.Context, userID string, limit int) ([]models.Post, error)
	CountByUsers(ctx context.Context, userIDs []string) (map[string]int64, error)
	Stats(ctx context.Context, viewerID string, postIDs []string) (map[string]PostStats, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return fmt.Errorf("create post: %w", translate(err))
	}
	if err := r.db.WithContext(ctx).Where("id = ?", post.UserID).First(&post.User).Error; err != nil {
		return fmt.Errorf("load post author: %w", translate(err))
	}
	return nil
}

func (r *postRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&post).Error
	if err != nil {
		return nil, fmt.Errorf("find post %s: %w", id, translate(err))
	}
	return &post, nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return fmt.Errorf("delete likes of post %s: %w", id, err)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments of post %s: %w", id, err)
		}
		res := tx.Where("id = ?", id).Delete(&models.Post{})
		if res.Error != nil {
			return fmt.Errorf("delete post %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("delete post %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// feedScope: posts del propio usuario y de los que sigue.
func (r *postRepository) feedScope(viewerID string) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		followed := r.db.Model(&models.Follow{}).Select("followed_id").Where("follower_id = ?", viewerID)
		return q.Where("user_id IN (?) OR user_id = ?", followed, viewerID)
	}
}

func (r *postRepository) Feed(ctx context.Context, viewerID string, page Page) ([]models.Post, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Scopes(r.feedScope(viewerID)).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count feed: %w", err)
	}

	var posts []models.Post
	err := r.db.WithContext(ctx).
		Scopes(r.feedScope(viewerID)).
		Preload("User").
		Order(newestFirst).
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("load feed: %w", err)
	}
	return posts, total, nil
}

func (r *postRepository) RecentByUser(ctx context.Context, userID string, limit int) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(newestFirst).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("recent posts of %s: %w", userID, err)
	}
	return posts, nil
}

type countRow struct {
	Ref string
	N   int64
}

func (r *postRepository) CountByUsers(ctx context.Context, userIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []countRow
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Select("user_id AS ref, COUNT(*) AS n").
		Where("user_id IN ?", userIDs).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count posts by user: %w", err)
	}
	for _, row := range rows {
		out[row.Ref] = row.N
	}
	return out, nil
}

// Stats calcula likes, comentarios y si viewerID dio like, para un lote de posts.
func (r *postRepository) Stats(ctx context.Context, viewerID string, postIDs []string) (map[string]PostStats, error) {
	out := make(map[string]PostStats, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}

	var likes, comments []countRow
	if err := r.db.WithContext(ctx).Model(&models.Like{}).
		Select("post_id AS ref, COUNT(*) AS n").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&likes).Error; err != nil {
		return nil, fmt.Errorf("count likes: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Select("post_id AS ref, COUNT(*) AS n").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&comments).Error; err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}

	var liked []string
	if viewerID != "" {
		if err := r.db.WithContext(ctx).Model(&models.Like{}).
			Where("user_id = ? AND post_id IN ?", viewerID, postIDs).
			Pluck("post_id", &liked).Error; err != nil {
			return nil, fmt.Errorf("load liked posts: %w", err)
		}
	}

	for _, id := range postIDs {
		out[id] = PostStats{}
	}
	for _, row := range likes {
		s := out[row.Ref]
		s.Likes = row.N
		out[row.Ref] = s
	}
	for _, row := range comments {
		s := out[row.Ref]
		s.Comments = row.N
		out[row.Ref] = s
	}
	for _, id := range liked {
		s := out[id]
		s.Liked = true
		out[id] = s
	}
	return out, nil
}
