package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"photogram/internal/models"
)

// FollowCounts: followedBy = seguidores, following = seguidos.
type FollowCounts struct {
	FollowedBy int64
	Following  int64
}

type FollowRepository interface {
	// Create devuelve ErrDuplicate si la arista ya existe.
	Create(ctx context.Context, follow *models.Follow) error
	Delete(ctx context.Context, followerID, followedID string) (bool, error)
	Exists(ctx context.Context, followerID, followedID string) (bool, error)
	// FollowingSet indica cuáles de targetIDs sigue followerID.
	FollowingSet(ctx context.Context, followerID string, targetIDs []string) (map[string]bool, error)
	Counts(ctx context.Context, userID string) (FollowCounts, error)
	FollowerCounts(ctx context.Context, userIDs []string) (map[string]int64, error)
	Followers(ctx context.Context, userID string, page Page) ([]models.Follow, int64, error)
	Following(ctx context.Context, userID string, page Page) ([]models.Follow, int64, error)
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Create(ctx context.Context, follow *models.Follow) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(follow).Error; err != nil {
		return fmt.Errorf("create follow: %w", translate(err))
	}
	return nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followedID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return false, fmt.Errorf("delete follow: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followedID string) (bool, error) {
	set, err := r.FollowingSet(ctx, followerID, []string{followedID})
	if err != nil {
		return false, err
	}
	return set[followedID], nil
}

func (r *followRepository) FollowingSet(ctx context.Context, followerID string, targetIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(targetIDs))
	if followerID == "" || len(targetIDs) == 0 {
		return out, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id IN ?", followerID, targetIDs).
		Pluck("followed_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("load following set: %w", err)
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *followRepository) Counts(ctx context.Context, userID string) (FollowCounts, error) {
	var c FollowCounts
	q := r.db.WithContext(ctx).Model(&models.Follow{})
	err := q.Where("followed_id = ? AND follower_id IN (?)", userID, r.activeIDs(ctx)).Count(&c.FollowedBy).Error
	if err != nil {
		return c, fmt.Errorf("count followers: %w", err)
	}
	q = r.db.WithContext(ctx).Model(&models.Follow{})
	err = q.Where("follower_id = ? AND followed_id IN (?)", userID, r.activeIDs(ctx)).Count(&c.Following).Error
	if err != nil {
		return c, fmt.Errorf("count following: %w", err)
	}
	return c, nil
}

func (r *followRepository) FollowerCounts(ctx context.Context, userIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []countRow
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Select("followed_id AS ref, COUNT(*) AS n").
		Where("followed_id IN ? AND follower_id IN (?)", userIDs, r.activeIDs(ctx)).
		Group("followed_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count followers by user: %w", err)
	}
	for _, row := range rows {
		out[row.Ref] = row.N
	}
	return out, nil
}

func (r *followRepository) Followers(ctx context.Context, userID string, page Page) ([]models.Follow, int64, error) {
	return r.list(ctx, "followed_id", "follower_id", "Follower", userID, page)
}

func (r *followRepository) Following(ctx context.Context, userID string, page Page) ([]models.Follow, int64, error) {
	return r.list(ctx, "follower_id", "followed_id", "Followed", userID, page)
}

// list pagina aristas filtrando por column y precarga el extremo opuesto,
// omitiendo las aristas cuyo extremo opuesto está desactivado.
func (r *followRepository) list(ctx context.Context, column, other, preload, userID string, page Page) ([]models.Follow, int64, error) {
	where := column + " = ? AND " + other + " IN (?)"
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).Where(where, userID, r.activeIDs(ctx)).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count %s edges: %w", column, err)
	}
	var edges []models.Follow
	err := r.db.WithContext(ctx).
		Preload(preload).
		Where(where, userID, r.activeIDs(ctx)).
		Order(newestFirst).
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&edges).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list %s edges: %w", column, err)
	}
	return edges, total, nil
}

// activeIDs es la subconsulta de ids de usuarios activos.
func (r *followRepository) activeIDs(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{}).Select("id").Where("is_active = ?", true)
}
