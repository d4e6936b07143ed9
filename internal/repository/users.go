package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"photogram/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	// CreateIfAbsent inserta salvo que choque con algún índice único; false si no insertó.
	CreateIfAbsent(ctx context.Context, user *models.User) (bool, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByFederatedID(ctx context.Context, federatedID string) (*models.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
	// LinkFederated asocia la identidad solo si la fila del email no tiene otra; true si enlazó.
	LinkFederated(ctx context.Context, email, federatedID string) (bool, error)
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	SetActive(ctx context.Context, id string, active bool) error
	Search(ctx context.Context, query, excludeID string, limit int) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", translate(err))
	}
	return nil
}

func (r *userRepository) CreateIfAbsent(ctx context.Context, user *models.User) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(user)
	if res.Error != nil {
		return false, fmt.Errorf("create user if absent: %w", translate(res.Error))
	}
	return res.RowsAffected == 1, nil
}

func (r *userRepository) findOne(ctx context.Context, what string, query string, args ...any) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if err != nil {
		return nil, fmt.Errorf("find user by %s: %w", what, translate(err))
	}
	return &user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, "id", "id = ?", id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email", "email = ?", email)
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username", "username = ?", username)
}

func (r *userRepository) FindByFederatedID(ctx context.Context, federatedID string) (*models.User, error) {
	return r.findOne(ctx, "federated id", "federated_id = ?", federatedID)
}

func (r *userRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? OR username = ?", email, username).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return n > 0, nil
}

func (r *userRepository) LinkFederated(ctx context.Context, email, federatedID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? AND federated_id IS NULL", email).
		Updates(map[string]any{"federated_id": federatedID, "is_active": true})
	if res.Error != nil {
		return false, fmt.Errorf("link federated identity: %w", translate(res.Error))
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update user %s: %w", id, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update user %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *userRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.UpdateFields(ctx, id, map[string]any{"is_active": active})
}

// Search busca por subcadena en username o name, sin distinguir mayúsculas.
func (r *userRepository) Search(ctx context.Context, query, excludeID string, limit int) ([]models.User, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("id <> ? AND is_active = ?", excludeID, true).
		Where(`(LOWER(username) LIKE ? ESCAPE '\' OR LOWER(name) LIKE ? ESCAPE '\')`, pattern, pattern).
		Order("username").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return users, nil
}
