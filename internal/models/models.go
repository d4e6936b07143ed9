package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base aporta id UUID y timestamps a todas las tablas.
type Base struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (b *Base) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

type User struct {
	Base
	Username     string    `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash *string   `gorm:"size:255" json:"-"` // NULL solo en cuentas federadas
	Name         string    `gorm:"size:128;not null" json:"name"`
	Bio          string    `gorm:"type:text" json:"bio"`
	ProfileImage string    `gorm:"size:512" json:"profileImage"`
	FederatedID  *string   `gorm:"size:128;uniqueIndex" json:"-"`
	IsActive     bool      `gorm:"not null;default:true" json:"isActive"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasPassword indica si la cuenta admite login por contraseña.
func (u *User) HasPassword() bool { return u.PasswordHash != nil && *u.PasswordHash != "" }

type Post struct {
	Base
	UserID    string    `gorm:"size:36;not null;index" json:"userId"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ImageURL  string    `gorm:"size:1024;not null" json:"imageUrl"`
	Caption   *string   `gorm:"type:text" json:"caption"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Like struct {
	Base
	UserID string `gorm:"size:36;not null;uniqueIndex:idx_likes_user_post" json:"userId"`
	PostID string `gorm:"size:36;not null;uniqueIndex:idx_likes_user_post;index" json:"postId"`
	User   User   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Post   Post   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type Comment struct {
	Base
	Content   string    `gorm:"type:text;not null" json:"content"`
	UserID    string    `gorm:"size:36;not null;index" json:"userId"`
	PostID    string    `gorm:"size:36;not null;index" json:"postId"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Post      Post      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Follow es la arista dirigida follower -> followed.
type Follow struct {
	Base
	FollowerID string `gorm:"size:36;not null;uniqueIndex:idx_follows_pair;check:chk_follows_not_self,follower_id <> followed_id" json:"followerId"`
	FollowedID string `gorm:"size:36;not null;uniqueIndex:idx_follows_pair;index" json:"followingId"`
	Follower   User   `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	Followed   User   `gorm:"foreignKey:FollowedID;constraint:OnDelete:CASCADE" json:"-"`
}

// All lista los modelos en orden de migración.
func All() []any {
	return []any{&User{}, &Post{}, &Like{}, &Comment{}, &Follow{}}
}
