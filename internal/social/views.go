package social

import (
	"time"

	"photogram/internal/models"
	"photogram/internal/repository"
)

// Author es el resumen de usuario que acompaña a posts y comentarios.
type Author struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage"`
}

type PostCount struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
}

type PostView struct {
	ID        string    `json:"id"`
	ImageURL  string    `json:"imageUrl"`
	Caption   *string   `json:"caption"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	User      Author    `json:"user"`
	IsLiked   bool      `json:"isLiked"`
	Count     PostCount `json:"_count"`
}

type FeedPage struct {
	Posts       []PostView `json:"posts"`
	CurrentPage int        `json:"currentPage"`
	TotalPages  int        `json:"totalPages"`
	TotalPosts  int64      `json:"totalPosts"`
}

type CommentView struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	UserID    string    `json:"userId"`
	PostID    string    `json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	User      Author    `json:"user"`
}

type CommentPage struct {
	Comments      []CommentView `json:"comments"`
	CurrentPage   int           `json:"currentPage"`
	TotalPages    int           `json:"totalPages"`
	TotalComments int64         `json:"totalComments"`
}

type ProfileCount struct {
	Posts      int64 `json:"posts"`
	FollowedBy int64 `json:"followedBy"`
	Following  int64 `json:"following"`
}

type ProfilePost struct {
	ID        string    `json:"id"`
	ImageURL  string    `json:"imageUrl"`
	Caption   *string   `json:"caption"`
	CreatedAt time.Time `json:"createdAt"`
	Count     PostCount `json:"_count"`
}

type ProfileView struct {
	ID           string        `json:"id"`
	Username     string        `json:"username"`
	Name         string        `json:"name"`
	Bio          string        `json:"bio"`
	ProfileImage string        `json:"profileImage"`
	CreatedAt    time.Time     `json:"createdAt"`
	Count        ProfileCount  `json:"_count"`
	Posts        []ProfilePost `json:"posts"`
	IsFollowing  bool          `json:"isFollowing"`
}

// MeView es el usuario autenticado; incluye email, que no sale en perfiles ajenos.
type MeView struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	Bio          string       `json:"bio"`
	ProfileImage string       `json:"profileImage"`
	CreatedAt    time.Time    `json:"createdAt"`
	Count        ProfileCount `json:"_count"`
}

type FollowUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	ProfileImage string    `json:"profileImage"`
	FollowID     string    `json:"followId"`
	FollowSince  time.Time `json:"followSince"`
}

type FollowersPage struct {
	Followers   []FollowUser `json:"followers"`
	CurrentPage int          `json:"currentPage"`
	TotalPages  int          `json:"totalPages"`
	TotalCount  int64        `json:"totalCount"`
}

type FollowingPage struct {
	Following   []FollowUser `json:"following"`
	CurrentPage int          `json:"currentPage"`
	TotalPages  int          `json:"totalPages"`
	TotalCount  int64        `json:"totalCount"`
}

type SearchCount struct {
	Posts      int64 `json:"posts"`
	FollowedBy int64 `json:"followedBy"`
}

type SearchUser struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	Name         string      `json:"name"`
	ProfileImage string      `json:"profileImage"`
	IsFollowing  bool        `json:"isFollowing"`
	Count        SearchCount `json:"_count"`
}

func authorOf(u models.User) Author {
	return Author{ID: u.ID, Username: u.Username, ProfileImage: u.ProfileImage}
}

func postView(p models.Post, st repository.PostStats) PostView {
	return PostView{
		ID:        p.ID,
		ImageURL:  p.ImageURL,
		Caption:   p.Caption,
		UserID:    p.UserID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		User:      authorOf(p.User),
		IsLiked:   st.Liked,
		Count:     PostCount{Likes: st.Likes, Comments: st.Comments},
	}
}

func commentView(c models.Comment) CommentView {
	return CommentView{
		ID:        c.ID,
		Content:   c.Content,
		UserID:    c.UserID,
		PostID:    c.PostID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		User:      authorOf(c.User),
	}
}

func followUser(u models.User, edge models.Follow) FollowUser {
	return FollowUser{
		ID:           u.ID,
		Username:     u.Username,
		Name:         u.Name,
		ProfileImage: u.ProfileImage,
		FollowID:     edge.ID,
		FollowSince:  edge.CreatedAt,
	}
}
