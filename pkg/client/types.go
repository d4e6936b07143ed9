package client

import "time"

// User es la respuesta de register, login, google y reactivate.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage"`
}

type Counts struct {
	Posts      int64 `json:"posts"`
	FollowedBy int64 `json:"followedBy"`
	Following  int64 `json:"following"`
}

// Me es GET /auth/me.
type Me struct {
	User
	Bio       string    `json:"bio"`
	CreatedAt time.Time `json:"createdAt"`
	Count     Counts    `json:"_count"`
}

type Author struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage"`
}

type PostCount struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
}

type Post struct {
	ID        string    `json:"id"`
	ImageURL  string    `json:"imageUrl"`
	Caption   *string   `json:"caption"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	User      Author    `json:"user"`
	IsLiked   bool      `json:"isLiked"`
	Count     PostCount `json:"_count"`
}

type FeedPage struct {
	Posts       []Post `json:"posts"`
	CurrentPage int    `json:"currentPage"`
	TotalPages  int    `json:"totalPages"`
	TotalPosts  int64  `json:"totalPosts"`
}

type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	PostID    string    `json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
	User      Author    `json:"user"`
}

type CommentPage struct {
	Comments      []Comment `json:"comments"`
	CurrentPage   int       `json:"currentPage"`
	TotalPages    int       `json:"totalPages"`
	TotalComments int64     `json:"totalComments"`
}

type ProfilePost struct {
	ID       string    `json:"id"`
	ImageURL string    `json:"imageUrl"`
	Caption  *string   `json:"caption"`
	Count    PostCount `json:"_count"`
}

type Profile struct {
	ID           string        `json:"id"`
	Username     string        `json:"username"`
	Name         string        `json:"name"`
	Bio          string        `json:"bio"`
	ProfileImage string        `json:"profileImage"`
	Count        Counts        `json:"_count"`
	Posts        []ProfilePost `json:"posts"`
	IsFollowing  bool          `json:"isFollowing"`
}

type SearchUser struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage"`
	IsFollowing  bool   `json:"isFollowing"`
}
