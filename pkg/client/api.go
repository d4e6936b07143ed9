package client

import (
	"context"
	"net/http"
	"net/url"
)

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodPost, "/auth/register", in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var u User
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) GoogleLogin(ctx context.Context, idToken string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodPost, "/auth/google", map[string]string{"idToken": idToken}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *Client) Me(ctx context.Context) (*Me, error) {
	var m Me
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) Deactivate(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/users/deactivate", nil, nil)
}

func (c *Client) Reactivate(ctx context.Context, email, password string) (*User, error) {
	var u User
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPut, "/users/reactivate", in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreatePost sube img con un caption opcional.
func (c *Client) CreatePost(ctx context.Context, img Image, caption string) (*Post, error) {
	fields := map[string]string{}
	if caption != "" {
		fields["caption"] = caption
	}
	var p Post
	if err := c.multipart(ctx, http.MethodPost, "/posts", fields, "image", &img, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Feed(ctx context.Context, page, limit int) (*FeedPage, error) {
	var f FeedPage
	if err := c.do(ctx, http.MethodGet, "/posts/feed"+pageQuery(page, limit), nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *Client) Post(ctx context.Context, id string) (*Post, error) {
	var p Post
	if err := c.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/posts/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Like(ctx context.Context, postID string) error {
	return c.do(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/like", nil, nil)
}

func (c *Client) Unlike(ctx context.Context, postID string) error {
	return c.do(ctx, http.MethodDelete, "/posts/"+url.PathEscape(postID)+"/like", nil, nil)
}

func (c *Client) AddComment(ctx context.Context, postID, content string) (*Comment, error) {
	var cm Comment
	path := "/posts/" + url.PathEscape(postID) + "/comments"
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"content": content}, &cm); err != nil {
		return nil, err
	}
	return &cm, nil
}

func (c *Client) Comments(ctx context.Context, postID string, page, limit int) (*CommentPage, error) {
	var p CommentPage
	path := "/posts/" + url.PathEscape(postID) + "/comments" + pageQuery(page, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteComment(ctx context.Context, postID, commentID string) error {
	path := "/posts/" + url.PathEscape(postID) + "/comments/" + url.PathEscape(commentID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) Profile(ctx context.Context, username string) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(username), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Search(ctx context.Context, query string) ([]SearchUser, error) {
	var out []SearchUser
	path := "/users/search?" + url.Values{"query": {query}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Follow(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(userID)+"/follow", nil, nil)
}

func (c *Client) Unfollow(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(userID)+"/follow", nil, nil)
}
