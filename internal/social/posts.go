package social

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"photogram/internal/apperr"
	"photogram/internal/logging"
	"photogram/internal/media"
	"photogram/internal/metrics"
	"photogram/internal/models"
	"photogram/internal/repository"
)

const (
	MaxCaptionLength = 2200
	MaxCommentLength = 2200
)

// ---------------------------------------------------------------------------------
// Posts

func (s *Service) CreatePost(ctx context.Context, userID string, img *media.File, caption string) (*PostView, error) {
	if img == nil {
		return nil, apperr.Validation("Please upload an image")
	}
	caption = strings.TrimSpace(caption)
	if utf8.RuneCountInString(caption) > MaxCaptionLength {
		return nil, apperr.Validation("Caption is too long")
	}

	url, err := s.media.Upload(ctx, img)
	if err != nil {
		return nil, apperr.Server(err)
	}

	post := &models.Post{UserID: userID, ImageURL: url}
	if caption != "" {
		post.Caption = &caption
	}
	if err := s.posts.Create(ctx, post); err != nil {
		s.discardMedia(ctx, url)
		return nil, apperr.Server(err)
	}
	metrics.RecordAction("post")
	logging.Ctx(ctx).Info().Str("post_id", post.ID).Str("user_id", userID).Msg("post created")

	view := postView(*post, repository.PostStats{})
	return &view, nil
}

// annotate añade isLiked y los contadores a un lote de posts.
func (s *Service) annotate(ctx context.Context, viewerID string, posts []models.Post) ([]PostView, error) {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	stats, err := s.posts.Stats(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	out := make([]PostView, len(posts))
	for i, p := range posts {
		out[i] = postView(p, stats[p.ID])
	}
	return out, nil
}

func (s *Service) Feed(ctx context.Context, viewerID string, page PageRequest) (*FeedPage, error) {
	posts, total, err := s.posts.Feed(ctx, viewerID, page.window())
	if err != nil {
		return nil, apperr.Server(err)
	}
	views, err := s.annotate(ctx, viewerID, posts)
	if err != nil {
		return nil, apperr.Server(err)
	}
	return &FeedPage{
		Posts:       views,
		CurrentPage: page.Page,
		TotalPages:  totalPages(total, page.Limit),
		TotalPosts:  total,
	}, nil
}

func (s *Service) GetPost(ctx context.Context, viewerID, postID string) (*PostView, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, notFoundOr(err, "Post not found")
	}
	views, err := s.annotate(ctx, viewerID, []models.Post{*post})
	if err != nil {
		return nil, apperr.Server(err)
	}
	return &views[0], nil
}

func (s *Service) DeletePost(ctx context.Context, viewerID, postID string) error {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return notFoundOr(err, "Post not found")
	}
	if post.UserID != viewerID {
		return apperr.Forbidden("Not authorized to delete this post")
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return notFoundOr(err, "Post not found")
	}
	s.discardMedia(ctx, post.ImageURL)
	logging.Ctx(ctx).Info().Str("post_id", postID).Msg("post deleted")
	return nil
}

// ---------------------------------------------------------------------------------
// Likes

func (s *Service) Like(ctx context.Context, viewerID, postID string) (*models.Like, error) {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return nil, notFoundOr(err, "Post not found")
	}
	like := &models.Like{UserID: viewerID, PostID: postID}
	err := s.likes.Create(ctx, like)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return nil, apperr.Conflict("Post already liked")
	case err != nil:
		// el post pudo borrarse entre la comprobación y el insert
		return nil, notFoundOr(err, "Post not found")
	}
	metrics.RecordAction("like")
	return like, nil
}

// Unlike es idempotente: sin like previo no hace nada.
func (s *Service) Unlike(ctx context.Context, viewerID, postID string) error {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return notFoundOr(err, "Post not found")
	}
	if _, err := s.likes.Delete(ctx, viewerID, postID); err != nil {
		return apperr.Server(err)
	}
	return nil
}

// ---------------------------------------------------------------------------------
// Comments

func (s *Service) AddComment(ctx context.Context, viewerID, postID, content string) (*CommentView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("Comment cannot be empty")
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return nil, apperr.Validation("Comment is too long")
	}
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return nil, notFoundOr(err, "Post not found")
	}
	c := &models.Comment{UserID: viewerID, PostID: postID, Content: content}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, notFoundOr(err, "Post not found")
	}
	metrics.RecordAction("comment")
	view := commentView(*c)
	return &view, nil
}

func (s *Service) Comments(ctx context.Context, postID string, page PageRequest) (*CommentPage, error) {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return nil, notFoundOr(err, "Post not found")
	}
	list, total, err := s.comments.ListByPost(ctx, postID, page.window())
	if err != nil {
		return nil, apperr.Server(err)
	}
	views := make([]CommentView, len(list))
	for i, c := range list {
		views[i] = commentView(c)
	}
	return &CommentPage{
		Comments:      views,
		CurrentPage:   page.Page,
		TotalPages:    totalPages(total, page.Limit),
		TotalComments: total,
	}, nil
}

// DeleteComment: lo puede borrar su autor o el dueño del post.
func (s *Service) DeleteComment(ctx context.Context, viewerID, postID, commentID string) error {
	c, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return notFoundOr(err, "Comment not found")
	}
	if c.PostID != postID {
		return apperr.Validation("Comment does not belong to the post")
	}
	if c.UserID != viewerID && c.Post.UserID != viewerID {
		return apperr.Forbidden("Not authorized to delete this comment")
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return notFoundOr(err, "Comment not found")
	}
	return nil
}
