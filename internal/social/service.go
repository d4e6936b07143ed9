// Package social implementa posts, feed, likes, comentarios, perfiles y seguidores.
package social

import (
	"context"
	"errors"

	"photogram/internal/apperr"
	"photogram/internal/logging"
	"photogram/internal/media"
	"photogram/internal/repository"
)

type Service struct {
	users    repository.UserRepository
	posts    repository.PostRepository
	likes    repository.LikeRepository
	comments repository.CommentRepository
	follows  repository.FollowRepository
	media    media.Store
}

func NewService(repos repository.Repositories, store media.Store) *Service {
	return &Service{
		users:    repos.Users,
		posts:    repos.Posts,
		likes:    repos.Likes,
		comments: repos.Comments,
		follows:  repos.Follows,
		media:    store,
	}
}

// notFoundOr traduce ErrNotFound a un 404 con msg; el resto es error interno.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(msg)
	}
	return apperr.Server(err)
}

// discardMedia borra una imagen sin propagar el fallo.
func (s *Service) discardMedia(ctx context.Context, url string) {
	if url == "" || s.media == nil || !s.media.Owns(url) {
		return
	}
	if err := s.media.Delete(ctx, url); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("url", url).Msg("media delete failed")
	}
}
