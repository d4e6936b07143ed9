package social

import (
	"context"
	"errors"
	"strings"

	"photogram/internal/apperr"
	"photogram/internal/logging"
	"photogram/internal/media"
	"photogram/internal/metrics"
	"photogram/internal/models"
	"photogram/internal/repository"
	"photogram/internal/validation"
)

const (
	profilePostLimit = 9
	searchLimit      = 20
)

// ---------------------------------------------------------------------------------
// Profiles

func (s *Service) Profile(ctx context.Context, viewerID, username string) (*ProfileView, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	counts, err := s.profileCounts(ctx, user.ID)
	if err != nil {
		return nil, apperr.Server(err)
	}
	following, err := s.follows.Exists(ctx, viewerID, user.ID)
	if err != nil {
		return nil, apperr.Server(err)
	}

	recent, err := s.posts.RecentByUser(ctx, user.ID, profilePostLimit)
	if err != nil {
		return nil, apperr.Server(err)
	}
	ids := make([]string, len(recent))
	for i, p := range recent {
		ids[i] = p.ID
	}
	stats, err := s.posts.Stats(ctx, "", ids)
	if err != nil {
		return nil, apperr.Server(err)
	}
	posts := make([]ProfilePost, len(recent))
	for i, p := range recent {
		st := stats[p.ID]
		posts[i] = ProfilePost{
			ID:        p.ID,
			ImageURL:  p.ImageURL,
			Caption:   p.Caption,
			CreatedAt: p.CreatedAt,
			Count:     PostCount{Likes: st.Likes, Comments: st.Comments},
		}
	}

	return &ProfileView{
		ID:           user.ID,
		Username:     user.Username,
		Name:         user.Name,
		Bio:          user.Bio,
		ProfileImage: user.ProfileImage,
		CreatedAt:    user.CreatedAt,
		Count:        counts,
		Posts:        posts,
		IsFollowing:  following,
	}, nil
}

func (s *Service) profileCounts(ctx context.Context, userID string) (ProfileCount, error) {
	posts, err := s.posts.CountByUsers(ctx, []string{userID})
	if err != nil {
		return ProfileCount{}, err
	}
	fc, err := s.follows.Counts(ctx, userID)
	if err != nil {
		return ProfileCount{}, err
	}
	return ProfileCount{Posts: posts[userID], FollowedBy: fc.FollowedBy, Following: fc.Following}, nil
}

func (s *Service) Me(ctx context.Context, userID string) (*MeView, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	counts, err := s.profileCounts(ctx, user.ID)
	if err != nil {
		return nil, apperr.Server(err)
	}
	return meView(user, counts), nil
}

func meView(u *models.User, counts ProfileCount) *MeView {
	return &MeView{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Name:         u.Name,
		Bio:          u.Bio,
		ProfileImage: u.ProfileImage,
		CreatedAt:    u.CreatedAt,
		Count:        counts,
	}
}

// ProfileUpdate: nil = campo no enviado, no se toca.
type ProfileUpdate struct {
	Name     *string `json:"name" validate:"omitnil,min=1,max=128"`
	Bio      *string `json:"bio" validate:"omitnil,max=500"`
	Username *string `json:"username" validate:"omitnil,min=3,max=30,handle"`
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate, img *media.File) (*MeView, error) {
	trim := func(p *string) {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	trim(in.Name)
	trim(in.Bio)
	trim(in.Username)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}

	fields := map[string]any{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Bio != nil {
		fields["bio"] = *in.Bio
	}
	if in.Username != nil && *in.Username != user.Username {
		taken, err := s.users.FindByUsername(ctx, *in.Username)
		if err == nil && taken.ID != user.ID {
			return nil, apperr.Conflict("Username is already taken")
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Server(err)
		}
		fields["username"] = *in.Username
	}

	var newImage string
	if img != nil {
		if newImage, err = s.media.Upload(ctx, img); err != nil {
			return nil, apperr.Server(err)
		}
		fields["profile_image"] = newImage
	}

	if err := s.users.UpdateFields(ctx, userID, fields); err != nil {
		s.discardMedia(ctx, newImage)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("Username is already taken")
		}
		return nil, notFoundOr(err, "User not found")
	}
	if newImage != "" && user.ProfileImage != "" && user.ProfileImage != newImage {
		s.discardMedia(ctx, user.ProfileImage)
	}
	if len(fields) > 0 {
		logging.Ctx(ctx).Info().Str("user_id", userID).Int("fields", len(fields)).Msg("profile updated")
	}
	return s.Me(ctx, userID)
}

// ---------------------------------------------------------------------------------
// Follows

func (s *Service) Follow(ctx context.Context, viewerID, targetID string) error {
	if viewerID == targetID {
		return apperr.Validation("You cannot follow yourself")
	}
	if _, err := s.users.FindByID(ctx, targetID); err != nil {
		return notFoundOr(err, "User not found")
	}
	err := s.follows.Create(ctx, &models.Follow{FollowerID: viewerID, FollowedID: targetID})
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Conflict("Already following this user")
	case err != nil:
		return notFoundOr(err, "User not found")
	}
	metrics.RecordAction("follow")
	return nil
}

// Unfollow es idempotente.
func (s *Service) Unfollow(ctx context.Context, viewerID, targetID string) error {
	if _, err := s.users.FindByID(ctx, targetID); err != nil {
		return notFoundOr(err, "User not found")
	}
	if _, err := s.follows.Delete(ctx, viewerID, targetID); err != nil {
		return apperr.Server(err)
	}
	return nil
}

func (s *Service) Followers(ctx context.Context, userID string, page PageRequest) (*FollowersPage, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	edges, total, err := s.follows.Followers(ctx, userID, page.window())
	if err != nil {
		return nil, apperr.Server(err)
	}
	out := make([]FollowUser, len(edges))
	for i, e := range edges {
		out[i] = followUser(e.Follower, e)
	}
	return &FollowersPage{
		Followers:   out,
		CurrentPage: page.Page,
		TotalPages:  totalPages(total, page.Limit),
		TotalCount:  total,
	}, nil
}

func (s *Service) Following(ctx context.Context, userID string, page PageRequest) (*FollowingPage, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	edges, total, err := s.follows.Following(ctx, userID, page.window())
	if err != nil {
		return nil, apperr.Server(err)
	}
	out := make([]FollowUser, len(edges))
	for i, e := range edges {
		out[i] = followUser(e.Followed, e)
	}
	return &FollowingPage{
		Following:   out,
		CurrentPage: page.Page,
		TotalPages:  totalPages(total, page.Limit),
		TotalCount:  total,
	}, nil
}

// ---------------------------------------------------------------------------------
// Search

func (s *Service) Search(ctx context.Context, viewerID, query string) ([]SearchUser, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("Search query is required")
	}
	users, err := s.users.Search(ctx, query, viewerID, searchLimit)
	if err != nil {
		return nil, apperr.Server(err)
	}
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	following, err := s.follows.FollowingSet(ctx, viewerID, ids)
	if err != nil {
		return nil, apperr.Server(err)
	}
	postCounts, err := s.posts.CountByUsers(ctx, ids)
	if err != nil {
		return nil, apperr.Server(err)
	}
	followerCounts, err := s.follows.FollowerCounts(ctx, ids)
	if err != nil {
		return nil, apperr.Server(err)
	}

	out := make([]SearchUser, len(users))
	for i, u := range users {
		out[i] = SearchUser{
			ID:           u.ID,
			Username:     u.Username,
			Name:         u.Name,
			ProfileImage: u.ProfileImage,
			IsFollowing:  following[u.ID],
			Count:        SearchCount{Posts: postCounts[u.ID], FollowedBy: followerCounts[u.ID]},
		}
	}
	return out, nil
}
