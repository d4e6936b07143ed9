package httpx

import (
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"photogram/internal/media"
	"photogram/internal/social"
	"photogram/internal/util"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	users, err := s.Social.Search(r.Context(), viewerID(r), r.URL.Query().Get("query"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	util.Render(w, r, http.StatusOK, users)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	prof, err := s.Social.Profile(r.Context(), viewerID(r), chi.URLParam(r, "username"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	util.Render(w, r, http.StatusOK, prof)
}

// handleUpdateProfile acepta multipart (con profileImage opcional) o JSON.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in social.ProfileUpdate
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := util.Decode(r, &in); err != nil {
			s.fail(w, r, err)
			return
		}
		s.updateProfile(w, r, in, nil)
		return
	}

	if err := s.parseMultipart(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	defer cleanupForm(r)
	in.Name = formValue(r, "name")
	in.Bio = formValue(r, "bio")
	in.Username = formValue(r, "username")

	img, done, err := s.formImage(r, "profileImage")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer done()
	s.updateProfile(w, r, in, img)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request, in social.ProfileUpdate, img *media.File) {
	me, err := s.Social.UpdateProfile(r.Context(), viewerID(r), in, img)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	util.Render(w, r, http.StatusOK, me)
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	if err := s.Social.Follow(r.Context(), viewerID(r), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	util.RenderMessage(w, r, http.StatusCreated, "Successfully followed user")
}

func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	if err := s.Social.Unfollow(r.Context(), viewerID(r), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	util.RenderMessage(w, r, http.StatusOK, "Successfully unfollowed user")
}

func (s *Server) handleFollowers(w http.ResponseWriter, r *http.Request) {
	page, err := s.page(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.Social.Followers(r.Context(), chi.URLParam(r, "id"), page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	util.Render(w, r, http.StatusOK, res)
}

func (s *Server) handleFollowing(w http.ResponseWriter, r *http.Request) {
	page, err := s.page(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.Social.Following(r.Context(), chi.URLParam(r, "id"), page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	util.Render(w, r, http.StatusOK, res)
}
