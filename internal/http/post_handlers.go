package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"photogram/internal/util"
)

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	defer cleanupForm(r)

	img, done, err := s.formImage(r, "image")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer done()

	post, err := s.Social.CreatePost(r.Context(), viewerID(r), img, r.FormValue("caption"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	util.Render(w, r, http.StatusCreated, post)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	page, err := s.page(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	feed, err := s.Social.Feed(r.Context(), viewerID(r), page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	util.Render(w, r, http.StatusOK, feed)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.Social.GetPost(r.Context(), viewerID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	util.Render(w, r, http.StatusOK, post)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.Social.DeletePost(r.Context(), viewerID(r), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	util.RenderMessage(w, r, http.StatusOK, "Post deleted")
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	like, err := s.Social.Like(r.Context(), viewerID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	util.Render(w, r, http.StatusCreated, like)
}

func (s *Server) handleUnlike(w http.ResponseWriter, r *http.Request) {
	if err := s.Social.Unlike(r.Context(), viewerID(r), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	util.RenderMessage(w, r, http.StatusOK, "Post unliked")
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Content string `json:"content"`
	}
	if err := util.Decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.Social.AddComment(r.Context(), viewerID(r), chi.URLParam(r, "id"), in.Content)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	util.Render(w, r, http.StatusCreated, c)
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	page, err := s.page(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.Social.Comments(r.Context(), chi.URLParam(r, "id"), page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	util.Render(w, r, http.StatusOK, res)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	err := s.Social.DeleteComment(r.Context(), viewerID(r), chi.URLParam(r, "id"), chi.URLParam(r, "commentId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	util.RenderMessage(w, r, http.StatusOK, "Comment deleted")
}
