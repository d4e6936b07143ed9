package httpx

import (
	"net/http"

	"photogram/internal/auth"
	"photogram/internal/models"
	"photogram/internal/util"
)

// authUser es lo que devuelven register, login, google y reactivate.
type authUser struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage"`
}

func authUserOf(u *models.User) authUser {
	return authUser{ID: u.ID, Username: u.Username, Email: u.Email, Name: u.Name, ProfileImage: u.ProfileImage}
}

type credentialsInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, status int, sess *auth.Session) {
	s.setSessionCookies(w, sess)
	util.Render(w, r, status, authUserOf(sess.User))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := util.Decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.Auth.Register(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.startSession(w, r, http.StatusCreated, sess)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentialsInput
	if err := util.Decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.Auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.startSession(w, r, http.StatusOK, sess)
}

func (s *Server) handleGoogle(w http.ResponseWriter, r *http.Request) {
	var in struct {
		IDToken string `json:"idToken"`
	}
	if err := util.Decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.Auth.FederatedLogin(r.Context(), in.IDToken)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.startSession(w, r, http.StatusOK, sess)
}

// handleLogout solo borra cookies: el JWT sigue siendo válido hasta que expira.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookies(w)
	util.RenderMessage(w, r, http.StatusOK, "Logged out successfully")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	me, err := s.Social.Me(r.Context(), viewerID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	util.Render(w, r, http.StatusOK, me)
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	if err := s.Auth.Deactivate(r.Context(), viewerID(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	s.clearSessionCookies(w)
	util.RenderMessage(w, r, http.StatusOK, "Account deactivated successfully")
}

func (s *Server) handleReactivate(w http.ResponseWriter, r *http.Request) {
	var in credentialsInput
	if err := util.Decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.Auth.Reactivate(r.Context(), in.Email, in.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.startSession(w, r, http.StatusOK, sess)
}
