package httpx

import (
	"net/http"

	"photogram/internal/auth"
)

func (s *Server) setSessionCookies(w http.ResponseWriter, sess *auth.Session) {
	maxAge := int(s.Auth.Tokens().TTL().Seconds())
	s.setCookie(w, auth.SessionCookie, sess.Token, maxAge)
	if sess.FederatedToken != "" {
		s.setCookie(w, auth.FederatedCookie, sess.FederatedToken, maxAge)
	}
}

// clearSessionCookies borra las dos cookies de sesión.
func (s *Server) clearSessionCookies(w http.ResponseWriter) {
	s.setCookie(w, auth.SessionCookie, "", -1)
	s.setCookie(w, auth.FederatedCookie, "", -1)
}

func (s *Server) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.Cfg.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
