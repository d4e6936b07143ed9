package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"photogram/internal/apperr"
	"photogram/internal/models"
	"photogram/internal/repository"
)

const (
	SessionCookie   = "token"
	FederatedCookie = "firebase_token"
)

// Credential es lo que el cliente presenta para autenticarse:
// un SessionToken propio o un FederatedToken del proveedor de identidad.
type Credential interface {
	credential()
}

type SessionToken string

type FederatedToken string

func (SessionToken) credential()   {}
func (FederatedToken) credential() {}

// CredentialFromRequest elige la credencial en este orden: cookie token,
// Authorization: Bearer, cookie firebase_token, Authorization: Firebase. nil si no hay.
func CredentialFromRequest(r *http.Request) Credential {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return SessionToken(c.Value)
	}
	scheme, value, _ := strings.Cut(r.Header.Get("Authorization"), " ")
	value = strings.TrimSpace(value)
	if strings.EqualFold(scheme, "Bearer") && value != "" {
		return SessionToken(value)
	}
	if c, err := r.Cookie(FederatedCookie); err == nil && c.Value != "" {
		return FederatedToken(c.Value)
	}
	if strings.EqualFold(scheme, "Firebase") && value != "" {
		return FederatedToken(value)
	}
	return nil
}

// Authenticate resuelve la credencial a un usuario y aplica la única
// comprobación de acceso: que exista y esté activo.
func (s *Service) Authenticate(ctx context.Context, cred Credential) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	switch c := cred.(type) {
	case SessionToken:
		id, perr := s.tokens.Parse(string(c))
		if perr != nil {
			return nil, apperr.Unauthenticated("Not authenticated")
		}
		user, err = s.users.FindByID(ctx, id)
	case FederatedToken:
		if s.verifier == nil {
			return nil, apperr.Unauthenticated("Not authenticated")
		}
		ident, verr := s.verifier.Verify(ctx, string(c))
		if verr != nil {
			return nil, apperr.Unauthenticated("Not authorized, Firebase token failed")
		}
		user, err = s.users.FindByFederatedID(ctx, ident.Subject)
	default:
		return nil, apperr.Unauthenticated("Not authenticated")
	}

	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthenticated("User not found")
	}
	if err != nil {
		return nil, apperr.Server(err)
	}
	if !user.IsActive {
		return nil, apperr.AccountDeactivated()
	}
	return user, nil
}
