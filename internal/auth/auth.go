// internal/auth/auth.go
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"photogram/internal/models"
)

var (
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrMissingSecret   = errors.New("jwt secret is required")
	ErrFederatedOff    = errors.New("federated login is not configured")
	ErrIdentityInUse   = errors.New("email linked to another identity")
	ErrEmailUnverified = errors.New("email not verified by identity provider")
	errTooManyAttempts = errors.New("could not create or find federated user")
)

type Config struct {
	JWTSecret       string          `koanf:"jwt_secret"`
	SessionLifetime time.Duration   `koanf:"session_lifetime"`
	Federated       FederatedConfig `koanf:"federated"`
}

// ----------------------------
// Context helpers (para middleware y handlers)
// ----------------------------

type ctxKeyUser struct{}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser{}, u)
}

func UserFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(ctxKeyUser{}).(*models.User)
	return u, ok && u != nil
}

func UserIDFrom(ctx context.Context) (string, bool) {
	u, ok := UserFrom(ctx)
	if !ok {
		return "", false
	}
	return u.ID, u.ID != ""
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
