package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/oidc"
)

const googleSecureTokenJWKS = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

type FederatedConfig struct {
	ProjectID string `koanf:"project_id"`
	Issuer    string `koanf:"issuer"`   // por defecto https://securetoken.google.com/<project>
	JWKSURL   string `koanf:"jwks_url"` // por defecto las claves públicas de securetoken
}

func (c FederatedConfig) Enabled() bool { return c.ProjectID != "" }

// Identity es lo que nos importa de un ID token verificado.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

// OIDCVerifier valida ID tokens de Firebase/Google contra su JWKS remoto.
type OIDCVerifier struct {
	verifier *rp.IDTokenVerifier
}

func NewOIDCVerifier(cfg FederatedConfig, client *http.Client) (*OIDCVerifier, error) {
	if !cfg.Enabled() {
		return nil, ErrFederatedOff
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "https://securetoken.google.com/" + cfg.ProjectID
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = googleSecureTokenJWKS
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	keySet := rp.NewRemoteKeySet(client, cfg.JWKSURL)
	v := rp.NewIDTokenVerifier(cfg.Issuer, cfg.ProjectID, keySet,
		rp.WithSupportedSigningAlgorithms("RS256"))
	return &OIDCVerifier{verifier: v}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	claims, err := rp.VerifyIDToken[*oidc.IDTokenClaims](ctx, idToken, v.verifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &Identity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: bool(claims.EmailVerified),
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}
