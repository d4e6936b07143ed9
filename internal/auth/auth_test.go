package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"photogram/internal/apperr"
	"photogram/internal/db/dbtest"
	"photogram/internal/models"
	"photogram/internal/repository"
)

const testSecret = "this-is-a-test-secret-with-32-bytes!"

func TestMain(m *testing.M) {
	bcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

// =============================================================================
// Fake IdentityVerifier
// =============================================================================

type fakeVerifier struct {
	mu         sync.Mutex
	identities map[string]*Identity
}

func (f *fakeVerifier) Verify(_ context.Context, idToken string) (*Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.identities[idToken]; ok {
		return id, nil
	}
	return nil, ErrInvalidToken
}

func newTestService(t *testing.T) (*Service, repository.UserRepository, *fakeVerifier) {
	t.Helper()
	users := repository.NewUserRepository(dbtest.Open(t))
	tokens, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	v := &fakeVerifier{identities: map[string]*Identity{
		"google-alice":      {Subject: "g-alice", Email: "Alice@Example.com", EmailVerified: true, Name: "Alice G", Picture: "https://lh3.example.com/a.png"},
		"google-new":        {Subject: "g-new", Email: "newbie@example.com", EmailVerified: true},
		"google-noem":       {Subject: "g-noemail"},
		"google-other":      {Subject: "g-other", Email: "alice@example.com", EmailVerified: true},
		"google-unverified": {Subject: "g-unverified", Email: "alice@example.com"},
		"google-fresh":      {Subject: "g-fresh", Email: "fresh@example.com"},
	}}
	return NewService(users, tokens, v), users, v
}

func register(t *testing.T, s *Service, username, email string) *Session {
	t.Helper()
	sess, err := s.Register(context.Background(), RegisterInput{Username: username, Email: email, Password: "secret1", Name: username})
	require.NoError(t, err)
	return sess
}

// =============================================================================
// Tokens
// =============================================================================

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	tok, err := issuer.Issue("user-1")
	require.NoError(t, err)
	id, err := issuer.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)
}

func TestTokenRejections(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		past, _ := NewTokenIssuer(testSecret, time.Hour)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		tok, err := past.Issue("user-1")
		require.NoError(t, err)
		_, err = issuer.Parse(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("wrong secret", func(t *testing.T) {
		other, _ := NewTokenIssuer("another-secret-another-secret-123", time.Hour)
		tok, _ := other.Issue("user-1")
		_, err := issuer.Parse(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("none algorithm", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Parse(tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Parse("not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

// =============================================================================
// Register / Login
// =============================================================================

func TestRegister(t *testing.T) {
	s, users, _ := newTestService(t)
	ctx := context.Background()

	sess := register(t, s, "alice", "  Alice@Example.com ")
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "alice@example.com", sess.User.Email)

	stored, err := users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.True(t, stored.HasPassword())
	assert.NotEqual(t, "secret1", *stored.PasswordHash)

	_, err = s.Register(ctx, RegisterInput{Username: "alice", Email: "x@example.com", Password: "secret1", Name: "x"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	_, err = s.Register(ctx, RegisterInput{Username: "bob", Email: "alice@example.com", Password: "secret1", Name: "x"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = s.Register(ctx, RegisterInput{Username: "bob", Email: "bob@example.com", Password: "123", Name: "x"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestLogin(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	register(t, s, "alice", "alice@example.com")

	sess, err := s.Login(ctx, "ALICE@example.com", "secret1")
	require.NoError(t, err)
	id, err := s.Tokens().Parse(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, id)

	_, err = s.Login(ctx, "alice@example.com", "wrong")
	assert.Equal(t, apperr.KindInvalidCredentials, apperr.KindOf(err))
	_, err = s.Login(ctx, "nobody@example.com", "secret1")
	assert.Equal(t, apperr.KindInvalidCredentials, apperr.KindOf(err))
	_, err = s.Login(ctx, "", "secret1")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestLoginReactivatesDeactivatedAccount(t *testing.T) {
	s, users, _ := newTestService(t)
	ctx := context.Background()
	sess := register(t, s, "alice", "alice@example.com")
	require.NoError(t, s.Deactivate(ctx, sess.User.ID))

	// la sesión antigua ya no sirve
	_, err := s.Authenticate(ctx, SessionToken(sess.Token))
	assert.Equal(t, apperr.KindAccountDeactivated, apperr.KindOf(err))

	fresh, err := s.Login(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.True(t, fresh.User.IsActive)

	stored, err := users.FindByID(ctx, sess.User.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)

	user, err := s.Authenticate(ctx, SessionToken(fresh.Token))
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, user.ID)
}

func TestLoginFederatedOnlyAccount(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := s.FederatedLogin(ctx, "google-new")
	require.NoError(t, err)

	_, err = s.Login(ctx, "newbie@example.com", "anything")
	assert.Equal(t, apperr.KindInvalidCredentials, apperr.KindOf(err))
	assert.Equal(t, "Please login with Google for this account", apperr.Message(err))
}

// =============================================================================
// Federated login
// =============================================================================

func TestFederatedLoginCreatesUser(t *testing.T) {
	s, users, _ := newTestService(t)
	ctx := context.Background()

	sess, err := s.FederatedLogin(ctx, "google-new")
	require.NoError(t, err)
	assert.Equal(t, "google-new", sess.FederatedToken)
	assert.True(t, strings.HasPrefix(sess.User.Username, "newbie"))
	assert.Equal(t, sess.User.Username, sess.User.Name)
	assert.False(t, sess.User.HasPassword())

	again, err := s.FederatedLogin(ctx, "google-new")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, again.User.ID)

	byUID, err := users.FindByFederatedID(ctx, "g-new")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, byUID.ID)
}

func TestFederatedLoginLinksExistingEmail(t *testing.T) {
	s, users, _ := newTestService(t)
	ctx := context.Background()
	reg := register(t, s, "alice", "alice@example.com")
	require.NoError(t, s.Deactivate(ctx, reg.User.ID))

	sess, err := s.FederatedLogin(ctx, "google-alice")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, sess.User.ID)
	assert.True(t, sess.User.IsActive)

	stored, err := users.FindByID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.FederatedID)
	assert.Equal(t, "g-alice", *stored.FederatedID)
	assert.True(t, stored.HasPassword(), "linking keeps the password login")

	// otra identidad con el mismo email no puede secuestrar la cuenta
	_, err = s.FederatedLogin(ctx, "google-other")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestFederatedLoginUnverifiedEmailDoesNotLink(t *testing.T) {
	s, users, _ := newTestService(t)
	ctx := context.Background()
	reg := register(t, s, "alice", "alice@example.com")

	_, err := s.FederatedLogin(ctx, "google-unverified")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.ErrorIs(t, err, ErrEmailUnverified)

	stored, err := users.FindByID(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.FederatedID, "unverified identity must not be linked")

	// sin cuenta previa, un email no verificado crea su propio usuario
	sess, err := s.FederatedLogin(ctx, "google-fresh")
	require.NoError(t, err)
	assert.Equal(t, "fresh@example.com", sess.User.Email)
	require.NotNil(t, sess.User.FederatedID)
	assert.Equal(t, "g-fresh", *sess.User.FederatedID)
}

func TestFederatedLoginConcurrentFirstLogin(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	const n = 8
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := s.FederatedLogin(ctx, "google-new")
			errs[i] = err
			if err == nil {
				ids[i] = sess.User.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i], "every concurrent login resolves to the same account")
	}
}

func TestFederatedLoginRejections(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.FederatedLogin(ctx, "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	_, err = s.FederatedLogin(ctx, "forged")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
	_, err = s.FederatedLogin(ctx, "google-noem")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	disabled := NewService(s.users, s.tokens, nil)
	_, err = disabled.FederatedLogin(ctx, "google-new")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestGeneratedUsername(t *testing.T) {
	for i := 0; i < 50; i++ {
		u := generatedUsername("john.doe@example.com")
		require.True(t, strings.HasPrefix(u, "john.doe"))
		suffix := strings.TrimPrefix(u, "john.doe")
		assert.True(t, len(suffix) >= 1 && len(suffix) <= 3, u)
	}
	assert.True(t, strings.HasPrefix(generatedUsername("@example.com"), "user"))
}

// =============================================================================
// Reactivate / Authenticate
// =============================================================================

func TestReactivate(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	reg := register(t, s, "alice", "alice@example.com")

	_, err := s.Reactivate(ctx, "alice@example.com", "secret1")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "Account is already active", apperr.Message(err))

	require.NoError(t, s.Deactivate(ctx, reg.User.ID))

	_, err = s.Reactivate(ctx, "alice@example.com", "bad")
	assert.Equal(t, apperr.KindInvalidCredentials, apperr.KindOf(err))
	_, err = s.Reactivate(ctx, "ghost@example.com", "secret1")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	_, err = s.Reactivate(ctx, "", "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	sess, err := s.Reactivate(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.True(t, sess.User.IsActive)
}

func TestReactivateFederatedOnly(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	sess, err := s.FederatedLogin(ctx, "google-new")
	require.NoError(t, err)
	require.NoError(t, s.Deactivate(ctx, sess.User.ID))

	_, err = s.Reactivate(ctx, "newbie@example.com", "whatever")
	assert.Equal(t, apperr.KindInvalidCredentials, apperr.KindOf(err))
}

func TestAuthenticate(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	reg := register(t, s, "alice", "alice@example.com")
	fed, err := s.FederatedLogin(ctx, "google-alice")
	require.NoError(t, err)

	u, err := s.Authenticate(ctx, SessionToken(reg.Token))
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, u.ID)

	u, err = s.Authenticate(ctx, FederatedToken(fed.FederatedToken))
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, u.ID)

	_, err = s.Authenticate(ctx, nil)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
	_, err = s.Authenticate(ctx, SessionToken("junk"))
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
	_, err = s.Authenticate(ctx, FederatedToken("junk"))
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))

	ghost, _ := s.Tokens().Issue("ghost-id")
	_, err = s.Authenticate(ctx, SessionToken(ghost))
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestCredentialFromRequest(t *testing.T) {
	tests := []struct {
		name string
		prep func(r *http.Request)
		want Credential
	}{
		{"none", func(r *http.Request) {}, nil},
		{"session cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "jwt"})
		}, SessionToken("jwt")},
		{"session cookie wins over federated", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: FederatedCookie, Value: "fed"})
			r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "jwt"})
		}, SessionToken("jwt")},
		{"federated cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: FederatedCookie, Value: "fed"})
		}, FederatedToken("fed")},
		{"bearer header", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer jwt2")
		}, SessionToken("jwt2")},
		{"firebase header", func(r *http.Request) {
			r.Header.Set("Authorization", "Firebase fed2")
		}, FederatedToken("fed2")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			tt.prep(r)
			assert.Equal(t, tt.want, CredentialFromRequest(r))
		})
	}
}

func TestOIDCVerifierRejectsMalformedToken(t *testing.T) {
	_, err := NewOIDCVerifier(FederatedConfig{}, nil)
	assert.ErrorIs(t, err, ErrFederatedOff)

	v, err := NewOIDCVerifier(FederatedConfig{ProjectID: "demo-project", JWKSURL: "http://127.0.0.1:0/jwks"}, nil)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), "definitely.not.a-token")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestUserContext(t *testing.T) {
	ctx := WithUser(context.Background(), &models.User{Base: models.Base{ID: "u1"}})
	id, ok := UserIDFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", id)

	_, ok = UserIDFrom(context.Background())
	assert.False(t, ok)
}
