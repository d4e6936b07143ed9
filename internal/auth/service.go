package auth

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"photogram/internal/apperr"
	"photogram/internal/logging"
	"photogram/internal/metrics"
	"photogram/internal/models"
	"photogram/internal/repository"
	"photogram/internal/validation"
)

const maxLinkAttempts = 5

// Session es el resultado de un login: el usuario y los tokens a poner en cookies.
type Session struct {
	User           *models.User
	Token          string
	FederatedToken string
}

type Service struct {
	users    repository.UserRepository
	tokens   *TokenIssuer
	verifier IdentityVerifier
}

// NewService: verifier puede ser nil si el login federado está desactivado.
func NewService(users repository.UserRepository, tokens *TokenIssuer, verifier IdentityVerifier) *Service {
	return &Service{users: users, tokens: tokens, verifier: verifier}
}

func (s *Service) Tokens() *TokenIssuer { return s.tokens }

type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=30,handle"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"required,max=128"`
}

// ----------------------------
// Register
// ----------------------------

func (s *Service) Register(ctx context.Context, in RegisterInput) (sess *Session, err error) {
	defer func() { metrics.RecordAuth("register", err) }()

	in.Email = normalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	// comprobación rápida con mensaje claro; el índice único cubre la carrera
	exists, err := s.users.ExistsByEmailOrUsername(ctx, in.Email, in.Username)
	if err != nil {
		return nil, apperr.Server(err)
	}
	if exists {
		return nil, apperr.Conflict("User already exists with that email or username")
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Server(err)
	}
	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: &hash,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("User already exists with that email or username")
		}
		return nil, apperr.Server(err)
	}
	logging.Ctx(ctx).Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return s.issue(user, "")
}

// ----------------------------
// Login (reactiva la cuenta si estaba desactivada)
// ----------------------------

func (s *Service) Login(ctx context.Context, email, password string) (sess *Session, err error) {
	defer func() { metrics.RecordAuth("password", err) }()

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("Please enter all fields")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.InvalidCredentials("Invalid credentials")
	}
	if err != nil {
		return nil, apperr.Server(err)
	}
	if !user.HasPassword() {
		return nil, apperr.InvalidCredentials("Please login with Google for this account")
	}
	if !CheckPassword(*user.PasswordHash, password) {
		logging.Ctx(ctx).Info().Str("user_id", user.ID).Msg("login failed: bad password")
		return nil, apperr.InvalidCredentials("Invalid credentials")
	}

	if !user.IsActive {
		if err := s.users.SetActive(ctx, user.ID, true); err != nil {
			return nil, apperr.Server(err)
		}
		user.IsActive = true
		logging.Ctx(ctx).Info().Str("user_id", user.ID).Msg("account reactivated on login")
	}
	return s.issue(user, "")
}

// ----------------------------
// FederatedLogin (Google / Firebase)
// ----------------------------

func (s *Service) FederatedLogin(ctx context.Context, idToken string) (sess *Session, err error) {
	defer func() { metrics.RecordAuth("federated", err) }()

	if strings.TrimSpace(idToken) == "" {
		return nil, apperr.Validation("ID token is required")
	}
	if s.verifier == nil {
		return nil, apperr.Unauthenticated("Failed to authenticate with Google")
	}
	ident, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		logging.Ctx(ctx).Info().Err(err).Msg("federated token rejected")
		return nil, apperr.Unauthenticated("Failed to authenticate with Google")
	}
	if ident.Email == "" {
		return nil, apperr.Validation("Email is required for authentication")
	}

	user, err := s.linkOrCreate(ctx, ident)
	if errors.Is(err, ErrIdentityInUse) {
		return nil, apperr.Conflict("An account with this email is linked to another Google account")
	}
	if errors.Is(err, ErrEmailUnverified) {
		return nil, &apperr.Error{
			Kind:    apperr.KindConflict,
			Message: "An account with this email already exists. Verify the email with Google to link it",
			Err:     err,
		}
	}
	if err != nil {
		return nil, apperr.Server(err)
	}
	if !user.IsActive {
		if err := s.users.SetActive(ctx, user.ID, true); err != nil {
			return nil, apperr.Server(err)
		}
		user.IsActive = true
	}
	return s.issue(user, idToken)
}

// linkOrCreate es un upsert condicional: cada paso es atómico bajo los índices
// únicos (federated_id, email, username) y si otro escritor gana se relee su fila.
func (s *Service) linkOrCreate(ctx context.Context, ident *Identity) (*models.User, error) {
	email := normalizeEmail(ident.Email)
	for attempt := 0; attempt < maxLinkAttempts; attempt++ {
		user, err := s.users.FindByFederatedID(ctx, ident.Subject)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}

		// solo un email verificado puede enlazarse a una cuenta existente
		if ident.EmailVerified {
			linked, err := s.users.LinkFederated(ctx, email, ident.Subject)
			if err != nil && !errors.Is(err, repository.ErrDuplicate) {
				return nil, err
			}
			if linked || err != nil {
				continue
			}
		}

		username := generatedUsername(email)
		name := strings.TrimSpace(ident.Name)
		if name == "" {
			name = username
		}
		subject := ident.Subject
		candidate := &models.User{
			Username:     username,
			Email:        email,
			Name:         name,
			ProfileImage: ident.Picture,
			FederatedID:  &subject,
			IsActive:     true,
		}
		created, err := s.users.CreateIfAbsent(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if created {
			logging.Ctx(ctx).Info().Str("user_id", candidate.ID).Str("username", username).Msg("federated user created")
			return candidate, nil
		}

		// no se insertó: o el email ya tiene otra identidad, o chocó el username
		existing, err := s.users.FindByEmail(ctx, email)
		if err == nil && existing.FederatedID != nil && *existing.FederatedID != ident.Subject {
			return nil, ErrIdentityInUse
		}
		if err == nil && existing.FederatedID == nil && !ident.EmailVerified {
			return nil, ErrEmailUnverified
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	return nil, errTooManyAttempts
}

// generatedUsername: parte local del email + número aleatorio 0..999.
func generatedUsername(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = strings.Map(func(r rune) rune {
		if r == '/' || r == ' ' || r == '?' || r == '#' {
			return -1
		}
		return r
	}, local)
	if len(local) > 56 {
		local = local[:56]
	}
	if local == "" {
		local = "user"
	}
	return fmt.Sprintf("%s%d", local, rand.Intn(1000))
}

// ----------------------------
// Reactivate / Deactivate
// ----------------------------

func (s *Service) Reactivate(ctx context.Context, email, password string) (sess *Session, err error) {
	defer func() { metrics.RecordAuth("reactivate", err) }()

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password are required")
	}
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Server(err)
	}
	if user.IsActive {
		return nil, apperr.Validation("Account is already active")
	}
	if !user.HasPassword() {
		return nil, apperr.InvalidCredentials("Please use Google login to reactivate your account")
	}
	if !CheckPassword(*user.PasswordHash, password) {
		return nil, apperr.InvalidCredentials("Invalid credentials")
	}
	if err := s.users.SetActive(ctx, user.ID, true); err != nil {
		return nil, apperr.Server(err)
	}
	user.IsActive = true
	logging.Ctx(ctx).Info().Str("user_id", user.ID).Msg("account reactivated")
	return s.issue(user, "")
}

func (s *Service) Deactivate(ctx context.Context, userID string) error {
	err := s.users.SetActive(ctx, userID, false)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("User not found")
	}
	if err != nil {
		return apperr.Server(err)
	}
	logging.Ctx(ctx).Info().Str("user_id", userID).Msg("account deactivated")
	return nil
}

func (s *Service) issue(user *models.User, federatedToken string) (*Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperr.Server(err)
	}
	return &Session{User: user, Token: token, FederatedToken: federatedToken}, nil
}
