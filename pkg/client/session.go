package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

// ErrNoSession se devuelve al operar sobre una sesión cerrada.
var ErrNoSession = errors.New("photogram: no active session")

// Session es el estado de autenticación del cliente. El usuario vive aquí y
// no en variables globales; Logout y Deactivate lo vacían junto con el jar.
type Session struct {
	c *Client

	mu   sync.RWMutex
	user *User
}

func NewSession(c *Client) *Session { return &Session{c: c} }

func (s *Session) Client() *Client { return s.c }

// User devuelve el usuario autenticado, si lo hay.
func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

func (s *Session) set(u *User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

// Open recupera la sesión de las cookies existentes. Un 401 deja la sesión
// vacía sin error.
func (s *Session) Open(ctx context.Context) (bool, error) {
	me, err := s.c.Me(ctx)
	if err != nil {
		if StatusOf(err) == http.StatusUnauthorized {
			s.teardown()
			return false, nil
		}
		return false, err
	}
	u := me.User
	s.set(&u)
	return true, nil
}

func (s *Session) Login(ctx context.Context, email, password string) (*User, error) {
	u, err := s.c.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.set(u)
	return u, nil
}

func (s *Session) Register(ctx context.Context, in RegisterInput) (*User, error) {
	u, err := s.c.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	s.set(u)
	return u, nil
}

func (s *Session) GoogleLogin(ctx context.Context, idToken string) (*User, error) {
	u, err := s.c.GoogleLogin(ctx, idToken)
	if err != nil {
		return nil, err
	}
	s.set(u)
	return u, nil
}

// Logout cierra la sesión local aunque el servidor falle.
func (s *Session) Logout(ctx context.Context) error {
	err := s.c.Logout(ctx)
	s.teardown()
	return err
}

// Deactivate desactiva la cuenta y cierra la sesión local si el servidor acepta.
func (s *Session) Deactivate(ctx context.Context) error {
	if _, ok := s.User(); !ok {
		return ErrNoSession
	}
	if err := s.c.Deactivate(ctx); err != nil {
		return err
	}
	s.teardown()
	return nil
}

func (s *Session) teardown() {
	s.set(nil)
	_ = s.c.ResetCookies()
}
