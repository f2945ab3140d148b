// Package auth covers account registration, login and logout against the
// platform, committing the resulting access token to the session store.
package auth

import (
	"context"

	"github.com/pkg/errors"

	"github.com/fluentive/fluentive-go/rest"
	"github.com/fluentive/fluentive-go/session"
)

// Credentials is the register/login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries the short-lived access token. The long-lived refresh
// token arrives separately as an httponly cookie and never surfaces here.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// Service wraps the /api/auth endpoints.
type Service struct {
	api      *rest.Client
	sessions *session.Store
}

func New(api *rest.Client, sessions *session.Store) *Service {
	return &Service{api: api, sessions: sessions}
}

// Register creates an account and starts a session.
func (s *Service) Register(ctx context.Context, email, password string) error {
	return s.obtain(ctx, "/api/auth/register", email, password)
}

// Login starts a session with existing credentials.
func (s *Service) Login(ctx context.Context, email, password string) error {
	return s.obtain(ctx, "/api/auth/login", email, password)
}

func (s *Service) obtain(ctx context.Context, path, email, password string) error {
	var out TokenResponse
	err := s.api.Post(ctx, path, Credentials{Email: email, Password: password}, &out, rest.WithoutAuth())
	if err != nil {
		return err
	}
	if out.AccessToken == "" {
		return errors.New("missing accessToken in response")
	}
	s.sessions.Set(out.AccessToken)
	return nil
}

// Logout ends the server-side refresh session and clears the local token.
// Logging out without a session is a no-op, not an error.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.api.Post(ctx, "/api/auth/logout", nil, nil, rest.WithoutAuth()); err != nil {
		return err
	}
	s.sessions.Set("")
	return nil
}
