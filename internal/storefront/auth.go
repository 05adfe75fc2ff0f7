package storefront

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/example/ec-storefront/internal/client"
	"github.com/example/ec-storefront/internal/logging"
	"go.uber.org/zap"
)

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrNoAccessToken      = errors.New("login response carried no access token")
)

// SessionWriter is the part of the session AuthService updates on sign in
// and sign out. *session.Session satisfies it.
type SessionWriter interface {
	Authenticated() bool
	SetRole(ctx context.Context, role string)
	Clear(ctx context.Context)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login and signup.
type AuthResponse struct {
	AccessToken string `json:"accessToken"`
	Role        string `json:"role"`
	User        User   `json:"user"`
}

type AuthService struct {
	client  *client.Client
	session SessionWriter
	logger  *zap.Logger
}

func NewAuthService(c *client.Client, session SessionWriter, logger *zap.Logger) *AuthService {
	return &AuthService{
		client:  c,
		session: session,
		logger:  logging.Component(logger, "auth"),
	}
}

// Login signs in and stores the returned token and role. The token itself is
// persisted by the client's response hook.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	return s.authenticate(ctx, "/auth/login", LoginRequest{Email: email, Password: password})
}

// Signup creates an account. When the server signs the new user in straight
// away the session is populated the same way Login does.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}

	resp, err := s.client.Do(ctx, &client.Request{
		Method:    http.MethodPost,
		Path:      "/auth/signup",
		Body:      req,
		NoRefresh: true,
	})
	if err != nil {
		return nil, fmt.Errorf("signup failed: %w", err)
	}

	var out AuthResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	if out.AccessToken != "" && out.Role != "" {
		s.session.SetRole(ctx, out.Role)
	}
	return &out, nil
}

func (s *AuthService) authenticate(ctx context.Context, path string, body any) (*AuthResponse, error) {
	resp, err := s.client.Do(ctx, &client.Request{
		Method:    http.MethodPost,
		Path:      path,
		Body:      body,
		NoRefresh: true,
	})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	var out AuthResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, ErrNoAccessToken
	}
	s.session.SetRole(ctx, out.Role)

	s.logger.Info("signed in", zap.String("role", out.Role))
	return &out, nil
}

// Me returns the signed-in account. It goes through the normal refresh path,
// so a stale access token is renewed from the refresh cookie.
func (s *AuthService) Me(ctx context.Context) (*User, error) {
	var out User
	if err := s.client.Get(ctx, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout drops the local session and then tells the server to forget the
// refresh cookie. The server call is best effort.
func (s *AuthService) Logout(ctx context.Context) {
	s.session.Clear(ctx)

	_, err := s.client.Do(ctx, &client.Request{
		Method:    http.MethodPost,
		Path:      "/auth/logout",
		NoRefresh: true,
	})
	if err != nil {
		s.logger.Debug("server logout failed", zap.Error(err))
	}
}
