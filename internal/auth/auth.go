// Package auth talks to the backend identity endpoints.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/suteetoe/winehouse/internal/model"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"github.com/suteetoe/winehouse/pkg/validate"
	"go.uber.org/zap"
)

// ErrNoToken is returned when login succeeds without a token in the body
var ErrNoToken = errors.New("no token received from server")

// Credentials is the login body
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration is the register body
type Registration struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Service wraps /api/auths
type Service struct {
	api      *apiclient.Client
	validate *validate.Validator
	logger   *zap.Logger
}

// NewService creates the auth service on the shared backend client
func NewService(api *apiclient.Client, v *validate.Validator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, validate: v, logger: logger}
}

// Login exchanges credentials for a bearer token
func (s *Service) Login(ctx context.Context, c Credentials) (string, error) {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if err := s.validate.Struct(c); err != nil {
		return "", err
	}

	var resp tokenResponse
	if err := s.api.Post(ctx, "/api/auths/login", c, &resp, apiclient.Unauthenticated()); err != nil {
		s.logger.Info("Login failed", zap.String("email", c.Email), zap.Int("status", apiclient.StatusOf(err)))
		return "", err
	}
	if resp.Token == "" {
		return "", ErrNoToken
	}
	return resp.Token, nil
}

// Register creates an account; the backend may or may not return a token
func (s *Service) Register(ctx context.Context, r Registration) (string, error) {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FullName = strings.TrimSpace(r.FullName)
	if err := s.validate.Struct(r); err != nil {
		return "", err
	}

	var resp tokenResponse
	if err := s.api.Post(ctx, "/api/auths/register", r, &resp, apiclient.Unauthenticated()); err != nil {
		return "", err
	}
	s.logger.Info("User registered", zap.String("email", r.Email))
	return resp.Token, nil
}

// CheckAuthorize asks the backend whether the client's token is still accepted
func (s *Service) CheckAuthorize(ctx context.Context, api *apiclient.Client) error {
	return api.Get(ctx, "/api/auths/check-authorize", nil)
}

// UserSummary resolves the token holder's identity and role
func (s *Service) UserSummary(ctx context.Context, api *apiclient.Client, token string) (model.UserSummary, error) {
	var summary model.UserSummary
	body := map[string]string{"jwtTokenString": token}
	if err := api.Post(ctx, "/api/auths/get-user-summary", body, &summary); err != nil {
		return model.UserSummary{}, err
	}
	return summary, nil
}
