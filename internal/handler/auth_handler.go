package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/winehouse/internal/auth"
	mid "github.com/suteetoe/winehouse/internal/middleware"
	"github.com/suteetoe/winehouse/pkg/logger"
	"go.uber.org/zap"
)

// Login exchanges credentials for a bearer token
func (h *Handler) Login(c echo.Context) error {
	log := logger.FromContext(c)

	var req auth.Credentials
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid login request", zap.Error(err))
		return badRequest(c, "Invalid request data")
	}

	token, err := h.Auth.Login(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err, "Login failed")
	}
	return h.tokenResponse(c, token, http.StatusOK)
}

// RegisterUser creates an account and returns its bearer token
func (h *Handler) RegisterUser(c echo.Context) error {
	log := logger.FromContext(c)

	var req auth.Registration
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid registration request", zap.Error(err))
		return badRequest(c, "Invalid request data")
	}

	token, err := h.Auth.Register(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err, "Registration failed")
	}
	return h.tokenResponse(c, token, http.StatusCreated)
}

func (h *Handler) tokenResponse(c echo.Context, token string, status int) error {
	body := echo.Map{"token": token}
	if s, err := h.Sessions.Resolve(c.Request().Context(), token); err == nil {
		body["user"] = s.Key
	} else {
		logger.FromContext(c).Warn("Issued token could not be decoded", zap.Error(err))
	}
	return c.JSON(status, body)
}

// Me returns the identity and role behind the bearer token
func (h *Handler) Me(c echo.Context) error {
	s, _ := mid.GetSession(c)
	summary, err := s.Summary(c.Request().Context())
	if err != nil {
		return respondError(c, err, "Failed to load user")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":    summary,
		"isAdmin": summary.IsAdmin(),
	})
}

// Logout forgets the session held for the token
func (h *Handler) Logout(c echo.Context) error {
	s, _ := mid.GetSession(c)
	s.Clear()
	logger.FromContext(c).Info("User logged out")
	return c.NoContent(http.StatusNoContent)
}
