package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/winehouse/internal/session"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"github.com/suteetoe/winehouse/pkg/logger"
	"go.uber.org/zap"
)

// Navigation targets returned with authentication failures
const (
	LoginPath         = "/auth/login"
	NotAuthorizedPath = "/not-authorized"
	AdminPrefix       = "/admin"
)

const sessionKey = "session"

// SessionMiddleware resolves the bearer token into the user's session. A
// request without a token passes through anonymously; a malformed, expired or
// backend-rejected token is rejected.
func SessionMiddleware(reg *session.Registry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			token, ok := bearerToken(c.Request().Header.Get("Authorization"))
			if !ok {
				return next(c)
			}

			s, err := reg.Resolve(c.Request().Context(), token)
			if err != nil {
				if backendDown(err) {
					log.Error("Could not confirm bearer token", zap.Error(err))
					return c.JSON(http.StatusServiceUnavailable, echo.Map{
						"error":     "could not verify session",
						"retryable": true,
					})
				}
				log.Warn("Rejected bearer token", zap.Error(err))
				return SessionExpired(c, "invalid or expired token")
			}

			c.Set(sessionKey, s)
			setLogger(c, log.With(zap.String("user", s.Key)))
			return next(c)
		}
	}
}

func backendDown(err error) bool {
	return errors.Is(err, apiclient.ErrUnavailable) ||
		errors.Is(err, apiclient.ErrServer) ||
		errors.Is(err, context.DeadlineExceeded)
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// GetSession returns the session resolved for this request
func GetSession(c echo.Context) (*session.Session, bool) {
	s, ok := c.Get(sessionKey).(*session.Session)
	return s, ok && s != nil
}

// RequireSession rejects anonymous requests
func RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := GetSession(c); !ok {
			logger.FromContext(c).Warn("Missing Authorization header")
			return Unauthorized(c, "missing authorization token", LoginPath)
		}
		return next(c)
	}
}

// RequireAdmin lets through sessions whose backend role claim is Admin
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		s, ok := GetSession(c)
		if !ok {
			return Unauthorized(c, "missing authorization token", LoginPath)
		}

		admin, err := s.IsAdmin(c.Request().Context())
		if err != nil {
			if apiclient.IsSessionError(err) {
				return SessionExpired(c, "session expired")
			}
			log.Error("Resolving user role failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, echo.Map{
				"error":     "could not verify permissions",
				"retryable": true,
			})
		}
		if !admin {
			log.Warn("Non-admin user denied back-office access")
			return Forbidden(c, "admin role required")
		}
		return next(c)
	}
}

// SessionExpired answers 401 and points the renderer at the login page, or at
// the not-authorized page for back-office routes.
func SessionExpired(c echo.Context, msg string) error {
	return Unauthorized(c, msg, SessionRedirect(c))
}

// SessionRedirect is where an expired session sends the user
func SessionRedirect(c echo.Context) string {
	if strings.HasPrefix(c.Request().URL.Path, AdminPrefix) {
		return NotAuthorizedPath
	}
	return LoginPath
}

// Unauthorized answers 401 with an explicit redirect target
func Unauthorized(c echo.Context, msg, redirectTo string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"error":      msg,
		"redirectTo": redirectTo,
	})
}

// Forbidden answers 403 pointing at the not-authorized page
func Forbidden(c echo.Context, msg string) error {
	return c.JSON(http.StatusForbidden, echo.Map{
		"error":      msg,
		"redirectTo": NotAuthorizedPath,
	})
}
