package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/winehouse/pkg/logger"
	"go.uber.org/zap"
)

// RequestIDMiddleware adds a unique request ID to each request. A well-formed
// incoming X-Request-ID is kept so traces line up with the caller.
func RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(logger.RequestIDKey)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}

		c.Request().Header.Set(logger.RequestIDKey, requestID)
		c.Response().Header().Set(logger.RequestIDKey, requestID)
		c.Set("request_id", requestID)

		// Set logger in context
		log := logger.GetLogger().With(zap.String("request_id", requestID))
		setLogger(c, log)

		return next(c)
	}
}

// setLogger installs log for both echo handlers and context-only code
func setLogger(c echo.Context, log *zap.Logger) {
	c.Set("logger", log)
	ctx := logger.WithContext(c.Request().Context(), log)
	c.SetRequest(c.Request().WithContext(ctx))
}
