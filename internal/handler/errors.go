package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	mid "github.com/suteetoe/winehouse/internal/middleware"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"github.com/suteetoe/winehouse/pkg/logger"
	"github.com/suteetoe/winehouse/pkg/validate"
	"go.uber.org/zap"
)

// respondError translates a service error into the JSON error shapes the
// renderer understands. msg is shown for failures without a better message.
func respondError(c echo.Context, err error, msg string) error {
	status, body := errorBody(c, err, msg)
	return c.JSON(status, body)
}

func errorBody(c echo.Context, err error, msg string) (int, echo.Map) {
	log := logger.FromContext(c)

	if fields := validate.Fields(err); fields != nil {
		log.Info("Validation failed", zap.Any("fields", fields))
		return http.StatusUnprocessableEntity, echo.Map{
			"error":  "validation failed",
			"fields": fields,
		}
	}

	var apiErr *apiclient.APIError
	errors.As(err, &apiErr)

	switch {
	case apiclient.IsSessionError(err):
		log.Warn("Backend session expired", zap.Error(err))
		return http.StatusUnauthorized, echo.Map{
			"error":      "session expired",
			"redirectTo": mid.SessionRedirect(c),
		}

	case errors.Is(err, apiclient.ErrForbidden):
		log.Warn("Backend denied access", zap.Error(err))
		return http.StatusForbidden, echo.Map{
			"error":      "not authorized",
			"redirectTo": mid.NotAuthorizedPath,
		}

	case apiclient.IsNotFound(err):
		return http.StatusNotFound, echo.Map{"error": backendMessage(apiErr, "not found")}

	case apiclient.IsConflict(err):
		return http.StatusConflict, echo.Map{"error": backendMessage(apiErr, msg)}

	case errors.Is(err, apiclient.ErrBadRequest):
		body := echo.Map{"error": backendMessage(apiErr, msg)}
		if apiErr != nil && len(apiErr.Fields) > 0 {
			body["fields"] = apiErr.Fields
		}
		return http.StatusBadRequest, body

	case errors.Is(err, apiclient.ErrUnavailable), errors.Is(err, apiclient.ErrServer):
		log.Error(msg, zap.Error(err))
		return http.StatusServiceUnavailable, echo.Map{"error": msg, "retryable": true}

	case errors.Is(err, context.DeadlineExceeded):
		log.Error(msg, zap.Error(err))
		return http.StatusGatewayTimeout, echo.Map{"error": msg, "retryable": true}
	}

	log.Error(msg, zap.Error(err))
	return http.StatusInternalServerError, echo.Map{"error": msg}
}

func backendMessage(apiErr *apiclient.APIError, fallback string) string {
	if apiErr != nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// intParam parses a positive integer path parameter
func intParam(c echo.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
