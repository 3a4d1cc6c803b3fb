package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/winehouse/pkg/logger"
	"go.uber.org/zap"
)

// HealthCheck handles the health check endpoint
func (h *Handler) HealthCheck(c echo.Context) error {
	log := logger.FromContext(c)

	response := map[string]interface{}{
		"status":   "ok",
		"time":     time.Now().Format(time.RFC3339),
		"sessions": h.Sessions.Len(),
	}

	// Check database connection if requested
	if c.QueryParam("check") == "db" {
		if h.Ping == nil {
			response["db_status"] = "disabled"
			return c.JSON(http.StatusOK, response)
		}
		if err := h.Ping(c.Request().Context()); err != nil {
			log.Error("Database ping error", zap.Error(err))
			response["status"] = "error"
			response["db_status"] = "error"
			response["db_error"] = "Failed to ping database"
			return c.JSON(http.StatusInternalServerError, response)
		}
		response["db_status"] = "ok"
	}

	return c.JSON(http.StatusOK, response)
}
