package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	mid "github.com/suteetoe/winehouse/internal/middleware"
	"github.com/suteetoe/winehouse/pkg/logger"
	"go.uber.org/zap"
)

// MyOrders lists the orders of the current user
func (h *Handler) MyOrders(c echo.Context) error {
	log := logger.FromContext(c)
	s, _ := mid.GetSession(c)

	list, err := h.Orders.Mine(c.Request().Context(), s.API())
	if err != nil {
		return respondError(c, err, "Failed to retrieve orders")
	}
	log.Info("Orders retrieved successfully", zap.Int("count", len(list)))
	return c.JSON(http.StatusOK, list)
}

// GetOrder returns one order of the current user
func (h *Handler) GetOrder(c echo.Context) error {
	s, _ := mid.GetSession(c)
	id, ok := intParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid order ID")
	}

	o, err := h.Orders.ByID(c.Request().Context(), s.API(), id)
	if err != nil {
		return respondError(c, err, "Failed to retrieve order")
	}
	return c.JSON(http.StatusOK, o)
}
