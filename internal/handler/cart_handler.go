package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/winehouse/internal/cart"
	mid "github.com/suteetoe/winehouse/internal/middleware"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"github.com/suteetoe/winehouse/pkg/logger"
	"go.uber.org/zap"
)

// CartLineRequest is the body of add and update
type CartLineRequest struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

// cartFailure renders err and, unless the session is gone, the cart view the
// user had before the failed mutation.
func cartFailure(c echo.Context, err error, last cart.View, msg string) error {
	if errors.Is(err, cart.ErrInvalidQuantity) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":  "validation failed",
			"fields": map[string]string{"quantity": "must be at least 1"},
			"cart":   last,
		})
	}
	status, body := errorBody(c, err, msg)
	if !apiclient.IsSessionError(err) && !errors.Is(err, apiclient.ErrForbidden) {
		body["cart"] = last
	}
	return c.JSON(status, body)
}

// GetCart returns the authoritative cart
func (h *Handler) GetCart(c echo.Context) error {
	s, _ := mid.GetSession(c)
	view, err := s.Cart.Get(c.Request().Context())
	if err != nil {
		return cartFailure(c, err, view, "Failed to load cart")
	}
	return c.JSON(http.StatusOK, view)
}

// AddToCart adds quantity units of a product, merging with an existing line
func (h *Handler) AddToCart(c echo.Context) error {
	log := logger.FromContext(c)
	s, _ := mid.GetSession(c)

	req := CartLineRequest{Quantity: 1}
	if err := c.Bind(&req); err != nil || req.ProductID < 1 {
		log.Error("Invalid cart request", zap.Error(err))
		return badRequest(c, "Invalid request data")
	}

	before := s.Cart.Last()
	view, err := s.Cart.Add(c.Request().Context(), req.ProductID, req.Quantity)
	if err != nil {
		return cartFailure(c, err, before, "Failed to add to cart")
	}
	log.Info("Product added to cart", zap.Int("product_id", req.ProductID), zap.Int("quantity", req.Quantity))
	return c.JSON(http.StatusOK, view)
}

// UpdateCartItem sets the quantity of a line. The product id comes from the
// path when present, otherwise from the body.
func (h *Handler) UpdateCartItem(c echo.Context) error {
	log := logger.FromContext(c)
	s, _ := mid.GetSession(c)

	var req CartLineRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid cart request", zap.Error(err))
		return badRequest(c, "Invalid request data")
	}
	if c.Param("productId") != "" {
		id, ok := intParam(c, "productId")
		if !ok {
			return badRequest(c, "Invalid product ID")
		}
		req.ProductID = id
	}
	if req.ProductID < 1 {
		return badRequest(c, "Invalid product ID")
	}

	before := s.Cart.Last()
	view, err := s.Cart.Update(c.Request().Context(), req.ProductID, req.Quantity)
	if err != nil {
		return cartFailure(c, err, before, "Failed to update cart")
	}
	return c.JSON(http.StatusOK, view)
}

// RemoveFromCart deletes a line
func (h *Handler) RemoveFromCart(c echo.Context) error {
	s, _ := mid.GetSession(c)
	id, ok := intParam(c, "productId")
	if !ok {
		return badRequest(c, "Invalid product ID")
	}

	before := s.Cart.Last()
	view, err := s.Cart.Remove(c.Request().Context(), id)
	if err != nil {
		return cartFailure(c, err, before, "Failed to remove from cart")
	}
	return c.JSON(http.StatusOK, view)
}

// ClearCart empties the cart
func (h *Handler) ClearCart(c echo.Context) error {
	s, _ := mid.GetSession(c)
	before := s.Cart.Last()
	view, err := s.Cart.Clear(c.Request().Context())
	if err != nil {
		return cartFailure(c, err, before, "Failed to clear cart")
	}
	return c.JSON(http.StatusOK, view)
}

// Badges returns the navbar counters
func (h *Handler) Badges(c echo.Context) error {
	s, _ := mid.GetSession(c)
	counts, err := s.Badges.Get(c.Request().Context())
	if err != nil {
		return respondError(c, err, "Failed to load counters")
	}
	return c.JSON(http.StatusOK, counts)
}
