package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	mid "github.com/suteetoe/winehouse/internal/middleware"
	"github.com/suteetoe/winehouse/internal/wishlist"
	"github.com/suteetoe/winehouse/pkg/logger"
	"go.uber.org/zap"
)

// ListWishlist returns the saved products
func (h *Handler) ListWishlist(c echo.Context) error {
	s, _ := mid.GetSession(c)
	items, err := s.Wishlist.List(c.Request().Context())
	if err != nil {
		return respondError(c, err, "Failed to load favourites")
	}
	return c.JSON(http.StatusOK, items)
}

// WishlistCount returns the number of saved products
func (h *Handler) WishlistCount(c echo.Context) error {
	s, _ := mid.GetSession(c)
	n, err := s.Wishlist.Count(c.Request().Context())
	if err != nil {
		return respondError(c, err, "Failed to load favourites")
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}

// WishlistContains reports whether a product is saved
func (h *Handler) WishlistContains(c echo.Context) error {
	s, _ := mid.GetSession(c)
	id, ok := intParam(c, "productId")
	if !ok {
		return badRequest(c, "Invalid product ID")
	}
	in, err := s.Wishlist.Contains(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err, "Failed to load favourites")
	}
	return c.JSON(http.StatusOK, echo.Map{"productId": id, "inWishlist": in})
}

// AddToWishlist saves a product; saving it twice is not an error
func (h *Handler) AddToWishlist(c echo.Context) error {
	log := logger.FromContext(c)
	s, _ := mid.GetSession(c)

	var req struct {
		ProductID int `json:"productId"`
	}
	if err := c.Bind(&req); err != nil || req.ProductID < 1 {
		log.Error("Invalid favourites request", zap.Error(err))
		return badRequest(c, "Invalid request data")
	}

	res, err := s.Wishlist.Add(c.Request().Context(), req.ProductID)
	if err != nil {
		return respondError(c, err, "Failed to add to favourites")
	}
	status := http.StatusCreated
	if res == wishlist.AlreadyPresent {
		status = http.StatusOK
	}
	return c.JSON(status, echo.Map{"productId": req.ProductID, "result": res.String()})
}

// RemoveFromWishlist deletes the entry of a product
func (h *Handler) RemoveFromWishlist(c echo.Context) error {
	s, _ := mid.GetSession(c)
	id, ok := intParam(c, "productId")
	if !ok {
		return badRequest(c, "Invalid product ID")
	}
	if err := s.Wishlist.RemoveByProduct(c.Request().Context(), id); err != nil {
		return respondError(c, err, "Failed to remove from favourites")
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveWishlistEntry deletes an entry by its own id
func (h *Handler) RemoveWishlistEntry(c echo.Context) error {
	s, _ := mid.GetSession(c)
	id, ok := intParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid favourite ID")
	}
	if err := s.Wishlist.Remove(c.Request().Context(), id); err != nil {
		return respondError(c, err, "Failed to remove from favourites")
	}
	return c.NoContent(http.StatusNoContent)
}

// ClearWishlist deletes every entry
func (h *Handler) ClearWishlist(c echo.Context) error {
	s, _ := mid.GetSession(c)
	if err := s.Wishlist.Clear(c.Request().Context()); err != nil {
		return respondError(c, err, "Failed to clear favourites")
	}
	return c.NoContent(http.StatusNoContent)
}

// MoveToCart moves one unit of a saved product into the cart
func (h *Handler) MoveToCart(c echo.Context) error {
	log := logger.FromContext(c)
	s, _ := mid.GetSession(c)
	id, ok := intParam(c, "productId")
	if !ok {
		return badRequest(c, "Invalid product ID")
	}

	view, err := s.Wishlist.MoveToCart(c.Request().Context(), id)
	var partial *wishlist.PartialFailureError
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, view)
	case errors.As(err, &partial):
		log.Error("Move to cart partially applied", zap.Int("product_id", id), zap.Error(err))
		return c.JSON(http.StatusConflict, echo.Map{
			"error":   "The product was added to your cart but is still in your favourites.",
			"partial": true,
			"cart":    view,
		})
	case errors.Is(err, wishlist.ErrMoveRolledBack):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"error":     "The product could not be moved. Nothing was changed.",
			"retryable": true,
			"cart":      view,
		})
	}
	return cartFailure(c, err, view, "Failed to move to cart")
}
