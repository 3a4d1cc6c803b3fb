// Package wishlist manages the saved products of one user.
package wishlist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/suteetoe/winehouse/internal/cart"
	"github.com/suteetoe/winehouse/internal/eventbus"
	"github.com/suteetoe/winehouse/internal/model"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"github.com/suteetoe/winehouse/prometheus"
	"go.uber.org/zap"
)

// AddResult tells whether Add created an entry
type AddResult int

const (
	Added AddResult = iota
	AlreadyPresent
)

func (r AddResult) String() string {
	if r == AlreadyPresent {
		return "already_present"
	}
	return "added"
}

// ErrMoveRolledBack is returned when the wishlist removal failed and the cart
// was restored; the product is still only in the wishlist.
var ErrMoveRolledBack = errors.New("move to cart rolled back")

// PartialFailureError reports a move that left the product in both lists
type PartialFailureError struct {
	ProductID   int
	RemoveErr   error
	RollbackErr error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("product %d is now in both cart and wishlist: wishlist remove: %v; cart rollback: %v",
		e.ProductID, e.RemoveErr, e.RollbackErr)
}

func (e *PartialFailureError) Unwrap() []error {
	return []error{e.RemoveErr, e.RollbackErr}
}

// Manager publishes WishlistUpdated after every mutation
type Manager struct {
	api    *apiclient.Client
	bus    *eventbus.Bus
	cart   *cart.Manager
	logger *zap.Logger
}

// NewManager creates a wishlist manager; cart is used by MoveToCart
func NewManager(api *apiclient.Client, bus *eventbus.Bus, cart *cart.Manager, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{api: api, bus: bus, cart: cart, logger: logger}
}

// List returns the wishlist entries
func (m *Manager) List(ctx context.Context) ([]model.WishlistItem, error) {
	items := []model.WishlistItem{}
	if err := m.api.Get(ctx, "/api/wishlists", &items); err != nil {
		if apiclient.IsNotFound(err) {
			return []model.WishlistItem{}, nil
		}
		return nil, err
	}
	if items == nil {
		items = []model.WishlistItem{}
	}
	return items, nil
}

// Count returns the number of entries
func (m *Manager) Count(ctx context.Context) (int, error) {
	var raw json.RawMessage
	if err := m.api.Get(ctx, "/api/wishlists/count", &raw); err != nil {
		return 0, err
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var wrapped struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return 0, fmt.Errorf("decode wishlist count: %w", err)
	}
	return wrapped.Count, nil
}

// Contains reports whether productID is saved
func (m *Manager) Contains(ctx context.Context, productID int) (bool, error) {
	var raw json.RawMessage
	if err := m.api.Get(ctx, fmt.Sprintf("/api/wishlists/check/%d", productID), &raw); err != nil {
		return false, err
	}
	return decodeFlag(raw)
}

// Add saves productID. Saving a product twice is not an error: the second
// call reports AlreadyPresent.
func (m *Manager) Add(ctx context.Context, productID int) (AddResult, error) {
	present, err := m.Contains(ctx, productID)
	if err != nil && apiclient.IsSessionError(err) {
		return Added, err
	}
	if err == nil && present {
		prometheus.RecordWishlistOperation("add", nil)
		return AlreadyPresent, nil
	}

	body := map[string]int{"productId": productID}
	if err := m.api.Post(ctx, "/api/wishlists", body, nil); err != nil {
		if apiclient.IsConflict(err) {
			prometheus.RecordWishlistOperation("add", nil)
			return AlreadyPresent, nil
		}
		prometheus.RecordWishlistOperation("add", err)
		m.logger.Warn("Wishlist add failed", zap.Int("product_id", productID), zap.Error(err))
		return Added, err
	}

	prometheus.RecordWishlistOperation("add", nil)
	m.bus.Publish(eventbus.WishlistUpdated)
	return Added, nil
}

// RemoveByProduct deletes the entry for productID
func (m *Manager) RemoveByProduct(ctx context.Context, productID int) error {
	return m.mutate("remove_product", m.api.Delete(ctx, fmt.Sprintf("/api/wishlists/product/%d", productID), nil))
}

// Remove deletes a wishlist entry by its own id
func (m *Manager) Remove(ctx context.Context, entryID int) error {
	return m.mutate("remove", m.api.Delete(ctx, fmt.Sprintf("/api/wishlists/%d", entryID), nil))
}

// Clear deletes every entry
func (m *Manager) Clear(ctx context.Context) error {
	err := m.api.Delete(ctx, "/api/wishlists", nil)
	if apiclient.IsNotFound(err) {
		err = nil
	}
	return m.mutate("clear", err)
}

func (m *Manager) mutate(op string, err error) error {
	prometheus.RecordWishlistOperation(op, err)
	if err != nil {
		m.logger.Warn("Wishlist mutation failed", zap.String("operation", op), zap.Error(err))
		return err
	}
	m.bus.Publish(eventbus.WishlistUpdated)
	return nil
}

// MoveToCart adds productID to the cart and then removes it from the
// wishlist. If the removal fails the cart add is undone; if that also fails a
// *PartialFailureError is returned.
func (m *Manager) MoveToCart(ctx context.Context, productID int) (cart.View, error) {
	before, err := m.cart.Get(ctx)
	if err != nil {
		return before, err
	}
	prior := before.Quantity(productID)

	view, err := m.cart.Add(ctx, productID, 1)
	if err != nil {
		return view, err
	}

	removeErr := m.RemoveByProduct(ctx, productID)
	if removeErr == nil || apiclient.IsNotFound(removeErr) {
		prometheus.RecordWishlistOperation("move_to_cart", nil)
		return view, nil
	}
	if apiclient.IsSessionError(removeErr) {
		return view, removeErr
	}

	var rollbackErr error
	if prior == 0 {
		view, rollbackErr = m.cart.Remove(ctx, productID)
	} else {
		view, rollbackErr = m.cart.Update(ctx, productID, prior)
	}
	if rollbackErr != nil {
		m.logger.Error("Move to cart left product in both lists",
			zap.Int("product_id", productID),
			zap.NamedError("remove_error", removeErr),
			zap.NamedError("rollback_error", rollbackErr))
		perr := &PartialFailureError{ProductID: productID, RemoveErr: removeErr, RollbackErr: rollbackErr}
		prometheus.RecordWishlistOperation("move_to_cart", perr)
		return view, perr
	}

	prometheus.RecordWishlistOperation("move_to_cart", removeErr)
	return view, fmt.Errorf("%w: %w", ErrMoveRolledBack, removeErr)
}

func decodeFlag(raw json.RawMessage) (bool, error) {
	raw = bytes.TrimSpace(raw)
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var wrapped struct {
		IsInWishlist *bool `json:"isInWishlist"`
		Exists       *bool `json:"exists"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return false, fmt.Errorf("decode wishlist check: %w", err)
	}
	switch {
	case wrapped.IsInWishlist != nil:
		return *wrapped.IsInWishlist, nil
	case wrapped.Exists != nil:
		return *wrapped.Exists, nil
	}
	return false, nil
}
