// Package cart manages the server-side shopping cart of one user.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/winehouse/internal/eventbus"
	"github.com/suteetoe/winehouse/internal/model"
	"github.com/suteetoe/winehouse/internal/pricing"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"github.com/suteetoe/winehouse/prometheus"
	"go.uber.org/zap"
)

// ErrInvalidQuantity is returned before any request for a quantity below 1
var ErrInvalidQuantity = errors.New("quantity must be a positive integer")

// Line is a cart item with its display price
type Line struct {
	model.CartItem
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	DisplayTotal decimal.Decimal `json:"displayTotal"`
	Discounted   bool            `json:"discounted"`
}

// View is the cart as rendered. Totals come from the server.
type View struct {
	Items         []Line          `json:"items"`
	ItemCount     int             `json:"itemCount"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	ShippingPrice decimal.Decimal `json:"shippingPrice"`
	Total         decimal.Decimal `json:"total"`
}

// Empty reports whether the cart has no lines
func (v View) Empty() bool {
	return len(v.Items) == 0
}

// Requests returns the {productId, quantity} snapshot sent at checkout
func (v View) Requests() []model.LineRequest {
	out := make([]model.LineRequest, 0, len(v.Items))
	for _, it := range v.Items {
		out = append(out, model.LineRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

// Quantity returns the quantity of productID, 0 when absent
func (v View) Quantity(productID int) int {
	for _, it := range v.Items {
		if it.ProductID == productID {
			return it.Quantity
		}
	}
	return 0
}

// NewView derives display lines from the server cart. Subtotal, discount,
// shipping and total are the server's and are never recomputed here.
func NewView(c model.Cart) View {
	v := View{
		Items:         make([]Line, 0, len(c.Items)),
		ItemCount:     c.ItemCount(),
		Subtotal:      c.Subtotal,
		Discount:      c.Discount,
		ShippingPrice: c.ShippingPrice,
		Total:         c.Total,
	}
	for _, it := range c.Items {
		l := Line{
			CartItem:     it,
			UnitPrice:    pricing.Effective(it.Price, it.DiscountPrice),
			DisplayTotal: pricing.LineDisplay(it.Price, it.DiscountPrice, it.Quantity),
			Discounted:   pricing.HasDiscount(it.Price, it.DiscountPrice),
		}
		v.Items = append(v.Items, l)
	}
	return v
}

// Manager re-fetches after every mutation and publishes CartUpdated
type Manager struct {
	api    *apiclient.Client
	bus    *eventbus.Bus
	logger *zap.Logger

	mu   sync.RWMutex
	last View
}

// NewManager creates a cart manager for one session
func NewManager(api *apiclient.Client, bus *eventbus.Bus, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		api:    api,
		bus:    bus,
		logger: logger,
		last:   View{Items: []Line{}},
	}
}

// Last returns the most recent successfully loaded view
func (m *Manager) Last() View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Get loads the authoritative cart. A missing cart is an empty one.
func (m *Manager) Get(ctx context.Context) (View, error) {
	var c model.Cart
	if err := m.api.Get(ctx, "/api/orders/cart", &c); err != nil {
		if !apiclient.IsNotFound(err) {
			return m.Last(), err
		}
		c = model.Cart{}
	}
	v := NewView(c)
	m.mu.Lock()
	m.last = v
	m.mu.Unlock()
	return v, nil
}

// Add increments productID by quantity; the server merges lines
func (m *Manager) Add(ctx context.Context, productID, quantity int) (View, error) {
	if quantity < 1 {
		return m.Last(), ErrInvalidQuantity
	}
	body := model.LineRequest{ProductID: productID, Quantity: quantity}
	return m.mutate(ctx, "add", productID, func() error {
		return m.api.Post(ctx, "/api/orders/cart", body, nil)
	})
}

// Update sets the quantity of productID. Quantities below 1 are rejected here
// and never reach the backend.
func (m *Manager) Update(ctx context.Context, productID, quantity int) (View, error) {
	if quantity < 1 {
		return m.Last(), ErrInvalidQuantity
	}
	body := model.LineRequest{ProductID: productID, Quantity: quantity}
	return m.mutate(ctx, "update", productID, func() error {
		return m.api.Put(ctx, "/api/orders/cart", body, nil)
	})
}

// Remove deletes the line of productID
func (m *Manager) Remove(ctx context.Context, productID int) (View, error) {
	return m.mutate(ctx, "remove", productID, func() error {
		return m.api.Delete(ctx, fmt.Sprintf("/api/orders/cart/%d", productID), nil)
	})
}

// Clear empties the cart; clearing an already empty cart succeeds
func (m *Manager) Clear(ctx context.Context) (View, error) {
	return m.mutate(ctx, "clear", 0, func() error {
		err := m.api.Delete(ctx, "/api/orders/cart", nil)
		if apiclient.IsNotFound(err) {
			return nil
		}
		return err
	})
}

func (m *Manager) mutate(ctx context.Context, op string, productID int, call func() error) (View, error) {
	if err := call(); err != nil {
		prometheus.RecordCartOperation(op, err)
		m.logger.Warn("Cart mutation failed",
			zap.String("operation", op),
			zap.Int("product_id", productID),
			zap.Error(err))
		return m.Last(), err
	}
	prometheus.RecordCartOperation(op, nil)

	v, err := m.Get(ctx)
	// the mutation happened even if the re-fetch failed
	m.bus.Publish(eventbus.CartUpdated)
	if err != nil {
		m.logger.Warn("Cart re-fetch after mutation failed", zap.String("operation", op), zap.Error(err))
		return v, err
	}

	m.logger.Debug("Cart updated",
		zap.String("operation", op),
		zap.Int("product_id", productID),
		zap.Int("item_count", v.ItemCount))
	return v, nil
}
