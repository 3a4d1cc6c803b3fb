// Package orders reads the customer's orders and lets admins override status.
package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/suteetoe/winehouse/internal/model"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"go.uber.org/zap"
)

var ErrInvalidStatus = errors.New("invalid order status")

// Service wraps the order endpoints. Calls are made with the caller's client
// so the request carries that user's token.
type Service struct {
	logger *zap.Logger
}

// NewService creates an order service
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger}
}

// Mine lists the orders of the token holder, newest first as the backend sends them
func (s *Service) Mine(ctx context.Context, api *apiclient.Client) ([]model.Order, error) {
	var out []model.Order
	if err := api.Get(ctx, "/api/orders", &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Order{}
	}
	return out, nil
}

// ByID fetches one order
func (s *Service) ByID(ctx context.Context, api *apiclient.Client, id int) (model.Order, error) {
	var out model.Order
	err := api.Get(ctx, fmt.Sprintf("/api/orders/%d", id), &out)
	return out, err
}

// All lists every order (admin)
func (s *Service) All(ctx context.Context, api *apiclient.Client) ([]model.Order, error) {
	var out []model.Order
	if err := api.Get(ctx, "/api/orders/all", &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Order{}
	}
	return out, nil
}

// UpdateStatus overrides the status of an order (admin)
func (s *Service) UpdateStatus(ctx context.Context, api *apiclient.Client, id int, status model.OrderStatus) (model.Order, error) {
	if !status.Valid() {
		return model.Order{}, fmt.Errorf("%w: %d", ErrInvalidStatus, int(status))
	}

	var out model.Order
	body := map[string]model.OrderStatus{"status": status}
	if err := api.Patch(ctx, fmt.Sprintf("/api/orders/%d/status", id), body, &out); err != nil {
		s.logger.Warn("Updating order status failed",
			zap.Int("order_id", id),
			zap.String("status", status.String()),
			zap.Error(err))
		return model.Order{}, err
	}
	s.logger.Info("Order status updated",
		zap.Int("order_id", id),
		zap.String("status", status.String()))
	return out, nil
}
