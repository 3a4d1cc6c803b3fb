package admin

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/suteetoe/winehouse/internal/model"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"go.uber.org/zap"
)

const (
	defaultTxPageSize = 20
	maxTxPageSize     = 500
)

// ErrInvalidFilter is returned for a transaction search the backend would reject
var ErrInvalidFilter = errors.New("invalid transaction filter")

// Transactions wraps /api/transactions
type Transactions struct {
	logger *zap.Logger
}

// NewTransactions creates the transactions service
func NewTransactions(logger *zap.Logger) *Transactions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transactions{logger: logger}
}

// normalizeFilter fills paging defaults and rejects inverted ranges
func normalizeFilter(f model.TransactionFilter) (model.TransactionFilter, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultTxPageSize
	}
	if f.PageSize > maxTxPageSize {
		f.PageSize = maxTxPageSize
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return f, fmt.Errorf("%w: dateTo is before dateFrom", ErrInvalidFilter)
	}
	if f.MinAmount != nil && f.MaxAmount != nil && f.MaxAmount.LessThan(*f.MinAmount) {
		return f, fmt.Errorf("%w: maxAmount is below minAmount", ErrInvalidFilter)
	}
	if f.Status != nil && !f.Status.Valid() {
		return f, fmt.Errorf("%w: unknown status %d", ErrInvalidFilter, int(*f.Status))
	}
	return f, nil
}

// Filter runs the server-side transaction search
func (t *Transactions) Filter(ctx context.Context, api *apiclient.Client, f model.TransactionFilter) (model.Page[model.Transaction], error) {
	f, err := normalizeFilter(f)
	if err != nil {
		return model.Page[model.Transaction]{}, err
	}

	var out model.Page[model.Transaction]
	if err := api.Post(ctx, "/api/transactions/filter", f, &out); err != nil {
		return model.Page[model.Transaction]{}, err
	}
	if out.Items == nil {
		out.Items = []model.Transaction{}
	}
	if out.TotalPages < 1 {
		out.TotalPages = 1
	}
	return out, nil
}

func (t *Transactions) Stats(ctx context.Context, api *apiclient.Client) (model.TransactionStats, error) {
	var out model.TransactionStats
	err := api.Get(ctx, "/api/transactions/stats", &out)
	return out, err
}

func (t *Transactions) Get(ctx context.Context, api *apiclient.Client, id int) (model.Transaction, error) {
	var out model.Transaction
	err := api.Get(ctx, fmt.Sprintf("/api/transactions/%d", id), &out)
	return out, err
}

// ByOrder lists the payment attempts of an order
func (t *Transactions) ByOrder(ctx context.Context, api *apiclient.Client, orderID int) ([]model.Transaction, error) {
	return t.list(ctx, api, fmt.Sprintf("/api/transactions/order/%d", orderID))
}

// ByUser lists the payment attempts of a user
func (t *Transactions) ByUser(ctx context.Context, api *apiclient.Client, userID string) ([]model.Transaction, error) {
	return t.list(ctx, api, "/api/transactions/user/"+url.PathEscape(userID))
}

func (t *Transactions) list(ctx context.Context, api *apiclient.Client, path string) ([]model.Transaction, error) {
	var out []model.Transaction
	if err := api.Get(ctx, path, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Transaction{}
	}
	return out, nil
}

// UpdateStatus overrides a transaction status
func (t *Transactions) UpdateStatus(ctx context.Context, api *apiclient.Client, id int, status model.OrderStatus) (model.Transaction, error) {
	if !status.Valid() {
		return model.Transaction{}, fmt.Errorf("unknown transaction status %d", int(status))
	}
	var out model.Transaction
	body := map[string]model.OrderStatus{"status": status}
	if err := api.Patch(ctx, fmt.Sprintf("/api/transactions/%d/status", id), body, &out); err != nil {
		return model.Transaction{}, err
	}
	t.logger.Info("Transaction status updated",
		zap.Int("transaction_id", id),
		zap.String("status", status.String()))
	return out, nil
}
