// Package pending persists the PendingPayment marker that bridges the
// redirect to the external payment provider and back.
package pending

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidMarker is returned by Save for a marker without user or transaction
var ErrInvalidMarker = errors.New("pending payment marker requires user key and transaction id")

// Marker is written right before the redirect and removed once a terminal
// payment status is known.
type Marker struct {
	UserKey       string          `json:"userKey"`
	OrderID       int             `json:"orderId"`
	TransactionID int             `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (m Marker) validate() error {
	if m.UserKey == "" || m.TransactionID <= 0 {
		return ErrInvalidMarker
	}
	return nil
}

// Store keeps at most one marker per (user, transaction)
type Store interface {
	Save(ctx context.Context, m Marker) error
	Latest(ctx context.Context, userKey string) (Marker, bool, error)
	Find(ctx context.Context, userKey string, transactionID int) (Marker, bool, error)
	Clear(ctx context.Context, userKey string, transactionID int) error
	Purge(ctx context.Context, before time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}
