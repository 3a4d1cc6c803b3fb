package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus mirrors the backend enumeration shared by orders and transactions
type OrderStatus int

const (
	StatusPending OrderStatus = iota
	StatusProcessing
	StatusCompleted
	StatusFailed
	StatusCancelled
)

var orderStatusNames = [...]string{"Pending", "Processing", "Completed", "Failed", "Cancelled"}

func (s OrderStatus) String() string {
	if s.Valid() {
		return orderStatusNames[s]
	}
	return fmt.Sprintf("OrderStatus(%d)", int(s))
}

// Valid reports whether s is one of the five known states
func (s OrderStatus) Valid() bool {
	return s >= StatusPending && s <= StatusCancelled
}

// Terminal reports whether no further transition is expected
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ParseOrderStatus accepts a name ("completed") or a number ("2")
func ParseOrderStatus(v string) (OrderStatus, error) {
	v = strings.TrimSpace(v)
	for i, name := range orderStatusNames {
		if strings.EqualFold(name, v) {
			return OrderStatus(i), nil
		}
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err == nil && OrderStatus(n).Valid() {
		return OrderStatus(n), nil
	}
	return 0, fmt.Errorf("unknown order status %q", v)
}

// OrderItem is a snapshot of a cart line at checkout
type OrderItem struct {
	ProductID int             `json:"productId"`
	Title     string          `json:"title,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Total     decimal.Decimal `json:"total"`
}

// Order is created by the backend from the cart snapshot
type Order struct {
	ID           int             `json:"id"`
	UserID       string          `json:"userId,omitempty"`
	Items        []OrderItem     `json:"items"`
	DiscountCode string          `json:"discountCode,omitempty"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
	Status       OrderStatus     `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// PaymentStatus is the provider-level status reported by /api/payments/status
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentOnPayment PaymentStatus = "ONPAYMENT"
	PaymentFullyPaid PaymentStatus = "FULLYPAID"
)

// Normalize upper-cases and trims the status
func (p PaymentStatus) Normalize() PaymentStatus {
	return PaymentStatus(strings.ToUpper(strings.TrimSpace(string(p))))
}

// Paid reports an authoritative full payment
func (p PaymentStatus) Paid() bool {
	return p.Normalize() == PaymentFullyPaid
}

// InFlight reports a payment the provider is still working on
func (p PaymentStatus) InFlight() bool {
	switch p.Normalize() {
	case PaymentPending, PaymentOnPayment:
		return true
	}
	return false
}

// Transaction is the backend record of a payment attempt
type Transaction struct {
	ID                    int             `json:"id"`
	OrderID               int             `json:"orderId"`
	UserID                string          `json:"userId,omitempty"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	Status                OrderStatus     `json:"status"`
	PaymentProvider       string          `json:"paymentProvider"`
	ProviderTransactionID string          `json:"providerTransactionId"`
	CreatedAt             time.Time       `json:"createdAt"`
}

// TransactionStats is the admin dashboard summary
type TransactionStats struct {
	TotalCount      int             `json:"totalCount"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	CompletedCount  int             `json:"completedCount"`
	CompletedAmount decimal.Decimal `json:"completedAmount"`
	PendingCount    int             `json:"pendingCount"`
	FailedCount     int             `json:"failedCount"`
	CancelledCount  int             `json:"cancelledCount"`
}

// TransactionFilter is the body of POST /api/transactions/filter
type TransactionFilter struct {
	Status          *OrderStatus     `json:"status,omitempty"`
	DateFrom        *time.Time       `json:"dateFrom,omitempty"`
	DateTo          *time.Time       `json:"dateTo,omitempty"`
	PaymentProvider string           `json:"paymentProvider,omitempty"`
	MinAmount       *decimal.Decimal `json:"minAmount,omitempty"`
	MaxAmount       *decimal.Decimal `json:"maxAmount,omitempty"`
	Page            int              `json:"page"`
	PageSize        int              `json:"pageSize"`
	SortBy          string           `json:"sortBy,omitempty"`
	SortDescending  bool             `json:"sortDescending"`
}
