// Package checkout runs the payment flow: validate the customer, initiate the
// payment, persist the pending marker, and verify the provider's return.
package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/winehouse/internal/pending"
	"github.com/suteetoe/winehouse/pkg/config"
	"github.com/suteetoe/winehouse/pkg/validate"
	"go.uber.org/zap"
)

// State is a step of the checkout flow
type State string

const (
	StateIdle                    State = "idle"
	StateValidating              State = "validating"
	StateSubmitting              State = "submitting"
	StateAwaitingExternalPayment State = "awaiting_external_payment"
	StateVerifying               State = "verifying"
	StateProcessing              State = "processing"
	StateCompleted               State = "completed"
	StateFailed                  State = "failed"
)

// Terminal reports whether the flow is finished for this attempt
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

var (
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrMissingPaymentURL  = errors.New("payment provider did not return a payment url")
)

// CartPath and HomePath are the redirect targets after verification
const (
	CartPath = "/cart"
	HomePath = "/"
)

// CustomerDetails are collected before payment
type CustomerDetails struct {
	FullName     string `json:"fullName" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	City         string `json:"city" validate:"required"`
	Address      string `json:"address" validate:"required"`
	DiscountCode string `json:"discountCode,omitempty"`
}

func (d CustomerDetails) trimmed() CustomerDetails {
	return CustomerDetails{
		FullName:     strings.TrimSpace(d.FullName),
		Phone:        strings.TrimSpace(d.Phone),
		City:         strings.TrimSpace(d.City),
		Address:      strings.TrimSpace(d.Address),
		DiscountCode: strings.TrimSpace(d.DiscountCode),
	}
}

// Redirect tells the renderer where to navigate and when
type Redirect struct {
	To      string `json:"redirectTo"`
	AfterMs int64  `json:"redirectAfterMs"`
}

func redirectAfter(to string, d time.Duration) *Redirect {
	return &Redirect{To: to, AfterMs: d.Milliseconds()}
}

// Submission is the result of a successful Begin
type Submission struct {
	State         State           `json:"state"`
	PaymentURL    string          `json:"paymentUrl"`
	TransactionID int             `json:"transactionId"`
	OrderID       int             `json:"orderId,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Redirect      *Redirect       `json:"redirect"`
}

// Outcome is the result of Verify
type Outcome struct {
	State         State     `json:"state"`
	TransactionID int       `json:"transactionId,omitempty"`
	PaymentStatus string    `json:"paymentStatus,omitempty"`
	Message       string    `json:"message"`
	MarkerKept    bool      `json:"markerKept"`
	Redirect      *Redirect `json:"redirect,omitempty"`
	ReturnTo      string    `json:"returnTo,omitempty"`
}

// Orchestrator is stateless across users; per-user state lives in the session
// and the pending marker store.
type Orchestrator struct {
	markers  pending.Store
	validate *validate.Validator
	cfg      config.CheckoutConfig
	logger   *zap.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithClock overrides the marker timestamp source
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithSleep overrides the wait between status polls
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = sleep }
}

// New creates an Orchestrator
func New(markers pending.Store, v *validate.Validator, cfg config.CheckoutConfig, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PollAttempts < 1 {
		cfg.PollAttempts = 1
	}
	o := &Orchestrator{
		markers:  markers,
		validate: v,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
