package checkout

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/winehouse/internal/model"
	"github.com/suteetoe/winehouse/internal/pending"
	"github.com/suteetoe/winehouse/internal/session"
	"github.com/suteetoe/winehouse/prometheus"
	"go.uber.org/zap"
)

type initiateRequest struct {
	Items        []model.LineRequest `json:"items"`
	DiscountCode string              `json:"discountCode"`
}

type initiateResponse struct {
	PaymentURL    string          `json:"paymentUrl"`
	TransactionID int             `json:"transactionId"`
	OrderID       int             `json:"orderId"`
	Amount        decimal.Decimal `json:"amount"`
}

// Begin validates the details, initiates the payment for the current cart and
// stores the pending marker. The marker is written before the redirect is
// returned. A second Begin while one is running fails with
// ErrCheckoutInProgress.
func (o *Orchestrator) Begin(ctx context.Context, s *session.Session, details CustomerDetails) (Submission, error) {
	if !s.TryBeginCheckout() {
		prometheus.RecordCheckoutOutcome("rejected_in_progress")
		return Submission{State: StateIdle}, ErrCheckoutInProgress
	}
	defer s.EndCheckout()

	log := s.Logger()
	details = details.trimmed()
	log.Debug("Checkout state", zap.String("state", string(StateValidating)))
	if err := o.validate.Struct(details); err != nil {
		prometheus.RecordCheckoutOutcome("invalid_details")
		return Submission{State: StateIdle}, err
	}

	view, err := s.Cart.Get(ctx)
	if err != nil {
		return Submission{State: StateIdle}, err
	}
	if view.Empty() {
		return Submission{State: StateIdle}, ErrEmptyCart
	}

	log.Debug("Checkout state", zap.String("state", string(StateSubmitting)))
	req := initiateRequest{Items: view.Requests(), DiscountCode: details.DiscountCode}
	var resp initiateResponse
	if err := s.API().Post(ctx, "/api/payments/initiate", req, &resp); err != nil {
		prometheus.RecordCheckoutOutcome("initiate_failed")
		log.Warn("Payment initiation failed", zap.Error(err))
		return Submission{State: StateIdle}, err
	}
	if resp.PaymentURL == "" {
		prometheus.RecordCheckoutOutcome("missing_payment_url")
		log.Error("Payment initiation returned no payment url",
			zap.Int("transaction_id", resp.TransactionID),
			zap.Int("order_id", resp.OrderID))
		return Submission{State: StateFailed}, ErrMissingPaymentURL
	}

	marker := pending.Marker{
		UserKey:       s.Key,
		OrderID:       resp.OrderID,
		TransactionID: resp.TransactionID,
		Amount:        resp.Amount,
		CreatedAt:     o.now().UTC(),
	}
	if err := o.markers.Save(ctx, marker); err != nil {
		prometheus.RecordCheckoutOutcome("marker_failed")
		log.Error("Saving pending payment failed", zap.Int("transaction_id", resp.TransactionID), zap.Error(err))
		return Submission{State: StateFailed}, fmt.Errorf("save pending payment: %w", err)
	}
	o.refreshPendingGauge(ctx)

	prometheus.RecordCheckoutOutcome("submitted")
	log.Info("Payment initiated",
		zap.Int("transaction_id", resp.TransactionID),
		zap.Int("order_id", resp.OrderID),
		zap.String("amount", resp.Amount.String()))

	return Submission{
		State:         StateAwaitingExternalPayment,
		PaymentURL:    resp.PaymentURL,
		TransactionID: resp.TransactionID,
		OrderID:       resp.OrderID,
		Amount:        resp.Amount,
		Redirect:      &Redirect{To: resp.PaymentURL},
	}, nil
}

// Pending returns the latest unresolved payment of the user
func (o *Orchestrator) Pending(ctx context.Context, s *session.Session) (pending.Marker, bool, error) {
	return o.markers.Latest(ctx, s.Key)
}

func (o *Orchestrator) refreshPendingGauge(ctx context.Context) {
	if n, err := o.markers.Count(ctx); err == nil {
		prometheus.SetPendingPayments(n)
	}
}
