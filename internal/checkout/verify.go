package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/suteetoe/winehouse/internal/eventbus"
	"github.com/suteetoe/winehouse/internal/model"
	"github.com/suteetoe/winehouse/internal/pending"
	"github.com/suteetoe/winehouse/internal/session"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"github.com/suteetoe/winehouse/prometheus"
	"go.uber.org/zap"
)

// CallbackParams are the query parameters of the provider's return URL. They
// are user-editable and only select which payment to verify.
type CallbackParams struct {
	TransactionID string `query:"transactionId" json:"transactionId"`
	Status        string `query:"status" json:"status"`
}

type callbackRequest struct {
	ProviderTransactionID string `json:"providerTransactionId"`
	Status                string `json:"status"`
}

type statusResponse struct {
	Status json.RawMessage `json:"status"`
}

// Verify resolves a return from the payment provider. The callback is
// relayed to the backend, then the payment status is polled and only the
// polled status decides the outcome. Calling Verify again for the same
// payment is safe.
func (o *Orchestrator) Verify(ctx context.Context, s *session.Session, p CallbackParams) (Outcome, error) {
	log := s.Logger()
	providerID := strings.TrimSpace(p.TransactionID)

	marker, hasMarker, err := o.markerFor(ctx, s.Key, providerID)
	if err != nil {
		log.Warn("Loading pending payment failed", zap.Error(err))
	}

	txID := 0
	if hasMarker {
		txID = marker.TransactionID
	} else if n, convErr := strconv.Atoi(providerID); convErr == nil && n > 0 {
		txID = n
	}

	if providerID == "" || txID <= 0 {
		if hasMarker {
			o.clearMarker(ctx, s, marker.TransactionID)
		}
		prometheus.RecordCheckoutOutcome("failed")
		return Outcome{
			State:    StateFailed,
			Message:  "Invalid payment callback parameters",
			ReturnTo: CartPath,
		}, nil
	}

	log.Debug("Checkout state", zap.String("state", string(StateVerifying)), zap.Int("transaction_id", txID))

	cb := callbackRequest{ProviderTransactionID: providerID, Status: strings.TrimSpace(p.Status)}
	if err := s.API().Post(ctx, "/api/payments/callback", cb, nil); err != nil {
		if apiclient.IsSessionError(err) {
			return Outcome{State: StateVerifying, TransactionID: txID, MarkerKept: hasMarker}, err
		}
		log.Warn("Payment callback relay failed, relying on status poll",
			zap.Int("transaction_id", txID),
			zap.Error(err))
	}

	status, err := o.poll(ctx, s, txID)
	if err != nil {
		if apiclient.IsSessionError(err) || ctx.Err() != nil {
			return Outcome{State: StateVerifying, TransactionID: txID, MarkerKept: hasMarker}, err
		}
		prometheus.RecordCheckoutOutcome("undetermined")
		log.Warn("Payment status could not be determined", zap.Int("transaction_id", txID), zap.Error(err))
		return Outcome{
			State:         StateFailed,
			TransactionID: txID,
			Message:       "We could not confirm your payment. Please contact support with your transaction number.",
			MarkerKept:    hasMarker,
			ReturnTo:      CartPath,
		}, nil
	}

	out := Outcome{TransactionID: txID, PaymentStatus: string(status)}
	switch {
	case status.Paid():
		o.clearMarker(ctx, s, txID)
		if _, err := s.Cart.Clear(ctx); err != nil {
			log.Warn("Clearing cart after payment failed", zap.Int("transaction_id", txID), zap.Error(err))
			s.Bus.Publish(eventbus.CartUpdated)
		}
		out.State = StateCompleted
		out.Message = "Payment completed successfully!"
		out.Redirect = redirectAfter(HomePath, o.cfg.SuccessRedirect)
		prometheus.RecordCheckoutOutcome("completed")
		log.Info("Payment completed", zap.Int("transaction_id", txID))

	case status.InFlight():
		out.State = StateProcessing
		out.Message = "Your payment is still being processed. We will update your order once it is confirmed."
		out.MarkerKept = hasMarker
		out.Redirect = redirectAfter(CartPath, o.cfg.ProcessingRedirect)
		prometheus.RecordCheckoutOutcome("processing")
		log.Info("Payment still processing", zap.Int("transaction_id", txID), zap.String("status", string(status)))

	default:
		o.clearMarker(ctx, s, txID)
		out.State = StateFailed
		out.Message = "Payment failed"
		out.ReturnTo = CartPath
		prometheus.RecordCheckoutOutcome("failed")
		log.Info("Payment failed", zap.Int("transaction_id", txID), zap.String("status", string(status)))
	}
	return out, nil
}

// VerifyPending re-checks the user's latest pending payment without a
// provider callback, e.g. when the user comes back to the cart later.
func (o *Orchestrator) VerifyPending(ctx context.Context, s *session.Session) (Outcome, bool, error) {
	marker, ok, err := o.markers.Latest(ctx, s.Key)
	if err != nil || !ok {
		return Outcome{State: StateIdle}, false, err
	}
	out, err := o.Verify(ctx, s, CallbackParams{TransactionID: strconv.Itoa(marker.TransactionID)})
	return out, true, err
}

// markerFor finds the marker the callback refers to, falling back to the
// user's latest one since the provider id may differ from ours.
func (o *Orchestrator) markerFor(ctx context.Context, userKey, providerID string) (pending.Marker, bool, error) {
	if n, err := strconv.Atoi(providerID); err == nil && n > 0 {
		m, ok, err := o.markers.Find(ctx, userKey, n)
		if err != nil || ok {
			return m, ok, err
		}
	}
	return o.markers.Latest(ctx, userKey)
}

func (o *Orchestrator) clearMarker(ctx context.Context, s *session.Session, txID int) {
	if err := o.markers.Clear(ctx, s.Key, txID); err != nil {
		s.Logger().Error("Clearing pending payment failed", zap.Int("transaction_id", txID), zap.Error(err))
		return
	}
	o.refreshPendingGauge(ctx)
}

// poll asks for the authoritative status up to PollAttempts times. A status
// still in flight is polled again; any other status ends the loop. It fails
// only when no attempt returned a status.
func (o *Orchestrator) poll(ctx context.Context, s *session.Session, txID int) (model.PaymentStatus, error) {
	path := fmt.Sprintf("/api/payments/status/%d", txID)
	var (
		last    model.PaymentStatus
		lastErr error
		got     bool
	)
	for attempt := 1; attempt <= o.cfg.PollAttempts; attempt++ {
		if attempt > 1 {
			if err := o.sleep(ctx, o.cfg.PollInterval); err != nil {
				return "", err
			}
		}

		var resp statusResponse
		if err := s.API().Get(ctx, path, &resp); err != nil {
			if apiclient.IsSessionError(err) {
				return "", err
			}
			lastErr = err
			s.Logger().Debug("Payment status poll failed",
				zap.Int("transaction_id", txID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		status, err := decodeStatus(resp.Status)
		if err != nil {
			lastErr = err
			continue
		}
		last, got = status, true
		if !status.InFlight() {
			return status, nil
		}
	}
	if got {
		return last, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no payment status for transaction %d", txID)
	}
	return "", lastErr
}

// decodeStatus accepts the provider string or the numeric order status
func decodeStatus(raw json.RawMessage) (model.PaymentStatus, error) {
	raw = bytes.TrimSpace(raw)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
		return model.PaymentStatus(s).Normalize(), nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		switch model.OrderStatus(n) {
		case model.StatusCompleted:
			return model.PaymentFullyPaid, nil
		case model.StatusPending, model.StatusProcessing:
			return model.PaymentPending, nil
		default:
			return model.PaymentStatus(strings.ToUpper(model.OrderStatus(n).String())), nil
		}
	}
	return "", fmt.Errorf("unrecognized payment status %s", string(raw))
}
