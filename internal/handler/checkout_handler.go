package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/winehouse/internal/checkout"
	mid "github.com/suteetoe/winehouse/internal/middleware"
	"github.com/suteetoe/winehouse/pkg/logger"
	"go.uber.org/zap"
)

// CheckoutSummary returns the order summary shown next to the payment form
// and the user's unresolved payment, if any.
func (h *Handler) CheckoutSummary(c echo.Context) error {
	s, _ := mid.GetSession(c)
	ctx := c.Request().Context()

	view, err := s.Cart.Get(ctx)
	if err != nil {
		return cartFailure(c, err, view, "Failed to load cart")
	}

	resp := echo.Map{"summary": checkout.Summarize(view)}
	if marker, ok, err := h.Checkout.Pending(ctx, s); err != nil {
		logger.FromContext(c).Warn("Loading pending payment failed", zap.Error(err))
	} else if ok {
		resp["pendingPayment"] = marker
	}
	return c.JSON(http.StatusOK, resp)
}

// BeginCheckout validates the customer details and initiates the payment.
// The response carries the provider URL to navigate to.
func (h *Handler) BeginCheckout(c echo.Context) error {
	log := logger.FromContext(c)
	s, _ := mid.GetSession(c)

	var details checkout.CustomerDetails
	if err := c.Bind(&details); err != nil {
		log.Error("Invalid checkout request", zap.Error(err))
		return badRequest(c, "Invalid request data")
	}

	sub, err := h.Checkout.Begin(c.Request().Context(), s, details)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, sub)
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		return c.JSON(http.StatusConflict, echo.Map{"error": "A payment is already being submitted"})
	case errors.Is(err, checkout.ErrEmptyCart):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":      "Your cart is empty",
			"redirectTo": checkout.CartPath,
		})
	case errors.Is(err, checkout.ErrMissingPaymentURL):
		return c.JSON(http.StatusBadGateway, echo.Map{
			"error": "The payment provider did not return a payment page. Please contact support.",
			"state": sub.State,
		})
	}
	return respondError(c, err, "Payment could not be started")
}

// PaymentCallback verifies the provider's return. Browsers get a 303 to the
// next page; API callers get the outcome as JSON.
func (h *Handler) PaymentCallback(c echo.Context) error {
	log := logger.FromContext(c)
	s, _ := mid.GetSession(c)

	params := checkout.CallbackParams{
		TransactionID: c.QueryParam("transactionId"),
		Status:        c.QueryParam("status"),
	}
	log.Info("Payment callback received",
		zap.String("provider_transaction_id", params.TransactionID),
		zap.String("reported_status", params.Status))

	out, err := h.Checkout.Verify(c.Request().Context(), s, params)
	if err != nil {
		return respondError(c, err, "Payment could not be verified")
	}
	return h.renderOutcome(c, out)
}

// PendingPayment returns the latest unresolved payment of the user
func (h *Handler) PendingPayment(c echo.Context) error {
	s, _ := mid.GetSession(c)
	marker, ok, err := h.Checkout.Pending(c.Request().Context(), s)
	if err != nil {
		return respondError(c, err, "Failed to load pending payment")
	}
	if !ok {
		return c.JSON(http.StatusOK, echo.Map{"pending": false})
	}
	return c.JSON(http.StatusOK, echo.Map{"pending": true, "payment": marker})
}

// VerifyPending re-checks the latest unresolved payment without a callback
func (h *Handler) VerifyPending(c echo.Context) error {
	s, _ := mid.GetSession(c)
	out, found, err := h.Checkout.VerifyPending(c.Request().Context(), s)
	if err != nil {
		return respondError(c, err, "Payment could not be verified")
	}
	if !found {
		return c.JSON(http.StatusOK, echo.Map{"pending": false})
	}
	return c.JSON(http.StatusOK, echo.Map{"pending": true, "outcome": out})
}

func (h *Handler) renderOutcome(c echo.Context, out checkout.Outcome) error {
	if !wantsHTML(c) {
		return c.JSON(http.StatusOK, out)
	}
	target := out.ReturnTo
	if out.Redirect != nil {
		target = out.Redirect.To
	}
	if target == "" {
		target = checkout.CartPath
	}
	return c.Redirect(http.StatusSeeOther, target)
}

func wantsHTML(c echo.Context) bool {
	accept := c.Request().Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, echo.MIMETextHTML) && !strings.Contains(accept, echo.MIMEApplicationJSON)
}
