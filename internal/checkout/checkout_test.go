package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/winehouse/internal/cart"
	"github.com/suteetoe/winehouse/internal/fakeapi"
	"github.com/suteetoe/winehouse/internal/model"
	"github.com/suteetoe/winehouse/internal/pending"
	"github.com/suteetoe/winehouse/internal/session"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"github.com/suteetoe/winehouse/pkg/config"
	"github.com/suteetoe/winehouse/pkg/validate"
)

var validDetails = CustomerDetails{FullName: "Ana Lopez", Phone: "+34 600 000 000", City: "Madrid", Address: "Calle Mayor 1"}

type fixture struct {
	srv     *fakeapi.Server
	sess    *session.Session
	markers *pending.MemoryStore
	orch    *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := fakeapi.New(t)
	reg := session.NewRegistry(srv.API(nil), func(context.Context, *apiclient.Client, string) (model.UserSummary, error) {
		return model.UserSummary{}, nil
	}, nil)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "buyer-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	sess, err := reg.Resolve(context.Background(), token)
	require.NoError(t, err)

	markers := pending.NewMemoryStore()
	cfg := config.CheckoutConfig{
		PollAttempts:       3,
		SuccessRedirect:    3 * time.Second,
		ProcessingRedirect: 6 * time.Second,
	}
	noSleep := func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return &fixture{
		srv:     srv,
		sess:    sess,
		markers: markers,
		orch:    New(markers, validate.New(), cfg, nil, WithSleep(noSleep)),
	}
}

func (f *fixture) fillCart(t *testing.T) {
	t.Helper()
	_, err := f.sess.Cart.Add(context.Background(), 1, 2)
	require.NoError(t, err)
}

func (f *fixture) begin(t *testing.T) Submission {
	t.Helper()
	f.fillCart(t)
	sub, err := f.orch.Begin(context.Background(), f.sess, validDetails)
	require.NoError(t, err)
	return sub
}

func (f *fixture) hasMarker(t *testing.T, txID int) bool {
	t.Helper()
	_, ok, err := f.markers.Find(context.Background(), "buyer-1", txID)
	require.NoError(t, err)
	return ok
}

func TestBegin_HappyPathWritesMarker(t *testing.T) {
	f := newFixture(t)
	sub := f.begin(t)

	assert.Equal(t, StateAwaitingExternalPayment, sub.State)
	assert.NotEmpty(t, sub.PaymentURL)
	require.NotNil(t, sub.Redirect)
	assert.Equal(t, sub.PaymentURL, sub.Redirect.To)

	m, ok, err := f.markers.Find(context.Background(), "buyer-1", sub.TransactionID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sub.OrderID, m.OrderID)
	assert.True(t, m.Amount.Equal(decimal.NewFromInt(40)))
}

func TestBegin_MissingPaymentURL(t *testing.T) {
	f := newFixture(t)
	f.srv.OmitPaymentURL()
	f.fillCart(t)

	sub, err := f.orch.Begin(context.Background(), f.sess, validDetails)
	assert.ErrorIs(t, err, ErrMissingPaymentURL)
	assert.Nil(t, sub.Redirect)
	assert.Empty(t, sub.PaymentURL)

	n, _ := f.markers.Count(context.Background())
	assert.Zero(t, n)
}

func TestBegin_ValidationBlocksRequest(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)

	details := validDetails
	details.Phone = "   "
	_, err := f.orch.Begin(context.Background(), f.sess, details)

	fields := validate.Fields(err)
	require.NotNil(t, fields)
	assert.Contains(t, fields, "phone")
	assert.Zero(t, f.srv.Calls(http.MethodPost, "/api/payments/initiate"))
}

func TestBegin_EmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.Begin(context.Background(), f.sess, validDetails)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, f.srv.Calls(http.MethodPost, "/api/payments/initiate"))
}

func TestBegin_RejectsReentrantSubmission(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)
	require.True(t, f.sess.TryBeginCheckout())

	_, err := f.orch.Begin(context.Background(), f.sess, validDetails)
	assert.ErrorIs(t, err, ErrCheckoutInProgress)

	f.sess.EndCheckout()
	_, err = f.orch.Begin(context.Background(), f.sess, validDetails)
	assert.NoError(t, err)
}

func TestBegin_BackendFailureAllowsRetry(t *testing.T) {
	f := newFixture(t)
	f.fillCart(t)
	f.srv.FailOnce(http.MethodPost, "/api/payments/initiate", http.StatusBadGateway)

	_, err := f.orch.Begin(context.Background(), f.sess, validDetails)
	assert.ErrorIs(t, err, apiclient.ErrServer)

	_, err = f.orch.Begin(context.Background(), f.sess, validDetails)
	assert.NoError(t, err)
}

func TestVerify_CompletedIsIdempotent(t *testing.T) {
	f := newFixture(t)
	sub := f.begin(t)
	f.srv.SetPaymentStatus(sub.TransactionID, "FULLYPAID")
	params := CallbackParams{TransactionID: strconv.Itoa(sub.TransactionID), Status: "FULLYPAID"}

	out, err := f.orch.Verify(context.Background(), f.sess, params)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, out.State)
	require.NotNil(t, out.Redirect)
	assert.Equal(t, Redirect{To: "/", AfterMs: 3000}, *out.Redirect)
	assert.False(t, f.hasMarker(t, sub.TransactionID))
	assert.Zero(t, f.srv.CartLines())

	again, err := f.orch.Verify(context.Background(), f.sess, params)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, again.State)
	assert.Len(t, f.srv.Callbacks(), 2)
}

func TestVerify_ProcessingKeepsMarker(t *testing.T) {
	f := newFixture(t)
	sub := f.begin(t)
	path := "/api/payments/status/" + strconv.Itoa(sub.TransactionID)

	out, err := f.orch.Verify(context.Background(), f.sess, CallbackParams{TransactionID: strconv.Itoa(sub.TransactionID), Status: "ONPAYMENT"})
	require.NoError(t, err)
	assert.Equal(t, StateProcessing, out.State)
	assert.True(t, out.MarkerKept)
	assert.Equal(t, &Redirect{To: "/cart", AfterMs: 6000}, out.Redirect)
	assert.True(t, f.hasMarker(t, sub.TransactionID))
	assert.Equal(t, 3, f.srv.Calls(http.MethodGet, path))
	assert.Equal(t, 1, f.srv.CartLines())
}

func TestVerify_FailedStatusClearsMarker(t *testing.T) {
	f := newFixture(t)
	sub := f.begin(t)
	f.srv.SetPaymentStatus(sub.TransactionID, "DECLINED")

	out, err := f.orch.Verify(context.Background(), f.sess, CallbackParams{TransactionID: strconv.Itoa(sub.TransactionID), Status: "FULLYPAID"})
	require.NoError(t, err)
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, CartPath, out.ReturnTo)
	assert.False(t, f.hasMarker(t, sub.TransactionID))
	assert.Equal(t, 1, f.srv.CartLines(), "a failed payment must not clear the cart")
}

func TestVerify_MissingTransactionID(t *testing.T) {
	f := newFixture(t)
	sub := f.begin(t)

	out, err := f.orch.Verify(context.Background(), f.sess, CallbackParams{Status: "FULLYPAID"})
	require.NoError(t, err)
	assert.Equal(t, StateFailed, out.State)
	assert.False(t, f.hasMarker(t, sub.TransactionID))
	assert.Zero(t, f.srv.Calls(http.MethodPost, "/api/payments/callback"))
}

func TestVerify_UndeterminedKeepsMarker(t *testing.T) {
	f := newFixture(t)
	sub := f.begin(t)
	f.srv.Fail(http.MethodGet, "/api/payments/status/"+strconv.Itoa(sub.TransactionID), http.StatusInternalServerError)

	out, err := f.orch.Verify(context.Background(), f.sess, CallbackParams{TransactionID: strconv.Itoa(sub.TransactionID), Status: "FULLYPAID"})
	require.NoError(t, err)
	assert.Equal(t, StateFailed, out.State)
	assert.True(t, out.MarkerKept)
	assert.True(t, f.hasMarker(t, sub.TransactionID))
}

func TestVerify_CallbackErrorTolerated(t *testing.T) {
	f := newFixture(t)
	sub := f.begin(t)
	f.srv.SetPaymentStatus(sub.TransactionID, "FULLYPAID")
	f.srv.Fail(http.MethodPost, "/api/payments/callback", http.StatusInternalServerError)

	out, err := f.orch.Verify(context.Background(), f.sess, CallbackParams{TransactionID: strconv.Itoa(sub.TransactionID)})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, out.State)
}

func TestVerify_ProviderIDFallsBackToLatestMarker(t *testing.T) {
	f := newFixture(t)
	sub := f.begin(t)
	f.srv.SetPaymentStatus(sub.TransactionID, "FULLYPAID")

	out, err := f.orch.Verify(context.Background(), f.sess, CallbackParams{TransactionID: "KB-93F2", Status: "FULLYPAID"})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, out.State)
	assert.Equal(t, sub.TransactionID, out.TransactionID)
	assert.Equal(t, "KB-93F2", f.srv.Callbacks()[0].ProviderTransactionID)
}

func TestVerifyPending(t *testing.T) {
	f := newFixture(t)
	_, found, err := f.orch.VerifyPending(context.Background(), f.sess)
	require.NoError(t, err)
	assert.False(t, found)

	sub := f.begin(t)
	f.srv.SetPaymentStatus(sub.TransactionID, "FULLYPAID")
	out, found, err := f.orch.VerifyPending(context.Background(), f.sess)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, StateCompleted, out.State)
}

func TestSummarize_UsesEffectivePrice(t *testing.T) {
	d := decimal.NewFromInt(24)
	v := cart.NewView(model.Cart{
		Items: []model.CartItem{{ProductID: 5, Title: "Chablis", Price: decimal.NewFromInt(30), DiscountPrice: &d, Quantity: 2}},
	})
	s := Summarize(v)
	require.Len(t, s.Lines, 1)
	assert.True(t, s.Lines[0].UnitPrice.Equal(d))
	assert.True(t, s.Lines[0].LineTotal.Equal(decimal.NewFromInt(48)))
	assert.Equal(t, 20, s.Lines[0].Savings)
}

func TestDecodeStatus(t *testing.T) {
	s, err := decodeStatus(json.RawMessage(`" fullypaid"`))
	require.NoError(t, err)
	assert.True(t, s.Paid())

	s, err = decodeStatus(json.RawMessage(`1`))
	require.NoError(t, err)
	assert.True(t, s.InFlight())

	s, err = decodeStatus(json.RawMessage(`3`))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatus("FAILED"), s)

	_, err = decodeStatus(nil)
	assert.Error(t, err)
}
