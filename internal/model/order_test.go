package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_String(t *testing.T) {
	assert.Equal(t, "Pending", StatusPending.String())
	assert.Equal(t, "Cancelled", StatusCancelled.String())
	assert.Equal(t, "OrderStatus(9)", OrderStatus(9).String())
}

func TestOrderStatus_JSONIsInteger(t *testing.T) {
	b, err := json.Marshal(struct {
		Status OrderStatus `json:"status"`
	}{StatusCompleted})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":2}`, string(b))
}

func TestParseOrderStatus(t *testing.T) {
	s, err := ParseOrderStatus("failed")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, s)

	s, err = ParseOrderStatus("4")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, s)

	_, err = ParseOrderStatus("7")
	assert.Error(t, err)
}

func TestPaymentStatus(t *testing.T) {
	assert.True(t, PaymentStatus(" fullypaid ").Paid())
	assert.True(t, PaymentStatus("ONPAYMENT").InFlight())
	assert.True(t, PaymentStatus("pending").InFlight())
	assert.False(t, PaymentStatus("DECLINED").InFlight())
	assert.False(t, PaymentStatus("DECLINED").Paid())
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
}
