package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }
func dp(v string) *decimal.Decimal {
	x := d(v)
	return &x
}

func TestEffective(t *testing.T) {
	cases := []struct {
		name     string
		price    decimal.Decimal
		discount *decimal.Decimal
		want     string
	}{
		{"no discount", d("50"), nil, "50"},
		{"valid markdown", d("50"), dp("40"), "40"},
		{"zero discount ignored", d("50"), dp("0"), "50"},
		{"negative discount ignored", d("50"), dp("-1"), "50"},
		{"equal to price ignored", d("50"), dp("50"), "50"},
		{"above price ignored", d("50"), dp("60"), "50"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, d(tc.want).Equal(Effective(tc.price, tc.discount)))
		})
	}
}

func TestLineDisplay(t *testing.T) {
	assert.True(t, d("80").Equal(LineDisplay(d("50"), dp("40"), 2)))
	assert.True(t, d("0").Equal(LineDisplay(d("50"), nil, -3)))
}

func TestSavingsPercent(t *testing.T) {
	assert.Equal(t, 20, SavingsPercent(d("50"), dp("40")))
	assert.Equal(t, 0, SavingsPercent(d("50"), nil))
}
