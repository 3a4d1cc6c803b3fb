// Package pricing holds the one price rule shared by listings, cart and checkout.
package pricing

import "github.com/shopspring/decimal"

// Effective returns the markdown price when it is positive and below the list
// price, otherwise the list price.
func Effective(price decimal.Decimal, discount *decimal.Decimal) decimal.Decimal {
	if HasDiscount(price, discount) {
		return *discount
	}
	return price
}

// HasDiscount reports whether discount is a valid markdown of price
func HasDiscount(price decimal.Decimal, discount *decimal.Decimal) bool {
	return discount != nil && discount.IsPositive() && discount.LessThan(price)
}

// LineDisplay is the display-only line amount; cart totals always come from the server
func LineDisplay(price decimal.Decimal, discount *decimal.Decimal, quantity int) decimal.Decimal {
	if quantity < 0 {
		quantity = 0
	}
	return Effective(price, discount).Mul(decimal.NewFromInt(int64(quantity)))
}

// SavingsPercent is the rounded markdown percentage shown on product cards
func SavingsPercent(price decimal.Decimal, discount *decimal.Decimal) int {
	if !HasDiscount(price, discount) {
		return 0
	}
	hundred := decimal.NewFromInt(100)
	return int(price.Sub(*discount).Div(price).Mul(hundred).Round(0).IntPart())
}
