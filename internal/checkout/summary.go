package checkout

import (
	"github.com/shopspring/decimal"
	"github.com/suteetoe/winehouse/internal/cart"
	"github.com/suteetoe/winehouse/internal/pricing"
)

// SummaryLine is one row of the order summary next to the payment form
type SummaryLine struct {
	ProductID int             `json:"productId"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	ListPrice decimal.Decimal `json:"listPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
	Savings   int             `json:"savingsPercent,omitempty"`
}

// Summary is the checkout summary. Amounts other than line totals are the
// server's; no discount is computed here.
type Summary struct {
	Lines         []SummaryLine   `json:"lines"`
	ItemCount     int             `json:"itemCount"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	ShippingPrice decimal.Decimal `json:"shippingPrice"`
	Total         decimal.Decimal `json:"total"`
}

// Summarize builds the summary from a cart view
func Summarize(v cart.View) Summary {
	s := Summary{
		Lines:         make([]SummaryLine, 0, len(v.Items)),
		ItemCount:     v.ItemCount,
		Subtotal:      v.Subtotal,
		Discount:      v.Discount,
		ShippingPrice: v.ShippingPrice,
		Total:         v.Total,
	}
	for _, it := range v.Items {
		s.Lines = append(s.Lines, SummaryLine{
			ProductID: it.ProductID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: pricing.Effective(it.Price, it.DiscountPrice),
			ListPrice: it.Price,
			LineTotal: pricing.LineDisplay(it.Price, it.DiscountPrice, it.Quantity),
			Savings:   pricing.SavingsPercent(it.Price, it.DiscountPrice),
		})
	}
	return s
}
