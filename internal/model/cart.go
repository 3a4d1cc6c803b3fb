package model

import "github.com/shopspring/decimal"

// CartItem is one line of the user's server-side cart
type CartItem struct {
	ProductID     int              `json:"productId"`
	Title         string           `json:"title"`
	ImageURL      string           `json:"imageUrl"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice,omitempty"`
	Quantity      int              `json:"quantity"`
	Total         decimal.Decimal  `json:"total"`
}

// Cart is the authoritative cart as returned by the backend
type Cart struct {
	Items         []CartItem      `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	ShippingPrice decimal.Decimal `json:"shippingPrice"`
	Total         decimal.Decimal `json:"total"`
}

// ItemCount is the number of units in the cart
func (c Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Line returns the cart line for productID
func (c Cart) Line(productID int) (CartItem, bool) {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return CartItem{}, false
}

// LineRequest is the {productId, quantity} pair sent to the backend
type LineRequest struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}
