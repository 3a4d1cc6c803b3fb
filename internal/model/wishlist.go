package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// WishlistItem is a product saved by the user
type WishlistItem struct {
	ID            int              `json:"id"`
	ProductID     int              `json:"productId"`
	Title         string           `json:"title"`
	ImageURL      string           `json:"imageUrl"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discountPrice,omitempty"`
	AddedOn       time.Time        `json:"addedOn"`
}
