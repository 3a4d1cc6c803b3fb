package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the storefront view of a catalog item
type Product struct {
	ID              int              `json:"id"`
	Title           string           `json:"title"`
	Price           decimal.Decimal  `json:"price"`
	DiscountPrice   *decimal.Decimal `json:"discountPrice,omitempty"`
	ImageURL        string           `json:"imageUrl"`
	CategoryID      int              `json:"categoryId"`
	CategoryName    string           `json:"categoryName"`
	SubCategoryID   int              `json:"subCategoryId"`
	SubCategoryName string           `json:"subCategoryName"`
	Color           string           `json:"color,omitempty"`
	Sweetness       string           `json:"sweetness,omitempty"`
	Liter           decimal.Decimal  `json:"liter"`
	Location        string           `json:"location,omitempty"`
	ProdDate        *time.Time       `json:"prodDate,omitempty"`
	Year            int              `json:"year,omitempty"`
	IsActive        bool             `json:"isActive"`
	IsDeleted       bool             `json:"isDeleted"`
}

// Visible reports whether the product may appear in customer-facing listings
func (p Product) Visible() bool {
	return p.IsActive && !p.IsDeleted
}

// SubCategory belongs to a Category
type SubCategory struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	CategoryID int    `json:"categoryId"`
	IsActive   bool   `json:"isActive"`
	IsDeleted  bool   `json:"isDeleted"`
}

// Category groups products, e.g. Wine or Whiskey
type Category struct {
	ID            int           `json:"id"`
	Name          string        `json:"name"`
	IsActive      bool          `json:"isActive"`
	IsDeleted     bool          `json:"isDeleted"`
	SubCategories []SubCategory `json:"subCategories"`
}

// FilterOptions bounds the filter UI
type FilterOptions struct {
	Categories []Category      `json:"categories"`
	MinPrice   decimal.Decimal `json:"minPrice"`
	MaxPrice   decimal.Decimal `json:"maxPrice"`
}

// KeyValue is a flat attribute row such as "Strength: 14.5%"
type KeyValue struct {
	ID    int    `json:"id,omitempty"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DetailSection is a long-form section such as tasting notes
type DetailSection struct {
	ID          int    `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ProductDetail is a product with its attribute rows and sections
type ProductDetail struct {
	Product
	Fields  []KeyValue      `json:"fields"`
	Details []DetailSection `json:"details"`
}

// Slide is a homepage carousel entry
type Slide struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle,omitempty"`
	ImageURL  string `json:"imageUrl"`
	Link      string `json:"link,omitempty"`
	Order     int    `json:"order"`
	IsActive  bool   `json:"isActive"`
	IsDeleted bool   `json:"isDeleted"`
}

// Page is one page of a paged listing
type Page[T any] struct {
	Items       []T `json:"items"`
	TotalCount  int `json:"totalCount"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
}
