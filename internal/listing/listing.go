// Package listing derives the visible product page from the raw catalog:
// search, then filter, then sort, then paginate. Everything here is pure.
package listing

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/winehouse/internal/model"
	"github.com/suteetoe/winehouse/internal/pricing"
)

// DefaultPageSize is used when a state carries no page size
const DefaultPageSize = 9

// SortKey selects the ordering of the product grid
type SortKey string

const (
	SortNone   SortKey = ""
	SortName   SortKey = "name"
	SortNewest SortKey = "newest"
)

// Filters are the independent filter dimensions; zero values impose no constraint
type Filters struct {
	CategoryID    int              `json:"categoryId,omitempty"`
	SubCategoryID int              `json:"subCategoryId,omitempty"`
	Color         string           `json:"color,omitempty"`
	Sweetness     string           `json:"sweetness,omitempty"`
	MinPrice      *decimal.Decimal `json:"minPrice,omitempty"`
	MaxPrice      *decimal.Decimal `json:"maxPrice,omitempty"`
}

// Equal compares two filter selections
func (f Filters) Equal(o Filters) bool {
	return f.CategoryID == o.CategoryID &&
		f.SubCategoryID == o.SubCategoryID &&
		strings.EqualFold(f.Color, o.Color) &&
		strings.EqualFold(f.Sweetness, o.Sweetness) &&
		decEqual(f.MinPrice, o.MinPrice) &&
		decEqual(f.MaxPrice, o.MaxPrice)
}

// State is every input of the derivation
type State struct {
	Search   string  `json:"search,omitempty"`
	Filters  Filters `json:"filters"`
	Sort     SortKey `json:"sort,omitempty"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}

// Reset returns s with the page moved back to 1 when search, filters or sort
// differ from prev.
func (s State) Reset(prev State) State {
	if strings.TrimSpace(s.Search) != strings.TrimSpace(prev.Search) ||
		!s.Filters.Equal(prev.Filters) ||
		s.Sort != prev.Sort {
		s.Page = 1
	}
	return s
}

// Result is the visible page
type Result struct {
	Items       []model.Product `json:"items"`
	TotalCount  int             `json:"totalCount"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
	PageSize    int             `json:"pageSize"`
	Empty       bool            `json:"empty"`
}

// Derive runs the whole pipeline. The input slice is never modified.
func Derive(products []model.Product, st State) Result {
	pageSize := st.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	matched := Filter(Search(products, st.Search), st.Filters)
	ordered := Sort(matched, st.Sort)
	items, totalPages, page := Paginate(ordered, st.Page, pageSize)

	return Result{
		Items:       items,
		TotalCount:  len(ordered),
		TotalPages:  totalPages,
		CurrentPage: page,
		PageSize:    pageSize,
		Empty:       len(ordered) == 0,
	}
}

// Search keeps products whose title contains term, case-insensitively
func Search(products []model.Product, term string) []model.Product {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return products
	}
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Title), term) {
			out = append(out, p)
		}
	}
	return out
}

// Filter keeps products matching every selected dimension
func Filter(products []model.Product, f Filters) []model.Product {
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if Matches(p, f) {
			out = append(out, p)
		}
	}
	return out
}

// Matches applies the conjunction of all filter dimensions to one product
func Matches(p model.Product, f Filters) bool {
	if f.CategoryID != 0 && p.CategoryID != f.CategoryID {
		return false
	}
	if f.SubCategoryID != 0 && p.SubCategoryID != f.SubCategoryID {
		return false
	}
	if f.Color != "" && !strings.EqualFold(p.Color, f.Color) {
		return false
	}
	if f.Sweetness != "" && !strings.EqualFold(p.Sweetness, f.Sweetness) {
		return false
	}

	price := pricing.Effective(p.Price, p.DiscountPrice)
	if f.MinPrice != nil && price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

// Sort returns a stably sorted copy; unknown keys keep the input order
func Sort(products []model.Product, key SortKey) []model.Product {
	out := make([]model.Product, len(products))
	copy(out, products)

	switch key {
	case SortName:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
		})
	case SortNewest:
		sort.SliceStable(out, func(i, j int) bool {
			return productionYear(out[i]) > productionYear(out[j])
		})
	}
	return out
}

// ParseSort maps a query value to a SortKey; anything unknown is SortNone
func ParseSort(v string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(v))) {
	case SortName:
		return SortName
	case SortNewest:
		return SortNewest
	}
	return SortNone
}

// TotalPages is max(1, ceil(count/pageSize))
func TotalPages(count, pageSize int) int {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	pages := (count + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// ClampPage keeps page within [1, totalPages]
func ClampPage(page, totalPages int) int {
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	return page
}

// Paginate slices one page out of products after clamping the page number
func Paginate(products []model.Product, page, pageSize int) ([]model.Product, int, int) {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	totalPages := TotalPages(len(products), pageSize)
	page = ClampPage(page, totalPages)

	start := (page - 1) * pageSize
	if start >= len(products) {
		return []model.Product{}, totalPages, page
	}
	end := start + pageSize
	if end > len(products) {
		end = len(products)
	}
	return products[start:end], totalPages, page
}

func productionYear(p model.Product) int {
	if p.Year != 0 {
		return p.Year
	}
	if p.ProdDate != nil {
		return p.ProdDate.Year()
	}
	return 0
}

func decEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
