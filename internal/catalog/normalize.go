package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/winehouse/internal/model"
)

// Colors and Sweetness are the enum names the backend may send as numbers
var (
	Colors    = []string{"White", "Red", "Pink", "Other"}
	Sweetness = []string{"Dry", "Sweet", "Dessert", "Fortified"}
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

type namedRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// rawProduct accepts every product shape the backend returns
type rawProduct struct {
	ID              int                   `json:"id"`
	Title           string                `json:"title"`
	Name            string                `json:"name"`
	Price           decimal.Decimal       `json:"price"`
	DiscountPrice   *decimal.Decimal      `json:"discountPrice"`
	ImageURL        string                `json:"imageUrl"`
	CategoryID      int                   `json:"categoryId"`
	CategoryName    string                `json:"categoryName"`
	Category        json.RawMessage       `json:"category"`
	SubCategoryID   int                   `json:"subCategoryId"`
	SubCategoryName string                `json:"subCategoryName"`
	SubCategory     *namedRef             `json:"subCategory"`
	Color           json.RawMessage       `json:"color"`
	Sweetness       json.RawMessage       `json:"sweetness"`
	Liter           *decimal.Decimal      `json:"liter"`
	Location        string                `json:"location"`
	ProdDate        string                `json:"prodDate"`
	Year            int                   `json:"year"`
	IsActive        *bool                 `json:"isActive"`
	IsDeleted       bool                  `json:"isDeleted"`
	Fields          []model.KeyValue      `json:"fields"`
	Details         []model.DetailSection `json:"details"`
}

type rawPage struct {
	Items       []rawProduct `json:"items"`
	TotalCount  int          `json:"totalCount"`
	TotalPages  int          `json:"totalPages"`
	CurrentPage int          `json:"currentPage"`
	PageSize    int          `json:"pageSize"`
}

func (r rawProduct) normalize(baseURL string) model.Product {
	p := model.Product{
		ID:              r.ID,
		Title:           strings.TrimSpace(r.Title),
		Price:           r.Price,
		DiscountPrice:   r.DiscountPrice,
		ImageURL:        absoluteURL(baseURL, r.ImageURL),
		CategoryID:      r.CategoryID,
		CategoryName:    r.CategoryName,
		SubCategoryID:   r.SubCategoryID,
		SubCategoryName: r.SubCategoryName,
		Color:           enumName(r.Color, Colors),
		Sweetness:       enumName(r.Sweetness, Sweetness),
		Location:        r.Location,
		Year:            r.Year,
		IsActive:        r.IsActive == nil || *r.IsActive,
		IsDeleted:       r.IsDeleted,
	}
	if p.Title == "" {
		p.Title = strings.TrimSpace(r.Name)
	}
	if r.Liter != nil {
		p.Liter = *r.Liter
	}

	if cat := r.category(); cat != nil {
		if p.CategoryID == 0 {
			p.CategoryID = cat.ID
		}
		if p.CategoryName == "" {
			p.CategoryName = cat.Name
		}
	}
	if r.SubCategory != nil {
		if p.SubCategoryID == 0 {
			p.SubCategoryID = r.SubCategory.ID
		}
		if p.SubCategoryName == "" {
			p.SubCategoryName = r.SubCategory.Name
		}
	}

	if t, ok := parseDate(r.ProdDate); ok {
		p.ProdDate = &t
		if p.Year == 0 {
			p.Year = t.Year()
		}
	}
	return p
}

func (r rawProduct) detail(baseURL string) model.ProductDetail {
	d := model.ProductDetail{
		Product: r.normalize(baseURL),
		Fields:  make([]model.KeyValue, 0, len(r.Fields)),
		Details: make([]model.DetailSection, 0, len(r.Details)),
	}
	for _, f := range r.Fields {
		if f.Key != "" || f.Value != "" {
			d.Fields = append(d.Fields, f)
		}
	}
	for _, s := range r.Details {
		if s.Title != "" || s.Description != "" {
			d.Details = append(d.Details, s)
		}
	}
	return d
}

// category handles both {"id":1,"name":"Wine"} and "wine"
func (r rawProduct) category() *namedRef {
	raw := bytes.TrimSpace(r.Category)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var ref namedRef
	if err := json.Unmarshal(raw, &ref); err == nil {
		return &ref
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil && name != "" {
		return &namedRef{Name: name}
	}
	return nil
}

// enumName decodes a string or a zero-based enum ordinal
func enumName(raw json.RawMessage, names []string) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(s); err == nil {
			return ordinal(n, names)
		}
		return canonical(s, names)
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return ordinal(n, names)
	}
	return ""
}

func ordinal(n int, names []string) string {
	if n >= 0 && n < len(names) {
		return names[n]
	}
	return ""
}

func canonical(s string, names []string) string {
	s = strings.TrimSpace(s)
	for _, n := range names {
		if strings.EqualFold(n, s) {
			return n
		}
	}
	return s
}

func parseDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// absoluteURL prefixes backend-relative image paths with the API host
func absoluteURL(baseURL, path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(baseURL, "/") + path
}
