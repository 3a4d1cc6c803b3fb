// Package catalog reads products, filter options and product details from the
// backend and normalizes them into storefront models.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/suteetoe/winehouse/internal/listing"
	"github.com/suteetoe/winehouse/internal/model"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"go.uber.org/zap"
)

// Slugs are the category routes of the storefront
var Slugs = []string{"wine", "whiskey", "vodka", "cognac"}

// Query is the body of POST /api/products/filter
type Query struct {
	SearchTerm    string           `json:"searchTerm,omitempty"`
	CategoryID    int              `json:"categoryId,omitempty"`
	SubCategoryID int              `json:"subCategoryId,omitempty"`
	Color         string           `json:"color,omitempty"`
	Sweetness     string           `json:"sweetness,omitempty"`
	MinPrice      *decimal.Decimal `json:"minPrice,omitempty"`
	MaxPrice      *decimal.Decimal `json:"maxPrice,omitempty"`
	Sort          string           `json:"sort,omitempty"`
	Page          int              `json:"page"`
	PageSize      int              `json:"pageSize"`
}

// Validate checks the paging constraints
func (q Query) Validate() error {
	if q.Page < 1 {
		return fmt.Errorf("%w: page must be at least 1", ErrInvalidQuery)
	}
	if q.PageSize < 1 {
		return fmt.Errorf("%w: page size must be positive", ErrInvalidQuery)
	}
	return nil
}

// Service is safe for concurrent use
type Service struct {
	api    *apiclient.Client
	logger *zap.Logger

	mu       sync.RWMutex
	lastGood []model.Product
}

// NewService creates a catalog service on an anonymous backend client
func NewService(api *apiclient.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, logger: logger}
}

// ListProducts runs the server-side filter
func (s *Service) ListProducts(ctx context.Context, q Query) (model.Page[model.Product], error) {
	if err := q.Validate(); err != nil {
		return model.Page[model.Product]{}, err
	}

	var raw rawPage
	if err := s.api.Post(ctx, "/api/products/filter", q, &raw); err != nil {
		s.logger.Warn("Product filter failed", zap.Error(err))
		return model.Page[model.Product]{}, catalogError("list", err)
	}

	items := make([]model.Product, 0, len(raw.Items))
	for _, r := range raw.Items {
		items = append(items, r.normalize(s.api.BaseURL()))
	}

	page := model.Page[model.Product]{
		Items:       items,
		TotalCount:  raw.TotalCount,
		TotalPages:  raw.TotalPages,
		CurrentPage: raw.CurrentPage,
		PageSize:    raw.PageSize,
	}
	if page.PageSize < 1 {
		page.PageSize = q.PageSize
	}
	if page.TotalCount < len(items) {
		page.TotalCount = len(items)
	}
	if page.TotalPages < 1 {
		page.TotalPages = listing.TotalPages(page.TotalCount, page.PageSize)
	}
	if page.CurrentPage < 1 {
		page.CurrentPage = listing.ClampPage(q.Page, page.TotalPages)
	}
	return page, nil
}

// ActiveProducts returns the storefront-visible products. On failure the last
// good list is returned together with a *CatalogError marked Stale.
func (s *Service) ActiveProducts(ctx context.Context) ([]model.Product, error) {
	var raw []rawProduct
	if err := s.api.Get(ctx, "/api/products/active", &raw); err != nil {
		s.logger.Warn("Loading active products failed, serving last good list", zap.Error(err))
		cerr := catalogError("active", err)
		s.mu.RLock()
		last := s.lastGood
		s.mu.RUnlock()
		if last != nil {
			cerr.Stale = true
		}
		return last, cerr
	}

	products := make([]model.Product, 0, len(raw))
	for _, r := range raw {
		p := r.normalize(s.api.BaseURL())
		if p.Visible() {
			products = append(products, p)
		}
	}

	s.mu.Lock()
	s.lastGood = products
	s.mu.Unlock()
	return products, nil
}

// FilterOptions returns the category tree and price bounds
func (s *Service) FilterOptions(ctx context.Context) (model.FilterOptions, error) {
	var opts model.FilterOptions
	if err := s.api.Get(ctx, "/api/products/filter-options", &opts); err != nil {
		return model.FilterOptions{}, catalogError("filter-options", err)
	}
	if opts.Categories == nil {
		opts.Categories = []model.Category{}
	}
	return opts, nil
}

// ProductDetail returns one product with its attribute rows and sections
func (s *Service) ProductDetail(ctx context.Context, id int) (model.ProductDetail, error) {
	var raw rawProduct
	if err := s.api.Get(ctx, fmt.Sprintf("/api/products/%d", id), &raw); err != nil {
		if apiclient.IsNotFound(err) {
			return model.ProductDetail{}, err
		}
		return model.ProductDetail{}, catalogError("detail", err)
	}
	return raw.detail(s.api.BaseURL()), nil
}

// ByCategorySlug returns the visible products of a category route such as "wine"
func (s *Service) ByCategorySlug(ctx context.Context, slug string) ([]model.Product, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !knownSlug(slug) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, slug)
	}

	products, err := s.ActiveProducts(ctx)
	var cerr *CatalogError
	if err != nil && !(errors.As(err, &cerr) && cerr.Stale) {
		return nil, err
	}

	categoryID := 0
	if opts, optErr := s.FilterOptions(ctx); optErr == nil {
		for _, c := range opts.Categories {
			if strings.EqualFold(c.Name, slug) {
				categoryID = c.ID
				break
			}
		}
	} else {
		s.logger.Debug("Filter options unavailable, matching category by name", zap.Error(optErr))
	}

	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if (categoryID != 0 && p.CategoryID == categoryID) || strings.EqualFold(p.CategoryName, slug) {
			out = append(out, p)
		}
	}
	return out, err
}

func knownSlug(slug string) bool {
	for _, s := range Slugs {
		if s == slug {
			return true
		}
	}
	return false
}
