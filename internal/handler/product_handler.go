package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/winehouse/internal/catalog"
	"github.com/suteetoe/winehouse/internal/listing"
	mid "github.com/suteetoe/winehouse/internal/middleware"
	"github.com/suteetoe/winehouse/internal/model"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"github.com/suteetoe/winehouse/pkg/logger"
	"go.uber.org/zap"
)

// productListResponse is the product grid plus the inline error banner
type productListResponse struct {
	listing.Result
	State listing.State `json:"state"`
	Error string        `json:"error,omitempty"`
	Stale bool          `json:"stale,omitempty"`
}

// listingState reads the grid inputs from the query string
func (h *Handler) listingState(c echo.Context) (listing.State, error) {
	st := listing.State{
		Search: strings.TrimSpace(c.QueryParam("q")),
		Sort:   listing.ParseSort(c.QueryParam("sort")),
		Page:   queryInt(c, "page", 1),
		Filters: listing.Filters{
			CategoryID:    queryInt(c, "categoryId", 0),
			SubCategoryID: queryInt(c, "subCategoryId", 0),
			Color:         strings.TrimSpace(c.QueryParam("color")),
			Sweetness:     strings.TrimSpace(c.QueryParam("sweetness")),
		},
	}

	var err error
	if st.Filters.MinPrice, err = queryDecimal(c, "minPrice"); err != nil {
		return st, err
	}
	if st.Filters.MaxPrice, err = queryDecimal(c, "maxPrice"); err != nil {
		return st, err
	}

	st.PageSize = queryInt(c, "pageSize", 0)
	if st.PageSize < 1 {
		st.PageSize = h.PageSizer.For(queryInt(c, "viewport", 0))
	}
	if st.Page < 1 {
		st.Page = 1
	}
	return st, nil
}

func queryInt(c echo.Context, name string, def int) int {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryDecimal(c echo.Context, name string) (*decimal.Decimal, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, errors.New(name + " must be a number")
	}
	return &d, nil
}

// derive runs the engine and applies the page reset for known users
func (h *Handler) derive(c echo.Context, products []model.Product, loadErr error) error {
	st, err := h.listingState(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if s, ok := mid.GetSession(c); ok {
		st = s.NextListing(st)
	}

	resp := productListResponse{Result: listing.Derive(products, st), State: st}
	resp.State.Page = resp.CurrentPage

	var cerr *catalog.CatalogError
	if errors.As(loadErr, &cerr) {
		resp.Error = cerr.Message
		resp.Stale = cerr.Stale
	}
	return c.JSON(http.StatusOK, resp)
}

// ListProducts derives the visible grid page from the active products
func (h *Handler) ListProducts(c echo.Context) error {
	log := logger.FromContext(c)

	products, err := h.Catalog.ActiveProducts(c.Request().Context())
	if err != nil {
		var cerr *catalog.CatalogError
		if !errors.As(err, &cerr) {
			return respondError(c, err, "Failed to retrieve products")
		}
		log.Warn("Serving product grid with load error", zap.Bool("stale", cerr.Stale), zap.Error(err))
	}
	return h.derive(c, products, err)
}

// CategoryProducts serves the /wine, /whiskey, /vodka and /cognac grids
func (h *Handler) CategoryProducts(c echo.Context) error {
	products, err := h.Catalog.ByCategorySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownCategory) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Category not found"})
		}
		var cerr *catalog.CatalogError
		if !errors.As(err, &cerr) {
			return respondError(c, err, "Failed to retrieve products")
		}
	}
	return h.derive(c, products, err)
}

// SearchProducts runs the server-side filter endpoint
func (h *Handler) SearchProducts(c echo.Context) error {
	st, err := h.listingState(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	q := catalog.Query{
		SearchTerm:    st.Search,
		CategoryID:    st.Filters.CategoryID,
		SubCategoryID: st.Filters.SubCategoryID,
		Color:         st.Filters.Color,
		Sweetness:     st.Filters.Sweetness,
		MinPrice:      st.Filters.MinPrice,
		MaxPrice:      st.Filters.MaxPrice,
		Sort:          string(st.Sort),
		Page:          st.Page,
		PageSize:      st.PageSize,
	}

	page, err := h.Catalog.ListProducts(c.Request().Context(), q)
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidQuery) {
			return badRequest(c, err.Error())
		}
		var cerr *catalog.CatalogError
		if errors.As(err, &cerr) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": cerr.Message, "retryable": true})
		}
		return respondError(c, err, "Failed to retrieve products")
	}
	return c.JSON(http.StatusOK, page)
}

// GetProduct returns one product with its attributes and sections
func (h *Handler) GetProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id, ok := intParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid product ID")
	}

	detail, err := h.Catalog.ProductDetail(c.Request().Context(), id)
	if err != nil {
		if apiclient.IsNotFound(err) {
			log.Info("Product not found", zap.Int("product_id", id))
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Product not found"})
		}
		var cerr *catalog.CatalogError
		if errors.As(err, &cerr) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": cerr.Message, "retryable": true})
		}
		return respondError(c, err, "Failed to retrieve product")
	}
	return c.JSON(http.StatusOK, detail)
}

// FilterOptions returns the category tree and price bounds
func (h *Handler) FilterOptions(c echo.Context) error {
	opts, err := h.Catalog.FilterOptions(c.Request().Context())
	if err != nil {
		var cerr *catalog.CatalogError
		if errors.As(err, &cerr) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": cerr.Message, "retryable": true})
		}
		return respondError(c, err, "Failed to retrieve filter options")
	}
	return c.JSON(http.StatusOK, opts)
}
