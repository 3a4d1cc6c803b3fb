package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"github.com/suteetoe/winehouse/pkg/config"
)

func newService(t *testing.T, h http.HandlerFunc) (*Service, string) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	api := apiclient.New(config.APIConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}, nil)
	return NewService(api, nil), srv.URL
}

func TestListProducts_ValidatesBeforeSending(t *testing.T) {
	var calls int32
	s, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	_, err := s.ListProducts(context.Background(), Query{Page: 0, PageSize: 9})
	assert.ErrorIs(t, err, ErrInvalidQuery)
	_, err = s.ListProducts(context.Background(), Query{Page: 1, PageSize: 0})
	assert.ErrorIs(t, err, ErrInvalidQuery)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestListProducts_EmptyResultKeepsOnePage(t *testing.T) {
	var body map[string]any
	s, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/filter", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"items":[],"totalCount":0,"totalPages":0,"currentPage":0,"pageSize":9}`))
	})

	page, err := s.ListProducts(context.Background(), Query{SearchTerm: "zzz", Page: 1, PageSize: 9})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, "zzz", body["searchTerm"])
}

func TestActiveProducts_NormalizesShapes(t *testing.T) {
	s, base := newService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"id":1,"name":"Barolo","price":45,"discountPrice":39.5,"imageUrl":"/img/1.jpg",
			 "category":{"id":2,"name":"Wine"},"subCategory":{"id":7,"name":"Italian"},
			 "color":1,"sweetness":"dry","prodDate":"2018-06-01T00:00:00","isActive":true},
			{"id":2,"title":"Old Stock","price":10,"isDeleted":true},
			{"id":3,"title":"Hidden","price":10,"isActive":false},
			{"id":4,"title":"Vodka X","price":"20.00","categoryId":3,"categoryName":"Vodka","year":2021}
		]`))
	})

	products, err := s.ActiveProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	p := products[0]
	assert.Equal(t, "Barolo", p.Title)
	assert.Equal(t, 2, p.CategoryID)
	assert.Equal(t, "Wine", p.CategoryName)
	assert.Equal(t, 7, p.SubCategoryID)
	assert.Equal(t, "Red", p.Color)
	assert.Equal(t, "Dry", p.Sweetness)
	assert.Equal(t, 2018, p.Year)
	assert.Equal(t, base+"/img/1.jpg", p.ImageURL)
	require.NotNil(t, p.DiscountPrice)
	assert.Equal(t, "39.5", p.DiscountPrice.String())

	assert.Equal(t, 4, products[1].ID)
	assert.Equal(t, 2021, products[1].Year)
}

func TestActiveProducts_RetainsLastGoodList(t *testing.T) {
	var fail atomic.Bool
	s, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[{"id":1,"title":"Merlot","price":10}]`))
	})

	first, err := s.ActiveProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	fail.Store(true)
	again, err := s.ActiveProducts(context.Background())
	var cerr *CatalogError
	require.True(t, errors.As(err, &cerr))
	assert.True(t, cerr.Stale)
	assert.NotEmpty(t, cerr.Message)
	assert.ErrorIs(t, err, apiclient.ErrServer)
	assert.Equal(t, first, again)
}

func TestActiveProducts_FailureWithoutHistory(t *testing.T) {
	s, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	products, err := s.ActiveProducts(context.Background())
	var cerr *CatalogError
	require.True(t, errors.As(err, &cerr))
	assert.False(t, cerr.Stale)
	assert.Nil(t, products)
}

func TestProductDetail_ToleratesMissingSections(t *testing.T) {
	s, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/12", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":12,"title":"Cognac VSOP","price":80,"imageUrl":"https://cdn.test/a.jpg",
			"fields":[{"key":"Strength","value":"40%"},{"key":"","value":""}]}`))
	})

	d, err := s.ProductDetail(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/a.jpg", d.ImageURL)
	assert.Len(t, d.Fields, 1)
	assert.NotNil(t, d.Details)
	assert.Empty(t, d.Details)
}

func TestProductDetail_NotFound(t *testing.T) {
	s, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := s.ProductDetail(context.Background(), 5)
	assert.True(t, apiclient.IsNotFound(err))
}

func TestByCategorySlug(t *testing.T) {
	s, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/products/active":
			_, _ = w.Write([]byte(`[
				{"id":1,"title":"Rioja","price":20,"categoryId":1},
				{"id":2,"title":"Islay","price":60,"categoryId":2},
				{"id":3,"title":"Chablis","price":25,"categoryName":"wine"}]`))
		case "/api/products/filter-options":
			_, _ = w.Write([]byte(`{"categories":[{"id":1,"name":"Wine"},{"id":2,"name":"Whiskey"}],"minPrice":5,"maxPrice":500}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	products, err := s.ByCategorySlug(context.Background(), "Wine")
	require.NoError(t, err)
	ids := []int{}
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int{1, 3}, ids)

	_, err = s.ByCategorySlug(context.Background(), "beer")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestEnumName(t *testing.T) {
	assert.Equal(t, "Pink", enumName(json.RawMessage(`2`), Colors))
	assert.Equal(t, "Fortified", enumName(json.RawMessage(`"3"`), Sweetness))
	assert.Equal(t, "White", enumName(json.RawMessage(`"white"`), Colors))
	assert.Equal(t, "Amber", enumName(json.RawMessage(`"Amber"`), Colors))
	assert.Equal(t, "", enumName(json.RawMessage(`9`), Colors))
	assert.Equal(t, "", enumName(nil, Colors))
}
