package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/winehouse/internal/fakeapi"
	"github.com/suteetoe/winehouse/internal/model"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"github.com/suteetoe/winehouse/pkg/config"
	"github.com/tealeg/xlsx"
)

type recorded struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorded) add(s string) {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
}

func recordingAPI(t *testing.T) (*apiclient.Client, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.Method + " " + r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			if r.URL.Path == "/api/categories/3" {
				_ = json.NewEncoder(w).Encode(model.Category{ID: 3, Name: "Vodka"})
				return
			}
			_, _ = w.Write([]byte("[]"))
		case http.MethodPost, http.MethodPut:
			_ = json.NewEncoder(w).Encode(model.Category{ID: 3, Name: "Vodka"})
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	t.Cleanup(srv.Close)
	api := apiclient.New(config.APIConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}, nil).WithTokens(fakeapi.NewToken("admin"))
	return api, rec
}

func TestResource_LifecycleRoutes(t *testing.T) {
	api, rec := recordingAPI(t)
	cats := NewCatalog(nil).Categories
	ctx := context.Background()

	list, err := cats.Active(ctx, api)
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = cats.Deleted(ctx, api)
	require.NoError(t, err)

	got, err := cats.Get(ctx, api, 3)
	require.NoError(t, err)
	assert.Equal(t, "Vodka", got.Name)

	_, err = cats.Create(ctx, api, map[string]string{"name": "Vodka"})
	require.NoError(t, err)
	_, err = cats.Update(ctx, api, 3, map[string]string{"name": "Vodka"})
	require.NoError(t, err)
	require.NoError(t, cats.Deactivate(ctx, api, 3))
	require.NoError(t, cats.SoftDelete(ctx, api, 3))
	require.NoError(t, cats.Recover(ctx, api, 3))
	require.NoError(t, cats.Activate(ctx, api, 3))
	require.NoError(t, cats.Delete(ctx, api, 3))

	assert.Equal(t, []string{
		"GET /api/categories/active",
		"GET /api/categories/deleted",
		"GET /api/categories/3",
		"POST /api/categories",
		"PUT /api/categories/3",
		"PATCH /api/categories/3/deactivate",
		"DELETE /api/categories/3/soft",
		"PATCH /api/categories/3/recover",
		"PATCH /api/categories/3/activate",
		"DELETE /api/categories/3",
	}, rec.calls)
}

func TestResource_ScopedListings(t *testing.T) {
	api, rec := recordingAPI(t)
	c := NewCatalog(nil)

	_, err := c.SubCategories.ByCategory(context.Background(), api, 2)
	require.NoError(t, err)
	_, err = c.ProductFields.ByProduct(context.Background(), api, 9)
	require.NoError(t, err)
	_, err = c.ProductDetails.ByProduct(context.Background(), api, 9)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"GET /api/subcategories/by-category/2",
		"GET /api/productfields/product/9",
		"GET /api/productdetails/product/9",
	}, rec.calls)
}

func TestResource_RejectsUnknownAction(t *testing.T) {
	api, rec := recordingAPI(t)
	err := NewCatalog(nil).Slides.Apply(context.Background(), api, 1, Action("publish"))
	assert.Error(t, err)
	assert.Empty(t, rec.calls)
}

func TestTransactions_FilterValidation(t *testing.T) {
	srv := fakeapi.New(t)
	api := srv.API(fakeapi.NewToken("admin"))
	tx := NewTransactions(nil)

	from := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	to := from.Add(-24 * time.Hour)
	_, err := tx.Filter(context.Background(), api, model.TransactionFilter{DateFrom: &from, DateTo: &to})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	lo, hi := decimal.NewFromInt(50), decimal.NewFromInt(10)
	_, err = tx.Filter(context.Background(), api, model.TransactionFilter{MinAmount: &lo, MaxAmount: &hi})
	assert.ErrorIs(t, err, ErrInvalidFilter)
	assert.Zero(t, srv.Calls(http.MethodPost, "/api/transactions/filter"))

	page, err := tx.Filter(context.Background(), api, model.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, defaultTxPageSize, page.PageSize)
	assert.NotNil(t, page.Items)
}

func TestDashboard_PartialFailure(t *testing.T) {
	srv := fakeapi.New(t)
	srv.AddTransaction(model.Transaction{ID: 1, OrderID: 10, Amount: decimal.NewFromInt(40), Status: model.StatusCompleted})
	srv.Fail(http.MethodGet, "/api/transactions/stats", http.StatusInternalServerError)

	c := NewCatalog(nil)
	d := NewDashboardLoader(c, NewTransactions(nil), nil).Load(context.Background(), srv.API(fakeapi.NewToken("admin")))

	assert.NotEmpty(t, d.Stats.Error)
	assert.Empty(t, d.Recent.Error)
	assert.Len(t, d.Recent.Data.Items, 1)
	assert.Empty(t, d.Products.Error)
	assert.Len(t, d.Products.Data, 3)
	assert.Empty(t, d.Categories.Error)
	assert.Equal(t, 1, d.Failed())
}

func TestExportTransactions(t *testing.T) {
	srv := fakeapi.New(t)
	created := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	srv.AddTransaction(model.Transaction{ID: 1, OrderID: 10, Amount: decimal.RequireFromString("40.50"), Currency: "EUR",
		Status: model.StatusCompleted, PaymentProvider: "Kapital", ProviderTransactionID: "KB-1", CreatedAt: created})
	srv.AddTransaction(model.Transaction{ID: 2, OrderID: 11, Amount: decimal.NewFromInt(12), Currency: "EUR",
		Status: model.StatusFailed, CreatedAt: created})

	var buf bytes.Buffer
	n, err := NewTransactions(nil).ExportTransactions(context.Background(), srv.API(fakeapi.NewToken("admin")), model.TransactionFilter{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	book, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, book.Sheets, 1)
	rows := book.Sheets[0].Rows
	require.Len(t, rows, 3)
	assert.Equal(t, "Status", rows[0].Cells[5].Value)
	assert.Equal(t, "Completed", rows[1].Cells[5].Value)
	assert.Equal(t, "KB-1", rows[1].Cells[7].Value)
	assert.Equal(t, "2024-06-01 12:30:00", rows[1].Cells[8].Value)
	assert.Equal(t, "Failed", rows[2].Cells[5].Value)
}
