package admin

import (
	"context"

	"github.com/suteetoe/winehouse/internal/model"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const recentTransactions = 10

// Section is one independently loaded part of the dashboard
type Section[T any] struct {
	Data  T      `json:"data"`
	Error string `json:"error,omitempty"`
}

func (s *Section[T]) set(v T, err error) {
	if err != nil {
		s.Error = err.Error()
		return
	}
	s.Data = v
}

// Dashboard is the back-office landing page
type Dashboard struct {
	Stats      Section[model.TransactionStats]        `json:"stats"`
	Recent     Section[model.Page[model.Transaction]] `json:"recentTransactions"`
	Products   Section[[]model.Product]               `json:"products"`
	Categories Section[[]model.Category]              `json:"categories"`
}

// Failed counts the sections that could not be loaded
func (d Dashboard) Failed() int {
	n := 0
	for _, e := range []string{d.Stats.Error, d.Recent.Error, d.Products.Error, d.Categories.Error} {
		if e != "" {
			n++
		}
	}
	return n
}

// DashboardLoader fans the dashboard requests out concurrently
type DashboardLoader struct {
	catalog      *Catalog
	transactions *Transactions
	logger       *zap.Logger
}

func NewDashboardLoader(catalog *Catalog, transactions *Transactions, logger *zap.Logger) *DashboardLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardLoader{catalog: catalog, transactions: transactions, logger: logger}
}

// Load issues every section at once and joins. A failing section carries its
// own error and never cancels the others.
func (l *DashboardLoader) Load(ctx context.Context, api *apiclient.Client) Dashboard {
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.Stats.set(l.transactions.Stats(ctx, api))
		return nil
	})
	g.Go(func() error {
		d.Recent.set(l.transactions.Filter(ctx, api, model.TransactionFilter{
			Page:           1,
			PageSize:       recentTransactions,
			SortBy:         "createdAt",
			SortDescending: true,
		}))
		return nil
	})
	g.Go(func() error {
		d.Products.set(l.catalog.Products.List(ctx, api))
		return nil
	})
	g.Go(func() error {
		d.Categories.set(l.catalog.Categories.List(ctx, api))
		return nil
	})
	_ = g.Wait()

	if n := d.Failed(); n > 0 {
		l.logger.Warn("Dashboard loaded partially", zap.Int("failed_sections", n))
	}
	return d
}
