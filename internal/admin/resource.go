// Package admin wraps the back-office endpoints: lifecycle resources,
// transactions, the dashboard and the transactions export.
package admin

import (
	"context"
	"fmt"

	"github.com/suteetoe/winehouse/internal/model"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"go.uber.org/zap"
)

// Action is a PATCH lifecycle transition on a resource
type Action string

const (
	ActionRecover    Action = "recover"
	ActionActivate   Action = "activate"
	ActionDeactivate Action = "deactivate"
)

// Valid reports whether a is a known transition
func (a Action) Valid() bool {
	switch a {
	case ActionRecover, ActionActivate, ActionDeactivate:
		return true
	}
	return false
}

// Resource is a back-office entity with the soft-delete lifecycle
// active -> inactive -> soft-deleted -> recovered, plus hard delete.
type Resource[T any] struct {
	name   string
	base   string
	logger *zap.Logger
}

// NewResource creates a resource rooted at base, e.g. "/api/categories"
func NewResource[T any](name, base string, logger *zap.Logger) *Resource[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resource[T]{name: name, base: base, logger: logger}
}

// Name is the route segment of the resource
func (r *Resource[T]) Name() string {
	return r.name
}

func (r *Resource[T]) list(ctx context.Context, api *apiclient.Client, path string) ([]T, error) {
	var out []T
	if err := api.Get(ctx, path, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (r *Resource[T]) item(id int, suffix string) string {
	return fmt.Sprintf("%s/%d%s", r.base, id, suffix)
}

// List returns every entity including inactive ones
func (r *Resource[T]) List(ctx context.Context, api *apiclient.Client) ([]T, error) {
	return r.list(ctx, api, r.base)
}

// Active returns the active entities
func (r *Resource[T]) Active(ctx context.Context, api *apiclient.Client) ([]T, error) {
	return r.list(ctx, api, r.base+"/active")
}

// Deleted returns the soft-deleted entities
func (r *Resource[T]) Deleted(ctx context.Context, api *apiclient.Client) ([]T, error) {
	return r.list(ctx, api, r.base+"/deleted")
}

func (r *Resource[T]) Get(ctx context.Context, api *apiclient.Client, id int) (T, error) {
	var out T
	err := api.Get(ctx, r.item(id, ""), &out)
	return out, err
}

func (r *Resource[T]) Create(ctx context.Context, api *apiclient.Client, body any) (T, error) {
	var out T
	if err := api.Post(ctx, r.base, body, &out); err != nil {
		return out, err
	}
	r.logger.Info("Admin resource created", zap.String("resource", r.name))
	return out, nil
}

func (r *Resource[T]) Update(ctx context.Context, api *apiclient.Client, id int, body any) (T, error) {
	var out T
	if err := api.Put(ctx, r.item(id, ""), body, &out); err != nil {
		return out, err
	}
	r.logger.Info("Admin resource updated", zap.String("resource", r.name), zap.Int("id", id))
	return out, nil
}

// Delete removes the entity permanently
func (r *Resource[T]) Delete(ctx context.Context, api *apiclient.Client, id int) error {
	if err := api.Delete(ctx, r.item(id, ""), nil); err != nil {
		return err
	}
	r.logger.Info("Admin resource deleted", zap.String("resource", r.name), zap.Int("id", id))
	return nil
}

// SoftDelete hides the entity; Recover brings it back
func (r *Resource[T]) SoftDelete(ctx context.Context, api *apiclient.Client, id int) error {
	if err := api.Delete(ctx, r.item(id, "/soft"), nil); err != nil {
		return err
	}
	r.logger.Info("Admin resource soft-deleted", zap.String("resource", r.name), zap.Int("id", id))
	return nil
}

func (r *Resource[T]) Recover(ctx context.Context, api *apiclient.Client, id int) error {
	return r.Apply(ctx, api, id, ActionRecover)
}

func (r *Resource[T]) Activate(ctx context.Context, api *apiclient.Client, id int) error {
	return r.Apply(ctx, api, id, ActionActivate)
}

func (r *Resource[T]) Deactivate(ctx context.Context, api *apiclient.Client, id int) error {
	return r.Apply(ctx, api, id, ActionDeactivate)
}

// Apply runs a lifecycle transition
func (r *Resource[T]) Apply(ctx context.Context, api *apiclient.Client, id int, action Action) error {
	if !action.Valid() {
		return fmt.Errorf("unknown %s action %q", r.name, action)
	}
	if err := api.Patch(ctx, r.item(id, "/"+string(action)), nil, nil); err != nil {
		return err
	}
	r.logger.Info("Admin resource transition",
		zap.String("resource", r.name),
		zap.Int("id", id),
		zap.String("action", string(action)))
	return nil
}

// SubCategories adds the per-category listing
type SubCategories struct {
	*Resource[model.SubCategory]
}

// ByCategory lists the subcategories of a category
func (s SubCategories) ByCategory(ctx context.Context, api *apiclient.Client, categoryID int) ([]model.SubCategory, error) {
	return s.list(ctx, api, fmt.Sprintf("%s/by-category/%d", s.base, categoryID))
}

// ProductScoped is a resource attached to a product (fields, detail sections)
type ProductScoped[T any] struct {
	*Resource[T]
}

// ByProduct lists the entries of one product
func (p ProductScoped[T]) ByProduct(ctx context.Context, api *apiclient.Client, productID int) ([]T, error) {
	return p.list(ctx, api, fmt.Sprintf("%s/product/%d", p.base, productID))
}

// Catalog groups the six lifecycle resources of the back office
type Catalog struct {
	Products       *Resource[model.Product]
	Categories     *Resource[model.Category]
	SubCategories  SubCategories
	Slides         *Resource[model.Slide]
	ProductDetails ProductScoped[model.DetailSection]
	ProductFields  ProductScoped[model.KeyValue]
}

// NewCatalog wires the resources to their backend routes
func NewCatalog(logger *zap.Logger) *Catalog {
	return &Catalog{
		Products:       NewResource[model.Product]("products", "/api/products", logger),
		Categories:     NewResource[model.Category]("categories", "/api/categories", logger),
		SubCategories:  SubCategories{NewResource[model.SubCategory]("subcategories", "/api/subcategories", logger)},
		Slides:         NewResource[model.Slide]("slides", "/api/slides", logger),
		ProductDetails: ProductScoped[model.DetailSection]{NewResource[model.DetailSection]("productdetails", "/api/productdetails", logger)},
		ProductFields:  ProductScoped[model.KeyValue]{NewResource[model.KeyValue]("productfields", "/api/productfields", logger)},
	}
}
