package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/winehouse/internal/admin"
	mid "github.com/suteetoe/winehouse/internal/middleware"
	"github.com/suteetoe/winehouse/internal/model"
	"github.com/suteetoe/winehouse/pkg/logger"
	"go.uber.org/zap"
)

func (h *Handler) registerAdmin(g *echo.Group) {
	g.GET("/dashboard", h.AdminDashboard)

	registerResource(g, h.Admin.Products)
	registerResource(g, h.Admin.Categories)
	registerResource(g, h.Admin.SubCategories.Resource)
	registerResource(g, h.Admin.Slides)
	registerResource(g, h.Admin.ProductDetails.Resource)
	registerResource(g, h.Admin.ProductFields.Resource)

	g.GET("/subcategories/by-category/:categoryId", h.SubCategoriesByCategory)
	g.GET("/productdetails/product/:productId", h.ProductDetailsByProduct)
	g.GET("/productfields/product/:productId", h.ProductFieldsByProduct)

	g.GET("/orders", h.AllOrders)
	g.PATCH("/orders/:id/status", h.UpdateOrderStatus)

	g.POST("/transactions/filter", h.FilterTransactions)
	g.POST("/transactions/export", h.ExportTransactions)
	g.GET("/transactions/stats", h.TransactionStats)
	g.GET("/transactions/order/:orderId", h.TransactionsByOrder)
	g.GET("/transactions/user/:userId", h.TransactionsByUser)
	g.GET("/transactions/:id", h.GetTransaction)
	g.PATCH("/transactions/:id/status", h.UpdateTransactionStatus)
}

// registerResource mounts the lifecycle routes of one back-office resource
func registerResource[T any](g *echo.Group, r *admin.Resource[T]) {
	base := "/" + r.Name()

	g.GET(base, func(c echo.Context) error {
		s, _ := mid.GetSession(c)
		ctx := c.Request().Context()
		var (
			items []T
			err   error
		)
		switch c.QueryParam("scope") {
		case "active":
			items, err = r.Active(ctx, s.API())
		case "deleted":
			items, err = r.Deleted(ctx, s.API())
		case "", "all":
			items, err = r.List(ctx, s.API())
		default:
			return badRequest(c, "scope must be all, active or deleted")
		}
		if err != nil {
			return respondError(c, err, "Failed to retrieve "+r.Name())
		}
		return c.JSON(http.StatusOK, items)
	})

	g.GET(base+"/:id", func(c echo.Context) error {
		s, _ := mid.GetSession(c)
		id, ok := intParam(c, "id")
		if !ok {
			return badRequest(c, "Invalid ID")
		}
		item, err := r.Get(c.Request().Context(), s.API(), id)
		if err != nil {
			return respondError(c, err, "Failed to retrieve "+r.Name())
		}
		return c.JSON(http.StatusOK, item)
	})

	g.POST(base, func(c echo.Context) error {
		s, _ := mid.GetSession(c)
		var body map[string]any
		if err := c.Bind(&body); err != nil {
			return badRequest(c, "Invalid request data")
		}
		item, err := r.Create(c.Request().Context(), s.API(), body)
		if err != nil {
			return respondError(c, err, "Failed to create "+r.Name())
		}
		return c.JSON(http.StatusCreated, item)
	})

	g.PUT(base+"/:id", func(c echo.Context) error {
		s, _ := mid.GetSession(c)
		id, ok := intParam(c, "id")
		if !ok {
			return badRequest(c, "Invalid ID")
		}
		var body map[string]any
		if err := c.Bind(&body); err != nil {
			return badRequest(c, "Invalid request data")
		}
		item, err := r.Update(c.Request().Context(), s.API(), id, body)
		if err != nil {
			return respondError(c, err, "Failed to update "+r.Name())
		}
		return c.JSON(http.StatusOK, item)
	})

	g.DELETE(base+"/:id", func(c echo.Context) error {
		s, _ := mid.GetSession(c)
		id, ok := intParam(c, "id")
		if !ok {
			return badRequest(c, "Invalid ID")
		}
		if err := r.Delete(c.Request().Context(), s.API(), id); err != nil {
			return respondError(c, err, "Failed to delete "+r.Name())
		}
		return c.NoContent(http.StatusNoContent)
	})

	g.DELETE(base+"/:id/soft", func(c echo.Context) error {
		s, _ := mid.GetSession(c)
		id, ok := intParam(c, "id")
		if !ok {
			return badRequest(c, "Invalid ID")
		}
		if err := r.SoftDelete(c.Request().Context(), s.API(), id); err != nil {
			return respondError(c, err, "Failed to delete "+r.Name())
		}
		return c.NoContent(http.StatusNoContent)
	})

	g.PATCH(base+"/:id/:action", func(c echo.Context) error {
		s, _ := mid.GetSession(c)
		id, ok := intParam(c, "id")
		if !ok {
			return badRequest(c, "Invalid ID")
		}
		action := admin.Action(c.Param("action"))
		if !action.Valid() {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Unknown action"})
		}
		if err := r.Apply(c.Request().Context(), s.API(), id, action); err != nil {
			return respondError(c, err, fmt.Sprintf("Failed to %s %s", action, r.Name()))
		}
		return c.NoContent(http.StatusNoContent)
	})
}

// AdminDashboard loads every dashboard section; failed sections carry an error
func (h *Handler) AdminDashboard(c echo.Context) error {
	s, _ := mid.GetSession(c)
	d := h.Dashboard.Load(c.Request().Context(), s.API())
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) SubCategoriesByCategory(c echo.Context) error {
	s, _ := mid.GetSession(c)
	id, ok := intParam(c, "categoryId")
	if !ok {
		return badRequest(c, "Invalid category ID")
	}
	items, err := h.Admin.SubCategories.ByCategory(c.Request().Context(), s.API(), id)
	if err != nil {
		return respondError(c, err, "Failed to retrieve subcategories")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ProductDetailsByProduct(c echo.Context) error {
	s, _ := mid.GetSession(c)
	id, ok := intParam(c, "productId")
	if !ok {
		return badRequest(c, "Invalid product ID")
	}
	items, err := h.Admin.ProductDetails.ByProduct(c.Request().Context(), s.API(), id)
	if err != nil {
		return respondError(c, err, "Failed to retrieve product details")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ProductFieldsByProduct(c echo.Context) error {
	s, _ := mid.GetSession(c)
	id, ok := intParam(c, "productId")
	if !ok {
		return badRequest(c, "Invalid product ID")
	}
	items, err := h.Admin.ProductFields.ByProduct(c.Request().Context(), s.API(), id)
	if err != nil {
		return respondError(c, err, "Failed to retrieve product fields")
	}
	return c.JSON(http.StatusOK, items)
}

// AllOrders lists every order
func (h *Handler) AllOrders(c echo.Context) error {
	s, _ := mid.GetSession(c)
	list, err := h.Orders.All(c.Request().Context(), s.API())
	if err != nil {
		return respondError(c, err, "Failed to retrieve orders")
	}
	return c.JSON(http.StatusOK, list)
}

type statusRequest struct {
	Status json.RawMessage `json:"status"`
}

// parseStatus accepts {"status": 2} or {"status": "Completed"}
func parseStatus(c echo.Context) (model.OrderStatus, error) {
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return 0, err
	}
	var name string
	if err := json.Unmarshal(req.Status, &name); err == nil {
		return model.ParseOrderStatus(name)
	}
	return model.ParseOrderStatus(strings.TrimSpace(string(req.Status)))
}

// UpdateOrderStatus overrides an order status
func (h *Handler) UpdateOrderStatus(c echo.Context) error {
	log := logger.FromContext(c)
	s, _ := mid.GetSession(c)
	id, ok := intParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid order ID")
	}
	status, err := parseStatus(c)
	if err != nil {
		log.Warn("Invalid order status", zap.Error(err))
		return badRequest(c, "Invalid order status")
	}

	o, err := h.Orders.UpdateStatus(c.Request().Context(), s.API(), id, status)
	if err != nil {
		return respondError(c, err, "Failed to update order status")
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) bindFilter(c echo.Context) (model.TransactionFilter, error) {
	var f model.TransactionFilter
	if c.Request().ContentLength == 0 {
		return f, nil
	}
	err := c.Bind(&f)
	return f, err
}

// FilterTransactions searches transactions
func (h *Handler) FilterTransactions(c echo.Context) error {
	s, _ := mid.GetSession(c)
	f, err := h.bindFilter(c)
	if err != nil {
		return badRequest(c, "Invalid request data")
	}
	page, err := h.Transactions.Filter(c.Request().Context(), s.API(), f)
	if err != nil {
		if errors.Is(err, admin.ErrInvalidFilter) {
			return badRequest(c, err.Error())
		}
		return respondError(c, err, "Failed to retrieve transactions")
	}
	return c.JSON(http.StatusOK, page)
}

// ExportTransactions downloads the matching transactions as an xlsx workbook
func (h *Handler) ExportTransactions(c echo.Context) error {
	log := logger.FromContext(c)
	s, _ := mid.GetSession(c)
	f, err := h.bindFilter(c)
	if err != nil {
		return badRequest(c, "Invalid request data")
	}

	var buf bytes.Buffer
	n, err := h.Transactions.ExportTransactions(c.Request().Context(), s.API(), f, &buf)
	if err != nil {
		if errors.Is(err, admin.ErrInvalidFilter) {
			return badRequest(c, err.Error())
		}
		return respondError(c, err, "Failed to export transactions")
	}
	log.Info("Transactions exported", zap.Int("rows", n))

	name := fmt.Sprintf("transactions-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+name)
	return c.Blob(http.StatusOK, admin.ExportContentType, buf.Bytes())
}

func (h *Handler) TransactionStats(c echo.Context) error {
	s, _ := mid.GetSession(c)
	stats, err := h.Transactions.Stats(c.Request().Context(), s.API())
	if err != nil {
		return respondError(c, err, "Failed to retrieve transaction statistics")
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetTransaction(c echo.Context) error {
	s, _ := mid.GetSession(c)
	id, ok := intParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid transaction ID")
	}
	tx, err := h.Transactions.Get(c.Request().Context(), s.API(), id)
	if err != nil {
		return respondError(c, err, "Failed to retrieve transaction")
	}
	return c.JSON(http.StatusOK, tx)
}

func (h *Handler) TransactionsByOrder(c echo.Context) error {
	s, _ := mid.GetSession(c)
	id, ok := intParam(c, "orderId")
	if !ok {
		return badRequest(c, "Invalid order ID")
	}
	list, err := h.Transactions.ByOrder(c.Request().Context(), s.API(), id)
	if err != nil {
		return respondError(c, err, "Failed to retrieve transactions")
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) TransactionsByUser(c echo.Context) error {
	s, _ := mid.GetSession(c)
	list, err := h.Transactions.ByUser(c.Request().Context(), s.API(), c.Param("userId"))
	if err != nil {
		return respondError(c, err, "Failed to retrieve transactions")
	}
	return c.JSON(http.StatusOK, list)
}

// UpdateTransactionStatus overrides a transaction status
func (h *Handler) UpdateTransactionStatus(c echo.Context) error {
	s, _ := mid.GetSession(c)
	id, ok := intParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid transaction ID")
	}
	status, err := parseStatus(c)
	if err != nil {
		return badRequest(c, "Invalid transaction status")
	}
	tx, err := h.Transactions.UpdateStatus(c.Request().Context(), s.API(), id, status)
	if err != nil {
		return respondError(c, err, "Failed to update transaction status")
	}
	return c.JSON(http.StatusOK, tx)
}
