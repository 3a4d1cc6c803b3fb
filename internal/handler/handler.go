// Package handler exposes the storefront and back-office operations as echo
// routes.
package handler

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/suteetoe/winehouse/internal/admin"
	"github.com/suteetoe/winehouse/internal/auth"
	"github.com/suteetoe/winehouse/internal/catalog"
	"github.com/suteetoe/winehouse/internal/checkout"
	"github.com/suteetoe/winehouse/internal/listing"
	mid "github.com/suteetoe/winehouse/internal/middleware"
	"github.com/suteetoe/winehouse/internal/orders"
	"github.com/suteetoe/winehouse/internal/session"
)

// Deps are the services the handlers delegate to
type Deps struct {
	Catalog      *catalog.Service
	Auth         *auth.Service
	Sessions     *session.Registry
	Checkout     *checkout.Orchestrator
	Orders       *orders.Service
	Admin        *admin.Catalog
	Transactions *admin.Transactions
	Dashboard    *admin.DashboardLoader
	PageSizer    listing.PageSizer
	// Ping checks the marker database; nil when running without one
	Ping func(ctx context.Context) error
}

// Handler holds the route dependencies
type Handler struct {
	Deps
}

// New creates the handler set
func New(d Deps) *Handler {
	return &Handler{Deps: d}
}

// Register mounts every route on e. Global middleware is installed by the caller.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Provider return; the renderer forwards the query with the user's token
	e.GET("/payment/callback", h.PaymentCallback, mid.RequireSession)

	shop := e.Group("/api/shop")

	authAPI := shop.Group("/auth")
	authAPI.POST("/login", h.Login)
	authAPI.POST("/register", h.RegisterUser)
	authAPI.GET("/me", h.Me, mid.RequireSession)
	authAPI.POST("/logout", h.Logout, mid.RequireSession)

	shop.GET("/products", h.ListProducts)
	shop.GET("/products/search", h.SearchProducts)
	shop.GET("/products/:id", h.GetProduct)
	shop.GET("/categories/:slug/products", h.CategoryProducts)
	shop.GET("/filter-options", h.FilterOptions)

	cartAPI := shop.Group("/cart", mid.RequireSession)
	cartAPI.GET("", h.GetCart)
	cartAPI.POST("", h.AddToCart)
	cartAPI.PUT("", h.UpdateCartItem)
	cartAPI.PUT("/:productId", h.UpdateCartItem)
	cartAPI.DELETE("/:productId", h.RemoveFromCart)
	cartAPI.DELETE("", h.ClearCart)

	favAPI := shop.Group("/favourites", mid.RequireSession)
	favAPI.GET("", h.ListWishlist)
	favAPI.GET("/count", h.WishlistCount)
	favAPI.GET("/:productId", h.WishlistContains)
	favAPI.POST("", h.AddToWishlist)
	favAPI.POST("/:productId/move-to-cart", h.MoveToCart)
	favAPI.DELETE("/product/:productId", h.RemoveFromWishlist)
	favAPI.DELETE("/:id", h.RemoveWishlistEntry)
	favAPI.DELETE("", h.ClearWishlist)

	shop.GET("/badges", h.Badges, mid.RequireSession)

	checkoutAPI := shop.Group("/checkout", mid.RequireSession)
	checkoutAPI.GET("", h.CheckoutSummary)
	checkoutAPI.POST("", h.BeginCheckout)
	checkoutAPI.GET("/pending", h.PendingPayment)
	checkoutAPI.POST("/verify", h.VerifyPending)

	ordersAPI := shop.Group("/orders", mid.RequireSession)
	ordersAPI.GET("", h.MyOrders)
	ordersAPI.GET("/:id", h.GetOrder)

	h.registerAdmin(e.Group("/admin/api", mid.RequireSession, mid.RequireAdmin))
}
