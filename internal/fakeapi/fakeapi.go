// Package fakeapi is an in-process stand-in for the remote REST backend,
// used by package tests.
package fakeapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/winehouse/internal/model"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"github.com/suteetoe/winehouse/pkg/config"
)

// Server holds the backend state; all fields are guarded by mu
type Server struct {
	URL string

	mu             sync.Mutex
	products       map[int]model.Product
	cart           []model.CartItem
	wishlist       []model.WishlistItem
	nextWishlistID int
	payments       map[int]string
	nextTx         int
	orders         []model.Order
	transactions   []model.Transaction
	omitPaymentURL bool
	role           string
	rejectToken    string
	failures       map[string]failure
	calls          map[string]int
	callbacks      []Callback
}

type failure struct {
	status int
	once   bool
}

// Callback is a recorded POST /api/payments/callback body
type Callback struct {
	ProviderTransactionID string `json:"providerTransactionId"`
	Status                string `json:"status"`
}

// New starts a fake backend stocked with a few products
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		products: map[int]model.Product{
			1: product(1, "Merlot Reserve", "20", "", "Wine"),
			5: product(5, "Chablis", "30", "24", "Wine"),
			7: product(7, "Islay Single Malt", "60", "", "Whiskey"),
		},
		nextWishlistID: 100,
		payments:       map[int]string{},
		nextTx:         500,
		role:           "Customer",
		failures:       map[string]failure{},
		calls:          map[string]int{},
	}
	e := echo.New()
	e.HideBanner = true
	e.Use(s.middleware)
	s.routes(e)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	s.URL = srv.URL
	return s
}

func product(id int, title, price, discount, category string) model.Product {
	p := model.Product{
		ID:           id,
		Title:        title,
		Price:        decimal.RequireFromString(price),
		CategoryName: category,
		IsActive:     true,
	}
	if discount != "" {
		d := decimal.RequireFromString(discount)
		p.DiscountPrice = &d
	}
	return p
}

// API returns a client for the fake bound to tokens
func (s *Server) API(tokens apiclient.TokenSource, opts ...apiclient.Option) *apiclient.Client {
	c := apiclient.New(config.APIConfig{BaseURL: s.URL, Timeout: 2 * time.Second}, nil, opts...)
	if tokens == nil {
		return c
	}
	return c.WithTokens(tokens)
}

// Fail makes every request to method+path answer status
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	s.failures[method+" "+path] = failure{status: status}
	s.mu.Unlock()
}

// FailOnce makes the next request to method+path answer status
func (s *Server) FailOnce(method, path string, status int) {
	s.mu.Lock()
	s.failures[method+" "+path] = failure{status: status, once: true}
	s.mu.Unlock()
}

// Heal removes an injected failure
func (s *Server) Heal(method, path string) {
	s.mu.Lock()
	delete(s.failures, method+" "+path)
	s.mu.Unlock()
}

// Calls counts requests to method+path
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// SetRole sets the role returned by the user summary
func (s *Server) SetRole(role string) {
	s.mu.Lock()
	s.role = role
	s.mu.Unlock()
}

// RejectToken makes the backend answer 401 for this bearer token
func (s *Server) RejectToken(token string) {
	s.mu.Lock()
	s.rejectToken = token
	s.mu.Unlock()
}

// OmitPaymentURL makes initiate answer without a paymentUrl
func (s *Server) OmitPaymentURL() {
	s.mu.Lock()
	s.omitPaymentURL = true
	s.mu.Unlock()
}

// SetPaymentStatus sets the provider status of a transaction
func (s *Server) SetPaymentStatus(txID int, status string) {
	s.mu.Lock()
	s.payments[txID] = status
	s.mu.Unlock()
}

// AddProduct stocks a product
func (s *Server) AddProduct(p model.Product) {
	s.mu.Lock()
	s.products[p.ID] = p
	s.mu.Unlock()
}

// AddTransaction stores a transaction for the admin endpoints
func (s *Server) AddTransaction(tx model.Transaction) {
	s.mu.Lock()
	s.transactions = append(s.transactions, tx)
	s.mu.Unlock()
}

// CartQuantity returns the stored quantity of productID
func (s *Server) CartQuantity(productID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.cart {
		if it.ProductID == productID {
			return it.Quantity
		}
	}
	return 0
}

// CartLines is the number of cart lines
func (s *Server) CartLines() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cart)
}

// WishlistEntries counts entries for productID
func (s *Server) WishlistEntries(productID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, w := range s.wishlist {
		if w.ProductID == productID {
			n++
		}
	}
	return n
}

// Callbacks returns the recorded payment callbacks
func (s *Server) Callbacks() []Callback {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Callback(nil), s.callbacks...)
}

func (s *Server) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Method + " " + c.Request().URL.Path

		s.mu.Lock()
		s.calls[key]++
		f, failing := s.failures[key]
		if failing && f.once {
			delete(s.failures, key)
		}
		reject := s.rejectToken
		s.mu.Unlock()

		if failing {
			return c.JSON(f.status, echo.Map{"message": fmt.Sprintf("injected %d", f.status)})
		}

		path := c.Request().URL.Path
		if strings.HasPrefix(path, "/api/auths/login") || strings.HasPrefix(path, "/api/auths/register") ||
			strings.HasPrefix(path, "/api/products") {
			return next(c)
		}
		auth := c.Request().Header.Get("Authorization")
		if auth == "" || (reject != "" && auth == "Bearer "+reject) {
			return c.NoContent(http.StatusUnauthorized)
		}
		if !signatureValid(strings.TrimPrefix(auth, "Bearer ")) {
			return c.NoContent(http.StatusUnauthorized)
		}
		return next(c)
	}
}

// SigningKey is the HS256 key the fake accepts for JWT bearer tokens
const SigningKey = "k"

// signatureValid checks JWT bearers against SigningKey; opaque test tokens pass
func signatureValid(token string) bool {
	if strings.Count(token, ".") != 2 {
		return true
	}
	_, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return []byte(SigningKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return err == nil
}

func (s *Server) routes(e *echo.Echo) {
	e.GET("/api/products/active", s.activeProducts)
	e.GET("/api/products", s.activeProducts)
	e.GET("/api/categories", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []model.Category{{ID: 1, Name: "Wine", IsActive: true}, {ID: 2, Name: "Whiskey", IsActive: true}})
	})

	e.GET("/api/orders/cart", s.getCart)
	e.POST("/api/orders/cart", s.addToCart)
	e.PUT("/api/orders/cart", s.updateCart)
	e.DELETE("/api/orders/cart/:productId", s.removeFromCart)
	e.DELETE("/api/orders/cart", s.clearCart)

	e.GET("/api/wishlists", s.listWishlist)
	e.GET("/api/wishlists/count", s.countWishlist)
	e.GET("/api/wishlists/check/:productId", s.checkWishlist)
	e.POST("/api/wishlists", s.addWishlist)
	e.DELETE("/api/wishlists/product/:productId", s.removeWishlistByProduct)
	e.DELETE("/api/wishlists/:id", s.removeWishlist)
	e.DELETE("/api/wishlists", s.clearWishlist)

	e.POST("/api/payments/initiate", s.initiatePayment)
	e.POST("/api/payments/callback", s.paymentCallback)
	e.GET("/api/payments/status/:id", s.paymentStatus)

	e.POST("/api/auths/get-user-summary", s.userSummary)
	e.GET("/api/auths/check-authorize", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.GET("/api/orders", s.listOrders)
	e.GET("/api/orders/all", s.listOrders)
	e.GET("/api/orders/:id", s.getOrder)
	e.PATCH("/api/orders/:id/status", s.updateOrderStatus)

	e.GET("/api/transactions/stats", s.transactionStats)
	e.POST("/api/transactions/filter", s.filterTransactions)
}

func intParam(c echo.Context, name string) int {
	n, _ := strconv.Atoi(c.Param(name))
	return n
}

func (s *Server) activeProducts(c echo.Context) error {
	s.mu.Lock()
	out := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return c.JSON(http.StatusOK, out)
}

// cartLocked must be called with mu held
func (s *Server) cartLocked() model.Cart {
	c := model.Cart{Items: append([]model.CartItem{}, s.cart...)}
	for i, it := range c.Items {
		unit := it.Price
		if it.DiscountPrice != nil && it.DiscountPrice.IsPositive() && it.DiscountPrice.LessThan(it.Price) {
			unit = *it.DiscountPrice
		}
		c.Items[i].Total = unit.Mul(decimal.NewFromInt(int64(it.Quantity)))
		c.Subtotal = c.Subtotal.Add(c.Items[i].Total)
	}
	c.Total = c.Subtotal
	return c
}

func (s *Server) getCart(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, s.cartLocked())
}

func (s *Server) addToCart(c echo.Context) error {
	var req model.LineRequest
	if err := c.Bind(&req); err != nil || req.Quantity < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": echo.Map{"Quantity": []string{"must be positive"}}})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[req.ProductID]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Product not found"})
	}
	for i, it := range s.cart {
		if it.ProductID == req.ProductID {
			s.cart[i].Quantity += req.Quantity
			return c.NoContent(http.StatusOK)
		}
	}
	s.cart = append(s.cart, model.CartItem{
		ProductID:     p.ID,
		Title:         p.Title,
		Price:         p.Price,
		DiscountPrice: p.DiscountPrice,
		Quantity:      req.Quantity,
	})
	return c.NoContent(http.StatusOK)
}

func (s *Server) updateCart(c echo.Context) error {
	var req model.LineRequest
	if err := c.Bind(&req); err != nil || req.Quantity < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Quantity must be positive"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.cart {
		if it.ProductID == req.ProductID {
			s.cart[i].Quantity = req.Quantity
			return c.NoContent(http.StatusOK)
		}
	}
	return c.JSON(http.StatusNotFound, echo.Map{"message": "Item not in cart"})
}

func (s *Server) removeFromCart(c echo.Context) error {
	id := intParam(c, "productId")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.cart {
		if it.ProductID == id {
			s.cart = append(s.cart[:i], s.cart[i+1:]...)
			return c.NoContent(http.StatusNoContent)
		}
	}
	return c.JSON(http.StatusNotFound, echo.Map{"message": "Item not in cart"})
}

func (s *Server) clearCart(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cart) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Cart is empty"})
	}
	s.cart = nil
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listWishlist(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, append([]model.WishlistItem{}, s.wishlist...))
}

func (s *Server) countWishlist(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, len(s.wishlist))
}

func (s *Server) checkWishlist(c echo.Context) error {
	id := intParam(c, "productId")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.wishlist {
		if w.ProductID == id {
			return c.JSON(http.StatusOK, true)
		}
	}
	return c.JSON(http.StatusOK, false)
}

func (s *Server) addWishlist(c echo.Context) error {
	var req struct {
		ProductID int `json:"productId"`
	}
	if err := c.Bind(&req); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.wishlist {
		if w.ProductID == req.ProductID {
			return c.JSON(http.StatusConflict, echo.Map{"message": "Product already in wishlist"})
		}
	}
	p, ok := s.products[req.ProductID]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Product not found"})
	}
	s.nextWishlistID++
	item := model.WishlistItem{
		ID:            s.nextWishlistID,
		ProductID:     p.ID,
		Title:         p.Title,
		Price:         p.Price,
		DiscountPrice: p.DiscountPrice,
		AddedOn:       time.Now().UTC(),
	}
	s.wishlist = append(s.wishlist, item)
	return c.JSON(http.StatusCreated, item)
}

func (s *Server) removeWishlistWhere(c echo.Context, match func(model.WishlistItem) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.wishlist {
		if match(w) {
			s.wishlist = append(s.wishlist[:i], s.wishlist[i+1:]...)
			return c.NoContent(http.StatusNoContent)
		}
	}
	return c.JSON(http.StatusNotFound, echo.Map{"message": "Wishlist item not found"})
}

func (s *Server) removeWishlistByProduct(c echo.Context) error {
	id := intParam(c, "productId")
	return s.removeWishlistWhere(c, func(w model.WishlistItem) bool { return w.ProductID == id })
}

func (s *Server) removeWishlist(c echo.Context) error {
	id := intParam(c, "id")
	return s.removeWishlistWhere(c, func(w model.WishlistItem) bool { return w.ID == id })
}

func (s *Server) clearWishlist(c echo.Context) error {
	s.mu.Lock()
	s.wishlist = nil
	s.mu.Unlock()
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) initiatePayment(c echo.Context) error {
	var req struct {
		Items        []model.LineRequest `json:"items"`
		DiscountCode string              `json:"discountCode"`
	}
	if err := c.Bind(&req); err != nil || len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Cart is empty"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	amount := s.cartLocked().Total
	if strings.EqualFold(req.DiscountCode, "WELCOME10") {
		amount = amount.Sub(decimal.NewFromInt(10))
	}
	s.nextTx++
	tx := s.nextTx
	s.payments[tx] = "PENDING"
	order := model.Order{ID: tx - 400, Total: amount, Status: model.StatusPending, CreatedAt: time.Now().UTC()}
	s.orders = append(s.orders, order)

	resp := echo.Map{"transactionId": tx, "orderId": order.ID, "amount": amount}
	if !s.omitPaymentURL {
		resp["paymentUrl"] = fmt.Sprintf("https://pay.example.test/checkout?tx=%d", tx)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) paymentCallback(c echo.Context) error {
	var cb Callback
	if err := c.Bind(&cb); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	s.mu.Lock()
	s.callbacks = append(s.callbacks, cb)
	s.mu.Unlock()
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (s *Server) paymentStatus(c echo.Context) error {
	id := intParam(c, "id")
	s.mu.Lock()
	status, ok := s.payments[id]
	s.mu.Unlock()
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Transaction not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"transactionId": id, "status": status})
}

func (s *Server) userSummary(c echo.Context) error {
	s.mu.Lock()
	role := s.role
	s.mu.Unlock()
	return c.JSON(http.StatusOK, model.UserSummary{ID: "u-1", Email: "buyer@shop.test", FullName: "Buyer", Role: role})
}

func (s *Server) listOrders(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, append([]model.Order{}, s.orders...))
}

func (s *Server) getOrder(c echo.Context) error {
	id := intParam(c, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == id {
			return c.JSON(http.StatusOK, o)
		}
	}
	return c.JSON(http.StatusNotFound, echo.Map{"message": "Order not found"})
}

func (s *Server) updateOrderStatus(c echo.Context) error {
	id := intParam(c, "id")
	var req struct {
		Status model.OrderStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.orders {
		if o.ID == id {
			s.orders[i].Status = req.Status
			return c.JSON(http.StatusOK, s.orders[i])
		}
	}
	return c.JSON(http.StatusNotFound, echo.Map{"message": "Order not found"})
}

func (s *Server) transactionStats(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := model.TransactionStats{TotalCount: len(s.transactions)}
	for _, tx := range s.transactions {
		stats.TotalAmount = stats.TotalAmount.Add(tx.Amount)
		if tx.Status == model.StatusCompleted {
			stats.CompletedCount++
			stats.CompletedAmount = stats.CompletedAmount.Add(tx.Amount)
		}
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) filterTransactions(c echo.Context) error {
	var f model.TransactionFilter
	if err := c.Bind(&f); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]model.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		if f.Status != nil && tx.Status != *f.Status {
			continue
		}
		items = append(items, tx)
	}
	return c.JSON(http.StatusOK, model.Page[model.Transaction]{
		Items:       items,
		TotalCount:  len(items),
		TotalPages:  1,
		CurrentPage: 1,
		PageSize:    f.PageSize,
	})
}

// Token is a TokenSource holding a fixed bearer token
type Token struct {
	mu      sync.Mutex
	value   string
	cleared int
}

// NewToken returns a token source for value
func NewToken(value string) *Token {
	return &Token{value: value}
}

func (t *Token) Token() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

func (t *Token) Clear() {
	t.mu.Lock()
	t.value = ""
	t.cleared++
	t.mu.Unlock()
}

// Cleared counts Clear calls
func (t *Token) Cleared() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cleared
}
