// Package session holds the per-user state of the storefront: bearer token,
// event bus, badge counters and the checkout guard.
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/suteetoe/winehouse/internal/cart"
	"github.com/suteetoe/winehouse/internal/eventbus"
	"github.com/suteetoe/winehouse/internal/listing"
	"github.com/suteetoe/winehouse/internal/model"
	"github.com/suteetoe/winehouse/internal/wishlist"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"go.uber.org/zap"
)

// SummaryFunc resolves the identity behind a token
type SummaryFunc func(ctx context.Context, api *apiclient.Client, token string) (model.UserSummary, error)

// Session is shared by every request of one user
type Session struct {
	Key      string
	Bus      *eventbus.Bus
	Cart     *cart.Manager
	Wishlist *wishlist.Manager
	Badges   *Badges

	mu       sync.RWMutex
	token    string
	api      *apiclient.Client
	summary  SummaryFunc
	onClear  func(*Session)
	checkout atomic.Bool
	logger   *zap.Logger

	listingMu   sync.Mutex
	lastListing *listing.State
}

// Token implements apiclient.TokenSource
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Clear forgets the token and removes the session from its registry
func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	s.Badges.Close()
	s.logger.Info("Session cleared")
	if s.onClear != nil {
		s.onClear(s)
	}
}

// Authenticated reports whether a token is held
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

func (s *Session) setToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// API returns the backend client bound to this session's token
func (s *Session) API() *apiclient.Client {
	return s.api
}

// Summary asks the backend who the token belongs to
func (s *Session) Summary(ctx context.Context) (model.UserSummary, error) {
	return s.summary(ctx, s.api, s.Token())
}

// IsAdmin checks the role claim reported by the backend. There is no cached
// flag; every call re-derives the capability.
func (s *Session) IsAdmin(ctx context.Context) (bool, error) {
	sum, err := s.Summary(ctx)
	if err != nil {
		return false, err
	}
	return sum.IsAdmin(), nil
}

// TryBeginCheckout marks a checkout submission in flight. It returns false
// when one is already running so the caller can reject the duplicate.
func (s *Session) TryBeginCheckout() bool {
	return s.checkout.CompareAndSwap(false, true)
}

// EndCheckout releases the checkout guard
func (s *Session) EndCheckout() {
	s.checkout.Store(false)
}

// NextListing applies the page reset rule against the grid state this user
// last requested and remembers st for the next call.
func (s *Session) NextListing(st listing.State) listing.State {
	s.listingMu.Lock()
	defer s.listingMu.Unlock()
	if s.lastListing != nil {
		st = st.Reset(*s.lastListing)
	}
	prev := st
	s.lastListing = &prev
	return st
}

// Logger returns a logger tagged with the user key
func (s *Session) Logger() *zap.Logger {
	return s.logger
}

func (s *Session) cartCount(ctx context.Context) (int, error) {
	v, err := s.Cart.Get(ctx)
	if err != nil {
		return 0, err
	}
	return v.ItemCount, nil
}
