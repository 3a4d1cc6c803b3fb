package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/suteetoe/winehouse/internal/eventbus"
)

// Counts is what the navbar shows
type Counts struct {
	Cart     int `json:"cart"`
	Wishlist int `json:"wishlist"`
}

// CountFunc fetches one authoritative count
type CountFunc func(ctx context.Context) (int, error)

// Badges caches the navbar counters. Bus events only mark a counter stale;
// the next Get re-fetches it from the backend.
type Badges struct {
	cartCount     CountFunc
	wishlistCount CountFunc

	mu            sync.Mutex
	counts        Counts
	cartStale     bool
	wishlistStale bool
	unsubscribe   []func()
}

// NewBadges subscribes the counters to bus
func NewBadges(bus *eventbus.Bus, cartCount, wishlistCount CountFunc) *Badges {
	b := &Badges{
		cartCount:     cartCount,
		wishlistCount: wishlistCount,
		cartStale:     true,
		wishlistStale: true,
	}
	b.unsubscribe = []func(){
		bus.Subscribe(eventbus.CartUpdated, func(eventbus.Topic) { b.markStale(true, false) }),
		bus.Subscribe(eventbus.WishlistUpdated, func(eventbus.Topic) { b.markStale(false, true) }),
	}
	return b
}

func (b *Badges) markStale(cart, wishlist bool) {
	b.mu.Lock()
	b.cartStale = b.cartStale || cart
	b.wishlistStale = b.wishlistStale || wishlist
	b.mu.Unlock()
}

// Get returns the counters, refreshing the stale ones. A failed refresh keeps
// the previous value and leaves the counter stale. Fetches run without the
// lock held since a 401 clears the session, which closes the badges.
func (b *Badges) Get(ctx context.Context) (Counts, error) {
	b.mu.Lock()
	refreshCart, refreshWishlist := b.cartStale, b.wishlistStale
	b.cartStale, b.wishlistStale = false, false
	b.mu.Unlock()

	var firstErr error
	cart, cartErr := 0, error(nil)
	if refreshCart {
		cart, cartErr = b.cartCount(ctx)
		if cartErr != nil {
			firstErr = fmt.Errorf("cart count: %w", cartErr)
		}
	}
	wishlist, wishlistErr := 0, error(nil)
	if refreshWishlist {
		wishlist, wishlistErr = b.wishlistCount(ctx)
		if wishlistErr != nil && firstErr == nil {
			firstErr = fmt.Errorf("wishlist count: %w", wishlistErr)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if refreshCart {
		if cartErr != nil {
			b.cartStale = true
		} else {
			b.counts.Cart = cart
		}
	}
	if refreshWishlist {
		if wishlistErr != nil {
			b.wishlistStale = true
		} else {
			b.counts.Wishlist = wishlist
		}
	}
	return b.counts, firstErr
}

// Close drops the bus subscriptions
func (b *Badges) Close() {
	b.mu.Lock()
	subs := b.unsubscribe
	b.unsubscribe = nil
	b.mu.Unlock()
	for _, unsub := range subs {
		unsub()
	}
}
