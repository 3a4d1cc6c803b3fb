package wishlist

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/winehouse/internal/cart"
	"github.com/suteetoe/winehouse/internal/eventbus"
	"github.com/suteetoe/winehouse/internal/fakeapi"
	"github.com/suteetoe/winehouse/pkg/apiclient"
)

type fixture struct {
	srv      *fakeapi.Server
	bus      *eventbus.Bus
	cart     *cart.Manager
	wishlist *Manager
	events   map[eventbus.Topic]int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := fakeapi.New(t)
	api := srv.API(fakeapi.NewToken("tok"))
	bus := eventbus.New(nil)
	c := cart.NewManager(api, bus, nil)
	f := &fixture{
		srv:      srv,
		bus:      bus,
		cart:     c,
		wishlist: NewManager(api, bus, c, nil),
		events:   map[eventbus.Topic]int{},
	}
	for _, topic := range []eventbus.Topic{eventbus.CartUpdated, eventbus.WishlistUpdated} {
		bus.Subscribe(topic, func(tp eventbus.Topic) { f.events[tp]++ })
	}
	return f
}

func TestAdd_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.wishlist.Add(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, Added, res)

	res, err = f.wishlist.Add(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, AlreadyPresent, res)

	assert.Equal(t, 1, f.srv.WishlistEntries(5))
	assert.Equal(t, 1, f.events[eventbus.WishlistUpdated])
}

func TestAdd_ConflictMeansAlreadyPresent(t *testing.T) {
	f := newFixture(t)
	f.srv.Fail(http.MethodGet, "/api/wishlists/check/5", http.StatusInternalServerError)
	f.srv.Fail(http.MethodPost, "/api/wishlists", http.StatusConflict)

	res, err := f.wishlist.Add(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, AlreadyPresent, res)
}

func TestCountContainsRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.wishlist.Add(ctx, 1)
	require.NoError(t, err)
	_, err = f.wishlist.Add(ctx, 7)
	require.NoError(t, err)

	n, err := f.wishlist.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err := f.wishlist.Contains(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.wishlist.RemoveByProduct(ctx, 7))
	ok, _ = f.wishlist.Contains(ctx, 7)
	assert.False(t, ok)

	items, err := f.wishlist.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NoError(t, f.wishlist.Remove(ctx, items[0].ID))

	require.NoError(t, f.wishlist.Clear(ctx))
	assert.Equal(t, 5, f.events[eventbus.WishlistUpdated])
}

func TestMoveToCart_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.wishlist.Add(ctx, 7)
	require.NoError(t, err)

	v, err := f.wishlist.MoveToCart(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Quantity(7))
	assert.Zero(t, f.srv.WishlistEntries(7))
	assert.Equal(t, 1, f.events[eventbus.CartUpdated])
}

func TestMoveToCart_CartAddFailsLeavesWishlist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.wishlist.Add(ctx, 7)
	require.NoError(t, err)
	f.srv.Fail(http.MethodPost, "/api/orders/cart", http.StatusServiceUnavailable)

	_, err = f.wishlist.MoveToCart(ctx, 7)
	assert.ErrorIs(t, err, apiclient.ErrServer)
	assert.Equal(t, 1, f.srv.WishlistEntries(7))
	assert.Zero(t, f.srv.CartQuantity(7))
}

func TestMoveToCart_RemoveFailsRollsBackNewLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.wishlist.Add(ctx, 7)
	require.NoError(t, err)
	f.srv.Fail(http.MethodDelete, "/api/wishlists/product/7", http.StatusInternalServerError)

	_, err = f.wishlist.MoveToCart(ctx, 7)
	assert.ErrorIs(t, err, ErrMoveRolledBack)
	assert.Zero(t, f.srv.CartQuantity(7))
	assert.Equal(t, 1, f.srv.WishlistEntries(7))
}

func TestMoveToCart_RemoveFailsRestoresPriorQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.cart.Add(ctx, 7, 3)
	require.NoError(t, err)
	_, err = f.wishlist.Add(ctx, 7)
	require.NoError(t, err)
	f.srv.Fail(http.MethodDelete, "/api/wishlists/product/7", http.StatusInternalServerError)

	_, err = f.wishlist.MoveToCart(ctx, 7)
	assert.ErrorIs(t, err, ErrMoveRolledBack)
	assert.Equal(t, 3, f.srv.CartQuantity(7))
}

func TestMoveToCart_RollbackFailureIsReported(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.wishlist.Add(ctx, 7)
	require.NoError(t, err)
	f.srv.Fail(http.MethodDelete, "/api/wishlists/product/7", http.StatusInternalServerError)
	f.srv.Fail(http.MethodDelete, "/api/orders/cart/7", http.StatusInternalServerError)

	_, err = f.wishlist.MoveToCart(ctx, 7)
	var perr *PartialFailureError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 7, perr.ProductID)
	assert.Equal(t, 1, f.srv.CartQuantity(7))
	assert.Equal(t, 1, f.srv.WishlistEntries(7))
}

func TestDecodeFlag(t *testing.T) {
	ok, err := decodeFlag([]byte(`true`))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = decodeFlag([]byte(`{"isInWishlist":true}`))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = decodeFlag([]byte(`{}`))
	require.NoError(t, err)
	assert.False(t, ok)
}
