package eventbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublish_DeliversToTopicSubscribersOnly(t *testing.T) {
	b := New(nil)
	var cart, wish int
	b.Subscribe(CartUpdated, func(Topic) { cart++ })
	b.Subscribe(WishlistUpdated, func(Topic) { wish++ })

	b.Publish(CartUpdated)
	b.Publish(CartUpdated)

	assert.Equal(t, 2, cart)
	assert.Equal(t, 0, wish)
}

func TestUnsubscribe_IsIdempotent(t *testing.T) {
	b := New(nil)
	var a, c int
	unsubA := b.Subscribe(CartUpdated, func(Topic) { a++ })
	b.Subscribe(CartUpdated, func(Topic) { c++ })

	unsubA()
	unsubA()
	b.Publish(CartUpdated)

	assert.Equal(t, 0, a)
	assert.Equal(t, 1, c)
	assert.Equal(t, 1, b.Subscribers(CartUpdated))
}

func TestPublish_NoSubscribers(t *testing.T) {
	b := New(nil)
	assert.NotPanics(t, func() { b.Publish(WishlistUpdated) })
}

func TestPublish_HandlerMayUnsubscribeItself(t *testing.T) {
	b := New(nil)
	calls := 0
	var unsub func()
	unsub = b.Subscribe(CartUpdated, func(Topic) {
		calls++
		unsub()
	})

	b.Publish(CartUpdated)
	b.Publish(CartUpdated)
	assert.Equal(t, 1, calls)
}

func TestPublish_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	b := New(nil)
	got := false
	b.Subscribe(CartUpdated, func(Topic) { panic("boom") })
	b.Subscribe(CartUpdated, func(Topic) { got = true })

	assert.NotPanics(t, func() { b.Publish(CartUpdated) })
	assert.True(t, got)
}

func TestBus_Concurrent(t *testing.T) {
	b := New(nil)
	var mu sync.Mutex
	n := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := b.Subscribe(CartUpdated, func(Topic) {
				mu.Lock()
				n++
				mu.Unlock()
			})
			b.Publish(CartUpdated)
			unsub()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, b.Subscribers(CartUpdated))
	assert.GreaterOrEqual(t, n, 20)
}
