// Package eventbus is a small in-process publish/subscribe hub used to tell
// badge counters and listings that cart or wishlist state changed.
package eventbus

import (
	"sync"

	"go.uber.org/zap"
)

// Topic names a notification
type Topic string

const (
	CartUpdated     Topic = "cartUpdated"
	WishlistUpdated Topic = "wishlistUpdated"
)

// Handler is invoked synchronously on Publish
type Handler func(Topic)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus delivers each published topic to every current subscriber of that topic
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Topic][]subscription
	logger *zap.Logger
}

// New creates an empty bus
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subs:   make(map[Topic][]subscription),
		logger: logger,
	}
}

// Subscribe registers h for topic and returns an idempotent unsubscribe func
func (b *Bus) Subscribe(topic Topic, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}
}

func (b *Bus) remove(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[topic]
	for i, s := range list {
		if s.id == id {
			b.subs[topic] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
}

// Publish calls every subscriber of topic. Handlers run outside the lock so
// they may subscribe or unsubscribe. A panicking handler is logged and does
// not stop delivery to the others.
func (b *Bus) Publish(topic Topic) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.subs[topic]))
	for i, s := range b.subs[topic] {
		handlers[i] = s.handler
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(topic, h)
	}
}

func (b *Bus) deliver(topic Topic, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				zap.String("topic", string(topic)),
				zap.Any("panic", r))
		}
	}()
	h(topic)
}

// Subscribers returns the number of handlers for topic
func (b *Bus) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
