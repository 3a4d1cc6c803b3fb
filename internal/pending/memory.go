package pending

import (
	"context"
	"sync"
	"time"
)

type key struct {
	user string
	tx   int
}

// MemoryStore keeps markers in process memory
type MemoryStore struct {
	mu      sync.Mutex
	markers map[key]Marker
	now     func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		markers: make(map[key]Marker),
		now:     time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, m Marker) error {
	if err := m.validate(); err != nil {
		return err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}
	s.mu.Lock()
	s.markers[key{m.UserKey, m.TransactionID}] = m
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Latest(_ context.Context, userKey string) (Marker, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest Marker
	ok := false
	for k, m := range s.markers {
		if k.user != userKey {
			continue
		}
		if !ok || m.CreatedAt.After(latest.CreatedAt) {
			latest, ok = m, true
		}
	}
	return latest, ok, nil
}

func (s *MemoryStore) Find(_ context.Context, userKey string, transactionID int) (Marker, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markers[key{userKey, transactionID}]
	return m, ok, nil
}

func (s *MemoryStore) Clear(_ context.Context, userKey string, transactionID int) error {
	s.mu.Lock()
	delete(s.markers, key{userKey, transactionID})
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Purge(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, m := range s.markers {
		if m.CreatedAt.Before(before) {
			delete(s.markers, k)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.markers)), nil
}
