package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/suteetoe/winehouse/internal/cart"
	"github.com/suteetoe/winehouse/internal/eventbus"
	"github.com/suteetoe/winehouse/internal/wishlist"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"github.com/suteetoe/winehouse/pkg/jwtutil"
	"go.uber.org/zap"
)

// ErrNoToken is returned by Resolve for an empty bearer token
var ErrNoToken = errors.New("no bearer token")

// Registry maps user keys to live sessions
type Registry struct {
	base     *apiclient.Client
	summary  SummaryFunc
	logger   *zap.Logger
	now      func() time.Time
	onChange func(n int)

	mu       sync.Mutex
	sessions map[string]*Session
	// confirmed holds, per user key, the digests of tokens the backend accepted
	confirmed map[string]map[string]struct{}
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithSizeObserver is called with the session count after every change
func WithSizeObserver(fn func(n int)) RegistryOption {
	return func(r *Registry) { r.onChange = fn }
}

// WithClock overrides the clock used for token expiry
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates a registry; base is copied per session with the
// session as token source.
func NewRegistry(base *apiclient.Client, summary SummaryFunc, logger *zap.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		base:     base,
		summary:  summary,
		logger:   logger,
		now:      time.Now,
		sessions:  make(map[string]*Session),
		confirmed: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the session of the token's user, creating it on first use.
// The claims are read without verifying the signature, so a token is only
// bound to a session after the backend has accepted it once. A confirmed newer
// token for the same user replaces the stored one.
func (r *Registry) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	claims, err := jwtutil.Resolve(token, r.now())
	if err != nil {
		return nil, err
	}
	key := claims.Key()
	digest := tokenDigest(token)

	if !r.isConfirmed(key, digest) {
		if _, err := r.summary(ctx, r.base.WithTokens(staticToken(token)), token); err != nil {
			r.logger.Warn("Backend did not confirm token", zap.String("user", key), zap.Error(err))
			return nil, fmt.Errorf("confirm token: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.confirmed[key] == nil {
		r.confirmed[key] = make(map[string]struct{})
	}
	r.confirmed[key][digest] = struct{}{}

	if s, ok := r.sessions[key]; ok {
		if s.Token() != token {
			s.setToken(token)
		}
		return s, nil
	}

	s := &Session{
		Key:     key,
		Bus:     eventbus.New(r.logger),
		token:   token,
		summary: r.summary,
		onClear: r.remove,
		logger:  r.logger.With(zap.String("user", key)),
	}
	s.api = r.base.WithTokens(s)
	s.Cart = cart.NewManager(s.api, s.Bus, s.logger)
	s.Wishlist = wishlist.NewManager(s.api, s.Bus, s.Cart, s.logger)
	s.Badges = NewBadges(s.Bus, s.cartCount, s.Wishlist.Count)

	r.sessions[key] = s
	r.logger.Debug("Session created", zap.String("user", key))
	r.changed()
	return s, nil
}

func (r *Registry) isConfirmed(key, digest string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.confirmed[key][digest]
	return ok
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// staticToken authenticates the one confirmation call for a token that is not
// bound to a session yet
type staticToken string

func (t staticToken) Token() string { return string(t) }
func (staticToken) Clear()          {}

// Lookup returns the live session for key
func (r *Registry) Lookup(key string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	return s, ok
}

// Len is the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.Key]; ok && cur == s {
		delete(r.sessions, s.Key)
		delete(r.confirmed, s.Key)
		r.changed()
	}
}

// changed must be called with mu held
func (r *Registry) changed() {
	if r.onChange != nil {
		r.onChange(len(r.sessions))
	}
}
