package cart

import (
	"context"
	"strings"
	"sync"
	"time"

	"giftdrive-storefront/internal/domain"
	"giftdrive-storefront/internal/service/variant"
	"go.uber.org/zap"
)

type donorAPI interface {
	cartAPI
	FetchVariants(ctx context.Context, token, ryeProductID string, marketplace domain.Marketplace) ([]domain.Variant, error)
}

// Session is the per-donor state kept between requests.
type Session struct {
	Cart     *Store
	Variants *variant.Resolver
}

type sessionEntry struct {
	session   *Session
	expiresAt time.Time
}

// Registry keeps one Session per donor token and forgets idle donors.
type Registry struct {
	api    donorAPI
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]sessionEntry
}

func NewRegistry(api donorAPI, ttl time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Registry{
		api:      api,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]sessionEntry),
	}
}

// Get returns the donor's session, creating it when missing or expired.
// Every lookup extends the idle deadline.
func (r *Registry) Get(token string) *Session {
	token = strings.TrimSpace(token)
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[token]
	if !ok || now.After(entry.expiresAt) {
		entry.session = &Session{
			Cart:     NewStore(r.api, token, r.logger),
			Variants: variant.NewResolver(r.api, token, r.logger),
		}
	}
	entry.expiresAt = now.Add(r.ttl)
	r.sessions[token] = entry
	return entry.session
}

// Len returns the number of tracked donors, expired ones included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (r *Registry) Sweep() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for token, entry := range r.sessions {
		if now.After(entry.expiresAt) {
			delete(r.sessions, token)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("expired donor sessions removed", zap.Int("count", n))
			}
		}
	}
}
