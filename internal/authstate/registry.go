// File: internal/authstate/registry.go
package authstate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"fitcoach_backend/internal/config"
	"fitcoach_backend/internal/platform/metrics"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// ErrNoClientID is returned for a blank client id.
var ErrNoClientID = errors.New("authstate: client id is required")

// Registry owns one started Store per client id. Stores idle for longer than the configured
// TTL are evicted and stopped.
type Registry struct {
	source       SessionSource
	profiles     ProfileFetcher
	fetchTimeout time.Duration
	metrics      metrics.Recorder
	logger       *zap.Logger

	// stores tracks idle deadlines. live holds every store not yet stopped, including
	// expired ones the cleanup timer has not reached.
	stores *cache.Cache
	mu     sync.Mutex
	live   map[string]*entry
	closed bool
}

// entry starts its store at most once. Concurrent callers for the same client wait on once.
type entry struct {
	store *Store
	once  sync.Once
	err   error
}

// NewRegistry creates a Registry using AUTH_STATE_IDLE_MINUTES and AUTH_PROFILE_FETCH_TIMEOUT_MS.
func NewRegistry(source SessionSource, profiles ProfileFetcher, cfg *config.Config, rec metrics.Recorder, logger *zap.Logger) *Registry {
	idle := cfg.AuthStateIdleTTL
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return newRegistry(source, profiles, cfg, rec, logger, idle, idle/2)
}

// newRegistry runs the cache cleanup every cleanup interval; zero disables it.
func newRegistry(source SessionSource, profiles ProfileFetcher, cfg *config.Config, rec metrics.Recorder, logger *zap.Logger, idle, cleanup time.Duration) *Registry {
	if rec == nil {
		rec = metrics.Nop()
	}
	r := &Registry{
		source:       source,
		profiles:     profiles,
		fetchTimeout: cfg.ProfileFetchTimeout,
		metrics:      rec,
		logger:       logger.Named("AuthStateRegistry"),
		stores:       cache.New(idle, cleanup),
		live:         map[string]*entry{},
	}
	r.stores.OnEvicted(func(clientID string, v interface{}) {
		if e, ok := v.(*entry); ok {
			r.release(clientID, e)
			r.logger.Debug("Auth state evicted", zap.String("clientID", clientID))
		}
	})
	return r
}

// Get returns the client's Store, creating and starting it on first use. Every call extends
// the store's idle deadline. A slow first read for one client does not hold up other clients.
func (r *Registry) Get(ctx context.Context, clientID string) (*Store, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, ErrNoClientID
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrStopped
	}
	var expired *entry
	e := r.current(clientID)
	if e == nil {
		// The cache reports an expired entry as missing before its cleanup runs.
		expired = r.live[clientID]
		e = &entry{store: NewStore(clientID, r.source, r.profiles, r.fetchTimeout, r.metrics, r.logger)}
		r.live[clientID] = e
	}
	// Set does not fire OnEvicted; it only resets the expiry.
	r.stores.Set(clientID, e, cache.DefaultExpiration)
	n := len(r.live)
	r.mu.Unlock()

	if expired != nil {
		expired.store.Stop()
	}
	r.metrics.SetActiveAuthStates(n)

	e.once.Do(func() {
		bootCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout)
		defer cancel()
		e.err = e.store.Start(bootCtx)
	})
	if e.err != nil {
		// The failed entry stays in the cache until it expires or is replaced; current
		// ignores it once live no longer points at it.
		r.release(clientID, e)
		return nil, e.err
	}
	return e.store, nil
}

// current returns the unexpired entry for clientID. Callers hold r.mu.
func (r *Registry) current(clientID string) *entry {
	v, ok := r.stores.Get(clientID)
	if !ok {
		return nil
	}
	e := v.(*entry)
	if r.live[clientID] != e {
		return nil
	}
	return e
}

// release forgets e if it is still the client's entry and stops its store.
func (r *Registry) release(clientID string, e *entry) {
	r.mu.Lock()
	if r.live[clientID] == e {
		delete(r.live, clientID)
	}
	n := len(r.live)
	r.mu.Unlock()

	e.store.Stop()
	r.metrics.SetActiveAuthStates(n)
}

// Peek returns the client's Store without creating one.
func (r *Registry) Peek(clientID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.current(clientID)
	if e == nil {
		return nil, false
	}
	return e.store, true
}

// Remove stops and forgets the client's Store.
func (r *Registry) Remove(clientID string) {
	r.mu.Lock()
	e := r.live[clientID]
	r.mu.Unlock()

	r.stores.Delete(clientID)
	if e != nil {
		r.release(clientID, e)
	}
}

// Len is the number of stores not yet stopped.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Close stops every Store, expired or not. Get fails with ErrStopped afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.live
	r.live = map[string]*entry{}
	r.closed = true
	r.mu.Unlock()

	// Flush drops the cache without calling OnEvicted.
	r.stores.Flush()
	for _, e := range entries {
		e.store.Stop()
	}
	r.metrics.SetActiveAuthStates(0)
}
