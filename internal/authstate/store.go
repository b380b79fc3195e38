// File: internal/authstate/store.go

// Package authstate holds the resolved auth state of each client: its current session and the
// profile fetched for it.
package authstate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fitcoach_backend/internal/auth"
	"fitcoach_backend/internal/platform/metrics"
	"fitcoach_backend/internal/profile"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrStopped is returned when starting a Store that was already stopped.
var ErrStopped = errors.New("authstate: store stopped")

// Status summarises a View.
type Status string

const (
	StatusSignedOut Status = "signed_out"
	// StatusResolving means a session is known and its profile fetch is in flight, or the
	// initial session read has not finished.
	StatusResolving     Status = "resolving"
	StatusResolved      Status = "resolved"
	StatusUnprovisioned Status = "unprovisioned"
)

// View is an immutable snapshot of a Store.
type View struct {
	Session    *auth.Session    `json:"session"`
	Profile    *profile.Profile `json:"profile"`
	Status     Status           `json:"status"`
	Generation uint64           `json:"generation"`
	// BootstrapFailed is set when the initial session read errored and the store fell back to
	// signed out. It clears on the next event.
	BootstrapFailed bool `json:"bootstrap_failed,omitempty"`
}

// SessionSource is the auth collaborator as seen by a Store.
type SessionSource interface {
	CurrentSession(ctx context.Context, clientID string) (*auth.Session, error)
	Subscribe(clientID string) (*auth.Subscription, error)
}

// ProfileFetcher returns (nil, nil) when the user has no profile.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, id uuid.UUID) (*profile.Profile, error)
}

// Store is the auth state of one client. Every mutation goes through commit (a session change)
// or settle (a profile result for the current generation).
type Store struct {
	clientID     string
	source       SessionSource
	profiles     ProfileFetcher
	fetchTimeout time.Duration
	metrics      metrics.Recorder
	logger       *zap.Logger

	mu      sync.Mutex
	view    View
	changed chan struct{}
	started bool
	stopped bool
	sub     *auth.Subscription
	cancel  context.CancelFunc
	done    chan struct{}

	stopOnce sync.Once
}

// NewStore creates an unstarted Store for clientID.
func NewStore(clientID string, source SessionSource, profiles ProfileFetcher, fetchTimeout time.Duration, rec metrics.Recorder, logger *zap.Logger) *Store {
	if rec == nil {
		rec = metrics.Nop()
	}
	return &Store{
		clientID:     clientID,
		source:       source,
		profiles:     profiles,
		fetchTimeout: fetchTimeout,
		metrics:      rec,
		logger:       logger.Named("AuthState").With(zap.String("clientID", clientID)),
		view:         View{Status: StatusResolving},
		changed:      make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// ClientID returns the client this store belongs to.
func (s *Store) ClientID() string { return s.clientID }

// Start subscribes, reads the current session once and commits it as INITIAL_SESSION, then
// applies subscription events in the order received until Stop. Subscribing comes first so no
// change made during the read is missed. A failing read is committed as signed out.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	sub, err := s.source.Subscribe(s.clientID)
	if err != nil {
		close(s.done)
		return fmt.Errorf("subscribe to auth events: %w", err)
	}
	runCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		cancel()
		sub.Close()
		close(s.done)
		return ErrStopped
	}
	s.sub = sub
	s.cancel = cancel
	s.mu.Unlock()

	sess, err := s.source.CurrentSession(ctx, s.clientID)
	bootstrapFailed := false
	if err != nil {
		s.logger.Warn("Initial session read failed, treating client as signed out", zap.Error(err))
		s.metrics.RecordBootstrapFailure()
		sess = nil
		bootstrapFailed = true
	}
	s.metrics.RecordAuthEvent(string(auth.EventInitialSession))
	s.commit(runCtx, sess, bootstrapFailed)

	go s.listen(runCtx, sub)
	return nil
}

func (s *Store) listen(ctx context.Context, sub *auth.Subscription) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			s.apply(ctx, ev)
		}
	}
}

// apply handles one event. Each event carries the client's session after the change, so the
// latest event always wins.
func (s *Store) apply(ctx context.Context, ev auth.Event) {
	s.metrics.RecordAuthEvent(string(ev.Kind))
	switch ev.Kind {
	case auth.EventResync:
		readCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
		sess, err := s.source.CurrentSession(readCtx, s.clientID)
		cancel()
		if err != nil {
			s.logger.Warn("Resync session read failed, treating client as signed out", zap.Error(err))
			sess = nil
		}
		s.commit(ctx, sess, false)
	case auth.EventSignedOut:
		s.commit(ctx, nil, false)
	default:
		s.commit(ctx, ev.Session, false)
	}
}

// commit replaces the session, clears the profile and starts a fetch tagged with the new
// generation.
func (s *Store) commit(ctx context.Context, sess *auth.Session, bootstrapFailed bool) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.view.Generation++
	gen := s.view.Generation
	s.view.Session = sess
	s.view.Profile = nil
	s.view.BootstrapFailed = bootstrapFailed
	if sess == nil {
		s.view.Status = StatusSignedOut
	} else {
		s.view.Status = StatusResolving
	}
	s.broadcastLocked()
	s.mu.Unlock()

	if sess != nil {
		go s.fetchProfile(ctx, gen, sess.UserID)
	}
}

func (s *Store) fetchProfile(ctx context.Context, gen uint64, userID uuid.UUID) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	start := time.Now()
	p, err := s.profiles.FetchProfile(fetchCtx, userID)
	outcome := "found"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
		p = nil
	case err != nil:
		outcome = "error"
		p = nil
	case p == nil:
		outcome = "not_found"
	}
	s.metrics.RecordProfileFetch(outcome, time.Since(start))
	if err != nil {
		s.logger.Warn("Profile fetch failed, session has no role", zap.String("userID", userID.String()),
			zap.String("outcome", outcome), zap.Error(err))
	}
	s.settle(gen, p)
}

// settle stores a fetch result if gen is still current.
func (s *Store) settle(gen uint64, p *profile.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if gen != s.view.Generation {
		s.metrics.RecordStaleProfileDiscarded()
		s.logger.Debug("Discarding stale profile result", zap.Uint64("generation", gen), zap.Uint64("current", s.view.Generation))
		return
	}
	if p == nil {
		s.view.Status = StatusUnprovisioned
	} else {
		s.view.Profile = p
		s.view.Status = StatusResolved
	}
	s.broadcastLocked()
}

func (s *Store) broadcastLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// View returns the current snapshot.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Changed returns a channel that is closed on the next state change.
func (s *Store) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// WaitFor blocks until pred holds for the current View or ctx ends. It always returns the
// latest View.
func (s *Store) WaitFor(ctx context.Context, pred func(View) bool) (View, error) {
	for {
		s.mu.Lock()
		v, ch := s.view, s.changed
		s.mu.Unlock()
		if pred(v) {
			return v, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return s.View(), ctx.Err()
		}
	}
}

// Await waits while the store is resolving.
func (s *Store) Await(ctx context.Context) (View, error) {
	return s.WaitFor(ctx, func(v View) bool { return v.Status != StatusResolving })
}

// Stop ends the listener and releases the subscription. Safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		started := s.started
		cancel, sub := s.cancel, s.sub
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if sub != nil {
			sub.Close()
		}
		if started {
			<-s.done
		}
		s.logger.Debug("Auth state stopped")
	})
}
