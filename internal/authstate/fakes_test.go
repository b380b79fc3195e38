package authstate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fitcoach_backend/internal/auth"
	"fitcoach_backend/internal/platform/metrics"
	"fitcoach_backend/internal/platform/pubsub"
	"fitcoach_backend/internal/profile"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testClient = "client-1"

type fakeSource struct {
	broker *pubsub.MemoryBroker
	pub    *auth.EventPublisher

	mu      sync.Mutex
	current *auth.Session
	err     error
	gates   map[string]chan struct{}
	reads   atomic.Int32
}

func newFakeSource(t *testing.T) *fakeSource {
	broker := pubsub.NewMemoryBroker()
	t.Cleanup(func() { _ = broker.Close() })
	return &fakeSource{broker: broker, pub: auth.NewEventPublisher(broker, zap.NewNop()), gates: map[string]chan struct{}{}}
}

func (f *fakeSource) CurrentSession(ctx context.Context, clientID string) (*auth.Session, error) {
	f.reads.Add(1)
	f.mu.Lock()
	gate := f.gates[clientID]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.err
}

// holdReads makes session reads for clientID block until the returned func is called.
func (f *fakeSource) holdReads(clientID string) func() {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[clientID] = gate
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (f *fakeSource) Subscribe(clientID string) (*auth.Subscription, error) {
	return auth.NewSubscription(f.broker.Subscribe(auth.Topic(clientID)), zap.NewNop()), nil
}

func (f *fakeSource) setCurrent(s *auth.Session, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current, f.err = s, err
}

func (f *fakeSource) emit(t *testing.T, kind auth.EventKind, s *auth.Session) {
	t.Helper()
	require.NoError(t, f.pub.Publish(context.Background(), kind, testClient, s))
}

type fakeFetcher struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*profile.Profile
	gates    map[uuid.UUID]chan struct{}
	err      error
	calls    atomic.Int32
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{profiles: map[uuid.UUID]*profile.Profile{}, gates: map[uuid.UUID]chan struct{}{}}
}

func (f *fakeFetcher) FetchProfile(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	f.calls.Add(1)
	f.mu.Lock()
	gate, p, err := f.gates[id], f.profiles[id], f.err
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p, err
}

func (f *fakeFetcher) put(p *profile.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.ID] = p
}

// hold makes fetches for id block until the returned func is called.
func (f *fakeFetcher) hold(id uuid.UUID) func() {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[id] = gate
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

type countingRecorder struct {
	metrics.Recorder
	stale     atomic.Int32
	bootstrap atomic.Int32
	active    atomic.Int32
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{Recorder: metrics.Nop()}
}

func (r *countingRecorder) RecordStaleProfileDiscarded() { r.stale.Add(1) }
func (r *countingRecorder) RecordBootstrapFailure()      { r.bootstrap.Add(1) }
func (r *countingRecorder) SetActiveAuthStates(n int)    { r.active.Store(int32(n)) }

func newSession(userID uuid.UUID) *auth.Session {
	return &auth.Session{
		ID:          uuid.New(),
		UserID:      userID,
		Email:       userID.String()[:8] + "@example.com",
		AccessToken: "token-" + userID.String(),
		ExpiresAt:   time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
}

func newProfile(userID uuid.UUID, userType string) *profile.Profile {
	return &profile.Profile{ID: userID, Name: "user " + userType, UserType: &userType}
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}
