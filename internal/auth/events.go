// File: internal/auth/events.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"fitcoach_backend/internal/platform/pubsub"

	"go.uber.org/zap"
)

// EventKind names an auth state change.
type EventKind string

const (
	EventInitialSession EventKind = "INITIAL_SESSION"
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
	EventUserUpdated    EventKind = "USER_UPDATED"
	// EventResync is raised locally when the transport may have lost events. It carries no
	// session; the receiver should re-read CurrentSession.
	EventResync EventKind = "RESYNC"
)

// Event is one auth state change for a client. Session is nil when signed out and never
// carries the access token; holders of a token get it from the call that issued it.
type Event struct {
	Kind     EventKind `json:"kind"`
	ClientID string    `json:"client_id"`
	Session  *Session  `json:"session,omitempty"`
	At       time.Time `json:"at"`
}

// Topic is the pubsub topic carrying a client's events.
func Topic(clientID string) string {
	return "auth:" + clientID
}

// Subscription delivers a client's auth events in publish order.
type Subscription struct {
	raw    *pubsub.Subscription
	events chan Event
	done   chan struct{}
	once   sync.Once
}

// NewSubscription decodes the events arriving on raw. A nil payload is delivered as EventResync.
func NewSubscription(raw *pubsub.Subscription, logger *zap.Logger) *Subscription {
	s := &Subscription{
		raw:    raw,
		events: make(chan Event),
		done:   make(chan struct{}),
	}
	go s.pump(logger)
	return s
}

func (s *Subscription) pump(logger *zap.Logger) {
	defer close(s.events)
	for payload := range s.raw.C() {
		var ev Event
		if payload == nil {
			ev = Event{Kind: EventResync, At: time.Now()}
		} else if err := json.Unmarshal(payload, &ev); err != nil {
			logger.Warn("Dropping undecodable auth event", zap.String("topic", s.raw.Topic()), zap.Error(err))
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

// Events is closed once the subscription is closed.
func (s *Subscription) Events() <-chan Event { return s.events }

// Close tears the subscription down exactly once; further calls are no-ops.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.raw.Close()
	})
}

// EventPublisher encodes events onto the broker.
type EventPublisher struct {
	broker pubsub.Broker
	logger *zap.Logger
}

// NewEventPublisher creates an EventPublisher on broker.
func NewEventPublisher(broker pubsub.Broker, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{broker: broker, logger: logger}
}

// Publish emits one event on the client's topic. The session goes out without its access token.
func (p *EventPublisher) Publish(ctx context.Context, kind EventKind, clientID string, session *Session) error {
	ev := Event{Kind: kind, ClientID: clientID, Session: session.withoutToken(), At: time.Now().UTC()}
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", kind, err)
	}
	if err := p.broker.Publish(ctx, Topic(clientID), raw); err != nil {
		p.logger.Error("Failed to publish auth event", zap.String("kind", string(kind)), zap.String("clientID", clientID), zap.Error(err))
		return fmt.Errorf("publish %s event: %w", kind, err)
	}
	return nil
}
