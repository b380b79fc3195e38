// File: internal/platform/pubsub/memory.go

// Package pubsub carries opaque messages between publishers and topic subscribers.
package pubsub

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when publishing on a closed broker.
var ErrClosed = errors.New("pubsub: broker closed")

// DefaultBufferSize is the per-subscriber queue length.
const DefaultBufferSize = 16

// Broker publishes payloads to every current subscriber of a topic.
type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(topic string) *Subscription
	Close() error
}

// Subscription receives the messages of one topic. A nil payload means the transport lost
// messages (for example after a reconnect) and the subscriber should re-read its source of truth.
type Subscription struct {
	topic  string
	ch     chan []byte
	mu     sync.Mutex
	closed bool
	once   sync.Once
	remove func(*Subscription)
	onDrop func(topic string)
}

// C is the delivery channel. It is closed by Close.
func (s *Subscription) C() <-chan []byte { return s.ch }

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string { return s.topic }

// Close unsubscribes. Safe to call any number of times from any goroutine.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.remove != nil {
			s.remove(s)
		}
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}

// deliver enqueues payload. When the buffer is full the oldest queued message is dropped,
// so the most recent message always gets through.
func (s *Subscription) deliver(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- payload:
			return
		default:
		}
		select {
		case <-s.ch:
			if s.onDrop != nil {
				s.onDrop(s.topic)
			}
		default:
		}
	}
}

// MemoryBroker is an in-process Broker.
type MemoryBroker struct {
	mu         sync.RWMutex
	subs       map[string]map[*Subscription]struct{}
	bufferSize int
	onDrop     func(topic string)
	closed     bool
}

// MemoryOption configures a MemoryBroker.
type MemoryOption func(*MemoryBroker)

// WithBufferSize sets the per-subscriber queue length.
func WithBufferSize(n int) MemoryOption {
	return func(b *MemoryBroker) {
		if n > 0 {
			b.bufferSize = n
		}
	}
}

// WithDropHook is called whenever a queued message is replaced by a newer one.
func WithDropHook(fn func(topic string)) MemoryOption {
	return func(b *MemoryBroker) { b.onDrop = fn }
}

// NewMemoryBroker creates an empty in-process broker.
func NewMemoryBroker(opts ...MemoryOption) *MemoryBroker {
	b := &MemoryBroker{
		subs:       make(map[string]map[*Subscription]struct{}),
		bufferSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers payload to the topic's current subscribers. It never blocks on a slow subscriber.
func (b *MemoryBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	targets := make([]*Subscription, 0, len(b.subs[topic]))
	for s := range b.subs[topic] {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		s.deliver(payload)
	}
	return nil
}

// Broadcast delivers payload on every topic that has subscribers.
func (b *MemoryBroker) Broadcast(payload []byte) {
	b.mu.RLock()
	var targets []*Subscription
	for _, set := range b.subs {
		for s := range set {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		s.deliver(payload)
	}
}

// Subscribe registers a new subscriber on topic. On a closed broker the returned
// subscription is already closed.
func (b *MemoryBroker) Subscribe(topic string) *Subscription {
	s := &Subscription{
		topic:  topic,
		ch:     make(chan []byte, b.bufferSize),
		remove: b.remove,
		onDrop: b.onDrop,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		s.Close()
		return s
	}
	set, ok := b.subs[topic]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[topic] = set
	}
	set[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// SubscriberCount reports how many live subscriptions topic has.
func (b *MemoryBroker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func (b *MemoryBroker) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.subs[s.topic]
	delete(set, s)
	if len(set) == 0 {
		delete(b.subs, s.topic)
	}
}

// Close closes every subscription and rejects further publishes.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var all []*Subscription
	for _, set := range b.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	b.subs = make(map[string]map[*Subscription]struct{})
	b.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
	return nil
}
