// File: internal/platform/pubsub/postgres.go
package pubsub

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// DefaultChannel is the Postgres NOTIFY channel used for all topics.
const DefaultChannel = "fitcoach_events"

// pg_notify payloads are capped at 8000 bytes by Postgres.
const maxNotifyPayload = 7999

type envelope struct {
	Topic   string `json:"t"`
	Payload []byte `json:"p"`
}

// PostgresBroker fans messages out across every service instance connected to the same database.
// Publishing goes through pg_notify; each instance LISTENs and re-delivers to its local subscribers.
type PostgresBroker struct {
	db       *sql.DB
	listener *pq.Listener
	local    *MemoryBroker
	channel  string
	logger   *zap.Logger

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewPostgresBroker connects a LISTEN session using dsn and publishes through db.
func NewPostgresBroker(dsn string, db *sql.DB, logger *zap.Logger, opts ...MemoryOption) (*PostgresBroker, error) {
	b := &PostgresBroker{
		db:      db,
		local:   NewMemoryBroker(opts...),
		channel: DefaultChannel,
		logger:  logger.Named("PostgresBroker"),
		done:    make(chan struct{}),
	}

	b.listener = pq.NewListener(dsn, 2*time.Second, time.Minute, b.onListenerEvent)
	if err := b.listener.Listen(b.channel); err != nil {
		_ = b.listener.Close()
		return nil, fmt.Errorf("listen on %s: %w", b.channel, err)
	}

	b.wg.Add(1)
	go b.run()
	b.logger.Info("Listening for events", zap.String("channel", b.channel))
	return b, nil
}

func (b *PostgresBroker) onListenerEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		b.logger.Debug("Listener connected")
	case pq.ListenerEventDisconnected:
		b.logger.Warn("Listener disconnected", zap.Error(err))
	case pq.ListenerEventReconnected:
		b.logger.Info("Listener reconnected")
	case pq.ListenerEventConnectionAttemptFailed:
		b.logger.Warn("Listener connection attempt failed", zap.Error(err))
	}
}

func (b *PostgresBroker) run() {
	defer b.wg.Done()
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-b.done:
			return
		case n, ok := <-b.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// pq sends nil after a reconnect; anything published meanwhile is gone.
				b.local.Broadcast(nil)
				continue
			}
			var env envelope
			if err := json.Unmarshal([]byte(n.Extra), &env); err != nil {
				b.logger.Warn("Dropping malformed notification", zap.Error(err))
				continue
			}
			_ = b.local.Publish(context.Background(), env.Topic, env.Payload)
		case <-ping.C:
			go func() {
				if err := b.listener.Ping(); err != nil {
					b.logger.Warn("Listener ping failed", zap.Error(err))
				}
			}()
		}
	}
}

// Publish sends payload through pg_notify. Local subscribers receive it when the notification
// comes back on the listener, which keeps ordering identical on every instance. Every LISTENing
// connection sees the payload, so callers must not put credentials in it.
func (b *PostgresBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	raw, err := json.Marshal(envelope{Topic: topic, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if len(raw) > maxNotifyPayload {
		return fmt.Errorf("pubsub: payload for %s is %d bytes, exceeds NOTIFY limit", topic, len(raw))
	}
	if _, err := b.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", b.channel, string(raw)); err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}
	return nil
}

// Subscribe registers a local subscriber.
func (b *PostgresBroker) Subscribe(topic string) *Subscription {
	return b.local.Subscribe(topic)
}

// Close stops listening and closes all local subscriptions.
func (b *PostgresBroker) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		err = b.listener.Close()
		b.wg.Wait()
		_ = b.local.Close()
	})
	return err
}
