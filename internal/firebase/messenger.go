// File: internal/firebase/messenger.go

// Package firebase delivers push notifications through Firebase Cloud Messaging.
package firebase

import (
	"context"
	"fmt"
	"path/filepath"

	"fitcoach_backend/internal/config"
	"fitcoach_backend/internal/notification"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// FCM accepts at most this many tokens per multicast call.
const maxMulticastTokens = 500

// multicastClient is the part of *messaging.Client the Messenger uses.
type multicastClient interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Messenger implements notification.PushSender over FCM.
type Messenger struct {
	client multicastClient
	logger *zap.Logger
}

var _ notification.PushSender = (*Messenger)(nil)

// NewMessenger initializes the Firebase Admin SDK from the configured service account.
func NewMessenger(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Messenger, error) {
	if cfg.FirebaseCredentialsFile == "" {
		return nil, fmt.Errorf("firebase credentials file is required")
	}
	cleanPath := filepath.Clean(cfg.FirebaseCredentialsFile)
	opt := option.WithCredentialsFile(cleanPath)

	var conf *firebase.Config
	if cfg.FirebaseProjectID != "" {
		conf = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}
	app, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err), zap.String("keyPath", cleanPath))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		logger.Error("Failed to get Firebase Messaging client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firebase Messaging client: %w", err)
	}

	logger.Info("Firebase Messaging initialized")
	return newMessenger(client, logger), nil
}

func newMessenger(client multicastClient, logger *zap.Logger) *Messenger {
	return &Messenger{client: client, logger: logger.Named("FirebaseMessenger")}
}

// Send delivers msg to every token. Tokens FCM reports as unregistered or malformed are returned
// so the caller can forget them.
func (m *Messenger) Send(ctx context.Context, tokens []string, msg notification.PushMessage) ([]string, error) {
	var invalid []string
	for start := 0; start < len(tokens); start += maxMulticastTokens {
		end := min(start+maxMulticastTokens, len(tokens))
		batch := tokens[start:end]

		res, err := m.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens:       batch,
			Notification: &messaging.Notification{Title: msg.Title, Body: msg.Body},
			Data:         msg.Data,
		})
		if err != nil {
			return invalid, fmt.Errorf("send multicast: %w", err)
		}
		for i, r := range res.Responses {
			if r.Success || r.Error == nil {
				continue
			}
			if messaging.IsUnregistered(r.Error) || messaging.IsInvalidArgument(r.Error) {
				invalid = append(invalid, batch[i])
				continue
			}
			m.logger.Debug("Push to device failed", zap.Error(r.Error))
		}
		m.logger.Debug("Push batch sent", zap.Int("success", res.SuccessCount), zap.Int("failure", res.FailureCount))
	}
	return invalid, nil
}
