// File: internal/notification/service.go
package notification

import (
	"context"
	"errors"
	"strings"
	"time"

	"fitcoach_backend/internal/common"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const pushTimeout = 5 * time.Second

// PushMessage is what a device shows.
type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}

// PushSender delivers a message to device tokens and reports tokens that are no longer valid.
type PushSender interface {
	Send(ctx context.Context, tokens []string, msg PushMessage) (invalid []string, err error)
}

// NopSender drops every message. Used when push is not configured.
type NopSender struct{}

func (NopSender) Send(context.Context, []string, PushMessage) ([]string, error) { return nil, nil }

// Service defines notification operations.
type Service interface {
	CreateNotification(ctx context.Context, userID uuid.UUID, notifType NotificationType, title, message string, relatedID *uuid.UUID) (*Notification, error)
	GetNotificationsForUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Notification, *common.Pagination, error)
	MarkNotificationAsRead(ctx context.Context, notificationID, userID uuid.UUID) error
	MarkAllUserNotificationsAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	RegisterDevice(ctx context.Context, userID uuid.UUID, req RegisterDeviceRequest) error
	UnregisterDevice(ctx context.Context, userID uuid.UUID, token string) error
}

type service struct {
	repo   Repository
	push   PushSender
	logger *zap.Logger
}

// NewService creates a new notification service. push may be nil.
func NewService(repo Repository, push PushSender, logger *zap.Logger) Service {
	if push == nil {
		push = NopSender{}
	}
	return &service{repo: repo, push: push, logger: logger.Named("NotificationService")}
}

func (s *service) CreateNotification(ctx context.Context, userID uuid.UUID, notifType NotificationType, title, message string, relatedID *uuid.UUID) (*Notification, error) {
	if !notifType.Valid() {
		return nil, common.ErrBadRequest.WithDetails("Unknown notification type.")
	}
	n := &Notification{
		UserID:          userID,
		Type:            notifType,
		Title:           strings.TrimSpace(title),
		Message:         strings.TrimSpace(message),
		RelatedEntityID: relatedID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("Failed to create notification", zap.String("userID", userID.String()), zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not create notification.")
	}
	s.deliver(ctx, n)
	return n, nil
}

// deliver pushes n to the user's devices. Failures are logged only.
func (s *service) deliver(ctx context.Context, n *Notification) {
	tokens, err := s.repo.ListDeviceTokens(ctx, n.UserID)
	if err != nil {
		s.logger.Warn("Could not load device tokens", zap.String("userID", n.UserID.String()), zap.Error(err))
		return
	}
	if len(tokens) == 0 {
		return
	}
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()

	data := map[string]string{"notification_id": n.ID.String(), "type": string(n.Type)}
	if n.RelatedEntityID != nil {
		data["related_entity_id"] = n.RelatedEntityID.String()
	}
	invalid, err := s.push.Send(pushCtx, tokens, PushMessage{Title: n.Title, Body: n.Message, Data: data})
	if err != nil {
		s.logger.Warn("Push delivery failed", zap.String("notificationID", n.ID.String()), zap.Error(err))
	}
	if len(invalid) > 0 {
		if err := s.repo.DeleteTokens(ctx, invalid); err != nil {
			s.logger.Warn("Could not prune invalid device tokens", zap.Int("count", len(invalid)), zap.Error(err))
		}
	}
}

func (s *service) GetNotificationsForUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Notification, *common.Pagination, error) {
	notifications, pagination, err := s.repo.GetByUserID(ctx, userID, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to list notifications", zap.String("userID", userID.String()), zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve notifications.")
	}
	return notifications, pagination, nil
}

func (s *service) MarkNotificationAsRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	if err := s.repo.MarkAsRead(ctx, notificationID, userID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return err
		}
		s.logger.Error("Failed to mark notification as read", zap.String("notificationID", notificationID.String()), zap.Error(err))
		return common.ErrInternalServer.WithDetails("Could not update notification.")
	}
	return nil
}

func (s *service) MarkAllUserNotificationsAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.MarkAllAsRead(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to mark all notifications as read", zap.String("userID", userID.String()), zap.Error(err))
		return 0, common.ErrInternalServer.WithDetails("Could not update notifications.")
	}
	return n, nil
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, common.ErrInternalServer.WithDetails("Could not count notifications.")
	}
	return n, nil
}

func (s *service) RegisterDevice(ctx context.Context, userID uuid.UUID, req RegisterDeviceRequest) error {
	token := &DeviceToken{UserID: userID, Token: strings.TrimSpace(req.Token), Platform: req.Platform}
	if err := s.repo.SaveDeviceToken(ctx, token); err != nil {
		s.logger.Error("Failed to register device", zap.String("userID", userID.String()), zap.Error(err))
		return common.ErrInternalServer.WithDetails("Could not register device.")
	}
	return nil
}

func (s *service) UnregisterDevice(ctx context.Context, userID uuid.UUID, token string) error {
	if err := s.repo.DeleteDeviceToken(ctx, userID, strings.TrimSpace(token)); err != nil {
		return common.ErrInternalServer.WithDetails("Could not unregister device.")
	}
	return nil
}
