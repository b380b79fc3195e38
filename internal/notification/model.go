// File: internal/notification/model.go
package notification

import (
	"time"

	"fitcoach_backend/internal/common"

	"github.com/google/uuid"
)

// NotificationType defines the type of notification.
type NotificationType string

const (
	// TypeWorkout tells a student a workout was assigned or changed.
	TypeWorkout NotificationType = "workout"
	// TypeProgress tells a trainer a student logged progress.
	TypeProgress   NotificationType = "progress"
	TypeMotivation NotificationType = "motivation"
	TypeSystem     NotificationType = "system"
)

// Valid reports whether t is a known type.
func (t NotificationType) Valid() bool {
	switch t {
	case TypeWorkout, TypeProgress, TypeMotivation, TypeSystem:
		return true
	}
	return false
}

// Notification represents a user notification.
type Notification struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID        `gorm:"type:uuid;not null;index:idx_notification_user_status" json:"user_id"`
	Type            NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	Title           string           `gorm:"type:varchar(255);not null" json:"title"`
	Message         string           `gorm:"type:text;not null" json:"message"`
	RelatedEntityID *uuid.UUID       `gorm:"type:uuid" json:"related_entity_id,omitempty"`
	IsRead          bool             `gorm:"not null;default:false;index:idx_notification_user_status" json:"is_read"`
	CreatedAt       time.Time        `gorm:"not null;index:idx_notification_user_status" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Notification) TableName() string {
	return "notifications"
}

// DeviceToken is a push registration for one of a user's devices.
type DeviceToken struct {
	common.BaseModel
	UserID   uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Token    string    `gorm:"type:text;not null;uniqueIndex" json:"token"`
	Platform string    `gorm:"type:varchar(16);not null" json:"platform"`
}

// TableName specifies the table name for GORM.
func (DeviceToken) TableName() string {
	return "device_tokens"
}

// RegisterDeviceRequest registers a push token for the current user.
type RegisterDeviceRequest struct {
	Token    string `json:"token" binding:"required,max=4096"`
	Platform string `json:"platform" binding:"required,oneof=ios android web"`
}

// CreateNotificationRequest lets a trainer send a motivation message to a student.
type CreateNotificationRequest struct {
	UserID  uuid.UUID `json:"user_id" binding:"required"`
	Title   string    `json:"title" binding:"required,max=255"`
	Message string    `json:"message" binding:"required,max=2000"`
}
