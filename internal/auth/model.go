// File: internal/auth/model.go
package auth

import (
	"time"

	"fitcoach_backend/internal/common"

	"github.com/google/uuid"
)

// Credential is an account known to the auth collaborator.
type Credential struct {
	common.BaseModel
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string     `gorm:"type:varchar(255);not null"`
	LastSignInAt *time.Time `gorm:"column:last_sign_in_at"`
}

// TableName specifies the table name for GORM.
func (Credential) TableName() string {
	return "auth_credentials"
}

// SessionRecord is the persisted form of a Session. A client holds at most one.
type SessionRecord struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	Email       string     `gorm:"type:varchar(255);not null"`
	ClientID    string     `gorm:"type:varchar(64);not null;index"`
	ExpiresAt   time.Time  `gorm:"not null;index"`
	RefreshedAt *time.Time `gorm:"column:refreshed_at"`
	CreatedAt   time.Time  `gorm:"not null"`
}

// TableName specifies the table name for GORM.
func (SessionRecord) TableName() string {
	return "auth_sessions"
}

// issuedAt is the iat claim of the record's current access token.
func (r *SessionRecord) issuedAt() time.Time {
	if r.RefreshedAt != nil {
		return *r.RefreshedAt
	}
	return r.CreatedAt
}

// Session is an authenticated session as seen by the rest of the application:
// an opaque access token plus an expiry.
type Session struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// withoutToken returns a copy of s with the access token cleared.
func (s *Session) withoutToken() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.AccessToken = ""
	return &c
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SignInRequest is the payload for password sign-in.
type SignInRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

// SignUpRequest creates an account and, when UserType is given, its profile.
type SignUpRequest struct {
	Email          string   `json:"email" binding:"required,email"`
	Password       string   `json:"password" binding:"required"`
	Name           string   `json:"name" binding:"omitempty,max=255"`
	UserType       string   `json:"user_type" binding:"omitempty,oneof=trainer student"`
	Specialization *string  `json:"specialization,omitempty" binding:"omitempty,max=255"`
	Height         *float64 `json:"height,omitempty" binding:"omitempty,gt=0"`
	Weight         *float64 `json:"weight,omitempty" binding:"omitempty,gt=0"`
	Objective      *string  `json:"objective,omitempty"`
}

// SessionResponse is what the API returns after sign-in, sign-up and refresh.
type SessionResponse struct {
	Session   *Session `json:"session"`
	TokenType string   `json:"token_type"`
}

func newSessionResponse(s *Session) SessionResponse {
	return SessionResponse{Session: s, TokenType: common.AuthorizationTypeBearer}
}
