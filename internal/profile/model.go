// File: internal/profile/model.go
package profile

import (
	"time"

	"fitcoach_backend/internal/role"

	"github.com/google/uuid"
)

// Profile is the application's record of a user. Its ID equals the auth user id.
// A profile row may be missing right after sign-up.
type Profile struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
	Name           string     `gorm:"type:varchar(255);not null" json:"name"`
	Email          string     `gorm:"type:varchar(255);not null;index" json:"email"`
	UserType       *string    `gorm:"type:varchar(20)" json:"user_type"`
	Specialization *string    `gorm:"type:varchar(255)" json:"specialization,omitempty"`
	TrainerID      *uuid.UUID `gorm:"type:uuid;index" json:"trainer_id,omitempty"`
	Height         *float64   `json:"height,omitempty"`
	Weight         *float64   `json:"weight,omitempty"`
	Objective      *string    `gorm:"type:text" json:"objective,omitempty"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	IsFirstLogin   bool       `gorm:"not null;default:false" json:"is_first_login"`
	AvatarURL      *string    `gorm:"type:text" json:"avatar_url,omitempty"`
}

// TableName specifies the table name for the Profile model.
func (Profile) TableName() string {
	return "profiles"
}

// GetUserType satisfies role.Subject; safe on a nil profile.
func (p *Profile) GetUserType() *string {
	if p == nil {
		return nil
	}
	return p.UserType
}

// Role is shorthand for role.Of(p).
func (p *Profile) Role() role.Role {
	return role.Of(p)
}

// CoachedBy reports whether trainerID is this student's trainer.
func (p *Profile) CoachedBy(trainerID uuid.UUID) bool {
	return p != nil && p.TrainerID != nil && *p.TrainerID == trainerID
}

// --- DTOs ---

// ProvisionInput creates the profile of an already authenticated user.
type ProvisionInput struct {
	Name           string   `json:"name" binding:"required,max=255"`
	UserType       string   `json:"user_type" binding:"required,oneof=trainer student"`
	Specialization *string  `json:"specialization,omitempty" binding:"omitempty,max=255"`
	Height         *float64 `json:"height,omitempty" binding:"omitempty,gt=0"`
	Weight         *float64 `json:"weight,omitempty" binding:"omitempty,gt=0"`
	Objective      *string  `json:"objective,omitempty"`
}

// UpdateProfileRequest changes editable fields. Nil fields are left alone.
type UpdateProfileRequest struct {
	Name           *string  `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	Specialization *string  `json:"specialization,omitempty" binding:"omitempty,max=255"`
	Height         *float64 `json:"height,omitempty" binding:"omitempty,gt=0"`
	Weight         *float64 `json:"weight,omitempty" binding:"omitempty,gt=0"`
	Objective      *string  `json:"objective,omitempty"`
}

// AddStudentRequest is a trainer enrolling a student. When Password is empty a temporary one
// is generated and returned once.
type AddStudentRequest struct {
	Name      string     `json:"name" binding:"required,max=255"`
	Email     string     `json:"email" binding:"required,email"`
	Password  string     `json:"password,omitempty"`
	Height    *float64   `json:"height,omitempty" binding:"omitempty,gt=0"`
	Weight    *float64   `json:"weight,omitempty" binding:"omitempty,gt=0"`
	Objective *string    `json:"objective,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
}

// AddStudentResponse carries the new profile and, if generated, the temporary password.
type AddStudentResponse struct {
	Student           *Profile `json:"student"`
	TemporaryPassword string   `json:"temporary_password,omitempty"`
}
