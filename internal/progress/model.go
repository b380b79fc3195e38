// File: internal/progress/model.go
package progress

import (
	"time"

	"github.com/google/uuid"
)

// Progress is a student's log entry for one session of a workout.
type Progress struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkoutID       uuid.UUID `gorm:"type:uuid;not null;index" json:"workout_id"`
	StudentID       uuid.UUID `gorm:"type:uuid;not null;index" json:"student_id"`
	Date            time.Time `gorm:"not null;index" json:"date"`
	Completed       bool      `gorm:"not null;default:false" json:"completed"`
	Notes           *string   `gorm:"type:text" json:"notes,omitempty"`
	DifficultyLevel *int      `json:"difficulty_level,omitempty"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Progress) TableName() string {
	return "progress"
}

// BodyMeasurement is one set of body measurements in centimetres and kilograms.
type BodyMeasurement struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID  uuid.UUID `gorm:"type:uuid;not null;index" json:"student_id"`
	RecordedBy uuid.UUID `gorm:"type:uuid;not null" json:"recorded_by"`
	Weight     *float64  `json:"weight,omitempty"`
	Waist      *float64  `json:"waist,omitempty"`
	Hip        *float64  `json:"hip,omitempty"`
	Chest      *float64  `json:"chest,omitempty"`
	Arm        *float64  `json:"arm,omitempty"`
	Thigh      *float64  `json:"thigh,omitempty"`
	RecordedAt time.Time `gorm:"not null;index" json:"recorded_at"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (BodyMeasurement) TableName() string {
	return "body_measurements"
}

// --- DTOs ---

// RecordProgressRequest logs a workout session. Date defaults to now.
type RecordProgressRequest struct {
	WorkoutID       uuid.UUID  `json:"workout_id" binding:"required"`
	Date            *time.Time `json:"date,omitempty"`
	Completed       bool       `json:"completed"`
	Notes           *string    `json:"notes,omitempty" binding:"omitempty,max=2000"`
	DifficultyLevel *int       `json:"difficulty_level,omitempty" binding:"omitempty,min=1,max=5"`
	DurationMinutes *int       `json:"duration_minutes,omitempty" binding:"omitempty,min=0,max=1440"`
}

// UpdateProgressRequest changes a log entry. Nil fields are left alone.
type UpdateProgressRequest struct {
	Completed       *bool   `json:"completed,omitempty"`
	Notes           *string `json:"notes,omitempty" binding:"omitempty,max=2000"`
	DifficultyLevel *int    `json:"difficulty_level,omitempty" binding:"omitempty,min=1,max=5"`
	DurationMinutes *int    `json:"duration_minutes,omitempty" binding:"omitempty,min=0,max=1440"`
}

// RecordMeasurementRequest needs at least one measurement.
type RecordMeasurementRequest struct {
	Weight     *float64   `json:"weight,omitempty" binding:"omitempty,gt=0"`
	Waist      *float64   `json:"waist,omitempty" binding:"omitempty,gt=0"`
	Hip        *float64   `json:"hip,omitempty" binding:"omitempty,gt=0"`
	Chest      *float64   `json:"chest,omitempty" binding:"omitempty,gt=0"`
	Arm        *float64   `json:"arm,omitempty" binding:"omitempty,gt=0"`
	Thigh      *float64   `json:"thigh,omitempty" binding:"omitempty,gt=0"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

func (r RecordMeasurementRequest) empty() bool {
	return r.Weight == nil && r.Waist == nil && r.Hip == nil && r.Chest == nil && r.Arm == nil && r.Thigh == nil
}
