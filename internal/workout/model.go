// File: internal/workout/model.go
package workout

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Exercise is one entry of a workout plan.
type Exercise struct {
	Name            string   `json:"name" binding:"required,max=255"`
	Description     string   `json:"description,omitempty"`
	Category        string   `json:"category,omitempty"`
	MuscleGroups    []string `json:"muscle_groups,omitempty"`
	Equipment       []string `json:"equipment,omitempty"`
	Sets            int      `json:"sets,omitempty" binding:"omitempty,gte=0"`
	Reps            int      `json:"reps,omitempty" binding:"omitempty,gte=0"`
	DurationSeconds int      `json:"duration_seconds,omitempty" binding:"omitempty,gte=0"`
	RestSeconds     int      `json:"rest_seconds,omitempty" binding:"omitempty,gte=0"`
	Weight          *float64 `json:"weight,omitempty" binding:"omitempty,gte=0"`
	Notes           string   `json:"notes,omitempty"`
}

// Exercises is stored as a JSON document column.
type Exercises []Exercise

// Value implements driver.Valuer.
func (e Exercises) Value() (driver.Value, error) {
	if e == nil {
		return "[]", nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal exercises: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (e *Exercises) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*e = Exercises{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported exercises column type %T", value)
	}
	return json.Unmarshal(raw, e)
}

// Workout is a plan a trainer assigns to one of their students.
type Workout struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID   uuid.UUID `gorm:"type:uuid;not null;index" json:"student_id"`
	TrainerID   uuid.UUID `gorm:"type:uuid;not null;index" json:"trainer_id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug        string    `gorm:"type:varchar(255);not null" json:"slug"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	Exercises   Exercises `gorm:"type:jsonb;not null" json:"exercises"`
	Active      bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Workout) TableName() string {
	return "workouts"
}

// --- DTOs ---

// CreateWorkoutRequest assigns a new workout to a student.
type CreateWorkoutRequest struct {
	StudentID   uuid.UUID  `json:"student_id" binding:"required"`
	Name        string     `json:"name" binding:"required,max=255"`
	Description *string    `json:"description,omitempty"`
	Exercises   []Exercise `json:"exercises" binding:"required,min=1,dive"`
}

// UpdateWorkoutRequest changes a workout. Nil fields are left alone.
type UpdateWorkoutRequest struct {
	Name        *string    `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	Description *string    `json:"description,omitempty"`
	Exercises   []Exercise `json:"exercises,omitempty" binding:"omitempty,min=1,dive"`
	Active      *bool      `json:"active,omitempty"`
}
