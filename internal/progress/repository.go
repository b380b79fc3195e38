// File: internal/progress/repository.go
package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines progress and measurement data operations.
type Repository interface {
	Create(ctx context.Context, p *Progress) error
	FindByID(ctx context.Context, id uuid.UUID) (*Progress, error)
	Update(ctx context.Context, p *Progress) error
	ListByWorkout(ctx context.Context, workoutID uuid.UUID) ([]Progress, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]Progress, error)

	CreateMeasurement(ctx context.Context, m *BodyMeasurement) error
	ListMeasurements(ctx context.Context, studentID uuid.UUID) ([]BodyMeasurement, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM progress repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, p *Progress) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create progress entry: %w", err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Progress, error) {
	var p Progress
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to find progress entry %s: %w", id, err)
	}
	return &p, nil
}

func (r *gormRepository) Update(ctx context.Context, p *Progress) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *gormRepository) ListByWorkout(ctx context.Context, workoutID uuid.UUID) ([]Progress, error) {
	var entries []Progress
	err := r.db.WithContext(ctx).Where("workout_id = ?", workoutID).Order("date DESC").Find(&entries).Error
	return entries, err
}

func (r *gormRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]Progress, error) {
	var entries []Progress
	err := r.db.WithContext(ctx).Where("student_id = ?", studentID).Order("date DESC").Find(&entries).Error
	return entries, err
}

func (r *gormRepository) CreateMeasurement(ctx context.Context, m *BodyMeasurement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create body measurement: %w", err)
	}
	return nil
}

func (r *gormRepository) ListMeasurements(ctx context.Context, studentID uuid.UUID) ([]BodyMeasurement, error) {
	var ms []BodyMeasurement
	err := r.db.WithContext(ctx).Where("student_id = ?", studentID).Order("recorded_at DESC").Find(&ms).Error
	return ms, err
}
