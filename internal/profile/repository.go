// File: internal/profile/repository.go
package profile

import (
	"context"
	"errors"

	"fitcoach_backend/internal/common"
	"fitcoach_backend/internal/role"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for profile data operations.
type Repository interface {
	// FindByID returns (nil, nil) when the profile does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	Create(ctx context.Context, p *Profile) error
	Update(ctx context.Context, p *Profile) error
	ListStudents(ctx context.Context, trainerID uuid.UUID) ([]Profile, error)
	ClearTrainer(ctx context.Context, studentID, trainerID uuid.UUID) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM profile repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var p Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) Create(ctx context.Context, p *Profile) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if common.IsUniqueViolation(err) {
			return ErrProfileExists
		}
		return err
	}
	return nil
}

func (r *gormRepository) Update(ctx context.Context, p *Profile) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *gormRepository) ListStudents(ctx context.Context, trainerID uuid.UUID) ([]Profile, error) {
	var students []Profile
	err := r.db.WithContext(ctx).
		Where("trainer_id = ? AND user_type = ?", trainerID, string(role.Student)).
		Order("name ASC").
		Find(&students).Error
	return students, err
}

func (r *gormRepository) ClearTrainer(ctx context.Context, studentID, trainerID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Profile{}).
		Where("id = ? AND trainer_id = ?", studentID, trainerID).
		Update("trainer_id", nil)
	return res.RowsAffected > 0, res.Error
}
