// File: internal/workout/repository.go
package workout

import (
	"context"
	"fmt"
	"strings"

	"fitcoach_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines workout data operations.
type Repository interface {
	Create(ctx context.Context, w *Workout) error
	FindByID(ctx context.Context, id uuid.UUID) (*Workout, error)
	Update(ctx context.Context, w *Workout) error
	ListByStudent(ctx context.Context, studentID uuid.UUID, includeInactive bool) ([]Workout, error)
	ListByTrainer(ctx context.Context, trainerID uuid.UUID, page, pageSize int) ([]Workout, *common.Pagination, error)
	FindByIDs(ctx context.Context, trainerID uuid.UUID, ids []uuid.UUID) ([]Workout, error)
	SearchByName(ctx context.Context, trainerID uuid.UUID, q string, limit int) ([]Workout, error)
	// FindActiveBatch pages through every active workout in id order, for bulk reindexing.
	FindActiveBatch(ctx context.Context, offset, limit int) ([]Workout, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM workout repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, w *Workout) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(w).Error; err != nil {
		return fmt.Errorf("failed to create workout: %w", err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Workout, error) {
	var w Workout
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		if common.IsNotFound(err) {
			return nil, ErrWorkoutNotFound
		}
		return nil, fmt.Errorf("failed to find workout %s: %w", id, err)
	}
	return &w, nil
}

func (r *gormRepository) Update(ctx context.Context, w *Workout) error {
	if err := r.db.WithContext(ctx).Save(w).Error; err != nil {
		return fmt.Errorf("failed to update workout %s: %w", w.ID, err)
	}
	return nil
}

func (r *gormRepository) ListByStudent(ctx context.Context, studentID uuid.UUID, includeInactive bool) ([]Workout, error) {
	var workouts []Workout
	q := r.db.WithContext(ctx).Where("student_id = ?", studentID)
	if !includeInactive {
		q = q.Where("active = ?", true)
	}
	err := q.Order("created_at DESC").Find(&workouts).Error
	return workouts, err
}

func (r *gormRepository) ListByTrainer(ctx context.Context, trainerID uuid.UUID, page, pageSize int) ([]Workout, *common.Pagination, error) {
	var (
		workouts []Workout
		total    int64
	)
	base := r.db.WithContext(ctx).Model(&Workout{}).Where("trainer_id = ? AND active = ?", trainerID, true)
	if err := base.Count(&total).Error; err != nil {
		return nil, nil, fmt.Errorf("counting workouts for trainer %s failed: %w", trainerID, err)
	}
	err := r.db.WithContext(ctx).
		Where("trainer_id = ? AND active = ?", trainerID, true).
		Order("created_at DESC").
		Limit(pageSize).
		Offset(common.Offset(page, pageSize)).
		Find(&workouts).Error
	if err != nil {
		return nil, nil, fmt.Errorf("fetching workouts for trainer %s failed: %w", trainerID, err)
	}
	return workouts, common.NewPagination(total, page, pageSize), nil
}

// FindByIDs keeps the order of ids and silently skips ids not owned by trainerID.
func (r *gormRepository) FindByIDs(ctx context.Context, trainerID uuid.UUID, ids []uuid.UUID) ([]Workout, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []Workout
	err := r.db.WithContext(ctx).
		Where("trainer_id = ? AND active = ? AND id IN ?", trainerID, true, ids).
		Find(&found).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]Workout, len(found))
	for _, w := range found {
		byID[w.ID] = w
	}
	out := make([]Workout, 0, len(found))
	for _, id := range ids {
		if w, ok := byID[id]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *gormRepository) SearchByName(ctx context.Context, trainerID uuid.UUID, q string, limit int) ([]Workout, error) {
	var workouts []Workout
	pattern := "%" + strings.ToLower(q) + "%"
	err := r.db.WithContext(ctx).
		Where("trainer_id = ? AND active = ? AND (LOWER(name) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ?)",
			trainerID, true, pattern, pattern).
		Order("name ASC").
		Limit(limit).
		Find(&workouts).Error
	return workouts, err
}

func (r *gormRepository) FindActiveBatch(ctx context.Context, offset, limit int) ([]Workout, error) {
	var workouts []Workout
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id ASC").
		Offset(offset).Limit(limit).
		Find(&workouts).Error
	return workouts, err
}
