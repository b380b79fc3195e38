// File: internal/workout/service.go
package workout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fitcoach_backend/internal/common"
	"fitcoach_backend/internal/notification"
	"fitcoach_backend/internal/profile"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

var ErrWorkoutNotFound = common.ErrNotFound.WithMessage("Workout not found.")

const (
	indexTimeout      = 3 * time.Second
	searchResultLimit = 25
)

// Roster confirms that a student belongs to a trainer.
type Roster interface {
	GetStudentForTrainer(ctx context.Context, trainerID, studentID uuid.UUID) (*profile.Profile, error)
}

// Notifier is the part of notification.Service workouts use.
type Notifier interface {
	CreateNotification(ctx context.Context, userID uuid.UUID, notifType notification.NotificationType, title, message string, relatedID *uuid.UUID) (*notification.Notification, error)
}

// Service defines workout operations. callerID is always the signed-in user.
type Service interface {
	Create(ctx context.Context, trainerID uuid.UUID, req CreateWorkoutRequest) (*Workout, error)
	Get(ctx context.Context, callerID, id uuid.UUID) (*Workout, error)
	ListForStudent(ctx context.Context, callerID, studentID uuid.UUID) ([]Workout, error)
	ListForTrainer(ctx context.Context, trainerID uuid.UUID, page, pageSize int) ([]Workout, *common.Pagination, error)
	Update(ctx context.Context, trainerID, id uuid.UUID, req UpdateWorkoutRequest) (*Workout, error)
	Deactivate(ctx context.Context, trainerID, id uuid.UUID) error
	Search(ctx context.Context, trainerID uuid.UUID, q string) ([]Workout, error)
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo     Repository
	roster   Roster
	notifier Notifier
	index    Index
	logger   *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a workout service. A nil index disables search indexing.
func NewService(repo Repository, roster Roster, notifier Notifier, index Index, logger *zap.Logger) *ServiceImplementation {
	if index == nil {
		index = NopIndex{}
	}
	return &ServiceImplementation{
		repo:     repo,
		roster:   roster,
		notifier: notifier,
		index:    index,
		logger:   logger.Named("WorkoutService"),
	}
}

func (s *ServiceImplementation) Create(ctx context.Context, trainerID uuid.UUID, req CreateWorkoutRequest) (*Workout, error) {
	if _, err := s.roster.GetStudentForTrainer(ctx, trainerID, req.StudentID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	w := &Workout{
		StudentID:   req.StudentID,
		TrainerID:   trainerID,
		Name:        name,
		Slug:        slug.Make(name),
		Description: req.Description,
		Exercises:   Exercises(req.Exercises),
		Active:      true,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		s.logger.Error("Failed to create workout", zap.String("trainerID", trainerID.String()), zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not create workout.")
	}
	s.logger.Info("Workout assigned", zap.String("workoutID", w.ID.String()), zap.String("studentID", w.StudentID.String()))
	s.reindex(ctx, w)
	s.notifyStudent(ctx, w, "New workout", fmt.Sprintf("Your trainer assigned you %q.", w.Name))
	return w, nil
}

// Get returns a workout to its trainer or its student.
func (s *ServiceImplementation) Get(ctx context.Context, callerID, id uuid.UUID) (*Workout, error) {
	w, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.TrainerID != callerID && w.StudentID != callerID {
		return nil, ErrWorkoutNotFound
	}
	return w, nil
}

// ListForStudent lists a student's active workouts. The student or their trainer may ask; the
// trainer also sees deactivated ones.
func (s *ServiceImplementation) ListForStudent(ctx context.Context, callerID, studentID uuid.UUID) ([]Workout, error) {
	includeInactive := false
	if callerID != studentID {
		if _, err := s.roster.GetStudentForTrainer(ctx, callerID, studentID); err != nil {
			return nil, err
		}
		includeInactive = true
	}
	workouts, err := s.repo.ListByStudent(ctx, studentID, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	return workouts, nil
}

func (s *ServiceImplementation) ListForTrainer(ctx context.Context, trainerID uuid.UUID, page, pageSize int) ([]Workout, *common.Pagination, error) {
	workouts, pagination, err := s.repo.ListByTrainer(ctx, trainerID, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to list trainer workouts", zap.String("trainerID", trainerID.String()), zap.Error(err))
		return nil, nil, common.ErrInternalServer.WithDetails("Could not retrieve workouts.")
	}
	return workouts, pagination, nil
}

func (s *ServiceImplementation) owned(ctx context.Context, trainerID, id uuid.UUID) (*Workout, error) {
	w, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.TrainerID != trainerID {
		s.logger.Warn("Trainer attempted to modify a workout they do not own",
			zap.String("workoutID", id.String()), zap.String("trainerID", trainerID.String()))
		return nil, common.ErrForbidden.WithDetails("You do not have permission to modify this workout.")
	}
	return w, nil
}

func (s *ServiceImplementation) Update(ctx context.Context, trainerID, id uuid.UUID, req UpdateWorkoutRequest) (*Workout, error) {
	w, err := s.owned(ctx, trainerID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		w.Name = strings.TrimSpace(*req.Name)
		w.Slug = slug.Make(w.Name)
	}
	if req.Description != nil {
		w.Description = req.Description
	}
	if req.Exercises != nil {
		w.Exercises = Exercises(req.Exercises)
	}
	if req.Active != nil {
		w.Active = *req.Active
	}
	if err := s.repo.Update(ctx, w); err != nil {
		return nil, err
	}
	s.reindex(ctx, w)
	if w.Active {
		s.notifyStudent(ctx, w, "Workout updated", fmt.Sprintf("Your trainer updated %q.", w.Name))
	}
	return w, nil
}

// Deactivate hides a workout without deleting its progress history.
func (s *ServiceImplementation) Deactivate(ctx context.Context, trainerID, id uuid.UUID) error {
	w, err := s.owned(ctx, trainerID, id)
	if err != nil {
		return err
	}
	if !w.Active {
		return nil
	}
	w.Active = false
	if err := s.repo.Update(ctx, w); err != nil {
		return err
	}
	s.reindex(ctx, w)
	return nil
}

// Search queries the index, falling back to a name match when the index is unavailable.
func (s *ServiceImplementation) Search(ctx context.Context, trainerID uuid.UUID, q string) ([]Workout, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, common.ErrBadRequest.WithDetails("Query parameter 'q' is required.")
	}
	ids, err := s.index.Search(ctx, trainerID, q, searchResultLimit)
	if err != nil {
		if !errors.Is(err, ErrSearchUnavailable) {
			s.logger.Warn("Workout index search failed, using database", zap.Error(err))
		}
		workouts, err := s.repo.SearchByName(ctx, trainerID, q, searchResultLimit)
		if err != nil {
			return nil, fmt.Errorf("search workouts: %w", err)
		}
		return workouts, nil
	}
	workouts, err := s.repo.FindByIDs(ctx, trainerID, ids)
	if err != nil {
		return nil, fmt.Errorf("load searched workouts: %w", err)
	}
	return workouts, nil
}

// reindex is best effort; the database is the source of truth.
func (s *ServiceImplementation) reindex(ctx context.Context, w *Workout) {
	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), indexTimeout)
	defer cancel()
	var err error
	if w.Active {
		err = s.index.Put(ictx, w)
	} else {
		err = s.index.Delete(ictx, w.ID)
	}
	if err != nil {
		s.logger.Warn("Failed to sync workout index", zap.String("workoutID", w.ID.String()), zap.Error(err))
	}
}

func (s *ServiceImplementation) notifyStudent(ctx context.Context, w *Workout, title, message string) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.CreateNotification(ctx, w.StudentID, notification.TypeWorkout, title, message, &w.ID); err != nil {
		s.logger.Warn("Failed to notify student about workout", zap.String("workoutID", w.ID.String()), zap.Error(err))
	}
}
