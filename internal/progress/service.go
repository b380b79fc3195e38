// File: internal/progress/service.go
package progress

import (
	"context"
	"fmt"
	"time"

	"fitcoach_backend/internal/common"
	"fitcoach_backend/internal/notification"
	"fitcoach_backend/internal/profile"
	"fitcoach_backend/internal/workout"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrProgressNotFound = common.ErrNotFound.WithMessage("Progress entry not found.")

// WorkoutReader returns a workout visible to callerID.
type WorkoutReader interface {
	Get(ctx context.Context, callerID, id uuid.UUID) (*workout.Workout, error)
}

// Roster confirms that a student belongs to a trainer.
type Roster interface {
	GetStudentForTrainer(ctx context.Context, trainerID, studentID uuid.UUID) (*profile.Profile, error)
}

// Notifier is the part of notification.Service progress uses.
type Notifier interface {
	CreateNotification(ctx context.Context, userID uuid.UUID, notifType notification.NotificationType, title, message string, relatedID *uuid.UUID) (*notification.Notification, error)
}

// Service defines progress operations.
type Service interface {
	Record(ctx context.Context, studentID uuid.UUID, req RecordProgressRequest) (*Progress, error)
	Update(ctx context.Context, studentID, id uuid.UUID, req UpdateProgressRequest) (*Progress, error)
	ListForWorkout(ctx context.Context, callerID, workoutID uuid.UUID) ([]Progress, error)
	ListForStudent(ctx context.Context, callerID, studentID uuid.UUID) ([]Progress, error)
	RecordMeasurement(ctx context.Context, callerID, studentID uuid.UUID, req RecordMeasurementRequest) (*BodyMeasurement, error)
	ListMeasurements(ctx context.Context, callerID, studentID uuid.UUID) ([]BodyMeasurement, error)
}

type service struct {
	repo     Repository
	workouts WorkoutReader
	roster   Roster
	notifier Notifier
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates a progress service.
func NewService(repo Repository, workouts WorkoutReader, roster Roster, notifier Notifier, logger *zap.Logger) Service {
	return &service{
		repo:     repo,
		workouts: workouts,
		roster:   roster,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.Named("ProgressService"),
	}
}

func (s *service) Record(ctx context.Context, studentID uuid.UUID, req RecordProgressRequest) (*Progress, error) {
	w, err := s.workouts.Get(ctx, studentID, req.WorkoutID)
	if err != nil {
		return nil, err
	}
	if w.StudentID != studentID {
		return nil, common.ErrForbidden.WithDetails("Only the assigned student can log progress for this workout.")
	}
	if !w.Active {
		return nil, common.ErrUnprocessableEntity.WithDetails("This workout is no longer active.")
	}

	date := s.now()
	if req.Date != nil {
		date = req.Date.UTC()
	}
	p := &Progress{
		WorkoutID:       w.ID,
		StudentID:       studentID,
		Date:            date,
		Completed:       req.Completed,
		Notes:           req.Notes,
		DifficultyLevel: req.DifficultyLevel,
		DurationMinutes: req.DurationMinutes,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.Error("Failed to record progress", zap.String("workoutID", w.ID.String()), zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not record progress.")
	}

	verb := "logged"
	if p.Completed {
		verb = "completed"
	}
	s.notifyTrainer(ctx, w.TrainerID, p.ID, fmt.Sprintf("Your student %s %q.", verb, w.Name))
	return p, nil
}

func (s *service) Update(ctx context.Context, studentID, id uuid.UUID, req UpdateProgressRequest) (*Progress, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.StudentID != studentID {
		return nil, common.ErrForbidden.WithDetails("You do not have permission to update this progress entry.")
	}
	if req.Completed != nil {
		p.Completed = *req.Completed
	}
	if req.Notes != nil {
		p.Notes = req.Notes
	}
	if req.DifficultyLevel != nil {
		p.DifficultyLevel = req.DifficultyLevel
	}
	if req.DurationMinutes != nil {
		p.DurationMinutes = req.DurationMinutes
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}
	return p, nil
}

func (s *service) ListForWorkout(ctx context.Context, callerID, workoutID uuid.UUID) ([]Progress, error) {
	if _, err := s.workouts.Get(ctx, callerID, workoutID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListByWorkout(ctx, workoutID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return entries, nil
}

func (s *service) ListForStudent(ctx context.Context, callerID, studentID uuid.UUID) ([]Progress, error) {
	if err := s.canSee(ctx, callerID, studentID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return entries, nil
}

func (s *service) RecordMeasurement(ctx context.Context, callerID, studentID uuid.UUID, req RecordMeasurementRequest) (*BodyMeasurement, error) {
	if req.empty() {
		return nil, common.ErrBadRequest.WithDetails("At least one measurement is required.")
	}
	if err := s.canSee(ctx, callerID, studentID); err != nil {
		return nil, err
	}
	recordedAt := s.now()
	if req.RecordedAt != nil {
		recordedAt = req.RecordedAt.UTC()
	}
	m := &BodyMeasurement{
		StudentID:  studentID,
		RecordedBy: callerID,
		Weight:     req.Weight,
		Waist:      req.Waist,
		Hip:        req.Hip,
		Chest:      req.Chest,
		Arm:        req.Arm,
		Thigh:      req.Thigh,
		RecordedAt: recordedAt,
	}
	if err := s.repo.CreateMeasurement(ctx, m); err != nil {
		s.logger.Error("Failed to record measurement", zap.String("studentID", studentID.String()), zap.Error(err))
		return nil, common.ErrInternalServer.WithDetails("Could not record measurement.")
	}
	return m, nil
}

func (s *service) ListMeasurements(ctx context.Context, callerID, studentID uuid.UUID) ([]BodyMeasurement, error) {
	if err := s.canSee(ctx, callerID, studentID); err != nil {
		return nil, err
	}
	ms, err := s.repo.ListMeasurements(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	return ms, nil
}

// canSee lets a student through for their own data and a trainer for a student on their roster.
func (s *service) canSee(ctx context.Context, callerID, studentID uuid.UUID) error {
	if callerID == studentID {
		return nil
	}
	_, err := s.roster.GetStudentForTrainer(ctx, callerID, studentID)
	return err
}

func (s *service) notifyTrainer(ctx context.Context, trainerID, progressID uuid.UUID, message string) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.CreateNotification(ctx, trainerID, notification.TypeProgress, "Progress update", message, &progressID); err != nil {
		s.logger.Warn("Failed to notify trainer about progress", zap.String("trainerID", trainerID.String()), zap.Error(err))
	}
}
