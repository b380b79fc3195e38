package progress

import (
	"context"
	"testing"
	"time"

	"fitcoach_backend/internal/common"
	"fitcoach_backend/internal/notification"
	"fitcoach_backend/internal/platform/database/dbtest"
	"fitcoach_backend/internal/profile"
	"fitcoach_backend/internal/workout"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockWorkoutReader struct {
	mock.Mock
}

func (m *MockWorkoutReader) Get(ctx context.Context, callerID, id uuid.UUID) (*workout.Workout, error) {
	args := m.Called(ctx, callerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workout.Workout), args.Error(1)
}

type MockRoster struct {
	mock.Mock
}

func (m *MockRoster) GetStudentForTrainer(ctx context.Context, trainerID, studentID uuid.UUID) (*profile.Profile, error) {
	args := m.Called(ctx, trainerID, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profile.Profile), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) CreateNotification(ctx context.Context, userID uuid.UUID, notifType notification.NotificationType, title, message string, relatedID *uuid.UUID) (*notification.Notification, error) {
	args := m.Called(ctx, userID, notifType, title, message, relatedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Notification), args.Error(1)
}

type progressFixture struct {
	service  Service
	workouts *MockWorkoutReader
	roster   *MockRoster
	notifier *MockNotifier
	workout  *workout.Workout
}

func newProgressFixture(t *testing.T) *progressFixture {
	f := &progressFixture{
		workouts: new(MockWorkoutReader),
		roster:   new(MockRoster),
		notifier: new(MockNotifier),
		workout:  &workout.Workout{ID: uuid.New(), StudentID: uuid.New(), TrainerID: uuid.New(), Name: "Leg day", Active: true},
	}
	repo := NewGORMRepository(dbtest.New(t, &Progress{}, &BodyMeasurement{}))
	f.service = NewService(repo, f.workouts, f.roster, f.notifier, zap.NewNop())
	f.workouts.On("Get", mock.Anything, f.workout.StudentID, f.workout.ID).Return(f.workout, nil).Maybe()
	f.workouts.On("Get", mock.Anything, f.workout.TrainerID, f.workout.ID).Return(f.workout, nil).Maybe()
	f.roster.On("GetStudentForTrainer", mock.Anything, f.workout.TrainerID, f.workout.StudentID).
		Return(&profile.Profile{ID: f.workout.StudentID}, nil).Maybe()
	return f
}

func intPtr(i int) *int { return &i }

func TestProgressService_RecordNotifiesTrainer(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()
	f.notifier.On("CreateNotification", mock.Anything, f.workout.TrainerID, notification.TypeProgress, "Progress update",
		`Your student completed "Leg day".`, mock.Anything).Return(&notification.Notification{}, nil).Once()

	p, err := f.service.Record(ctx, f.workout.StudentID, RecordProgressRequest{
		WorkoutID: f.workout.ID, Completed: true, DifficultyLevel: intPtr(4),
	})

	require.NoError(t, err)
	assert.Equal(t, f.workout.StudentID, p.StudentID)
	assert.False(t, p.Date.IsZero())
	f.notifier.AssertExpectations(t)

	entries, err := f.service.ListForWorkout(ctx, f.workout.TrainerID, f.workout.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 4, *entries[0].DifficultyLevel)
}

func TestProgressService_RecordRejections(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()

	// The trainer can see the workout but cannot log progress for it.
	_, err := f.service.Record(ctx, f.workout.TrainerID, RecordProgressRequest{WorkoutID: f.workout.ID})
	assert.ErrorIs(t, err, common.ErrForbidden)

	f.workout.Active = false
	_, err = f.service.Record(ctx, f.workout.StudentID, RecordProgressRequest{WorkoutID: f.workout.ID})
	assert.ErrorIs(t, err, common.ErrUnprocessableEntity)

	missing := uuid.New()
	f.workouts.On("Get", mock.Anything, f.workout.StudentID, missing).Return(nil, workout.ErrWorkoutNotFound)
	_, err = f.service.Record(ctx, f.workout.StudentID, RecordProgressRequest{WorkoutID: missing})
	assert.ErrorIs(t, err, common.ErrNotFound)

	f.notifier.AssertNotCalled(t, "CreateNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProgressService_UpdateOwnEntryOnly(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()
	f.notifier.On("CreateNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&notification.Notification{}, nil)
	p, err := f.service.Record(ctx, f.workout.StudentID, RecordProgressRequest{WorkoutID: f.workout.ID})
	require.NoError(t, err)

	done := true
	updated, err := f.service.Update(ctx, f.workout.StudentID, p.ID, UpdateProgressRequest{Completed: &done, DurationMinutes: intPtr(45)})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, 45, *updated.DurationMinutes)

	_, err = f.service.Update(ctx, uuid.New(), p.ID, UpdateProgressRequest{Completed: &done})
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = f.service.Update(ctx, f.workout.StudentID, uuid.New(), UpdateProgressRequest{})
	assert.ErrorIs(t, err, ErrProgressNotFound)
}

func TestProgressService_Measurements(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()
	student, trainer := f.workout.StudentID, f.workout.TrainerID
	weight, waist := 72.5, 80.0

	_, err := f.service.RecordMeasurement(ctx, student, student, RecordMeasurementRequest{})
	assert.ErrorIs(t, err, common.ErrBadRequest)

	earlier := time.Now().UTC().Add(-24 * time.Hour)
	_, err = f.service.RecordMeasurement(ctx, student, student, RecordMeasurementRequest{Weight: &weight, RecordedAt: &earlier})
	require.NoError(t, err)
	m, err := f.service.RecordMeasurement(ctx, trainer, student, RecordMeasurementRequest{Waist: &waist})
	require.NoError(t, err)
	assert.Equal(t, trainer, m.RecordedBy)

	stranger := uuid.New()
	f.roster.On("GetStudentForTrainer", mock.Anything, stranger, student).Return(nil, profile.ErrStudentNotFound)
	_, err = f.service.ListMeasurements(ctx, stranger, student)
	assert.ErrorIs(t, err, profile.ErrStudentNotFound)

	ms, err := f.service.ListMeasurements(ctx, trainer, student)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, m.ID, ms[0].ID, "newest first")
}

func TestProgressService_ListForStudent(t *testing.T) {
	f := newProgressFixture(t)
	ctx := context.Background()

	entries, err := f.service.ListForStudent(ctx, f.workout.StudentID, f.workout.StudentID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = f.service.ListForStudent(ctx, f.workout.TrainerID, f.workout.StudentID)
	assert.NoError(t, err)
}
