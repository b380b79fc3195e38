package workout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"fitcoach_backend/internal/common"
	"fitcoach_backend/internal/notification"
	"fitcoach_backend/internal/platform/database/dbtest"
	"fitcoach_backend/internal/profile"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

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

// memoryIndex answers searches with whatever ids it was told to.
type memoryIndex struct {
	mu      sync.Mutex
	docs    map[uuid.UUID]*Workout
	results []uuid.UUID
	err     error
}

func newMemoryIndex() *memoryIndex { return &memoryIndex{docs: map[uuid.UUID]*Workout{}} }

func (x *memoryIndex) Put(_ context.Context, w *Workout) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	cp := *w
	x.docs[w.ID] = &cp
	return nil
}

func (x *memoryIndex) Delete(_ context.Context, id uuid.UUID) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.docs, id)
	return nil
}

func (x *memoryIndex) Search(context.Context, uuid.UUID, string, int) ([]uuid.UUID, error) {
	return x.results, x.err
}

func (x *memoryIndex) has(id uuid.UUID) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.docs[id]
	return ok
}

type workoutFixture struct {
	service  *ServiceImplementation
	repo     Repository
	roster   *MockRoster
	notifier *MockNotifier
	index    *memoryIndex
	trainer  uuid.UUID
	student  uuid.UUID
}

func newWorkoutFixture(t *testing.T) *workoutFixture {
	f := &workoutFixture{
		repo:     NewGORMRepository(dbtest.New(t, &Workout{})),
		roster:   new(MockRoster),
		notifier: new(MockNotifier),
		index:    newMemoryIndex(),
		trainer:  uuid.New(),
		student:  uuid.New(),
	}
	f.service = NewService(f.repo, f.roster, f.notifier, f.index, zap.NewNop())
	f.roster.On("GetStudentForTrainer", mock.Anything, f.trainer, f.student).Return(&profile.Profile{ID: f.student}, nil).Maybe()
	f.notifier.On("CreateNotification", mock.Anything, f.student, notification.TypeWorkout, mock.Anything, mock.Anything, mock.Anything).
		Return(&notification.Notification{}, nil).Maybe()
	return f
}

func (f *workoutFixture) create(t *testing.T, name string) *Workout {
	t.Helper()
	w, err := f.service.Create(context.Background(), f.trainer, CreateWorkoutRequest{
		StudentID: f.student,
		Name:      name,
		Exercises: []Exercise{{Name: "Squat", Sets: 3, Reps: 10, MuscleGroups: []string{"legs"}}},
	})
	require.NoError(t, err)
	return w
}

func TestWorkoutService_CreateAssignsAndNotifies(t *testing.T) {
	f := newWorkoutFixture(t)

	w := f.create(t, "  Leg Day Básico ")

	assert.Equal(t, "Leg Day Básico", w.Name)
	assert.Equal(t, "leg-day-basico", w.Slug)
	assert.True(t, w.Active)
	assert.True(t, f.index.has(w.ID))
	f.notifier.AssertCalled(t, "CreateNotification", mock.Anything, f.student, notification.TypeWorkout, "New workout", mock.Anything, &w.ID)

	stored, err := f.repo.FindByID(context.Background(), w.ID)
	require.NoError(t, err)
	require.Len(t, stored.Exercises, 1)
	assert.Equal(t, []string{"legs"}, stored.Exercises[0].MuscleGroups)
}

func TestWorkoutService_CreateRejectsForeignStudent(t *testing.T) {
	f := newWorkoutFixture(t)
	stranger := uuid.New()
	f.roster.On("GetStudentForTrainer", mock.Anything, f.trainer, stranger).Return(nil, profile.ErrStudentNotFound)

	_, err := f.service.Create(context.Background(), f.trainer, CreateWorkoutRequest{StudentID: stranger, Name: "x", Exercises: []Exercise{{Name: "a"}}})

	assert.ErrorIs(t, err, profile.ErrStudentNotFound)
	f.notifier.AssertNotCalled(t, "CreateNotification", mock.Anything, stranger, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWorkoutService_NotifyFailureIsNotFatal(t *testing.T) {
	f := newWorkoutFixture(t)
	f.notifier.ExpectedCalls = nil
	f.notifier.On("CreateNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("db down"))

	w := f.create(t, "Push")

	assert.NotEqual(t, uuid.Nil, w.ID)
}

func TestWorkoutService_GetVisibility(t *testing.T) {
	f := newWorkoutFixture(t)
	w := f.create(t, "Upper")
	ctx := context.Background()

	_, err := f.service.Get(ctx, f.trainer, w.ID)
	assert.NoError(t, err)
	_, err = f.service.Get(ctx, f.student, w.ID)
	assert.NoError(t, err)
	_, err = f.service.Get(ctx, uuid.New(), w.ID)
	assert.ErrorIs(t, err, ErrWorkoutNotFound)
	_, err = f.service.Get(ctx, f.trainer, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestWorkoutService_UpdateAndDeactivate(t *testing.T) {
	f := newWorkoutFixture(t)
	w := f.create(t, "Upper")
	ctx := context.Background()

	name := "Upper Body Power"
	updated, err := f.service.Update(ctx, f.trainer, w.ID, UpdateWorkoutRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "upper-body-power", updated.Slug)

	_, err = f.service.Update(ctx, uuid.New(), w.ID, UpdateWorkoutRequest{Name: &name})
	assert.ErrorIs(t, err, common.ErrForbidden)

	require.NoError(t, f.service.Deactivate(ctx, f.trainer, w.ID))
	assert.False(t, f.index.has(w.ID))
	require.NoError(t, f.service.Deactivate(ctx, f.trainer, w.ID), "deactivating twice is a no-op")

	mine, err := f.service.ListForStudent(ctx, f.student, f.student)
	require.NoError(t, err)
	assert.Empty(t, mine, "students only see active workouts")

	all, err := f.service.ListForStudent(ctx, f.trainer, f.student)
	require.NoError(t, err)
	assert.Len(t, all, 1, "the trainer sees deactivated workouts")
}

func TestWorkoutService_ListForStudentChecksRoster(t *testing.T) {
	f := newWorkoutFixture(t)
	other := uuid.New()
	f.roster.On("GetStudentForTrainer", mock.Anything, other, f.student).Return(nil, profile.ErrStudentNotFound)

	_, err := f.service.ListForStudent(context.Background(), other, f.student)

	assert.ErrorIs(t, err, profile.ErrStudentNotFound)
}

func TestWorkoutService_ListForTrainerPaginates(t *testing.T) {
	f := newWorkoutFixture(t)
	for _, n := range []string{"A", "B", "C"} {
		f.create(t, n)
	}

	workouts, pagination, err := f.service.ListForTrainer(context.Background(), f.trainer, 1, 2)

	require.NoError(t, err)
	assert.Len(t, workouts, 2)
	assert.EqualValues(t, 3, pagination.TotalItems)
	assert.True(t, pagination.HasNext)
}

func TestWorkoutService_SearchUsesIndexOrder(t *testing.T) {
	f := newWorkoutFixture(t)
	a := f.create(t, "Mobility")
	b := f.create(t, "Sprint intervals")
	f.index.results = []uuid.UUID{b.ID, uuid.New(), a.ID}

	found, err := f.service.Search(context.Background(), f.trainer, "run")

	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, b.ID, found[0].ID)
	assert.Equal(t, a.ID, found[1].ID)
}

func TestWorkoutService_SearchFallsBackToDatabase(t *testing.T) {
	f := newWorkoutFixture(t)
	f.create(t, "Sprint intervals")
	f.create(t, "Mobility")
	f.index.err = ErrSearchUnavailable

	found, err := f.service.Search(context.Background(), f.trainer, "SPRINT")

	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Sprint intervals", found[0].Name)

	_, err = f.service.Search(context.Background(), f.trainer, "  ")
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestExercises_ScanValue(t *testing.T) {
	var e Exercises
	require.NoError(t, e.Scan([]byte(`[{"name":"Plank","duration_seconds":60}]`)))
	require.Len(t, e, 1)
	assert.Equal(t, 60, e[0].DurationSeconds)

	require.NoError(t, e.Scan(nil))
	assert.Empty(t, e)

	v, err := Exercises(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	assert.Error(t, e.Scan(42))
}
