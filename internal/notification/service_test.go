package notification

import (
	"context"
	"errors"
	"testing"

	"fitcoach_backend/internal/common"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockNotificationRepository is a mock type for notification.Repository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *Notification) error {
	args := m.Called(ctx, notification)
	if args.Error(0) == nil && notification.ID == uuid.Nil {
		notification.ID = uuid.New() // Simulate DB generating ID
	}
	return args.Error(0)
}

func (m *MockNotificationRepository) GetByUserID(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Notification, *common.Pagination, error) {
	args := m.Called(ctx, userID, page, pageSize)
	var notifications []Notification
	if args.Get(0) != nil {
		notifications = args.Get(0).([]Notification)
	}
	var pagination *common.Pagination
	if args.Get(1) != nil {
		pagination = args.Get(1).(*common.Pagination)
	}
	return notifications, pagination, args.Error(2)
}

func (m *MockNotificationRepository) FindByID(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) (*Notification, error) {
	args := m.Called(ctx, notificationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkAsRead(ctx context.Context, notificationID uuid.UUID, userID uuid.UUID) error {
	args := m.Called(ctx, notificationID, userID)
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) SaveDeviceToken(ctx context.Context, token *DeviceToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockNotificationRepository) DeleteDeviceToken(ctx context.Context, userID uuid.UUID, token string) error {
	return m.Called(ctx, userID, token).Error(0)
}

func (m *MockNotificationRepository) ListDeviceTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	var tokens []string
	if args.Get(0) != nil {
		tokens = args.Get(0).([]string)
	}
	return tokens, args.Error(1)
}

func (m *MockNotificationRepository) DeleteTokens(ctx context.Context, tokens []string) error {
	return m.Called(ctx, tokens).Error(0)
}

// MockPushSender is a mock type for notification.PushSender
type MockPushSender struct {
	mock.Mock
}

func (m *MockPushSender) Send(ctx context.Context, tokens []string, msg PushMessage) ([]string, error) {
	args := m.Called(ctx, tokens, msg)
	var invalid []string
	if args.Get(0) != nil {
		invalid = args.Get(0).([]string)
	}
	return invalid, args.Error(1)
}

// Test Suite Setup
type NotificationServiceTestSuite struct {
	service       Service
	mockNotifRepo *MockNotificationRepository
	mockPush      *MockPushSender
}

func setupNotificationServiceTestSuite(t *testing.T) *NotificationServiceTestSuite {
	ts := &NotificationServiceTestSuite{
		mockNotifRepo: new(MockNotificationRepository),
		mockPush:      new(MockPushSender),
	}
	ts.service = NewService(ts.mockNotifRepo, ts.mockPush, zap.NewNop())
	return ts
}

// --- Test Cases ---

func TestNotificationService_CreateNotification_Success(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := uuid.New()
	workoutID := uuid.New()

	ts.mockNotifRepo.On("Create", ctx, mock.AnythingOfType("*notification.Notification")).Run(func(args mock.Arguments) {
		notifArg := args.Get(1).(*Notification)
		assert.Equal(t, userID, notifArg.UserID)
		assert.Equal(t, TypeWorkout, notifArg.Type)
		assert.Equal(t, "New workout", notifArg.Title)
		assert.Equal(t, &workoutID, notifArg.RelatedEntityID)
		assert.False(t, notifArg.IsRead)
	}).Return(nil)
	ts.mockNotifRepo.On("ListDeviceTokens", ctx, userID).Return([]string{"tok-1", "tok-2"}, nil)
	ts.mockPush.On("Send", mock.Anything, []string{"tok-1", "tok-2"}, mock.MatchedBy(func(m PushMessage) bool {
		return m.Title == "New workout" && m.Data["related_entity_id"] == workoutID.String()
	})).Return([]string{"tok-2"}, nil)
	ts.mockNotifRepo.On("DeleteTokens", ctx, []string{"tok-2"}).Return(nil)

	createdNotif, err := ts.service.CreateNotification(ctx, userID, TypeWorkout, " New workout ", "Leg day is ready.", &workoutID)

	assert.NoError(t, err)
	assert.NotNil(t, createdNotif)
	assert.NotEqual(t, uuid.Nil, createdNotif.ID, "Expected notification ID to be set")
	ts.mockNotifRepo.AssertExpectations(t)
	ts.mockPush.AssertExpectations(t)
}

func TestNotificationService_CreateNotification_PushFailureIsNotFatal(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := uuid.New()

	ts.mockNotifRepo.On("Create", ctx, mock.Anything).Return(nil)
	ts.mockNotifRepo.On("ListDeviceTokens", ctx, userID).Return([]string{"tok"}, nil)
	ts.mockPush.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("fcm unavailable"))

	n, err := ts.service.CreateNotification(ctx, userID, TypeProgress, "Progress", "Sam finished a workout.", nil)

	assert.NoError(t, err)
	assert.NotNil(t, n)
}

func TestNotificationService_CreateNotification_NoDevicesSkipsPush(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := uuid.New()

	ts.mockNotifRepo.On("Create", ctx, mock.Anything).Return(nil)
	ts.mockNotifRepo.On("ListDeviceTokens", ctx, userID).Return(nil, nil)

	_, err := ts.service.CreateNotification(ctx, userID, TypeSystem, "Hi", "Welcome.", nil)

	assert.NoError(t, err)
	ts.mockPush.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationService_CreateNotification_Error(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := uuid.New()
	expectedError := common.ErrInternalServer.WithDetails("Could not create notification.")

	ts.mockNotifRepo.On("Create", ctx, mock.AnythingOfType("*notification.Notification")).Return(errors.New("repo error"))

	createdNotif, err := ts.service.CreateNotification(ctx, userID, TypeWorkout, "t", "test", nil)

	assert.Error(t, err)
	assert.Nil(t, createdNotif)
	apiErr, ok := err.(*common.APIError)
	assert.True(t, ok)
	assert.Equal(t, expectedError.Code, apiErr.Code)
	ts.mockNotifRepo.AssertExpectations(t)
}

func TestNotificationService_CreateNotification_UnknownType(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)

	_, err := ts.service.CreateNotification(context.Background(), uuid.New(), NotificationType("billing"), "t", "m", nil)

	assert.ErrorIs(t, err, common.ErrBadRequest)
	ts.mockNotifRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestNotificationService_GetNotificationsForUser_Success(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := uuid.New()
	page, pageSize := 1, 5

	mockNotifications := []Notification{
		{ID: uuid.New(), UserID: userID, Message: "Notif 1"},
		{ID: uuid.New(), UserID: userID, Message: "Notif 2"},
	}
	mockPagination := &common.Pagination{CurrentPage: page, PageSize: pageSize, TotalItems: 2, TotalPages: 1}

	ts.mockNotifRepo.On("GetByUserID", ctx, userID, page, pageSize).Return(mockNotifications, mockPagination, nil)

	notifications, pagination, err := ts.service.GetNotificationsForUser(ctx, userID, page, pageSize)

	assert.NoError(t, err)
	assert.Len(t, notifications, 2)
	assert.Equal(t, mockPagination, pagination)
	ts.mockNotifRepo.AssertExpectations(t)
}

func TestNotificationService_GetNotificationsForUser_Error(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := uuid.New()
	page, pageSize := 1, 5

	ts.mockNotifRepo.On("GetByUserID", ctx, userID, page, pageSize).Return(nil, nil, errors.New("repo error"))

	notifications, pagination, err := ts.service.GetNotificationsForUser(ctx, userID, page, pageSize)

	assert.Error(t, err)
	assert.Nil(t, notifications)
	assert.Nil(t, pagination)
	apiErr, ok := err.(*common.APIError)
	assert.True(t, ok)
	assert.Equal(t, common.ErrInternalServer.Code, apiErr.Code)
	ts.mockNotifRepo.AssertExpectations(t)
}

func TestNotificationService_MarkNotificationAsRead_Success(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := uuid.New()
	notificationID := uuid.New()

	ts.mockNotifRepo.On("MarkAsRead", ctx, notificationID, userID).Return(nil)

	err := ts.service.MarkNotificationAsRead(ctx, notificationID, userID)

	assert.NoError(t, err)
	ts.mockNotifRepo.AssertExpectations(t)
}

func TestNotificationService_MarkNotificationAsRead_NotFound(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := uuid.New()
	notificationID := uuid.New()
	expectedError := common.ErrNotFound.WithDetails("Notification not found or not owned by user.")

	ts.mockNotifRepo.On("MarkAsRead", ctx, notificationID, userID).Return(expectedError)

	err := ts.service.MarkNotificationAsRead(ctx, notificationID, userID)

	assert.Error(t, err)
	apiErr, ok := err.(*common.APIError)
	assert.True(t, ok, "Error should be an APIError")
	assert.Equal(t, common.ErrNotFound.Code, apiErr.Code, "Error code should be NOT_FOUND")
	ts.mockNotifRepo.AssertExpectations(t)
}

func TestNotificationService_MarkAllUserNotificationsAsRead_Success(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := uuid.New()
	expectedCount := int64(5)

	ts.mockNotifRepo.On("MarkAllAsRead", ctx, userID).Return(expectedCount, nil)

	count, err := ts.service.MarkAllUserNotificationsAsRead(ctx, userID)

	assert.NoError(t, err)
	assert.Equal(t, expectedCount, count)
	ts.mockNotifRepo.AssertExpectations(t)
}

func TestNotificationService_MarkAllUserNotificationsAsRead_Error(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := uuid.New()

	ts.mockNotifRepo.On("MarkAllAsRead", ctx, userID).Return(int64(0), errors.New("repo error"))

	count, err := ts.service.MarkAllUserNotificationsAsRead(ctx, userID)

	assert.Error(t, err)
	assert.Equal(t, int64(0), count)
	apiErr, ok := err.(*common.APIError)
	assert.True(t, ok)
	assert.Equal(t, common.ErrInternalServer.Code, apiErr.Code)
	ts.mockNotifRepo.AssertExpectations(t)
}

func TestNotificationService_RegisterDevice(t *testing.T) {
	ts := setupNotificationServiceTestSuite(t)
	ctx := context.Background()
	userID := uuid.New()

	ts.mockNotifRepo.On("SaveDeviceToken", ctx, mock.MatchedBy(func(d *DeviceToken) bool {
		return d.UserID == userID && d.Token == "abc" && d.Platform == "ios"
	})).Return(nil)

	err := ts.service.RegisterDevice(ctx, userID, RegisterDeviceRequest{Token: " abc ", Platform: "ios"})

	assert.NoError(t, err)
	ts.mockNotifRepo.AssertExpectations(t)
}
