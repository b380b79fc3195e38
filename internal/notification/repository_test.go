package notification

import (
	"context"
	"testing"
	"time"

	"fitcoach_backend/internal/common"
	"fitcoach_backend/internal/platform/database/dbtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGORMRepository_Notifications(t *testing.T) {
	repo := NewGORMRepository(dbtest.New(t, &Notification{}, &DeviceToken{}))
	ctx := context.Background()
	userID := uuid.New()
	base := time.Now().UTC()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &Notification{
			UserID: userID, Type: TypeSystem, Title: "t", Message: "m",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Create(ctx, &Notification{UserID: uuid.New(), Type: TypeSystem, Title: "x", Message: "y", CreatedAt: base}))

	page, pagination, err := repo.GetByUserID(ctx, userID, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.EqualValues(t, 3, pagination.TotalItems)
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt), "newest first")

	err = repo.MarkAsRead(ctx, page[0].ID, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, repo.MarkAsRead(ctx, page[0].ID, userID))
	unread, err := repo.CountUnread(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread)

	n, err := repo.MarkAllAsRead(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestGORMRepository_DeviceTokens(t *testing.T) {
	repo := NewGORMRepository(dbtest.New(t, &Notification{}, &DeviceToken{}))
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	require.NoError(t, repo.SaveDeviceToken(ctx, &DeviceToken{UserID: alice, Token: "shared-phone", Platform: "ios"}))
	require.NoError(t, repo.SaveDeviceToken(ctx, &DeviceToken{UserID: alice, Token: "laptop", Platform: "web"}))
	// The phone changes hands.
	require.NoError(t, repo.SaveDeviceToken(ctx, &DeviceToken{UserID: bob, Token: "shared-phone", Platform: "ios"}))

	tokens, err := repo.ListDeviceTokens(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"laptop"}, tokens)

	tokens, err = repo.ListDeviceTokens(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{"shared-phone"}, tokens)

	require.NoError(t, repo.DeleteTokens(ctx, []string{"laptop"}))
	tokens, err = repo.ListDeviceTokens(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
