package profile

import (
	"context"
	"testing"

	"fitcoach_backend/internal/platform/database/dbtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGORMRepository_Lifecycle(t *testing.T) {
	db := dbtest.New(t, &Profile{})
	repo := NewGORMRepository(db)
	ctx := context.Background()

	trainerID := uuid.New()
	trainer := &Profile{ID: trainerID, Name: "Tess", Email: "tess@example.com", UserType: strPtr("trainer")}
	require.NoError(t, repo.Create(ctx, trainer))

	missing, err := repo.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = repo.Create(ctx, &Profile{ID: trainerID, Name: "Dup", Email: "dup@example.com"})
	assert.ErrorIs(t, err, ErrProfileExists)

	for _, name := range []string{"Zed", "Amy"} {
		require.NoError(t, repo.Create(ctx, &Profile{
			ID: uuid.New(), Name: name, Email: name + "@example.com",
			UserType: strPtr("student"), TrainerID: &trainerID,
		}))
	}
	// Unrelated student.
	require.NoError(t, repo.Create(ctx, &Profile{ID: uuid.New(), Name: "Bob", Email: "bob@example.com", UserType: strPtr("student")}))

	students, err := repo.ListStudents(ctx, trainerID)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Amy", students[0].Name)

	ok, err := repo.ClearTrainer(ctx, students[0].ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok, "wrong trainer must not unassign")

	ok, err = repo.ClearTrainer(ctx, students[0].ID, trainerID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.FindByID(ctx, students[0].ID)
	require.NoError(t, err)
	assert.Nil(t, got.TrainerID)

	got.Name = "Amelia"
	require.NoError(t, repo.Update(ctx, got))
	reloaded, err := repo.FindByID(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, "Amelia", reloaded.Name)
}
