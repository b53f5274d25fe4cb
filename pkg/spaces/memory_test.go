package spaces

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepository(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	_, err := repo.GetSpace(ctx, "space-1")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	require.NoError(t, repo.CreateSpace(ctx, &Space{
		ID: "space-1", Name: "First", Width: 10, Height: 10, CreatorID: "alice",
	}))
	require.NoError(t, repo.CreateSpace(ctx, &Space{
		ID: "space-2", Name: "Second", Width: 5, Height: 8, CreatorID: "bob",
	}))

	space, err := repo.GetSpace(ctx, "space-1")
	require.NoError(t, err)
	assert.Equal(t, "First", space.Name)
	assert.Equal(t, 10, space.Width)

	// Mutating the returned copy does not touch the stored record.
	space.Name = "Mutated"
	again, err := repo.GetSpace(ctx, "space-1")
	require.NoError(t, err)
	assert.Equal(t, "First", again.Name)

	list, err := repo.ListSpaces(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, repo.DeleteSpace(ctx, "space-1"))
	_, err = repo.GetSpace(ctx, "space-1")
	assert.True(t, IsNotFound(err))

	err = repo.DeleteSpace(ctx, "space-1")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	assert.NoError(t, repo.Close(ctx))
}
