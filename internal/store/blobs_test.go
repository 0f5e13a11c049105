package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterBlobIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	repo := NewRepository(s.pool)

	digest := digestFromString("idempotent-blob-digest----------")

	first, err := repo.RegisterBlob(ctx, digest)
	require.NoError(t, err)

	second, err := repo.RegisterBlob(ctx, digest)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	got, err := repo.GetBlob(ctx, digest)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestGetBlobNotFound(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	repo := NewRepository(s.pool)

	_, err := repo.GetBlob(ctx, digestFromString("never-registered----------------"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListBlobsOrderedByHandle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	repo := NewRepository(s.pool)

	a := digestFromString("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	b := digestFromString("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	_, err := repo.RegisterBlob(ctx, b)
	require.NoError(t, err)
	_, err = repo.RegisterBlob(ctx, a)
	require.NoError(t, err)

	blobs, err := repo.ListBlobs(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(blobs), 2)

	var idxA, idxB int = -1, -1
	for i, bl := range blobs {
		if bl.Handle == a {
			idxA = i
		}
		if bl.Handle == b {
			idxB = i
		}
	}
	require.NotEqual(t, -1, idxA)
	require.NotEqual(t, -1, idxB)
	assert.Less(t, idxA, idxB)
}
