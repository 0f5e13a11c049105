package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triplestore/internal/registry"
	"triplestore/internal/value"
)

func digestFromString(s string) value.BlobDigest {
	var d value.BlobDigest
	copy(d[:], []byte(s))
	return d
}

func TestVolumeAndFileLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	repo := NewRepository(s.pool)

	vol, err := repo.CreateVolume(ctx, "vol-a")
	require.NoError(t, err)
	assert.Equal(t, "vol-a", vol.Reference)

	digestB := digestFromString("digest-a-b-contents-------------")
	_, err = repo.RegisterBlob(ctx, digestB)
	require.NoError(t, err)

	digestC := digestFromString("digest-a-c-contents-------------")
	_, err = repo.RegisterBlob(ctx, digestC)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	err = repo.UpsertAndDeleteFiles(ctx, "vol-a", []FileMutation{
		{Path: []byte("a/b"), Blob: digestB, Size: 10, MTime: now},
		{Path: []byte("a/c"), Blob: digestC, Size: 20, MTime: now},
	}, nil)
	require.NoError(t, err)

	files, err := repo.ListFiles(ctx, "vol-a", ListFilesOptions{})
	require.NoError(t, err)
	require.Len(t, files, 2)

	err = repo.UpsertAndDeleteFiles(ctx, "vol-a", nil, [][]byte{[]byte("a/c")})
	require.NoError(t, err)

	files, err = repo.ListFiles(ctx, "vol-a", ListFilesOptions{})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, []byte("a/b"), files[0].Path)

	blob, err := repo.GetFileBlob(ctx, "vol-a", []byte("a/b"))
	require.NoError(t, err)
	assert.Equal(t, digestB, blob.Handle)
}

func TestListFilesWithoutStatements(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	repo := NewRepository(s.pool)

	_, err := repo.CreateVolume(ctx, "vol-b")
	require.NoError(t, err)

	tagged := digestFromString("tagged-digest-contents----------")
	untagged := digestFromString("untagged-digest-contents--------")
	_, err = repo.RegisterBlob(ctx, tagged)
	require.NoError(t, err)
	_, err = repo.RegisterBlob(ctx, untagged)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, repo.UpsertAndDeleteFiles(ctx, "vol-b", []FileMutation{
		{Path: []byte("tagged"), Blob: tagged, Size: 1, MTime: now},
		{Path: []byte("untagged"), Blob: untagged, Size: 1, MTime: now},
	}, nil))

	reg := registry.New()
	subj := reg.UniqueStatement(&value.Statement{Handle: value.NewStatementHandle()})
	pred := reg.UniqueStatement(&value.Statement{Handle: value.NewStatementHandle()})
	blobRef := reg.UniqueBlob(&value.Blob{Handle: tagged})
	reg.UniqueStatement(&value.Statement{
		Handle: value.NewStatementHandle(), Subject: subj, Predicate: pred,
		Object: value.FromBlob(blobRef), HasTriple: true,
	})

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	txRepo := NewRepository(tx)
	require.NoError(t, txRepo.CreateStatements(ctx, reg))
	require.NoError(t, tx.Commit(ctx))

	files, err := repo.ListFiles(ctx, "vol-b", ListFilesOptions{WithoutStatements: true})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, []byte("untagged"), files[0].Path)
}

func TestDeleteVolumeRemovesFiles(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	repo := NewRepository(s.pool)

	_, err := repo.CreateVolume(ctx, "vol-c")
	require.NoError(t, err)

	digest := digestFromString("delete-volume-digest------------")
	_, err = repo.RegisterBlob(ctx, digest)
	require.NoError(t, err)

	require.NoError(t, repo.UpsertAndDeleteFiles(ctx, "vol-c", []FileMutation{
		{Path: []byte("x"), Blob: digest, Size: 1, MTime: time.Now().UTC()},
	}, nil))

	require.NoError(t, repo.DeleteVolume(ctx, "vol-c"))

	_, err = repo.GetVolume(ctx, "vol-c")
	assert.ErrorIs(t, err, ErrNotFound)
}
