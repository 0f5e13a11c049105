package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triplestore/internal/registry"
	"triplestore/internal/value"
)

func TestBootstrapIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first, err := s.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, PrimordialHandle, first)

	second, err := s.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	reg := registry.New()
	repo := NewRepository(s.pool)
	got, err := repo.GetByHandles(ctx, reg, []value.StatementHandle{PrimordialHandle})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].HasTriple)
	assert.Equal(t, PrimordialHandle, got[0].Subject.Handle)
	assert.Equal(t, PrimordialHandle, got[0].Predicate.Handle)
}
