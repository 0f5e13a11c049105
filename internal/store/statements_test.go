package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triplestore/internal/registry"
	"triplestore/internal/value"
)

func TestCreateStatementsSelfReference(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	reg := registry.New()
	handle := value.NewStatementHandle()
	root := reg.UniqueStatement(&value.Statement{Handle: handle})
	reg.UniqueStatement(&value.Statement{
		Handle: handle, Subject: root, Predicate: root, Object: value.FromStatement(root), HasTriple: true,
	})

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	repo := NewRepository(tx)
	require.NoError(t, repo.CreateStatements(ctx, reg))
	require.NoError(t, tx.Commit(ctx))

	readReg := registry.New()
	readRepo := NewRepository(s.pool)
	got, err := readRepo.GetByHandles(ctx, readReg, []value.StatementHandle{handle})
	require.NoError(t, err)
	require.Len(t, got, 1)

	stmt := got[0]
	assert.Equal(t, handle, stmt.Handle)
	assert.True(t, stmt.HasTriple)
	assert.Equal(t, handle, stmt.Subject.Handle)
	assert.Equal(t, handle, stmt.Predicate.Handle)
	require.Equal(t, value.KindStatement, stmt.Object.Kind)
	assert.Equal(t, handle, stmt.Object.Statement.Handle)
}

func TestCreateStatementsScalarRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	reg := registry.New()
	subjHandle, predHandle, stmtHandle := value.NewStatementHandle(), value.NewStatementHandle(), value.NewStatementHandle()
	subj := reg.UniqueStatement(&value.Statement{Handle: subjHandle})
	pred := reg.UniqueStatement(&value.Statement{Handle: predHandle})
	reg.UniqueStatement(&value.Statement{
		Handle: stmtHandle, Subject: subj, Predicate: pred, Object: value.FromString("hello"), HasTriple: true,
	})

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	repo := NewRepository(tx)
	require.NoError(t, repo.CreateStatements(ctx, reg))
	require.NoError(t, tx.Commit(ctx))

	readReg := registry.New()
	readRepo := NewRepository(s.pool)
	got, err := readRepo.GetByHandles(ctx, readReg, []value.StatementHandle{stmtHandle})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "str:hello", value.Serialize(got[0].Object))
}

func TestCreateStatementsUpsertIdempotence(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	batch := func() *registry.Registry {
		reg := registry.New()
		subj := reg.UniqueStatement(&value.Statement{Handle: value.NewNamedHandle("idem:subj")})
		pred := reg.UniqueStatement(&value.Statement{Handle: value.NewNamedHandle("idem:pred")})
		reg.UniqueStatement(&value.Statement{
			Handle: value.NewNamedHandle("idem:stmt"), Subject: subj, Predicate: pred,
			Object: value.FromInteger(42), HasTriple: true,
		})
		return reg
	}

	for i := 0; i < 2; i++ {
		tx, err := s.Begin(ctx)
		require.NoError(t, err)
		repo := NewRepository(tx)
		require.NoError(t, repo.CreateStatements(ctx, batch()))
		require.NoError(t, tx.Commit(ctx))
	}

	readReg := registry.New()
	readRepo := NewRepository(s.pool)
	got, err := readRepo.GetByHandles(ctx, readReg, []value.StatementHandle{value.NewNamedHandle("idem:stmt")})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "int:42", value.Serialize(got[0].Object))
}

func TestCreateStatementsTripleConflict(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	handle := value.NewNamedHandle("conflict:stmt")
	subj := value.NewNamedHandle("conflict:subj")
	pred := value.NewNamedHandle("conflict:pred")

	firstReg := registry.New()
	firstReg.UniqueStatement(&value.Statement{
		Handle:    handle,
		Subject:   firstReg.UniqueStatement(&value.Statement{Handle: subj}),
		Predicate: firstReg.UniqueStatement(&value.Statement{Handle: pred}),
		Object:    value.FromInteger(1),
		HasTriple: true,
	})

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	repo := NewRepository(tx)
	require.NoError(t, repo.CreateStatements(ctx, firstReg))
	require.NoError(t, tx.Commit(ctx))

	secondReg := registry.New()
	secondReg.UniqueStatement(&value.Statement{
		Handle:    handle,
		Subject:   secondReg.UniqueStatement(&value.Statement{Handle: subj}),
		Predicate: secondReg.UniqueStatement(&value.Statement{Handle: pred}),
		Object:    value.FromInteger(2),
		HasTriple: true,
	})

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	repo2 := NewRepository(tx2)
	err = repo2.CreateStatements(ctx, secondReg)
	_ = tx2.Rollback(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTripleConflict)
}

func TestResolveStatementIDUnknownHandle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	repo := NewRepository(s.pool)
	id, err := repo.ResolveStatementID(ctx, value.NewStatementHandle())
	require.NoError(t, err)
	assert.Equal(t, value.NoRowID, id)
}
