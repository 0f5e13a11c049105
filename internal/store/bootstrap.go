package store

import (
	"context"
	"fmt"

	"triplestore/internal/dialect/postgres"
	"triplestore/internal/registry"
	"triplestore/internal/value"
)

// Bootstrap creates the fixed schema and, if it does not already
// exist, the primordial self-referential statement that seeds the
// store: a handle whose subject, predicate and object all point to
// itself, the same self-reference pattern used to seed well-known
// predicates without coordination. It is idempotent: the DDL uses IF
// NOT EXISTS and the primordial statement is looked up by its
// deterministic handle before being created.
func (s *Store) Bootstrap(ctx context.Context) (value.StatementHandle, error) {
	for _, stmt := range postgres.BootstrapStatements() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return value.StatementHandle{}, classifyPgError(fmt.Errorf("store: bootstrap schema: %w", err))
		}
	}

	reg := registry.New()
	repo := NewRepository(s.pool)

	existing, err := repo.GetByHandles(ctx, reg, []value.StatementHandle{PrimordialHandle})
	if err != nil {
		return value.StatementHandle{}, err
	}
	if len(existing) == 1 && existing[0].HasTriple {
		return PrimordialHandle, nil
	}

	tx, err := s.Begin(ctx)
	if err != nil {
		return value.StatementHandle{}, err
	}
	txRepo := NewRepository(tx)

	root := reg.UniqueStatement(&value.Statement{Handle: PrimordialHandle})
	reg.UniqueStatement(&value.Statement{
		Handle: PrimordialHandle, Subject: root, Predicate: root, Object: value.FromStatement(root), HasTriple: true,
	})

	if err := txRepo.CreateStatements(ctx, reg); err != nil {
		_ = tx.Rollback(ctx)
		return value.StatementHandle{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return value.StatementHandle{}, err
	}

	return PrimordialHandle, nil
}

// PrimordialHandle is the deterministic handle of the self-referential
// statement every store bootstraps, derived the same way
// internal/httpapi.predCreatedBy/predCreatedAt are: a name-derived UUID
// rather than a randomly generated one, so every instance bootstrapped
// from an empty database agrees on it without coordination.
var PrimordialHandle = value.NewNamedHandle("triplestore:primordial")
