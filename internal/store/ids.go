package store

import (
	"context"
	"errors"
	"fmt"

	"triplestore/internal/registry"
	"triplestore/internal/value"
)

// FillIDs resolves every Statement and Blob interned in reg to its
// internal row id. When allowCreate is true, handles with no existing
// row get a handle-only stub row inserted so every reference is
// resolvable afterwards (the two-step "insert placeholder -> update
// with final id" needed to bootstrap a self-referential triple, whose
// own id isn't known until after its own row exists). When allowCreate
// is false, an unresolved handle is assigned the sentinel id
// value.NoRowID, so later filters against it deliberately match
// nothing instead of erroring.
func (r *Repository) FillIDs(ctx context.Context, reg *registry.Registry, allowCreate bool) error {
	if err := r.fillStatementIDs(ctx, reg.AllStatements(), allowCreate); err != nil {
		return err
	}
	if err := r.fillBlobIDs(ctx, reg.AllBlobs(), allowCreate); err != nil {
		return err
	}
	return nil
}

func (r *Repository) fillStatementIDs(ctx context.Context, statements []*value.Statement, allowCreate bool) error {
	pending := make(map[value.StatementHandle][]*value.Statement)
	for _, s := range statements {
		if s.ID != 0 {
			continue
		}
		pending[s.Handle] = append(pending[s.Handle], s)
	}
	if len(pending) == 0 {
		return nil
	}

	handles := make([][]byte, 0, len(pending))
	for h := range pending {
		h := h
		handles = append(handles, h[:])
	}

	rows, err := r.db.Query(ctx,
		`SELECT handle, id FROM statement WHERE handle = ANY($1)`, handles)
	if err != nil {
		return classifyPgError(fmt.Errorf("store: select statement ids: %w", err))
	}
	if err := scanHandleIDRows(rows, pending); err != nil {
		return err
	}

	var missing [][]byte
	for h, group := range pending {
		if group[0].ID == 0 {
			h := h
			missing = append(missing, h[:])
		}
	}
	if len(missing) == 0 {
		return nil
	}

	if !allowCreate {
		for _, group := range pending {
			if group[0].ID == 0 {
				for _, s := range group {
					s.ID = value.NoRowID
				}
			}
		}
		return nil
	}

	insertRows, err := r.db.Query(ctx, `
		INSERT INTO statement (handle)
		SELECT unnest($1::bytea[])
		ON CONFLICT (handle) DO UPDATE SET handle = EXCLUDED.handle
		RETURNING handle, id`, missing)
	if err != nil {
		return classifyPgError(fmt.Errorf("store: insert statement stubs: %w", err))
	}
	return scanHandleIDRows(insertRows, pending)
}

func (r *Repository) fillBlobIDs(ctx context.Context, blobs []*value.Blob, allowCreate bool) error {
	pending := make(map[value.BlobDigest][]*value.Blob)
	for _, b := range blobs {
		if b.ID != 0 {
			continue
		}
		pending[b.Handle] = append(pending[b.Handle], b)
	}
	if len(pending) == 0 {
		return nil
	}

	handles := make([][]byte, 0, len(pending))
	for h := range pending {
		h := h
		handles = append(handles, h[:])
	}

	rows, err := r.db.Query(ctx,
		`SELECT handle, id FROM blob WHERE handle = ANY($1)`, handles)
	if err != nil {
		return classifyPgError(fmt.Errorf("store: select blob ids: %w", err))
	}
	if err := scanBlobHandleIDRows(rows, pending); err != nil {
		return err
	}

	var missing [][]byte
	for h, group := range pending {
		if group[0].ID == 0 {
			h := h
			missing = append(missing, h[:])
		}
	}
	if len(missing) == 0 {
		return nil
	}

	if !allowCreate {
		for _, group := range pending {
			if group[0].ID == 0 {
				for _, b := range group {
					b.ID = value.NoRowID
				}
			}
		}
		return nil
	}

	insertRows, err := r.db.Query(ctx, `
		INSERT INTO blob (handle)
		SELECT unnest($1::bytea[])
		ON CONFLICT (handle) DO UPDATE SET handle = EXCLUDED.handle
		RETURNING handle, id`, missing)
	if err != nil {
		return classifyPgError(fmt.Errorf("store: insert blob stubs: %w", err))
	}
	return scanBlobHandleIDRows(insertRows, pending)
}

// ResolveStatementID looks up the row id for a single handle without
// creating it, returning value.NoRowID when no such row exists — the
// "reference not found" sentinel a query filter compiles against
// rather than erroring.
func (r *Repository) ResolveStatementID(ctx context.Context, handle value.StatementHandle) (int64, error) {
	row := r.db.QueryRow(ctx, `SELECT id FROM statement WHERE handle = $1`, handle[:])
	var id int64
	if err := row.Scan(&id); err != nil {
		classified := classifyPgError(err)
		if errors.Is(classified, ErrNotFound) {
			return value.NoRowID, nil
		}
		return 0, fmt.Errorf("store: resolve statement id: %w", classified)
	}
	return id, nil
}

func toStatementHandle(b []byte) (value.StatementHandle, error) {
	var h value.StatementHandle
	if len(b) != len(h) {
		return h, fmt.Errorf("store: malformed statement handle length %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}

func toBlobDigest(b []byte) (value.BlobDigest, error) {
	var d value.BlobDigest
	if len(b) != len(d) {
		return d, fmt.Errorf("store: malformed blob digest length %d", len(b))
	}
	copy(d[:], b)
	return d, nil
}

// scanHandleIDRows reads (handle, id) pairs and assigns id to every
// Statement pending under that handle.
func scanHandleIDRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}, pending map[value.StatementHandle][]*value.Statement) error {
	defer rows.Close()
	for rows.Next() {
		var raw []byte
		var id int64
		if err := rows.Scan(&raw, &id); err != nil {
			return classifyPgError(fmt.Errorf("store: scan statement id row: %w", err))
		}
		h, err := toStatementHandle(raw)
		if err != nil {
			return err
		}
		for _, s := range pending[h] {
			s.ID = id
		}
	}
	if err := rows.Err(); err != nil {
		return classifyPgError(err)
	}
	return nil
}

func scanBlobHandleIDRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}, pending map[value.BlobDigest][]*value.Blob) error {
	defer rows.Close()
	for rows.Next() {
		var raw []byte
		var id int64
		if err := rows.Scan(&raw, &id); err != nil {
			return classifyPgError(fmt.Errorf("store: scan blob id row: %w", err))
		}
		d, err := toBlobDigest(raw)
		if err != nil {
			return err
		}
		for _, b := range pending[d] {
			b.ID = id
		}
	}
	if err := rows.Err(); err != nil {
		return classifyPgError(err)
	}
	return nil
}
