package store

import (
	"context"
	"fmt"

	"triplestore/internal/value"
)

// RegisterBlob ensures a row exists for digest and returns it, leaving
// an already-registered blob untouched (blob identity is just its
// digest; there is nothing else to upsert).
func (r *Repository) RegisterBlob(ctx context.Context, digest value.BlobDigest) (*value.Blob, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO blob (handle) VALUES ($1)
		ON CONFLICT (handle) DO UPDATE SET handle = EXCLUDED.handle
		RETURNING id`, digest[:])

	var id int64
	if err := row.Scan(&id); err != nil {
		return nil, classifyPgError(fmt.Errorf("store: register blob: %w", err))
	}
	return &value.Blob{ID: id, Handle: digest}, nil
}

// GetBlob looks up a blob by digest, returning ErrNotFound if no row
// has ever been registered under it.
func (r *Repository) GetBlob(ctx context.Context, digest value.BlobDigest) (*value.Blob, error) {
	row := r.db.QueryRow(ctx, `SELECT id FROM blob WHERE handle = $1`, digest[:])

	var id int64
	if err := row.Scan(&id); err != nil {
		return nil, classifyPgError(fmt.Errorf("store: get blob: %w", err))
	}
	return &value.Blob{ID: id, Handle: digest}, nil
}

// ListBlobs returns every registered blob, ordered by digest. It backs
// GET /blobs.
func (r *Repository) ListBlobs(ctx context.Context) ([]*value.Blob, error) {
	rows, err := r.db.Query(ctx, `SELECT handle, id FROM blob ORDER BY handle`)
	if err != nil {
		return nil, classifyPgError(fmt.Errorf("store: list blobs: %w", err))
	}
	defer rows.Close()

	var out []*value.Blob
	for rows.Next() {
		var raw []byte
		var id int64
		if err := rows.Scan(&raw, &id); err != nil {
			return nil, classifyPgError(fmt.Errorf("store: scan blob row: %w", err))
		}
		d, err := toBlobDigest(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, &value.Blob{ID: id, Handle: d})
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPgError(err)
	}
	return out, nil
}
