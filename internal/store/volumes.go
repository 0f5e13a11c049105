package store

import (
	"context"
	"fmt"
)

// Volume is one filesystem root the file index tracks files under.
// Its identity is the caller-supplied reference string (typically a
// mount path or a volume label), not the internal id.
type Volume struct {
	ID        int64
	Reference string
}

// CreateVolume registers a new volume by reference. Creating a volume
// that already exists returns ErrIntegrity (unique-constraint
// violation on reference).
func (r *Repository) CreateVolume(ctx context.Context, reference string) (*Volume, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO volume (reference) VALUES ($1) RETURNING id`, reference)

	var id int64
	if err := row.Scan(&id); err != nil {
		return nil, classifyPgError(fmt.Errorf("store: create volume: %w", err))
	}
	return &Volume{ID: id, Reference: reference}, nil
}

// GetVolume looks up a volume by reference.
func (r *Repository) GetVolume(ctx context.Context, reference string) (*Volume, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, reference FROM volume WHERE reference = $1`, reference)

	var v Volume
	if err := row.Scan(&v.ID, &v.Reference); err != nil {
		return nil, classifyPgError(fmt.Errorf("store: get volume: %w", err))
	}
	return &v, nil
}

// ListVolumes returns every registered volume, ordered by reference.
func (r *Repository) ListVolumes(ctx context.Context) ([]*Volume, error) {
	rows, err := r.db.Query(ctx, `SELECT id, reference FROM volume ORDER BY reference`)
	if err != nil {
		return nil, classifyPgError(fmt.Errorf("store: list volumes: %w", err))
	}
	defer rows.Close()

	var out []*Volume
	for rows.Next() {
		var v Volume
		if err := rows.Scan(&v.ID, &v.Reference); err != nil {
			return nil, classifyPgError(fmt.Errorf("store: scan volume row: %w", err))
		}
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPgError(err)
	}
	return out, nil
}

// DeleteVolume removes a volume and every file indexed under it (the
// file table's volume_id foreign key has no cascade, so the files are
// deleted first, by a separate DELETE on the same connection or
// transaction).
func (r *Repository) DeleteVolume(ctx context.Context, reference string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM file WHERE volume_id = (SELECT id FROM volume WHERE reference = $1)`, reference)
	if err != nil {
		return classifyPgError(fmt.Errorf("store: delete volume files: %w", err))
	}
	_ = tag

	tag, err = r.db.Exec(ctx, `DELETE FROM volume WHERE reference = $1`, reference)
	if err != nil {
		return classifyPgError(fmt.Errorf("store: delete volume: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: volume %q", ErrNotFound, reference)
	}
	return nil
}
