package store

import (
	"context"
	"fmt"
	"time"

	"triplestore/internal/value"
)

// File is one path entry of a volume's file index. Path is kept as raw
// bytes rather than a string since volumes may index filesystems with
// non-UTF-8 path encodings.
type File struct {
	ID         int64
	VolumeID   int64
	BlobID     int64
	Path       []byte
	Size       int64
	MTime      *time.Time
	LastVerify *time.Time
}

// FileMutation is one upserted entry of an UpsertAndDeleteFiles call:
// the observed state of a path, to be reconciled against the index.
type FileMutation struct {
	Path  []byte
	Blob  value.BlobDigest
	Size  int64
	MTime time.Time
}

// UpsertAndDeleteFiles applies a partial batch against a volume's file
// index: every entry in upserts is upserted, and every path in
// deletePaths is removed, leaving every other existing row untouched
// (a null entry in the HTTP body means delete, a present one means
// upsert). A mutation referring to a digest never seen before
// registers it implicitly, the same way a fresh file upload does.
func (r *Repository) UpsertAndDeleteFiles(ctx context.Context, volumeRef string, upserts []FileMutation, deletePaths [][]byte) error {
	vol, err := r.GetVolume(ctx, volumeRef)
	if err != nil {
		return err
	}

	if len(upserts) > 0 {
		paths := make([][]byte, len(upserts))
		blobIDs := make([]int64, len(upserts))
		sizes := make([]int64, len(upserts))
		mtimes := make([]time.Time, len(upserts))

		for i, m := range upserts {
			blob, err := r.RegisterBlob(ctx, m.Blob)
			if err != nil {
				return fmt.Errorf("store: upsert file: path %q: %w", m.Path, err)
			}
			paths[i] = m.Path
			blobIDs[i] = blob.ID
			sizes[i] = m.Size
			mtimes[i] = m.MTime
		}

		_, err = r.db.Exec(ctx, `
			INSERT INTO file (volume_id, blob_id, path, size, mtime, lastverify)
			SELECT $1, b, p, s, m, now()
			FROM unnest($2::bigint[], $3::bytea[], $4::bigint[], $5::timestamptz[]) AS t(b, p, s, m)
			ON CONFLICT (volume_id, path) DO UPDATE SET
				blob_id    = EXCLUDED.blob_id,
				size       = EXCLUDED.size,
				mtime      = EXCLUDED.mtime,
				lastverify = EXCLUDED.lastverify`,
			vol.ID, blobIDs, paths, sizes, mtimes)
		if err != nil {
			return classifyPgError(fmt.Errorf("store: upsert volume files: %w", err))
		}
	}

	if len(deletePaths) > 0 {
		if _, err := r.db.Exec(ctx,
			`DELETE FROM file WHERE volume_id = $1 AND path = ANY($2::bytea[])`,
			vol.ID, deletePaths); err != nil {
			return classifyPgError(fmt.Errorf("store: delete volume files: %w", err))
		}
	}

	return nil
}

// GetFileBlob returns the blob indexed at path within volumeRef.
func (r *Repository) GetFileBlob(ctx context.Context, volumeRef string, path []byte) (*value.Blob, error) {
	row := r.db.QueryRow(ctx, `
		SELECT b.handle, b.id
		FROM file f
		JOIN volume v ON v.id = f.volume_id
		JOIN blob b ON b.id = f.blob_id
		WHERE v.reference = $1 AND f.path = $2`, volumeRef, path)

	var raw []byte
	var id int64
	if err := row.Scan(&raw, &id); err != nil {
		return nil, classifyPgError(fmt.Errorf("store: get file blob: %w", err))
	}
	d, err := toBlobDigest(raw)
	if err != nil {
		return nil, err
	}
	return &value.Blob{ID: id, Handle: d}, nil
}

// GetBlobFiles returns every indexed path (in any volume) that
// currently resolves to digest.
func (r *Repository) GetBlobFiles(ctx context.Context, digest value.BlobDigest) ([]*File, error) {
	rows, err := r.db.Query(ctx, `
		SELECT f.id, f.volume_id, f.blob_id, f.path, f.size, f.mtime, f.lastverify
		FROM file f
		JOIN blob b ON b.id = f.blob_id
		WHERE b.handle = $1
		ORDER BY f.volume_id, f.path`, digest[:])
	if err != nil {
		return nil, classifyPgError(fmt.Errorf("store: get blob files: %w", err))
	}
	defer rows.Close()
	return scanFileRows(rows)
}

// ListFilesOptions bounds a ListFiles page. An empty After starts from
// the beginning. PathPrefix restricts to paths sharing that prefix.
// WithoutStatements restricts to files whose blob is not referenced as
// the object of any persisted statement — a maintenance view for
// finding indexed content nothing in the graph points at.
type ListFilesOptions struct {
	After             []byte
	PathPrefix        []byte
	Limit             int
	WithoutStatements bool
}

// ListFiles pages through a volume's file index ordered by path.
func (r *Repository) ListFiles(ctx context.Context, volumeRef string, opts ListFilesOptions) ([]*File, error) {
	vol, err := r.GetVolume(ctx, volumeRef)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT f.id, f.volume_id, f.blob_id, f.path, f.size, f.mtime, f.lastverify
		FROM file f
		WHERE f.volume_id = $1`
	args := []any{vol.ID}

	if len(opts.After) > 0 {
		args = append(args, opts.After)
		query += fmt.Sprintf(" AND f.path > $%d", len(args))
	}
	if len(opts.PathPrefix) > 0 {
		args = append(args, opts.PathPrefix)
		query += fmt.Sprintf(" AND f.path LIKE $%d || '%%'", len(args))
	}
	if opts.WithoutStatements {
		query += ` AND NOT EXISTS (SELECT 1 FROM statement s WHERE s.object_blob_id = f.blob_id)`
	}
	query += " ORDER BY f.path"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classifyPgError(fmt.Errorf("store: list files: %w", err))
	}
	defer rows.Close()
	return scanFileRows(rows)
}

func scanFileRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*File, error) {
	var out []*File
	for rows.Next() {
		f := &File{}
		if err := rows.Scan(&f.ID, &f.VolumeID, &f.BlobID, &f.Path, &f.Size, &f.MTime, &f.LastVerify); err != nil {
			return nil, classifyPgError(fmt.Errorf("store: scan file row: %w", err))
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPgError(err)
	}
	return out, nil
}
