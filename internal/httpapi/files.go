package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"triplestore/internal/store"
	"triplestore/internal/value"
)

type fileJSON struct {
	Path       string     `json:"path"`
	Sha256     string     `json:"sha256"`
	Size       int64      `json:"size"`
	Mtime      *time.Time `json:"mtime,omitempty"`
	LastVerify *time.Time `json:"lastverify,omitempty"`
}

func toFileJSON(f *store.File, digest value.BlobDigest) fileJSON {
	return fileJSON{
		Path:       base64.URLEncoding.EncodeToString(f.Path),
		Sha256:     value.DigestString(digest),
		Size:       f.Size,
		Mtime:      f.MTime,
		LastVerify: f.LastVerify,
	}
}

func (h *handlers) listFiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vol := chi.URLParam(r, "vol")
	q := r.URL.Query()

	opts := store.ListFilesOptions{WithoutStatements: q.Get("without_statements") == "true"}
	if raw := q.Get("after"); raw != "" {
		b, err := base64.URLEncoding.DecodeString(raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: after %q: %v", value.ErrParse, raw, err))
			return
		}
		opts.After = b
	}
	if raw := q.Get("path"); raw != "" {
		b, err := base64.URLEncoding.DecodeString(raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: path %q: %v", value.ErrParse, raw, err))
			return
		}
		opts.PathPrefix = b
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, fmt.Errorf("%w: limit %q", value.ErrParse, raw))
			return
		}
		opts.Limit = n
	}

	repo := store.NewRepository(h.db.Pool())
	files, err := repo.ListFiles(ctx, vol, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]fileJSON, len(files))
	for i, f := range files {
		digest, err := resolveBlobByID(ctx, repo, f.BlobID)
		if err != nil {
			writeError(w, err)
			return
		}
		out[i] = toFileJSON(f, digest)
	}
	writeJSON(w, http.StatusOK, out)
}

func resolveBlobByID(ctx context.Context, repo *store.Repository, id int64) (value.BlobDigest, error) {
	rows, err := repo.Query(ctx, `SELECT handle FROM blob WHERE id = $1`, id)
	if err != nil {
		return value.BlobDigest{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		return value.BlobDigest{}, fmt.Errorf("%w: blob id %d", store.ErrNotFound, id)
	}
	var raw []byte
	if err := rows.Scan(&raw); err != nil {
		return value.BlobDigest{}, err
	}
	var d value.BlobDigest
	copy(d[:], raw)
	return d, rows.Err()
}

func (h *handlers) getFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vol := chi.URLParam(r, "vol")
	pathParam := chi.URLParam(r, "path")

	path, err := base64.URLEncoding.DecodeString(pathParam)
	if err != nil {
		writeError(w, fmt.Errorf("%w: path %q: %v", value.ErrParse, pathParam, err))
		return
	}

	repo := store.NewRepository(h.db.Pool())
	blob, err := repo.GetFileBlob(ctx, vol, path)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Path   string `json:"path"`
		Sha256 string `json:"sha256"`
	}{Path: pathParam, Sha256: value.DigestString(blob.Handle)})
}

// uploadFileEntry is one non-null value of a POST /volumes/{vol}/files
// body: the full body is a bulk upsert where a null entry means
// delete.
type uploadFileEntry struct {
	Sha256 string    `json:"sha256"`
	Size   int64     `json:"size"`
	Mtime  time.Time `json:"mtime"`
}

func (h *handlers) upsertFiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vol := chi.URLParam(r, "vol")

	var body map[string]*uploadFileEntry
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: %v", value.ErrParse, err))
		return
	}

	var upserts []store.FileMutation
	var deletes [][]byte

	for pathB64, entry := range body {
		path, err := base64.URLEncoding.DecodeString(pathB64)
		if err != nil {
			writeError(w, fmt.Errorf("%w: path %q: %v", value.ErrParse, pathB64, err))
			return
		}
		if entry == nil {
			deletes = append(deletes, path)
			continue
		}
		digest, err := decodeDigestHex(entry.Sha256)
		if err != nil {
			writeError(w, err)
			return
		}
		upserts = append(upserts, store.FileMutation{Path: path, Blob: digest, Size: entry.Size, MTime: entry.Mtime})
	}

	tx, err := h.db.Begin(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	repo := store.NewRepository(tx)

	if err := repo.UpsertAndDeleteFiles(ctx, vol, upserts, deletes); err != nil {
		_ = tx.Rollback(ctx)
		writeError(w, err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func decodeDigestHex(s string) (value.BlobDigest, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 32 {
		return value.BlobDigest{}, fmt.Errorf("%w: sha256 %q", value.ErrParse, s)
	}
	var d value.BlobDigest
	copy(d[:], b)
	return d, nil
}
