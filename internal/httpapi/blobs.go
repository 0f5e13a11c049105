package httpapi

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"triplestore/internal/store"
	"triplestore/internal/value"
)

type blobJSON struct {
	Sha256 string `json:"sha256"`
}

func (h *handlers) registerBlob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body blobJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: %v", value.ErrParse, err))
		return
	}
	digest, err := decodeDigestHex(body.Sha256)
	if err != nil {
		writeError(w, err)
		return
	}

	tx, err := h.db.Begin(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	repo := store.NewRepository(tx)

	blob, err := repo.RegisterBlob(ctx, digest)
	if err != nil {
		_ = tx.Rollback(ctx)
		writeError(w, err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, blobJSON{Sha256: hex.EncodeToString(blob.Handle[:])})
}

func (h *handlers) getBlob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	digest, err := value.ParseDigest(chi.URLParam(r, "digest"))
	if err != nil {
		writeError(w, err)
		return
	}

	repo := store.NewRepository(h.db.Pool())
	blob, err := repo.GetBlob(ctx, digest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blobJSON{Sha256: value.DigestString(blob.Handle)})
}

func (h *handlers) listBlobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	repo := store.NewRepository(h.db.Pool())

	blobs, err := repo.ListBlobs(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]blobJSON, len(blobs))
	for i, b := range blobs {
		out[i] = blobJSON{Sha256: value.DigestString(b.Handle)}
	}
	writeJSON(w, http.StatusOK, out)
}
