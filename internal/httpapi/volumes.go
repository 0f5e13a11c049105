package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"triplestore/internal/store"
)

type volumeJSON struct {
	Reference string `json:"reference"`
}

func (h *handlers) createVolume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref := chi.URLParam(r, "ref")

	tx, err := h.db.Begin(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	repo := store.NewRepository(tx)

	vol, err := repo.CreateVolume(ctx, ref)
	if err != nil {
		_ = tx.Rollback(ctx)
		writeError(w, err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, volumeJSON{Reference: vol.Reference})
}

func (h *handlers) deleteVolume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref := chi.URLParam(r, "ref")

	tx, err := h.db.Begin(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	repo := store.NewRepository(tx)

	if err := repo.DeleteVolume(ctx, ref); err != nil {
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

func (h *handlers) getVolume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref := chi.URLParam(r, "ref")

	repo := store.NewRepository(h.db.Pool())
	vol, err := repo.GetVolume(ctx, ref)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, volumeJSON{Reference: vol.Reference})
}

func (h *handlers) listVolumes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	repo := store.NewRepository(h.db.Pool())

	vols, err := repo.ListVolumes(ctx)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]volumeJSON, len(vols))
	for i, v := range vols {
		out[i] = volumeJSON{Reference: v.Reference}
	}
	writeJSON(w, http.StatusOK, out)
}
