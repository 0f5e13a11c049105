// Package httpapi exposes the triple store over HTTP: a go-chi
// router, HTTP Basic Auth, and the JSON wire payloads for statements,
// queries, volumes, files, and blobs.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"triplestore/internal/config"
	"triplestore/internal/logging"
	"triplestore/internal/store"
)

// handlers holds what every endpoint needs: a way to start a
// transaction-bound repository per request and a logger for anything
// worth recording beyond the access log.
type handlers struct {
	db  *store.Store
	log *zap.Logger
}

// New builds the complete HTTP handler: middleware chain, Basic Auth
// gate, and the full route table.
func New(db *store.Store, log *zap.Logger, cfg *config.Config) http.Handler {
	h := &handlers{db: db, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware(log))
	r.Use(basicAuth(cfg.Auth, cfg.Server.AllowAnonymousReads))

	r.Get("/statements", h.listStatements)
	r.Post("/statements", h.createStatements)
	r.Get("/statements/{handle}", h.getStatement)
	r.Post("/statements/query", h.queryByBody)
	r.Post("/statements/transaction", h.createTransaction)
	r.Get("/query/{target}", h.queryByGet)

	r.Put("/volumes/{ref}", h.createVolume)
	r.Delete("/volumes/{ref}", h.deleteVolume)
	r.Get("/volumes/{ref}", h.getVolume)
	r.Get("/volumes", h.listVolumes)

	r.Get("/volumes/{vol}/files", h.listFiles)
	r.Post("/volumes/{vol}/files", h.upsertFiles)
	r.Get("/volumes/{vol}/files/{path}", h.getFile)

	r.Post("/blobs/new", h.registerBlob)
	r.Get("/blobs/{digest}", h.getBlob)
	r.Get("/blobs", h.listBlobs)

	return r
}
