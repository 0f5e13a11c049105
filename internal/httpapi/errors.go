package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"triplestore/internal/query"
	"triplestore/internal/store"
	"triplestore/internal/value"
)

// errorResponse is the JSON body written for every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps err to an HTTP status by sentinel kind and writes a
// JSON body naming it. Nothing is ever logged silently here — the
// caller's request-logging middleware records the final status.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrTripleConflict):
		status = http.StatusConflict
	case errors.Is(err, store.ErrTransient):
		status = http.StatusServiceUnavailable
	case errors.Is(err, store.ErrIntegrity):
		status = http.StatusInternalServerError
	case errors.Is(err, query.ErrQueryShape), errors.Is(err, query.ErrParse):
		status = http.StatusBadRequest
	case errors.Is(err, value.ErrParse), errors.Is(err, value.ErrUnknownKind):
		status = http.StatusBadRequest
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
