package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"triplestore/internal/registry"
	"triplestore/internal/store"
	"triplestore/internal/value"
)

// Well-known predicate handles for transaction bookkeeping, derived
// deterministically so every server instance agrees on them without
// any bootstrap step — a fixed, name-derived handle rather than a
// randomly generated one.
var (
	predCreatedBy = value.NewNamedHandle("triplestore:created_by")
	predCreatedAt = value.NewNamedHandle("triplestore:created_at")
)

// createTransaction implements POST /statements/transaction: it
// creates the caller's batch exactly as POST /statements does, then
// wraps it with two bookkeeping statements recording who and when
// against a fresh self-referential statement identifying the
// transaction itself.
func (h *handlers) createTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var rows []createRow
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		writeError(w, fmt.Errorf("%w: %v", value.ErrParse, err))
		return
	}

	principal := principalFromContext(ctx)
	if principal == "" {
		principal = "anonymous"
	}

	reg := registry.New()
	created, err := buildStatementBatch(reg, rows)
	if err != nil {
		writeError(w, err)
		return
	}

	txHandle := value.NewStatementHandle()
	txStmt := reg.UniqueStatement(&value.Statement{Handle: txHandle})
	reg.UniqueStatement(&value.Statement{
		Handle: txHandle, Subject: txStmt, Predicate: txStmt, Object: value.FromStatement(txStmt), HasTriple: true,
	})

	createdByPred := reg.UniqueStatement(&value.Statement{Handle: predCreatedBy})
	createdAtPred := reg.UniqueStatement(&value.Statement{Handle: predCreatedAt})

	reg.UniqueStatement(&value.Statement{
		Handle: value.NewStatementHandle(), Subject: txStmt, Predicate: createdByPred,
		Object: value.FromString(principal), HasTriple: true,
	})
	reg.UniqueStatement(&value.Statement{
		Handle: value.NewStatementHandle(), Subject: txStmt, Predicate: createdAtPred,
		Object: value.FromDatetime(time.Now().UTC()), HasTriple: true,
	})

	tx, err := h.db.Begin(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	repo := store.NewRepository(tx)

	if err := repo.CreateStatements(ctx, reg); err != nil {
		_ = tx.Rollback(ctx)
		writeError(w, err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		writeError(w, err)
		return
	}

	out := make([]string, len(created))
	for i, hv := range created {
		out[i] = value.HandleString(hv)
	}
	writeJSON(w, http.StatusOK, struct {
		Handles     []string `json:"handles"`
		Transaction string   `json:"transaction"`
	}{Handles: out, Transaction: value.HandleString(txHandle)})
}
