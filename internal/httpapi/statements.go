package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"triplestore/internal/registry"
	"triplestore/internal/store"
	"triplestore/internal/value"
)

func (h *handlers) listStatements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	repo := store.NewRepository(h.db.Pool())

	reg := registry.New()
	stmts, err := repo.GetAllStatements(ctx, reg)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]statementJSON, len(stmts))
	for i, s := range stmts {
		out[i] = toStatementJSON(s)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getStatement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	handle, err := value.ParseHandle(chi.URLParam(r, "handle"))
	if err != nil {
		writeError(w, err)
		return
	}

	repo := store.NewRepository(h.db.Pool())
	reg := registry.New()

	stmts, err := repo.GetByHandles(ctx, reg, []value.StatementHandle{handle})
	if err != nil {
		writeError(w, err)
		return
	}
	if len(stmts) == 0 {
		writeError(w, fmt.Errorf("%w: statement %x", store.ErrNotFound, handle))
		return
	}
	main := stmts[0]

	neighbors, err := neighborhood(ctx, repo, reg, main)
	if err != nil {
		writeError(w, err)
		return
	}

	neighborOut := make([]statementJSON, len(neighbors))
	for i, s := range neighbors {
		neighborOut[i] = toStatementJSON(s)
	}

	writeJSON(w, http.StatusOK, struct {
		Statement    statementJSON   `json:"statement"`
		Neighborhood []statementJSON `json:"neighborhood"`
	}{Statement: toStatementJSON(main), Neighborhood: neighborOut})
}

// neighborhood fetches the statements one hop away from s: rows where
// s is the subject, and rows where s is the object, ordered by handle
// and capped at the first 200.
func neighborhood(ctx context.Context, repo *store.Repository, reg *registry.Registry, s *value.Statement) ([]*value.Statement, error) {
	rows, err := repo.Query(ctx, `
		SELECT handle FROM statement
		WHERE subject_id = $1 OR object_statement_id = $1
		ORDER BY handle LIMIT 200`, s.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var handles []value.StatementHandle
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var hv value.StatementHandle
		copy(hv[:], raw)
		handles = append(handles, hv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return repo.GetByHandles(ctx, reg, handles)
}

func (h *handlers) createStatements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var rows []createRow
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		writeError(w, fmt.Errorf("%w: %v", value.ErrParse, err))
		return
	}

	reg := registry.New()
	created, err := buildStatementBatch(reg, rows)
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
	writeJSON(w, http.StatusOK, out)
}

// buildStatementBatch decodes a create-statements body into the
// registry, resolving index references against the handles assigned
// earlier in the same batch or to the row being decoded (so a row may
// refer to itself). Forward references (to a row later in the batch)
// are disallowed.
func buildStatementBatch(reg *registry.Registry, rows []createRow) ([]value.StatementHandle, error) {
	created := make([]value.StatementHandle, 0, len(rows))

	for _, row := range rows {
		var handle value.StatementHandle
		if isNull(row[0]) {
			handle = value.NewStatementHandle()
		} else {
			s, ok := refString(row[0])
			if !ok {
				return nil, fmt.Errorf("%w: malformed handle slot", value.ErrParse)
			}
			h, err := value.ParseHandle(s)
			if err != nil {
				return nil, err
			}
			handle = h
		}
		created = append(created, handle)

		subjHandle, err := resolveHandleRef(row[1], created)
		if err != nil {
			return nil, err
		}
		predHandle, err := resolveHandleRef(row[2], created)
		if err != nil {
			return nil, err
		}
		object, err := resolveObjectRef(row[3], created)
		if err != nil {
			return nil, err
		}

		subj := reg.UniqueStatement(&value.Statement{Handle: subjHandle})
		pred := reg.UniqueStatement(&value.Statement{Handle: predHandle})
		object = reg.UniqueValue(object)

		reg.UniqueStatement(&value.Statement{
			Handle: handle, Subject: subj, Predicate: pred, Object: object, HasTriple: true,
		})
	}

	return created, nil
}
