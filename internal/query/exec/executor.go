package exec

import (
	"context"
	"fmt"

	"triplestore/internal/query"
	"triplestore/internal/registry"
	"triplestore/internal/store"
	"triplestore/internal/value"
)

// Executor runs a compiled plan against a Repository and assembles the
// two-container response: a page of primary references plus a
// dictionary of additional statements pulled in by Fetch* descriptors.
type Executor struct {
	repo *store.Repository
}

// New builds an Executor bound to repo.
func New(repo *store.Repository) *Executor {
	return &Executor{repo: repo}
}

// Page is one page of query results.
type Page struct {
	// Handles holds the primary result when the query target is
	// Statement.
	Handles []value.StatementHandle
	// Digests holds the primary result when the query target is Blob.
	Digests []value.BlobDigest
	More    bool

	// Additional maps a serialized statement handle to the statement
	// pulled in by a Fetch* descriptor.
	Additional map[string]*value.Statement
}

// Execute runs the query in stages: materialize-joins ->
// primary-select -> results -> fetch-additional -> assemble-response.
// Compile itself happens before this is called (see query.Compile);
// everything from materialize-joins onward lives here.
func (e *Executor) Execute(ctx context.Context, plan *query.Plan) (*Page, error) {
	built, err := buildPrimary(ctx, e.repo, plan)
	if err != nil {
		return nil, err
	}

	rows, err := e.repo.Query(ctx, built.sql, built.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type primaryRow struct {
		id     int64
		handle []byte
	}
	var primary []primaryRow
	for rows.Next() {
		var pr primaryRow
		if err := rows.Scan(&pr.id, &pr.handle); err != nil {
			return nil, fmt.Errorf("query: scan primary row: %w", err)
		}
		primary = append(primary, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	more := len(primary) > plan.Limit
	if more {
		primary = primary[:plan.Limit]
	}

	page := &Page{Additional: make(map[string]*value.Statement), More: more}
	primaryIDs := make([]int64, len(primary))
	for i, pr := range primary {
		primaryIDs[i] = pr.id
		if plan.Target == value.KindBlob {
			d, err := toDigest(pr.handle)
			if err != nil {
				return nil, err
			}
			page.Digests = append(page.Digests, d)
		} else {
			h, err := toHandle(pr.handle)
			if err != nil {
				return nil, err
			}
			page.Handles = append(page.Handles, h)
		}
	}

	if len(plan.Fetches) > 0 && len(primaryIDs) > 0 {
		reg := registry.New()
		stmts, err := e.fetchAdditional(ctx, reg, plan, primaryIDs)
		if err != nil {
			return nil, err
		}
		for _, s := range stmts {
			page.Additional[value.HandleString(s.Handle)] = s
		}
	}

	return page, nil
}

// fetchAdditional realizes every Fetch* descriptor: for each one, it
// rebuilds the join graph from main out to that alias, selects the
// alias's own id for every primary row, and then loads the full
// statement for every id collected.
func (e *Executor) fetchAdditional(ctx context.Context, reg *registry.Registry, plan *query.Plan, primaryIDs []int64) ([]*value.Statement, error) {
	idSet := make(map[int64]bool)

	for _, alias := range plan.Fetches {
		chain := ancestorChain(plan, alias)

		predicateIDs, err := resolvePredicateIDs(ctx, e.repo, plan, chain)
		if err != nil {
			return nil, err
		}

		args := &argList{}
		from, err := buildFrom(plan, chain, predicateIDs, args)
		if err != nil {
			return nil, err
		}

		placeholder := args.add(primaryIDs)
		sql := fmt.Sprintf("SELECT DISTINCT %s.id FROM %s WHERE main.id = ANY(%s)", alias, from, placeholder)

		rows, err := e.repo.Query(ctx, sql, args.args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("query: scan fetch row: %w", err)
			}
			idSet[id] = true
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}

	if len(idSet) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	handles, err := e.resolveHandlesByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	return e.repo.GetByHandles(ctx, reg, handles)
}

func (e *Executor) resolveHandlesByID(ctx context.Context, ids []int64) ([]value.StatementHandle, error) {
	rows, err := e.repo.Query(ctx, `SELECT handle FROM statement WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []value.StatementHandle
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("query: scan handle by id: %w", err)
		}
		h, err := toHandle(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ancestorChain returns the entity chain from "main" down to alias
// (inclusive), the shape buildFrom expects for a single-branch join.
func ancestorChain(plan *query.Plan, alias string) []string {
	var chain []string
	for k := alias; k != "" && k != "main"; k = plan.Entities[k].Parent {
		chain = append([]string{k}, chain...)
	}
	return chain
}

func toHandle(b []byte) (value.StatementHandle, error) {
	var h value.StatementHandle
	if len(b) != len(h) {
		return h, fmt.Errorf("query: malformed handle length %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}

func toDigest(b []byte) (value.BlobDigest, error) {
	var d value.BlobDigest
	if len(b) != len(d) {
		return d, fmt.Errorf("query: malformed digest length %d", len(b))
	}
	copy(d[:], b)
	return d, nil
}
