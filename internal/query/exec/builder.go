// Package exec assembles a compiled query.Plan into SQL and runs it.
// It owns every database round trip a query needs: the
// predicate-handle-to-id lookups the join graph requires, the primary
// DISTINCT ON select, the optional outer select for order/having, and
// the secondary fetch for Fetch* descriptors.
package exec

import (
	"context"
	"fmt"
	"strings"

	"triplestore/internal/query"
	"triplestore/internal/registry"
	"triplestore/internal/store"
	"triplestore/internal/value"
)

// builtQuery is one assembled SQL statement plus its positional args.
type builtQuery struct {
	sql  string
	args []any
}

type argList struct {
	args []any
}

func (a *argList) add(v any) string {
	a.args = append(a.args, v)
	return fmt.Sprintf("$%d", len(a.args))
}

// materializeOrder returns the entity aliases that must be joined, in
// parent-before-child order, to satisfy every Filter/Having/Order/
// Prefer reference in plan. A fetch-only entity is joined here only
// when one of those lists references it (e.g. a filter nested under
// it); otherwise it is realized only in the secondary fetch query.
func materializeOrder(plan *query.Plan) ([]string, error) {
	needed := make(map[string]bool)
	mark := func(entity string) {
		for entity != "" && entity != "main" && !needed[entity] {
			needed[entity] = true
			e, ok := plan.Entities[entity]
			if !ok {
				return
			}
			entity = e.Parent
		}
	}
	for _, f := range plan.Filters {
		mark(f.Entity)
	}
	for _, f := range plan.Havings {
		mark(f.Entity)
	}
	for _, o := range plan.Orders {
		mark(o.Entity)
	}
	for _, p := range plan.Prefers {
		mark(p.Entity)
	}

	var order []string
	placed := map[string]bool{"main": true}
	for len(order) < len(needed) {
		progressed := false
		for entity := range needed {
			if placed[entity] {
				continue
			}
			parent := plan.Entities[entity].Parent
			if placed[parent] {
				order = append(order, entity)
				placed[entity] = true
				progressed = true
			}
		}
		if !progressed {
			return nil, fmt.Errorf("%w: unsatisfiable join order", query.ErrQueryShape)
		}
	}
	return order, nil
}

// resolvePredicateIDs resolves every descriptor predicate referenced
// in entities to a statement row id, using the sentinel NoRowID for an
// unresolved handle: the query still runs, the join condition just
// matches nothing.
func resolvePredicateIDs(ctx context.Context, repo *store.Repository, plan *query.Plan, entities []string) (map[string]int64, error) {
	ids := make(map[string]int64)
	for _, alias := range entities {
		pred := plan.Entities[alias].Descriptor.Predicate
		if pred == nil {
			continue
		}
		id, err := repo.ResolveStatementID(ctx, *pred)
		if err != nil {
			return nil, err
		}
		ids[alias] = id
	}
	return ids, nil
}

// buildFrom emits the FROM clause and every JOIN for entities, using
// query.RoleColumns for each join condition. Every join is a LEFT
// JOIN: an entity with no WHERE filter must not drop a main row that
// simply lacks that attribute, since sort/prefer/having entities
// narrow ordering and tie-breaking, not membership.
func buildFrom(plan *query.Plan, entities []string, predicateIDs map[string]int64, args *argList) (string, error) {
	rootTable := "statement"
	if plan.Target == value.KindBlob {
		rootTable = "blob"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s main", rootTable)

	for _, alias := range entities {
		e := plan.Entities[alias]
		parentIsRoot := e.Parent == "main"
		parentIsBlobRow := parentIsRoot && plan.Target == value.KindBlob

		lhs, rhs, err := query.RoleColumns(e.Descriptor, parentIsRoot, parentIsBlobRow)
		if err != nil {
			return "", err
		}

		fmt.Fprintf(&b, "\nLEFT JOIN statement %s ON %s.%s = %s.%s", alias, alias, lhs, e.Parent, rhs)
		if id, ok := predicateIDs[alias]; ok {
			fmt.Fprintf(&b, " AND %s.predicate_id = %s", alias, args.add(id))
		}
	}

	return b.String(), nil
}

// buildCondition renders one Filter as a SQL boolean expression. An
// empty "in" list compiles to the literal FALSE rather than a
// malformed "IN ()".
func buildCondition(f query.Filter, args *argList) (string, error) {
	if f.Op == value.OpIn {
		if len(f.Values) == 0 {
			return "FALSE", nil
		}
		column := value.ColumnFor(f.Values[0].Kind)
		if column == "" {
			return "", fmt.Errorf("%w: value kind %s has no storage column", query.ErrQueryShape, f.Values[0].Kind)
		}
		placeholders := make([]string, len(f.Values))
		for i, v := range f.Values {
			dbValue, _, err := value.PrepareForDB(v)
			if err != nil {
				return "", err
			}
			placeholders[i] = args.add(dbValue)
		}
		return fmt.Sprintf("%s.%s IN (%s)", f.Entity, column, strings.Join(placeholders, ", ")), nil
	}

	column := value.ColumnFor(f.Value.Kind)
	if column == "" {
		return "", fmt.Errorf("%w: value kind %s has no storage column", query.ErrQueryShape, f.Value.Kind)
	}
	dbValue, _, err := value.PrepareForDB(f.Value)
	if err != nil {
		return "", err
	}
	placeholder := args.add(dbValue)

	switch f.Op {
	case value.OpEq:
		return fmt.Sprintf("%s.%s = %s", f.Entity, column, placeholder), nil
	case value.OpNe:
		return fmt.Sprintf("%s.%s != %s", f.Entity, column, placeholder), nil
	case value.OpLt:
		return fmt.Sprintf("%s.%s < %s", f.Entity, column, placeholder), nil
	case value.OpLe:
		return fmt.Sprintf("%s.%s <= %s", f.Entity, column, placeholder), nil
	case value.OpGt:
		return fmt.Sprintf("%s.%s > %s", f.Entity, column, placeholder), nil
	case value.OpGe:
		return fmt.Sprintf("%s.%s >= %s", f.Entity, column, placeholder), nil
	case value.OpContains:
		return fmt.Sprintf("%s.%s LIKE '%%' || %s || '%%'", f.Entity, column, placeholder), nil
	case value.OpStartsWith:
		return fmt.Sprintf("%s.%s LIKE %s || '%%'", f.Entity, column, placeholder), nil
	case value.OpEndsWith:
		return fmt.Sprintf("%s.%s LIKE '%%' || %s", f.Entity, column, placeholder), nil
	default:
		return "", fmt.Errorf("%w: unsupported operator %q", query.ErrQueryShape, f.Op)
	}
}

// buildPrimary assembles the inner DISTINCT ON select and the outer
// select wrapping it (spec §4.5). The outer select always applies the
// final ORDER BY and LIMIT; the having filters and client-facing order
// are added to it only when the plan has order or having entries.
func buildPrimary(ctx context.Context, repo *store.Repository, plan *query.Plan) (*builtQuery, error) {
	entities, err := materializeOrder(plan)
	if err != nil {
		return nil, err
	}
	predicateIDs, err := resolvePredicateIDs(ctx, repo, plan, entities)
	if err != nil {
		return nil, err
	}

	// Reference-valued operands come from the codec with no row id;
	// resolve them without creating rows, so an unknown handle gets
	// value.NoRowID and its condition matches nothing.
	refs := registry.New()
	for _, list := range [][]query.Filter{plan.Filters, plan.Havings} {
		for i := range list {
			list[i].Value = refs.UniqueValue(list[i].Value)
			for j := range list[i].Values {
				list[i].Values[j] = refs.UniqueValue(list[i].Values[j])
			}
		}
	}
	if err := repo.FillIDs(ctx, refs, false); err != nil {
		return nil, err
	}

	args := &argList{}
	from, err := buildFrom(plan, entities, predicateIDs, args)
	if err != nil {
		return nil, err
	}

	var wheres []string
	for _, f := range plan.Filters {
		cond, err := buildCondition(f, args)
		if err != nil {
			return nil, err
		}
		wheres = append(wheres, cond)
	}

	if plan.After != "" {
		afterBytes, err := decodeCursor(plan.Target, plan.After)
		if err != nil {
			return nil, err
		}
		wheres = append(wheres, fmt.Sprintf("main.handle > %s", args.add(afterBytes)))
	}

	whereSQL := "TRUE"
	if len(wheres) > 0 {
		whereSQL = strings.Join(wheres, " AND ")
	}

	var innerCols []string
	innerCols = append(innerCols, "main.id AS main_id", "main.handle AS main_handle")
	for i, o := range plan.Orders {
		column := orderColumn(plan, o)
		innerCols = append(innerCols, fmt.Sprintf("%s AS order_col_%d", column, i))
	}
	for i, h := range plan.Havings {
		kind := h.Value.Kind
		if h.Op == value.OpIn {
			kind = value.KindNone
			if len(h.Values) > 0 {
				kind = h.Values[0].Kind
			}
		}
		column := value.ColumnFor(kind)
		if column == "" {
			column = "id"
		}
		innerCols = append(innerCols, fmt.Sprintf("%s.%s AS having_col_%d", h.Entity, column, i))
	}

	innerOrder := []string{"main.handle"}
	for _, p := range plan.Prefers {
		innerOrder = append(innerOrder, preferColumn(plan, p)+" DESC")
	}

	inner := fmt.Sprintf(
		"SELECT DISTINCT ON (main.handle) %s\nFROM %s\nWHERE %s\nORDER BY %s",
		strings.Join(innerCols, ", "), from, whereSQL, strings.Join(innerOrder, ", "),
	)

	if len(plan.Orders) == 0 && len(plan.Havings) == 0 {
		limitPlaceholder := args.add(plan.Limit + 1)
		finalSQL := fmt.Sprintf("SELECT main_id, main_handle FROM (%s) distinct_rows ORDER BY main_handle LIMIT %s", inner, limitPlaceholder)
		return &builtQuery{sql: finalSQL, args: args.args}, nil
	}

	var outerWhere []string
	for i, h := range plan.Havings {
		cond, err := buildHavingCondition(h, i, args)
		if err != nil {
			return nil, err
		}
		outerWhere = append(outerWhere, cond)
	}
	outerWhereSQL := "TRUE"
	if len(outerWhere) > 0 {
		outerWhereSQL = strings.Join(outerWhere, " AND ")
	}

	outerOrder := "main_handle"
	if len(plan.Orders) > 0 {
		parts := make([]string, len(plan.Orders))
		for i, o := range plan.Orders {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			parts[i] = fmt.Sprintf("order_col_%d %s", i, dir)
		}
		outerOrder = strings.Join(parts, ", ")
	}

	limitPlaceholder := args.add(plan.Limit + 1)
	finalSQL := fmt.Sprintf(
		"SELECT main_id, main_handle FROM (%s) distinct_rows WHERE %s ORDER BY %s LIMIT %s",
		inner, outerWhereSQL, outerOrder, limitPlaceholder,
	)

	return &builtQuery{sql: finalSQL, args: args.args}, nil
}

func buildHavingCondition(h query.Filter, idx int, args *argList) (string, error) {
	col := fmt.Sprintf("having_col_%d", idx)
	if h.Op == value.OpIn {
		if len(h.Values) == 0 {
			return "FALSE", nil
		}
		placeholders := make([]string, len(h.Values))
		for i, v := range h.Values {
			dbValue, _, err := value.PrepareForDB(v)
			if err != nil {
				return "", err
			}
			placeholders[i] = args.add(dbValue)
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")), nil
	}

	dbValue, _, err := value.PrepareForDB(h.Value)
	if err != nil {
		return "", err
	}
	placeholder := args.add(dbValue)

	switch h.Op {
	case value.OpEq:
		return fmt.Sprintf("%s = %s", col, placeholder), nil
	case value.OpNe:
		return fmt.Sprintf("%s != %s", col, placeholder), nil
	case value.OpLt:
		return fmt.Sprintf("%s < %s", col, placeholder), nil
	case value.OpLe:
		return fmt.Sprintf("%s <= %s", col, placeholder), nil
	case value.OpGt:
		return fmt.Sprintf("%s > %s", col, placeholder), nil
	case value.OpGe:
		return fmt.Sprintf("%s >= %s", col, placeholder), nil
	default:
		return "", fmt.Errorf("%w: unsupported having operator %q", query.ErrQueryShape, h.Op)
	}
}

func orderColumn(plan *query.Plan, o query.OrderEntry) string {
	if o.Entity == "main" {
		return "main.handle"
	}
	return o.Entity + ".id"
}

func preferColumn(plan *query.Plan, p query.PreferEntry) string {
	if p.Entity == "main" {
		return "main.id"
	}
	return p.Entity + ".id"
}

// decodeCursor parses the wire "after" cursor into the raw bytes
// stored in main.handle: a 16-byte statement handle
// when the query target is Statement, a 32-byte blob digest when it is
// Blob. The cursor always arrives hex-encoded, the same format
// value.HandleString/DigestString emit in a page's results.
func decodeCursor(target value.Kind, after string) ([]byte, error) {
	if target == value.KindBlob {
		d, err := value.ParseDigest(after)
		if err != nil {
			return nil, fmt.Errorf("%w: after cursor %q: %v", query.ErrParse, after, err)
		}
		return d[:], nil
	}
	h, err := value.ParseHandle(after)
	if err != nil {
		return nil, fmt.Errorf("%w: after cursor %q: %v", query.ErrParse, after, err)
	}
	return h[:], nil
}
