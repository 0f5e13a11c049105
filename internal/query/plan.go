// Package query compiles a nested query mapping into a Plan: a join
// graph of entity aliases plus the filter, ordering, preference, and
// having lists the executor turns into SQL. Nothing here touches a
// database connection — that is internal/query/exec's job.
package query

import "triplestore/internal/value"

// Direction classifies how an entity's row relates to its parent
// entity.
type Direction string

const (
	DirForward      Direction = "match_object"  // MatchObject(pred)
	DirReverse      Direction = "match_subject" // MatchSubject(pred)
	DirMetaObject   Direction = "meta_object"   // MetaObject(pred)
	DirMetaSubject  Direction = "meta_subject"  // MetaSubject(pred)
	DirFetchObject  Direction = "fetch_object"  // FetchObject(pred)
	DirFetchSubject Direction = "fetch_subject" // FetchSubject(pred)
)

// IsFetchOnly reports whether d drives only the secondary fetch, never
// the primary WHERE.
func (d Direction) IsFetchOnly() bool {
	return d == DirFetchObject || d == DirFetchSubject
}

// Descriptor is one join-entity descriptor: a direction plus an
// optional predicate restriction. A nil Predicate means "any
// predicate".
type Descriptor struct {
	Direction Direction
	Predicate *value.StatementHandle
}

// JoinEntity is one materialized (or not-yet-materialized) alias in
// the join graph. Entity "main" is the root and carries a zero
// Descriptor and empty Parent.
type JoinEntity struct {
	Alias      string
	Parent     string
	Descriptor Descriptor
}

// Filter is one WHERE (or HAVING, when held in Plan.Havings) condition
// against an entity's object column.
type Filter struct {
	Entity string
	Op     value.CompareOp
	Value  value.Value   // meaningful when Op != OpIn
	Values []value.Value // meaningful when Op == OpIn
}

// OrderEntry is one client-facing ORDER BY column (sort / sort+).
type OrderEntry struct {
	Entity string
	Desc   bool
}

// PreferEntry is one tie-break column applied inside the inner SELECT,
// before DISTINCT ON collapses duplicate handles (prefer+).
// Preference is always most-preferred-first, i.e. descending.
type PreferEntry struct {
	Entity string
}

// Plan is the fully compiled query: the join graph plus every list the
// executor needs to assemble SQL.
type Plan struct {
	Target value.Kind
	After  string
	Limit  int

	Entities map[string]*JoinEntity
	Filters  []Filter
	Havings  []Filter
	Orders   []OrderEntry
	Prefers  []PreferEntry
	Fetches  []string // aliases whose descriptor is fetch-only

	aliasSeq int
}

func newPlan(target value.Kind, after string, limit int) *Plan {
	p := &Plan{
		Target:   target,
		After:    after,
		Limit:    limit,
		Entities: make(map[string]*JoinEntity),
	}
	p.Entities["main"] = &JoinEntity{Alias: "main"}
	return p
}

func (p *Plan) newAlias() string {
	p.aliasSeq++
	return aliasName(p.aliasSeq)
}

func aliasName(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	if n < len(letters) {
		return "e_" + string(letters[n])
	}
	return "e_" + string(letters[n%len(letters)]) + itoa(n/len(letters))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
