package query

import (
	"fmt"

	"triplestore/internal/value"
)

type frame struct {
	node      any
	entityKey string
}

// Compile turns a decoded query node into a Plan. target names the
// kind the primary entity resolves to ("statement" or "blob"); after
// is the opaque cursor from the previous page, or "" for the first
// page.
//
// Compilation walks a work stack of (subquery, entity_key) frames
// instead of recursing — there is no recursion anywhere in this
// function, only push/pop.
func Compile(node any, target value.Kind, after string, limit int) (*Plan, error) {
	plan := newPlan(target, after, limit)

	stack := []frame{{node: node, entityKey: "main"}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		m, ok := f.node.(map[string]any)
		if !ok {
			scalar, _, err := coerceNode(f.node)
			if err != nil {
				return nil, err
			}
			plan.Filters = append(plan.Filters, Filter{Entity: f.entityKey, Op: value.OpEq, Value: scalar})
			continue
		}

		for key, val := range m {
			parsed, err := parseKey(key)
			if err != nil {
				return nil, err
			}

			switch parsed.kind {
			case keyDescriptor:
				alias := plan.newAlias()
				plan.Entities[alias] = &JoinEntity{
					Alias:      alias,
					Parent:     f.entityKey,
					Descriptor: parsed.descriptor,
				}
				if parsed.descriptor.Direction.IsFetchOnly() {
					plan.Fetches = append(plan.Fetches, alias)
				}

				if sub, ok := val.(map[string]any); ok {
					stack = append(stack, frame{node: sub, entityKey: alias})
				} else {
					scalar, list, err := coerceNode(val)
					if err != nil {
						return nil, err
					}
					if list != nil {
						plan.Filters = append(plan.Filters, Filter{Entity: alias, Op: value.OpIn, Values: list})
					} else {
						plan.Filters = append(plan.Filters, Filter{Entity: alias, Op: value.OpEq, Value: scalar})
					}
				}

			case keySortAsc:
				plan.Orders = append(plan.Orders, OrderEntry{Entity: f.entityKey, Desc: false})
			case keySortDesc:
				plan.Orders = append(plan.Orders, OrderEntry{Entity: f.entityKey, Desc: true})
			case keyPrefer:
				plan.Prefers = append(plan.Prefers, PreferEntry{Entity: f.entityKey})

			case keyHaving:
				scalar, list, err := coerceNode(val)
				if err != nil {
					return nil, err
				}
				plan.Havings = append(plan.Havings, Filter{Entity: f.entityKey, Op: parsed.op, Value: scalar, Values: list})

			case keyFilter:
				scalar, list, err := coerceNode(val)
				if err != nil {
					return nil, err
				}
				plan.Filters = append(plan.Filters, Filter{Entity: f.entityKey, Op: parsed.op, Value: scalar, Values: list})

			default:
				return nil, fmt.Errorf("%w: unhandled key kind for %q", ErrQueryShape, key)
			}
		}
	}

	return plan, nil
}

// RoleColumns resolves the join-condition columns for one non-main
// entity. Every join role decision in the executor goes through this
// one function, so there is exactly one place that could ever miss a
// case. Every joined entity other than "main" is itself a
// statement row — a Blob is never traversed further, it only ever
// terminates a chain as an object value — so the only place a Blob
// table can appear at all is as "main" when the query target is Blob.
//
// lhsRole names the column on the new alias; rhsRole names the column
// on the parent alias. parentIsRoot is true when the parent entity is
// "main". parentIsBlobRow is true when the parent entity is "main" and
// the query target is Blob (the one case where the parent row itself
// lives in the blob table rather than statement).
func RoleColumns(d Descriptor, parentIsRoot, parentIsBlobRow bool) (lhsRole, rhsRole string, err error) {
	switch d.Direction {
	case DirForward, DirFetchObject:
		lhsRole = "subject_id"
		if parentIsRoot {
			rhsRole = "id"
		} else {
			// Forward traversal only makes sense through a
			// Statement-valued object; that object lives in the
			// parent's object_statement_id column.
			rhsRole = string(value.ColumnObjectStatement)
		}
		return lhsRole, rhsRole, nil

	case DirReverse, DirFetchSubject:
		if parentIsBlobRow {
			lhsRole = string(value.ColumnObjectBlob)
		} else {
			lhsRole = string(value.ColumnObjectStatement)
		}
		if parentIsRoot {
			rhsRole = "id"
		} else {
			rhsRole = "subject_id"
		}
		return lhsRole, rhsRole, nil

	case DirMetaObject, DirMetaSubject:
		lhsRole = "subject_id"
		rhsRole = "id"
		return lhsRole, rhsRole, nil

	default:
		return "", "", fmt.Errorf("%w: unknown join direction %q", ErrQueryShape, d.Direction)
	}
}
