package query

import (
	"fmt"
	"strings"

	"triplestore/internal/value"
)

// keyKind classifies one key of a query mapping frame.
type keyKind int

const (
	keyFilter keyKind = iota
	keyDescriptor
	keySortAsc
	keySortDesc
	keyPrefer
	keyHaving
)

// parsedKey is the result of parsing one mapping key.
type parsedKey struct {
	kind       keyKind
	op         value.CompareOp  // set when kind == keyFilter or keyHaving
	descriptor Descriptor       // set when kind == keyDescriptor
}

// parseKey classifies a single key from a query mapping. Descriptor
// keys have the form "<direction>.<predicate>", where predicate is
// either a hex statement handle or "*" for "any predicate". Filter
// keys are bare comparison-operator names. A trailing "." turns a
// filter key into a having post-filter.
func parseKey(key string) (parsedKey, error) {
	switch key {
	case "sort":
		return parsedKey{kind: keySortAsc}, nil
	case "sort+":
		return parsedKey{kind: keySortDesc}, nil
	case "prefer+":
		return parsedKey{kind: keyPrefer}, nil
	}

	if strings.HasSuffix(key, ".") {
		base := strings.TrimSuffix(key, ".")
		op, ok := value.ValidOp(base)
		if !ok {
			return parsedKey{}, fmt.Errorf("%w: unrecognized having key %q", ErrQueryShape, key)
		}
		return parsedKey{kind: keyHaving, op: op}, nil
	}

	if op, ok := value.ValidOp(key); ok {
		return parsedKey{kind: keyFilter, op: op}, nil
	}

	dir, predRaw, ok := strings.Cut(key, ".")
	if !ok {
		return parsedKey{}, fmt.Errorf("%w: unrecognized key %q", ErrQueryShape, key)
	}

	direction, ok := parseDirection(dir)
	if !ok {
		return parsedKey{}, fmt.Errorf("%w: unrecognized descriptor %q", ErrQueryShape, key)
	}

	var pred *value.StatementHandle
	if predRaw != "*" && predRaw != "" {
		h, err := value.ParseHandle(predRaw)
		if err != nil {
			return parsedKey{}, fmt.Errorf("%w: predicate %q: %v", ErrParse, predRaw, err)
		}
		pred = &h
	}

	return parsedKey{kind: keyDescriptor, descriptor: Descriptor{Direction: direction, Predicate: pred}}, nil
}

func parseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case DirForward, DirReverse, DirMetaObject, DirMetaSubject, DirFetchObject, DirFetchSubject:
		return Direction(s), true
	default:
		return "", false
	}
}

// coerceNode turns one raw JSON-decoded node (string or []any) into
// either a scalar value.Value or a slice of them (for an "in" filter);
// any other node type, a nested map included, is a parse error. An empty list is preserved rather than rejected: an
// empty "in" filter is valid and compiles to a condition that matches
// nothing, rather than every row.
func coerceNode(node any) (scalar value.Value, list []value.Value, err error) {
	switch v := node.(type) {
	case string:
		scalar, err = value.Deserialize(v)
		return scalar, nil, err
	case []any:
		list = make([]value.Value, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return value.Value{}, nil, fmt.Errorf("%w: non-string element in list", ErrParse)
			}
			val, err := value.Deserialize(s)
			if err != nil {
				return value.Value{}, nil, err
			}
			list = append(list, val)
		}
		return value.Value{}, list, nil
	default:
		return value.Value{}, nil, fmt.Errorf("%w: unsupported node type %T", ErrParse, node)
	}
}
