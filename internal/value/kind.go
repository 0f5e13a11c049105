// Package value implements the typed-object-value taxonomy: its textual
// wire serialization, the mapping to storage columns, and the per-kind
// comparison operators used by the query compiler.
package value

import "fmt"

// Kind identifies the tagged-union variant of a typed value. Each Kind
// has exactly one storage column (see Column) and exactly one wire
// prefix (see Prefix).
type Kind string

const (
	KindStatement Kind = "statement"
	KindBlob      Kind = "blob"
	KindInteger   Kind = "integer"
	KindDecimal   Kind = "decimal"
	KindString    Kind = "string"
	KindBoolean   Kind = "boolean"
	KindDatetime  Kind = "datetime"
	KindNone      Kind = "none"
)

// Column is the name of the statement table column that stores values
// of a given Kind.
type Column string

const (
	ColumnObjectStatement Column = "object_statement_id"
	ColumnObjectBlob      Column = "object_blob_id"
	ColumnObjectInteger   Column = "object_integer"
	ColumnObjectDecimal   Column = "object_decimal"
	ColumnObjectString    Column = "object_string"
	ColumnObjectBoolean   Column = "object_boolean"
	ColumnObjectDatetime  Column = "object_datetime"
)

// kindInfo holds the per-kind behavior table: one place all
// kind-dependent branching goes through, instead of scattering switch
// statements across the codebase.
type kindInfo struct {
	prefix string
	column Column // "" for KindNone, which has no storage column
	ops    []CompareOp
}

var kindTable = map[Kind]kindInfo{
	KindStatement: {prefix: "s", column: ColumnObjectStatement, ops: refOps},
	KindBlob:      {prefix: "blob", column: ColumnObjectBlob, ops: refOps},
	KindInteger:   {prefix: "int", column: ColumnObjectInteger, ops: orderedOps},
	KindDecimal:   {prefix: "dec", column: ColumnObjectDecimal, ops: orderedOps},
	KindString:    {prefix: "str", column: ColumnObjectString, ops: stringOps},
	KindBoolean:   {prefix: "bool", column: ColumnObjectBoolean, ops: eqOnlyOps},
	KindDatetime:  {prefix: "dt", column: ColumnObjectDatetime, ops: orderedOps},
	KindNone:      {prefix: "none", column: "", ops: eqOnlyOps},
}

var prefixToKind = func() map[string]Kind {
	m := make(map[string]Kind, len(kindTable))
	for k, info := range kindTable {
		m[info.prefix] = k
	}
	return m
}()

// Prefix returns the wire-form prefix for k (e.g. "str" for KindString).
func Prefix(k Kind) string {
	return kindTable[k].prefix
}

// KindForPrefix resolves a wire prefix back to its Kind. ok is false for
// an unrecognized prefix (callers should surface UnknownKind).
func KindForPrefix(prefix string) (Kind, bool) {
	k, ok := prefixToKind[prefix]
	return k, ok
}

// ColumnFor returns the storage column that holds values of kind k. It
// returns "" for KindNone, which has no backing column.
func ColumnFor(k Kind) Column {
	return kindTable[k].column
}

// SupportedOps returns the comparison operators valid for k.
func SupportedOps(k Kind) []CompareOp {
	return kindTable[k].ops
}

// SupportsOp reports whether op is valid for values of kind k.
func SupportsOp(k Kind, op CompareOp) bool {
	for _, o := range kindTable[k].ops {
		if o == op {
			return true
		}
	}
	return false
}

// ValidKind reports whether k is one of the recognized taxonomy members.
func ValidKind(k Kind) bool {
	_, ok := kindTable[k]
	return ok
}

func (k Kind) String() string {
	if !ValidKind(k) {
		return fmt.Sprintf("Kind(%q)", string(k))
	}
	return string(k)
}
