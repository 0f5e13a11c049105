package value

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatementHandle is the externally-assigned 128-bit identifier of a
// Statement. It never leaks an internal row id.
type StatementHandle [16]byte

// BlobDigest is the fixed-width cryptographic digest that identifies a
// Blob. A Blob's digest is its sole identity.
type BlobDigest [32]byte

// NoRowID marks a Statement or Blob whose handle was looked up and has
// no row in the store; a condition bound to it matches nothing. An ID
// of 0 means the reference has not been looked up yet.
const NoRowID int64 = -1

// Statement is a four-tuple (handle, subject, predicate, object). Subject
// and Predicate are themselves Statement references; a Statement may be
// self-referential in any element. ID is the internal row id, assigned
// on first persistence and never exposed to clients.
type Statement struct {
	ID        int64
	Handle    StatementHandle
	Subject   *Statement
	Predicate *Statement
	Object    Value

	// HasTriple is true once Subject/Predicate/Object have been
	// populated (as opposed to a handle-only stub row).
	HasTriple bool

	// Saved latches once this Statement's triple is known to persist in
	// storage, preventing a redundant re-upsert.
	Saved bool
}

// Blob is a content-addressed binary object. ID is the internal row id.
type Blob struct {
	ID     int64
	Handle BlobDigest
}

// Value is a tagged union over the object-value taxonomy. Exactly the
// field matching Kind is meaningful; all others are zero.
type Value struct {
	Kind Kind

	Statement *Statement
	Blob      *Blob
	Integer   int64
	Decimal   decimal.Decimal
	Str       string
	Boolean   bool
	Datetime  time.Time
}

// None is the sentinel "no value" Value.
func None() Value { return Value{Kind: KindNone} }

// FromStatement wraps a Statement reference as a Value.
func FromStatement(s *Statement) Value { return Value{Kind: KindStatement, Statement: s} }

// FromBlob wraps a Blob reference as a Value.
func FromBlob(b *Blob) Value { return Value{Kind: KindBlob, Blob: b} }

// FromInteger wraps an int64 as a Value.
func FromInteger(i int64) Value { return Value{Kind: KindInteger, Integer: i} }

// FromDecimal wraps a decimal.Decimal as a Value.
func FromDecimal(d decimal.Decimal) Value { return Value{Kind: KindDecimal, Decimal: d} }

// FromString wraps a string as a Value.
func FromString(s string) Value { return Value{Kind: KindString, Str: s} }

// FromBoolean wraps a bool as a Value.
func FromBoolean(b bool) Value { return Value{Kind: KindBoolean, Boolean: b} }

// FromDatetime wraps a time.Time as a Value.
func FromDatetime(t time.Time) Value { return Value{Kind: KindDatetime, Datetime: t} }

// NativeKind returns the runtime classification of v. It trusts
// v.Kind rather than re-deriving it from the populated field, since
// Value is only ever constructed through the From* helpers or
// Deserialize.
func NativeKind(v Value) Kind {
	return v.Kind
}
