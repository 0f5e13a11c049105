package value

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// datetimeLayout is ISO-8601 with microsecond precision.
const datetimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Serialize encodes v as its wire form "<prefix>:<payload>". It is total
// over every valid Value produced by the From* constructors.
func Serialize(v Value) string {
	prefix := Prefix(v.Kind)
	switch v.Kind {
	case KindStatement:
		return prefix + ":" + hex.EncodeToString(v.Statement.Handle[:])
	case KindBlob:
		return prefix + ":" + hex.EncodeToString(v.Blob.Handle[:])
	case KindInteger:
		return prefix + ":" + strconv.FormatInt(v.Integer, 10)
	case KindDecimal:
		return prefix + ":" + v.Decimal.String()
	case KindString:
		return prefix + ":" + v.Str
	case KindBoolean:
		if v.Boolean {
			return prefix + ":true"
		}
		return prefix + ":false"
	case KindDatetime:
		return prefix + ":" + v.Datetime.UTC().Format(datetimeLayout)
	case KindNone:
		return prefix
	default:
		return prefix
	}
}

// Deserialize parses a wire-form scalar value. Reference kinds
// (statement, blob) are returned with only Handle populated and ID 0
// (unresolved) — ID resolution to an internal row happens in the
// repository (fill_ids), not here. Deserialize fails with ErrParse on
// malformed payloads and ErrUnknownKind on an unrecognized prefix.
func Deserialize(s string) (Value, error) {
	if s == string(Prefix(KindNone)) {
		return None(), nil
	}

	prefix, payload, found := strings.Cut(s, ":")
	if !found {
		return Value{}, fmt.Errorf("%w: missing ':' separator in %q", ErrParse, s)
	}

	kind, ok := KindForPrefix(prefix)
	if !ok {
		return Value{}, fmt.Errorf("%w: prefix %q", ErrUnknownKind, prefix)
	}

	switch kind {
	case KindStatement:
		h, err := decodeHandle16(payload)
		if err != nil {
			return Value{}, fmt.Errorf("%w: statement handle %q: %v", ErrParse, payload, err)
		}
		return FromStatement(&Statement{Handle: h}), nil

	case KindBlob:
		d, err := decodeDigest32(payload)
		if err != nil {
			return Value{}, fmt.Errorf("%w: blob digest %q: %v", ErrParse, payload, err)
		}
		return FromBlob(&Blob{Handle: d}), nil

	case KindInteger:
		i, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: integer %q: %v", ErrParse, payload, err)
		}
		return FromInteger(i), nil

	case KindDecimal:
		d, err := decimal.NewFromString(payload)
		if err != nil {
			return Value{}, fmt.Errorf("%w: decimal %q: %v", ErrParse, payload, err)
		}
		return FromDecimal(d), nil

	case KindString:
		return FromString(payload), nil

	case KindBoolean:
		switch payload {
		case "true":
			return FromBoolean(true), nil
		case "false":
			return FromBoolean(false), nil
		default:
			return Value{}, fmt.Errorf("%w: boolean %q", ErrParse, payload)
		}

	case KindDatetime:
		t, err := time.Parse(datetimeLayout, payload)
		if err != nil {
			// Accept bare-second ISO-8601 too (no fractional part).
			t, err = time.Parse(time.RFC3339, payload)
			if err != nil {
				return Value{}, fmt.Errorf("%w: datetime %q: %v", ErrParse, payload, err)
			}
		}
		return FromDatetime(t), nil

	default:
		return Value{}, fmt.Errorf("%w: prefix %q", ErrUnknownKind, prefix)
	}
}

func decodeHandle16(s string) (StatementHandle, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return StatementHandle{}, err
	}
	if len(b) != 16 {
		return StatementHandle{}, fmt.Errorf("expected 16 bytes, got %d", len(b))
	}
	var h StatementHandle
	copy(h[:], b)
	return h, nil
}

func decodeDigest32(s string) (BlobDigest, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return BlobDigest{}, err
	}
	if len(b) != 32 {
		return BlobDigest{}, fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	var d BlobDigest
	copy(d[:], b)
	return d, nil
}

// NewStatementHandle allocates a fresh 128-bit statement identifier.
func NewStatementHandle() StatementHandle {
	return StatementHandle(uuid.New())
}

// NewNamedHandle derives a deterministic statement handle from name, so
// every server instance agrees on well-known handles (bootstrap
// predicates, the primordial statement) without coordinating a shared
// counter or config value.
func NewNamedHandle(name string) StatementHandle {
	return StatementHandle(uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)))
}

// HandleString renders a StatementHandle as canonical hex (no dashes),
// matching the wire payload format.
func HandleString(h StatementHandle) string {
	return hex.EncodeToString(h[:])
}

// DigestString renders a BlobDigest as canonical hex.
func DigestString(d BlobDigest) string {
	return hex.EncodeToString(d[:])
}

// ParseHandle parses a bare hex statement handle (no "s:" prefix), as
// used in URL path segments like /statements/{handle}.
func ParseHandle(s string) (StatementHandle, error) {
	return decodeHandle16(s)
}

// ParseDigest parses a bare hex blob digest (no "blob:" prefix), as used
// in URL path segments like /blobs/{digest}.
func ParseDigest(s string) (BlobDigest, error) {
	return decodeDigest32(s)
}
