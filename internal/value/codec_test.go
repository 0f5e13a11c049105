package value

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	h := NewStatementHandle()
	blobDigest := BlobDigest{1, 2, 3}
	dt := time.Date(2026, 3, 5, 10, 30, 0, 123000, time.UTC)

	tests := []struct {
		name string
		v    Value
	}{
		{"string", FromString("hello")},
		{"integer", FromInteger(42)},
		{"integer negative", FromInteger(-7)},
		{"decimal", FromDecimal(decimal.RequireFromString("3.14"))},
		{"boolean true", FromBoolean(true)},
		{"boolean false", FromBoolean(false)},
		{"datetime", FromDatetime(dt)},
		{"none", None()},
		{"statement", FromStatement(&Statement{Handle: h})},
		{"blob", FromBlob(&Blob{Handle: blobDigest})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire := Serialize(tt.v)
			got, err := Deserialize(wire)
			require.NoError(t, err)
			assert.Equal(t, tt.v.Kind, got.Kind)

			switch tt.v.Kind {
			case KindStatement:
				assert.Equal(t, tt.v.Statement.Handle, got.Statement.Handle)
			case KindBlob:
				assert.Equal(t, tt.v.Blob.Handle, got.Blob.Handle)
			case KindDecimal:
				assert.True(t, tt.v.Decimal.Equal(got.Decimal))
			case KindDatetime:
				assert.True(t, tt.v.Datetime.Equal(got.Datetime))
			default:
				assert.Equal(t, tt.v, got)
			}
		})
	}
}

func TestDeserializeUnknownKind(t *testing.T) {
	_, err := Deserialize("frob:123")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestDeserializeParseError(t *testing.T) {
	tests := []string{
		"int:notanumber",
		"bool:maybe",
		"dec:nope",
		"s:zz",
		"nocolon",
	}
	for _, s := range tests {
		_, err := Deserialize(s)
		assert.ErrorIs(t, err, ErrParse, "input %q", s)
	}
}

func TestWirePrefixes(t *testing.T) {
	assert.Equal(t, "s:"+HandleString(StatementHandle{}), Serialize(FromStatement(&Statement{})))
	assert.Equal(t, "int:42", Serialize(FromInteger(42)))
	assert.Equal(t, "str:hello", Serialize(FromString("hello")))
	assert.Equal(t, "bool:true", Serialize(FromBoolean(true)))
	assert.Equal(t, "none", Serialize(None()))
}

func TestSupportsOp(t *testing.T) {
	assert.True(t, SupportsOp(KindString, OpContains))
	assert.False(t, SupportsOp(KindBoolean, OpContains))
	assert.True(t, SupportsOp(KindBoolean, OpEq))
	assert.False(t, SupportsOp(KindBoolean, OpLt))
	assert.True(t, SupportsOp(KindInteger, OpLt))
}
