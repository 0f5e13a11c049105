package value

import "fmt"

// PrepareForDB returns the value to bind into a SQL parameter for v,
// along with the column it belongs in. For reference kinds (statement,
// blob) the db value is the internal row
// id, which must already have been resolved via the repository's
// fill_ids — an unresolved reference (ID == 0) is an internal error,
// not a user-facing one, since resolution happens before this is ever
// called.
func PrepareForDB(v Value) (dbValue any, column Column, err error) {
	column = ColumnFor(v.Kind)

	switch v.Kind {
	case KindStatement:
		if v.Statement == nil {
			return nil, column, fmt.Errorf("value: nil statement reference")
		}
		return v.Statement.ID, column, nil
	case KindBlob:
		if v.Blob == nil {
			return nil, column, fmt.Errorf("value: nil blob reference")
		}
		return v.Blob.ID, column, nil
	case KindInteger:
		return v.Integer, column, nil
	case KindDecimal:
		return v.Decimal, column, nil
	case KindString:
		return v.Str, column, nil
	case KindBoolean:
		return v.Boolean, column, nil
	case KindDatetime:
		return v.Datetime, column, nil
	case KindNone:
		return nil, "", nil
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnknownKind, v.Kind)
	}
}
