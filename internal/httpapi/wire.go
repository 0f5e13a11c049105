package httpapi

import (
	"encoding/json"
	"fmt"

	"triplestore/internal/value"
)

// statementJSON is the wire shape of one Statement in a response body:
// the handle plus the serialized triple.
type statementJSON struct {
	Handle    string `json:"handle"`
	Subject   string `json:"subject,omitempty"`
	Predicate string `json:"predicate,omitempty"`
	Object    string `json:"object,omitempty"`
}

func toStatementJSON(s *value.Statement) statementJSON {
	out := statementJSON{Handle: value.HandleString(s.Handle)}
	if s.HasTriple {
		out.Subject = value.HandleString(s.Subject.Handle)
		out.Predicate = value.HandleString(s.Predicate.Handle)
		out.Object = value.Serialize(s.Object)
	}
	return out
}

// createRow is one entry of a create-statements request body:
// [handle_or_null, subject_ref, predicate_ref, object_ref]. Each field
// is decoded from raw JSON since a ref may be a string (a wire value
// or handle) or a non-negative integer (a back-reference index into
// this same request's rows).
type createRow [4]json.RawMessage

// refIndex reports whether raw decodes to a JSON number, returning the
// referenced row index: a non-negative integer i names the statement
// created by row i of this same request, which must be the row being
// decoded or an earlier one.
func refIndex(raw json.RawMessage) (int, bool) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil || i < 0 {
		return 0, false
	}
	return int(i), true
}

// refString reports whether raw decodes to a JSON string.
func refString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// isNull reports whether raw is the JSON literal null or entirely absent.
func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// resolveHandleRef resolves a subject/predicate ref (always a
// Statement reference) to the handle it names, either a row-index
// reference or an "s:<hex>" wire value.
func resolveHandleRef(raw json.RawMessage, created []value.StatementHandle) (value.StatementHandle, error) {
	if i, ok := refIndex(raw); ok {
		if i >= len(created) {
			return value.StatementHandle{}, fmt.Errorf("%w: forward reference to row %d", value.ErrParse, i)
		}
		return created[i], nil
	}
	s, ok := refString(raw)
	if !ok {
		return value.StatementHandle{}, fmt.Errorf("%w: malformed statement reference", value.ErrParse)
	}
	v, err := value.Deserialize(s)
	if err != nil {
		return value.StatementHandle{}, err
	}
	if v.Kind != value.KindStatement {
		return value.StatementHandle{}, fmt.Errorf("%w: reference %q is not a statement", value.ErrParse, s)
	}
	return v.Statement.Handle, nil
}

// resolveObjectRef resolves an object_ref, which may additionally be a
// back-reference index (meaning "the statement value of that row")
// rather than any wire-serialized scalar.
func resolveObjectRef(raw json.RawMessage, created []value.StatementHandle) (value.Value, error) {
	if i, ok := refIndex(raw); ok {
		if i >= len(created) {
			return value.Value{}, fmt.Errorf("%w: forward reference to row %d", value.ErrParse, i)
		}
		return value.FromStatement(&value.Statement{Handle: created[i]}), nil
	}
	s, ok := refString(raw)
	if !ok {
		return value.Value{}, fmt.Errorf("%w: malformed object reference", value.ErrParse)
	}
	return value.Deserialize(s)
}
