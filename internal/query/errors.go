package query

import "errors"

// ErrParse mirrors value.ErrParse for malformed query descriptors and
// wire nodes that never reach the value codec.
var ErrParse = errors.New("query: parse error")

// ErrQueryShape is returned when the compiler is handed a plan that
// cannot be realized — a filter against an entity with no object
// column of the inferred kind, an unknown descriptor keyword, or a
// having/order reference to an entity never joined.
var ErrQueryShape = errors.New("query: malformed plan")
