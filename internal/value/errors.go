package value

import "errors"

// ErrParse signals malformed wire input. Wrap it with
// fmt.Errorf("...: %w", ErrParse) to attach the offending text.
var ErrParse = errors.New("value: parse error")

// ErrUnknownKind signals an unrecognized wire prefix.
var ErrUnknownKind = errors.New("value: unknown kind")
