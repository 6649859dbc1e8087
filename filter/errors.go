package filter

import "errors"

// ErrUnknownKind is returned when a construction-kind discriminant is
// not one of the recognized values.
var ErrUnknownKind = errors.New("filter: unknown construction kind")
