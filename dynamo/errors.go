package dynamo

import (
	"errors"
	"fmt"
)

// ErrMissingTable is returned by New when no table name was supplied and
// none could be loaded from the environment.
var ErrMissingTable = errors.New("dynamo: table name is required")

// ValidationError reports a key field that failed local checks. It is
// raised before any backend call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("dynamo: invalid key field %q: %s", e.Field, e.Reason)
}

// BatchValidationError wraps the validation failure of one element in a
// batch, identified by its zero-based position in the input.
type BatchValidationError struct {
	Index int
	Err   error
}

func (e *BatchValidationError) Error() string {
	return fmt.Sprintf("dynamo: element %d: %v", e.Index, e.Err)
}

func (e *BatchValidationError) Unwrap() error {
	return e.Err
}
