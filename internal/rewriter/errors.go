package rewriter

import (
	"errors"
	"fmt"
)

var ErrParseFailure = errors.New("parse failure")

// TransformError aborts the rewrite of one function.
// No partially rewritten output exists when it is returned.
type TransformError struct {
	Func string
	Err  error
}

func (e *TransformError) Error() string {
	if e.Func == "" {
		return fmt.Sprintf("%s: %v", ErrParseFailure, e.Err)
	}
	return fmt.Sprintf("rewrite %s: %s: %v", e.Func, ErrParseFailure, e.Err)
}

func (e *TransformError) Unwrap() []error {
	return []error{ErrParseFailure, e.Err}
}
