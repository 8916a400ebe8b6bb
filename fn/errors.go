package fn

import (
	"context"
	"errors"
)

// ErrorAs behaves the same as `errors.As` except there's no need to declare
// the target error as a variable first.
// Instead of writing:
//
//	var decodeErr *asset.DecodeError
//	errors.As(err, &decodeErr)
//
// We can write:
//
//	fn.ErrorAs[*asset.DecodeError](err)
func ErrorAs[Target error](err error) bool {
	var targetErr Target

	return errors.As(err, &targetErr)
}

// IsCanceled returns true if the error is, or wraps, a context cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
