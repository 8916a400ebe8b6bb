package fn

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ErrFunc is a type def for a function that takes a context (to allow early
// cancellation) and a single value, returning an error. It is used as a
// closure to perform concurrent work over a homogeneous slice of values.
type ErrFunc[V any] func(context.Context, V) error

// ParSlice executes a function on each element of a slice in parallel. It
// blocks until all goroutines succeeded, or the first one failed. Active
// goroutines are limited to the number of CPUs. The context passed to the
// function is canceled the first time a function returns a non-nil error.
// Returns the first non-nil error (if any).
func ParSlice[V any](ctx context.Context, s []V, f ErrFunc[V]) error {
	errGroup, ctx := errgroup.WithContext(ctx)
	errGroup.SetLimit(runtime.NumCPU())

	for _, v := range s {
		v := v
		errGroup.Go(func() error {
			return f(ctx, v)
		})
	}

	return errGroup.Wait()
}

// ParMap is ParSlice for functions that produce a result. The results are
// returned in the order of the input slice.
func ParMap[I, O any](ctx context.Context, s []I,
	f func(context.Context, I) (O, error)) ([]O, error) {

	results := make([]O, len(s))
	indexes := make([]int, len(s))
	for i := range indexes {
		indexes[i] = i
	}

	err := ParSlice(ctx, indexes, func(ctx context.Context, i int) error {
		result, err := f(ctx, s[i])
		if err != nil {
			return err
		}

		// Every goroutine owns exactly one slot.
		results[i] = result

		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}
