package fn

// Map applies the given mapping function to each element of the given slice
// and generates a new slice.
func Map[I, O any, S []I](s S, f func(I) O) []O {
	output := make([]O, len(s))

	for i, x := range s {
		output[i] = f(x)
	}

	return output
}

// Filter returns the elements of the slice for which the predicate returned
// true, keeping their order.
func Filter[T any](s []T, f func(T) bool) []T {
	output := make([]T, 0, len(s))

	for _, x := range s {
		if f(x) {
			output = append(output, x)
		}
	}

	return output
}

// MapErr is Map for fallible mapping functions. It returns early with the
// first error.
func MapErr[I, O any, S []I](s S, f func(I) (O, error)) ([]O, error) {
	output := make([]O, len(s))
	var err error

	for i, x := range s {
		output[i], err = f(x)
		if err != nil {
			return nil, err
		}
	}

	return output, nil
}

// Flatten concatenates a slice of slices.
func Flatten[T any](xss [][]T) []T {
	var total int
	for _, xs := range xss {
		total += len(xs)
	}

	output := make([]T, 0, total)
	for _, xs := range xss {
		output = append(output, xs...)
	}

	return output
}
