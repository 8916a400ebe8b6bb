package fn

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSliceHelpers(t *testing.T) {
	t.Parallel()

	nums := []int{1, 2, 3, 4, 5}
	isEven := func(i int) bool { return i%2 == 0 }

	require.Equal(t, []string{"1", "2", "3", "4", "5"}, Map(
		nums, strconv.Itoa,
	))
	require.Equal(t, []int{2, 4}, Filter(nums, isEven))
	require.Equal(t, []int{1, 2, 3}, Flatten([][]int{{1}, nil, {2, 3}}))

	parsed, err := MapErr([]string{"1", "2"}, strconv.Atoi)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, parsed)

	_, err = MapErr([]string{"1", "x"}, strconv.Atoi)
	require.Error(t, err)
}

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	require.False(t, IsCanceled(nil))
	require.True(t, IsCanceled(context.Canceled))
	require.True(t, IsCanceled(fmt.Errorf("foo: %w", context.Canceled)))
	require.False(t, IsCanceled(context.DeadlineExceeded))

	_, err := strconv.Atoi("x")
	require.True(t, ErrorAs[*strconv.NumError](err))
	require.False(t, ErrorAs[*strconv.NumError](errors.New("plain")))
}

func TestRetryFuncN(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Millisecond,
		BackoffMultiplier: 2,
		MaxBackoff:        2 * time.Millisecond,
	}
	errTransient := errors.New("transient")

	// Succeeds on the third attempt.
	var calls int
	result, err := RetryFuncN(context.Background(), cfg, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errTransient
		}
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, result)
	require.Equal(t, 3, calls)

	// Gives up after the initial attempt plus MaxRetries.
	calls = 0
	_, err = RetryFuncN(context.Background(), cfg, func() (int, error) {
		calls++
		return 0, errTransient
	})
	require.ErrorIs(t, err, errTransient)
	require.Equal(t, cfg.MaxRetries+1, calls)

	// Stops waiting once the context is canceled.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls = 0
	_, err = RetryFuncN(ctx, cfg, func() (int, error) {
		calls++
		return 0, errTransient
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}
