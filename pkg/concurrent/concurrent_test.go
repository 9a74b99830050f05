package concurrent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPreservesOrder(t *testing.T) {
	out, err := Map(context.Background(), []int{1, 2, 3, 4, 5}, 2, func(_ context.Context, v int) (int, error) {
		return v * v, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 9, 16, 25}, out)
}

func TestMapReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Map(context.Background(), []int{1, 2, 3}, 1, func(_ context.Context, v int) (int, error) {
		if v == 2 {
			return 0, boom
		}
		return v, nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestEachVisitsEveryElement(t *testing.T) {
	var sum atomic.Int64
	err := Each(context.Background(), []int64{1, 2, 3, 4}, 0, func(_ context.Context, v int64) error {
		sum.Add(v)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), sum.Load())
}
