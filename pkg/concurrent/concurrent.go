package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Map applies fn to every element of in using at most workers goroutines and
// returns the results in input order. The first error cancels the context
// passed to the remaining calls and is returned.
func Map[T any, R any](ctx context.Context, in []T, workers int, fn func(context.Context, T) (R, error)) ([]R, error) {
	out := make([]R, len(in))
	group, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		group.SetLimit(workers)
	}

	for idx, val := range in {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := fn(ctx, val)
			if err != nil {
				return err
			}
			out[idx] = r
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Each runs fn for every element of in concurrently and waits for all of
// them. It returns the first error encountered.
func Each[T any](ctx context.Context, in []T, workers int, fn func(context.Context, T) error) error {
	_, err := Map(ctx, in, workers, func(ctx context.Context, v T) (struct{}, error) {
		return struct{}{}, fn(ctx, v)
	})
	return err
}
