package future

import (
	"context"
	"errors"
)

// WaitSettled blocks until every future has settled, successfully or not, or until
// ctx is done. It only returns an error (ctx.Err()) when ctx wins; the outcome of
// the individual futures is not inspected.
func WaitSettled[T any](ctx context.Context, futures ...*Future[T]) error {
	for _, fut := range futures {
		if fut == nil {
			continue
		}

		select {
		case <-fut.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// Join waits for every future and returns their values in order together with
// the joined errors of the ones that failed.
func Join[T any](ctx context.Context, futures ...*Future[T]) ([]T, error) {
	values := make([]T, len(futures))

	var errs []error

	for i, fut := range futures {
		value, err := fut.AwaitContext(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}

			errs = append(errs, err)

			continue
		}

		values[i] = value
	}

	return values, errors.Join(errs...)
}
