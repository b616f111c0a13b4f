// Package fallback runs an operation against an ordered list of candidates
// until one succeeds.
package fallback

import (
	"context"
	"errors"
)

// Result is the outcome of TryInOrder.
type Result[T any] struct {
	// Value is the successful result. It is the zero value when Exhausted.
	Value T
	// Index is the position of the successful candidate, or -1.
	Index int
	// Exhausted is true when every candidate failed.
	Exhausted bool
	// Errors holds one entry per failed attempt, in order.
	Errors []error
}

// Err joins every attempt error.
func (r Result[T]) Err() error {
	return errors.Join(r.Errors...)
}

// TryInOrder calls fn for each candidate in order and returns the first
// success. Exhaustion is reported through Result, not as an error: the only
// error returned is the context's, once ctx is done.
func TryInOrder[C, T any](ctx context.Context, candidates []C, fn func(context.Context, C) (T, error)) (Result[T], error) {
	res := Result[T]{Index: -1}
	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		v, err := fn(ctx, c)
		if err == nil {
			res.Value = v
			res.Index = i
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		res.Errors = append(res.Errors, err)
	}
	res.Exhausted = true
	return res, nil
}
