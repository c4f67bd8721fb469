// SPDX-License-Identifier: Apache-2.0
// Package resilience bounds and retries the blocking calls a run makes:
// role workers, LLM requests and web searches.
package resilience

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/jllopis/specforge/pkg/errors"
)

// WithTimeout runs fn in the calling goroutine under a deadline derived
// from ctx. fn should honor the context; one that does not delays the
// return but never outlives the call. When the deadline has passed by the
// time fn returns, its result is discarded and a CodeTimeout error is
// returned. A zero d runs fn with ctx unchanged.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	value, err := fn(ctx)
	if ctx.Err() != nil {
		var zero T
		return zero, timeoutOrCancel(ctx, d)
	}
	return value, err
}

func timeoutOrCancel(ctx context.Context, d time.Duration) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.New(errors.CodeTimeout, "operation exceeded timeout", ctx.Err()).
			WithContext("timeout", d.String()).
			WithRecoverable(true)
	}
	return ctx.Err()
}
