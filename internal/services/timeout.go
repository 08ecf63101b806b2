package services

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/clientflow/alertrunner/internal/pkg/errors"
)

// withTimeout runs fn under a per-call deadline. A deadline hit is reported
// as a TIMEOUT AppError so callers treat it like any repository failure.
func withTimeout(ctx context.Context, timeout time.Duration, op string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(callCtx)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return apperrors.Timeout(op, err)
	}
	return err
}
