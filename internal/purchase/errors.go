package purchase

import (
	"context"
	"errors"

	"spacepurchase/internal/types"
)

// StepError is a failed receipt step. Kind is one of the purchase error
// codes.
type StepError struct {
	Kind types.ErrorCode
	Err  error
}

func (e *StepError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error { return e.Err }

// AppError converts e for the HTTP layer.
func (e *StepError) AppError() *types.AppError {
	msg := "purchase step failed"
	var appErr *types.AppError
	if errors.As(e.Err, &appErr) {
		msg = appErr.Message
	}
	return types.NewAppErrorWithDetails(e.Kind, msg, e, map[string]any{
		"upstream_code": string(types.CodeOf(e.Err)),
	})
}

// isCancellation reports whether err only says the caller went away. An
// upstream timeout is a failure, not a cancellation.
func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}
