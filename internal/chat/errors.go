package chat

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrSelfConversation = errors.New("could not make conversation with the same user")
	ErrConflict         = errors.New("conversation conflict")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTimeout          = errors.New("timeout")

	// ErrDeliveryFailed marks a push that did not reach the broker. It is
	// logged by the notifier and never returned to a caller.
	ErrDeliveryFailed = errors.New("delivery failed")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// readErr wraps a failed read, turning an expired deadline into ErrTimeout.
func readErr(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrTimeout, op)
	}
	return fmt.Errorf("%s: %w", op, err)
}
