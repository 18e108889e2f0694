package retry

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Delay is the fixed pause before the single retry of a failed poll.
const Delay = 5 * time.Second

// IsTransient reports whether err looks like a device reboot or network hiccup.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// Once runs fn and, on a transient failure, waits delay and runs it exactly once more.
// fn receives true on the first attempt (a retry is still allowed).
func Once(ctx context.Context, delay time.Duration, logger *zap.Logger, fn func(ctx context.Context, retry bool) error) error {
	err := fn(ctx, true)
	if err == nil || !IsTransient(err) {
		return err
	}
	logger.Warn("transient failure, retrying once", zap.Duration("delay", delay), zap.Error(err))
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	return fn(ctx, false)
}
