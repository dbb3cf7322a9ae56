// Package retry runs broker calls with exponential backoff.
package retry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/JabirHus/NCTB/internal/exception"
	"github.com/sirupsen/logrus"
)

type Policy struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// Default makes 5 attempts starting at 1s and doubling up to 30s.
var Default = Policy{Attempts: 5, Initial: time.Second, Max: 30 * time.Second}

// Do calls fn until it succeeds, attempts run out, ctx ends or fn returns a
// non-retryable error. Rate-limited calls wait four times longer.
func Do[T any](ctx context.Context, p Policy, log *logrus.Entry, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	backoff := p.Initial

	for i := 0; i < p.Attempts; i++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !Retryable(err) || i == p.Attempts-1 {
			break
		}

		wait := backoff
		if IsRateLimit(err) {
			wait = backoff * 4
		}
		if p.Max > 0 && wait > p.Max {
			wait = p.Max
		}
		if log != nil {
			log.WithError(err).WithField("attempt", i+1).Warn("call failed, retrying")
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}
		backoff *= 2
	}
	return zero, lastErr
}

// DoVoid is Do for calls without a result.
func DoVoid(ctx context.Context, p Policy, log *logrus.Entry, fn func() error) error {
	_, err := Do(ctx, p, log, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Retryable reports whether err may clear up on its own.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, exception.ErrConfiguration), errors.Is(err, exception.ErrOrderRejected), errors.Is(err, exception.ErrInvalidArgument):
		return false
	default:
		return true
	}
}

func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Too many requests") || strings.Contains(msg, "429")
}
