// Package async runs the asynchronous operations of a screen: backend calls, simulated latencies and tickers.
package async

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Operation is one asynchronous unit of work returning a result or an error.
type Operation interface {
	Run(ctx context.Context) (interface{}, error)
}

// OperationFunc adapts a function to an Operation.
type OperationFunc func(ctx context.Context) (interface{}, error)

func (f OperationFunc) Run(ctx context.Context) (interface{}, error) { return f(ctx) }

// Delay runs op after d. It stands in for the latency of a simulated backend.
// A nil op resolves to a nil result.
func Delay(d time.Duration, op Operation) Operation {
	return OperationFunc(func(ctx context.Context) (interface{}, error) {
		if err := Sleep(ctx, d); err != nil {
			return nil, err
		}
		if op == nil {
			return nil, nil
		}
		return op.Run(ctx)
	})
}

// WithTimeout bounds the duration of op. A zero d means no timeout.
func WithTimeout(d time.Duration, op Operation) Operation {
	if d <= 0 {
		return op
	}
	return OperationFunc(func(ctx context.Context) (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return op.Run(ctx)
	})
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Tick calls fn every interval until fn returns false, an error, or ctx is done.
func Tick(ctx context.Context, interval time.Duration, fn func() (bool, error)) error {
	if interval <= 0 {
		return errors.New("non-positive tick interval")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			more, err := fn()
			if err != nil || !more {
				return err
			}
		}
	}
}
