package async

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// RetryPolicy tells how many times an operation is attempted and how long to wait between attempts.
// The zero value attempts once.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

type permanent struct {
	err error
}

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Cause() error  { return p.err }

// Permanent marks err as not worth a retry.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}

func isPermanent(err error) bool {
	for err != nil {
		if _, ok := err.(permanent); ok {
			return true
		}
		cause, ok := err.(interface{ Cause() error })
		if !ok {
			return false
		}
		err = cause.Cause()
	}
	return false
}

// WithRetry attempts op up to p.Attempts times, waiting p.Backoff (doubled after every failure) in between.
// Permanent errors and a done ctx stop the retries; the returned error is the cause of a permanent one.
func WithRetry(p RetryPolicy, op Operation) Operation {
	return OperationFunc(func(ctx context.Context) (interface{}, error) {
		attempts := p.Attempts
		if attempts < 1 {
			attempts = 1
		}
		backoff := p.Backoff

		var err error
		for attempt := 1; attempt <= attempts; attempt++ {
			var res interface{}
			if res, err = op.Run(ctx); err == nil {
				return res, nil
			}
			if isPermanent(err) {
				return nil, errors.Cause(err)
			}
			if attempt == attempts || ctx.Err() != nil {
				break
			}
			if sErr := Sleep(ctx, backoff); sErr != nil {
				break
			}
			backoff *= 2
		}
		return nil, err
	})
}
