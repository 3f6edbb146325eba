package async

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestDelay(t *testing.T) {
	op := Delay(20*time.Millisecond, OperationFunc(func(ctx context.Context) (interface{}, error) {
		return "done", nil
	}))

	start := time.Now()
	res, err := op.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", res)
	assert.GreaterOrEqual(t, int64(time.Since(start)), int64(20*time.Millisecond))

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Delay(time.Hour, nil).Run(ctx)
		assert.Equal(t, context.Canceled, err)
	})

	t.Run("nil op", func(t *testing.T) {
		res, err := Delay(0, nil).Run(context.Background())
		assert.NoError(t, err)
		assert.Nil(t, res)
	})
}

func TestWithTimeout(t *testing.T) {
	_, err := WithTimeout(10*time.Millisecond, Delay(time.Hour, nil)).Run(context.Background())
	assert.Equal(t, context.DeadlineExceeded, err)

	res, err := WithTimeout(time.Second, Delay(0, OperationFunc(func(ctx context.Context) (interface{}, error) {
		return 1, nil
	}))).Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, res)
}

func TestWithRetry(t *testing.T) {
	tests := []struct {
		name      string
		policy    RetryPolicy
		failures  int32
		permanent bool
		wantCalls int32
		wantErr   error
	}{
		{name: "no retry by default", failures: 1, wantCalls: 1, wantErr: errBoom},
		{name: "succeeds after retries", policy: RetryPolicy{Attempts: 3, Backoff: time.Millisecond}, failures: 2, wantCalls: 3},
		{name: "gives up", policy: RetryPolicy{Attempts: 2, Backoff: time.Millisecond}, failures: 5, wantCalls: 2, wantErr: errBoom},
		{
			name: "permanent error is not retried", policy: RetryPolicy{Attempts: 3},
			failures: 5, permanent: true, wantCalls: 1, wantErr: errBoom,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			op := OperationFunc(func(ctx context.Context) (interface{}, error) {
				if n := atomic.AddInt32(&calls, 1); n <= tt.failures {
					if tt.permanent {
						return nil, Permanent(errBoom)
					}
					return nil, errBoom
				}
				return "ok", nil
			})

			res, err := WithRetry(tt.policy, op).Run(context.Background())
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, "ok", res)
		})
	}
}

func TestTick(t *testing.T) {
	var ticks int
	err := Tick(context.Background(), time.Millisecond, func() (bool, error) {
		ticks++
		return ticks < 3, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, ticks)

	err = Tick(context.Background(), time.Millisecond, func() (bool, error) { return true, errBoom })
	assert.Equal(t, errBoom, err)
}

func TestScope_Close(t *testing.T) {
	s := NewScope(context.Background())

	var applied int32
	started := make(chan struct{})
	require.NoError(t, s.Go(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		s.Apply(func() { atomic.AddInt32(&applied, 1) })
	}))
	<-started

	s.Close()
	assert.True(t, s.Closed())
	assert.Equal(t, int32(0), atomic.LoadInt32(&applied), "no update after teardown")

	assert.Equal(t, ErrScopeClosed, s.Go(func(ctx context.Context) {}))
	s.Close() // idempotent
}

func TestScope_Apply(t *testing.T) {
	s := NewScope(context.Background())
	defer s.Close()

	done := make(chan bool)
	require.NoError(t, s.Go(func(ctx context.Context) {
		done <- s.Apply(func() {})
	}))
	assert.True(t, <-done)
}
