package async

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

var ErrScopeClosed = errors.New("scope closed")

// Scope owns the goroutines of one screen. Closing it cancels them and waits for them to return,
// after which no state update they guard with Apply can happen.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewScope(parent context.Context) *Scope {
	ctx, cancel := context.WithCancel(parent)
	return &Scope{ctx: ctx, cancel: cancel}
}

// Context is done once the scope is closed.
func (s *Scope) Context() context.Context { return s.ctx }

// Go runs fn in a new goroutine bound to the scope. It returns ErrScopeClosed if the scope is closed.
// Go must not be called while holding a lock that fn's Apply callbacks take.
func (s *Scope) Go(fn func(ctx context.Context)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrScopeClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
	return nil
}

// Apply runs update unless the scope is closing. It must be called from a goroutine started by Go:
// Close waits for those, so an update never lands after Close returns.
func (s *Scope) Apply(update func()) bool {
	if s.ctx.Err() != nil {
		return false
	}
	update()
	return true
}

// Closed reports whether Close was called.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close cancels the scope and waits for its goroutines. It is safe to call more than once.
func (s *Scope) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
