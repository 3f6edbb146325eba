package portal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/async"
)

var ErrScreenNotFound = errors.New("screen not found")

type entry struct {
	screen   *Screen
	lastSeen time.Time
}

// Registry keeps the open screens. A screen is only visible to its owner.
type Registry struct {
	mu      sync.Mutex
	screens map[string]*entry
	ttl     time.Duration
	logger  core.Logger
}

// NewRegistry returns a registry whose janitor closes the screens idle for longer than ttl (never if zero).
func NewRegistry(ttl time.Duration, logger core.Logger) *Registry {
	return &Registry{
		screens: make(map[string]*entry),
		ttl:     ttl,
		logger:  logger,
	}
}

func (r *Registry) add(s *Screen) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.screens[s.id] = &entry{screen: s, lastSeen: core.Now()}
}

// Get returns the screen and marks it as seen.
func (r *Registry) Get(id, owner string) (*Screen, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.screens[id]
	if !ok || e.screen.owner != owner {
		return nil, ErrScreenNotFound
	}
	e.lastSeen = core.Now()
	return e.screen, nil
}

// Close unmounts the screen: its pending uploads and submission are cancelled.
func (r *Registry) Close(id, owner string) error {
	r.mu.Lock()
	e, ok := r.screens[id]
	if !ok || e.screen.owner != owner {
		r.mu.Unlock()
		return ErrScreenNotFound
	}
	delete(r.screens, id)
	r.mu.Unlock()

	e.screen.Close()
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.screens)
}

// Sweep closes the screens not seen since ttl before now and returns how many were closed.
func (r *Registry) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}
	var expired []*Screen
	r.mu.Lock()
	for id, e := range r.screens {
		if now.Sub(e.lastSeen) > r.ttl {
			expired = append(expired, e.screen)
			delete(r.screens, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

// Run sweeps the registry until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	if r.ttl <= 0 {
		<-ctx.Done()
		return nil
	}
	interval := r.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	err := async.Tick(ctx, interval, func() (bool, error) {
		if n := r.Sweep(core.Now()); n > 0 {
			r.logger.Info(fmt.Sprintf("closed %d idle screens", n))
		}
		return true, nil
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// CloseAll closes every screen, on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	screens := make([]*Screen, 0, len(r.screens))
	for id, e := range r.screens {
		screens = append(screens, e.screen)
		delete(r.screens, id)
	}
	r.mu.Unlock()

	for _, s := range screens {
		s.Close()
	}
}
