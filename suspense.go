package fiber

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Load is an asynchronous value. It completes once; Poll never blocks.
type Load struct {
	done   chan struct{}
	value  any
	err    error
	cancel context.CancelFunc
}

// NewLoad starts fn in a goroutine. Cancelling ctx or calling Cancel
// cancels the context passed to fn.
func NewLoad(ctx context.Context, fn func(context.Context) (any, error)) *Load {
	ctx, cancel := context.WithCancel(ctx)
	l := &Load{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer close(l.done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				l.err = recovered(r)
			}
		}()
		l.value, l.err = fn(ctx)
	}()
	return l
}

// Resolved returns a completed load holding v.
func Resolved(v any) *Load {
	l := &Load{done: make(chan struct{}), value: v, cancel: func() {}}
	close(l.done)
	return l
}

// Poll reports the outcome if the load has completed.
func (l *Load) Poll() (value any, err error, done bool) {
	select {
	case <-l.done:
		return l.value, l.err, true
	default:
		return nil, nil, false
	}
}

// Wait blocks until the load completes or ctx ends.
func (l *Load) Wait(ctx context.Context) (any, error) {
	select {
	case <-l.done:
		return l.value, l.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed when the load completes.
func (l *Load) Done() <-chan struct{} { return l.done }

// Cancel cancels the load's context.
func (l *Load) Cancel() { l.cancel() }

// LoadCache deduplicates loads by key: concurrent loads of one key share a
// single fetch, and completed values are served from the cache until
// cleared.
type LoadCache struct {
	base context.Context
	sf   singleflight.Group

	mu      sync.Mutex
	results map[string]any
}

// NewLoadCache creates a cache whose fetches run under ctx.
func NewLoadCache(ctx context.Context) *LoadCache {
	return &LoadCache{base: ctx, results: make(map[string]any)}
}

// Load returns a load for key, starting fn only if no value is cached and
// no fetch for key is in flight.
func (c *LoadCache) Load(key string, fn func(context.Context) (any, error)) *Load {
	c.mu.Lock()
	v, ok := c.results[key]
	c.mu.Unlock()
	if ok {
		return Resolved(v)
	}
	return NewLoad(c.base, func(ctx context.Context) (any, error) {
		v, err, _ := c.sf.Do(key, func() (any, error) {
			v, err := fn(ctx)
			if err != nil {
				return nil, err
			}
			c.mu.Lock()
			c.results[key] = v
			c.mu.Unlock()
			return v, nil
		})
		return v, err
	})
}

// Peek returns the cached value of key.
func (c *LoadCache) Peek(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.results[key]
	return v, ok
}

// Clear evicts key so the next Load fetches again.
func (c *LoadCache) Clear(key string) {
	c.mu.Lock()
	delete(c.results, key)
	c.mu.Unlock()
	c.sf.Forget(key)
}

// Suspension is a subtree waiting on a load. Its fallback is mounted until
// the load completes, then replaced by the resolved subtree.
type Suspension struct {
	parent   InstanceID
	fallback InstanceID
	mounted  InstanceID
	load     *Load
	resolve  func(v any) (Element, error)
	state    SuspenseState
	err      error
	canceled bool
}

// State returns StatePending while the load is outstanding, StateReady
// once the resolved subtree is mounted, and StateFallback if the load
// failed and the fallback stays.
func (s *Suspension) State() SuspenseState { return s.state }

// Err returns the load or mount failure, if any.
func (s *Suspension) Err() error { return s.err }

// Mounted returns the root of the resolved subtree.
func (s *Suspension) Mounted() InstanceID { return s.mounted }

// Fallback returns the fallback instance, zero if none was given.
func (s *Suspension) Fallback() InstanceID { return s.fallback }

// Cancel abandons the suspension. The fallback stays mounted and a later
// completion is ignored.
func (s *Suspension) Cancel() { s.canceled = true }

// Suspend mounts fallback under parent and arranges for resolve's element
// to replace it when load completes. Completion is observed by PollSuspense
// between frames, so the graph never changes mid-frame.
func (rc *Reconciler) Suspend(parent InstanceID, fallback *Element, load *Load, resolve func(v any) (Element, error)) (*Suspension, error) {
	if err := rc.checkCommit(); err != nil {
		return nil, err
	}
	if _, ok := rc.ctx.Instances.Get(parent); !ok {
		return nil, fmt.Errorf("suspend: %w %s", ErrUnknownInstance, parent)
	}
	if load == nil || resolve == nil {
		return nil, fmt.Errorf("suspend: %w: nil load or resolve", ErrInvalidValue)
	}
	s := &Suspension{parent: parent, load: load, resolve: resolve, state: StatePending}
	if fallback != nil {
		id, err := rc.MountTree(parent, *fallback)
		if id == 0 {
			return nil, err
		}
		if err != nil {
			rc.ctx.Logger.Warn("fallback mounted partially", "err", err)
		}
		rc.ctx.Instances.Walk(id, func(inst *Instance, _ int) bool {
			inst.State = StateFallback
			return true
		})
		s.fallback = id
	}
	rc.suspended = append(rc.suspended, s)
	return s, nil
}

// PollSuspense resolves every suspension whose load has completed. It is
// run by the scheduler before each frame.
func (rc *Reconciler) PollSuspense() {
	if len(rc.suspended) == 0 {
		return
	}
	pending := rc.suspended[:0]
	for _, s := range rc.suspended {
		if s.canceled {
			continue
		}
		v, err, done := s.load.Poll()
		if !done {
			pending = append(pending, s)
			continue
		}
		if err != nil {
			s.state, s.err = StateFallback, err
			rc.ctx.Logger.Warn("suspended load failed", "parent", s.parent, "err", err)
			continue
		}
		rc.settle(s, v)
	}
	rc.suspended = pending
}

func (rc *Reconciler) settle(s *Suspension, v any) {
	el, err := rc.resolve(s, v)
	if err != nil {
		s.state, s.err = StateFallback, err
		rc.ctx.Logger.Warn("suspended element failed", "parent", s.parent, "err", err)
		return
	}
	id, err := rc.MountTree(s.parent, el)
	if id == 0 {
		s.state, s.err = StateFallback, err
		rc.ctx.Logger.Warn("suspended mount failed", "parent", s.parent, "err", err)
		return
	}
	if err != nil {
		s.err = err
		rc.ctx.Logger.Warn("suspended subtree mounted partially", "err", err)
	}
	s.mounted = id
	// The fallback goes only once its replacement is committed.
	if s.fallback != 0 {
		if _, ok := rc.ctx.Instances.Get(s.fallback); ok {
			if err := rc.Remove(s.fallback); err != nil {
				rc.ctx.Logger.Warn("fallback removal failed", "err", err)
			}
		}
		s.fallback = 0
	}
	s.state = StateReady
}

func (rc *Reconciler) resolve(s *Suspension, v any) (el Element, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	return s.resolve(v)
}

// Suspended returns the number of outstanding suspensions.
func (rc *Reconciler) Suspended() int { return len(rc.suspended) }

// cancelSuspensions abandons suspensions under a removed parent.
func (rc *Reconciler) cancelSuspensions(inst *Instance) {
	for _, s := range rc.suspended {
		if s.parent == inst.ID {
			s.canceled = true
		}
		if s.fallback == inst.ID {
			s.fallback = 0
		}
	}
}
