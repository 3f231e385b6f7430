package fiber

import (
	"context"
	"sync/atomic"
	"time"
)

// Runtime bundles the subsystems of one context, wired together: the
// scheduler flushes suspensions and one injected event before each frame,
// and publishes a snapshot after each tick.
type Runtime struct {
	Ctx        *Context
	Reconciler *Reconciler
	Scheduler  *Scheduler
	Events     *EventManager
	Roots      *Roots
	Loads      *LoadCache

	snap atomic.Pointer[Snapshot]
}

// NewRuntime creates a context with opts and every subsystem on top of it.
func NewRuntime(opts ...Option) *Runtime {
	ctx := NewContext(opts...)
	rc := NewReconciler(ctx)
	rt := &Runtime{
		Ctx:        ctx,
		Reconciler: rc,
		Scheduler:  NewScheduler(ctx),
		Events:     NewEventManager(ctx),
		Roots:      NewRoots(rc),
		Loads:      NewLoadCache(context.Background()),
	}
	rt.Scheduler.BeforeFrame(rc.PollSuspense)
	rt.Scheduler.BeforeFrame(func() { rt.Events.ProcessInjected() })
	rt.Scheduler.AfterFrame(func() { rt.snap.Store(rt.Capture()) })
	rt.snap.Store(rt.Capture())
	return rt
}

// Snapshot returns the snapshot published after the last tick, or the empty
// one taken by NewRuntime before the first tick. It is safe
// to call from any goroutine.
func (rt *Runtime) Snapshot() *Snapshot { return rt.snap.Load() }

// Snapshot is a read-only copy of the graph and scheduler state.
type Snapshot struct {
	Tick          uint64         `json:"tick"`
	TakenAt       time.Time      `json:"taken_at"`
	Instances     int            `json:"instances"`
	Subscriptions int            `json:"subscriptions"`
	Suspended     int            `json:"suspended"`
	Roots         []RootSnapshot `json:"roots"`
}

// RootSnapshot describes one root.
type RootSnapshot struct {
	ID        RootID         `json:"id"`
	Parent    RootID         `json:"parent,omitempty"`
	Frameloop string         `json:"frameloop"`
	State     string         `json:"state"`
	Width     float64        `json:"width"`
	Height    float64        `json:"height"`
	Frame     uint64         `json:"frame"`
	Elapsed   float64        `json:"elapsed"`
	Hovered   int            `json:"hovered"`
	Nodes     []NodeSnapshot `json:"nodes"`
}

// NodeSnapshot describes one instance, in depth-first order.
type NodeSnapshot struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Depth    int    `json:"depth"`
	Attach   string `json:"attach"`
	Children int    `json:"children"`
	Handlers bool   `json:"handlers,omitempty"`
	State    string `json:"state"`
}

// Capture builds a snapshot of the current state. Call it only between
// ticks, from the goroutine driving the runtime.
func (rt *Runtime) Capture() *Snapshot {
	s := &Snapshot{
		Tick:          rt.Scheduler.tick,
		TakenAt:       time.Now(),
		Instances:     rt.Ctx.Instances.Len(),
		Subscriptions: rt.Scheduler.Len(),
		Suspended:     rt.Reconciler.Suspended(),
	}
	for _, r := range rt.Ctx.Roots() {
		size := r.Size()
		rs := RootSnapshot{
			ID:        r.id,
			Frameloop: r.Frameloop().String(),
			State:     r.state.String(),
			Width:     size.Width,
			Height:    size.Height,
			Frame:     r.frame,
			Elapsed:   r.elapsed,
			Hovered:   len(rt.Events.Hovered(r.id)),
		}
		if r.parent != nil {
			rs.Parent = r.parent.id
		}
		rt.Ctx.Instances.Walk(r.rootInstance, func(inst *Instance, depth int) bool {
			rs.Nodes = append(rs.Nodes, NodeSnapshot{
				ID:       inst.ID.String(),
				Type:     inst.Type,
				Depth:    depth,
				Attach:   inst.Attach.String(),
				Children: len(inst.Children),
				Handlers: inst.HasHandlers(),
				State:    inst.State.String(),
			})
			return true
		})
		s.Roots = append(s.Roots, rs)
	}
	return s
}
