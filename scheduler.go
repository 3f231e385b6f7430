package fiber

import (
	"fmt"
	"sort"
	"time"
)

// StageID identifies a frame stage.
type StageID int

// Built-in stages, run in this order every frame.
const (
	StageEarly  StageID = iota // input handling, before simulation
	StageFixed                 // fixed-step simulation
	StageUpdate                // per-frame logic
	StageLate                  // camera follow, post-simulation fixes
	StageRender                // draw
	StageAfter                 // post-present bookkeeping
	numBuiltinStages
)

// DefaultFixedStep is the step of StageFixed, in seconds.
const DefaultFixedStep = 1.0 / 60

// FrameFunc is a frame subscription callback.
type FrameFunc func(f *Frame)

// Frame is passed to frame callbacks.
type Frame struct {
	Root  *Root
	Stage StageID
	// Delta is the frame delta, or the fixed step inside a fixed stage.
	Delta   float64
	Elapsed float64
	// Alpha is the interpolation factor of StageFixed's leftover time.
	Alpha float64
	Frame uint64

	s *Scheduler
}

// Defer queues fn to run before the next frame's stages, outside the
// running section, so it may mutate the graph.
func (f *Frame) Defer(fn func()) { f.s.Defer(fn) }

// SubscriptionID identifies a frame subscription.
type SubscriptionID uint64

type subscription struct {
	id       SubscriptionID
	fn       FrameFunc
	stage    StageID
	priority int
	seq      uint64
	root     RootID
	owner    InstanceID
	removed  bool
}

type stage struct {
	id    StageID
	name  string
	fixed bool
	step  float64
	subs  []*subscription
}

type fixedClock struct {
	acc   float64
	alpha float64
	steps uint64
}

// Scheduler runs the per-root frame stages.
type Scheduler struct {
	ctx    *Context
	stages map[StageID]*stage
	order  []StageID
	subs   map[SubscriptionID]*subscription

	nextSub SubscriptionID
	seq     uint64

	deferred []func()
	before   []func()
	after    []func()

	buf  []*subscription
	tick uint64
}

// NewScheduler creates a scheduler with the built-in stages.
func NewScheduler(ctx *Context) *Scheduler {
	s := &Scheduler{
		ctx:    ctx,
		stages: make(map[StageID]*stage),
		subs:   make(map[SubscriptionID]*subscription),
	}
	names := [numBuiltinStages]string{"early", "fixed", "update", "late", "render", "after"}
	for id := StageEarly; id < numBuiltinStages; id++ {
		st := &stage{id: id, name: names[id]}
		if id == StageFixed {
			st.fixed, st.step = true, DefaultFixedStep
		}
		s.stages[id] = st
		s.order = append(s.order, id)
	}
	ctx.OnInstanceRemoved(func(inst *Instance) {
		subs := inst.subs
		inst.subs = nil
		for _, sid := range subs {
			s.Unsubscribe(sid)
		}
	})
	ctx.OnRootDestroyed(func(r *Root) {
		for id, sub := range s.subs {
			if sub.owner == 0 && sub.root == r.id {
				s.Unsubscribe(id)
			}
		}
	})
	return s
}

// AddFixedStage registers a fixed-step stage after the existing fixed
// stages and before StageUpdate.
func (s *Scheduler) AddFixedStage(name string, step float64) (StageID, error) {
	if step <= 0 {
		return 0, fmt.Errorf("add fixed stage %q: %w: step %g", name, ErrInvalidValue, step)
	}
	id := StageID(len(s.stages))
	s.stages[id] = &stage{id: id, name: name, fixed: true, step: step}
	at := 0
	for i, sid := range s.order {
		if s.stages[sid].fixed {
			at = i + 1
		}
	}
	s.order = append(s.order, 0)
	copy(s.order[at+1:], s.order[at:])
	s.order[at] = id
	return id, nil
}

// SetFixedStep changes the step of a fixed stage.
func (s *Scheduler) SetFixedStep(id StageID, step float64) error {
	st, ok := s.stages[id]
	if !ok || !st.fixed {
		return fmt.Errorf("set fixed step: %w: stage %d is not fixed", ErrInvalidValue, id)
	}
	if step <= 0 {
		return fmt.Errorf("set fixed step: %w: step %g", ErrInvalidValue, step)
	}
	st.step = step
	return nil
}

// StageName returns the name of a stage.
func (s *Scheduler) StageName(id StageID) string {
	if st, ok := s.stages[id]; ok {
		return st.name
	}
	return "unknown"
}

// Stages returns the stage run order.
func (s *Scheduler) Stages() []StageID { return append([]StageID(nil), s.order...) }

// Subscribe registers fn on stage of root. Within a stage callbacks run in
// ascending priority, then registration order. On StageRender a positive
// priority takes over rendering: the default renderer is skipped.
func (s *Scheduler) Subscribe(root RootID, fn FrameFunc, stageID StageID, priority int) (SubscriptionID, error) {
	if _, ok := s.ctx.roots[root]; !ok {
		return 0, fmt.Errorf("subscribe: %w %s", ErrUnknownRoot, root)
	}
	return s.add(&subscription{fn: fn, stage: stageID, priority: priority, root: root})
}

// SubscribeInstance registers fn on behalf of an instance. The callback
// runs on whichever root currently owns the instance and is removed with
// it.
func (s *Scheduler) SubscribeInstance(id InstanceID, fn FrameFunc, stageID StageID, priority int) (SubscriptionID, error) {
	inst, ok := s.ctx.Instances.Get(id)
	if !ok {
		return 0, fmt.Errorf("subscribe: %w %s", ErrUnknownInstance, id)
	}
	sid, err := s.add(&subscription{fn: fn, stage: stageID, priority: priority, owner: id})
	if err != nil {
		return 0, err
	}
	inst.subs = append(inst.subs, sid)
	return sid, nil
}

func (s *Scheduler) add(sub *subscription) (SubscriptionID, error) {
	if sub.fn == nil {
		return 0, fmt.Errorf("subscribe: %w: nil callback", ErrInvalidValue)
	}
	st, ok := s.stages[sub.stage]
	if !ok {
		return 0, fmt.Errorf("subscribe: %w: unknown stage %d", ErrInvalidValue, sub.stage)
	}
	s.nextSub++
	s.seq++
	sub.id, sub.seq = s.nextSub, s.seq
	at := sort.Search(len(st.subs), func(i int) bool { return st.subs[i].priority > sub.priority })
	st.subs = append(st.subs, nil)
	copy(st.subs[at+1:], st.subs[at:])
	st.subs[at] = sub
	s.subs[sub.id] = sub
	return sub.id, nil
}

// Unsubscribe removes a subscription. It is safe to call from inside a
// callback; the removed callback does not run again.
func (s *Scheduler) Unsubscribe(id SubscriptionID) bool {
	sub, ok := s.subs[id]
	if !ok {
		return false
	}
	sub.removed = true
	delete(s.subs, id)
	st := s.stages[sub.stage]
	for i, x := range st.subs {
		if x == sub {
			st.subs = append(st.subs[:i], st.subs[i+1:]...)
			break
		}
	}
	if sub.owner != 0 {
		if inst, ok := s.ctx.Instances.Get(sub.owner); ok {
			for i, x := range inst.subs {
				if x == id {
					inst.subs = append(inst.subs[:i], inst.subs[i+1:]...)
					break
				}
			}
		}
	}
	return true
}

// Len returns the number of live subscriptions.
func (s *Scheduler) Len() int { return len(s.subs) }

// Invalidate requests a frame for root.
func (s *Scheduler) Invalidate(root RootID) { s.ctx.Invalidate(root) }

// StageAlpha returns the leftover-time fraction of a fixed stage on root.
func (s *Scheduler) StageAlpha(root RootID, id StageID) float64 {
	r, ok := s.ctx.roots[root]
	if !ok {
		return 0
	}
	if fc, ok := r.fixed[id]; ok {
		return fc.alpha
	}
	return 0
}

// Defer queues fn to run at the start of the next tick, before any stage.
func (s *Scheduler) Defer(fn func()) { s.deferred = append(s.deferred, fn) }

// BeforeFrame registers a hook run at the start of every tick, after
// deferred work.
func (s *Scheduler) BeforeFrame(fn func()) { s.before = append(s.before, fn) }

// AfterFrame registers a hook run at the end of every tick.
func (s *Scheduler) AfterFrame(fn func()) { s.after = append(s.after, fn) }

// Tick advances every due root by dt seconds: Always roots, and Demand
// roots with a pending invalidation. Never roots only run via Advance.
func (s *Scheduler) Tick(dt float64) {
	s.flush()
	for _, r := range s.ctx.Roots() {
		if r.due() {
			s.run(r, dt)
		}
	}
	s.finish()
}

// Advance runs one frame of root regardless of its frame-loop policy.
func (s *Scheduler) Advance(root RootID, dt float64) error {
	if s.ctx.running {
		return ErrMidFrameCommit
	}
	s.flush()
	r, ok := s.ctx.roots[root]
	if !ok {
		return fmt.Errorf("advance: %w %s", ErrUnknownRoot, root)
	}
	s.run(r, dt)
	s.finish()
	return nil
}

func (s *Scheduler) flush() {
	for len(s.deferred) > 0 {
		fns := s.deferred
		s.deferred = nil
		for _, fn := range fns {
			fn()
		}
	}
	for _, fn := range s.before {
		fn()
	}
}

func (s *Scheduler) finish() {
	s.tick++
	for _, fn := range s.after {
		fn()
	}
}

func (s *Scheduler) run(r *Root, dt float64) {
	if dt < 0 {
		dt = 0
	}
	for _, fn := range s.ctx.onFrame {
		fn(r)
	}
	var start time.Time
	if s.ctx.debug {
		start = time.Now()
	}
	s.ctx.running = true
	r.state = RootRunning
	defer func() {
		s.ctx.running = false
		r.settle()
	}()

	r.frame++
	r.delta = dt
	r.elapsed += dt
	for _, sid := range s.order {
		st := s.stages[sid]
		if st.fixed {
			fc := r.fixed[sid]
			if fc == nil {
				fc = &fixedClock{}
				r.fixed[sid] = fc
			}
			fc.acc += dt
			for fc.acc >= st.step {
				fc.acc -= st.step
				fc.steps++
				s.runStage(r, st, st.step, fc.acc/st.step)
			}
			fc.alpha = fc.acc / st.step
			continue
		}
		s.runStage(r, st, dt, s.alpha(r))
		if sid == StageRender && !s.takesOverRender(r) {
			if rd := r.Renderer(); rd != nil {
				rd.Render(r.scene, r.Camera())
			}
		}
	}
	if s.ctx.debug {
		s.ctx.Logger.Debug("frame", "root", r.id, "frame", r.frame, "took", time.Since(start), "subs", len(s.subs))
	}
}

func (s *Scheduler) alpha(r *Root) float64 {
	if fc, ok := r.fixed[StageFixed]; ok {
		return fc.alpha
	}
	return 0
}

// rootOf resolves the root a subscription currently runs on.
func (s *Scheduler) rootOf(sub *subscription) RootID {
	if sub.owner == 0 {
		return sub.root
	}
	if inst, ok := s.ctx.Instances.Get(sub.owner); ok {
		return inst.root
	}
	return 0
}

func (s *Scheduler) runStage(r *Root, st *stage, delta, alpha float64) {
	if len(st.subs) == 0 {
		return
	}
	// Snapshot so callbacks may subscribe or unsubscribe mid-stage.
	s.buf = append(s.buf[:0], st.subs...)
	batch := s.buf
	f := Frame{Root: r, Stage: st.id, Delta: delta, Elapsed: r.elapsed, Alpha: alpha, Frame: r.frame, s: s}
	for _, sub := range batch {
		if sub.removed || s.rootOf(sub) != r.id {
			continue
		}
		s.call(sub, f)
	}
}

func (s *Scheduler) call(sub *subscription, f Frame) {
	defer func() {
		if rec := recover(); rec != nil {
			s.ctx.Logger.Error("frame callback panicked", "stage", s.StageName(sub.stage), "sub", sub.id, "err", recovered(rec))
		}
	}()
	sub.fn(&f)
}

func (s *Scheduler) takesOverRender(r *Root) bool {
	for _, sub := range s.stages[StageRender].subs {
		if sub.priority > 0 && s.rootOf(sub) == r.id {
			return true
		}
	}
	return false
}
