package fiber

import (
	"fmt"
	"math"
	"slices"
)

// DefaultClickDistance is the pointer travel in pixels beyond which a
// press-release no longer counts as a click.
const DefaultClickDistance = 4.0

// target pairs a hit with the instance whose handler receives it: the hit
// instance itself or one of its ancestors.
type target struct {
	hit Intersection
	eo  InstanceID
}

// pointerState is the per-root interaction state of one event manager.
type pointerState struct {
	hovered  []target
	initial  map[int]map[InstanceID]bool
	downAt   map[int]Vec2
	captured map[int][]target
	last     Pointer
	hasLast  bool
}

func newPointerState() *pointerState {
	return &pointerState{
		initial:  make(map[int]map[InstanceID]bool),
		downAt:   make(map[int]Vec2),
		captured: make(map[int][]target),
	}
}

// dispatch is the propagation state of one pointer event.
type dispatch struct {
	m       *EventManager
	st      *pointerState
	root    *Root
	stopped bool
}

func (d *dispatch) capture(pointer int, eo InstanceID, hit Intersection) {
	for _, t := range d.st.captured[pointer] {
		if t.eo == eo {
			return
		}
	}
	d.st.captured[pointer] = append(d.st.captured[pointer], target{hit: hit, eo: eo})
}

func (d *dispatch) release(pointer int, eo InstanceID) {
	list := d.st.captured[pointer]
	for i, t := range list {
		if t.eo == eo {
			d.st.captured[pointer] = append(list[:i], list[i+1:]...)
			d.m.fire(&dispatch{m: d.m, st: d.st, root: d.root}, OnLostPointerCapture, t, d.st.last, nil, 0, Ray{})
			return
		}
	}
}

func (d *dispatch) hasCapture(pointer int, eo InstanceID) bool {
	for _, t := range d.st.captured[pointer] {
		if t.eo == eo {
			return true
		}
	}
	return false
}

type sceneHandler struct {
	id uint32
	fn Handler
}

// CallbackHandle allows removing a registered scene-level callback.
type CallbackHandle struct {
	id   uint32
	m    *EventManager
	kind HandlerKind
}

// Remove unregisters this callback so it no longer fires.
func (h CallbackHandle) Remove() {
	if h.m == nil {
		return
	}
	list := h.m.scene[h.kind]
	for i, sh := range list {
		if sh.id == h.id {
			h.m.scene[h.kind] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// EventManager turns pointer input into handler invocations on the
// instances under the pointer.
type EventManager struct {
	ctx    *Context
	states map[RootID]*pointerState
	scene  [numHandlerKinds][]sceneHandler
	nextID uint32
	store  EntityStore
	queue  []injected

	// ClickDistance is the click-versus-drag threshold in pixels.
	ClickDistance float64
}

// NewEventManager creates an event manager over ctx. It purges removed
// instances from its interaction state and refreshes hover once per frame.
func NewEventManager(ctx *Context) *EventManager {
	m := &EventManager{
		ctx:           ctx,
		states:        make(map[RootID]*pointerState),
		ClickDistance: DefaultClickDistance,
	}
	ctx.OnInstanceRemoved(m.purge)
	ctx.OnRootDestroyed(func(r *Root) {
		delete(m.states, r.id)
		kept := m.queue[:0]
		for _, q := range m.queue {
			if q.root != r.id {
				kept = append(kept, q)
			}
		}
		m.queue = kept
	})
	ctx.OnFrame(m.refreshHover)
	return m
}

// SetEntityStore sets the optional ECS store that receives interaction
// events. Pass nil to disable.
func (m *EventManager) SetEntityStore(s EntityStore) { m.store = s }

// On registers a scene-level callback fired once per dispatched event of
// kind, with the nearest target, before instance handlers. OnPointerMissed
// callbacks fire for missed events.
func (m *EventManager) On(kind HandlerKind, fn Handler) CallbackHandle {
	m.nextID++
	m.scene[kind] = append(m.scene[kind], sceneHandler{id: m.nextID, fn: fn})
	return CallbackHandle{id: m.nextID, m: m, kind: kind}
}

func (m *EventManager) state(id RootID) *pointerState {
	st, ok := m.states[id]
	if !ok {
		st = newPointerState()
		m.states[id] = st
	}
	return st
}

// Hovered returns the instances currently hovered on root, nearest first.
func (m *EventManager) Hovered(root RootID) []InstanceID {
	st, ok := m.states[root]
	if !ok {
		return nil
	}
	out := make([]InstanceID, len(st.hovered))
	for i, t := range st.hovered {
		out[i] = t.eo
	}
	return out
}

// Captured returns the instances capturing pointer on root.
func (m *EventManager) Captured(root RootID, pointer int) []InstanceID {
	st, ok := m.states[root]
	if !ok {
		return nil
	}
	var out []InstanceID
	for _, t := range st.captured[pointer] {
		out = append(out, t.eo)
	}
	return out
}

// Intersect returns the sorted hit candidates of root under p without
// dispatching anything.
func (m *EventManager) Intersect(root RootID, p Pointer) ([]Intersection, error) {
	r, ok := m.ctx.roots[root]
	if !ok {
		return nil, fmt.Errorf("intersect: %w %s", ErrUnknownRoot, root)
	}
	hits, _ := m.intersect(r, p)
	return hits, nil
}

// Dispatch delivers one pointer event on root: it hit-tests the root and
// its portal roots, tracks hover and capture, and fires handlers
// nearest-first with ancestor bubbling.
func (m *EventManager) Dispatch(root RootID, p Pointer) error {
	r, ok := m.ctx.roots[root]
	if !ok {
		return fmt.Errorf("dispatch: %w %s", ErrUnknownRoot, root)
	}
	if r.events.Disabled {
		return nil
	}
	st := m.state(root)
	if p.Kind != Wheel {
		st.last, st.hasLast = p, true
	}
	hits, rays := m.intersect(r, p)
	d := &dispatch{m: m, st: st, root: r}

	if p.Kind == PointerDown {
		st.downAt[p.ID] = Vec2{p.X, p.Y}
		set := make(map[InstanceID]bool)
		for _, t := range m.targets(hits) {
			set[t.eo] = true
		}
		st.initial[p.ID] = set
	}
	delta := 0.0
	if at, ok := st.downAt[p.ID]; ok {
		delta = math.Hypot(p.X-at.X, p.Y-at.Y)
	}

	targets := m.targets(hits)
	if p.Kind == PointerMove || p.Kind == PointerUp || p.Kind == PointerCancel {
		targets = m.withCaptures(targets, st.captured[p.ID])
	}

	switch {
	case p.Kind == PointerMove:
		m.hover(d, targets, p, hits, rays, delta, true)
	case p.Kind.isClickLike():
		if len(hits) == 0 {
			if delta <= m.ClickDistance {
				m.missed(d, p, nil)
			}
			break
		}
		if init, ok := st.initial[p.ID]; ok {
			if delta > m.ClickDistance {
				break
			}
			kept := targets[:0:0]
			for _, t := range targets {
				if init[t.eo] {
					kept = append(kept, t)
				}
			}
			targets = kept
		}
		m.propagate(d, p.Kind, targets, p, hits, rays, delta)
	default:
		m.propagate(d, p.Kind, targets, p, hits, rays, delta)
	}

	switch p.Kind {
	case PointerUp:
		captured := st.captured[p.ID]
		if len(hits) == 0 && len(captured) > 0 {
			m.missed(d, p, captured)
		}
		m.releaseAll(d, p.ID)
	case PointerCancel:
		m.releaseAll(d, p.ID)
		m.unhover(d, p)
		delete(st.downAt, p.ID)
		delete(st.initial, p.ID)
	}
	return nil
}

// Leave clears hover state on root as when the pointer leaves the surface.
func (m *EventManager) Leave(root RootID, pointer int) {
	st, ok := m.states[root]
	if !ok {
		return
	}
	r := m.ctx.roots[root]
	p := st.last
	p.ID = pointer
	m.unhover(&dispatch{m: m, st: st, root: r}, p)
	st.hasLast = false
}

// targets expands hits into handler targets: each hit followed by its
// ancestors, deduplicated by receiving instance, nearest hit first.
func (m *EventManager) targets(hits []Intersection) []target {
	var out []target
	seen := make(map[InstanceID]bool)
	for _, h := range hits {
		for cur := h.Instance; cur != 0; {
			inst, ok := m.ctx.Instances.Get(cur)
			if !ok {
				break
			}
			if !seen[cur] {
				seen[cur] = true
				out = append(out, target{hit: h, eo: cur})
			}
			cur = inst.Parent
		}
	}
	return out
}

func (m *EventManager) withCaptures(targets, captured []target) []target {
	for _, c := range captured {
		found := false
		for _, t := range targets {
			if t.eo == c.eo {
				found = true
				break
			}
		}
		if !found {
			targets = append(targets, c)
		}
	}
	return targets
}

// propagate fires kind's handler on every target in order until stopped.
func (m *EventManager) propagate(d *dispatch, k PointerKind, targets []target, p Pointer, hits []Intersection, rays map[RootID]Ray, delta float64) {
	hk, ok := handlerFor(k)
	if !ok || len(targets) == 0 {
		return
	}
	m.fireScene(d, hk, targets[0], p, hits, rays, delta)
	for _, t := range targets {
		if d.stopped {
			return
		}
		m.fire(d, hk, t, p, hits, delta, rays[t.hit.Root])
	}
}

// hover diffs the hovered set against targets, firing out/leave on
// instances no longer under the pointer and over/enter on new ones, and
// move on every target when move is set.
func (m *EventManager) hover(d *dispatch, targets []target, p Pointer, hits []Intersection, rays map[RootID]Ray, delta float64, move bool) {
	st := d.st
	present := make(map[InstanceID]bool, len(targets))
	for _, t := range targets {
		present[t.eo] = true
	}
	// Leave handlers may remove instances, which purges st.hovered.
	for _, h := range slices.Clone(st.hovered) {
		if present[h.eo] || !st.isHovered(h.eo) {
			continue
		}
		st.unhovered(h.eo)
		m.leave(d, h, p)
	}

	if move && len(targets) > 0 {
		m.fireScene(d, OnPointerMove, targets[0], p, hits, rays, delta)
	}
	walked := 0
	for _, t := range targets {
		if d.stopped {
			break
		}
		walked++
		if inst, ok := m.ctx.Instances.Get(t.eo); !ok || inst.disposed {
			continue
		}
		if !st.isHovered(t.eo) {
			st.hovered = append(st.hovered, t)
			ray := rays[t.hit.Root]
			m.fire(d, OnPointerOver, t, p, hits, delta, ray)
			m.fire(d, OnPointerEnter, t, p, hits, delta, ray)
		}
		if move {
			m.fire(d, OnPointerMove, t, p, hits, delta, rays[t.hit.Root])
		}
	}
	// Targets behind a stop are no longer hovered.
	for _, t := range targets[walked:] {
		if st.isHovered(t.eo) {
			st.unhovered(t.eo)
			m.leave(d, t, p)
		}
	}
}

func (st *pointerState) isHovered(id InstanceID) bool {
	for _, h := range st.hovered {
		if h.eo == id {
			return true
		}
	}
	return false
}

func (st *pointerState) unhovered(id InstanceID) {
	for i, h := range st.hovered {
		if h.eo == id {
			st.hovered = append(st.hovered[:i], st.hovered[i+1:]...)
			return
		}
	}
}

func (m *EventManager) leave(d *dispatch, t target, p Pointer) {
	ld := &dispatch{m: m, st: d.st, root: d.root}
	m.fire(ld, OnPointerOut, t, p, nil, 0, Ray{})
	m.fire(ld, OnPointerLeave, t, p, nil, 0, Ray{})
}

// unhover fires out/leave on every hovered instance and clears the set.
func (m *EventManager) unhover(d *dispatch, p Pointer) {
	hovered := slices.Clone(d.st.hovered)
	d.st.hovered = nil
	for _, h := range hovered {
		m.leave(d, h, p)
	}
}

func (m *EventManager) releaseAll(d *dispatch, pointer int) {
	captured := slices.Clone(d.st.captured[pointer])
	delete(d.st.captured, pointer)
	for _, t := range captured {
		m.fire(&dispatch{m: m, st: d.st, root: d.root}, OnLostPointerCapture, t, d.st.last, nil, 0, Ray{})
	}
}

// missed notifies the root, the scene-level missed callbacks and the
// given capture targets that a click-like event hit nothing.
func (m *EventManager) missed(d *dispatch, p Pointer, captured []target) {
	ev := &Event{Kind: OnPointerMissed, Pointer: p, Root: d.root.id, d: d}
	for _, sh := range m.scene[OnPointerMissed] {
		sh.fn(ev)
	}
	if d.root.onMissed != nil {
		d.root.onMissed(ev)
	}
	for _, t := range captured {
		m.fire(d, OnPointerMissed, t, p, nil, 0, Ray{})
	}
}

func (m *EventManager) fireScene(d *dispatch, hk HandlerKind, t target, p Pointer, hits []Intersection, rays map[RootID]Ray, delta float64) {
	list := m.scene[hk]
	if len(list) == 0 {
		return
	}
	ev := m.event(d, hk, t, p, hits, delta, rays[t.hit.Root])
	for _, sh := range list {
		sh.fn(ev)
	}
}

func (m *EventManager) event(d *dispatch, hk HandlerKind, t target, p Pointer, hits []Intersection, delta float64, ray Ray) *Event {
	return &Event{
		Kind:          hk,
		Pointer:       p,
		Ray:           ray,
		Root:          t.hit.Root,
		Intersection:  t.hit,
		Object:        t.hit.Instance,
		EventObject:   t.eo,
		Intersections: hits,
		Delta:         delta,
		d:             d,
	}
}

// fire invokes the hk handler of t's receiving instance. Instances
// removed since the hit test are skipped.
func (m *EventManager) fire(d *dispatch, hk HandlerKind, t target, p Pointer, hits []Intersection, delta float64, ray Ray) {
	inst, ok := m.ctx.Instances.Get(t.eo)
	if !ok || inst.disposed {
		return
	}
	h := inst.handlers.get(hk)
	if h == nil {
		return
	}
	h(m.event(d, hk, t, p, hits, delta, ray))
	m.emit(inst, hk, t, p)
}

func (m *EventManager) emit(inst *Instance, hk HandlerKind, t target, p Pointer) {
	if m.store == nil {
		return
	}
	raw, ok := inst.Props[PropEntity]
	if !ok {
		return
	}
	f, err := AsFloat(raw)
	if err != nil || f <= 0 {
		return
	}
	m.store.EmitEvent(InteractionEvent{
		Kind:      hk,
		EntityID:  uint64(f),
		Instance:  inst.ID,
		Root:      t.hit.Root,
		Point:     t.hit.Point,
		Distance:  t.hit.Distance,
		Pointer:   p,
		Modifiers: p.Modifiers,
	})
}

// refreshHover re-runs hover diffing at the last pointer position so
// objects moving under a still pointer get enter and leave events.
func (m *EventManager) refreshHover(r *Root) {
	st, ok := m.states[r.id]
	if !ok || !st.hasLast || r.events.Disabled || r.events.NoFrameHover {
		return
	}
	p := st.last
	p.Kind = PointerMove
	hits, rays := m.intersect(r, p)
	targets := m.withCaptures(m.targets(hits), st.captured[p.ID])
	m.hover(&dispatch{m: m, st: st, root: r}, targets, p, hits, rays, 0, false)
}

// purge drops a removed instance from hover, capture and click state
// without firing events.
func (m *EventManager) purge(inst *Instance) {
	for _, st := range m.states {
		st.unhovered(inst.ID)
		for pid, list := range st.captured {
			kept := list[:0]
			for _, t := range list {
				if t.eo != inst.ID {
					kept = append(kept, t)
				}
			}
			st.captured[pid] = kept
		}
		for _, set := range st.initial {
			delete(set, inst.ID)
		}
	}
}
