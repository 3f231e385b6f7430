package fiber

import (
	"math"
	"sort"
)

// ComputeFunc derives the pick ray of root for a pointer. prev is the ray
// of the parent root when root is a portal root, nil otherwise. Returning
// false excludes the root from this dispatch.
type ComputeFunc func(p Pointer, root *Root, prev *Ray) (Ray, bool)

// DefaultCompute maps the pointer to NDC over the root's surface and asks
// its camera for a ray. Portal roots without a camera of their own reuse
// the parent's ray.
func DefaultCompute(p Pointer, root *Root, prev *Ray) (Ray, bool) {
	if prev != nil && !root.OwnCamera() {
		return *prev, true
	}
	cam := root.Camera()
	if cam == nil {
		return Ray{}, false
	}
	return cam.Ray(root.Size().NDC(p.X, p.Y)), true
}

// UVCompute returns a compute function for a portal root rendered onto the
// surface of proxy, an instance in the parent root. The parent ray is cast
// against proxy and the nearest hit's UV becomes the portal camera's NDC.
func (m *EventManager) UVCompute(proxy InstanceID) ComputeFunc {
	return func(_ Pointer, root *Root, prev *Ray) (Ray, bool) {
		if prev == nil {
			return Ray{}, false
		}
		inst, ok := m.ctx.Instances.Get(proxy)
		if !ok {
			return Ray{}, false
		}
		rc, ok := inst.Object.(Raycaster)
		if !ok {
			return Ray{}, false
		}
		hits, err := m.raycast(inst, rc, *prev)
		if err != nil || len(hits) == 0 {
			return Ray{}, false
		}
		cam := root.Camera()
		if cam == nil {
			return Ray{}, false
		}
		uv := nearest(hits).UV
		return cam.Ray(Vec2{X: uv.X*2 - 1, Y: uv.Y*2 - 1}), true
	}
}

func nearest(hits []RayHit) RayHit {
	best := hits[0]
	for _, h := range hits[1:] {
		if h.Distance < best.Distance {
			best = h
		}
	}
	return best
}

// rays memoizes the compute chain for one dispatch.
type rays struct {
	m    *EventManager
	p    Pointer
	memo map[RootID]*Ray
	done map[RootID]bool
}

func (rs *rays) of(r *Root) (Ray, bool) {
	if rs.done[r.id] {
		if ray := rs.memo[r.id]; ray != nil {
			return *ray, true
		}
		return Ray{}, false
	}
	rs.done[r.id] = true
	var prev *Ray
	if r.parent != nil {
		pr, ok := rs.of(r.parent)
		if !ok {
			return Ray{}, false
		}
		prev = &pr
	}
	compute := r.events.Compute
	if compute == nil {
		compute = DefaultCompute
	}
	ray, ok := compute(rs.p, r, prev)
	if !ok {
		return Ray{}, false
	}
	rs.memo[r.id] = &ray
	return ray, true
}

// intersect hit-tests every raycastable instance of top and its portal
// roots and returns the sorted candidates, at most one per instance.
func (m *EventManager) intersect(top *Root, p Pointer) ([]Intersection, map[RootID]Ray) {
	rs := &rays{m: m, p: p, memo: make(map[RootID]*Ray), done: make(map[RootID]bool)}
	var hits []Intersection
	order := 0
	var visit func(r *Root)
	visit = func(r *Root) {
		if !r.events.Disabled {
			if ray, ok := rs.of(r); ok {
				m.ctx.Instances.Walk(r.rootInstance, func(inst *Instance, _ int) bool {
					if v, ok := inst.Object.(Visibler); ok && !v.IsVisible() {
						return false
					}
					order++
					rc, ok := inst.Object.(Raycaster)
					if !ok {
						return true
					}
					found, err := m.raycast(inst, rc, ray)
					if err != nil {
						m.ctx.Logger.Warn("raycast failed", "err", err)
						return true
					}
					if len(found) == 0 {
						return true
					}
					h := nearest(found)
					if math.IsNaN(h.Distance) {
						return true
					}
					is := Intersection{
						Instance: inst.ID,
						Root:     r.id,
						Distance: h.Distance,
						Point:    h.Point,
						Local:    h.Local,
						UV:       h.UV,
						order:    order,
						priority: r.events.Priority,
					}
					if ro, ok := inst.Object.(RenderOrderer); ok {
						is.RenderOrder = ro.RenderOrder()
					}
					hits = append(hits, is)
					return true
				})
			}
		}
		for _, c := range r.children {
			visit(c)
		}
	}
	visit(top)
	sortIntersections(hits)
	if f := top.events.Filter; f != nil {
		hits = f(hits, top)
	}
	out := make(map[RootID]Ray, len(rs.memo))
	for id, ray := range rs.memo {
		out[id] = *ray
	}
	return hits, out
}

// sortIntersections orders candidates by root priority (higher first),
// distance (nearer first), render order (higher first) and declaration
// order (later first).
func sortIntersections(hits []Intersection) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.priority != b.priority {
			return a.priority > b.priority
		}
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.RenderOrder != b.RenderOrder {
			return a.RenderOrder > b.RenderOrder
		}
		return a.order > b.order
	})
}

func (m *EventManager) raycast(inst *Instance, rc Raycaster, ray Ray) (hits []RayHit, err error) {
	defer func() {
		if r := recover(); r != nil {
			hits, err = nil, &RaycastError{Type: inst.Type, ID: inst.ID, Err: recovered(r)}
		}
	}()
	hits, err = rc.Raycast(ray)
	if err != nil {
		return nil, &RaycastError{Type: inst.Type, ID: inst.ID, Err: err}
	}
	return hits, nil
}
