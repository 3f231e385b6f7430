package fiber

import (
	"fmt"
	"slices"
	"strings"
)

// InstanceID identifies a live instance. It packs an arena slot index and
// a generation so stale ids never resolve to a recycled slot. The zero
// value is "no instance".
type InstanceID uint64

func makeInstanceID(index, gen uint32) InstanceID {
	return InstanceID(uint64(gen)<<32 | uint64(index))
}

func (id InstanceID) index() uint32 { return uint32(id) }
func (id InstanceID) gen() uint32   { return uint32(id >> 32) }

func (id InstanceID) String() string {
	if id == 0 {
		return "#none"
	}
	return fmt.Sprintf("#%d.%d", id.index(), id.gen())
}

// Instance is one live graph node plus its bookkeeping.
type Instance struct {
	ID     InstanceID
	Type   string
	Object any
	Props  Props
	Attach Attachment

	Parent   InstanceID
	Children []InstanceID

	Dispose DisposePolicy
	State   SuspenseState

	root     RootID
	def      *TypeDef
	handlers handlerSet

	// previous holds the parent field value replaced by a named attach,
	// restored on detach.
	previous any
	// subs are subscriptions whose lifetime is tied to this instance.
	subs []SubscriptionID

	disposed bool
}

// Root returns the root this instance belongs to.
func (inst *Instance) Root() RootID { return inst.root }

// Def returns the type definition that built the instance.
func (inst *Instance) Def() *TypeDef { return inst.def }

// IsDisposed reports whether the instance has been removed.
func (inst *Instance) IsDisposed() bool { return inst.disposed }

// HasHandlers reports whether any event handler is set.
func (inst *Instance) HasHandlers() bool { return !inst.handlers.empty() }

type slot struct {
	gen  uint32
	inst *Instance
}

// Registry is the arena owning every Instance. Links between instances
// are ids, never pointers.
type Registry struct {
	slots []slot
	free  []uint32
	live  int
}

// NewRegistry creates an empty arena. Slot 0 is reserved so the zero id
// never resolves.
func NewRegistry() *Registry {
	return &Registry{slots: make([]slot, 1, 64)}
}

// insert allocates an id for inst and stores it.
func (r *Registry) insert(inst *Instance) InstanceID {
	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		idx = uint32(len(r.slots))
		r.slots = append(r.slots, slot{})
	}
	s := &r.slots[idx]
	s.gen++
	s.inst = inst
	inst.ID = makeInstanceID(idx, s.gen)
	r.live++
	return inst.ID
}

// delete frees the slot of id. Stale ids are ignored.
func (r *Registry) delete(id InstanceID) {
	idx := id.index()
	if idx == 0 || int(idx) >= len(r.slots) {
		return
	}
	s := &r.slots[idx]
	if s.gen != id.gen() || s.inst == nil {
		return
	}
	s.inst = nil
	r.free = append(r.free, idx)
	r.live--
}

// Get resolves id to its instance.
func (r *Registry) Get(id InstanceID) (*Instance, bool) {
	idx := id.index()
	if idx == 0 || int(idx) >= len(r.slots) {
		return nil, false
	}
	s := r.slots[idx]
	if s.gen != id.gen() || s.inst == nil {
		return nil, false
	}
	return s.inst, true
}

// Len returns the number of live instances.
func (r *Registry) Len() int { return r.live }

// Walk visits id and its descendants depth-first in child order. Returning
// false from fn skips that instance's subtree.
func (r *Registry) Walk(id InstanceID, fn func(inst *Instance, depth int) bool) {
	r.walk(id, 0, fn)
}

func (r *Registry) walk(id InstanceID, depth int, fn func(*Instance, int) bool) {
	inst, ok := r.Get(id)
	if !ok {
		return
	}
	if !fn(inst, depth) {
		return
	}
	for _, c := range inst.Children {
		r.walk(c, depth+1, fn)
	}
}

// Path returns the slash-separated type path from the root down to id,
// used in diagnostics.
func (r *Registry) Path(id InstanceID) string {
	var parts []string
	for cur := id; cur != 0; {
		inst, ok := r.Get(cur)
		if !ok {
			break
		}
		parts = append(parts, inst.Type)
		cur = inst.Parent
	}
	if len(parts) == 0 {
		return "/"
	}
	slices.Reverse(parts)
	return "/" + strings.Join(parts, "/")
}

// isAncestor reports whether candidate is id or one of its ancestors.
func (r *Registry) isAncestor(candidate, id InstanceID) bool {
	for cur := id; cur != 0; {
		if cur == candidate {
			return true
		}
		inst, ok := r.Get(cur)
		if !ok {
			return false
		}
		cur = inst.Parent
	}
	return false
}

// removeChildID removes id from children, keeping order.
// Uses copy+zero to avoid retaining the id in the backing array.
func removeChildID(children []InstanceID, id InstanceID) ([]InstanceID, bool) {
	for i, c := range children {
		if c == id {
			copy(children[i:], children[i+1:])
			children[len(children)-1] = 0
			return children[:len(children)-1], true
		}
	}
	return children, false
}

func indexOfID(ids []InstanceID, id InstanceID) int {
	for i, c := range ids {
		if c == id {
			return i
		}
	}
	return -1
}
