package fiber

import (
	"fmt"
	"strconv"
	"strings"
)

// AttachKind says how a child object is wired into its parent object.
type AttachKind uint8

const (
	AttachNone    AttachKind = iota // logical child only, no object wiring
	AttachGeneric                   // parent.AddChild(child)
	AttachNamed                     // parent field assignment
	AttachIndexed                   // slot in a parent array field
)

func (k AttachKind) String() string {
	switch k {
	case AttachNone:
		return "none"
	case AttachGeneric:
		return "generic"
	case AttachNamed:
		return "named"
	case AttachIndexed:
		return "indexed"
	default:
		return "unknown"
	}
}

// Attachment is the resolved attach descriptor of an instance.
type Attachment struct {
	Kind  AttachKind
	Field string
	// Index is the array position for AttachIndexed, kept contiguous.
	Index int
}

func (a Attachment) String() string {
	switch a.Kind {
	case AttachNamed:
		return "named(" + a.Field + ")"
	case AttachIndexed:
		return fmt.Sprintf("indexed(%s, %d)", a.Field, a.Index)
	default:
		return a.Kind.String()
	}
}

type hintKind uint8

const (
	hintDefault hintKind = iota
	hintNamed
	hintIndexed
	hintGeneric
)

// AttachHint is the caller's request for how to attach. The zero value
// lets the parent's declared slots decide.
type AttachHint struct {
	kind  hintKind
	field string
	index int // -1 appends
}

// Named requests assignment to a parent field.
func Named(field string) AttachHint { return AttachHint{kind: hintNamed, field: field} }

// Indexed requests the next free slot of a parent array field.
func Indexed(field string) AttachHint { return AttachHint{kind: hintIndexed, field: field, index: -1} }

// IndexedAt requests position i of a parent array field. The array stays
// dense, so i is clamped to its current length.
func IndexedAt(field string, i int) AttachHint {
	return AttachHint{kind: hintIndexed, field: field, index: i}
}

// Generic requests a plain child add.
func Generic() AttachHint { return AttachHint{kind: hintGeneric} }

// IsZero reports whether the hint is the default.
func (h AttachHint) IsZero() bool { return h.kind == hintDefault }

func (h AttachHint) String() string {
	switch h.kind {
	case hintNamed:
		return "named(" + h.field + ")"
	case hintIndexed:
		if h.index < 0 {
			return "indexed(" + h.field + ")"
		}
		return fmt.Sprintf("indexed(%s, %d)", h.field, h.index)
	case hintGeneric:
		return "generic"
	default:
		return "default"
	}
}

// ParseAttach converts an attach prop value into a hint. Strings follow
// the property path convention:
//
//	"geometry"      named field
//	"materials[]"   next free slot of an array field
//	"materials-1"   array slot 1 (also "materials.1")
//	"children"      generic child (also "GenericChild")
func ParseAttach(v any) (AttachHint, error) {
	switch t := v.(type) {
	case nil:
		return AttachHint{}, nil
	case AttachHint:
		return t, nil
	case string:
		return parseAttachString(t)
	}
	return AttachHint{}, fmt.Errorf("%w: attach must be a string or AttachHint, got %T", ErrInvalidValue, v)
}

func parseAttachString(s string) (AttachHint, error) {
	switch s {
	case "":
		return AttachHint{}, nil
	case "children", "GenericChild":
		return Generic(), nil
	}
	if field, ok := strings.CutSuffix(s, "[]"); ok {
		return Indexed(field), nil
	}
	if i := strings.LastIndexAny(s, ".-"); i > 0 && i < len(s)-1 {
		if n, err := strconv.Atoi(s[i+1:]); err == nil {
			if n < 0 {
				return AttachHint{}, fmt.Errorf("%w: negative attach index in %q", ErrInvalidValue, s)
			}
			return IndexedAt(s[:i], n), nil
		}
	}
	return Named(s), nil
}

// Resolve decides how a child of childDef attaches to a parent of
// parentDef. Rules in priority order: explicit named hint, explicit
// indexed hint, the parent's canonical slot for the child's category,
// then generic. A hint naming an undeclared slot yields a generic
// attachment together with an *AttachmentError to be logged.
func Resolve(parentDef, childDef *TypeDef, hint AttachHint) (Attachment, error) {
	switch hint.kind {
	case hintGeneric:
		return Attachment{Kind: AttachGeneric}, nil
	case hintNamed:
		if _, ok := parentDef.Fields[hint.field]; ok {
			return Attachment{Kind: AttachNamed, Field: hint.field}, nil
		}
		if _, ok := parentDef.Arrays[hint.field]; ok {
			return Attachment{Kind: AttachIndexed, Field: hint.field, Index: -1}, nil
		}
		return Attachment{Kind: AttachGeneric}, &AttachmentError{
			Parent: parentDef.Tag, Child: childDef.Tag, Hint: hint, Err: ErrUnknownAttachKey,
		}
	case hintIndexed:
		if _, ok := parentDef.Arrays[hint.field]; ok {
			return Attachment{Kind: AttachIndexed, Field: hint.field, Index: hint.index}, nil
		}
		return Attachment{Kind: AttachGeneric}, &AttachmentError{
			Parent: parentDef.Tag, Child: childDef.Tag, Hint: hint, Err: ErrUnknownAttachKey,
		}
	}
	if childDef.Category != "" {
		if field, ok := parentDef.Slots[childDef.Category]; ok {
			if _, ok := parentDef.Fields[field]; ok {
				return Attachment{Kind: AttachNamed, Field: field}, nil
			}
			if _, ok := parentDef.Arrays[field]; ok {
				return Attachment{Kind: AttachIndexed, Field: field, Index: -1}, nil
			}
		}
	}
	return Attachment{Kind: AttachGeneric}, nil
}

// --- Wiring ---

type arrayKey struct {
	parent InstanceID
	field  string
}

// arraySlot tracks the managed members of one parent array field. base is
// the array as it was before the first managed attach, restored verbatim
// once the last member leaves.
type arraySlot struct {
	base []any
	ids  []InstanceID
}

// wire performs the object-level attachment of child into parent according
// to child.Attach. For indexed attachments pos is the requested position
// (-1 appends).
func (rc *Reconciler) wire(parent, child *Instance) {
	switch child.Attach.Kind {
	case AttachNamed:
		f := parent.def.Fields[child.Attach.Field]
		if f.Get != nil {
			child.previous = f.Get(parent.Object)
		}
		f.Set(parent.Object, child.Object)
	case AttachIndexed:
		key := arrayKey{parent.ID, child.Attach.Field}
		a := parent.def.Arrays[child.Attach.Field]
		s, ok := rc.ctx.arrays[key]
		if !ok {
			s = &arraySlot{}
			if a.Get != nil {
				s.base = a.Get(parent.Object)
			}
			rc.ctx.arrays[key] = s
		}
		// Array order always follows the parent's child order; the child
		// is already placed in parent.Children.
		s.ids = append(s.ids, child.ID)
		s.ids = orderLike(s.ids, parent.Children)
		rc.publishArray(parent, child.Attach.Field, s)
	case AttachGeneric:
		c, ok := parent.Object.(Container)
		if !ok {
			rc.ctx.Logger.Warn("attach fell back to logical child",
				"err", &AttachmentError{Parent: parent.Type, Child: child.Type, Hint: Generic(), Err: ErrNoContainer})
			child.Attach = Attachment{Kind: AttachNone}
			return
		}
		if err := c.AddChild(child.Object); err != nil {
			rc.ctx.Logger.Warn("add child failed", "parent", parent.Type, "child", child.Type, "err", err)
			child.Attach = Attachment{Kind: AttachNone}
		}
	}
}

// unwire undoes child's object-level attachment into parent.
func (rc *Reconciler) unwire(parent, child *Instance) {
	switch child.Attach.Kind {
	case AttachNamed:
		f := parent.def.Fields[child.Attach.Field]
		var current any
		if f.Get != nil {
			current = f.Get(parent.Object)
		}
		if f.Get == nil || sameObject(current, child.Object) {
			f.Set(parent.Object, child.previous)
		} else {
			// A later sibling overwrote the field; splice this child out of
			// the chain of saved values instead.
			for _, sid := range parent.Children {
				sib, ok := rc.ctx.Instances.Get(sid)
				if ok && sib != child && sib.Attach == child.Attach && sameObject(sib.previous, child.Object) {
					sib.previous = child.previous
				}
			}
		}
		child.previous = nil
	case AttachIndexed:
		key := arrayKey{parent.ID, child.Attach.Field}
		s, ok := rc.ctx.arrays[key]
		if !ok {
			return
		}
		s.ids, _ = removeChildID(s.ids, child.ID)
		if len(s.ids) == 0 {
			parent.def.Arrays[child.Attach.Field].Set(parent.Object, s.base)
			delete(rc.ctx.arrays, key)
		} else {
			rc.publishArray(parent, child.Attach.Field, s)
		}
		child.Attach.Index = -1
	case AttachGeneric:
		if c, ok := parent.Object.(Container); ok {
			if err := c.RemoveChild(child.Object); err != nil {
				rc.ctx.Logger.Warn("remove child failed", "parent", parent.Type, "child", child.Type, "err", err)
			}
		}
	}
}

// publishArray writes the dense array for s and refreshes every member's
// recorded index.
func (rc *Reconciler) publishArray(parent *Instance, field string, s *arraySlot) {
	items := make([]any, 0, len(s.base)+len(s.ids))
	items = append(items, s.base...)
	for i, id := range s.ids {
		inst, ok := rc.ctx.Instances.Get(id)
		if !ok {
			continue
		}
		inst.Attach.Index = len(s.base) + i
		items = append(items, inst.Object)
	}
	parent.def.Arrays[field].Set(parent.Object, items)
}

// resequenceArrays reorders every indexed slot of parent to follow the
// parent's current child order.
func (rc *Reconciler) resequenceArrays(parent *Instance) {
	for key, s := range rc.ctx.arrays {
		if key.parent != parent.ID {
			continue
		}
		s.ids = orderLike(s.ids, parent.Children)
		rc.publishArray(parent, key.field, s)
	}
}

// orderLike returns the members of ids arranged in the order they appear
// in order. Members missing from order are dropped.
func orderLike(ids, order []InstanceID) []InstanceID {
	next := make([]InstanceID, 0, len(ids))
	for _, id := range order {
		if indexOfID(ids, id) >= 0 {
			next = append(next, id)
		}
	}
	return next
}

// indexedInsertPos returns where in children a new member of field should
// be inserted so that it becomes the slot'th member. A negative or
// out-of-range slot appends.
func (rc *Reconciler) indexedInsertPos(parent *Instance, field string, slot int) int {
	if slot < 0 {
		return len(parent.Children)
	}
	n := 0
	for i, cid := range parent.Children {
		c, ok := rc.ctx.Instances.Get(cid)
		if !ok || c.Attach.Kind != AttachIndexed || c.Attach.Field != field {
			continue
		}
		if n == slot {
			return i
		}
		n++
	}
	return len(parent.Children)
}

// sameObject compares object handles without panicking on
// non-comparable dynamic types.
func sameObject(a, b any) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
