package fiber

import (
	"errors"
	"fmt"
	"sort"
)

// Element is a declarative subtree description, mounted with MountTree.
type Element struct {
	Type     string
	Props    Props
	Attach   AttachHint
	Children []Element
}

// Reconciler turns tree operations into mutations of the live graph.
type Reconciler struct {
	ctx       *Context
	suspended []*Suspension
}

// NewReconciler creates a reconciler over ctx.
func NewReconciler(ctx *Context) *Reconciler {
	rc := &Reconciler{ctx: ctx}
	ctx.OnInstanceRemoved(rc.cancelSuspensions)
	return rc
}

// Context returns the context the reconciler mutates.
func (rc *Reconciler) Context() *Context { return rc.ctx }

// Get resolves an instance id.
func (rc *Reconciler) Get(id InstanceID) (*Instance, bool) {
	return rc.ctx.Instances.Get(id)
}

func (rc *Reconciler) checkCommit() error {
	if rc.ctx.running {
		return ErrMidFrameCommit
	}
	return nil
}

// Mount constructs an instance of typ under parent, applies props and
// wires it into the parent object. An unknown tag or failing constructor
// returns a *ConstructionError and leaves the graph untouched.
func (rc *Reconciler) Mount(parent InstanceID, typ string, props Props, hint AttachHint) (InstanceID, error) {
	if err := rc.checkCommit(); err != nil {
		return 0, err
	}
	p, ok := rc.ctx.Instances.Get(parent)
	if !ok {
		return 0, fmt.Errorf("mount %q: %w (parent %s)", typ, ErrUnknownInstance, parent)
	}
	inst, err := rc.build(p.root, rc.ctx.Instances.Path(parent)+"/"+typ, typ, props)
	if err != nil {
		return 0, err
	}
	if hint.IsZero() {
		hint = rc.attachHint(inst)
	}
	rc.place(p, inst, hint, -1)
	rc.debugChecks(p, inst)
	rc.ctx.Invalidate(p.root)
	return inst.ID, nil
}

// build constructs the object, applies props and registers the instance
// without wiring it anywhere.
func (rc *Reconciler) build(root RootID, path, typ string, props Props) (*Instance, error) {
	def, ok := rc.ctx.Types.Lookup(typ)
	if !ok {
		return nil, &ConstructionError{Type: typ, Path: path, Err: ErrUnknownType}
	}
	if props == nil {
		props = Props{}
	}
	obj, err := rc.construct(def, props, path)
	if err != nil {
		return nil, err
	}
	inst := &Instance{
		Type:    typ,
		Object:  obj,
		Props:   props.Clone(),
		Dispose: def.Dispose,
		root:    root,
		def:     def,
	}
	rc.applyDispose(inst, props)
	rc.applyAll(inst, props)
	rc.ctx.Instances.insert(inst)
	return inst, nil
}

// place resolves inst's attachment against parent, links it at position
// pos of parent.Children (-1 appends, adjusted for indexed slots) and
// wires the objects.
func (rc *Reconciler) place(parent, inst *Instance, hint AttachHint, pos int) {
	att, err := Resolve(parent.def, inst.def, hint)
	if err != nil {
		rc.ctx.Logger.Warn("attach fell back to generic child", "err", err)
	}
	inst.Attach = att
	inst.Parent = parent.ID
	if pos < 0 && att.Kind == AttachIndexed {
		pos = rc.indexedInsertPos(parent, att.Field, att.Index)
	}
	if pos < 0 || pos > len(parent.Children) {
		pos = len(parent.Children)
	}
	parent.Children = append(parent.Children, 0)
	copy(parent.Children[pos+1:], parent.Children[pos:])
	parent.Children[pos] = inst.ID
	rc.wire(parent, inst)
}

// attachHint reads the attach prop of inst, logging malformed values.
func (rc *Reconciler) attachHint(inst *Instance) AttachHint {
	raw, ok := inst.Props[PropAttach]
	if !ok {
		return AttachHint{}
	}
	hint, err := ParseAttach(raw)
	if err != nil {
		rc.ctx.Logger.Warn("ignoring attach prop", "type", inst.Type, "err", err)
		return AttachHint{}
	}
	return hint
}

func (rc *Reconciler) construct(def *TypeDef, props Props, path string) (obj any, err error) {
	defer func() {
		if r := recover(); r != nil {
			obj, err = nil, &ConstructionError{Type: def.Tag, Path: path, Err: recovered(r)}
		}
	}()
	obj, err = def.New(def.constructorArgs(props))
	if err != nil {
		return nil, &ConstructionError{Type: def.Tag, Path: path, Err: err}
	}
	if obj == nil {
		return nil, &ConstructionError{Type: def.Tag, Path: path, Err: errors.New("constructor returned nil")}
	}
	return obj, nil
}

func (rc *Reconciler) applyDispose(inst *Instance, props Props) {
	v, ok := props[PropDispose]
	if !ok {
		inst.Dispose = inst.def.Dispose
		return
	}
	switch t := v.(type) {
	case nil:
		inst.Dispose = NoDispose
	case DisposePolicy:
		inst.Dispose = t
	case bool:
		if t {
			inst.Dispose = AutoDispose
		} else {
			inst.Dispose = NoDispose
		}
	default:
		rc.ctx.Logger.Warn("ignoring dispose prop", "type", inst.Type, "value", v)
	}
}

// applyAll applies every non-constructor prop in key order, so a whole
// value is set before any of its nested paths.
func (rc *Reconciler) applyAll(inst *Instance, props Props) {
	for _, key := range sortedKeys(props) {
		rc.applyOne(inst, key, props[key])
	}
}

func (rc *Reconciler) applyOne(inst *Instance, key string, v any) {
	if isHandlerKey(key) {
		if err := inst.handlers.set(key, v); err != nil {
			rc.ctx.Logger.Warn("property apply failed", "err", &PropertyError{Type: inst.Type, Key: key, Err: err})
		}
		return
	}
	if isReserved(key) || inst.def.isConstructorKey(key) {
		return
	}
	if err := rc.setProp(inst, key, v); err != nil {
		rc.ctx.Logger.Warn("property apply failed", "err", &PropertyError{Type: inst.Type, Key: key, Err: err})
	}
}

// Update diffs props against the last applied set and applies the
// changes. A changed constructor-only key re-mounts the object in place.
func (rc *Reconciler) Update(id InstanceID, props Props) error {
	if err := rc.checkCommit(); err != nil {
		return err
	}
	inst, ok := rc.ctx.Instances.Get(id)
	if !ok {
		return fmt.Errorf("update: %w %s", ErrUnknownInstance, id)
	}
	if props == nil {
		props = Props{}
	}
	var changed, removed []string
	for k, v := range props {
		if old, had := inst.Props[k]; !had || !propEqual(old, v) {
			changed = append(changed, k)
		}
	}
	for k := range inst.Props {
		if _, still := props[k]; !still {
			removed = append(removed, k)
		}
	}
	if len(changed) == 0 && len(removed) == 0 {
		return nil
	}
	sort.Strings(changed)
	sort.Strings(removed)

	for _, keys := range [][]string{changed, removed} {
		for _, k := range keys {
			if inst.def.isConstructorKey(k) {
				return rc.remount(inst, props)
			}
		}
	}

	inst.Props = props.Clone()
	// Resets run first so a nested key such as position-y survives the
	// removal of its parent key.
	for _, k := range removed {
		switch {
		case k == PropAttach:
			rc.reattach(inst)
		case k == PropDispose:
			rc.applyDispose(inst, props)
		case isHandlerKey(k):
			if err := inst.handlers.set(k, nil); err != nil {
				rc.ctx.Logger.Warn("property reset failed", "err", &PropertyError{Type: inst.Type, Key: k, Err: err})
			}
		case isReserved(k):
		default:
			if err := rc.resetProp(inst, k); err != nil {
				rc.ctx.Logger.Warn("property reset failed", "err", &PropertyError{Type: inst.Type, Key: k, Err: err})
			}
		}
	}
	for _, k := range changed {
		switch k {
		case PropAttach:
			rc.reattach(inst)
		case PropDispose:
			rc.applyDispose(inst, props)
		default:
			rc.applyOne(inst, k, props[k])
		}
	}
	rc.ctx.Logger.Debug("updated", "id", id, "type", inst.Type, "changed", len(changed), "removed", len(removed))
	rc.ctx.Invalidate(inst.root)
	return nil
}

// reattach re-resolves the attachment after the attach prop changed.
func (rc *Reconciler) reattach(inst *Instance) {
	parent, ok := rc.ctx.Instances.Get(inst.Parent)
	if !ok {
		return
	}
	pos := indexOfID(parent.Children, inst.ID)
	rc.unwire(parent, inst)
	parent.Children, _ = removeChildID(parent.Children, inst.ID)
	rc.place(parent, inst, rc.attachHint(inst), pos)
}

// remount replaces inst's object with a freshly constructed one, keeping
// its id, attachment and children.
func (rc *Reconciler) remount(inst *Instance, props Props) error {
	obj, err := rc.construct(inst.def, props, rc.ctx.Instances.Path(inst.ID))
	if err != nil {
		return err
	}
	parent, hasParent := rc.ctx.Instances.Get(inst.Parent)
	children := rc.childInstances(inst)
	for _, c := range children {
		rc.unwire(inst, c)
	}
	if hasParent {
		rc.unwire(parent, inst)
	}
	rc.disposeObject(inst)

	inst.Object = obj
	inst.Props = props.Clone()
	inst.handlers = handlerSet{}
	rc.applyDispose(inst, props)
	rc.applyAll(inst, props)

	if hasParent {
		rc.wire(parent, inst)
	} else if r, ok := rc.ctx.roots[inst.root]; ok && r.rootInstance == inst.ID {
		r.scene = obj
	}
	for _, c := range children {
		if c.Attach.Kind == AttachNone {
			c.Attach.Kind = AttachGeneric
		}
		rc.wire(inst, c)
	}
	rc.ctx.Logger.Debug("remounted", "id", inst.ID, "type", inst.Type)
	rc.ctx.Invalidate(inst.root)
	return nil
}

func (rc *Reconciler) childInstances(inst *Instance) []*Instance {
	out := make([]*Instance, 0, len(inst.Children))
	for _, cid := range inst.Children {
		if c, ok := rc.ctx.Instances.Get(cid); ok {
			out = append(out, c)
		}
	}
	return out
}

// Remove unwires id from its parent, removes its subtree post-order,
// disposes owned objects and deletes the instances.
func (rc *Reconciler) Remove(id InstanceID) error {
	if err := rc.checkCommit(); err != nil {
		return err
	}
	inst, ok := rc.ctx.Instances.Get(id)
	if !ok {
		return fmt.Errorf("remove: %w %s", ErrUnknownInstance, id)
	}
	if inst.Parent == 0 {
		return fmt.Errorf("remove %s: %w", id, ErrRootInstance)
	}
	if parent, ok := rc.ctx.Instances.Get(inst.Parent); ok {
		rc.unwire(parent, inst)
		parent.Children, _ = removeChildID(parent.Children, id)
	}
	root := inst.root
	rc.removeTree(inst)
	rc.ctx.Invalidate(root)
	return nil
}

// removeTree removes inst and its descendants. inst is already unwired
// from its parent.
func (rc *Reconciler) removeTree(inst *Instance) {
	for _, c := range rc.childInstances(inst) {
		rc.unwire(inst, c)
		rc.removeTree(c)
	}
	inst.Children = nil
	for _, fn := range rc.ctx.onRemove {
		fn(inst)
	}
	rc.disposeObject(inst)
	inst.disposed = true
	inst.handlers = handlerSet{}
	rc.ctx.Instances.delete(inst.ID)
}

// disposeObject releases inst's object once, if the policy allows it.
func (rc *Reconciler) disposeObject(inst *Instance) {
	if inst.Dispose != AutoDispose || inst.disposed {
		return
	}
	d, ok := inst.Object.(Disposer)
	if !ok {
		return
	}
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = recovered(r)
			}
		}()
		return d.Dispose()
	}()
	if err != nil {
		rc.ctx.Logger.Warn("dispose failed", "err", &DisposalError{Type: inst.Type, ID: inst.ID, Err: err})
	}
}

// Reorder re-sequences parent's children. ids must be a permutation of
// the current children. Only indexed attachments are re-wired.
func (rc *Reconciler) Reorder(parent InstanceID, ids []InstanceID) error {
	if err := rc.checkCommit(); err != nil {
		return err
	}
	p, ok := rc.ctx.Instances.Get(parent)
	if !ok {
		return fmt.Errorf("reorder: %w %s", ErrUnknownInstance, parent)
	}
	if len(ids) != len(p.Children) {
		return fmt.Errorf("reorder %s: %w: got %d ids for %d children", parent, ErrNotChild, len(ids), len(p.Children))
	}
	seen := make(map[InstanceID]bool, len(ids))
	for _, id := range ids {
		if seen[id] || indexOfID(p.Children, id) < 0 {
			return fmt.Errorf("reorder %s: %w: %s", parent, ErrNotChild, id)
		}
		seen[id] = true
	}
	p.Children = append(p.Children[:0], ids...)
	rc.resequenceArrays(p)
	rc.ctx.Invalidate(p.root)
	return nil
}

// Reparent moves id under newParent, keeping its id, object and subtree.
// A zero hint re-reads the instance's attach prop.
func (rc *Reconciler) Reparent(id, newParent InstanceID, hint AttachHint) error {
	if err := rc.checkCommit(); err != nil {
		return err
	}
	inst, ok := rc.ctx.Instances.Get(id)
	if !ok {
		return fmt.Errorf("reparent: %w %s", ErrUnknownInstance, id)
	}
	if inst.Parent == 0 {
		return fmt.Errorf("reparent %s: %w", id, ErrRootInstance)
	}
	np, ok := rc.ctx.Instances.Get(newParent)
	if !ok {
		return fmt.Errorf("reparent: %w %s", ErrUnknownInstance, newParent)
	}
	if rc.ctx.Instances.isAncestor(id, newParent) {
		return fmt.Errorf("reparent %s under %s: %w", id, newParent, ErrCycle)
	}
	oldRoot := inst.root
	if op, ok := rc.ctx.Instances.Get(inst.Parent); ok {
		rc.unwire(op, inst)
		op.Children, _ = removeChildID(op.Children, id)
	}
	if hint.IsZero() {
		hint = rc.attachHint(inst)
	}
	rc.place(np, inst, hint, -1)
	if np.root != oldRoot {
		rc.ctx.Instances.Walk(id, func(d *Instance, _ int) bool {
			d.root = np.root
			return true
		})
		rc.ctx.Invalidate(oldRoot)
	}
	rc.debugChecks(np, inst)
	rc.ctx.Invalidate(np.root)
	return nil
}

// MountTree mounts el and its descendants under parent. A failing child
// element is skipped along with its subtree; its siblings still mount.
// The returned error joins every failure.
func (rc *Reconciler) MountTree(parent InstanceID, el Element) (InstanceID, error) {
	id, err := rc.Mount(parent, el.Type, el.Props, el.Attach)
	if err != nil {
		return 0, err
	}
	var errs []error
	for _, child := range el.Children {
		if _, err := rc.MountTree(id, child); err != nil {
			errs = append(errs, err)
		}
	}
	return id, errors.Join(errs...)
}

// mountRoot builds the root instance of a root store.
func (rc *Reconciler) mountRoot(root RootID, typ string, props Props) (*Instance, error) {
	return rc.build(root, "/"+typ, typ, props)
}

// destroyRootInstance removes a root instance and its subtree.
func (rc *Reconciler) destroyRootInstance(id InstanceID) {
	if inst, ok := rc.ctx.Instances.Get(id); ok {
		rc.removeTree(inst)
	}
}

func sortedKeys(p Props) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
