package fiber

import (
	"fmt"
	"strings"
)

// SplitPath splits a property key on '.' and '-' separators.
func SplitPath(key string) []string {
	return strings.FieldsFunc(key, func(r rune) bool { return r == '.' || r == '-' })
}

// resolveProp walks key from inst's object down to the leaf property.
// The full key is tried first so schemas may register dotted names.
func (rc *Reconciler) resolveProp(inst *Instance, key string) (any, Prop, error) {
	schema := inst.def.Schema
	if p, ok := schema.Lookup(key); ok {
		return inst.Object, p, nil
	}
	segs := SplitPath(key)
	if len(segs) < 2 {
		return nil, Prop{}, fmt.Errorf("%w: %q", ErrUnknownProperty, key)
	}
	obj := inst.Object
	for i, seg := range segs[:len(segs)-1] {
		next, sub, ok := rc.descend(inst, i == 0, obj, schema, seg)
		if !ok || next == nil {
			return nil, Prop{}, fmt.Errorf("%w: %q (at %q)", ErrUnknownProperty, key, seg)
		}
		obj, schema = next, sub
	}
	last := segs[len(segs)-1]
	p, ok := schema.Lookup(last)
	if !ok {
		if d, isDescribed := obj.(Described); isDescribed {
			p, ok = d.Schema().Lookup(last)
		}
	}
	if !ok {
		return nil, Prop{}, fmt.Errorf("%w: %q (at %q)", ErrUnknownProperty, key, last)
	}
	return obj, p, nil
}

// descend resolves one intermediate path segment. At the top level a
// segment may also name an attachment field, whose schema comes from the
// child instance wired there.
func (rc *Reconciler) descend(inst *Instance, top bool, obj any, schema *Schema, seg string) (any, *Schema, bool) {
	if p, ok := schema.Lookup(seg); ok && p.Get != nil {
		next := p.Get(obj)
		return next, schemaOf(next, p.Sub), true
	}
	if !top {
		return nil, nil, false
	}
	f, ok := inst.def.Fields[seg]
	if !ok || f.Get == nil {
		return nil, nil, false
	}
	next := f.Get(obj)
	for _, cid := range inst.Children {
		c, ok := rc.ctx.Instances.Get(cid)
		if ok && c.Attach.Kind == AttachNamed && c.Attach.Field == seg && sameObject(c.Object, next) {
			return next, schemaOf(next, c.def.Schema), true
		}
	}
	return next, schemaOf(next, nil), true
}

func schemaOf(obj any, declared *Schema) *Schema {
	if declared != nil {
		return declared
	}
	if d, ok := obj.(Described); ok {
		return d.Schema()
	}
	return nil
}

// setProp applies a single property, isolating setter panics.
func (rc *Reconciler) setProp(inst *Instance, key string, v any) (err error) {
	obj, p, err := rc.resolveProp(inst, key)
	if err != nil {
		return err
	}
	if p.Set == nil {
		return fmt.Errorf("%w: %q is not settable", ErrUnknownProperty, key)
	}
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	return p.Set(obj, v)
}

// resetProp restores a property whose key disappeared from the props.
// Properties without a Reset hook keep their last value.
func (rc *Reconciler) resetProp(inst *Instance, key string) (err error) {
	obj, p, err := rc.resolveProp(inst, key)
	if err != nil {
		return err
	}
	if p.Reset == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	p.Reset(obj)
	return nil
}

// Set applies one property to the live object of id without recording it
// in the instance's props, the way frame callbacks mutate objects. Unlike
// Update it is allowed while a frame is running. The next Update diffs
// against the recorded props, not against values written here.
func (rc *Reconciler) Set(id InstanceID, key string, v any) error {
	inst, ok := rc.ctx.Instances.Get(id)
	if !ok {
		return fmt.Errorf("set: %w %s", ErrUnknownInstance, id)
	}
	if isReserved(key) || inst.def.isConstructorKey(key) {
		return &PropertyError{Type: inst.Type, Key: key, Err: fmt.Errorf("%w: reserved key", ErrInvalidValue)}
	}
	if err := rc.setProp(inst, key, v); err != nil {
		return &PropertyError{Type: inst.Type, Key: key, Err: err}
	}
	return nil
}
