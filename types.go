package fiber

import (
	"fmt"
	"sort"
)

// Constructor builds a live object from its constructor-only arguments.
type Constructor func(args []any) (any, error)

// Field is a named attachment target on a parent object: a single slot
// such as a mesh's geometry.
type Field struct {
	Get func(parent any) any
	Set func(parent, child any)
}

// Array is an indexed attachment target on a parent object: a dense list
// such as a mesh's material array. Set always receives the full list.
type Array struct {
	Get func(parent any) []any
	Set func(parent any, items []any)
}

// Prop is one settable property of an object.
//
// Set assigns a leaf value. Get returns the nested object for paths that
// continue past this segment; its schema is Sub, or the value's own
// Schema when it implements Described. Reset restores the default when
// the key disappears from the props.
type Prop struct {
	Set   func(obj, v any) error
	Get   func(obj any) any
	Sub   *Schema
	Reset func(obj any)
}

// Schema is a per-type table of property setters.
type Schema struct {
	Props map[string]Prop
}

// Lookup returns the property registered under key.
func (s *Schema) Lookup(key string) (Prop, bool) {
	if s == nil {
		return Prop{}, false
	}
	p, ok := s.Props[key]
	return p, ok
}

// Described is implemented by nested objects that carry their own schema.
type Described interface {
	Schema() *Schema
}

// TypeDef describes one constructible type.
type TypeDef struct {
	Tag string
	New Constructor

	// ArgKeys are constructor-only prop keys. Their values are appended,
	// in order, after the positional "args" prop when constructing.
	ArgKeys []string

	Schema *Schema

	// Category is what this object is when attached to a parent, matched
	// against the parent's Slots.
	Category string
	// Slots maps a child category to the canonical Field receiving it.
	Slots map[string]string

	Fields map[string]Field
	Arrays map[string]Array

	// Dispose is the default policy for instances of this type.
	Dispose DisposePolicy
}

func (d *TypeDef) isConstructorKey(key string) bool {
	if key == PropArgs {
		return true
	}
	for _, k := range d.ArgKeys {
		if k == key {
			return true
		}
	}
	return false
}

// constructorArgs collects the positional argument list from props.
func (d *TypeDef) constructorArgs(props Props) []any {
	var args []any
	if raw, ok := props[PropArgs]; ok && raw != nil {
		switch v := raw.(type) {
		case []any:
			args = append(args, v...)
		default:
			args = append(args, v)
		}
	}
	for _, k := range d.ArgKeys {
		args = append(args, props[k])
	}
	return args
}

// TypePrimitive wraps a caller-supplied object passed in the "object" prop.
const TypePrimitive = "primitive"

// TypeRegistry maps type tags to their definitions. It is owned by a
// Context; there is no process-wide registry.
type TypeRegistry struct {
	defs map[string]*TypeDef
}

// NewTypeRegistry creates a registry holding only the primitive type.
func NewTypeRegistry() *TypeRegistry {
	r := &TypeRegistry{defs: make(map[string]*TypeDef)}
	r.defs[TypePrimitive] = &TypeDef{
		Tag:     TypePrimitive,
		ArgKeys: []string{PropObject},
		New: func(args []any) (any, error) {
			obj := args[len(args)-1]
			if obj == nil {
				return nil, fmt.Errorf("primitive requires an %q prop", PropObject)
			}
			return obj, nil
		},
		Dispose: NoDispose,
	}
	return r
}

// Register adds or replaces a type definition.
func (r *TypeRegistry) Register(def TypeDef) error {
	if def.Tag == "" {
		return fmt.Errorf("fiber: register type: empty tag")
	}
	if def.New == nil {
		return fmt.Errorf("fiber: register type %q: nil constructor", def.Tag)
	}
	d := def
	r.defs[def.Tag] = &d
	return nil
}

// RegisterFunc registers a bare constructor with no schema or slots.
func (r *TypeRegistry) RegisterFunc(tag string, fn Constructor) error {
	return r.Register(TypeDef{Tag: tag, New: fn})
}

// RegisterMany registers every definition in defs, keyed by tag. The map
// key wins over an empty TypeDef.Tag. Registration stops at the first error.
func (r *TypeRegistry) RegisterMany(defs map[string]TypeDef) error {
	tags := make([]string, 0, len(defs))
	for tag := range defs {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		def := defs[tag]
		if def.Tag == "" {
			def.Tag = tag
		}
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the definition for tag.
func (r *TypeRegistry) Lookup(tag string) (*TypeDef, bool) {
	d, ok := r.defs[tag]
	return d, ok
}

// Tags returns all registered tags in sorted order.
func (r *TypeRegistry) Tags() []string {
	tags := make([]string, 0, len(r.defs))
	for tag := range r.defs {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
