package objects

import (
	"errors"
	"fmt"

	fiber "github.com/pmndrs/react-three-fiber-sub004"
)

var (
	// ErrNotObject is returned when a non-scene object is added as a child.
	ErrNotObject = errors.New("objects: child is not a scene object")
	// ErrCycle is returned when adding a child would create a cycle.
	ErrCycle = errors.New("objects: adding child would create a cycle")
	// ErrNotChild is returned when removing an object that is not a child.
	ErrNotChild = errors.New("objects: object is not a child of this node")
)

// Object is anything that embeds a Node.
type Object interface {
	Base() *Node
}

// Resource counts disposals. Geometries, materials and nodes embed it.
type Resource struct {
	// OnDispose, if set, runs on every Dispose call.
	OnDispose func()
	disposals int
}

// Dispose releases the resource. Calling it more than once is allowed and
// counted, so tests can assert exactly-once release.
func (r *Resource) Dispose() error {
	r.disposals++
	if r.OnDispose != nil {
		r.OnDispose()
	}
	return nil
}

// Disposals returns how many times Dispose was called.
func (r *Resource) Disposals() int { return r.disposals }

// Node is the base of every scene object: a transform, visibility, render
// order and an ordered child list.
type Node struct {
	Resource

	Name     string
	Position fiber.Vec3
	Scale    fiber.Vec3
	// Rotation is the rotation about Z in radians.
	Rotation float64
	Visible  bool
	Order    int

	// UserData is an arbitrary value attached by the host.
	UserData any

	parent   *Node
	children []Object
}

func nodeDefaults(n *Node) {
	n.Scale = fiber.Vec3{X: 1, Y: 1, Z: 1}
	n.Visible = true
}

// Base returns n itself, so *Node and every type embedding it is an Object.
func (n *Node) Base() *Node { return n }

// Parent returns the parent node, nil for a detached node.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the child list. The slice must not be modified.
func (n *Node) Children() []Object { return n.children }

// NumChildren returns the number of children.
func (n *Node) NumChildren() int { return len(n.children) }

// IsVisible reports the node's own visibility flag.
func (n *Node) IsVisible() bool { return n.Visible }

// RenderOrder returns the explicit render order.
func (n *Node) RenderOrder() int { return n.Order }

// AddChild appends child to this node's children. A child that already
// has a parent is moved.
func (n *Node) AddChild(child any) error {
	o, ok := child.(Object)
	if !ok || o == nil {
		return fmt.Errorf("%w: %T", ErrNotObject, child)
	}
	c := o.Base()
	if isAncestor(c, n) {
		return ErrCycle
	}
	if c.parent != nil {
		c.parent.removeChildByPtr(c)
	}
	c.parent = n
	n.children = append(n.children, o)
	return nil
}

// RemoveChild detaches child from this node.
func (n *Node) RemoveChild(child any) error {
	o, ok := child.(Object)
	if !ok || o == nil {
		return fmt.Errorf("%w: %T", ErrNotObject, child)
	}
	c := o.Base()
	if c.parent != n {
		return ErrNotChild
	}
	n.removeChildByPtr(c)
	c.parent = nil
	return nil
}

// LocalTransform returns the node's transform relative to its parent.
func (n *Node) LocalTransform() Transform { return computeLocalTransform(n) }

// WorldTransform composes the transforms from the root down to n.
func (n *Node) WorldTransform() Transform {
	local := computeLocalTransform(n)
	if n.parent == nil {
		return local
	}
	return n.parent.WorldTransform().Mul(local)
}

// WorldPosition returns the node's origin in world space.
func (n *Node) WorldPosition() fiber.Vec3 {
	return n.WorldTransform().Apply(fiber.Vec3{})
}

// WorldToLocal converts a world-space point to this node's local space.
func (n *Node) WorldToLocal(p fiber.Vec3) fiber.Vec3 {
	inv, _ := n.WorldTransform().Inverse()
	return inv.Apply(p)
}

// LocalToWorld converts a local-space point to world space.
func (n *Node) LocalToWorld(p fiber.Vec3) fiber.Vec3 {
	return n.WorldTransform().Apply(p)
}

// isAncestor reports whether candidate is node or an ancestor of node.
func isAncestor(candidate, node *Node) bool {
	for p := node; p != nil; p = p.parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from n.children without clearing its
// parent. Uses copy+nil to avoid retaining a dangling pointer.
func (n *Node) removeChildByPtr(child *Node) {
	for i, c := range n.children {
		if c.Base() == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			return
		}
	}
}

// Group is a plain container node.
type Group struct {
	Node
}

// NewGroup creates an empty group.
func NewGroup(name string) *Group {
	g := &Group{}
	nodeDefaults(&g.Node)
	g.Name = name
	return g
}

// Scene is the root object of a graph.
type Scene struct {
	Node
	Background fiber.Color
}

// NewScene creates an empty scene with a black background.
func NewScene() *Scene {
	s := &Scene{Background: fiber.Color{A: 1}}
	nodeDefaults(&s.Node)
	s.Name = "scene"
	return s
}
