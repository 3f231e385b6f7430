package fiber

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownType is returned when a type tag has no registered definition.
	ErrUnknownType = errors.New("fiber: unknown type tag")
	// ErrUnknownInstance is returned for ids that are stale or never existed.
	ErrUnknownInstance = errors.New("fiber: unknown instance")
	// ErrUnknownRoot is returned for destroyed or unknown roots.
	ErrUnknownRoot = errors.New("fiber: unknown root")
	// ErrUnknownProperty is returned when a property path does not resolve.
	ErrUnknownProperty = errors.New("fiber: unknown property path")
	// ErrInvalidValue is returned when a value cannot be normalized for a setter.
	ErrInvalidValue = errors.New("fiber: invalid property value")
	// ErrNotChild is returned by containers asked to remove a foreign child.
	ErrNotChild = errors.New("fiber: instance is not a child of parent")
	// ErrMidFrameCommit is returned for graph mutations inside a running frame.
	ErrMidFrameCommit = errors.New("fiber: graph mutation while a frame is running")
	// ErrCycle is returned when a reparent would make an instance its own ancestor.
	ErrCycle = errors.New("fiber: reparent would create a cycle")
	// ErrRootInstance is returned when removing or reparenting a root's scene instance.
	ErrRootInstance = errors.New("fiber: operation not allowed on a root instance")
	// ErrNoContainer is returned when generic attach meets a parent without AddChild.
	ErrNoContainer = errors.New("fiber: parent object does not accept children")
	// ErrUnknownAttachKey is returned when an attach hint names an undeclared slot.
	ErrUnknownAttachKey = errors.New("fiber: attach target not declared by parent")
)

// ConstructionError reports a failed mount: the tag is unknown or the
// constructor failed. Path is the slash-separated type path from the root.
type ConstructionError struct {
	Type string
	Path string
	Err  error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("fiber: construct %q at %s: %v", e.Type, e.Path, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// PropertyError reports a property that could not be applied. It never
// aborts the remaining properties of the same operation.
type PropertyError struct {
	Type string
	Key  string
	Err  error
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("fiber: apply %s.%s: %v", e.Type, e.Key, e.Err)
}

func (e *PropertyError) Unwrap() error { return e.Err }

// AttachmentError reports an attach hint naming a slot the parent does not
// declare. The child falls back to a generic attachment.
type AttachmentError struct {
	Parent string
	Child  string
	Hint   AttachHint
	Err    error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("fiber: attach %q to %q via %s: %v", e.Child, e.Parent, e.Hint, e.Err)
}

func (e *AttachmentError) Unwrap() error { return e.Err }

// DisposalError reports a failing dispose hook. The instance is removed
// from the registry regardless.
type DisposalError struct {
	Type string
	ID   InstanceID
	Err  error
}

func (e *DisposalError) Error() string {
	return fmt.Sprintf("fiber: dispose %q (%s): %v", e.Type, e.ID, e.Err)
}

func (e *DisposalError) Unwrap() error { return e.Err }

// RaycastError reports a failing ray-intersection hook. The candidate is
// excluded from the hit list.
type RaycastError struct {
	Type string
	ID   InstanceID
	Err  error
}

func (e *RaycastError) Error() string {
	return fmt.Sprintf("fiber: raycast %q (%s): %v", e.Type, e.ID, e.Err)
}

func (e *RaycastError) Unwrap() error { return e.Err }

// recovered turns a recovered panic value into an error.
func recovered(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
