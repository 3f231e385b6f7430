package fiber

import "fmt"

// PointerKind identifies a kind of pointer input delivered by the host.
type PointerKind uint8

const (
	PointerMove   PointerKind = iota // pointer moved (hover or drag)
	PointerDown                      // button pressed
	PointerUp                        // button released
	Click                            // press then release on the same target
	DoubleClick                      // two clicks in quick succession
	ContextMenu                      // secondary-button click
	Wheel                            // scroll wheel
	PointerCancel                    // the platform aborted the pointer
)

func (k PointerKind) String() string {
	switch k {
	case PointerMove:
		return "pointermove"
	case PointerDown:
		return "pointerdown"
	case PointerUp:
		return "pointerup"
	case Click:
		return "click"
	case DoubleClick:
		return "dblclick"
	case ContextMenu:
		return "contextmenu"
	case Wheel:
		return "wheel"
	case PointerCancel:
		return "pointercancel"
	default:
		return "unknown"
	}
}

// isClickLike reports kinds that fall back to a missed event when nothing
// is hit.
func (k PointerKind) isClickLike() bool {
	return k == Click || k == DoubleClick || k == ContextMenu
}

// KeyModifiers is a bitmask of keyboard modifier keys.
type KeyModifiers uint8

const (
	ModShift KeyModifiers = 1 << iota // Shift key
	ModCtrl                           // Control key
	ModAlt                            // Alt / Option key
	ModMeta                           // Meta / Command / Windows key
)

// Pointer is one pointer input as delivered by the platform.
type Pointer struct {
	Kind PointerKind
	// X and Y are in surface pixels, origin top-left.
	X, Y      float64
	ID        int
	Button    int
	WheelY    float64
	Modifiers KeyModifiers
}

// HandlerKind names an event handler slot on an instance.
type HandlerKind uint8

const (
	OnClick HandlerKind = iota
	OnContextMenu
	OnDoubleClick
	OnPointerDown
	OnPointerUp
	OnPointerMove
	OnPointerOver
	OnPointerOut
	OnPointerEnter
	OnPointerLeave
	OnPointerCancel
	OnPointerMissed
	OnWheel
	OnLostPointerCapture
	numHandlerKinds
)

var handlerKeys = [numHandlerKinds]string{
	OnClick:              "onClick",
	OnContextMenu:        "onContextMenu",
	OnDoubleClick:        "onDoubleClick",
	OnPointerDown:        "onPointerDown",
	OnPointerUp:          "onPointerUp",
	OnPointerMove:        "onPointerMove",
	OnPointerOver:        "onPointerOver",
	OnPointerOut:         "onPointerOut",
	OnPointerEnter:       "onPointerEnter",
	OnPointerLeave:       "onPointerLeave",
	OnPointerCancel:      "onPointerCancel",
	OnPointerMissed:      "onPointerMissed",
	OnWheel:              "onWheel",
	OnLostPointerCapture: "onLostPointerCapture",
}

// Key returns the prop key of the handler slot.
func (k HandlerKind) Key() string {
	if k >= numHandlerKinds {
		return "unknown"
	}
	return handlerKeys[k]
}

func (k HandlerKind) String() string { return k.Key() }

// ParseHandlerKind returns the handler slot named by a prop key such as
// "onClick".
func ParseHandlerKind(key string) (HandlerKind, bool) { return handlerKindOf(key) }

func handlerKindOf(key string) (HandlerKind, bool) {
	for k, name := range handlerKeys {
		if name == key {
			return HandlerKind(k), true
		}
	}
	return 0, false
}

func isHandlerKey(key string) bool {
	_, ok := handlerKindOf(key)
	return ok
}

// handlerFor maps a pointer kind to the handler it triggers on hit targets.
func handlerFor(k PointerKind) (HandlerKind, bool) {
	switch k {
	case PointerMove:
		return OnPointerMove, true
	case PointerDown:
		return OnPointerDown, true
	case PointerUp:
		return OnPointerUp, true
	case Click:
		return OnClick, true
	case DoubleClick:
		return OnDoubleClick, true
	case ContextMenu:
		return OnContextMenu, true
	case Wheel:
		return OnWheel, true
	case PointerCancel:
		return OnPointerCancel, true
	}
	return 0, false
}

// Handler receives a synthesized event.
type Handler func(e *Event)

type handlerSet struct {
	fns [numHandlerKinds]Handler
	n   int
}

func (h *handlerSet) set(key string, v any) error {
	k, ok := handlerKindOf(key)
	if !ok {
		return fmt.Errorf("%w: %q is not a handler", ErrUnknownProperty, key)
	}
	var fn Handler
	switch t := v.(type) {
	case nil:
	case Handler:
		fn = t
	case func(*Event):
		fn = t
	default:
		return fmt.Errorf("%w: handler %q must be func(*fiber.Event), got %T", ErrInvalidValue, key, v)
	}
	if h.fns[k] != nil {
		h.n--
	}
	h.fns[k] = fn
	if fn != nil {
		h.n++
	}
	return nil
}

func (h *handlerSet) get(k HandlerKind) Handler { return h.fns[k] }

func (h *handlerSet) empty() bool { return h.n == 0 }

// Intersection is one hit-test candidate.
type Intersection struct {
	Instance    InstanceID
	Root        RootID
	Distance    float64
	Point       Vec3
	Local       Vec3
	UV          Vec2
	RenderOrder int

	// order is the depth-first declaration index; later wins ties.
	order int
	// priority is the owning root's event priority.
	priority int
}

// Event is the synthetic event passed to handlers.
type Event struct {
	Kind    HandlerKind
	Pointer Pointer
	Ray     Ray
	Root    RootID

	// Intersection is the hit being propagated; zero for missed events.
	Intersection Intersection
	// Object is the intersected instance, EventObject the instance whose
	// handler is running (the hit object or one of its ancestors).
	Object      InstanceID
	EventObject InstanceID

	Intersections []Intersection
	// Delta is the pointer travel in pixels since the last down.
	Delta float64

	d *dispatch
}

// StopPropagation prevents ancestor handlers and every farther candidate
// from receiving this event.
func (e *Event) StopPropagation() {
	if e.d != nil {
		e.d.stopped = true
	}
}

// Stopped reports whether propagation was stopped.
func (e *Event) Stopped() bool { return e.d != nil && e.d.stopped }

// SetPointerCapture routes this pointer's move and up events to the event
// object until released.
func (e *Event) SetPointerCapture() {
	if e.d != nil && e.EventObject != 0 {
		e.d.capture(e.Pointer.ID, e.EventObject, e.Intersection)
	}
}

// ReleasePointerCapture releases the event object's capture.
func (e *Event) ReleasePointerCapture() {
	if e.d != nil && e.EventObject != 0 {
		e.d.release(e.Pointer.ID, e.EventObject)
	}
}

// HasPointerCapture reports whether the event object holds the capture.
func (e *Event) HasPointerCapture() bool {
	if e.d == nil {
		return false
	}
	return e.d.hasCapture(e.Pointer.ID, e.EventObject)
}

// InteractionEvent is forwarded to an EntityStore for every handler
// invocation on an instance that carries an entity id.
type InteractionEvent struct {
	Kind      HandlerKind
	EntityID  uint64
	Instance  InstanceID
	Root      RootID
	Point     Vec3
	Distance  float64
	Pointer   Pointer
	Modifiers KeyModifiers
}

// EntityStore is the interface for optional ECS integration.
type EntityStore interface {
	EmitEvent(event InteractionEvent)
}
