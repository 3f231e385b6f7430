package fiber

import "fmt"

// RootID identifies a root store. The zero value is "no root".
type RootID uint32

func (id RootID) String() string { return fmt.Sprintf("root#%d", uint32(id)) }

// RootState is the scheduling state of a root.
type RootState uint8

const (
	RootIdle      RootState = iota // nothing to do until invalidated
	RootScheduled                  // will run on the next tick
	RootRunning                    // a frame is executing
)

func (s RootState) String() string {
	switch s {
	case RootIdle:
		return "idle"
	case RootScheduled:
		return "scheduled"
	case RootRunning:
		return "running"
	default:
		return "unknown"
	}
}

// maxPendingFrames caps accumulated on-demand invalidations.
const maxPendingFrames = 60

// DefaultSceneType is the root instance type used when RootConfig names none.
const DefaultSceneType = "scene"

// EventConfig is a root's event-manager settings.
type EventConfig struct {
	// Disabled stops the root from producing hit candidates.
	Disabled bool
	// Priority orders candidates across roots; higher sorts first.
	Priority int
	// Compute derives the root's pick ray. Nil uses DefaultCompute.
	Compute ComputeFunc
	// Filter may reorder or drop candidates after sorting.
	Filter func(hits []Intersection, root *Root) []Intersection
	// NoFrameHover turns off the per-frame hover refresh.
	NoFrameHover bool
}

// RootConfig describes a new root store.
type RootConfig struct {
	// Scene is the type tag of the root instance, DefaultSceneType if empty.
	Scene      string
	SceneProps Props
	// SceneObject wraps an existing object as the root instance instead.
	SceneObject any

	Camera   Camera
	Renderer Renderer

	// Size and Frameloop are ignored for child roots, which inherit both.
	Size      Size
	Frameloop FrameLoop

	Events          EventConfig
	OnPointerMissed Handler
}

// Root is a root store: one scene graph with its camera, surface size,
// clock, scheduling policy and event configuration.
type Root struct {
	id     RootID
	ctx    *Context
	parent *Root
	// children are portal roots, in creation order.
	children []*Root

	rootInstance InstanceID
	scene        any

	camera   Camera
	renderer Renderer
	size     Size
	ownSize  bool
	loop     FrameLoop
	ownLoop  bool

	state   RootState
	pending int

	events   EventConfig
	onMissed Handler

	frame   uint64
	elapsed float64
	delta   float64
	fixed   map[StageID]*fixedClock
}

// ID returns the root's id.
func (r *Root) ID() RootID { return r.id }

// Parent returns the root this portal root was created under, if any.
func (r *Root) Parent() (*Root, bool) { return r.parent, r.parent != nil }

// Children returns the portal roots created under r.
func (r *Root) Children() []*Root { return append([]*Root(nil), r.children...) }

// Instance returns the root instance id.
func (r *Root) Instance() InstanceID { return r.rootInstance }

// Scene returns the root instance's object.
func (r *Root) Scene() any { return r.scene }

// Camera returns the root's camera, falling back to the parent's.
func (r *Root) Camera() Camera {
	if r.camera == nil && r.parent != nil {
		return r.parent.Camera()
	}
	return r.camera
}

// OwnCamera reports whether the camera was set on this root itself.
func (r *Root) OwnCamera() bool { return r.camera != nil }

// SetCamera replaces the root's camera. Nil on a child root re-inherits.
func (r *Root) SetCamera(c Camera) {
	r.camera = c
	r.Invalidate(1)
}

// Renderer returns the default renderer, falling back to the parent's.
func (r *Root) Renderer() Renderer {
	if r.renderer == nil && r.parent != nil {
		return r.parent.Renderer()
	}
	return r.renderer
}

// SetRenderer replaces the default renderer.
func (r *Root) SetRenderer(rd Renderer) { r.renderer = rd }

// Size returns the surface size, inherited from the parent unless resized.
func (r *Root) Size() Size {
	if !r.ownSize && r.parent != nil {
		return r.parent.Size()
	}
	return r.size
}

// Frameloop returns the effective frame-loop policy.
func (r *Root) Frameloop() FrameLoop {
	if !r.ownLoop && r.parent != nil {
		return r.parent.Frameloop()
	}
	return r.loop
}

// State returns the scheduling state.
func (r *Root) State() RootState { return r.state }

// Events returns the event configuration.
func (r *Root) Events() EventConfig { return r.events }

// SetEvents replaces the event configuration.
func (r *Root) SetEvents(cfg EventConfig) { r.events = cfg }

// SetOnPointerMissed sets the root-level missed handler.
func (r *Root) SetOnPointerMissed(h Handler) { r.onMissed = h }

// Frame returns the number of frames the root has run.
func (r *Root) Frame() uint64 { return r.frame }

// Elapsed returns the accumulated frame time in seconds.
func (r *Root) Elapsed() float64 { return r.elapsed }

// Delta returns the delta of the last frame in seconds.
func (r *Root) Delta() float64 { return r.delta }

// Invalidate requests frames. Demand roots accumulate the request, capped
// at maxPendingFrames; the parent of a portal root is invalidated too.
func (r *Root) Invalidate(frames int) {
	if frames < 1 {
		frames = 1
	}
	r.pending = min(maxPendingFrames, r.pending+frames)
	if r.state == RootIdle && r.Frameloop() != FrameNever {
		r.state = RootScheduled
	}
	if r.parent != nil {
		r.parent.Invalidate(frames)
	}
}

// due reports whether a platform tick should run r.
func (r *Root) due() bool {
	switch r.Frameloop() {
	case FrameAlways:
		return true
	case FrameDemand:
		return r.pending > 0
	}
	return false
}

// settle moves r out of the running state after a frame.
func (r *Root) settle() {
	if r.pending > 0 {
		r.pending--
	}
	switch {
	case r.Frameloop() == FrameAlways:
		r.state = RootScheduled
	case r.Frameloop() == FrameDemand && r.pending > 0:
		r.state = RootScheduled
	default:
		r.state = RootIdle
	}
}

// Roots creates and destroys root stores on a context.
type Roots struct {
	ctx *Context
	rc  *Reconciler
}

// NewRoots returns the root registry of rc's context.
func NewRoots(rc *Reconciler) *Roots {
	return &Roots{ctx: rc.ctx, rc: rc}
}

// Get resolves a root id.
func (rs *Roots) Get(id RootID) (*Root, bool) { return rs.ctx.Root(id) }

// CreateRoot creates a root store. A non-zero parent makes it a portal
// root: it inherits the parent's size and frame loop, may carry its own
// camera and event compute, and is destroyed with its parent.
func (rs *Roots) CreateRoot(parent RootID, cfg RootConfig) (RootID, error) {
	if rs.ctx.running {
		return 0, ErrMidFrameCommit
	}
	var p *Root
	if parent != 0 {
		var ok bool
		if p, ok = rs.ctx.roots[parent]; !ok {
			return 0, fmt.Errorf("create root: %w %s", ErrUnknownRoot, parent)
		}
	}
	rs.ctx.nextRoot++
	r := &Root{
		id:       rs.ctx.nextRoot,
		ctx:      rs.ctx,
		parent:   p,
		camera:   cfg.Camera,
		renderer: cfg.Renderer,
		events:   cfg.Events,
		onMissed: cfg.OnPointerMissed,
		fixed:    make(map[StageID]*fixedClock),
	}
	if p == nil {
		r.size, r.ownSize = cfg.Size, true
		r.loop, r.ownLoop = cfg.Frameloop, true
	}

	typ, props := cfg.Scene, cfg.SceneProps
	if cfg.SceneObject != nil {
		typ, props = TypePrimitive, Props{PropObject: cfg.SceneObject}
	} else if typ == "" {
		typ = DefaultSceneType
	}
	inst, err := rs.rc.mountRoot(r.id, typ, props)
	if err != nil {
		return 0, fmt.Errorf("create root: %w", err)
	}
	r.rootInstance = inst.ID
	r.scene = inst.Object
	rs.ctx.roots[r.id] = r
	if p != nil {
		p.children = append(p.children, r)
	}
	r.Invalidate(1)
	rs.ctx.Logger.Debug("root created", "root", r.id, "parent", parent, "scene", typ, "frameloop", r.Frameloop())
	return r.id, nil
}

// DestroyRoot tears a root down: its portal roots first, then its
// subscriptions and event state, then its whole instance tree.
func (rs *Roots) DestroyRoot(id RootID) error {
	if rs.ctx.running {
		return ErrMidFrameCommit
	}
	r, ok := rs.ctx.roots[id]
	if !ok {
		return fmt.Errorf("destroy root: %w %s", ErrUnknownRoot, id)
	}
	rs.destroy(r)
	return nil
}

func (rs *Roots) destroy(r *Root) {
	for len(r.children) > 0 {
		rs.destroy(r.children[len(r.children)-1])
	}
	for _, fn := range rs.ctx.onRootDestroy {
		fn(r)
	}
	rs.rc.destroyRootInstance(r.rootInstance)
	if r.parent != nil {
		for i, c := range r.parent.children {
			if c == r {
				r.parent.children = append(r.parent.children[:i], r.parent.children[i+1:]...)
				break
			}
		}
	}
	delete(rs.ctx.roots, r.id)
	r.state = RootIdle
	rs.ctx.Logger.Debug("root destroyed", "root", r.id)
}

// Resize sets the surface size of a root. On a portal root the size stops
// being inherited.
func (rs *Roots) Resize(id RootID, width, height, pixelRatio float64) error {
	r, ok := rs.ctx.roots[id]
	if !ok {
		return fmt.Errorf("resize: %w %s", ErrUnknownRoot, id)
	}
	if width < 0 || height < 0 {
		return fmt.Errorf("resize %s: %w: negative size %gx%g", id, ErrInvalidValue, width, height)
	}
	r.size = Size{Width: width, Height: height, PixelRatio: pixelRatio}
	r.ownSize = true
	r.Invalidate(1)
	return nil
}

// SetFrameloop changes a root's scheduling policy.
func (rs *Roots) SetFrameloop(id RootID, loop FrameLoop) error {
	r, ok := rs.ctx.roots[id]
	if !ok {
		return fmt.Errorf("set frameloop: %w %s", ErrUnknownRoot, id)
	}
	r.loop, r.ownLoop = loop, true
	if loop == FrameNever {
		if r.state == RootScheduled {
			r.state = RootIdle
		}
		return nil
	}
	r.Invalidate(1)
	return nil
}
