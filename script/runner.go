package script

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	fiber "github.com/pmndrs/react-three-fiber-sub004"
	"github.com/pmndrs/react-three-fiber-sub004/anim"
	"github.com/pmndrs/react-three-fiber-sub004/objects"
)

var (
	// ErrUnknownKey is returned when a step names a key that is not mounted.
	ErrUnknownKey = errors.New("script: unknown key")
	// ErrExpectation is returned when an expect step fails.
	ErrExpectation = errors.New("script: expectation failed")
	// ErrTimeout is returned by Run when the script outlives its frame limit.
	ErrTimeout = errors.New("script: frame limit reached")
)

// Record is one handler call observed by the runner.
type Record struct {
	Key    string
	Kind   fiber.HandlerKind
	Frame  uint64
	Object fiber.InstanceID
	Point  fiber.Vec3
}

// Runner sequences script steps across frames.
type Runner struct {
	rt       *fiber.Runtime
	root     fiber.RootID
	script   *Script
	logger   *log.Logger
	animator *anim.Animator

	keys   map[string]fiber.InstanceID
	record map[string][]string
	log    []Record

	cursor int
	wait   int
	done   bool
	errs   []error
}

// NewRunner creates the script's root on rt and mounts its initial tree.
// The runtime's registry must contain every type the script uses.
func NewRunner(rt *fiber.Runtime, s *Script) (*Runner, error) {
	r := &Runner{
		rt:       rt,
		script:   s,
		logger:   rt.Ctx.Logger.WithPrefix("script"),
		animator: anim.New(rt),
		keys:     make(map[string]fiber.InstanceID),
		record:   make(map[string][]string),
	}
	cfg := fiber.RootConfig{
		Size: fiber.Size{Width: s.Root.Width, Height: s.Root.Height, PixelRatio: s.Root.PixelRatio},
	}
	if cfg.Size.Width == 0 || cfg.Size.Height == 0 {
		cfg.Size.Width, cfg.Size.Height = 800, 600
	}
	if cfg.Size.PixelRatio == 0 {
		cfg.Size.PixelRatio = 1
	}
	if s.Root.Frameloop != "" {
		cfg.Frameloop, _ = fiber.ParseFrameLoop(s.Root.Frameloop)
	}
	cam := objects.NewPerspectiveCamera(75, cfg.Size.Width/cfg.Size.Height, 0.1, 1000)
	cam.Position = fiber.Vec3{Z: 5}
	cfg.Camera = cam

	id, err := rt.Roots.CreateRoot(0, cfg)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", s.Name, err)
	}
	r.root = id
	scene := r.sceneInstance()

	for _, n := range s.Nodes {
		if _, err := r.mount(scene, n); err != nil {
			r.errs = append(r.errs, err)
		}
	}
	if s.Root.Camera != "" {
		if err := r.useCamera(s.Root.Camera); err != nil {
			r.errs = append(r.errs, err)
		}
	}
	if len(s.Steps) == 0 {
		r.done = true
	}
	return r, nil
}

// Root returns the root the script runs on.
func (r *Runner) Root() fiber.RootID { return r.root }

// Lookup returns the instance mounted for key.
func (r *Runner) Lookup(key string) (fiber.InstanceID, bool) {
	id, ok := r.keys[key]
	return id, ok
}

// Records returns every recorded handler call in order.
func (r *Runner) Records() []Record { return append([]Record(nil), r.log...) }

// Count returns how many recorded calls of kind key received.
func (r *Runner) Count(key string, kind fiber.HandlerKind) int {
	n := 0
	for _, rec := range r.log {
		if rec.Key == key && rec.Kind == kind {
			n++
		}
	}
	return n
}

// Done reports whether every step has run and injected input drained.
func (r *Runner) Done() bool { return r.done }

// Err joins every error met so far.
func (r *Runner) Err() error { return errors.Join(r.errs...) }

// Step advances the runner by one frame. Call it before each scheduler
// tick.
func (r *Runner) Step() {
	if r.done {
		return
	}
	// Wait for pending injections to drain before advancing.
	if r.rt.Events.Pending() > 0 {
		return
	}
	if r.wait > 0 {
		r.wait--
		return
	}
	if r.cursor >= len(r.script.Steps) {
		r.done = true
		return
	}
	st := r.script.Steps[r.cursor]
	r.cursor++
	if err := r.exec(st); err != nil {
		r.logger.Warn("step failed", "step", r.cursor, "action", st.Action, "err", err)
		r.errs = append(r.errs, fmt.Errorf("step %d (%s): %w", r.cursor, st.Action, err))
	}
	if r.cursor >= len(r.script.Steps) && r.wait == 0 && r.rt.Events.Pending() == 0 {
		r.done = true
	}
}

// Run steps and ticks with dt until the script is done. It gives up after
// maxFrames.
func (r *Runner) Run(maxFrames int, dt float64) error {
	for frame := 0; !r.done; frame++ {
		if frame >= maxFrames {
			r.errs = append(r.errs, fmt.Errorf("%w after %d frames", ErrTimeout, maxFrames))
			break
		}
		r.Step()
		r.rt.Scheduler.Tick(dt)
	}
	return r.Err()
}

func (r *Runner) exec(st Step) error {
	rc, ev := r.rt.Reconciler, r.rt.Events
	switch st.Action {
	case ActionMount:
		parent, err := r.parentOf(st.Parent)
		if err != nil {
			return err
		}
		_, err = r.mount(parent, *st.Node)
		return err
	case ActionUpdate:
		id, err := r.lookup(st.Key)
		if err != nil {
			return err
		}
		return rc.Update(id, r.props(st.Key, st.Props))
	case ActionRemove:
		id, err := r.lookup(st.Key)
		if err != nil {
			return err
		}
		if err := rc.Remove(id); err != nil {
			return err
		}
		r.forgetRemoved()
		return nil
	case ActionReorder:
		parent, err := r.parentOf(st.Parent)
		if err != nil {
			return err
		}
		ids := make([]fiber.InstanceID, len(st.Order))
		for i, k := range st.Order {
			if ids[i], err = r.lookup(k); err != nil {
				return err
			}
		}
		return rc.Reorder(parent, ids)
	case ActionReparent:
		id, err := r.lookup(st.Key)
		if err != nil {
			return err
		}
		parent, err := r.parentOf(st.Parent)
		if err != nil {
			return err
		}
		return rc.Reparent(id, parent, fiber.AttachHint{})
	case ActionMove:
		ev.InjectMove(r.root, st.X, st.Y)
	case ActionPress:
		ev.InjectPress(r.root, st.X, st.Y)
	case ActionRelease:
		ev.InjectRelease(r.root, st.X, st.Y)
	case ActionClick:
		ev.InjectClick(r.root, st.X, st.Y)
	case ActionDrag:
		ev.InjectDrag(r.root, st.FromX, st.FromY, st.ToX, st.ToY, max(2, st.Frames))
	case ActionWait:
		// This frame counts as one.
		r.wait = st.Frames - 1
	case ActionInvalidate:
		if root, ok := r.rt.Roots.Get(r.root); ok {
			root.Invalidate(st.Frames)
		}
	case ActionResize:
		pr := 1.0
		if root, ok := r.rt.Roots.Get(r.root); ok {
			pr = root.Size().PixelRatio
		}
		return r.rt.Roots.Resize(r.root, st.Width, st.Height, pr)
	case ActionExpect:
		kind, _ := fiber.ParseHandlerKind(st.Event)
		if got := r.Count(st.Key, kind); got != st.Count {
			return fmt.Errorf("%w: %s %s called %d times, want %d", ErrExpectation, st.Key, st.Event, got, st.Count)
		}
	case ActionTween:
		id, err := r.lookup(st.Key)
		if err != nil {
			return err
		}
		return r.tween(id, st)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidScript, st.Action)
	}
	return nil
}

// Animator returns the animator tween steps run on.
func (r *Runner) Animator() *anim.Animator { return r.animator }

func (r *Runner) tween(id fiber.InstanceID, st Step) error {
	fn, _ := anim.Ease(st.Ease)
	d := float32(st.Duration)
	switch st.tweenKind() {
	case "float":
		from, err := fiber.AsFloat(st.From)
		if err != nil {
			return err
		}
		to, err := fiber.AsFloat(st.To)
		if err != nil {
			return err
		}
		_, err = r.animator.Float(id, st.Prop, from, to, d, fn)
		return err
	case "vec3":
		from, err := fiber.AsVec3(st.From)
		if err != nil {
			return err
		}
		to, err := fiber.AsVec3(st.To)
		if err != nil {
			return err
		}
		_, err = r.animator.Vec3(id, st.Prop, from, to, d, fn)
		return err
	default:
		from, err := fiber.AsColor(st.From)
		if err != nil {
			return err
		}
		to, err := fiber.AsColor(st.To)
		if err != nil {
			return err
		}
		_, err = r.animator.Color(id, st.Prop, from, to, d, fn)
		return err
	}
}

// mount mounts n and its subtree under parent, registering keys.
func (r *Runner) mount(parent fiber.InstanceID, n Node) (fiber.InstanceID, error) {
	if n.Key != "" {
		if _, taken := r.keys[n.Key]; taken {
			return 0, fmt.Errorf("mount %s: %w: key %q already mounted", n.Type, ErrInvalidScript, n.Key)
		}
		r.record[n.Key] = n.Record
	}
	hint, err := fiber.ParseAttach(n.Attach)
	if err != nil {
		return 0, err
	}
	id, err := r.rt.Reconciler.Mount(parent, n.Type, r.props(n.Key, n.Props), hint)
	if err != nil {
		delete(r.record, n.Key)
		return 0, err
	}
	if n.Key != "" {
		r.keys[n.Key] = id
	}
	var errs []error
	for _, c := range n.Children {
		if _, err := r.mount(id, c); err != nil {
			errs = append(errs, err)
		}
	}
	return id, errors.Join(errs...)
}

// props copies raw and adds a recording handler for every recorded key.
func (r *Runner) props(key string, raw map[string]any) fiber.Props {
	p := make(fiber.Props, len(raw)+len(r.record[key]))
	for k, v := range raw {
		p[k] = v
	}
	for _, name := range r.record[key] {
		kind, _ := fiber.ParseHandlerKind(name)
		p[name] = fiber.Handler(func(e *fiber.Event) {
			rec := Record{Key: key, Kind: kind, Object: e.Object, Point: e.Intersection.Point}
			if root, ok := r.rt.Roots.Get(r.root); ok {
				rec.Frame = root.Frame()
			}
			r.log = append(r.log, rec)
		})
	}
	return p
}

func (r *Runner) useCamera(key string) error {
	id, err := r.lookup(key)
	if err != nil {
		return err
	}
	inst, _ := r.rt.Reconciler.Get(id)
	cam, ok := inst.Object.(fiber.Camera)
	if !ok {
		return fmt.Errorf("%w: node %q (%s) is not a camera", ErrInvalidScript, key, inst.Type)
	}
	root, _ := r.rt.Roots.Get(r.root)
	root.SetCamera(cam)
	return nil
}

func (r *Runner) sceneInstance() fiber.InstanceID {
	root, _ := r.rt.Roots.Get(r.root)
	return root.Instance()
}

// parentOf resolves a parent key, the root scene when empty.
func (r *Runner) parentOf(key string) (fiber.InstanceID, error) {
	if key == "" {
		return r.sceneInstance(), nil
	}
	return r.lookup(key)
}

func (r *Runner) lookup(key string) (fiber.InstanceID, error) {
	id, ok := r.keys[key]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownKey, key)
	}
	return id, nil
}

// forgetRemoved drops keys whose instances left the graph.
func (r *Runner) forgetRemoved() {
	for k, id := range r.keys {
		if _, ok := r.rt.Reconciler.Get(id); !ok {
			delete(r.keys, k)
			delete(r.record, k)
		}
	}
}
