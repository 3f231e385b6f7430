// Package anim tweens instance properties from the frame scheduler.
//
// Tweens write through Reconciler.Set on the update stage, so they mutate
// live objects mid-frame without committing props. A tween stops when it
// finishes, when Stop is called, or when its instance is removed.
package anim

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	fiber "github.com/pmndrs/react-three-fiber-sub004"
)

// Tween animates up to 4 components of one property of an instance.
type Tween struct {
	tweens [4]*gween.Tween
	count  int
	build  func(v [4]float64) any

	id     fiber.InstanceID
	key    string
	sub    fiber.SubscriptionID
	onDone []func()

	Done bool
}

// Instance returns the animated instance.
func (t *Tween) Instance() fiber.InstanceID { return t.id }

// Key returns the animated property path.
func (t *Tween) Key() string { return t.key }

// OnDone registers fn to run once the tween completes. Stopped tweens do
// not run it.
func (t *Tween) OnDone(fn func()) *Tween {
	t.onDone = append(t.onDone, fn)
	return t
}

// advance steps every component by dt seconds and returns the new value.
func (t *Tween) advance(dt float32) (any, bool) {
	var vals [4]float64
	allDone := true
	for i := 0; i < t.count; i++ {
		v, finished := t.tweens[i].Update(dt)
		vals[i] = float64(v)
		if !finished {
			allDone = false
		}
	}
	return t.build(vals), allDone
}

var easings = map[string]ease.TweenFunc{
	"linear":     ease.Linear,
	"inQuad":     ease.InQuad,
	"outQuad":    ease.OutQuad,
	"inOutQuad":  ease.InOutQuad,
	"outCubic":   ease.OutCubic,
	"inOutCubic": ease.InOutCubic,
	"inOutSine":  ease.InOutSine,
	"outBounce":  ease.OutBounce,
	"outElastic": ease.OutElastic,
}

// Ease returns the easing function registered under name. The empty name
// is linear.
func Ease(name string) (ease.TweenFunc, bool) {
	if name == "" {
		return ease.Linear, true
	}
	fn, ok := easings[name]
	return fn, ok
}

// Animator runs tweens for one runtime.
type Animator struct {
	rc     *fiber.Reconciler
	sched  *fiber.Scheduler
	logger *log.Logger
	active map[fiber.InstanceID][]*Tween

	// Stage is the scheduler stage new tweens run on.
	Stage fiber.StageID
}

// New creates an animator over rt. Tweens of removed instances are dropped
// without firing OnDone.
func New(rt *fiber.Runtime) *Animator {
	a := &Animator{
		rc:     rt.Reconciler,
		sched:  rt.Scheduler,
		logger: rt.Ctx.Logger.WithPrefix("anim"),
		active: make(map[fiber.InstanceID][]*Tween),
		Stage:  fiber.StageUpdate,
	}
	rt.Ctx.OnInstanceRemoved(func(inst *fiber.Instance) {
		for _, t := range a.active[inst.ID] {
			t.Done = true
		}
		delete(a.active, inst.ID)
	})
	return a
}

// Active returns the number of running tweens.
func (a *Animator) Active() int {
	n := 0
	for _, ts := range a.active {
		n += len(ts)
	}
	return n
}

// Float tweens a scalar property such as "opacity" or "position-x".
func (a *Animator) Float(id fiber.InstanceID, key string, from, to float64, duration float32, fn ease.TweenFunc) (*Tween, error) {
	t := &Tween{count: 1, build: func(v [4]float64) any { return v[0] }}
	t.tweens[0] = gween.New(float32(from), float32(to), duration, fn)
	return a.start(t, id, key, from)
}

// Vec3 tweens a vector property such as "position" or "scale".
func (a *Animator) Vec3(id fiber.InstanceID, key string, from, to fiber.Vec3, duration float32, fn ease.TweenFunc) (*Tween, error) {
	t := &Tween{count: 3, build: func(v [4]float64) any { return fiber.Vec3{X: v[0], Y: v[1], Z: v[2]} }}
	t.tweens[0] = gween.New(float32(from.X), float32(to.X), duration, fn)
	t.tweens[1] = gween.New(float32(from.Y), float32(to.Y), duration, fn)
	t.tweens[2] = gween.New(float32(from.Z), float32(to.Z), duration, fn)
	return a.start(t, id, key, from)
}

// Color tweens all four channels of a color property.
func (a *Animator) Color(id fiber.InstanceID, key string, from, to fiber.Color, duration float32, fn ease.TweenFunc) (*Tween, error) {
	t := &Tween{count: 4, build: func(v [4]float64) any { return fiber.Color{R: v[0], G: v[1], B: v[2], A: v[3]} }}
	t.tweens[0] = gween.New(float32(from.R), float32(to.R), duration, fn)
	t.tweens[1] = gween.New(float32(from.G), float32(to.G), duration, fn)
	t.tweens[2] = gween.New(float32(from.B), float32(to.B), duration, fn)
	t.tweens[3] = gween.New(float32(from.A), float32(to.A), duration, fn)
	return a.start(t, id, key, from)
}

// start writes the initial value, which also validates the key, and
// subscribes the tween on behalf of the instance.
func (a *Animator) start(t *Tween, id fiber.InstanceID, key string, from any) (*Tween, error) {
	if err := a.rc.Set(id, key, from); err != nil {
		return nil, fmt.Errorf("tween %s: %w", key, err)
	}
	t.id, t.key = id, key
	sid, err := a.sched.SubscribeInstance(id, func(f *fiber.Frame) { a.step(t, f) }, a.Stage, 0)
	if err != nil {
		return nil, fmt.Errorf("tween %s: %w", key, err)
	}
	t.sub = sid
	a.active[id] = append(a.active[id], t)
	return t, nil
}

func (a *Animator) step(t *Tween, f *fiber.Frame) {
	if t.Done {
		return
	}
	v, finished := t.advance(float32(f.Delta))
	if err := a.rc.Set(t.id, t.key, v); err != nil {
		a.logger.Warn("tween stopped", "instance", t.id, "key", t.key, "err", err)
		a.Stop(t)
		return
	}
	if !finished {
		// Keep on-demand roots ticking until the tween lands.
		f.Root.Invalidate(1)
		return
	}
	a.Stop(t)
	for _, fn := range t.onDone {
		fn()
	}
}

// Stop ends t without writing further values.
func (a *Animator) Stop(t *Tween) {
	t.Done = true
	a.sched.Unsubscribe(t.sub)
	ts := a.active[t.id]
	for i, x := range ts {
		if x == t {
			ts = append(ts[:i], ts[i+1:]...)
			break
		}
	}
	if len(ts) == 0 {
		delete(a.active, t.id)
	} else {
		a.active[t.id] = ts
	}
}
