package fiber

import (
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

// --- Fake object world ---

// fakeObj is a container, raycaster and disposer used by most tests.
type fakeObj struct {
	args      []any
	value     float64
	label     string
	pos       Vec3
	children  []any
	geometry  any
	materials []any

	hit      bool
	distance float64
	uv       Vec2
	hidden   bool
	order    int
	panics   bool

	disposals int
	log       *[]string
}

func (o *fakeObj) AddChild(c any) error {
	o.children = append(o.children, c)
	return nil
}

func (o *fakeObj) RemoveChild(c any) error {
	for i, x := range o.children {
		if x == c {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return nil
		}
	}
	return ErrNotChild
}

func (o *fakeObj) Dispose() error {
	o.disposals++
	if o.log != nil {
		*o.log = append(*o.log, "obj")
	}
	return nil
}

func (o *fakeObj) Raycast(Ray) ([]RayHit, error) {
	if o.panics {
		panic("raycast exploded")
	}
	if !o.hit {
		return nil, nil
	}
	return []RayHit{{Distance: o.distance, UV: o.uv}}, nil
}

func (o *fakeObj) IsVisible() bool  { return !o.hidden }
func (o *fakeObj) RenderOrder() int { return o.order }

type fakeGeometry struct {
	radius    float64
	disposals int
	log       *[]string
}

func (g *fakeGeometry) Dispose() error {
	g.disposals++
	if g.log != nil {
		*g.log = append(*g.log, "geometry")
	}
	return nil
}

type fakeMaterial struct {
	label     string
	disposals int
}

func (m *fakeMaterial) Dispose() error {
	m.disposals++
	return nil
}

// fakeCamera returns a fixed ray down -Z and records the last NDC asked.
type fakeCamera struct {
	calls int
	ndc   Vec2
}

func (c *fakeCamera) Ray(ndc Vec2) Ray {
	c.calls++
	c.ndc = ndc
	return Ray{Origin: Vec3{Z: 10}, Direction: Vec3{Z: -1}}
}

func resetTo[T any](p Prop, reset func(T)) Prop {
	p.Reset = func(obj any) { reset(obj.(T)) }
	return p
}

var fakeSchema = &Schema{Props: map[string]Prop{
	"value":       resetTo(FloatProp(func(o *fakeObj, v float64) { o.value = v }), func(o *fakeObj) { o.value = 0 }),
	"label":       StringProp(func(o *fakeObj, v string) { o.label = v }),
	"position":    resetTo(Vec3Prop(func(o *fakeObj) *Vec3 { return &o.pos }), func(o *fakeObj) { o.pos = Vec3{} }),
	"hit":         resetTo(BoolProp(func(o *fakeObj, v bool) { o.hit = v }), func(o *fakeObj) { o.hit = false }),
	"distance":    FloatProp(func(o *fakeObj, v float64) { o.distance = v }),
	"hidden":      resetTo(BoolProp(func(o *fakeObj, v bool) { o.hidden = v }), func(o *fakeObj) { o.hidden = false }),
	"renderOrder": IntProp(func(o *fakeObj, v int) { o.order = v }),
	"panics":      BoolProp(func(o *fakeObj, v bool) { o.panics = v }),
	"boom": {Set: func(any, any) error {
		panic("setter exploded")
	}},
}}

func newFakeObj(args []any) (any, error) {
	o := &fakeObj{args: args}
	if len(args) > 0 && args[0] == "preset" {
		o.materials = []any{"base"}
	}
	return o, nil
}

func testTypes() *TypeRegistry {
	types := NewTypeRegistry()
	err := types.RegisterMany(map[string]TypeDef{
		"scene": {New: newFakeObj, Schema: fakeSchema},
		"group": {New: newFakeObj, Schema: fakeSchema},
		"mesh": {
			New:    newFakeObj,
			Schema: fakeSchema,
			Slots:  map[string]string{"geometry": "geometry", "material": "materials"},
			Fields: map[string]Field{
				"geometry": {
					Get: func(p any) any { return p.(*fakeObj).geometry },
					Set: func(p, c any) { p.(*fakeObj).geometry = c },
				},
			},
			Arrays: map[string]Array{
				"materials": {
					Get: func(p any) []any { return append([]any(nil), p.(*fakeObj).materials...) },
					Set: func(p any, items []any) { p.(*fakeObj).materials = items },
				},
			},
		},
		"geometry": {
			Category: "geometry",
			New: func(args []any) (any, error) {
				g := &fakeGeometry{radius: 1}
				if len(args) > 0 {
					r, err := AsFloat(args[0])
					if err != nil {
						return nil, err
					}
					g.radius = r
				}
				return g, nil
			},
			Schema: &Schema{Props: map[string]Prop{
				"radius": FloatProp(func(g *fakeGeometry, v float64) { g.radius = v }),
			}},
		},
		"material": {
			Category: "material",
			New:      func([]any) (any, error) { return &fakeMaterial{}, nil },
			Schema: &Schema{Props: map[string]Prop{
				"label": StringProp(func(m *fakeMaterial, v string) { m.label = v }),
			}},
		},
		"broken": {New: func([]any) (any, error) { return nil, errors.New("no can do") }},
		"panicky": {New: func([]any) (any, error) { panic("constructor exploded") }},
	})
	if err != nil {
		panic(err)
	}
	return types
}

func quietLogger() *log.Logger { return log.New(io.Discard) }

// newTestRuntime creates a runtime over the fake types with one root. A
// nil camera and zero size get test defaults.
func newTestRuntime(t testing.TB, cfg RootConfig) (*Runtime, *Root) {
	t.Helper()
	rt := NewRuntime(WithLogger(quietLogger()), WithTypes(testTypes()))
	if cfg.Camera == nil {
		cfg.Camera = &fakeCamera{}
	}
	if cfg.Size == (Size{}) {
		cfg.Size = Size{Width: 100, Height: 100, PixelRatio: 1}
	}
	id, err := rt.Roots.CreateRoot(0, cfg)
	if err != nil {
		t.Fatalf("CreateRoot: %v", err)
	}
	r, ok := rt.Roots.Get(id)
	if !ok {
		t.Fatal("created root not found")
	}
	return rt, r
}

func mustMount(t testing.TB, rt *Runtime, parent InstanceID, typ string, props Props) InstanceID {
	t.Helper()
	id, err := rt.Reconciler.Mount(parent, typ, props, AttachHint{})
	if err != nil {
		t.Fatalf("Mount %q: %v", typ, err)
	}
	return id
}

func objectOf[T any](t *testing.T, rt *Runtime, id InstanceID) T {
	t.Helper()
	inst, ok := rt.Reconciler.Get(id)
	if !ok {
		t.Fatalf("instance %s not found", id)
	}
	o, ok := inst.Object.(T)
	if !ok {
		t.Fatalf("instance %s holds %T", id, inst.Object)
	}
	return o
}

func fake(t *testing.T, rt *Runtime, id InstanceID) *fakeObj {
	t.Helper()
	return objectOf[*fakeObj](t, rt, id)
}

func containsObj(list []any, o any) bool {
	for _, x := range list {
		if x == o {
			return true
		}
	}
	return false
}
