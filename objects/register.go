package objects

import (
	"fmt"

	fiber "github.com/pmndrs/react-three-fiber-sub004"
)

// Type tags registered by Register.
const (
	TagScene              = "scene"
	TagGroup              = "group"
	TagMesh               = "mesh"
	TagSprite             = "sprite"
	TagSphereGeometry     = "sphereGeometry"
	TagBoxGeometry        = "boxGeometry"
	TagPlaneGeometry      = "planeGeometry"
	TagBasicMaterial      = "meshBasicMaterial"
	TagStandardMaterial   = "meshStandardMaterial"
	TagPerspectiveCamera  = "perspectiveCamera"
	TagOrthographicCamera = "orthographicCamera"
)

// Attachment categories.
const (
	CategoryGeometry = "geometry"
	CategoryMaterial = "material"
)

// Register adds every object type of this package to types.
func Register(types *fiber.TypeRegistry) error {
	return types.RegisterMany(Types())
}

// Types returns the type definitions of this package keyed by tag.
func Types() map[string]fiber.TypeDef {
	return map[string]fiber.TypeDef{
		TagScene: {
			New:    func([]any) (any, error) { return NewScene(), nil },
			Schema: nodeSchema(map[string]fiber.Prop{
				"background": fiber.ColorProp(func(s *Scene) *fiber.Color { return &s.Background }),
			}),
		},
		TagGroup: {
			New:    func(args []any) (any, error) { return NewGroup(argString(args, 0)), nil },
			Schema: nodeSchema(nil),
		},
		TagMesh: {
			New:    func(args []any) (any, error) { return NewMesh(argString(args, 0)), nil },
			Schema: nodeSchema(nil),
			Slots: map[string]string{
				CategoryGeometry: "geometry",
				CategoryMaterial: "material",
			},
			Fields: map[string]fiber.Field{
				"geometry": {
					Get: func(p any) any {
						if g := p.(*Mesh).Geometry; g != nil {
							return g
						}
						return nil
					},
					Set: func(p, c any) {
						g, _ := c.(Geometry)
						p.(*Mesh).Geometry = g
					},
				},
				"material": {
					Get: func(p any) any {
						if m := p.(*Mesh).Material; m != nil {
							return m
						}
						return nil
					},
					Set: func(p, c any) {
						m, _ := c.(*Material)
						p.(*Mesh).Material = m
					},
				},
			},
			Arrays: map[string]fiber.Array{
				"materials": {
					Get: func(p any) []any { return append([]any(nil), p.(*Mesh).Materials...) },
					Set: func(p any, items []any) { p.(*Mesh).Materials = items },
				},
			},
		},
		TagSprite: {
			New: func(args []any) (any, error) {
				w, h, err := args2(args, 1, 1)
				if err != nil {
					return nil, err
				}
				return NewSprite("", w, h), nil
			},
			Schema: nodeSchema(map[string]fiber.Prop{
				"width":  fiber.FloatProp(func(s *Sprite, v float64) { s.Width = v }),
				"height": fiber.FloatProp(func(s *Sprite, v float64) { s.Height = v }),
				"tint":   fiber.ColorProp(func(s *Sprite) *fiber.Color { return &s.Tint }),
				"hitShape": {
					Set: func(obj, v any) error {
						shape, ok := v.(HitShape)
						if !ok && v != nil {
							return fmt.Errorf("%w: want objects.HitShape, got %T", fiber.ErrInvalidValue, v)
						}
						obj.(*Sprite).HitShape = shape
						return nil
					},
					Reset: func(obj any) { obj.(*Sprite).HitShape = nil },
				},
			}),
		},
		TagSphereGeometry: {
			Category: CategoryGeometry,
			New: func(args []any) (any, error) {
				r, err := argFloat(args, 0, 1)
				if err != nil {
					return nil, err
				}
				return NewSphereGeometry(r), nil
			},
			Schema: &fiber.Schema{Props: map[string]fiber.Prop{
				"radius": fiber.FloatProp(func(g *SphereGeometry, v float64) { g.Radius = v }),
			}},
		},
		TagBoxGeometry: {
			Category: CategoryGeometry,
			New: func(args []any) (any, error) {
				w, err := argFloat(args, 0, 1)
				if err != nil {
					return nil, err
				}
				h, err := argFloat(args, 1, 1)
				if err != nil {
					return nil, err
				}
				d, err := argFloat(args, 2, 1)
				if err != nil {
					return nil, err
				}
				return NewBoxGeometry(w, h, d), nil
			},
			Schema: &fiber.Schema{Props: map[string]fiber.Prop{
				"width":  fiber.FloatProp(func(g *BoxGeometry, v float64) { g.Width = v }),
				"height": fiber.FloatProp(func(g *BoxGeometry, v float64) { g.Height = v }),
				"depth":  fiber.FloatProp(func(g *BoxGeometry, v float64) { g.Depth = v }),
			}},
		},
		TagPlaneGeometry: {
			Category: CategoryGeometry,
			New: func(args []any) (any, error) {
				w, h, err := args2(args, 1, 1)
				if err != nil {
					return nil, err
				}
				return NewPlaneGeometry(w, h), nil
			},
			Schema: &fiber.Schema{Props: map[string]fiber.Prop{
				"width":  fiber.FloatProp(func(g *PlaneGeometry, v float64) { g.Width = v }),
				"height": fiber.FloatProp(func(g *PlaneGeometry, v float64) { g.Height = v }),
			}},
		},
		TagBasicMaterial:    materialDef("basic"),
		TagStandardMaterial: materialDef("standard"),
		TagPerspectiveCamera: {
			New: func(args []any) (any, error) {
				vals := [4]float64{50, 1, 0.1, 2000}
				for i := range vals {
					v, err := argFloat(args, i, vals[i])
					if err != nil {
						return nil, err
					}
					vals[i] = v
				}
				return NewPerspectiveCamera(vals[0], vals[1], vals[2], vals[3]), nil
			},
			Dispose: fiber.NoDispose,
			Schema: nodeSchema(map[string]fiber.Prop{
				"fov":    fiber.FloatProp(func(c *PerspectiveCamera, v float64) { c.Fov = v }),
				"aspect": fiber.FloatProp(func(c *PerspectiveCamera, v float64) { c.Aspect = v }),
				"near":   fiber.FloatProp(func(c *PerspectiveCamera, v float64) { c.Near = v }),
				"far":    fiber.FloatProp(func(c *PerspectiveCamera, v float64) { c.Far = v }),
			}),
		},
		TagOrthographicCamera: {
			New: func(args []any) (any, error) {
				vals := [4]float64{-1, 1, 1, -1}
				for i := range vals {
					v, err := argFloat(args, i, vals[i])
					if err != nil {
						return nil, err
					}
					vals[i] = v
				}
				return NewOrthographicCamera(vals[0], vals[1], vals[2], vals[3]), nil
			},
			Dispose: fiber.NoDispose,
			Schema: nodeSchema(map[string]fiber.Prop{
				"zoom":   fiber.FloatProp(func(c *OrthographicCamera, v float64) { c.Zoom = v }),
				"left":   fiber.FloatProp(func(c *OrthographicCamera, v float64) { c.Left = v }),
				"right":  fiber.FloatProp(func(c *OrthographicCamera, v float64) { c.Right = v }),
				"top":    fiber.FloatProp(func(c *OrthographicCamera, v float64) { c.Top = v }),
				"bottom": fiber.FloatProp(func(c *OrthographicCamera, v float64) { c.Bottom = v }),
			}),
		},
	}
}

func materialDef(kind string) fiber.TypeDef {
	return fiber.TypeDef{
		Category: CategoryMaterial,
		New:      func([]any) (any, error) { return NewMaterial(kind), nil },
		Schema: &fiber.Schema{Props: map[string]fiber.Prop{
			"color":       withReset(fiber.ColorProp(func(m *Material) *fiber.Color { return &m.Color }), func(m *Material) { m.Color = fiber.ColorWhite }),
			"opacity":     fiber.FloatProp(func(m *Material, v float64) { m.Opacity = v }),
			"transparent": fiber.BoolProp(func(m *Material, v bool) { m.Transparent = v }),
			"wireframe":   fiber.BoolProp(func(m *Material, v bool) { m.Wireframe = v }),
			"roughness":   fiber.FloatProp(func(m *Material, v float64) { m.Roughness = v }),
			"metalness":   fiber.FloatProp(func(m *Material, v float64) { m.Metalness = v }),
		}},
	}
}

// nodeSchema returns the transform props shared by every node type,
// merged with extra.
func nodeSchema(extra map[string]fiber.Prop) *fiber.Schema {
	props := map[string]fiber.Prop{
		"name": fiber.StringProp(func(o Object, v string) { o.Base().Name = v }),
		"position": withReset(fiber.Vec3Prop(func(o Object) *fiber.Vec3 { return &o.Base().Position }),
			func(o Object) { o.Base().Position = fiber.Vec3{} }),
		"scale": withReset(fiber.Vec3Prop(func(o Object) *fiber.Vec3 { return &o.Base().Scale }),
			func(o Object) { o.Base().Scale = fiber.Vec3{X: 1, Y: 1, Z: 1} }),
		"rotation": withReset(fiber.FloatProp(func(o Object, v float64) { o.Base().Rotation = v }),
			func(o Object) { o.Base().Rotation = 0 }),
		"visible": withReset(fiber.BoolProp(func(o Object, v bool) { o.Base().Visible = v }),
			func(o Object) { o.Base().Visible = true }),
		"renderOrder": withReset(fiber.IntProp(func(o Object, v int) { o.Base().Order = v }),
			func(o Object) { o.Base().Order = 0 }),
		"userData": {Set: func(obj, v any) error {
			o, ok := obj.(Object)
			if !ok {
				return fmt.Errorf("%w: %T is not a node", fiber.ErrInvalidValue, obj)
			}
			o.Base().UserData = v
			return nil
		}},
	}
	for k, p := range extra {
		props[k] = p
	}
	return &fiber.Schema{Props: props}
}

func withReset[T any](p fiber.Prop, reset func(T)) fiber.Prop {
	p.Reset = func(obj any) {
		if o, ok := obj.(T); ok {
			reset(o)
		}
	}
	return p
}

func argFloat(args []any, i int, def float64) (float64, error) {
	if i >= len(args) || args[i] == nil {
		return def, nil
	}
	v, err := fiber.AsFloat(args[i])
	if err != nil {
		return 0, fmt.Errorf("arg %d: %w", i, err)
	}
	return v, nil
}

func args2(args []any, d0, d1 float64) (float64, float64, error) {
	a, err := argFloat(args, 0, d0)
	if err != nil {
		return 0, 0, err
	}
	b, err := argFloat(args, 1, d1)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func argString(args []any, i int) string {
	if i < len(args) {
		if s, ok := args[i].(string); ok {
			return s
		}
	}
	return ""
}
