package fiber

import "math"

// Vec2 is a 2D vector, used for pointer positions, NDC coordinates and UVs.
type Vec2 struct {
	X, Y float64
}

// Vec3 is a 3D vector used for positions, directions and scales.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

// Len returns the Euclidean length of v.
func (v Vec3) Len() float64 { return math.Sqrt(v.Dot(v)) }

// Normalize returns v scaled to unit length. The zero vector is returned unchanged.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// Color is an RGBA color with components in [0, 1]. Not premultiplied.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is opaque white.
var ColorWhite = Color{1, 1, 1, 1}

// Ray is a half-line in world space. Direction is expected to be normalized.
type Ray struct {
	Origin    Vec3
	Direction Vec3
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// Size is the output surface size of a root.
type Size struct {
	Width, Height float64
	// PixelRatio is the device pixel ratio. Zero is treated as 1.
	PixelRatio float64
}

// NDC converts a surface position in pixels to normalized device coordinates
// in [-1, 1], Y up. A zero-sized surface maps everything to the origin.
func (s Size) NDC(x, y float64) Vec2 {
	if s.Width <= 0 || s.Height <= 0 {
		return Vec2{}
	}
	return Vec2{
		X: (x/s.Width)*2 - 1,
		Y: -(y/s.Height)*2 + 1,
	}
}

// Camera is the external camera capability. The core only needs a ray
// through a point given in normalized device coordinates.
type Camera interface {
	Ray(ndc Vec2) Ray
}

// Renderer performs the default render-and-present step for a root.
type Renderer interface {
	Render(scene any, camera Camera)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(scene any, camera Camera)

// Render calls f(scene, camera).
func (f RendererFunc) Render(scene any, camera Camera) { f(scene, camera) }

// FrameLoop selects how a root is scheduled.
type FrameLoop uint8

const (
	FrameAlways FrameLoop = iota // every platform tick runs the root
	FrameDemand                  // runs only after an invalidation
	FrameNever                   // runs only when advanced manually
)

func (f FrameLoop) String() string {
	switch f {
	case FrameAlways:
		return "always"
	case FrameDemand:
		return "demand"
	case FrameNever:
		return "never"
	default:
		return "unknown"
	}
}

// ParseFrameLoop maps "always", "demand" and "never" to a FrameLoop.
func ParseFrameLoop(s string) (FrameLoop, bool) {
	switch s {
	case "always", "":
		return FrameAlways, true
	case "demand":
		return FrameDemand, true
	case "never":
		return FrameNever, true
	}
	return FrameAlways, false
}

// DisposePolicy controls whether removal releases the object's resources.
type DisposePolicy uint8

const (
	AutoDispose DisposePolicy = iota // call Dispose on removal
	NoDispose                        // leave the object alive
)

// SuspenseState tracks whether an instance is live or stands in for a
// pending load.
type SuspenseState uint8

const (
	StateReady    SuspenseState = iota // regular committed instance
	StatePending                       // load outstanding
	StateFallback                      // placeholder subtree for a pending load
)

func (s SuspenseState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StatePending:
		return "pending"
	case StateFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Container is implemented by objects that accept generic children.
type Container interface {
	AddChild(child any) error
	RemoveChild(child any) error
}

// Disposer is implemented by objects owning releasable resources.
type Disposer interface {
	Dispose() error
}

// RayHit is one intersection reported by a Raycaster.
type RayHit struct {
	Distance float64
	Point    Vec3 // world-space hit point
	Local    Vec3 // hit point in the object's local space
	UV       Vec2 // surface coordinate, when the geometry has one
}

// Raycaster is implemented by objects that can be hit-tested.
type Raycaster interface {
	Raycast(ray Ray) ([]RayHit, error)
}

// RenderOrderer exposes an explicit render order used to break distance ties.
type RenderOrderer interface {
	RenderOrder() int
}

// Visibler lets an object hide itself and its subtree from hit-testing.
type Visibler interface {
	IsVisible() bool
}
