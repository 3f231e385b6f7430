package objects

import (
	"math"

	fiber "github.com/pmndrs/react-three-fiber-sub004"
)

// PerspectiveCamera looks down its local -Z axis.
type PerspectiveCamera struct {
	Node
	// Fov is the vertical field of view in degrees.
	Fov    float64
	Aspect float64
	Near   float64
	Far    float64
}

// NewPerspectiveCamera creates a perspective camera at the origin.
func NewPerspectiveCamera(fov, aspect, near, far float64) *PerspectiveCamera {
	c := &PerspectiveCamera{Fov: fov, Aspect: aspect, Near: near, Far: far}
	nodeDefaults(&c.Node)
	c.Name = "camera"
	return c
}

// Ray returns the world ray through ndc.
func (c *PerspectiveCamera) Ray(ndc fiber.Vec2) fiber.Ray {
	w := c.WorldTransform()
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	half := math.Tan(c.Fov * math.Pi / 360)
	dir := fiber.Vec3{X: ndc.X * half * aspect, Y: ndc.Y * half, Z: -1}
	return fiber.Ray{
		Origin:    w.Apply(fiber.Vec3{}),
		Direction: w.ApplyVector(dir).Normalize(),
	}
}

// Project maps a world point to NDC and its depth along the view axis.
// ok is false for points at or behind the near plane.
func (c *PerspectiveCamera) Project(p fiber.Vec3) (ndc fiber.Vec2, depth float64, ok bool) {
	inv, ok := c.WorldTransform().Inverse()
	if !ok {
		return fiber.Vec2{}, 0, false
	}
	l := inv.Apply(p)
	depth = -l.Z
	if depth <= c.Near || depth <= 0 {
		return fiber.Vec2{}, depth, false
	}
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	half := math.Tan(c.Fov * math.Pi / 360)
	return fiber.Vec2{X: l.X / depth / (half * aspect), Y: l.Y / depth / half}, depth, true
}

// OrthographicCamera projects parallel rays down its local -Z axis. The
// frustum is given in world units at Zoom 1.
type OrthographicCamera struct {
	Node
	Left, Right, Top, Bottom float64
	Near, Far                float64
	// Zoom is the scale factor (1.0 = no zoom, >1 = zoom in, <1 = zoom out).
	Zoom float64
}

// NewOrthographicCamera creates an orthographic camera at the origin.
func NewOrthographicCamera(left, right, top, bottom float64) *OrthographicCamera {
	c := &OrthographicCamera{Left: left, Right: right, Top: top, Bottom: bottom, Near: 0.1, Far: 1000, Zoom: 1}
	nodeDefaults(&c.Node)
	c.Name = "camera"
	return c
}

// Ray returns the world ray through ndc.
func (c *OrthographicCamera) Ray(ndc fiber.Vec2) fiber.Ray {
	zoom := c.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	cx, cy := (c.Left+c.Right)/2, (c.Top+c.Bottom)/2
	x := cx + ndc.X*(c.Right-c.Left)/2/zoom
	y := cy + ndc.Y*(c.Top-c.Bottom)/2/zoom
	w := c.WorldTransform()
	return fiber.Ray{
		Origin:    w.Apply(fiber.Vec3{X: x, Y: y}),
		Direction: w.ApplyVector(fiber.Vec3{Z: -1}).Normalize(),
	}
}

// Project maps a world point to NDC and its depth along the view axis.
// ok is false for points behind the camera plane.
func (c *OrthographicCamera) Project(p fiber.Vec3) (ndc fiber.Vec2, depth float64, ok bool) {
	inv, ok := c.WorldTransform().Inverse()
	if !ok || c.Right == c.Left || c.Top == c.Bottom {
		return fiber.Vec2{}, 0, false
	}
	zoom := c.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	l := inv.Apply(p)
	cx, cy := (c.Left+c.Right)/2, (c.Top+c.Bottom)/2
	ndc = fiber.Vec2{
		X: (l.X - cx) * zoom * 2 / (c.Right - c.Left),
		Y: (l.Y - cy) * zoom * 2 / (c.Top - c.Bottom),
	}
	return ndc, -l.Z, l.Z <= 0
}

// VisibleBounds returns the world-space XY rectangle seen by the camera,
// ignoring rotation.
func (c *OrthographicCamera) VisibleBounds() (minX, minY, maxX, maxY float64) {
	bl := c.Ray(fiber.Vec2{X: -1, Y: -1}).Origin
	tr := c.Ray(fiber.Vec2{X: 1, Y: 1}).Origin
	return math.Min(bl.X, tr.X), math.Min(bl.Y, tr.Y), math.Max(bl.X, tr.X), math.Max(bl.Y, tr.Y)
}
