package objects

import fiber "github.com/pmndrs/react-three-fiber-sub004"

// HitShape is a custom hit region in a sprite's local XY plane.
type HitShape interface {
	Contains(x, y float64) bool
}

// --- Built-in HitShape types ---

// HitRect is an axis-aligned rectangular hit area in local coordinates.
type HitRect struct {
	X, Y, Width, Height float64
}

// Contains reports whether (x, y) lies inside the rectangle.
func (r HitRect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// HitCircle is a circular hit area in local coordinates.
type HitCircle struct {
	CenterX, CenterY, Radius float64
}

// Contains reports whether (x, y) lies inside or on the circle.
func (c HitCircle) Contains(x, y float64) bool {
	dx := x - c.CenterX
	dy := y - c.CenterY
	return dx*dx+dy*dy <= c.Radius*c.Radius
}

// HitPolygon is a convex polygon hit area in local coordinates.
// Points must define a convex polygon in either winding order.
type HitPolygon struct {
	Points []fiber.Vec2
}

// Contains reports whether (x, y) lies inside the polygon: the point must
// be on the same side of every edge.
func (p HitPolygon) Contains(x, y float64) bool {
	n := len(p.Points)
	if n < 3 {
		return false
	}
	var positive, negative bool
	for i := range n {
		a, b := p.Points[i], p.Points[(i+1)%n]
		cross := (b.X-a.X)*(y-a.Y) - (b.Y-a.Y)*(x-a.X)
		if cross > 0 {
			positive = true
		} else if cross < 0 {
			negative = true
		}
		if positive && negative {
			return false
		}
	}
	return true
}

// Sprite is a flat rectangle in its local XY plane, centred on the
// origin. HitShape, when set, replaces the rectangle for hit-testing.
type Sprite struct {
	Node
	Width, Height float64
	Tint          fiber.Color
	HitShape      HitShape
}

// NewSprite creates a white sprite of the given size.
func NewSprite(name string, w, h float64) *Sprite {
	s := &Sprite{Width: w, Height: h, Tint: fiber.ColorWhite}
	nodeDefaults(&s.Node)
	s.Name = name
	return s
}

// Raycast intersects the sprite plane and tests the local hit point.
func (s *Sprite) Raycast(ray fiber.Ray) ([]fiber.RayHit, error) {
	inv, ok := s.WorldTransform().Inverse()
	if !ok {
		return nil, nil
	}
	local := LocalRay(inv, ray)
	if local.Direction.Z == 0 {
		return nil, nil
	}
	t := -local.Origin.Z / local.Direction.Z
	if t < 0 {
		return nil, nil
	}
	p := local.At(t)
	var shape HitShape = HitRect{X: -s.Width / 2, Y: -s.Height / 2, Width: s.Width, Height: s.Height}
	if s.HitShape != nil {
		shape = s.HitShape
	}
	if !shape.Contains(p.X, p.Y) {
		return nil, nil
	}
	var uv fiber.Vec2
	if s.Width > 0 && s.Height > 0 {
		uv = fiber.Vec2{X: p.X/s.Width + 0.5, Y: p.Y/s.Height + 0.5}
	}
	return []fiber.RayHit{{Distance: t, Point: ray.At(t), Local: p, UV: uv}}, nil
}
