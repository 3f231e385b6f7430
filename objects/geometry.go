package objects

import (
	"math"

	fiber "github.com/pmndrs/react-three-fiber-sub004"
)

// Geometry is a shape in local space that a ray can intersect. Hit
// distances are ray parameters, Local holds the local hit point.
type Geometry interface {
	Intersect(ray fiber.Ray) []fiber.RayHit
}

// SphereGeometry is a sphere centred on the local origin.
type SphereGeometry struct {
	Resource
	Radius float64
}

// NewSphereGeometry creates a sphere of the given radius.
func NewSphereGeometry(radius float64) *SphereGeometry {
	return &SphereGeometry{Radius: radius}
}

// Intersect returns the entry and exit hits in front of the ray origin.
func (g *SphereGeometry) Intersect(ray fiber.Ray) []fiber.RayHit {
	o, d := ray.Origin, ray.Direction
	a := d.Dot(d)
	if a == 0 || g.Radius <= 0 {
		return nil
	}
	b := 2 * o.Dot(d)
	c := o.Dot(o) - g.Radius*g.Radius
	disc := b*b - 4*a*c
	if disc < 0 {
		return nil
	}
	sq := math.Sqrt(disc)
	var hits []fiber.RayHit
	for _, t := range [2]float64{(-b - sq) / (2 * a), (-b + sq) / (2 * a)} {
		if t < 0 {
			continue
		}
		p := ray.At(t)
		hits = append(hits, fiber.RayHit{Distance: t, Local: p, UV: g.uv(p)})
		if disc == 0 {
			break
		}
	}
	return hits
}

func (g *SphereGeometry) uv(p fiber.Vec3) fiber.Vec2 {
	n := p.Scale(1 / g.Radius)
	return fiber.Vec2{
		X: 0.5 + math.Atan2(n.Z, n.X)/(2*math.Pi),
		Y: 0.5 + math.Asin(math.Max(-1, math.Min(1, n.Y)))/math.Pi,
	}
}

// BoxGeometry is an axis-aligned box centred on the local origin.
type BoxGeometry struct {
	Resource
	Width, Height, Depth float64
}

// NewBoxGeometry creates a box with the given extents.
func NewBoxGeometry(w, h, d float64) *BoxGeometry {
	return &BoxGeometry{Width: w, Height: h, Depth: d}
}

// Intersect uses the slab method and reports the nearest face hit.
func (g *BoxGeometry) Intersect(ray fiber.Ray) []fiber.RayHit {
	half := [3]float64{g.Width / 2, g.Height / 2, g.Depth / 2}
	o := [3]float64{ray.Origin.X, ray.Origin.Y, ray.Origin.Z}
	d := [3]float64{ray.Direction.X, ray.Direction.Y, ray.Direction.Z}
	tmin, tmax := math.Inf(-1), math.Inf(1)
	for i := range 3 {
		if d[i] == 0 {
			if o[i] < -half[i] || o[i] > half[i] {
				return nil
			}
			continue
		}
		t1 := (-half[i] - o[i]) / d[i]
		t2 := (half[i] - o[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return nil
		}
	}
	t := tmin
	if t < 0 {
		t = tmax
	}
	if t < 0 {
		return nil
	}
	p := ray.At(t)
	uv := fiber.Vec2{}
	if g.Width > 0 && g.Height > 0 {
		uv = fiber.Vec2{X: p.X/g.Width + 0.5, Y: p.Y/g.Height + 0.5}
	}
	return []fiber.RayHit{{Distance: t, Local: p, UV: uv}}
}

// PlaneGeometry is a rectangle in the local XY plane, centred on the
// origin. Its UV runs from (0, 0) at the bottom-left to (1, 1).
type PlaneGeometry struct {
	Resource
	Width, Height float64
}

// NewPlaneGeometry creates a plane with the given extents.
func NewPlaneGeometry(w, h float64) *PlaneGeometry {
	return &PlaneGeometry{Width: w, Height: h}
}

// Intersect hits the plane from either side.
func (g *PlaneGeometry) Intersect(ray fiber.Ray) []fiber.RayHit {
	if ray.Direction.Z == 0 {
		return nil
	}
	t := -ray.Origin.Z / ray.Direction.Z
	if t < 0 {
		return nil
	}
	p := ray.At(t)
	hw, hh := g.Width/2, g.Height/2
	if p.X < -hw || p.X > hw || p.Y < -hh || p.Y > hh {
		return nil
	}
	return []fiber.RayHit{{
		Distance: t,
		Local:    p,
		UV:       fiber.Vec2{X: (p.X + hw) / g.Width, Y: (p.Y + hh) / g.Height},
	}}
}
