package objects

import (
	"math"

	fiber "github.com/pmndrs/react-three-fiber-sub004"
)

// identityAffine is the identity 2D affine matrix.
var identityAffine = [6]float64{1, 0, 0, 1, 0, 0}

// Transform maps local space to parent or world space. Rotation and
// non-uniform scale act in the XY plane; Z is translated and scaled
// independently.
//
//	Affine layout: [a, b, c, d, tx, ty]
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
type Transform struct {
	Affine [6]float64
	TZ, SZ float64
}

// IdentityTransform is the transform that changes nothing.
var IdentityTransform = Transform{Affine: identityAffine, SZ: 1}

// computeLocalTransform composes Scale -> Rotate -> Translate for n.
func computeLocalTransform(n *Node) Transform {
	sin, cos := math.Sincos(n.Rotation)
	sx, sy := n.Scale.X, n.Scale.Y
	return Transform{
		Affine: [6]float64{cos * sx, sin * sx, -sin * sy, cos * sy, n.Position.X, n.Position.Y},
		TZ:     n.Position.Z,
		SZ:     n.Scale.Z,
	}
}

// multiplyAffine multiplies two 2D affine matrices: result = parent * child.
func multiplyAffine(p, c [6]float64) [6]float64 {
	return [6]float64{
		p[0]*c[0] + p[2]*c[1],
		p[1]*c[0] + p[3]*c[1],
		p[0]*c[2] + p[2]*c[3],
		p[1]*c[2] + p[3]*c[3],
		p[0]*c[4] + p[2]*c[5] + p[4],
		p[1]*c[4] + p[3]*c[5] + p[5],
	}
}

// invertAffine computes the inverse of a 2D affine matrix. ok is false if
// the matrix is singular.
func invertAffine(m [6]float64) (inv [6]float64, ok bool) {
	det := m[0]*m[3] - m[2]*m[1]
	if det > -1e-12 && det < 1e-12 {
		return identityAffine, false
	}
	invDet := 1.0 / det
	a := m[3] * invDet
	b := -m[1] * invDet
	c := -m[2] * invDet
	d := m[0] * invDet
	return [6]float64{
		a, b, c, d,
		-(a*m[4] + c*m[5]),
		-(b*m[4] + d*m[5]),
	}, true
}

// Mul returns t * c: c applied first, then t.
func (t Transform) Mul(c Transform) Transform {
	return Transform{
		Affine: multiplyAffine(t.Affine, c.Affine),
		TZ:     t.TZ + t.SZ*c.TZ,
		SZ:     t.SZ * c.SZ,
	}
}

// Inverse returns the inverse transform. ok is false for a degenerate
// transform (zero scale).
func (t Transform) Inverse() (Transform, bool) {
	aff, ok := invertAffine(t.Affine)
	if !ok || t.SZ == 0 {
		return IdentityTransform, false
	}
	return Transform{Affine: aff, TZ: -t.TZ / t.SZ, SZ: 1 / t.SZ}, true
}

// Apply transforms a point.
func (t Transform) Apply(p fiber.Vec3) fiber.Vec3 {
	m := t.Affine
	return fiber.Vec3{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
		Z: t.SZ*p.Z + t.TZ,
	}
}

// ApplyVector transforms a direction, ignoring translation.
func (t Transform) ApplyVector(v fiber.Vec3) fiber.Vec3 {
	m := t.Affine
	return fiber.Vec3{
		X: m[0]*v.X + m[2]*v.Y,
		Y: m[1]*v.X + m[3]*v.Y,
		Z: t.SZ * v.Z,
	}
}

// LocalRay maps a world ray through a world-to-local transform. The
// direction is left unnormalized so ray parameters match world distances.
func LocalRay(worldToLocal Transform, r fiber.Ray) fiber.Ray {
	return fiber.Ray{
		Origin:    worldToLocal.Apply(r.Origin),
		Direction: worldToLocal.ApplyVector(r.Direction),
	}
}
