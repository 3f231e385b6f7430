package objects

import fiber "github.com/pmndrs/react-three-fiber-sub004"

// Material is the surface treatment of a mesh.
type Material struct {
	Resource
	Kind        string
	Color       fiber.Color
	Opacity     float64
	Transparent bool
	Wireframe   bool
	Roughness   float64
	Metalness   float64
}

// NewMaterial creates an opaque white material of the given kind.
func NewMaterial(kind string) *Material {
	return &Material{Kind: kind, Color: fiber.ColorWhite, Opacity: 1, Roughness: 1}
}

// Mesh pairs a geometry with a material. Materials holds per-group
// materials for multi-material meshes.
type Mesh struct {
	Node
	Geometry  Geometry
	Material  *Material
	Materials []any
}

// NewMesh creates a mesh with no geometry or material.
func NewMesh(name string) *Mesh {
	m := &Mesh{}
	nodeDefaults(&m.Node)
	m.Name = name
	return m
}

// Raycast intersects the mesh geometry in local space and reports world
// points. Distances stay world distances because the ray direction is
// transformed without renormalizing.
func (m *Mesh) Raycast(ray fiber.Ray) ([]fiber.RayHit, error) {
	if m.Geometry == nil {
		return nil, nil
	}
	inv, ok := m.WorldTransform().Inverse()
	if !ok {
		return nil, nil
	}
	hits := m.Geometry.Intersect(LocalRay(inv, ray))
	for i := range hits {
		hits[i].Point = ray.At(hits[i].Distance)
	}
	return hits, nil
}
