// Package kernel defines the solid modelling backend used to build
// reference solids for a routing plan. The tube generators never depend on
// it; reference solids are an independent, implicit rendition of the same
// parts, used to cross-check bounds and exported for inspection.
package kernel

import (
	"github.com/chazu/conduit/pkg/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

// Solid is an opaque handle to a kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max mgl64.Vec3)
}

// Kernel builds and combines solids.
type Kernel interface {
	// Primitives, centred on the origin. Cylinders run along Z.
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64) Solid

	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid

	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	ToMesh(s Solid) (*mesh.MeshDefinition, error)
}
