package tube

import (
	"github.com/chazu/conduit/pkg/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

// boxFaces lists the outward normal of each box face with the in-face axes
// u, v such that u x v = normal.
var boxFaces = [6]struct{ n, u, v mgl64.Vec3 }{
	{mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0, 1}},
	{mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 1, 0}},
	{mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{1, 0, 0}},
	{mgl64.Vec3{0, -1, 0}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, 1}},
	{mgl64.Vec3{0, 0, 1}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}},
	{mgl64.Vec3{0, 0, -1}, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{1, 0, 0}},
}

// junctionBoxMesh returns a closed Width x Width x Thickness box centred at
// the origin, thickness along Z. Each face has its own four vertices so the
// normals stay flat.
func junctionBoxMesh(p JunctionBoxParam) *mesh.MeshDefinition {
	half := mgl64.Vec3{p.Width / 2, p.Width / 2, p.Thickness / 2}
	scale := func(a, b mgl64.Vec3) mgl64.Vec3 {
		return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
	}

	w := newBufWriter(24, 12)
	for _, f := range boxFaces {
		center := scale(f.n, half)
		u := scale(f.u, half)
		v := scale(f.v, half)
		a := w.vertex(center.Sub(u).Sub(v), f.n, 0, 0)
		w.vertex(center.Add(u).Sub(v), f.n, 1, 0)
		w.vertex(center.Add(u).Add(v), f.n, 1, 1)
		w.vertex(center.Sub(u).Add(v), f.n, 0, 1)
		w.tri(a, a+1, a+2)
		w.tri(a, a+2, a+3)
	}
	return w.mesh()
}
