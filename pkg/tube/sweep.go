package tube

import (
	"math"

	"github.com/chazu/conduit/pkg/curve"
	"github.com/chazu/conduit/pkg/mesh"
	"github.com/chazu/conduit/pkg/profile"
	"github.com/chazu/conduit/pkg/xform"
	"github.com/go-gl/mathgl/mgl64"
)

// CreateTube sweeps the circle profile along path and returns the solid.
//
// Rings are placed at every path point. The profile frame is carried from
// segment to segment by the minimal rotation between their directions, and
// interior rings are cut by the miter plane whose normal bisects the
// incoming and outgoing directions, so consecutive segments meet without a
// gap or overlap.
//
// Conduit is a single outward shell of CircleSegments*rings vertices. Water
// pipe adds an inner shell WaterTubeThickness inside the outer one plus
// annular caps at both ends; a pipe too thin for a wall is swept as
// conduit.
//
// Points closer than Precision to their predecessor are dropped. The result
// is not available for fewer than two distinct points, a non-positive
// diameter, a non-finite coordinate or a path that doubles back on itself.
func (c *Creator) CreateTube(path []mgl64.Vec3, diameter float64, isWater bool) (*mesh.MeshDefinition, bool) {
	if !(diameter > 0) || math.IsInf(diameter, 1) || !finite(path) {
		return nil, false
	}
	pts := dedupe(path, c.cfg.Precision)
	if len(pts) < 2 {
		return nil, false
	}
	rings, total, ok := sweepRings(pts)
	if !ok {
		return nil, false
	}

	r := diameter / 2
	outer, _, err := profile.Ring(r, c.cfg.CircleSegments)
	if err != nil {
		return nil, false
	}
	ri := r - c.cfg.WaterTubeThickness
	hollow := isWater && ri > c.cfg.Precision

	n, nr := len(outer), len(rings)
	vertices, triangles := n*nr, 2*n*(nr-1)
	if hollow {
		vertices = 2*n*nr + 4*n
		triangles = 4*n*(nr-1) + 4*n
	}

	w := newBufWriter(vertices, triangles)
	w.shell(rings, outer, total, false)
	if hollow {
		inner, _, err := profile.Ring(ri, c.cfg.CircleSegments)
		if err != nil {
			return nil, false
		}
		w.shell(rings, inner, total, true)
		w.annulus(rings[0], outer, inner, false)
		w.annulus(rings[nr-1], outer, inner, true)
	}
	return w.mesh(), true
}

// CreateTubeFromCurves sweeps a route of lines and arcs. Arcs are split so
// that no piece turns more than ArcStep.
func (c *Creator) CreateTubeFromCurves(route []curve.Curve, diameter float64, isWater bool) (*mesh.MeshDefinition, bool) {
	return c.CreateTube(curve.Discretize(route, c.cfg.ArcStep), diameter, isWater)
}

// straightEnds returns the axis of a straight request: the first point of
// its route to the last. It reports false for an empty or zero-length
// route.
func (c *Creator) straightEnds(p Params) (curve.Line, bool) {
	start, end, ok := curve.Endpoints(p.Route)
	if !ok || end.Sub(start).Len() <= c.cfg.Precision {
		return curve.Line{}, false
	}
	return curve.NewLine(start, end), true
}

func finite(path []mgl64.Vec3) bool {
	for _, p := range path {
		for _, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

func dedupe(path []mgl64.Vec3, precision float64) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, 0, len(path))
	for _, p := range path {
		if len(out) > 0 && out[len(out)-1].Sub(p).Len() <= precision {
			continue
		}
		out = append(out, p)
	}
	return out
}

// sweepRing is the placement of one profile ring.
type sweepRing struct {
	center mgl64.Vec3
	// u and v span the profile plane of the incoming segment.
	u, v mgl64.Vec3
	// in is the incoming direction, miter the normal of the cut plane.
	in, miter mgl64.Vec3
	// turn rotates the incoming frame onto the outgoing one.
	turn mgl64.Quat
	dist float64
}

// sweepRings computes the ring frames along pts and the total path length.
// It reports false when the path reverses direction at a joint.
func sweepRings(pts []mgl64.Vec3) ([]sweepRing, float64, bool) {
	n := len(pts)
	dirs := make([]mgl64.Vec3, n-1)
	for i := range dirs {
		dirs[i] = pts[i+1].Sub(pts[i]).Normalize()
	}

	q := xform.QuatFromAxes(xform.UnitZ, dirs[0], profile.AxisX, false)
	u, v := q.Rotate(profile.AxisX), q.Rotate(profile.AxisY)

	rings := make([]sweepRing, n)
	var dist float64
	for i, p := range pts {
		if i > 0 {
			dist += p.Sub(pts[i-1]).Len()
		}
		in := dirs[max(i-1, 0)]
		out := dirs[min(i, n-2)]
		b := in.Add(out)
		if b.Len() < xform.Epsilon {
			return nil, 0, false
		}
		turn := xform.QuatFromAxes(in, out, u, false)
		rings[i] = sweepRing{center: p, u: u, v: v, in: in, miter: b.Normalize(), turn: turn, dist: dist}
		u, v = turn.Rotate(u), turn.Rotate(v)
	}
	return rings, dist, true
}

// point places profile point (x, y) on the ring: the offset in the incoming
// profile plane is slid along the incoming direction onto the miter plane.
// The normal averages the surface normals of both adjoining segments.
func (r sweepRing) point(x, y float64) (pos, normal mgl64.Vec3) {
	off := r.u.Mul(x).Add(r.v.Mul(y))
	pos = r.center.Add(off.Sub(r.in.Mul(off.Dot(r.miter) / r.in.Dot(r.miter))))
	normal = off.Add(r.turn.Rotate(off))
	if normal.Len() < xform.Epsilon {
		normal = off
	}
	return pos, normal.Normalize()
}

// bufWriter fills pre-sized mesh buffers.
type bufWriter struct {
	b mesh.Buffers
}

func newBufWriter(vertices, triangles int) *bufWriter {
	return &bufWriter{b: mesh.Buffers{
		Positions: make([]float32, 0, 3*vertices),
		Normals:   make([]float32, 0, 3*vertices),
		UVs:       make([]float32, 0, 2*vertices),
		Indices:   make([]uint32, 0, 3*triangles),
	}}
}

func (w *bufWriter) count() uint32 {
	return uint32(len(w.b.Positions) / 3)
}

// vertex appends a vertex and returns its index.
func (w *bufWriter) vertex(p, n mgl64.Vec3, u, v float64) uint32 {
	i := w.count()
	w.b.Positions = append(w.b.Positions, float32(p[0]), float32(p[1]), float32(p[2]))
	w.b.Normals = append(w.b.Normals, float32(n[0]), float32(n[1]), float32(n[2]))
	w.b.UVs = append(w.b.UVs, float32(u), float32(v))
	return i
}

func (w *bufWriter) tri(a, b, c uint32) {
	w.b.Indices = append(w.b.Indices, a, b, c)
}

func (w *bufWriter) mesh() *mesh.MeshDefinition {
	return mesh.MustBufferToMeshDef(w.b)
}

// shell sweeps loop through rings. Texture u runs around the profile and v
// along the path. An inward shell has flipped normals and winding.
func (w *bufWriter) shell(rings []sweepRing, loop []mgl64.Vec2, total float64, inward bool) {
	n := uint32(len(loop))
	base := w.count()
	for _, rg := range rings {
		for j, p := range loop {
			pos, nrm := rg.point(p[0], p[1])
			if inward {
				nrm = nrm.Mul(-1)
			}
			w.vertex(pos, nrm, float64(j)/float64(n), rg.dist/total)
		}
	}
	for i := uint32(0); i+1 < uint32(len(rings)); i++ {
		for j := uint32(0); j < n; j++ {
			a := base + i*n + j
			b := base + i*n + (j+1)%n
			c := base + (i+1)*n + (j+1)%n
			d := base + (i+1)*n + j
			if inward {
				w.tri(a, c, b)
				w.tri(a, d, c)
			} else {
				w.tri(a, b, c)
				w.tri(a, c, d)
			}
		}
	}
}

// annulus closes the wall between outer and inner at an end ring. The end
// cap faces along the path, the start cap against it.
func (w *bufWriter) annulus(rg sweepRing, outer, inner []mgl64.Vec2, end bool) {
	n := uint32(len(outer))
	nrm := rg.in
	if !end {
		nrm = nrm.Mul(-1)
	}
	base := w.count()
	for j, p := range outer {
		pos, _ := rg.point(p[0], p[1])
		w.vertex(pos, nrm, float64(j)/float64(n), 0)
	}
	for j, p := range inner {
		pos, _ := rg.point(p[0], p[1])
		w.vertex(pos, nrm, float64(j)/float64(n), 1)
	}
	for j := uint32(0); j < n; j++ {
		o, o1 := base+j, base+(j+1)%n
		i, i1 := base+n+j, base+n+(j+1)%n
		if end {
			w.tri(o, o1, i1)
			w.tri(o, i1, i)
		} else {
			w.tri(o, i1, o1)
			w.tri(o, i, i1)
		}
	}
}
