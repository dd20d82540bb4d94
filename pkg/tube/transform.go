package tube

import (
	"math"

	"github.com/chazu/conduit/pkg/curve"
	"github.com/chazu/conduit/pkg/xform"
	"github.com/go-gl/mathgl/mgl64"
)

// MeshTypeFor picks the mesh type of a request. A request with a node and
// side points is a connector, by branch flag and kind, whatever route it
// also carries. Otherwise routes with arcs or with more than one segment
// are swept as Other and a single segment is Straight.
func MeshTypeFor(p Params) MeshType {
	switch {
	case p.IsConnector():
		switch {
		case p.Branch:
			return ConnectorT
		case p.Kind.IsWater():
			return WaterVertical
		default:
			return ElecVertical
		}
	case curve.HasArc(p.Route), len(p.Route) > 1:
		return Other
	default:
		return Straight
	}
}

// GetTransform returns the placement of the mesh GetMesh produces for the
// same request. Straight meshes are stretched from the first route point to
// the last; connectors are placed at the node, facing the side points;
// Other meshes are already in model space and get the identity.
func (c *Creator) GetTransform(p Params, t MeshType) (mgl64.Mat4, bool) {
	t.mustValid()
	switch t {
	case Straight:
		l, ok := c.straightEnds(p)
		if !ok {
			return mgl64.Ident4(), false
		}
		return xform.TubeTransform(l.Start, l.End)
	case ElecVertical, WaterVertical, ConnectorT:
		if !p.IsConnector() {
			return mgl64.Ident4(), false
		}
		return xform.ConnectVerticalTransform(*p.NodePos, p.SidePoints[0], p.SidePoints[1])
	case Other:
		return mgl64.Ident4(), len(p.Route) > 0
	}
	panic("unreachable")
}

// GetBoundBox returns the model-space bounds of the placed mesh, padded by
// Precision. Straight tubes use the exact bound of a disc swept along the
// axis; everything else transforms each mesh vertex.
func (c *Creator) GetBoundBox(p Params, t MeshType) (Box, bool) {
	t.mustValid()
	if t == Straight {
		l, ok := c.straightEnds(p)
		if !ok || !(p.Diameter > 0) {
			return Box{}, false
		}
		return discSweepBox(l.Start, l.End, p.Radius()).Pad(c.cfg.Precision), true
	}

	m, ok := c.GetMesh(p, t)
	if !ok || m.IsEmpty() {
		return Box{}, false
	}
	tr, ok := c.GetTransform(p, t)
	if !ok {
		return Box{}, false
	}
	lo := xform.Apply(tr, m.Vertex(0))
	hi := lo
	for i := 1; i < m.VertexCount(); i++ {
		v := xform.Apply(tr, m.Vertex(i))
		for k := 0; k < 3; k++ {
			lo[k] = math.Min(lo[k], v[k])
			hi[k] = math.Max(hi[k], v[k])
		}
	}
	return NewBox(lo, hi).Pad(c.cfg.Precision), true
}

// discSweepBox bounds a cylinder of radius r between start and end. Along
// axis k a disc normal to unit direction d reaches r*sqrt(1-d_k^2).
func discSweepBox(start, end mgl64.Vec3, r float64) Box {
	d := end.Sub(start).Normalize()
	var lo, hi mgl64.Vec3
	for k := 0; k < 3; k++ {
		e := r * math.Sqrt(math.Max(0, 1-d[k]*d[k]))
		lo[k] = math.Min(start[k], end[k]) - e
		hi[k] = math.Max(start[k], end[k]) + e
	}
	return NewBox(lo, hi)
}
