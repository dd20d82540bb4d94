package tube

import (
	"github.com/chazu/conduit/pkg/mesh"
	"github.com/chazu/conduit/pkg/profile"
	"github.com/chazu/conduit/pkg/xform"
	"github.com/go-gl/mathgl/mgl64"
)

// teeDirections are the stub axes of a T-connector: the through run on the
// X axis and the branch on +Z.
var teeDirections = []mgl64.Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 0, 1}}

// teeMesh builds a T-connector at the origin out of three stubs of length
// ConnectorStubFactor*diameter. Conduit stubs are closed at their outer end
// by a disc; water stubs carry their own annular caps.
func (c *Creator) teeMesh(diameter float64, water bool) (*mesh.MeshDefinition, bool) {
	length := c.cfg.ConnectorStubFactor * diameter
	if !(length > c.cfg.Precision) {
		return nil, false
	}
	var out *mesh.MeshDefinition
	for _, d := range teeDirections {
		end := d.Mul(length)
		stub, ok := c.CreateTube([]mgl64.Vec3{{}, end}, diameter, water)
		if !ok {
			return nil, false
		}
		out = mesh.CombineMesh(out, stub)
		if water {
			continue
		}
		lid, ok := c.discCap(end, d, diameter/2)
		if !ok {
			return nil, false
		}
		out = mesh.CombineMesh(out, lid)
	}
	return out, true
}

// discCap returns a flat disc of radius r at center facing dir. Its rim
// matches the end ring that CreateTube sweeps along dir.
func (c *Creator) discCap(center, dir mgl64.Vec3, r float64) (*mesh.MeshDefinition, bool) {
	loop, _, err := profile.Ring(r, c.cfg.CircleSegments)
	if err != nil {
		return nil, false
	}
	t := dir.Normalize()
	q := xform.QuatFromAxes(xform.UnitZ, t, profile.AxisX, false)

	n := uint32(len(loop))
	w := newBufWriter(len(loop)+1, len(loop))
	hub := w.vertex(center, t, 0.5, 0.5)
	for _, p := range loop {
		w.vertex(center.Add(q.Rotate(profile.Embed(p))), t, 0.5+p[0]/(2*r), 0.5+p[1]/(2*r))
	}
	for j := uint32(0); j < n; j++ {
		w.tri(hub, hub+1+j, hub+1+(j+1)%n)
	}
	return w.mesh(), true
}
