package assemble

import (
	"fmt"

	"github.com/chazu/conduit/pkg/curve"
	"github.com/chazu/conduit/pkg/kernel"
	"github.com/chazu/conduit/pkg/mesh"
	"github.com/chazu/conduit/pkg/plan"
	"github.com/chazu/conduit/pkg/tube"
)

// RefSolid is a named solid built by a geometry kernel.
type RefSolid struct {
	Name  string
	Solid kernel.Solid
}

// RefMesh is a named kernel tessellation.
type RefMesh struct {
	Name string
	Mesh *mesh.MeshDefinition
}

// Reference builds a constructive solid for every entry of p. Tube runs
// follow their original route (no crossing detours); connectors are the
// rods from each side point to the node; junction boxes are boxes of the
// configured footprint. It is a cross-check of the swept meshes, not a
// replacement for them.
func Reference(p *plan.Plan, k kernel.Kernel, cfg tube.Config) ([]RefSolid, error) {
	if p == nil {
		return nil, nil
	}
	var out []RefSolid
	for _, e := range p.Entries {
		s, err := referenceSolid(k, cfg, e)
		if err != nil {
			return nil, fmt.Errorf("assemble: reference %s: %w", e.Name, err)
		}
		out = append(out, RefSolid{Name: e.Name, Solid: s})
	}
	return out, nil
}

// ReferenceMeshes tessellates the solids returned by Reference.
func ReferenceMeshes(p *plan.Plan, k kernel.Kernel, cfg tube.Config) ([]RefMesh, error) {
	solids, err := Reference(p, k, cfg)
	if err != nil {
		return nil, err
	}
	out := make([]RefMesh, 0, len(solids))
	for _, s := range solids {
		m, err := k.ToMesh(s.Solid)
		if err != nil {
			return nil, fmt.Errorf("assemble: ToMesh failed for %s: %w", s.Name, err)
		}
		out = append(out, RefMesh{Name: s.Name, Mesh: m})
	}
	return out, nil
}

func referenceSolid(k kernel.Kernel, cfg tube.Config, e *plan.Entry) (kernel.Solid, error) {
	r := e.Tube.Radius()
	switch e.Kind {
	case plan.KindJunctionBox:
		jb := cfg.JunctionBox
		s := kernel.Align(k, k.Box(jb.Width, jb.Width, jb.Thickness), e.Facing)
		return k.Translate(s, e.Position[0], e.Position[1], e.Position[2]), nil

	case plan.KindConnector:
		if !e.Tube.IsConnector() {
			return nil, kernel.ErrDegenerate
		}
		node := *e.Tube.NodePos
		var out kernel.Solid
		for _, side := range e.Tube.SidePoints {
			rod, err := kernel.Rod(k, side, node, r)
			if err != nil {
				return nil, err
			}
			if out == nil {
				out = rod
			} else {
				out = k.Union(out, rod)
			}
		}
		return out, nil

	case plan.KindTube:
		if len(e.Tube.Route) == 1 && !curve.HasArc(e.Tube.Route) {
			l := e.Tube.Route[0]
			if e.Tube.Kind.IsWater() {
				return kernel.Pipe(k, l.StartPoint(), l.EndPoint(), r, cfg.WaterTubeThickness)
			}
			return kernel.Rod(k, l.StartPoint(), l.EndPoint(), r)
		}
		pts := curve.Discretize(e.Tube.Route, cfg.ArcStep)
		return kernel.Polyline(k, pts, r, cfg.Precision)
	}
	return nil, fmt.Errorf("unknown entry kind %v", e.Kind)
}

// Enclose reports whether the kernel solid's bounds hold box b, within tol.
func Enclose(s kernel.Solid, b tube.Box, tol float64) bool {
	outer := tube.NewBox(s.BoundingBox())
	return outer.Contains(b.Min(), tol) && outer.Contains(b.Max(), tol)
}
