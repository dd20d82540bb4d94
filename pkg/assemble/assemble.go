// Package assemble walks a routing plan and produces the placed meshes of
// every part: one catalogue or swept mesh per tube and connector, one box
// mesh per junction box. Crossing conduit is detoured before meshing.
package assemble

import (
	"errors"
	"fmt"

	"github.com/chazu/conduit/pkg/curve"
	"github.com/chazu/conduit/pkg/mesh"
	"github.com/chazu/conduit/pkg/plan"
	"github.com/chazu/conduit/pkg/tube"
	"github.com/chazu/conduit/pkg/xform"
	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidPlan is returned when validation finds errors.
var ErrInvalidPlan = errors.New("assemble: invalid plan")

// Part is one placed mesh.
type Part struct {
	Name  string
	Group string
	Kind  plan.EntryKind
	Tube  tube.TubeKind
	// Type is the mesh type of tubes and connectors; junction boxes leave
	// it at its zero value.
	Type tube.MeshType
	Mesh *mesh.MeshDefinition
	// Transform places Mesh in model space. Local is the same placement
	// relative to the part's group frame.
	Transform mgl64.Mat4
	Local     mgl64.Mat4
	Box       tube.Box
}

// Skipped records an entry that produced no geometry.
type Skipped struct {
	Name   string
	Reason string
}

// Result is the outcome of Build.
type Result struct {
	Parts    []Part
	Skipped  []Skipped
	Findings []plan.ValidationError
}

// Bounds returns the union of every part's box, or false when there are
// no parts.
func (r *Result) Bounds() (tube.Box, bool) {
	if len(r.Parts) == 0 {
		return tube.Box{}, false
	}
	b := r.Parts[0].Box
	for _, p := range r.Parts[1:] {
		b = b.Union(p.Box)
	}
	return b, true
}

// Build validates p and meshes every entry with c. Validation errors abort
// the build with ErrInvalidPlan; warnings are carried in the result.
// Entries whose geometry is degenerate are skipped, not fatal. Build never
// mutates the plan.
func Build(p *plan.Plan, c *tube.Creator) (*Result, error) {
	res := &Result{}
	if p == nil {
		return res, nil
	}

	res.Findings = plan.Validate(p)
	for _, f := range res.Findings {
		if f.Severity == plan.SeverityError {
			return res, fmt.Errorf("%w: %v", ErrInvalidPlan, f)
		}
	}

	others := runs(p)
	for _, e := range p.Entries {
		var (
			part Part
			ok   bool
		)
		switch e.Kind {
		case plan.KindTube, plan.KindConnector:
			part, ok = tubePart(c, e, others)
		case plan.KindJunctionBox:
			part, ok = boxPart(c, e)
		default:
			return res, fmt.Errorf("assemble: entry %s has unknown kind %v", e.Name, e.Kind)
		}
		if !ok {
			res.Skipped = append(res.Skipped, Skipped{Name: e.Name, Reason: "degenerate geometry"})
			continue
		}
		part.Name = e.Name
		part.Group = e.Group
		part.Kind = e.Kind
		part.Local = xform.TransToTreeMatrix(part.Transform, p.GroupFrame(e.Group))
		res.Parts = append(res.Parts, part)
	}
	return res, nil
}

// runs collects the requests of every tube entry, the set crossings are
// detected against.
func runs(p *plan.Plan) []tube.Params {
	var out []tube.Params
	for _, e := range p.Entries {
		if e.Kind == plan.KindTube {
			out = append(out, e.Tube)
		}
	}
	return out
}

func tubePart(c *tube.Creator, e *plan.Entry, others []tube.Params) (Part, bool) {
	req := e.Tube
	if e.Kind == plan.KindTube && !curve.HasArc(req.Route) {
		req.Route = c.CalculateCrossArc(req, others)
	}

	t := tube.MeshTypeFor(req)
	m, ok := c.GetMesh(req, t)
	if !ok {
		return Part{}, false
	}
	tr, ok := c.GetTransform(req, t)
	if !ok {
		return Part{}, false
	}
	box, ok := c.GetBoundBox(req, t)
	if !ok {
		return Part{}, false
	}
	return Part{Tube: req.Kind, Type: t, Mesh: m, Transform: tr, Box: box}, true
}

func boxPart(c *tube.Creator, e *plan.Entry) (Part, bool) {
	m := c.GetJunctionBoxMesh()
	if m.IsEmpty() {
		return Part{}, false
	}
	tr := xform.JunctionBoxTransform(e.Position, e.Facing)
	lo, hi := m.Bounds()
	lo, hi = xform.TransformBox(lo, hi, tr)
	return Part{
		Mesh:      m,
		Transform: tr,
		Box:       tube.NewBox(lo, hi).Pad(c.Config().Precision),
	}, true
}
