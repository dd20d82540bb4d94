package tube

import (
	"math"
	"sort"

	"github.com/chazu/conduit/pkg/curve"
	"github.com/go-gl/mathgl/mgl64"
)

// Crossing is the closest approach of two segments.
type Crossing struct {
	// S and T are the parameters of the closest points on the first and
	// second segment.
	S, T float64
	// Point is the closest point on the first segment.
	Point mgl64.Vec3
	// Distance separates the two closest points.
	Distance float64
	// Angle between the segment directions, in [0, pi].
	Angle float64
}

// IntersectSegments reports where a and b cross. Segments whose closest
// points are further apart than tol, lie outside either segment or that
// are parallel do not cross.
func IntersectSegments(a, b curve.Line, tol float64) (Crossing, bool) {
	d1 := a.End.Sub(a.Start)
	d2 := b.End.Sub(b.Start)
	r := a.Start.Sub(b.Start)
	aa, ee, ab := d1.Dot(d1), d2.Dot(d2), d1.Dot(d2)
	ar, er := d1.Dot(r), d2.Dot(r)

	denom := aa*ee - ab*ab
	if aa == 0 || ee == 0 || denom <= 1e-12*aa*ee {
		return Crossing{}, false
	}
	s := (ab*er - ar*ee) / denom
	t := (aa*er - ab*ar) / denom
	if s < 0 || s > 1 || t < 0 || t > 1 {
		return Crossing{}, false
	}
	p := a.PointAt(s)
	dist := p.Sub(b.PointAt(t)).Len()
	if dist > tol {
		return Crossing{}, false
	}
	cos := ab / math.Sqrt(aa*ee)
	return Crossing{
		S:        s,
		T:        t,
		Point:    p,
		Distance: dist,
		Angle:    math.Acos(math.Max(-1, math.Min(1, cos))),
	}, true
}

// hop is one detour planned on a line.
type hop struct {
	s, halfChord float64
	arc          curve.Arc
}

// CalculateCrossArc returns p's route with a detour over every crossing
// with another tube's straight segments. Each crossing line is split into
// line, arc, line: the arc rises CrossArcFactor times the mean radius of
// the two tubes along n = d_self x d_other and spans a chord of twice that
// height. The other tube computes the opposite normal, so the two detours
// part.
//
// Only near-coplanar crossings (closer than CrossArcTolerance) at an angle
// between CrossArcMinAngle and pi-CrossArcMinAngle are handled, and only
// when the chord fits strictly inside both segments. Everything else,
// including arcs in either route, is returned as is. Entries of others with
// p's ID are ignored.
func (c *Creator) CalculateCrossArc(p Params, others []Params) []curve.Curve {
	out := make([]curve.Curve, 0, len(p.Route))
	for _, cv := range p.Route {
		l, ok := cv.(curve.Line)
		if !ok {
			out = append(out, cv)
			continue
		}
		out = append(out, splitLine(l, c.planHops(l, p, others))...)
	}
	return out
}

// planHops finds the non-overlapping detours on l, ordered along it.
func (c *Creator) planHops(l curve.Line, p Params, others []Params) []hop {
	length := l.Length()
	if length <= c.cfg.Precision || !(p.Diameter > 0) {
		return nil
	}
	dSelf := l.End.Sub(l.Start).Normalize()

	var hops []hop
	for _, o := range others {
		if p.ID != "" && o.ID == p.ID {
			continue
		}
		if !(o.Diameter > 0) {
			continue
		}
		for _, ocv := range o.Route {
			ol, ok := ocv.(curve.Line)
			if !ok {
				continue
			}
			x, ok := IntersectSegments(l, ol, c.cfg.CrossArcTolerance)
			if !ok || x.Angle < c.cfg.CrossArcMinAngle || x.Angle > math.Pi-c.cfg.CrossArcMinAngle {
				continue
			}
			rise := c.cfg.CrossArcFactor * (p.Radius() + o.Radius()) / 2
			half := 2 * rise
			if !fits(x.S, length, half, c.cfg.Precision) || !fits(x.T, ol.Length(), half, c.cfg.Precision) {
				continue
			}
			dOther := ol.End.Sub(ol.Start).Normalize()
			arc, ok := crossArc(x.Point, dSelf, dOther, rise, half)
			if !ok {
				continue
			}
			hops = append(hops, hop{s: x.S, halfChord: half, arc: arc})
		}
	}

	sort.Slice(hops, func(i, j int) bool { return hops[i].s < hops[j].s })
	kept := hops[:0]
	last := math.Inf(-1)
	for _, h := range hops {
		lo := h.s*length - h.halfChord
		if lo <= last+c.cfg.Precision {
			continue
		}
		kept = append(kept, h)
		last = h.s*length + h.halfChord
	}
	return kept
}

// fits reports whether a chord of half length half around parameter s lies
// strictly inside a segment of the given length.
func fits(s, length, half, precision float64) bool {
	at := s * length
	return at-half > precision && length-at-half > precision
}

// crossArc builds the detour through x + n*rise between x -/+ dSelf*half.
func crossArc(x, dSelf, dOther mgl64.Vec3, rise, half float64) (curve.Arc, bool) {
	n := dSelf.Cross(dOther)
	if n.Len() == 0 || !(rise > 0) {
		return curve.Arc{}, false
	}
	n = n.Normalize()
	radius := (half*half + rise*rise) / (2 * rise)
	center := x.Add(n.Mul(rise - radius))
	arc, err := curve.NewArcThrough(center, x.Sub(dSelf.Mul(half)), x.Add(dSelf.Mul(half)))
	if err != nil {
		return curve.Arc{}, false
	}
	return arc, true
}

// splitLine replaces l by the lines and arcs of its detours.
func splitLine(l curve.Line, hops []hop) []curve.Curve {
	if len(hops) == 0 {
		return []curve.Curve{l}
	}
	out := make([]curve.Curve, 0, 2*len(hops)+1)
	from := l.Start
	for _, h := range hops {
		out = append(out, curve.NewLine(from, h.arc.StartPoint()), h.arc)
		from = h.arc.EndPoint()
	}
	return append(out, curve.NewLine(from, l.End))
}
