// Package curve defines the 3D path primitives that describe a tube's
// centerline: straight segments and circular arcs.
package curve

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Curve is one primitive of a route. Parameter t runs from 0 at StartPoint
// to 1 at EndPoint.
type Curve interface {
	StartPoint() mgl64.Vec3
	EndPoint() mgl64.Vec3
	PointAt(t float64) mgl64.Vec3
	TangentAt(t float64) mgl64.Vec3
	Length() float64
}

// Compile-time interface checks.
var _ Curve = Line{}
var _ Curve = Arc{}

// Line is a straight segment.
type Line struct {
	Start mgl64.Vec3 `json:"start"`
	End   mgl64.Vec3 `json:"end"`
}

// NewLine returns the segment from a to b.
func NewLine(a, b mgl64.Vec3) Line {
	return Line{Start: a, End: b}
}

func (l Line) StartPoint() mgl64.Vec3 { return l.Start }
func (l Line) EndPoint() mgl64.Vec3   { return l.End }

func (l Line) PointAt(t float64) mgl64.Vec3 {
	return l.Start.Add(l.End.Sub(l.Start).Mul(t))
}

// TangentAt returns the unit direction of the segment. A zero-length
// segment has a zero tangent.
func (l Line) TangentAt(float64) mgl64.Vec3 {
	d := l.End.Sub(l.Start)
	if d.Len() == 0 {
		return mgl64.Vec3{}
	}
	return d.Normalize()
}

func (l Line) Length() float64 {
	return l.End.Sub(l.Start).Len()
}

func (l Line) String() string {
	return fmt.Sprintf("line(%v -> %v)", l.Start, l.End)
}

// Arc is a circular arc around Center. It starts at Start and sweeps Sweep
// radians counter-clockwise about Axis (right hand rule).
type Arc struct {
	Center mgl64.Vec3 `json:"center"`
	Axis   mgl64.Vec3 `json:"axis"`
	Start  mgl64.Vec3 `json:"start"`
	Sweep  float64    `json:"sweep"`
}

// NewArcThrough returns the arc from start to end around center. The sweep
// is the smaller angle between the two radii. It fails when either radius
// is zero or the points are collinear with the center.
func NewArcThrough(center, start, end mgl64.Vec3) (Arc, error) {
	a := start.Sub(center)
	b := end.Sub(center)
	if a.Len() == 0 || b.Len() == 0 {
		return Arc{}, fmt.Errorf("curve: arc endpoint coincides with center")
	}
	axis := a.Cross(b)
	if axis.Len() < 1e-12*a.Len()*b.Len() {
		return Arc{}, fmt.Errorf("curve: arc endpoints are collinear with center")
	}
	sweep := math.Atan2(axis.Len(), a.Dot(b))
	return Arc{Center: center, Axis: axis.Normalize(), Start: start, Sweep: sweep}, nil
}

// Radius returns the distance from Center to Start.
func (a Arc) Radius() float64 {
	return a.Start.Sub(a.Center).Len()
}

func (a Arc) StartPoint() mgl64.Vec3 { return a.Start }
func (a Arc) EndPoint() mgl64.Vec3   { return a.PointAt(1) }

func (a Arc) PointAt(t float64) mgl64.Vec3 {
	q := mgl64.QuatRotate(a.Sweep*t, a.Axis.Normalize())
	return a.Center.Add(q.Rotate(a.Start.Sub(a.Center)))
}

// TangentAt returns the unit direction of travel at t.
func (a Arc) TangentAt(t float64) mgl64.Vec3 {
	radial := a.PointAt(t).Sub(a.Center)
	d := a.Axis.Cross(radial)
	if a.Sweep < 0 {
		d = d.Mul(-1)
	}
	if d.Len() == 0 {
		return mgl64.Vec3{}
	}
	return d.Normalize()
}

func (a Arc) Length() float64 {
	return math.Abs(a.Sweep) * a.Radius()
}

func (a Arc) String() string {
	return fmt.Sprintf("arc(c=%v r=%.4f sweep=%.4f)", a.Center, a.Radius(), a.Sweep)
}

// jointTolerance is the distance below which consecutive curves are
// considered to share a joint.
const jointTolerance = 1e-9

// HasArc reports whether any curve in route is an Arc.
func HasArc(route []Curve) bool {
	for _, c := range route {
		if _, ok := c.(Arc); ok {
			return true
		}
	}
	return false
}

// Discretize flattens route into a polyline. Lines contribute their
// endpoints; arcs are split so that no piece spans more than step radians.
// Joints shared by consecutive curves are emitted once.
func Discretize(route []Curve, step float64) []mgl64.Vec3 {
	if len(route) == 0 {
		return nil
	}
	pts := []mgl64.Vec3{route[0].StartPoint()}
	for _, c := range route {
		if pts[len(pts)-1].Sub(c.StartPoint()).Len() > jointTolerance {
			pts = append(pts, c.StartPoint())
		}
		switch v := c.(type) {
		case Arc:
			n := 1
			if step > 0 {
				n = int(math.Ceil(math.Abs(v.Sweep) / step))
			}
			if n < 1 {
				n = 1
			}
			for i := 1; i <= n; i++ {
				pts = append(pts, v.PointAt(float64(i)/float64(n)))
			}
		default:
			pts = append(pts, c.EndPoint())
		}
	}
	return pts
}

// Endpoints returns the first and last point of route.
func Endpoints(route []Curve) (start, end mgl64.Vec3, ok bool) {
	if len(route) == 0 {
		return start, end, false
	}
	return route[0].StartPoint(), route[len(route)-1].EndPoint(), true
}
