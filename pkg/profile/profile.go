// Package profile generates the closed 2D cross-section loops that the tube
// generators sweep along a path.
//
// Loops live in the profile's local XY plane. AxisX and AxisY give the
// embedding of that plane into 3D before any path alignment; the sweep
// direction of an unaligned profile is +Z.
package profile

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultSegments is the circle discretisation used for conduit and pipe
// profiles.
const DefaultSegments = 16

var (
	// AxisX is the 3D direction of the profile's local x axis.
	AxisX = mgl64.Vec3{1, 0, 0}
	// AxisY is the 3D direction of the profile's local y axis.
	AxisY = mgl64.Vec3{0, 1, 0}
)

var (
	ErrInvalidRadius   = errors.New("profile: radius must be positive")
	ErrInvalidSegments = errors.New("profile: at least 3 segments are required")
)

// SegmentKind distinguishes loop edges.
type SegmentKind int

const (
	SegLine SegmentKind = iota // straight edge
	SegArc                     // circular arc about the origin
)

// Segment is one edge of a loop. For arcs, Sweep is the counter-clockwise
// angle from Start to End about the loop center.
type Segment struct {
	Kind   SegmentKind
	Start  mgl64.Vec2
	End    mgl64.Vec2
	Center mgl64.Vec2
	Sweep  float64
}

// Loop is a closed chain of segments; each segment starts where the
// previous one ended.
type Loop struct {
	Segments []Segment
}

// GenBaseLoopCircle returns the loop approximating a circle of the given
// radius centred at the origin. With useSegments the circle is made of
// segments straight edges; otherwise it is two exact half-circle arcs.
func GenBaseLoopCircle(radius float64, useSegments bool, segments int) ([]Loop, error) {
	if !(radius > 0) || math.IsInf(radius, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidRadius, radius)
	}
	if !useSegments {
		right := mgl64.Vec2{radius, 0}
		left := mgl64.Vec2{-radius, 0}
		return []Loop{{Segments: []Segment{
			{Kind: SegArc, Start: right, End: left, Sweep: math.Pi},
			{Kind: SegArc, Start: left, End: right, Sweep: math.Pi},
		}}}, nil
	}
	if segments < 3 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSegments, segments)
	}
	pts := circlePoints(radius, segments)
	loop := Loop{Segments: make([]Segment, segments)}
	for i := range pts {
		loop.Segments[i] = Segment{Kind: SegLine, Start: pts[i], End: pts[(i+1)%segments]}
	}
	return []Loop{loop}, nil
}

// Points discretises the loop counter-clockwise, starting with the first
// segment's start point. The closing point is not repeated. Arcs are split
// evenly so that a full circle yields arcSegments points.
func (l Loop) Points(arcSegments int) []mgl64.Vec2 {
	var pts []mgl64.Vec2
	for _, s := range l.Segments {
		switch s.Kind {
		case SegArc:
			n := int(math.Round(float64(arcSegments) * math.Abs(s.Sweep) / (2 * math.Pi)))
			if n < 1 {
				n = 1
			}
			r := s.Start.Sub(s.Center)
			a0 := math.Atan2(r[1], r[0])
			for i := 0; i < n; i++ {
				a := a0 + s.Sweep*float64(i)/float64(n)
				pts = append(pts, s.Center.Add(mgl64.Vec2{math.Cos(a), math.Sin(a)}.Mul(r.Len())))
			}
		default:
			pts = append(pts, s.Start)
		}
	}
	return pts
}

// Radius returns the largest distance of a loop vertex from the origin.
func (l Loop) Radius() float64 {
	var r float64
	for _, s := range l.Segments {
		r = math.Max(r, s.Start.Len())
		r = math.Max(r, s.End.Len())
	}
	return r
}

// Embed maps a profile point into 3D using AxisX and AxisY.
func Embed(p mgl64.Vec2) mgl64.Vec3 {
	return AxisX.Mul(p[0]).Add(AxisY.Mul(p[1]))
}

// circlePoints returns n points on the circle, counter-clockwise from +X.
func circlePoints(radius float64, n int) []mgl64.Vec2 {
	pts := make([]mgl64.Vec2, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = mgl64.Vec2{radius * math.Cos(a), radius * math.Sin(a)}
	}
	return pts
}

// Ring returns the discretised circle profile used by the sweep generators:
// n points counter-clockwise from +X together with their outward unit
// normals in the profile plane.
func Ring(radius float64, n int) (pts, normals []mgl64.Vec2, err error) {
	loops, err := GenBaseLoopCircle(radius, true, n)
	if err != nil {
		return nil, nil, err
	}
	pts = loops[0].Points(n)
	normals = make([]mgl64.Vec2, len(pts))
	for i, p := range pts {
		normals[i] = p.Normalize()
	}
	return pts, normals, nil
}
