package kernel

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrDegenerate is returned when a reference solid would have no volume.
var ErrDegenerate = errors.New("kernel: degenerate solid")

// Align turns a solid authored along +Z so that +Z points along dir. It
// uses the Euler rotation (0, theta, phi): tilt about Y, then spin about Z.
func Align(k Kernel, s Solid, dir mgl64.Vec3) Solid {
	l := dir.Len()
	if l == 0 {
		return s
	}
	theta := math.Acos(math.Max(-1, math.Min(1, dir[2]/l)))
	phi := math.Atan2(dir[1], dir[0])
	return k.Rotate(s, 0, theta*180/math.Pi, phi*180/math.Pi)
}

// Rod returns a solid cylinder of radius r with its axis from start to end.
func Rod(k Kernel, start, end mgl64.Vec3, r float64) (Solid, error) {
	d := end.Sub(start)
	if d.Len() == 0 || !(r > 0) {
		return nil, fmt.Errorf("%w: rod of length %v, radius %v", ErrDegenerate, d.Len(), r)
	}
	s := Align(k, k.Cylinder(d.Len(), r), d)
	mid := start.Add(d.Mul(0.5))
	return k.Translate(s, mid[0], mid[1], mid[2]), nil
}

// Pipe returns a rod of radius r with a bore leaving the given wall. The
// bore runs past both ends so the pipe is open.
func Pipe(k Kernel, start, end mgl64.Vec3, r, wall float64) (Solid, error) {
	outer, err := Rod(k, start, end, r)
	if err != nil {
		return nil, err
	}
	if !(wall > 0) || wall >= r {
		return outer, nil
	}
	d := end.Sub(start).Normalize().Mul(wall)
	bore, err := Rod(k, start.Sub(d), end.Add(d), r-wall)
	if err != nil {
		return nil, err
	}
	return k.Difference(outer, bore), nil
}

// Polyline returns the union of rods along consecutive points. Points
// closer than precision to their predecessor are skipped.
func Polyline(k Kernel, pts []mgl64.Vec3, r, precision float64) (Solid, error) {
	var out Solid
	prev := 0
	for i := 1; i < len(pts); i++ {
		if pts[i].Sub(pts[prev]).Len() <= precision {
			continue
		}
		rod, err := Rod(k, pts[prev], pts[i], r)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = rod
		} else {
			out = k.Union(out, rod)
		}
		prev = i
	}
	if out == nil {
		return nil, fmt.Errorf("%w: polyline with fewer than two distinct points", ErrDegenerate)
	}
	return out, nil
}
