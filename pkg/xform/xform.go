// Package xform composes the placement matrices that move profile-local
// tube meshes into model space. Matrices are column-major mgl64.Mat4 and
// act on column vectors: Compose(t, r, s) applies scale, then rotation,
// then translation.
package xform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the length below which a direction is treated as degenerate.
const Epsilon = 1e-9

var (
	UnitX = mgl64.Vec3{1, 0, 0}
	UnitY = mgl64.Vec3{0, 1, 0}
	UnitZ = mgl64.Vec3{0, 0, 1}
)

// Compose returns T * R * S.
func Compose(translation mgl64.Vec3, rotation mgl64.Quat, scale mgl64.Vec3) mgl64.Mat4 {
	t := mgl64.Translate3D(translation[0], translation[1], translation[2])
	s := mgl64.Scale3D(scale[0], scale[1], scale[2])
	return t.Mul4(rotation.Normalize().Mat4()).Mul4(s)
}

// QuatFromAxes returns the rotation taking from onto to.
//
// When the axes are collinear the shortest-arc rotation is ambiguous; the
// rotation is then taken about ref (made perpendicular to from). With
// forceRef the rotation is always about ref: from and to are projected onto
// the plane normal to ref and the signed angle between the projections is
// used.
func QuatFromAxes(from, to, ref mgl64.Vec3, forceRef bool) mgl64.Quat {
	if from.Len() < Epsilon || to.Len() < Epsilon {
		return mgl64.QuatIdent()
	}
	f := from.Normalize()
	t := to.Normalize()

	if forceRef {
		if ref.Len() < Epsilon {
			return mgl64.QuatIdent()
		}
		r := ref.Normalize()
		fp := f.Sub(r.Mul(f.Dot(r)))
		tp := t.Sub(r.Mul(t.Dot(r)))
		if fp.Len() < Epsilon || tp.Len() < Epsilon {
			return mgl64.QuatIdent()
		}
		angle := math.Atan2(r.Dot(fp.Cross(tp)), fp.Dot(tp))
		return mgl64.QuatRotate(angle, r)
	}

	if f.Cross(t).Len() > Epsilon {
		return shortestArc(f, t)
	}
	if f.Dot(t) > 0 {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatRotate(math.Pi, Perpendicular(f, ref))
}

// shortestArc is the minimal rotation between two non-collinear unit
// vectors.
func shortestArc(f, t mgl64.Vec3) mgl64.Quat {
	axis := f.Cross(t).Normalize()
	angle := math.Atan2(f.Cross(t).Len(), f.Dot(t))
	return mgl64.QuatRotate(angle, axis)
}

// Perpendicular returns a unit vector perpendicular to v, as close to hint
// as possible. If hint is parallel to v another world axis is used.
func Perpendicular(v, hint mgl64.Vec3) mgl64.Vec3 {
	v = v.Normalize()
	for _, h := range []mgl64.Vec3{hint, UnitZ, UnitY, UnitX} {
		if h.Len() < Epsilon {
			continue
		}
		p := h.Sub(v.Mul(h.Dot(v)))
		if p.Len() > 1e-6*h.Len() {
			return p.Normalize()
		}
	}
	return UnitX
}

// TubeTransform places a straight mesh authored along +Z from the origin
// with unit length: translation = start, rotation maps +Z onto end-start,
// scale = (1, 1, |end-start|). It reports false for a zero-length tube.
func TubeTransform(start, end mgl64.Vec3) (mgl64.Mat4, bool) {
	d := end.Sub(start)
	l := d.Len()
	if l < Epsilon {
		return mgl64.Ident4(), false
	}
	q := QuatFromAxes(UnitZ, d, UnitX, false)
	return Compose(start, q, mgl64.Vec3{1, 1, l}), true
}

// ConnectVerticalTransform places a connector authored with its first leg
// along +X and its second leg along +Z at node. Local +X is aligned with
// side1-node; local +Z is then turned about that axis onto the part of
// side2-node orthogonal to it. If both sides are collinear with the node,
// the second leg follows world up (or world Y for a vertical first leg).
// It reports false when a side coincides with the node.
func ConnectVerticalTransform(node, side1, side2 mgl64.Vec3) (mgl64.Mat4, bool) {
	d1 := side1.Sub(node)
	d2 := side2.Sub(node)
	if d1.Len() < Epsilon || d2.Len() < Epsilon {
		return mgl64.Ident4(), false
	}
	q := ConnectorRotation(d1, d2)
	return Compose(node, q, mgl64.Vec3{1, 1, 1}), true
}

// ConnectorRotation returns the rotation taking +X onto d1 and +Z onto the
// part of d2 perpendicular to d1.
func ConnectorRotation(d1, d2 mgl64.Vec3) mgl64.Quat {
	d1 = d1.Normalize()
	q1 := QuatFromAxes(UnitX, d1, UnitZ, false)

	up := d2.Sub(d1.Mul(d2.Dot(d1)))
	if up.Len() < Epsilon*d2.Len() {
		up = Perpendicular(d1, UnitZ)
	}
	q2 := QuatFromAxes(q1.Rotate(UnitZ), up, d1, true)
	return q2.Mul(q1)
}

// JunctionBoxTransform places a junction box mesh centred at pos with its
// local +Z facing the given direction.
func JunctionBoxTransform(pos, facing mgl64.Vec3) mgl64.Mat4 {
	q := mgl64.QuatIdent()
	if facing.Len() > Epsilon {
		q = QuatFromAxes(UnitZ, facing, UnitX, false)
	}
	return Compose(pos, q, mgl64.Vec3{1, 1, 1})
}

// TransToTreeMatrix expresses placement m relative to the parent frame
// tree, so that tree * result == m.
func TransToTreeMatrix(m, tree mgl64.Mat4) mgl64.Mat4 {
	return tree.Inv().Mul4(m)
}

// Apply transforms point p by m.
func Apply(m mgl64.Mat4, p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, m)
}

// TransformBox transforms the eight corners of the box and returns their
// axis-aligned bounds.
func TransformBox(min, max mgl64.Vec3, m mgl64.Mat4) (mgl64.Vec3, mgl64.Vec3) {
	var lo, hi mgl64.Vec3
	for i := 0; i < 8; i++ {
		c := mgl64.Vec3{min[0], min[1], min[2]}
		if i&1 != 0 {
			c[0] = max[0]
		}
		if i&2 != 0 {
			c[1] = max[1]
		}
		if i&4 != 0 {
			c[2] = max[2]
		}
		p := Apply(m, c)
		if i == 0 {
			lo, hi = p, p
			continue
		}
		lo, hi = extend(lo, hi, p)
	}
	return lo, hi
}

func extend(lo, hi, p mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	for k := 0; k < 3; k++ {
		lo[k] = math.Min(lo[k], p[k])
		hi[k] = math.Max(hi[k], p[k])
	}
	return lo, hi
}

// Flatten returns the matrix as 16 floats in column-major order.
func Flatten(m mgl64.Mat4) [16]float64 {
	return [16]float64(m)
}
