package sdfx

import (
	"math"
	"testing"

	"github.com/chazu/conduit/pkg/kernel"
	"github.com/go-gl/mathgl/mgl64"
)

func TestBox(t *testing.T) {
	k := NewWithCells(40)
	box := k.Box(0.086, 0.086, 0.05)
	m, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if m.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if len(m.Positions()) != len(m.Normals()) {
		t.Fatalf("positions length %d != normals length %d", len(m.Positions()), len(m.Normals()))
	}
	if len(m.UVs()) != 2*m.VertexCount() {
		t.Fatalf("uvs length %d != 2*vertexCount %d", len(m.UVs()), 2*m.VertexCount())
	}
	if m.IndexCount() != m.TriangleCount()*3 {
		t.Fatalf("indices length %d != triCount*3 %d", m.IndexCount(), m.TriangleCount()*3)
	}
}

func TestBoundingBox(t *testing.T) {
	k := New()
	box := k.Box(0.086, 0.086, 0.05)
	min, max := box.BoundingBox()

	const tol = 1e-6
	expectMin := mgl64.Vec3{-0.043, -0.043, -0.025}
	expectMax := mgl64.Vec3{0.043, 0.043, 0.025}
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected %f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, max[i], expectMax[i])
		}
	}
}

func TestCylinder(t *testing.T) {
	k := NewWithCells(40)
	cyl := k.Cylinder(0.2, 0.01)
	min, max := cyl.BoundingBox()
	if math.Abs(min[2]+0.1) > 1e-6 || math.Abs(max[2]-0.1) > 1e-6 {
		t.Errorf("cylinder Z extent = [%f, %f], want [-0.1, 0.1]", min[2], max[2])
	}
	m, err := k.ToMesh(cyl)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if m.TriangleCount() == 0 {
		t.Fatal("expected non-zero triangle count")
	}
}

func TestPipeDifference(t *testing.T) {
	k := NewWithCells(60)

	rod, err := kernel.Rod(k, mgl64.Vec3{}, mgl64.Vec3{0.2, 0, 0}, 0.03)
	if err != nil {
		t.Fatalf("Rod() error = %v", err)
	}
	rodMesh, err := k.ToMesh(rod)
	if err != nil {
		t.Fatalf("ToMesh(rod) failed: %v", err)
	}

	pipe, err := kernel.Pipe(k, mgl64.Vec3{}, mgl64.Vec3{0.2, 0, 0}, 0.03, 0.01)
	if err != nil {
		t.Fatalf("Pipe() error = %v", err)
	}
	pipeMesh, err := k.ToMesh(pipe)
	if err != nil {
		t.Fatalf("ToMesh(pipe) failed: %v", err)
	}
	// The bore adds an inner surface.
	if pipeMesh.TriangleCount() <= rodMesh.TriangleCount() {
		t.Fatalf("pipe (%d triangles) should have more triangles than rod (%d triangles)",
			pipeMesh.TriangleCount(), rodMesh.TriangleCount())
	}
}

func TestUnion(t *testing.T) {
	k := NewWithCells(40)
	s, err := kernel.Polyline(k, []mgl64.Vec3{{0, 0, 0}, {0.1, 0, 0}, {0.1, 0.1, 0}}, 0.01, 1e-6)
	if err != nil {
		t.Fatalf("Polyline() error = %v", err)
	}
	m, err := k.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if m.IsEmpty() {
		t.Fatal("union mesh is empty")
	}
}

func TestTranslate(t *testing.T) {
	k := New()
	box := k.Box(10, 10, 10)
	translated := k.Translate(box, 100, 200, 300)

	min, max := translated.BoundingBox()

	const tol = 0.5
	expectMin := mgl64.Vec3{95, 195, 295}
	expectMax := mgl64.Vec3{105, 205, 305}
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected ~%f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected ~%f", i, max[i], expectMax[i])
		}
	}
}

func TestRotate(t *testing.T) {
	k := New()
	box := k.Box(100, 10, 10)

	// A long box along X rotated 90 degrees around Z should extend along Y instead.
	rotated := k.Rotate(box, 0, 0, 90)
	min, max := rotated.BoundingBox()

	xExtent := max[0] - min[0]
	yExtent := max[1] - min[1]

	const tol = 1.0
	if math.Abs(xExtent-10) > tol {
		t.Errorf("rotated X extent = %f, expected ~10", xExtent)
	}
	if math.Abs(yExtent-100) > tol {
		t.Errorf("rotated Y extent = %f, expected ~100", yExtent)
	}
}

func TestRodAlignment(t *testing.T) {
	k := New()
	rod, err := kernel.Rod(k, mgl64.Vec3{1, 1, 0}, mgl64.Vec3{1, 3, 0}, 0.1)
	if err != nil {
		t.Fatalf("Rod() error = %v", err)
	}
	min, max := rod.BoundingBox()
	// Rotated bounds may be loose but must hold the rod.
	if min[1] > 1+1e-9 || max[1] < 3-1e-9 {
		t.Errorf("rod Y extent = [%f, %f], want to cover [1, 3]", min[1], max[1])
	}
	if max[0]-min[0] > 0.5 {
		t.Errorf("rod X extent = %f, want about 0.2", max[0]-min[0])
	}
}
