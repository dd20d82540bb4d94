package tube_test

import (
	"math"
	"sync"
	"testing"

	"github.com/chazu/conduit/pkg/curve"
	"github.com/chazu/conduit/pkg/mesh"
	"github.com/chazu/conduit/pkg/tube"
	"github.com/chazu/conduit/pkg/xform"
	"github.com/go-gl/mathgl/mgl64"
)

// checkBuffers verifies the invariants every generated mesh must hold.
func checkBuffers(t *testing.T, m *mesh.MeshDefinition) {
	t.Helper()
	vc := m.VertexCount()
	if got := len(m.Positions()) / 3; got != vc {
		t.Errorf("positions/3 = %d, want %d", got, vc)
	}
	if got := len(m.Normals()) / 3; got != vc {
		t.Errorf("normals/3 = %d, want %d", got, vc)
	}
	if got := len(m.UVs()) / 2; got != vc {
		t.Errorf("uvs/2 = %d, want %d", got, vc)
	}
	idx := m.Indices()
	if m.IndexCount() != len(idx) || len(idx)%3 != 0 {
		t.Errorf("IndexCount() = %d, len(indices) = %d", m.IndexCount(), len(idx))
	}
	for i, v := range idx {
		if int(v) >= vc {
			t.Fatalf("index %d = %d, want < %d", i, v, vc)
		}
	}
	for i := 0; i < vc; i++ {
		if l := m.Normal(i).Len(); math.Abs(l-1) > 1e-5 {
			t.Fatalf("normal %d has length %v", i, l)
		}
	}
}

func connector(branch bool, kind tube.TubeKind) tube.Params {
	node := mgl64.Vec3{1, 2, 3}
	return tube.Params{
		ID:         "node",
		Diameter:   0.02,
		Kind:       kind,
		NodePos:    &node,
		SidePoints: [2]mgl64.Vec3{{2, 2, 3}, {1, 2, 5}},
		HasSides:   true,
		Branch:     branch,
	}
}

func straight(start, end mgl64.Vec3, d float64, kind tube.TubeKind) tube.Params {
	return tube.Params{ID: "run", Diameter: d, Kind: kind, Route: []curve.Curve{curve.NewLine(start, end)}}
}

func TestGetDefaultMeshMemoises(t *testing.T) {
	c := tube.NewDefault()
	a, ok := c.GetDefaultMesh(tube.ElecVertical, 0.02, 0.1)
	if !ok {
		t.Fatal("GetDefaultMesh() ok = false")
	}
	b, _ := c.GetDefaultMesh(tube.ElecVertical, 0.02, 0.1)
	if a != b {
		t.Error("second GetDefaultMesh() returned a different instance")
	}
	st := c.Stats()
	if st.Generated != 1 || st.Hits != 1 || st.Misses != 1 {
		t.Errorf("Stats() = %+v, want 1 generated, 1 hit, 1 miss", st)
	}

	// Zero bend radius selects the configured default.
	d, _ := c.GetDefaultMesh(tube.ElecVertical, 0.02, 0)
	if d != a {
		t.Error("pathR 0 did not resolve to ElecPathR")
	}

	// Other keys are separate entries.
	e, _ := c.GetDefaultMesh(tube.ElecVertical, 0.02, 0.2)
	if e == a {
		t.Error("different bend radius shared a cache entry")
	}
	f, _ := c.GetDefaultMesh(tube.ElecVertical, 0.025, 0.1)
	if f == a {
		t.Error("different diameter shared a cache entry")
	}
}

func TestWaterCornerIgnoresPathR(t *testing.T) {
	c := tube.NewDefault()
	a, _ := c.GetDefaultMesh(tube.WaterVertical, 0.02, 0.3)
	b, _ := c.GetDefaultMesh(tube.WaterVertical, 0.02, 0.7)
	if a == nil || a != b {
		t.Error("water corners with the same diameter were not shared")
	}
}

func TestClearRegenerates(t *testing.T) {
	c := tube.NewDefault()
	before, _ := c.GetDefaultMesh(tube.Straight, 0.02, 0)
	box := c.GetJunctionBoxMesh()
	c.Clear()
	after, _ := c.GetDefaultMesh(tube.Straight, 0.02, 0)
	if before == after {
		t.Error("Clear() kept the cached instance")
	}
	if !before.Equal(after) {
		t.Error("regenerated mesh differs from the original")
	}
	if c.GetJunctionBoxMesh() == box {
		t.Error("Clear() kept the junction box")
	}
	if got := c.Stats().Generated; got != 4 {
		t.Errorf("Stats().Generated = %d, want 4", got)
	}
}

func TestGetDefaultMeshUnavailable(t *testing.T) {
	c := tube.NewDefault()
	tests := []struct {
		name     string
		typ      tube.MeshType
		diameter float64
		pathR    float64
	}{
		{"other", tube.Other, 0.02, 0},
		{"zero diameter", tube.Straight, 0, 0},
		{"negative diameter", tube.ConnectorT, -0.02, 0},
		{"nan diameter", tube.ElecVertical, math.NaN(), 0},
		{"infinite diameter", tube.Straight, math.Inf(1), 0},
		{"nan path radius", tube.ElecVertical, 0.02, math.NaN()},
		{"infinite path radius", tube.ElecVertical, 0.02, math.Inf(1)},
		{"negative path radius", tube.ElecVertical, 0.02, -0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 2; i++ {
				if m, ok := c.GetDefaultMesh(tt.typ, tt.diameter, tt.pathR); ok || m != nil {
					t.Errorf("GetDefaultMesh() = %v, %v, want nil, false", m, ok)
				}
			}
		})
	}
	if s := c.Stats(); s.Misses != 0 || s.Generated != 0 {
		t.Errorf("Stats = %+v, want no cache entries for rejected requests", s)
	}
}

func TestInvalidMeshTypePanics(t *testing.T) {
	c := tube.NewDefault()
	calls := map[string]func(){
		"GetDefaultMesh": func() { c.GetDefaultMesh(tube.MeshType(42), 0.02, 0) },
		"GetMesh":        func() { c.GetMesh(tube.Params{Diameter: 0.02}, tube.MeshType(-1)) },
		"GetTransform":   func() { c.GetTransform(tube.Params{}, tube.MeshType(5)) },
		"GetBoundBox":    func() { c.GetBoundBox(tube.Params{}, tube.MeshType(99)) },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("invalid mesh type did not panic")
				}
			}()
			call()
		})
	}
}

func TestConcurrentGetDefaultMesh(t *testing.T) {
	c := tube.NewDefault()
	const workers = 8
	got := make([]*mesh.MeshDefinition, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = c.GetDefaultMesh(tube.ConnectorT, 0.02, 0)
		}(i)
	}
	wg.Wait()
	for i := 1; i < workers; i++ {
		if got[i] != got[0] {
			t.Fatalf("worker %d got a different instance", i)
		}
	}
	if g := c.Stats().Generated; g != 1 {
		t.Errorf("Stats().Generated = %d, want 1", g)
	}
}

func TestGeneratorBufferInvariants(t *testing.T) {
	c := tube.NewDefault()
	for _, typ := range []tube.MeshType{tube.Straight, tube.ElecVertical, tube.WaterVertical, tube.ConnectorT} {
		t.Run(typ.String(), func(t *testing.T) {
			m, ok := c.GetDefaultMesh(typ, 0.025, 0)
			if !ok {
				t.Fatal("GetDefaultMesh() ok = false")
			}
			checkBuffers(t, m)
		})
	}
	t.Run("junction box", func(t *testing.T) {
		checkBuffers(t, c.GetJunctionBoxMesh())
	})
	t.Run("water tee", func(t *testing.T) {
		m, ok := c.GetMesh(connector(true, tube.ColdWater), tube.ConnectorT)
		if !ok {
			t.Fatal("GetMesh() ok = false")
		}
		checkBuffers(t, m)
	})
	t.Run("arc route", func(t *testing.T) {
		arc, err := curve.NewArcThrough(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 0})
		if err != nil {
			t.Fatal(err)
		}
		m, ok := c.CreateTubeFromCurves([]curve.Curve{arc, curve.NewLine(arc.EndPoint(), mgl64.Vec3{3, 1, 0})}, 0.02, true)
		if !ok {
			t.Fatal("CreateTubeFromCurves() ok = false")
		}
		checkBuffers(t, m)
	})
}

func TestCreateTubeDegenerate(t *testing.T) {
	c := tube.NewDefault()
	tests := []struct {
		name     string
		path     []mgl64.Vec3
		diameter float64
	}{
		{"empty", nil, 0.02},
		{"single point", []mgl64.Vec3{{1, 2, 3}}, 0.02},
		{"coincident points", []mgl64.Vec3{{0, 0, 0}, {0, 0, 1e-7}}, 0.02},
		{"zero diameter", []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}}, 0},
		{"u-turn", []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 0, 0}}, 0.02},
		{"nan point", []mgl64.Vec3{{0, 0, 0}, {math.NaN(), 0, 0}, {1, 0, 0}}, 0.02},
		{"infinite point", []mgl64.Vec3{{0, 0, 0}, {math.Inf(-1), 0, 0}}, 0.02},
		{"infinite diameter", []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}}, math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := c.CreateTube(tt.path, tt.diameter, false); ok {
				t.Error("CreateTube() ok = true, want false")
			}
		})
	}
}

func TestCreateTubeCounts(t *testing.T) {
	c := tube.NewDefault()
	n := c.Config().CircleSegments
	tests := []struct {
		name      string
		path      []mgl64.Vec3
		water     bool
		vertices  int
		triangles int
	}{
		{"conduit", []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}}, false, 2 * n, 2 * n},
		{"conduit with duplicate", []mgl64.Vec3{{0, 0, 0}, {0, 0, 0}, {1, 0, 0}}, false, 2 * n, 2 * n},
		{"conduit bend", []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}}, false, 3 * n, 4 * n},
		{"water pipe", []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}}, true, 4*n + 4*n, 4*n + 4*n},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := c.CreateTube(tt.path, 0.02, tt.water)
			if !ok {
				t.Fatal("CreateTube() ok = false")
			}
			if m.VertexCount() != tt.vertices {
				t.Errorf("VertexCount() = %d, want %d", m.VertexCount(), tt.vertices)
			}
			if m.TriangleCount() != tt.triangles {
				t.Errorf("TriangleCount() = %d, want %d", m.TriangleCount(), tt.triangles)
			}
		})
	}
}

func TestCreateTubeOutwardShell(t *testing.T) {
	c := tube.NewDefault()
	m, _ := c.CreateTube([]mgl64.Vec3{{0, 0, 0}, {0, 0, 1}}, 0.04, false)
	for i := 0; i < m.VertexCount(); i++ {
		v := m.Vertex(i)
		radial := mgl64.Vec3{v[0], v[1], 0}
		if math.Abs(radial.Len()-0.02) > 1e-6 {
			t.Errorf("vertex %d radius = %v, want 0.02", i, radial.Len())
		}
		if m.Normal(i).Dot(radial) <= 0 {
			t.Errorf("normal %d points inward", i)
		}
	}
	// The first triangle's winding agrees with its vertex normals.
	tri := m.Triangle(0)
	a, b, cc := m.Vertex(int(tri[0])), m.Vertex(int(tri[1])), m.Vertex(int(tri[2]))
	face := b.Sub(a).Cross(cc.Sub(a))
	if face.Dot(m.Normal(int(tri[0]))) <= 0 {
		t.Error("outer shell is wound inward")
	}
}

func TestCreateTubeMiter(t *testing.T) {
	c := tube.NewDefault()
	n := c.Config().CircleSegments
	joint := mgl64.Vec3{1, 0, 0}
	m, ok := c.CreateTube([]mgl64.Vec3{{0, 0, 0}, joint, {1, 1, 0}}, 0.1, false)
	if !ok {
		t.Fatal("CreateTube() ok = false")
	}
	bisector := mgl64.Vec3{1, 1, 0}.Normalize()
	for j := 0; j < n; j++ {
		v := m.Vertex(n + j)
		if d := v.Sub(joint).Dot(bisector); math.Abs(d) > 1e-6 {
			t.Errorf("joint vertex %d is %v off the miter plane", j, d)
		}
	}
}

func TestCornerMeshEnds(t *testing.T) {
	c := tube.NewDefault()
	m, ok := c.GetDefaultMesh(tube.ElecVertical, 0.02, 0.1)
	if !ok {
		t.Fatal("GetDefaultMesh() ok = false")
	}
	n := c.Config().CircleSegments
	rings := m.VertexCount() / n
	if want := c.Config().CornerSegments + 2; rings != want {
		t.Fatalf("rings = %d, want %d", rings, want)
	}
	for j := 0; j < n; j++ {
		if x := m.Vertex(j)[0]; math.Abs(x-0.1) > 1e-6 {
			t.Errorf("first ring vertex %d has x = %v, want 0.1", j, x)
		}
		if z := m.Vertex((rings-1)*n + j)[2]; math.Abs(z-0.1) > 1e-6 {
			t.Errorf("last ring vertex %d has z = %v, want 0.1", j, z)
		}
	}
}

func TestTeeMesh(t *testing.T) {
	c := tube.NewDefault()
	n := c.Config().CircleSegments
	m, ok := c.GetDefaultMesh(tube.ConnectorT, 0.02, 0)
	if !ok {
		t.Fatal("GetDefaultMesh() ok = false")
	}
	// Three two-ring stubs, each with a disc lid.
	if want := 3 * (2*n + n + 1); m.VertexCount() != want {
		t.Errorf("VertexCount() = %d, want %d", m.VertexCount(), want)
	}
	if want := 3 * (2*n + n); m.TriangleCount() != want {
		t.Errorf("TriangleCount() = %d, want %d", m.TriangleCount(), want)
	}
	lo, hi := m.Bounds()
	if math.Abs(lo[0]+0.02) > 1e-6 || math.Abs(hi[0]-0.02) > 1e-6 || math.Abs(hi[2]-0.02) > 1e-6 {
		t.Errorf("Bounds() = %v, %v", lo, hi)
	}
}

func TestJunctionBoxMesh(t *testing.T) {
	c := tube.NewDefault()
	m := c.GetJunctionBoxMesh()
	if m.VertexCount() != 24 || m.TriangleCount() != 12 {
		t.Errorf("counts = %d vertices, %d triangles, want 24, 12", m.VertexCount(), m.TriangleCount())
	}
	if c.GetJunctionBoxMesh() != m {
		t.Error("junction box was regenerated")
	}
	lo, hi := m.Bounds()
	want := mgl64.Vec3{0.043, 0.043, 0.025}
	if hi.Sub(want).Len() > 1e-6 || lo.Add(want).Len() > 1e-6 {
		t.Errorf("Bounds() = %v, %v, want +-%v", lo, hi, want)
	}
	// Flat, outward normals.
	for i := 0; i < m.TriangleCount(); i++ {
		tri := m.Triangle(i)
		a, b, cc := m.Vertex(int(tri[0])), m.Vertex(int(tri[1])), m.Vertex(int(tri[2]))
		face := b.Sub(a).Cross(cc.Sub(a)).Normalize()
		if face.Sub(m.Normal(int(tri[0]))).Len() > 1e-6 {
			t.Errorf("triangle %d faces %v, normal %v", i, face, m.Normal(int(tri[0])))
		}
		if face.Dot(a) <= 0 {
			t.Errorf("triangle %d faces inward", i)
		}
	}
}

func TestGetMeshUnavailable(t *testing.T) {
	c := tube.NewDefault()
	p := connector(false, tube.StrongElec)
	p.NodePos = nil
	if _, ok := c.GetMesh(p, tube.ElecVertical); ok {
		t.Error("connector without node ok = true")
	}
	if _, ok := c.GetMesh(straight(mgl64.Vec3{}, mgl64.Vec3{}, 0.02, tube.StrongElec), tube.Straight); ok {
		t.Error("zero-length straight ok = true")
	}
	if _, ok := c.GetMesh(tube.Params{Diameter: 0.02}, tube.Other); ok {
		t.Error("empty route ok = true")
	}
}

func TestGetTransformStraightRoundTrip(t *testing.T) {
	c := tube.NewDefault()
	p := straight(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, 2}, 0.05, tube.StrongElec)
	m, ok := c.GetTransform(p, tube.Straight)
	if !ok {
		t.Fatal("GetTransform() ok = false")
	}
	tests := []struct{ in, want mgl64.Vec3 }{
		{mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, 0}},
		{mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, 2}},
	}
	for _, tt := range tests {
		if got := xform.Apply(m, tt.in); got.Sub(tt.want).Len() > 1e-9 {
			t.Errorf("Apply(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGetTransformOther(t *testing.T) {
	c := tube.NewDefault()
	p := tube.Params{Diameter: 0.02, Route: []curve.Curve{curve.NewLine(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0})}}
	m, ok := c.GetTransform(p, tube.Other)
	if !ok || m != mgl64.Ident4() {
		t.Errorf("GetTransform(other) = %v, %v, want identity", m, ok)
	}
}

func TestBoundBoxContainsMesh(t *testing.T) {
	arc, err := curve.NewArcThrough(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 0})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		p    tube.Params
		typ  tube.MeshType
	}{
		{"straight", straight(mgl64.Vec3{1, -2, 0.5}, mgl64.Vec3{-3, 1, 2}, 0.02, tube.StrongElec), tube.Straight},
		{"straight water", straight(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 4, 0}, 0.025, tube.HotWater), tube.Straight},
		{"elec corner", connector(false, tube.WeakElec), tube.ElecVertical},
		{"water corner", connector(false, tube.ColdWater), tube.WaterVertical},
		{"tee", connector(true, tube.StrongElec), tube.ConnectorT},
		{"arc route", tube.Params{Diameter: 0.02, Route: []curve.Curve{arc}}, tube.Other},
	}
	c := tube.NewDefault()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := c.GetMesh(tt.p, tt.typ)
			if !ok {
				t.Fatal("GetMesh() ok = false")
			}
			tr, ok := c.GetTransform(tt.p, tt.typ)
			if !ok {
				t.Fatal("GetTransform() ok = false")
			}
			box, ok := c.GetBoundBox(tt.p, tt.typ)
			if !ok {
				t.Fatal("GetBoundBox() ok = false")
			}
			for i := 0; i < m.VertexCount(); i++ {
				if v := xform.Apply(tr, m.Vertex(i)); !box.Contains(v, 0) {
					t.Fatalf("vertex %d at %v outside %v", i, v, box)
				}
			}
		})
	}
}

func TestConduitEndToEnd(t *testing.T) {
	c := tube.NewDefault()
	path := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}}

	m, ok := c.CreateTube(path, 0.02, false)
	if !ok {
		t.Fatal("CreateTube() ok = false")
	}
	if m.VertexCount() != 2*c.Config().CircleSegments {
		t.Errorf("VertexCount() = %d, want a single two-ring shell", m.VertexCount())
	}

	p := straight(path[0], path[1], 0.02, tube.StrongElec)
	if got := tube.MeshTypeFor(p); got != tube.Straight {
		t.Fatalf("MeshTypeFor() = %v, want straight", got)
	}
	box, ok := c.GetBoundBox(p, tube.Straight)
	if !ok {
		t.Fatal("GetBoundBox() ok = false")
	}
	// Exact bound of a disc of radius 0.01 swept along +X from 0 to 1: x
	// spans the path only and y, z span the radius, with no extra margin.
	want := tube.Box{0, -0.01, -0.01, 1, 0.01, 0.01}
	for i := range want {
		if math.Abs(box[i]-want[i]) > 1e-5 {
			t.Errorf("GetBoundBox()[%d] = %v, want %v", i, box[i], want[i])
		}
	}
}

func TestMeshTypeFor(t *testing.T) {
	arc, _ := curve.NewArcThrough(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 0})
	line := curve.NewLine(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0})
	tests := []struct {
		name string
		p    tube.Params
		want tube.MeshType
	}{
		{"single line", tube.Params{Route: []curve.Curve{line}}, tube.Straight},
		{"polyline", tube.Params{Route: []curve.Curve{line, curve.NewLine(line.End, mgl64.Vec3{1, 1, 0})}}, tube.Other},
		{"arc", tube.Params{Route: []curve.Curve{arc}}, tube.Other},
		{"elec corner", connector(false, tube.StrongElec), tube.ElecVertical},
		{"water corner", connector(false, tube.HotWater), tube.WaterVertical},
		{"tee", connector(true, tube.ColdWater), tube.ConnectorT},
		{"corner with arc route", withRoute(connector(false, tube.WeakElec), arc), tube.ElecVertical},
		{"tee with polyline route", withRoute(connector(true, tube.StrongElec), line, arc), tube.ConnectorT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tube.MeshTypeFor(tt.p); got != tt.want {
				t.Errorf("MeshTypeFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func withRoute(p tube.Params, route ...curve.Curve) tube.Params {
	p.Route = route
	return p
}

func TestParseRoundTrip(t *testing.T) {
	for typ := tube.Straight; typ <= tube.Other; typ++ {
		got, err := tube.ParseMeshType(typ.String())
		if err != nil || got != typ {
			t.Errorf("ParseMeshType(%q) = %v, %v", typ.String(), got, err)
		}
	}
	for k := tube.StrongElec; k <= tube.ColdWater; k++ {
		got, err := tube.ParseTubeKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseTubeKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := tube.ParseTubeKind("gas"); err == nil {
		t.Error("ParseTubeKind(gas) error = nil")
	}
}
