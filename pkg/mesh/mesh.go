// Package mesh holds the renderable triangle buffer produced by the tube
// generators and the low-level helpers that build and combine them.
//
// A MeshDefinition owns its arrays outright. Cached definitions are shared
// between many placements, so the buffers are only reachable through
// accessors that return copies.
package mesh

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrInconsistentBuffers is returned when the attribute arrays disagree
	// on the vertex count or are not a whole number of elements.
	ErrInconsistentBuffers = errors.New("mesh: inconsistent buffer lengths")

	// ErrIndexOutOfRange is returned when a face references a missing vertex.
	ErrIndexOutOfRange = errors.New("mesh: face index out of range")

	// ErrDegenerateTriangle is returned when a triangle repeats an index.
	ErrDegenerateTriangle = errors.New("mesh: triangle repeats a vertex index")
)

// Buffers are the raw, not yet validated attribute arrays of a mesh.
// Positions and normals have 3 floats per vertex, UVs 2 floats per vertex,
// Indices 3 entries per triangle.
type Buffers struct {
	Positions []float32
	Normals   []float32
	UVs       []float32
	Indices   []uint32
}

// MeshDefinition is a triangle list with per-vertex position, normal and
// texture coordinate.
type MeshDefinition struct {
	positions []float32
	normals   []float32
	uvs       []float32
	indices   []uint32
}

// BufferToMeshDef packs b into a MeshDefinition. The slices in b are taken
// over by the result; callers must not keep writing to them.
func BufferToMeshDef(b Buffers) (*MeshDefinition, error) {
	if len(b.Positions)%3 != 0 {
		return nil, fmt.Errorf("%w: %d position floats", ErrInconsistentBuffers, len(b.Positions))
	}
	vc := len(b.Positions) / 3
	if len(b.Normals) != len(b.Positions) {
		return nil, fmt.Errorf("%w: %d normal floats for %d vertices", ErrInconsistentBuffers, len(b.Normals), vc)
	}
	if len(b.UVs) != vc*2 {
		return nil, fmt.Errorf("%w: %d uv floats for %d vertices", ErrInconsistentBuffers, len(b.UVs), vc)
	}
	if len(b.Indices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d indices", ErrInconsistentBuffers, len(b.Indices))
	}
	for i := 0; i < len(b.Indices); i += 3 {
		a, c, d := b.Indices[i], b.Indices[i+1], b.Indices[i+2]
		if int(a) >= vc || int(c) >= vc || int(d) >= vc {
			return nil, fmt.Errorf("%w: triangle %d (%d,%d,%d) with %d vertices", ErrIndexOutOfRange, i/3, a, c, d, vc)
		}
		if a == c || c == d || a == d {
			return nil, fmt.Errorf("%w: triangle %d (%d,%d,%d)", ErrDegenerateTriangle, i/3, a, c, d)
		}
	}
	return &MeshDefinition{
		positions: b.Positions,
		normals:   b.Normals,
		uvs:       b.UVs,
		indices:   b.Indices,
	}, nil
}

// MustBufferToMeshDef is like BufferToMeshDef but panics on error. It is
// meant for generators whose buffer sizes are computed up front.
func MustBufferToMeshDef(b Buffers) *MeshDefinition {
	m, err := BufferToMeshDef(b)
	if err != nil {
		panic(err)
	}
	return m
}

// CombineMesh returns a new mesh holding a's vertices followed by b's. The
// indices of b are shifted by a's vertex count. Coincident vertices are not
// welded. A nil operand behaves like an empty mesh.
func CombineMesh(a, b *MeshDefinition) *MeshDefinition {
	if a == nil {
		a = &MeshDefinition{}
	}
	if b == nil {
		b = &MeshDefinition{}
	}
	offset := uint32(a.VertexCount())

	out := &MeshDefinition{
		positions: make([]float32, 0, len(a.positions)+len(b.positions)),
		normals:   make([]float32, 0, len(a.normals)+len(b.normals)),
		uvs:       make([]float32, 0, len(a.uvs)+len(b.uvs)),
		indices:   make([]uint32, 0, len(a.indices)+len(b.indices)),
	}
	out.positions = append(append(out.positions, a.positions...), b.positions...)
	out.normals = append(append(out.normals, a.normals...), b.normals...)
	out.uvs = append(append(out.uvs, a.uvs...), b.uvs...)
	out.indices = append(out.indices, a.indices...)
	for _, idx := range b.indices {
		out.indices = append(out.indices, idx+offset)
	}
	return out
}

// VertexCount returns the number of vertices.
func (m *MeshDefinition) VertexCount() int {
	return len(m.positions) / 3
}

// IndexCount returns the number of face indices.
func (m *MeshDefinition) IndexCount() int {
	return len(m.indices)
}

// TriangleCount returns the number of triangles.
func (m *MeshDefinition) TriangleCount() int {
	return len(m.indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *MeshDefinition) IsEmpty() bool {
	return len(m.positions) == 0
}

// Positions returns a copy of the position buffer.
func (m *MeshDefinition) Positions() []float32 { return slices.Clone(m.positions) }

// Normals returns a copy of the normal buffer.
func (m *MeshDefinition) Normals() []float32 { return slices.Clone(m.normals) }

// UVs returns a copy of the texture coordinate buffer.
func (m *MeshDefinition) UVs() []float32 { return slices.Clone(m.uvs) }

// Indices returns a copy of the face index buffer.
func (m *MeshDefinition) Indices() []uint32 { return slices.Clone(m.indices) }

// Vertex returns the position of vertex i.
func (m *MeshDefinition) Vertex(i int) mgl64.Vec3 {
	return mgl64.Vec3{
		float64(m.positions[i*3]),
		float64(m.positions[i*3+1]),
		float64(m.positions[i*3+2]),
	}
}

// Normal returns the normal of vertex i.
func (m *MeshDefinition) Normal(i int) mgl64.Vec3 {
	return mgl64.Vec3{
		float64(m.normals[i*3]),
		float64(m.normals[i*3+1]),
		float64(m.normals[i*3+2]),
	}
}

// Triangle returns the three vertex indices of triangle i.
func (m *MeshDefinition) Triangle(i int) [3]uint32 {
	return [3]uint32{m.indices[i*3], m.indices[i*3+1], m.indices[i*3+2]}
}

// Bounds returns the axis-aligned bounds of the vertex positions in the
// mesh's own frame. An empty mesh reports zero vectors.
func (m *MeshDefinition) Bounds() (min, max mgl64.Vec3) {
	if m.IsEmpty() {
		return min, max
	}
	min = m.Vertex(0)
	max = min
	for i := 1; i < m.VertexCount(); i++ {
		v := m.Vertex(i)
		for k := 0; k < 3; k++ {
			if v[k] < min[k] {
				min[k] = v[k]
			}
			if v[k] > max[k] {
				max[k] = v[k]
			}
		}
	}
	return min, max
}

// Equal reports whether both meshes hold identical buffers.
func (m *MeshDefinition) Equal(o *MeshDefinition) bool {
	if m == nil || o == nil {
		return m == o
	}
	return slices.Equal(m.positions, o.positions) &&
		slices.Equal(m.normals, o.normals) &&
		slices.Equal(m.uvs, o.uvs) &&
		slices.Equal(m.indices, o.indices)
}

// jsonMesh is the wire shape sent to the renderer.
type jsonMesh struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	UVs      []float32 `json:"uvs"`
	Indices  []uint32  `json:"indices"`
}

// MarshalJSON encodes the buffers as flat arrays.
func (m *MeshDefinition) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonMesh{
		Vertices: m.positions,
		Normals:  m.normals,
		UVs:      m.uvs,
		Indices:  m.indices,
	})
}
