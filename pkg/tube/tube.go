// Package tube generates the solid geometry of concealed-work routing:
// electrical conduit, water pipe, bent corners, T-connectors and junction
// boxes. A Creator compiles path curves and a diameter into mesh buffers
// plus the placement matrix that positions them, and memoises the
// catalogue meshes that only depend on diameter and bend radius.
//
// All lengths are in meters.
package tube

import (
	"fmt"
	"math"

	"github.com/chazu/conduit/pkg/curve"
	"github.com/chazu/conduit/pkg/profile"
	"github.com/go-gl/mathgl/mgl64"
)

// MeshType selects the generator and the transform used for a request.
type MeshType int

const (
	Straight      MeshType = iota // straight run, unit mesh scaled along +Z
	ElecVertical                  // electrical corner between two legs
	WaterVertical                 // water pipe corner, fixed bend radius
	ConnectorT                    // T-connector at a node
	Other                         // free-form route swept in model space
)

func (t MeshType) String() string {
	switch t {
	case Straight:
		return "straight"
	case ElecVertical:
		return "elecVertical"
	case WaterVertical:
		return "waterVertical"
	case ConnectorT:
		return "connectorT"
	case Other:
		return "other"
	default:
		return fmt.Sprintf("MeshType(%d)", int(t))
	}
}

// ParseMeshType converts a mesh type name back into a MeshType.
func ParseMeshType(s string) (MeshType, error) {
	for t := Straight; t <= Other; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("tube: unknown mesh type %q", s)
}

// mustValid panics on a value outside the closed set of mesh types.
func (t MeshType) mustValid() {
	if t < Straight || t > Other {
		panic(fmt.Sprintf("tube: invalid mesh type %d", int(t)))
	}
}

// TubeKind is the service a tube belongs to.
type TubeKind int

const (
	StrongElec TubeKind = iota // mains wiring conduit
	WeakElec                   // low voltage / data conduit
	HotWater
	ColdWater
)

func (k TubeKind) String() string {
	switch k {
	case StrongElec:
		return "strong-elec"
	case WeakElec:
		return "weak-elec"
	case HotWater:
		return "hot-water"
	case ColdWater:
		return "cold-water"
	default:
		return fmt.Sprintf("TubeKind(%d)", int(k))
	}
}

// ParseTubeKind converts a kind name back into a TubeKind.
func ParseTubeKind(s string) (TubeKind, error) {
	for k := StrongElec; k <= ColdWater; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("tube: unknown tube kind %q", s)
}

// IsWater reports whether the kind is a water pipe.
func (k TubeKind) IsWater() bool {
	return k == HotWater || k == ColdWater
}

// Params describes one tube or connector request.
type Params struct {
	ID       string
	Diameter float64
	Kind     TubeKind

	// NodePos is the junction center of a connector. SidePoints bound the
	// junction; with NodePos they give the two outgoing directions.
	NodePos    *mgl64.Vec3
	SidePoints [2]mgl64.Vec3
	HasSides   bool

	// Branch marks a node connector as a T rather than a corner.
	Branch bool
	// PathR overrides the bend radius of an electrical corner.
	PathR float64

	// Route is the centerline of a straight or free-form tube.
	Route []curve.Curve
}

// Radius returns half the diameter.
func (p Params) Radius() float64 {
	return p.Diameter / 2
}

// IsConnector reports whether the request carries the node and side
// points needed by the connector generators.
func (p Params) IsConnector() bool {
	return p.NodePos != nil && p.HasSides
}

// JunctionBoxParam is the fixed footprint of a junction box.
type JunctionBoxParam struct {
	Width     float64
	Thickness float64
}

// Config holds the geometric policy of a Creator.
type Config struct {
	// Precision is the distance below which points coincide.
	Precision float64

	// ElecPathR and WaterPathR are the default bend radii of corners.
	ElecPathR  float64
	WaterPathR float64

	// WaterTubeThickness is the wall thickness of water pipe.
	WaterTubeThickness float64

	JunctionBox JunctionBoxParam

	// CircleSegments is the number of profile points per ring.
	CircleSegments int
	// ArcStep is the largest angle (radians) swept by one piece of a
	// discretised route arc.
	ArcStep float64
	// CornerSegments is the number of pieces of a corner bend.
	CornerSegments int
	// ConnectorStubFactor scales the diameter into the stub length of a
	// T-connector.
	ConnectorStubFactor float64

	// CrossArcFactor scales the mean radius of two crossing tubes into the
	// height of each detour. CrossArcTolerance is the largest centerline
	// distance still treated as a crossing, CrossArcMinAngle the smallest
	// crossing angle (radians) handled.
	CrossArcFactor    float64
	CrossArcTolerance float64
	CrossArcMinAngle  float64
}

// DefaultConfig returns the catalogue policy.
func DefaultConfig() Config {
	return Config{
		Precision:           1e-6,
		ElecPathR:           0.1,
		WaterPathR:          0.05,
		WaterTubeThickness:  0.002,
		JunctionBox:         JunctionBoxParam{Width: 0.086, Thickness: 0.05},
		CircleSegments:      profile.DefaultSegments,
		ArcStep:             math.Pi / 12,
		CornerSegments:      8,
		ConnectorStubFactor: 1.0,
		CrossArcFactor:      1.5,
		CrossArcTolerance:   1e-3,
		CrossArcMinAngle:    math.Pi / 3,
	}
}

// Box is an axis-aligned bounding box laid out as
// [minX, minY, minZ, maxX, maxY, maxZ].
type Box [6]float64

// NewBox returns the box spanning min and max.
func NewBox(min, max mgl64.Vec3) Box {
	return Box{min[0], min[1], min[2], max[0], max[1], max[2]}
}

// Min returns the lower corner.
func (b Box) Min() mgl64.Vec3 { return mgl64.Vec3{b[0], b[1], b[2]} }

// Max returns the upper corner.
func (b Box) Max() mgl64.Vec3 { return mgl64.Vec3{b[3], b[4], b[5]} }

// Contains reports whether p lies inside the box grown by tol.
func (b Box) Contains(p mgl64.Vec3, tol float64) bool {
	for k := 0; k < 3; k++ {
		if p[k] < b[k]-tol || p[k] > b[k+3]+tol {
			return false
		}
	}
	return true
}

// Union returns the smallest box holding both boxes.
func (b Box) Union(o Box) Box {
	for k := 0; k < 3; k++ {
		b[k] = math.Min(b[k], o[k])
		b[k+3] = math.Max(b[k+3], o[k+3])
	}
	return b
}

// Pad grows the box by d on every side.
func (b Box) Pad(d float64) Box {
	for k := 0; k < 3; k++ {
		b[k] -= d
		b[k+3] += d
	}
	return b
}
