package tube

import (
	"math"

	"github.com/chazu/conduit/pkg/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

// cornerMesh builds a bend in its authoring frame: the node is the origin,
// the first leg lies on +X and the second on +Z. The centerline enters along
// -X at (pathR, 0, 0), turns around (pathR, 0, pathR) and leaves along +Z at
// (0, 0, pathR). The bend is a segmented elbow: its polyline circumscribes
// the quarter circle, so the first and last pieces are tangent to the legs
// and every interior joint is a miter, see CreateTube.
//
// A bend radius at or below Precision gives a sharp elbow with legs one
// diameter long, mitered at the node.
func (c *Creator) cornerMesh(diameter, pathR float64, water bool) (*mesh.MeshDefinition, bool) {
	return c.CreateTube(cornerPath(diameter, pathR, c.cfg.CornerSegments, c.cfg.Precision), diameter, water)
}

func cornerPath(diameter, pathR float64, segments int, precision float64) []mgl64.Vec3 {
	if pathR <= precision {
		return []mgl64.Vec3{{diameter, 0, 0}, {0, 0, 0}, {0, 0, diameter}}
	}
	if segments < 1 {
		segments = 1
	}
	center := mgl64.Vec3{pathR, 0, pathR}
	at := func(a, rho float64) mgl64.Vec3 {
		return center.Add(mgl64.Vec3{-math.Sin(a), 0, -math.Cos(a)}.Mul(rho))
	}

	step := math.Pi / 2 / float64(segments)
	rho := pathR / math.Cos(step/2)
	pts := make([]mgl64.Vec3, 0, segments+2)
	pts = append(pts, at(0, pathR))
	for i := 0; i < segments; i++ {
		pts = append(pts, at((float64(i)+0.5)*step, rho))
	}
	return append(pts, at(math.Pi/2, pathR))
}
