package tube

import (
	"math"
	"sync"

	"github.com/chazu/conduit/pkg/mesh"
	"github.com/go-gl/mathgl/mgl64"
)

// cacheKey identifies a memoised catalogue mesh. PathR is zero for types
// that do not bend; Water selects the hollow two-shell variant.
type cacheKey struct {
	typ      MeshType
	diameter float64
	pathR    float64
	water    bool
}

// CacheStats counts cache traffic since the Creator was built. Clear does
// not reset it.
type CacheStats struct {
	Hits      int
	Misses    int
	Generated int
}

// Creator is the mesh engine. One instance is held per document or
// session; it owns the cache of catalogue meshes.
//
// Meshes returned by a Creator are shared with its cache and must be
// treated as read-only. A Creator is safe for concurrent use.
type Creator struct {
	cfg Config

	mu          sync.Mutex
	meshes      map[cacheKey]*mesh.MeshDefinition
	junctionBox *mesh.MeshDefinition
	stats       CacheStats
}

// New returns a Creator using cfg.
func New(cfg Config) *Creator {
	return &Creator{
		cfg:    cfg,
		meshes: make(map[cacheKey]*mesh.MeshDefinition),
	}
}

// NewDefault returns a Creator using DefaultConfig.
func NewDefault() *Creator {
	return New(DefaultConfig())
}

// Config returns the policy the Creator was built with.
func (c *Creator) Config() Config {
	return c.cfg
}

// Clear drops every cached mesh. Later requests regenerate from scratch.
func (c *Creator) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meshes = make(map[cacheKey]*mesh.MeshDefinition)
	c.junctionBox = nil
}

// Stats returns a snapshot of the cache counters.
func (c *Creator) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// GetDefaultMesh returns the memoised catalogue mesh for t and diameter.
// pathR is only used by ElecVertical, where zero selects the configured
// ElecPathR; water corners always bend with WaterPathR. Straight and
// ConnectorT meshes are the electrical (single shell) variants.
//
// It reports false for Other, which has no catalogue mesh, for a
// non-positive or infinite diameter and for a negative or non-finite
// pathR. It panics on a value outside the MeshType set.
func (c *Creator) GetDefaultMesh(t MeshType, diameter, pathR float64) (*mesh.MeshDefinition, bool) {
	t.mustValid()
	key, ok := c.catalogueKey(t, diameter, pathR, t == WaterVertical)
	if !ok {
		return nil, false
	}
	return c.lookup(key)
}

// GetJunctionBoxMesh returns the junction box mesh, generating it on first
// use.
func (c *Creator) GetJunctionBoxMesh() *mesh.MeshDefinition {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.junctionBox != nil {
		c.stats.Hits++
		return c.junctionBox
	}
	c.stats.Misses++
	c.stats.Generated++
	c.junctionBox = junctionBoxMesh(c.cfg.JunctionBox)
	return c.junctionBox
}

// GetMesh resolves the mesh for a request. Catalogue types come from the
// cache; Other is swept from the route in model space on every call.
func (c *Creator) GetMesh(p Params, t MeshType) (*mesh.MeshDefinition, bool) {
	t.mustValid()
	switch t {
	case Other:
		return c.CreateTubeFromCurves(p.Route, p.Diameter, p.Kind.IsWater())
	case Straight:
		if _, ok := c.straightEnds(p); !ok {
			return nil, false
		}
	default:
		if !p.IsConnector() {
			return nil, false
		}
	}
	water := p.Kind.IsWater() || t == WaterVertical
	key, ok := c.catalogueKey(t, p.Diameter, p.PathR, water)
	if !ok {
		return nil, false
	}
	return c.lookup(key)
}

// catalogueKey normalises a request into its cache key.
func (c *Creator) catalogueKey(t MeshType, diameter, pathR float64, water bool) (cacheKey, bool) {
	if !(diameter > 0) || math.IsInf(diameter, 1) {
		return cacheKey{}, false
	}
	switch t {
	case Straight, ConnectorT:
		return cacheKey{typ: t, diameter: diameter, water: water}, true
	case ElecVertical:
		if pathR < 0 || math.IsNaN(pathR) || math.IsInf(pathR, 0) {
			return cacheKey{}, false
		}
		if pathR == 0 {
			pathR = c.cfg.ElecPathR
		}
		return cacheKey{typ: t, diameter: diameter, pathR: pathR, water: water}, true
	case WaterVertical:
		return cacheKey{typ: t, diameter: diameter, pathR: c.cfg.WaterPathR, water: true}, true
	case Other:
		return cacheKey{}, false
	}
	panic("unreachable")
}

// lookup returns the cached mesh for key or generates and stores it. The
// whole check-generate-insert sequence runs under the cache lock.
func (c *Creator) lookup(key cacheKey) (*mesh.MeshDefinition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.meshes[key]; ok {
		c.stats.Hits++
		return m, true
	}
	c.stats.Misses++
	m, ok := c.generate(key)
	if !ok {
		return nil, false
	}
	c.stats.Generated++
	c.meshes[key] = m
	return m, true
}

// generate builds the catalogue mesh for key in its authoring frame.
func (c *Creator) generate(key cacheKey) (*mesh.MeshDefinition, bool) {
	switch key.typ {
	case Straight:
		return c.CreateTube([]mgl64.Vec3{{0, 0, 0}, {0, 0, 1}}, key.diameter, key.water)
	case ElecVertical, WaterVertical:
		return c.cornerMesh(key.diameter, key.pathR, key.water)
	case ConnectorT:
		return c.teeMesh(key.diameter, key.water)
	}
	return nil, false
}
