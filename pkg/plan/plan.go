// Package plan defines the routing plan: the named tubes, connectors and
// junction boxes of one document, in model space, together with the groups
// (walls, rooms) whose frames they are reported relative to.
//
// A Plan is built once per evaluation and not mutated afterwards.
package plan

import (
	"fmt"

	"github.com/chazu/conduit/pkg/tube"
	"github.com/go-gl/mathgl/mgl64"
)

// DefaultDiameter is the conduit diameter used when a script gives none.
const DefaultDiameter = 0.02

// EntryKind enumerates the kinds of plan entries.
type EntryKind int

const (
	KindTube        EntryKind = iota // conduit or pipe run
	KindConnector                    // corner or T at a node
	KindJunctionBox                  // fixed-size electrical box
)

func (k EntryKind) String() string {
	switch k {
	case KindTube:
		return "tube"
	case KindConnector:
		return "connector"
	case KindJunctionBox:
		return "junction-box"
	default:
		return "unknown"
	}
}

// Defaults holds plan-wide settings applied by the DSL.
type Defaults struct {
	Diameter float64       `json:"diameter"`
	Kind     tube.TubeKind `json:"kind"`
}

// Entry is one element of the plan.
type Entry struct {
	Name  string    `json:"name"`
	Kind  EntryKind `json:"kind"`
	Group string    `json:"group,omitempty"`

	// Tube carries the request of tubes and connectors.
	Tube tube.Params `json:"-"`

	// Position and Facing place a junction box. Host optionally names the
	// tube the box sits on.
	Position mgl64.Vec3 `json:"position,omitempty"`
	Facing   mgl64.Vec3 `json:"facing,omitempty"`
	Host     string     `json:"host,omitempty"`
}

// Group is a parent frame. Entries are authored in model space; their
// placements are also reported relative to their group's frame.
type Group struct {
	Name  string     `json:"name"`
	Frame mgl64.Mat4 `json:"frame"`
}

// Plan is the ordered set of entries produced by one evaluation.
type Plan struct {
	Entries   []*Entry          `json:"entries"`
	Groups    map[string]*Group `json:"groups"`
	NameIndex map[string]int    `json:"-"`
	Defaults  Defaults          `json:"defaults"`
}

// New creates an empty Plan with default settings.
func New() *Plan {
	return &Plan{
		Groups:    make(map[string]*Group),
		NameIndex: make(map[string]int),
		Defaults: Defaults{
			Diameter: DefaultDiameter,
			Kind:     tube.StrongElec,
		},
	}
}

// Add appends an entry. Unnamed entries get "<kind>-<n>". It does not check
// for duplicate names; Validate reports them.
func (p *Plan) Add(e *Entry) {
	if e.Name == "" {
		e.Name = fmt.Sprintf("%s-%d", e.Kind, len(p.Entries)+1)
	}
	if e.Tube.ID == "" {
		e.Tube.ID = e.Name
	}
	p.NameIndex[e.Name] = len(p.Entries)
	p.Entries = append(p.Entries, e)
}

// AddGroup registers a group frame, replacing any group of the same name.
func (p *Plan) AddGroup(g *Group) {
	p.Groups[g.Name] = g
}

// Lookup returns the entry with the given name, or nil.
func (p *Plan) Lookup(name string) *Entry {
	i, ok := p.NameIndex[name]
	if !ok {
		return nil
	}
	return p.Entries[i]
}

// MustLookup returns the entry with the given name, or panics.
func (p *Plan) MustLookup(name string) *Entry {
	e := p.Lookup(name)
	if e == nil {
		panic(fmt.Sprintf("plan: no entry named %q", name))
	}
	return e
}

// Tubes returns the tube and connector entries in plan order.
func (p *Plan) Tubes() []*Entry {
	var out []*Entry
	for _, e := range p.Entries {
		if e.Kind != KindJunctionBox {
			out = append(out, e)
		}
	}
	return out
}

// JunctionBoxes returns the junction box entries in plan order.
func (p *Plan) JunctionBoxes() []*Entry {
	var out []*Entry
	for _, e := range p.Entries {
		if e.Kind == KindJunctionBox {
			out = append(out, e)
		}
	}
	return out
}

// GroupFrame returns the frame of the named group. Entries without a group
// or with an unknown group use the identity.
func (p *Plan) GroupFrame(name string) mgl64.Mat4 {
	if g, ok := p.Groups[name]; ok && name != "" {
		return g.Frame
	}
	return mgl64.Ident4()
}

// Len returns the number of entries.
func (p *Plan) Len() int {
	return len(p.Entries)
}
