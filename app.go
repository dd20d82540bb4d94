package main

import (
	"log"
	"time"

	"github.com/chazu/conduit/pkg/assemble"
	"github.com/chazu/conduit/pkg/engine"
	"github.com/chazu/conduit/pkg/kernel"
	"github.com/chazu/conduit/pkg/mesh"
	"github.com/chazu/conduit/pkg/plan"
	"github.com/chazu/conduit/pkg/tube"
	"github.com/chazu/conduit/pkg/xform"
)

// kindColors assigns a display color per service.
var kindColors = map[tube.TubeKind]string{
	tube.StrongElec: "#E74C3C",
	tube.WeakElec:   "#3498DB",
	tube.HotWater:   "#E67E22",
	tube.ColdWater:  "#1ABC9C",
}

const junctionBoxColor = "#95A5A6"

// App ties the script engine to the mesh engine. One App holds one
// Creator, so catalogue meshes are reused across evaluations.
type App struct {
	engine  *engine.Engine
	creator *tube.Creator
	kernel  kernel.Kernel
}

// PartData is one placed part. Mesh indexes EvalResult.Meshes; parts of
// the same catalogue shape share an index.
type PartData struct {
	Name      string      `json:"name"`
	Group     string      `json:"group,omitempty"`
	Kind      string      `json:"kind"`
	Service   string      `json:"service,omitempty"`
	MeshType  string      `json:"meshType,omitempty"`
	Mesh      int         `json:"mesh"`
	Transform [16]float64 `json:"transform"`
	Local     [16]float64 `json:"local"`
	Box       tube.Box    `json:"box"`
	Color     string      `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of one evaluation.
type EvalResult struct {
	Meshes   []*mesh.MeshDefinition `json:"meshes"`
	Parts    []PartData             `json:"parts"`
	Bounds   *tube.Box              `json:"bounds,omitempty"`
	Errors   []EvalErrorData        `json:"errors"`
	Warnings []EvalErrorData        `json:"warnings"`
	Stats    tube.CacheStats        `json:"stats"`
}

// RefMeshData is one reference tessellation.
type RefMeshData struct {
	Name string               `json:"name"`
	Mesh *mesh.MeshDefinition `json:"mesh"`
}

// RefResult is the result of a reference build.
type RefResult struct {
	Meshes []RefMeshData   `json:"meshes"`
	Errors []EvalErrorData `json:"errors"`
}

// NewApp creates an App with its own engine, Creator and reference kernel.
// Script evaluation gives up after timeout.
func NewApp(cfg tube.Config, k kernel.Kernel, timeout time.Duration) *App {
	return &App{
		engine:  engine.NewEngineWithTimeout(timeout),
		creator: tube.New(cfg),
		kernel:  k,
	}
}

func newResult() EvalResult {
	return EvalResult{
		Meshes:   []*mesh.MeshDefinition{},
		Parts:    []PartData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
}

// load evaluates source, appending script errors to errs. It returns nil
// when there is nothing to build.
func (a *App) load(source string, errs *[]EvalErrorData) *plan.Plan {
	p, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		log.Printf("Evaluate fatal error: %v", err)
		*errs = append(*errs, EvalErrorData{Message: err.Error()})
		return nil
	}
	for _, e := range evalErrs {
		*errs = append(*errs, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
	}
	if len(evalErrs) > 0 {
		return nil
	}
	return p
}

// Evaluate runs source and returns the placed meshes plus any errors.
func (a *App) Evaluate(source string) EvalResult {
	result := newResult()

	p := a.load(source, &result.Errors)
	if p == nil {
		return result
	}

	built, err := assemble.Build(p, a.creator)
	for _, f := range built.Findings {
		d := EvalErrorData{Message: f.Error()}
		if f.Severity == plan.SeverityError {
			result.Errors = append(result.Errors, d)
		} else {
			result.Warnings = append(result.Warnings, d)
		}
	}
	if err != nil {
		log.Printf("Build error: %v", err)
		return result
	}
	for _, s := range built.Skipped {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: s.Name + ": skipped, " + s.Reason})
	}

	index := make(map[*mesh.MeshDefinition]int)
	for _, part := range built.Parts {
		i, ok := index[part.Mesh]
		if !ok {
			i = len(result.Meshes)
			index[part.Mesh] = i
			result.Meshes = append(result.Meshes, part.Mesh)
		}
		result.Parts = append(result.Parts, partData(part, i))
	}
	if b, ok := built.Bounds(); ok {
		result.Bounds = &b
	}
	result.Stats = a.creator.Stats()
	return result
}

func partData(part assemble.Part, meshIndex int) PartData {
	d := PartData{
		Name:      part.Name,
		Group:     part.Group,
		Kind:      part.Kind.String(),
		Mesh:      meshIndex,
		Transform: xform.Flatten(part.Transform),
		Local:     xform.Flatten(part.Local),
		Box:       part.Box,
		Color:     junctionBoxColor,
	}
	if part.Kind != plan.KindJunctionBox {
		d.Service = part.Tube.String()
		d.MeshType = part.Type.String()
		d.Color = kindColors[part.Tube]
	}
	return d
}

// Reference runs source and tessellates the constructive reference solids
// with the App's kernel.
func (a *App) Reference(source string) RefResult {
	result := RefResult{Meshes: []RefMeshData{}, Errors: []EvalErrorData{}}

	p := a.load(source, &result.Errors)
	if p == nil {
		return result
	}
	meshes, err := assemble.ReferenceMeshes(p, a.kernel, a.creator.Config())
	if err != nil {
		log.Printf("Reference error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: "reference build failed: " + err.Error()})
		return result
	}
	for _, m := range meshes {
		result.Meshes = append(result.Meshes, RefMeshData{Name: m.Name, Mesh: m.Mesh})
	}
	return result
}
