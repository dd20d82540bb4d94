package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/conduit/pkg/curve"
	"github.com/chazu/conduit/pkg/plan"
	"github.com/chazu/conduit/pkg/tube"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/go-gl/mathgl/mgl64"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites routing script source into something zygomys
// accepts:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords need
//     not be registered as globals.
//  2. kebab-case identifiers become snake_case (junction-box ->
//     junction_box); zygomys reads a hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals are copied untouched.
func preprocessSource(source string) string {
	b := []byte(source)
	out := make([]byte, 0, len(b)+len(b)/4)
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c == '"':
			j := quoted(b, i, '"', true)
			out = append(out, b[i:j]...)
			i = j

		case c == '`':
			j := quoted(b, i, '`', false)
			out = append(out, b[i:j]...)
			i = j

		case c == ';':
			for i < len(b) && b[i] == ';' {
				i++
			}
			out = append(out, '/', '/')
			for i < len(b) && b[i] != '\n' {
				out = append(out, b[i])
				i++
			}

		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			out = append(out, ':', '=')
			i += 2

		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j

		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++

		default:
			out = append(out, c)
			i++
		}
	}
	return string(out)
}

// quoted returns the index just past the literal opened at b[start].
func quoted(b []byte, start int, delim byte, escapes bool) int {
	i := start + 1
	for i < len(b) && b[i] != delim {
		if escapes && b[i] == '\\' && i+1 < len(b) {
			i++
		}
		i++
	}
	if i < len(b) {
		i++
	}
	return min(i, len(b))
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Go values passed through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a point or direction.
type sexpVec3 struct {
	vec mgl64.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpCurve wraps one route primitive returned by `line` or `arc`.
type sexpCurve struct {
	c curve.Curve
}

func (c *sexpCurve) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%v)", c.c)
}
func (c *sexpCurve) Type() *zygo.RegisteredType { return nil }

// sexpRef names a plan entry or group so later forms can refer to it.
type sexpRef struct {
	name string
	kind string
}

func (r *sexpRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q)", r.kind, r.name)
}
func (r *sexpRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Argument parsing
// ---------------------------------------------------------------------------

// isKW reports whether s is a preprocessed keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds a mixed positional and keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments. A
// trailing keyword without a value maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	res := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			res.positional = append(res.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			res.kw[name] = args[i+1]
			i++
		} else {
			res.kw[name] = zygo.SexpNull
		}
	}
	return res
}

// name returns the optional leading string argument.
func (a kwArgs) name() (string, error) {
	if len(a.positional) == 0 {
		return "", nil
	}
	return toString(a.positional[0])
}

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts a preprocessed keyword (:hot-water) or a plain
// string ("hot-water").
func toKeywordString(s zygo.Sexp) (string, error) {
	if name, ok := isKW(s); ok {
		return name, nil
	}
	str, err := toString(s)
	if err != nil {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return str, nil
}

// toRefName accepts an entry reference or a plain name.
func toRefName(s zygo.Sexp) (string, error) {
	if r, ok := s.(*sexpRef); ok {
		return r.name, nil
	}
	str, err := toString(s)
	if err != nil {
		return "", fmt.Errorf("expected reference or name, got %T (%s)", s, s.SexpString(nil))
	}
	return str, nil
}

func toVec3(s zygo.Sexp) (mgl64.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return mgl64.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toCurve(s zygo.Sexp) (curve.Curve, error) {
	if c, ok := s.(*sexpCurve); ok {
		return c.c, nil
	}
	return nil, fmt.Errorf("expected line or arc, got %T (%s)", s, s.SexpString(nil))
}

func toTubeKind(s zygo.Sexp) (tube.TubeKind, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, err
	}
	return tube.ParseTubeKind(name)
}

// sexpListToSlice converts a Lisp list or array to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func toVec3List(s zygo.Sexp) ([]mgl64.Vec3, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]mgl64.Vec3, 0, len(items))
	for i, it := range items {
		v, err := toVec3(it)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Shared options
// ---------------------------------------------------------------------------

// applyRunOptions reads :diameter, :kind, :group and :id, falling back to
// the plan defaults.
func applyRunOptions(p *plan.Plan, pa kwArgs, e *plan.Entry) error {
	e.Tube.Diameter = p.Defaults.Diameter
	e.Tube.Kind = p.Defaults.Kind

	if v, ok := pa.kw["diameter"]; ok {
		f, err := toFloat64(v)
		if err != nil {
			return fmt.Errorf("diameter: %w", err)
		}
		e.Tube.Diameter = f
	}
	if v, ok := pa.kw["kind"]; ok {
		k, err := toTubeKind(v)
		if err != nil {
			return fmt.Errorf("kind: %w", err)
		}
		e.Tube.Kind = k
	}
	if v, ok := pa.kw["id"]; ok {
		s, err := toString(v)
		if err != nil {
			return fmt.Errorf("id: %w", err)
		}
		e.Tube.ID = s
	}
	return applyGroup(pa, e)
}

func applyGroup(pa kwArgs, e *plan.Entry) error {
	if v, ok := pa.kw["group"]; ok {
		s, err := toRefName(v)
		if err != nil {
			return fmt.Errorf("group: %w", err)
		}
		e.Group = s
	}
	return nil
}

// applyNode reads the :at node and the :from/:to side points of a
// connector.
func applyNode(pa kwArgs, e *plan.Entry) error {
	for _, k := range []string{"at", "from", "to"} {
		if _, ok := pa.kw[k]; !ok {
			return fmt.Errorf("missing :%s", k)
		}
	}
	at, err := toVec3(pa.kw["at"])
	if err != nil {
		return fmt.Errorf("at: %w", err)
	}
	from, err := toVec3(pa.kw["from"])
	if err != nil {
		return fmt.Errorf("from: %w", err)
	}
	to, err := toVec3(pa.kw["to"])
	if err != nil {
		return fmt.Errorf("to: %w", err)
	}
	e.Tube.NodePos = &at
	e.Tube.SidePoints = [2]mgl64.Vec3{from, to}
	e.Tube.HasSides = true
	return nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtin func(p *plan.Plan, pa kwArgs) (zygo.Sexp, error)

// registerBuiltins installs the routing DSL into a zygomys environment.
// Builtins append to p while the script runs. Source must go through
// preprocessSource first so keywords are recognisable.
func registerBuiltins(env *zygo.Zlisp, p *plan.Plan) {
	table := map[string]builtin{
		"vec3":         vec3Builtin,
		"line":         lineBuiltin,
		"arc":          arcBuiltin,
		"defaults":     defaultsBuiltin,
		"group":        groupBuiltin,
		"tube":         tubeBuiltin,
		"corner":       connectorBuiltin(false),
		"tee":          connectorBuiltin(true),
		"junction_box": junctionBoxBuiltin,
	}
	for name, fn := range table {
		display := strings.ReplaceAll(name, "_", "-")
		env.AddFunction(name, func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
			res, err := fn(p, parseArgs(args))
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", display, err)
			}
			return res, nil
		})
	}
}

// (vec3 x y z)
func vec3Builtin(_ *plan.Plan, pa kwArgs) (zygo.Sexp, error) {
	if len(pa.positional) != 3 {
		return nil, fmt.Errorf("requires exactly 3 arguments, got %d", len(pa.positional))
	}
	var v mgl64.Vec3
	for i, axis := range []string{"x", "y", "z"} {
		f, err := toFloat64(pa.positional[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", axis, err)
		}
		v[i] = f
	}
	return &sexpVec3{vec: v}, nil
}

// (line (vec3 ...) (vec3 ...))
func lineBuiltin(_ *plan.Plan, pa kwArgs) (zygo.Sexp, error) {
	if len(pa.positional) != 2 {
		return nil, fmt.Errorf("requires a start and an end point, got %d arguments", len(pa.positional))
	}
	a, err := toVec3(pa.positional[0])
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	b, err := toVec3(pa.positional[1])
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	return &sexpCurve{c: curve.NewLine(a, b)}, nil
}

// (arc :center c :from a :to b)
func arcBuiltin(_ *plan.Plan, pa kwArgs) (zygo.Sexp, error) {
	var pts [3]mgl64.Vec3
	for i, k := range []string{"center", "from", "to"} {
		v, ok := pa.kw[k]
		if !ok {
			return nil, fmt.Errorf("missing :%s", k)
		}
		vec, err := toVec3(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		pts[i] = vec
	}
	a, err := curve.NewArcThrough(pts[0], pts[1], pts[2])
	if err != nil {
		return nil, err
	}
	return &sexpCurve{c: a}, nil
}

// (defaults :diameter 0.025 :kind :weak-elec)
func defaultsBuiltin(p *plan.Plan, pa kwArgs) (zygo.Sexp, error) {
	if v, ok := pa.kw["diameter"]; ok {
		f, err := toFloat64(v)
		if err != nil {
			return nil, fmt.Errorf("diameter: %w", err)
		}
		p.Defaults.Diameter = f
	}
	if v, ok := pa.kw["kind"]; ok {
		k, err := toTubeKind(v)
		if err != nil {
			return nil, fmt.Errorf("kind: %w", err)
		}
		p.Defaults.Kind = k
	}
	return zygo.SexpNull, nil
}

// (group "wall-a" :at (vec3 ...) :rotate (vec3 rx ry rz))
//
// Rotation is in degrees, applied about X, then Y, then Z.
func groupBuiltin(p *plan.Plan, pa kwArgs) (zygo.Sexp, error) {
	name, err := pa.name()
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	if name == "" {
		return nil, fmt.Errorf("requires a name")
	}
	var at, rot mgl64.Vec3
	if v, ok := pa.kw["at"]; ok {
		if at, err = toVec3(v); err != nil {
			return nil, fmt.Errorf("at: %w", err)
		}
	}
	if v, ok := pa.kw["rotate"]; ok {
		if rot, err = toVec3(v); err != nil {
			return nil, fmt.Errorf("rotate: %w", err)
		}
	}
	frame := mgl64.Translate3D(at[0], at[1], at[2]).
		Mul4(mgl64.HomogRotate3DZ(mgl64.DegToRad(rot[2]))).
		Mul4(mgl64.HomogRotate3DY(mgl64.DegToRad(rot[1]))).
		Mul4(mgl64.HomogRotate3DX(mgl64.DegToRad(rot[0])))
	p.AddGroup(&plan.Group{Name: name, Frame: frame})
	return &sexpRef{name: name, kind: "group"}, nil
}

// (tube "feed" :points (list p0 p1 p2) :diameter 0.02 :kind :strong-elec)
// (tube "feed" :route (list (line a b) (arc ...)))
func tubeBuiltin(p *plan.Plan, pa kwArgs) (zygo.Sexp, error) {
	name, err := pa.name()
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	e := &plan.Entry{Name: name, Kind: plan.KindTube}
	if err := applyRunOptions(p, pa, e); err != nil {
		return nil, err
	}

	pts, hasPts := pa.kw["points"]
	route, hasRoute := pa.kw["route"]
	switch {
	case hasPts && hasRoute:
		return nil, fmt.Errorf(":points and :route are exclusive")
	case hasPts:
		vs, err := toVec3List(pts)
		if err != nil {
			return nil, fmt.Errorf("points: %w", err)
		}
		if len(vs) < 2 {
			return nil, fmt.Errorf("points: need at least 2, got %d", len(vs))
		}
		for i := 1; i < len(vs); i++ {
			e.Tube.Route = append(e.Tube.Route, curve.NewLine(vs[i-1], vs[i]))
		}
	case hasRoute:
		items, err := sexpListToSlice(route)
		if err != nil {
			return nil, fmt.Errorf("route: %w", err)
		}
		for i, it := range items {
			c, err := toCurve(it)
			if err != nil {
				return nil, fmt.Errorf("route item %d: %w", i, err)
			}
			e.Tube.Route = append(e.Tube.Route, c)
		}
	default:
		return nil, fmt.Errorf("requires :points or :route")
	}

	p.Add(e)
	return &sexpRef{name: e.Name, kind: "tube"}, nil
}

// (corner "c1" :at node :from side1 :to side2 :path-r 0.15)
// (tee "t1" :at node :from side1 :to side2)
func connectorBuiltin(branch bool) builtin {
	return func(p *plan.Plan, pa kwArgs) (zygo.Sexp, error) {
		name, err := pa.name()
		if err != nil {
			return nil, fmt.Errorf("name: %w", err)
		}
		e := &plan.Entry{Name: name, Kind: plan.KindConnector}
		e.Tube.Branch = branch
		if err := applyRunOptions(p, pa, e); err != nil {
			return nil, err
		}
		if err := applyNode(pa, e); err != nil {
			return nil, err
		}
		if v, ok := pa.kw["path-r"]; ok {
			if branch {
				return nil, fmt.Errorf(":path-r only applies to corners")
			}
			f, err := toFloat64(v)
			if err != nil {
				return nil, fmt.Errorf("path-r: %w", err)
			}
			e.Tube.PathR = f
		}
		p.Add(e)
		return &sexpRef{name: e.Name, kind: "connector"}, nil
	}
}

// (junction-box "jb1" :at (vec3 ...) :facing (vec3 0 1 0) :on feed)
func junctionBoxBuiltin(p *plan.Plan, pa kwArgs) (zygo.Sexp, error) {
	name, err := pa.name()
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	e := &plan.Entry{Name: name, Kind: plan.KindJunctionBox, Facing: mgl64.Vec3{0, 0, 1}}

	v, ok := pa.kw["at"]
	if !ok {
		return nil, fmt.Errorf("missing :at")
	}
	if e.Position, err = toVec3(v); err != nil {
		return nil, fmt.Errorf("at: %w", err)
	}
	if v, ok := pa.kw["facing"]; ok {
		if e.Facing, err = toVec3(v); err != nil {
			return nil, fmt.Errorf("facing: %w", err)
		}
	}
	if v, ok := pa.kw["on"]; ok {
		if e.Host, err = toRefName(v); err != nil {
			return nil, fmt.Errorf("on: %w", err)
		}
	}
	if err := applyGroup(pa, e); err != nil {
		return nil, err
	}
	p.Add(e)
	return &sexpRef{name: e.Name, kind: "junction-box"}, nil
}
