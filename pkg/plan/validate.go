package plan

import (
	"fmt"
	"math"

	"github.com/chazu/conduit/pkg/curve"
)

// ValidationSeverity indicates whether a finding blocks assembly or is
// merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks assembly
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Entry    string             // entry name, empty for plan-level findings
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Entry, e.Message)
}

// jointTolerance is the largest gap allowed between consecutive curves of
// a route.
const jointTolerance = 1e-6

// Validate checks the plan and returns every finding. An empty slice means
// the plan is valid. It never mutates the plan.
func Validate(p *Plan) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateNames(p)...)
	errs = append(errs, validateTubes(p)...)
	errs = append(errs, validateJunctionBoxes(p)...)
	errs = append(errs, validateGroups(p)...)
	return errs
}

// HasErrors reports whether any finding is an error.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// validateNames checks that names are unique.
func validateNames(p *Plan) []ValidationError {
	var errs []ValidationError
	count := make(map[string]int)
	for _, e := range p.Entries {
		count[e.Name]++
	}
	for _, e := range p.Entries {
		if n := count[e.Name]; n > 1 {
			errs = append(errs, ValidationError{
				Entry:    e.Name,
				Message:  fmt.Sprintf("duplicate name assigned to %d entries", n),
				Severity: SeverityError,
			})
			count[e.Name] = 0
		}
	}
	return errs
}

// validateTubes checks the geometry of tube and connector requests.
func validateTubes(p *Plan) []ValidationError {
	var errs []ValidationError
	bad := func(e *Entry, sev ValidationSeverity, format string, args ...any) {
		errs = append(errs, ValidationError{Entry: e.Name, Message: fmt.Sprintf(format, args...), Severity: sev})
	}

	for _, e := range p.Tubes() {
		t := e.Tube
		if !(t.Diameter > 0) || math.IsInf(t.Diameter, 1) {
			bad(e, SeverityError, "diameter must be positive and finite, got %v", t.Diameter)
		}

		switch e.Kind {
		case KindTube:
			if len(t.Route) == 0 {
				bad(e, SeverityError, "route is empty")
				continue
			}
			var length float64
			for i, c := range t.Route {
				length += c.Length()
				if i > 0 {
					if gap := t.Route[i-1].EndPoint().Sub(c.StartPoint()).Len(); gap > jointTolerance {
						bad(e, SeverityWarning, "route has a gap of %.6f after curve %d", gap, i-1)
					}
				}
			}
			if length == 0 {
				bad(e, SeverityError, "route has zero length")
			}
			if curve.HasArc(t.Route) && t.Kind.IsWater() {
				bad(e, SeverityWarning, "water pipe with bent route is swept as one piece")
			}

		case KindConnector:
			if t.NodePos == nil || !t.HasSides {
				bad(e, SeverityError, "connector needs a node and two side points")
				continue
			}
			for i, s := range t.SidePoints {
				if s.Sub(*t.NodePos).Len() == 0 {
					bad(e, SeverityError, "side point %d coincides with the node", i+1)
				}
			}
			if t.PathR < 0 || math.IsNaN(t.PathR) || math.IsInf(t.PathR, 0) {
				bad(e, SeverityError, "bend radius must be zero or positive and finite, got %v", t.PathR)
			}
		}
	}
	return errs
}

// validateJunctionBoxes checks box placement and host references.
func validateJunctionBoxes(p *Plan) []ValidationError {
	var errs []ValidationError
	for _, e := range p.JunctionBoxes() {
		if e.Facing.Len() == 0 {
			errs = append(errs, ValidationError{
				Entry:    e.Name,
				Message:  "facing is zero; the box keeps its authored orientation",
				Severity: SeverityWarning,
			})
		}
		if e.Host == "" {
			continue
		}
		host := p.Lookup(e.Host)
		switch {
		case host == nil:
			errs = append(errs, ValidationError{
				Entry:    e.Name,
				Message:  fmt.Sprintf("host %q does not exist", e.Host),
				Severity: SeverityError,
			})
		case host.Kind == KindJunctionBox:
			errs = append(errs, ValidationError{
				Entry:    e.Name,
				Message:  fmt.Sprintf("host %q is a junction box", e.Host),
				Severity: SeverityError,
			})
		case host.Tube.Kind.IsWater():
			errs = append(errs, ValidationError{
				Entry:    e.Name,
				Message:  fmt.Sprintf("host %q is a %s pipe; junction boxes sit on conduit", e.Host, host.Tube.Kind),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateGroups checks that every group reference resolves.
func validateGroups(p *Plan) []ValidationError {
	var errs []ValidationError
	for _, e := range p.Entries {
		if e.Group == "" {
			continue
		}
		g, ok := p.Groups[e.Group]
		if !ok {
			errs = append(errs, ValidationError{
				Entry:    e.Name,
				Message:  fmt.Sprintf("group %q does not exist", e.Group),
				Severity: SeverityError,
			})
			continue
		}
		if g.Frame.Det() == 0 {
			errs = append(errs, ValidationError{
				Entry:    e.Name,
				Message:  fmt.Sprintf("group %q has a singular frame", e.Group),
				Severity: SeverityError,
			})
		}
	}
	return errs
}
