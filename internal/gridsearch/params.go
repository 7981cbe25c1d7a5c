package gridsearch

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hpckit/gpulease/internal/errors"
)

// Value is one point on a parameter's axis: either a number or a
// verbatim string. Numbers render without a fixed precision so that
// "0.1" round-trips as 0.1 and "10" as 10.
type Value struct {
	num   float64
	str   string
	isNum bool
}

// Number returns a numeric Value.
func Number(f float64) Value {
	return Value{num: f, isNum: true}
}

// Text returns a string Value.
func Text(s string) Value {
	return Value{str: s}
}

func (v Value) String() string {
	if v.isNum {
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	}
	return v.str
}

// Equal compares values by their rendered form, so a numeric 1 matches
// a constraint written as "1".
func (v Value) Equal(other Value) bool {
	return v.String() == other.String()
}

// Parameter is one axis of the grid. OnlyFor restricts when the axis is
// scanned: the parameter varies only while every named controlling
// parameter currently takes one of the listed values, and is pinned to
// its first value otherwise.
type Parameter struct {
	Name    string
	Values  []Value
	OnlyFor map[string][]Value
}

func (p *Parameter) shouldScan(current map[string]Value) bool {
	for name, allowed := range p.OnlyFor {
		cur, ok := current[name]
		if !ok {
			return false
		}
		match := false
		for _, v := range allowed {
			if cur.Equal(v) {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	return true
}

// parseValues expands a comma-separated value specification, where each
// element is a single value or a range.
func parseValues(spec string) ([]Value, error) {
	var values []Value
	for _, part := range strings.Split(spec, ",") {
		expanded, err := parseRange(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		values = append(values, expanded...)
	}
	return values, nil
}

// parseRange expands one range specification. "start:end" steps by one,
// "start:step:end" by step; the end point is inclusive up to a small
// tolerance so "0.1:0.1:0.3" yields three values despite float
// rounding. Anything without a colon is a single numeric or string
// value.
func parseRange(spec string) ([]Value, error) {
	if !strings.Contains(spec, ":") {
		if f, err := strconv.ParseFloat(spec, 64); err == nil {
			return []Value{Number(f)}, nil
		}
		return []Value{Text(spec)}, nil
	}

	parts := strings.Split(spec, ":")
	var start, step, end float64
	var err error
	switch len(parts) {
	case 2:
		step = 1
		if start, err = strconv.ParseFloat(parts[0], 64); err != nil {
			return nil, fmt.Errorf("range %q: bad start: %w", spec, err)
		}
		if end, err = strconv.ParseFloat(parts[1], 64); err != nil {
			return nil, fmt.Errorf("range %q: bad end: %w", spec, err)
		}
	case 3:
		if start, err = strconv.ParseFloat(parts[0], 64); err != nil {
			return nil, fmt.Errorf("range %q: bad start: %w", spec, err)
		}
		if step, err = strconv.ParseFloat(parts[1], 64); err != nil {
			return nil, fmt.Errorf("range %q: bad step: %w", spec, err)
		}
		if end, err = strconv.ParseFloat(parts[2], 64); err != nil {
			return nil, fmt.Errorf("range %q: bad end: %w", spec, err)
		}
	default:
		return nil, fmt.Errorf("range specification %q is not recognized", spec)
	}
	if step == 0 {
		return nil, fmt.Errorf("range %q: step must be non-zero", spec)
	}

	var values []Value
	limit := end + step/100
	if step > 0 {
		for v := start; v < limit; v += step {
			values = append(values, Number(v))
		}
	} else {
		for v := start; v > limit; v += step {
			values = append(values, Number(v))
		}
	}
	return values, nil
}

// orderByDependencies returns the parameters ordered so that every
// controlling parameter comes before the parameters it gates. A
// dependency cycle or a reference to an unknown parameter is an error.
func orderByDependencies(params map[string]*Parameter) ([]*Parameter, error) {
	placed := make(map[string]bool, len(params))
	var ordered []*Parameter

	for _, p := range params {
		for dep := range p.OnlyFor {
			if _, ok := params[dep]; !ok {
				return nil, errors.NewValidationError(
					fmt.Sprintf("parameter %s gated by unknown parameter %s", p.Name, dep)).
					WithField("only_for").WithValue(dep)
			}
		}
	}

	for len(ordered) < len(params) {
		progressed := false
		// Deterministic order keeps generated indices stable run to run.
		for _, name := range sortedNames(params) {
			if placed[name] {
				continue
			}
			p := params[name]
			ready := true
			for dep := range p.OnlyFor {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				ordered = append(ordered, p)
				placed[name] = true
				progressed = true
			}
		}
		if !progressed {
			return nil, errors.NewValidationError("parameter dependency cycle").WithField("only_for")
		}
	}
	return ordered, nil
}

func sortedNames(params map[string]*Parameter) []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
