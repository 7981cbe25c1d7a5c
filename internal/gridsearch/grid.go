package gridsearch

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hpckit/gpulease/internal/errors"
	"github.com/hpckit/gpulease/internal/logging"
)

// IndexParameter is always available in templates; it renders as a
// zero-padded running number so generated paths sort naturally.
const IndexParameter = "CFG_INDEX"

var placeholderRe = regexp.MustCompile(`\$(\w+)\$`)

// Spec is the YAML description of a grid search.
//
// Each entry under parameters is either a single specification string
// ("0.1,0.2", "1:4", "1:0.5:3") or a list whose elements are scalars or
// gated values. A gated value pins the parameters it names under
// "enables" to vary only while this value is selected:
//
//	parameters:
//	  model:
//	    - value: cnn
//	      enables: [kernel_size]
//	    - mlp
//	  kernel_size: "3,5,7"
//
// only_for expresses the same gating from the dependent side.
type Spec struct {
	// Name is the output path template for each configuration file.
	Name string `yaml:"name"`
	// Template is the inline file content template. Exactly one of
	// Template and TemplateFile must be set.
	Template string `yaml:"template"`
	// TemplateFile names a file to read the content template from.
	TemplateFile string `yaml:"template_file"`

	Parameters map[string]yaml.Node            `yaml:"parameters"`
	OnlyFor    map[string]map[string]yaml.Node `yaml:"only_for"`
}

// Search is a fully parsed grid, ready to generate.
type Search struct {
	name     string
	template string
	params   map[string]*Parameter
	log      *logging.Logger
}

// LoadSpec reads and parses a Spec from path.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grid spec: %w", err)
	}
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse grid spec %s: %w", path, err)
	}
	if spec.TemplateFile != "" {
		if spec.Template != "" {
			return nil, errors.NewValidationError("template and template_file are mutually exclusive").
				WithField("template_file")
		}
		content, err := os.ReadFile(spec.TemplateFile)
		if err != nil {
			return nil, fmt.Errorf("read template file: %w", err)
		}
		spec.Template = string(content)
	}
	return &spec, nil
}

// New builds a Search from a Spec. Parameter names are folded to upper
// case, matching the case-insensitive placeholders. A placeholder with
// no specified range is an error; a specified range no placeholder uses
// is only warned about, since templates evolve independently of sweeps.
func New(spec *Spec, log *logging.Logger) (*Search, error) {
	if log == nil {
		log = logging.NopLogger()
	}
	if spec.Name == "" {
		return nil, errors.NewValidationError("name template is required").WithField("name")
	}
	if spec.Template == "" {
		return nil, errors.NewValidationError("template is required").WithField("template")
	}

	params, err := parseSpecParameters(spec)
	if err != nil {
		return nil, err
	}

	s := &Search{
		name:     spec.Name,
		template: spec.Template,
		params:   params,
		log:      log,
	}
	if err := s.checkParameters(); err != nil {
		return nil, err
	}
	return s, nil
}

func parseSpecParameters(spec *Spec) (map[string]*Parameter, error) {
	params := make(map[string]*Parameter, len(spec.Parameters))

	// gates accumulates only_for constraints from both spellings, keyed
	// by the upper-cased dependent parameter name.
	gates := make(map[string]map[string][]Value)
	addGate := func(dependent, controller string, v Value) {
		if gates[dependent] == nil {
			gates[dependent] = make(map[string][]Value)
		}
		gates[dependent][controller] = append(gates[dependent][controller], v)
	}

	for name, node := range spec.Parameters {
		pname := strings.ToUpper(name)
		values, err := parseParameterNode(pname, node, addGate)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		if len(values) == 0 {
			return nil, errors.NewValidationError("parameter has no values").WithField(name)
		}
		params[pname] = &Parameter{Name: pname, Values: values, OnlyFor: make(map[string][]Value)}
	}

	for name, forspec := range spec.OnlyFor {
		pname := strings.ToUpper(name)
		if _, ok := params[pname]; !ok {
			return nil, errors.NewValidationError("only_for names a parameter without a range").
				WithField(name)
		}
		for controller, node := range forspec {
			values, err := scalarValues(node)
			if err != nil {
				return nil, fmt.Errorf("only_for %s.%s: %w", name, controller, err)
			}
			for _, v := range values {
				addGate(pname, strings.ToUpper(controller), v)
			}
		}
	}

	for dependent, controllers := range gates {
		p, ok := params[dependent]
		if !ok {
			return nil, errors.NewValidationError("gated parameter has no range").WithField(dependent)
		}
		for controller, values := range controllers {
			p.OnlyFor[controller] = values
		}
	}
	return params, nil
}

// parseParameterNode decodes one parameters entry: a specification
// string, or a list of scalars and gated values.
func parseParameterNode(pname string, node yaml.Node, addGate func(dependent, controller string, v Value)) ([]Value, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		var spec string
		if err := node.Decode(&spec); err != nil {
			return nil, err
		}
		return parseValues(spec)
	case yaml.SequenceNode:
		var values []Value
		for _, item := range node.Content {
			if item.Kind == yaml.MappingNode {
				var gated struct {
					Value   string   `yaml:"value"`
					Enables []string `yaml:"enables"`
				}
				if err := item.Decode(&gated); err != nil {
					return nil, err
				}
				v := scalarValue(gated.Value)
				values = append(values, v)
				for _, dep := range gated.Enables {
					addGate(strings.ToUpper(dep), pname, v)
				}
				continue
			}
			var spec string
			if err := item.Decode(&spec); err != nil {
				return nil, err
			}
			expanded, err := parseValues(spec)
			if err != nil {
				return nil, err
			}
			values = append(values, expanded...)
		}
		return values, nil
	default:
		return nil, fmt.Errorf("unsupported parameter specification")
	}
}

func scalarValues(node yaml.Node) ([]Value, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return nil, err
		}
		return []Value{scalarValue(s)}, nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return nil, err
		}
		values := make([]Value, 0, len(items))
		for _, s := range items {
			values = append(values, scalarValue(s))
		}
		return values, nil
	default:
		return nil, fmt.Errorf("expected a value or list of values")
	}
}

func scalarValue(s string) Value {
	vals, err := parseRange(s)
	if err == nil && len(vals) == 1 {
		return vals[0]
	}
	return Text(s)
}

// usedParameters collects placeholder names from the content and name
// templates, upper-cased.
func (s *Search) usedParameters() map[string]bool {
	used := make(map[string]bool)
	for _, m := range placeholderRe.FindAllStringSubmatch(s.template+" "+s.name, -1) {
		used[strings.ToUpper(m[1])] = true
	}
	return used
}

func (s *Search) checkParameters() error {
	used := s.usedParameters()
	for name := range used {
		if name == IndexParameter {
			continue
		}
		if _, ok := s.params[name]; !ok {
			return errors.NewValidationError("placeholder has no range specification").
				WithField(name)
		}
	}
	for name := range s.params {
		if !used[name] {
			s.log.Warn("parameter specified but not used in template", "parameter", name)
		}
	}
	return nil
}

// instantiate substitutes every parameter value into template. The
// replacement is literal: value text containing $ or regex
// metacharacters passes through untouched.
func instantiate(template string, values map[string]string) string {
	out := template
	for name, val := range values {
		re := regexp.MustCompile(`(?i)\$` + regexp.QuoteMeta(name) + `\$`)
		out = re.ReplaceAllLiteralString(out, val)
	}
	return out
}

// Generate walks the grid and writes one file per configuration, plus a
// YAML sidecar with the chosen values next to each. It returns the
// number of configurations written.
func (s *Search) Generate() (int, error) {
	ordered, err := orderByDependencies(s.params)
	if err != nil {
		return 0, err
	}

	count := 0
	err = s.generate(ordered, make(map[string]Value), func(point map[string]Value) error {
		count++

		rendered := make(map[string]string, len(point)+1)
		for name, v := range point {
			rendered[name] = v.String()
		}
		rendered[IndexParameter] = fmt.Sprintf("%05d", count)

		name := instantiate(s.name, rendered)
		data := instantiate(s.template, rendered)

		if dir := filepath.Dir(name); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
		}
		if err := os.WriteFile(name, []byte(data), 0o644); err != nil {
			return fmt.Errorf("write configuration: %w", err)
		}

		sidecar := strings.TrimSuffix(name, filepath.Ext(name)) + ".yaml"
		meta, err := yaml.Marshal(rendered)
		if err != nil {
			return fmt.Errorf("marshal sidecar: %w", err)
		}
		if err := os.WriteFile(sidecar, meta, 0o644); err != nil {
			return fmt.Errorf("write sidecar: %w", err)
		}

		s.log.Debug("wrote configuration", "path", name)
		return nil
	})
	if err != nil {
		return count, err
	}
	s.log.Info("grid generated", "configurations", count)
	return count, nil
}

// generate recurses over the remaining axes in dependency order. A
// parameter outside its gate contributes only its first value, so gated
// axes do not multiply the grid where they are inactive.
func (s *Search) generate(rest []*Parameter, current map[string]Value, emit func(map[string]Value) error) error {
	if len(rest) == 0 {
		point := make(map[string]Value, len(current))
		for name, v := range current {
			point[name] = v
		}
		return emit(point)
	}

	p := rest[0]
	values := p.Values
	if !p.shouldScan(current) {
		values = p.Values[:1]
	}
	for _, v := range values {
		current[p.Name] = v
		if err := s.generate(rest[1:], current, emit); err != nil {
			return err
		}
	}
	delete(current, p.Name)
	return nil
}
