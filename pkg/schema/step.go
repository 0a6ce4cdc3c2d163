package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// StepKind discriminates the StepNode variants.
type StepKind int

const (
	// KindText is a plain instruction string.
	KindText StepKind = iota
	// KindConditional guards one step or a nested step list with a condition.
	KindConditional
	// KindInclude expands a step library in place.
	KindInclude
	// KindOpaque is any other structured value. It is carried through as its
	// canonical JSON text rather than rejected.
	KindOpaque
)

func (k StepKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindConditional:
		return "conditional"
	case KindInclude:
		return "include"
	case KindOpaque:
		return "opaque"
	default:
		return fmt.Sprintf("StepKind(%d)", int(k))
	}
}

// StepNode is one entry of a steps list. Exactly the field matching Kind is set.
type StepNode struct {
	Kind        StepKind
	Text        string
	Conditional *ConditionalStep
	Include     *IncludeStep
	Opaque      any

	// Extra lists keys of an include or conditional mapping that the step
	// type does not declare. They are ignored during resolution.
	Extra []string
}

// ConditionalStep includes Step, or else Steps, when Condition holds.
type ConditionalStep struct {
	Condition string     `yaml:"condition"       json:"condition"`
	Step      string     `yaml:"step,omitempty"  json:"step,omitempty"`
	Steps     []StepNode `yaml:"steps,omitempty" json:"steps,omitempty"`
}

// IncludeStep references a step library by name. Parameters given here
// override inherited and default values.
type IncludeStep struct {
	Include    string            `yaml:"include"              json:"include"`
	Parameters map[string]string `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// TextNode returns a text step.
func TextNode(s string) StepNode { return StepNode{Kind: KindText, Text: s} }

// ConditionalNode returns a conditional step.
func ConditionalNode(c ConditionalStep) StepNode {
	return StepNode{Kind: KindConditional, Conditional: &c}
}

// IncludeNode returns an include step.
func IncludeNode(library string, params map[string]string) StepNode {
	return StepNode{Kind: KindInclude, Include: &IncludeStep{Include: library, Parameters: params}}
}

// OpaqueNode returns an opaque step carrying v.
func OpaqueNode(v any) StepNode { return StepNode{Kind: KindOpaque, Opaque: v} }

var (
	conditionalKeys = map[string]bool{"condition": true, "step": true, "steps": true}
	includeKeys     = map[string]bool{"include": true, "parameters": true}
)

// UnmarshalYAML decides the variant from the node shape: string scalars are
// text, mappings with "include" or "condition" are include/conditional
// steps, and everything else is opaque. "include" wins when both keys are
// present.
func (s *StepNode) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.AliasNode && value.Alias != nil {
		value = value.Alias
	}

	switch {
	case value.Kind == yaml.ScalarNode && value.ShortTag() == "!!str":
		*s = TextNode(value.Value)
		return nil

	case value.Kind == yaml.MappingNode && hasKey(value, "include"):
		var inc IncludeStep
		if err := value.Decode(&inc); err != nil {
			return fmt.Errorf("include step: %w", err)
		}
		*s = StepNode{Kind: KindInclude, Include: &inc, Extra: extraKeys(value, includeKeys)}
		return nil

	case value.Kind == yaml.MappingNode && hasKey(value, "condition"):
		var c ConditionalStep
		if err := value.Decode(&c); err != nil {
			return fmt.Errorf("conditional step: %w", err)
		}
		*s = StepNode{Kind: KindConditional, Conditional: &c, Extra: extraKeys(value, conditionalKeys)}
		return nil
	}

	var v any
	if err := value.Decode(&v); err != nil {
		return fmt.Errorf("step: %w", err)
	}
	*s = OpaqueNode(v)
	return nil
}

// MarshalYAML writes the node back in its authored shape.
func (s StepNode) MarshalYAML() (any, error) {
	return s.value(), nil
}

// MarshalJSON writes the node in its authored shape.
func (s StepNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.value())
}

func (s StepNode) value() any {
	switch s.Kind {
	case KindText:
		return s.Text
	case KindConditional:
		return s.Conditional
	case KindInclude:
		return s.Include
	case KindOpaque:
		return s.Opaque
	}
	return nil
}

// Canonical renders an opaque payload as stable text (JSON with sorted keys).
func (s StepNode) Canonical() string {
	data, err := json.Marshal(s.Opaque)
	if err != nil {
		return fmt.Sprint(s.Opaque)
	}
	return string(data)
}

// JSONSchema describes the step variants for schema generation.
func (StepNode) JSONSchema() *jsonschema.Schema {
	stepRef := &jsonschema.Schema{Ref: "#/$defs/StepNode"}

	cond := jsonschema.NewProperties()
	cond.Set("condition", &jsonschema.Schema{Type: "string"})
	cond.Set("step", &jsonschema.Schema{Type: "string"})
	cond.Set("steps", &jsonschema.Schema{Type: "array", Items: stepRef})

	params := &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: &jsonschema.Schema{Type: "string"},
	}
	inc := jsonschema.NewProperties()
	inc.Set("include", &jsonschema.Schema{Type: "string", MinLength: ptr(uint64(1))})
	inc.Set("parameters", params)

	return &jsonschema.Schema{
		Description: "A text step, a conditional step, an include step, or any other value carried through verbatim.",
		AnyOf: []*jsonschema.Schema{
			{Type: "string"},
			{
				Type:                 "object",
				Properties:           cond,
				Required:             []string{"condition"},
				AdditionalProperties: jsonschema.FalseSchema,
			},
			{
				Type:                 "object",
				Properties:           inc,
				Required:             []string{"include"},
				AdditionalProperties: jsonschema.FalseSchema,
			},
			{
				Type: "object",
				Not: &jsonschema.Schema{AnyOf: []*jsonschema.Schema{
					{Required: []string{"include"}},
					{Required: []string{"condition"}},
				}},
			},
			{Type: "array"},
			{Type: "number"},
			{Type: "boolean"},
			{Type: "null"},
		},
	}
}

// TestCaseRef is one entry of a suite's test-cases list: a bare path or a
// mapping with a path field. Any other shape is kept with Invalid set so the
// suite resolver can report it without aborting.
type TestCaseRef struct {
	Path    string
	Invalid bool
	Raw     any
}

// UnmarshalYAML never fails; malformed references are flagged instead.
func (r *TestCaseRef) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	_ = value.Decode(&raw)
	*r = TestCaseRef{Raw: raw}

	switch v := raw.(type) {
	case string:
		r.Path = v
	case map[string]any:
		if p, ok := v["path"].(string); ok && p != "" {
			r.Path = p
		}
	}
	r.Invalid = r.Path == ""
	return nil
}

// MarshalJSON writes the reference as it was authored.
func (r TestCaseRef) MarshalJSON() ([]byte, error) {
	if r.Invalid {
		return json.Marshal(r.Raw)
	}
	return json.Marshal(r.Path)
}

// JSONSchema accepts a path string or an object with a path field.
func (TestCaseRef) JSONSchema() *jsonschema.Schema {
	props := jsonschema.NewProperties()
	props.Set("path", &jsonschema.Schema{Type: "string", MinLength: ptr(uint64(1))})
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "string", MinLength: ptr(uint64(1))},
			{Type: "object", Properties: props, Required: []string{"path"}},
		},
	}
}

func hasKey(m *yaml.Node, key string) bool {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return true
		}
	}
	return false
}

func extraKeys(m *yaml.Node, allowed map[string]bool) []string {
	var extra []string
	for i := 0; i+1 < len(m.Content); i += 2 {
		if k := m.Content[i].Value; !allowed[k] {
			extra = append(extra, k)
		}
	}
	return extra
}

func ptr[T any](v T) *T { return &v }
