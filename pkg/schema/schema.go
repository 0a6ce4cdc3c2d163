// Package schema defines the Go types for test case, test suite and step
// library YAML documents and provides strict YAML parsing.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TestCaseDefinition is an authored test case: tags for selection and an
// ordered list of steps.
type TestCaseDefinition struct {
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Tags        []string   `yaml:"tags,omitempty"        json:"tags,omitempty"`
	Steps       []StepNode `yaml:"steps,omitempty"       json:"steps,omitempty"`
}

// TestSuiteDefinition groups test case references with suite-level metadata.
type TestSuiteDefinition struct {
	Name        string        `yaml:"name,omitempty"         json:"name,omitempty"`
	Description string        `yaml:"description,omitempty"  json:"description,omitempty"`
	Tags        []string      `yaml:"tags,omitempty"         json:"tags,omitempty"`
	TestCases   []TestCaseRef `yaml:"test-cases"             json:"test-cases"             jsonschema:"required"`
	PreActions  []string      `yaml:"pre-actions,omitempty"  json:"pre-actions,omitempty"`
	PostActions []string      `yaml:"post-actions,omitempty" json:"post-actions,omitempty"`
}

// StepLibrary is a named, parameterizable sequence of reusable steps.
type StepLibrary struct {
	// Name is the include key. Optional in YAML; loaders fall back to the
	// file stem.
	Name        string      `yaml:"name,omitempty"        json:"name,omitempty"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Parameters  []Parameter `yaml:"parameters,omitempty"  json:"parameters,omitempty"`
	Steps       []StepNode  `yaml:"steps"                 json:"steps"                 jsonschema:"required"`

	// Path is the file the library was loaded from. Set by loaders.
	Path string `yaml:"-" json:"-"`
}

// Parameter declares a library input. A nil Default means the parameter has
// no default and stays unresolved unless a caller supplies it.
type Parameter struct {
	Name        string  `yaml:"name"                  json:"name"                  jsonschema:"required,minLength=1"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Default     *string `yaml:"default,omitempty"     json:"default,omitempty"`
}

// Defaults returns the declared default values keyed by parameter name.
func (l *StepLibrary) Defaults() map[string]string {
	out := make(map[string]string, len(l.Parameters))
	for _, p := range l.Parameters {
		if p.Default != nil {
			out[p.Name] = *p.Default
		}
	}
	return out
}

// DocumentKind identifies which of the three document shapes a file holds.
type DocumentKind int

const (
	KindTestCase DocumentKind = iota
	KindSuite
	KindLibrary
)

func (k DocumentKind) String() string {
	switch k {
	case KindTestCase:
		return "testcase"
	case KindSuite:
		return "suite"
	case KindLibrary:
		return "library"
	default:
		return fmt.Sprintf("DocumentKind(%d)", int(k))
	}
}

// ParseDocumentKind maps a kind name ("testcase", "suite", "library") to its value.
func ParseDocumentKind(s string) (DocumentKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "testcase", "test-case", "test":
		return KindTestCase, nil
	case "suite":
		return KindSuite, nil
	case "library", "lib":
		return KindLibrary, nil
	}
	return 0, fmt.Errorf("unknown document kind %q (want testcase, suite or library)", s)
}

// DetectKind guesses the document kind from its top-level keys: a
// "test-cases" key marks a suite, "parameters" without "tags" marks a
// library, anything else is a test case.
func DetectKind(data []byte) DocumentKind {
	var top map[string]yaml.Node
	if err := yaml.Unmarshal(data, &top); err != nil {
		return KindTestCase
	}
	if _, ok := top["test-cases"]; ok {
		return KindSuite
	}
	_, hasParams := top["parameters"]
	_, hasTags := top["tags"]
	if hasParams && !hasTags {
		return KindLibrary
	}
	return KindTestCase
}

// ErrEmptyDocument is returned when a YAML document has no content.
var ErrEmptyDocument = errors.New("empty document")

// ParseTestCase decodes a test case definition. Unknown fields are
// ignored; CheckKnownFields reports them.
func ParseTestCase(data []byte) (*TestCaseDefinition, error) {
	var tc TestCaseDefinition
	if err := decodeDocument(data, &tc, false); err != nil {
		return nil, fmt.Errorf("decode test case: %w", err)
	}
	return &tc, nil
}

// ParseSuite decodes a test suite definition. Unknown fields are ignored.
func ParseSuite(data []byte) (*TestSuiteDefinition, error) {
	var s TestSuiteDefinition
	if err := decodeDocument(data, &s, false); err != nil {
		return nil, fmt.Errorf("decode test suite: %w", err)
	}
	return &s, nil
}

// ParseLibrary decodes a step library. Unknown fields are ignored.
func ParseLibrary(data []byte) (*StepLibrary, error) {
	var lib StepLibrary
	if err := decodeDocument(data, &lib, false); err != nil {
		return nil, fmt.Errorf("decode step library: %w", err)
	}
	return &lib, nil
}

// CheckKnownFields decodes data as kind rejecting fields the document type
// does not declare. Extra keys on include and conditional steps are not
// covered here; they are recorded in StepNode.Extra.
func CheckKnownFields(data []byte, kind DocumentKind) error {
	var out any
	switch kind {
	case KindTestCase:
		out = &TestCaseDefinition{}
	case KindSuite:
		out = &TestSuiteDefinition{}
	case KindLibrary:
		out = &StepLibrary{}
	default:
		return fmt.Errorf("unknown document kind %s", kind)
	}
	return decodeDocument(data, out, true)
}

// LoadLibraryFile reads a step library file and records its path. Name is
// left empty when the document does not set one; callers pick the default.
func LoadLibraryFile(path string) (*StepLibrary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read step library: %w", err)
	}
	lib, err := ParseLibrary(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	lib.Path = path
	return lib, nil
}

// Stem returns the file name without directory and YAML extension.
func Stem(path string) string {
	base := filepath.Base(path)
	for _, ext := range []string{".yaml", ".yml"} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return base
}

// IsYAMLFile reports whether path has a YAML extension.
func IsYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// decodeDocument decodes a single YAML document. strict rejects unknown fields.
func decodeDocument(data []byte, out any, strict bool) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return err
	}
	if len(root.Content) == 0 || root.Content[0].ShortTag() == "!!null" {
		return ErrEmptyDocument
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(strict)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyDocument
		}
		return err
	}
	return nil
}
