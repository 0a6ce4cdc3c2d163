package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

const schemaBaseURL = "https://github.com/ormasoftchile/testbook/schemas/"

// SchemaFileName returns the resource name used for a kind's schema.
func SchemaFileName(kind DocumentKind) string {
	return kind.String() + "-v0.json"
}

// GenerateJSONSchema produces a JSON Schema Draft 2020-12 document for the
// given document kind using invopop/jsonschema.
func GenerateJSONSchema(kind DocumentKind) ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	var s *jsonschema.Schema
	switch kind {
	case KindTestCase:
		s = r.Reflect(&TestCaseDefinition{})
		s.Title = "Testbook Test Case v0"
		s.Description = "Schema for testbook test case YAML documents"
	case KindSuite:
		s = r.Reflect(&TestSuiteDefinition{})
		s.Title = "Testbook Test Suite v0"
		s.Description = "Schema for testbook test suite YAML documents"
	case KindLibrary:
		s = r.Reflect(&StepLibrary{})
		s.Title = "Testbook Step Library v0"
		s.Description = "Schema for testbook step library YAML documents"
	default:
		return nil, fmt.Errorf("no schema for %s", kind)
	}
	s.ID = jsonschema.ID(schemaBaseURL + SchemaFileName(kind))

	// Conditional steps refer back to StepNode; make sure the definition is
	// present even for kinds whose root type does not reach it directly.
	if kind != KindSuite {
		if s.Definitions == nil {
			s.Definitions = jsonschema.Definitions{}
		}
		s.Definitions["StepNode"] = StepNode{}.JSONSchema()
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}
