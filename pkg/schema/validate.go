package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ormasoftchile/testbook/pkg/eval"
)

// ValidationError represents a single validation error with location context.
type ValidationError struct {
	Phase    string `json:"phase"` // structural, semantic, domain
	Path     string `json:"path"`  // location (e.g., "steps[2].include")
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

// DomainContext carries what domain rules need to know beyond the document:
// the library names in scope and the environment profile.
type DomainContext struct {
	Libraries map[string]bool
	Env       map[string]string
}

// HasErrors reports whether any entry is an error rather than a warning.
func HasErrors(errs []*ValidationError) bool {
	for _, e := range errs {
		if e.Severity != "warning" {
			return true
		}
	}
	return false
}

// Validate performs the 3-phase validation pipeline on one document.
// Phase 1: Structural (YAML decode; undeclared fields are warnings)
// Phase 2: Semantic (JSON Schema validation)
// Phase 3: Domain (custom Go rules)
func Validate(data []byte, kind DocumentKind, dc DomainContext) []*ValidationError {
	var doc any
	var domainErrs []*ValidationError

	switch kind {
	case KindTestCase:
		tc, err := ParseTestCase(data)
		if err != nil {
			return []*ValidationError{structural(err)}
		}
		doc = tc
		domainErrs = ValidateTestCase(tc, dc)
	case KindSuite:
		s, err := ParseSuite(data)
		if err != nil {
			return []*ValidationError{structural(err)}
		}
		doc = s
		domainErrs = ValidateSuite(s)
	case KindLibrary:
		lib, err := ParseLibrary(data)
		if err != nil {
			return []*ValidationError{structural(err)}
		}
		doc = lib
		domainErrs = ValidateLibrary(lib, dc)
	default:
		return []*ValidationError{structural(fmt.Errorf("unknown document kind %s", kind))}
	}

	var all []*ValidationError
	if err := CheckKnownFields(data, kind); err != nil {
		w := structural(err)
		w.Severity = "warning"
		all = append(all, w)
	}
	all = append(all, validateSemantic(doc, kind)...)
	return append(all, domainErrs...)
}

func structural(err error) *ValidationError {
	return &ValidationError{Phase: "structural", Message: err.Error(), Severity: "error"}
}

func semanticError(format string, args ...any) []*ValidationError {
	return []*ValidationError{{
		Phase:    "semantic",
		Message:  fmt.Sprintf(format, args...),
		Severity: "error",
	}}
}

// validateSemantic validates the decoded document against its JSON Schema.
func validateSemantic(doc any, kind DocumentKind) []*ValidationError {
	data, err := json.Marshal(doc)
	if err != nil {
		return semanticError("marshal for schema validation: %v", err)
	}

	schemaJSON, err := GenerateJSONSchema(kind)
	if err != nil {
		return semanticError("generate schema: %v", err)
	}

	var schemaDoc any
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return semanticError("unmarshal schema: %v", err)
	}

	name := SchemaFileName(kind)
	c := sjsonschema.NewCompiler()
	if err := c.AddResource(name, schemaDoc); err != nil {
		return semanticError("add schema resource: %v", err)
	}
	sch, err := c.Compile(name)
	if err != nil {
		return semanticError("compile schema: %v", err)
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return semanticError("unmarshal document: %v", err)
	}

	if err := sch.Validate(instance); err != nil {
		ve, ok := err.(*sjsonschema.ValidationError)
		if !ok {
			return semanticError("%v", err)
		}
		var errs []*ValidationError
		for _, cause := range flattenValidationErrors(ve) {
			errs = append(errs, &ValidationError{
				Phase:    "semantic",
				Path:     strings.Join(cause.InstanceLocation, "/"),
				Message:  fmt.Sprintf("%v", cause.ErrorKind),
				Severity: "error",
			})
		}
		return errs
	}
	return nil
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

// ValidateTestCase applies domain rules to a test case.
func ValidateTestCase(tc *TestCaseDefinition, dc DomainContext) []*ValidationError {
	var errs []*ValidationError
	errs = append(errs, validateTags(tc.Tags)...)
	if len(tc.Steps) == 0 {
		errs = append(errs, domainWarning("steps", "test case has no steps"))
	}
	errs = append(errs, validateSteps(tc.Steps, "steps", nil, dc)...)
	return errs
}

// ValidateSuite applies domain rules to a suite.
func ValidateSuite(s *TestSuiteDefinition) []*ValidationError {
	var errs []*ValidationError
	errs = append(errs, validateTags(s.Tags)...)
	if len(s.TestCases) == 0 {
		errs = append(errs, domainWarning("test-cases", "suite lists no test cases"))
	}
	for i, ref := range s.TestCases {
		if ref.Invalid {
			errs = append(errs, domainError(fmt.Sprintf("test-cases[%d]", i),
				"Invalid test case reference format"))
		}
	}
	return errs
}

// ValidateLibrary applies domain rules to a step library.
func ValidateLibrary(lib *StepLibrary, dc DomainContext) []*ValidationError {
	var errs []*ValidationError

	declared := map[string]bool{}
	for i, p := range lib.Parameters {
		path := fmt.Sprintf("parameters[%d]", i)
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, domainError(path, "parameter name is empty"))
			continue
		}
		if declared[p.Name] {
			errs = append(errs, domainError(path, fmt.Sprintf("duplicate parameter %q", p.Name)))
		}
		declared[p.Name] = true
	}
	if len(lib.Steps) == 0 {
		errs = append(errs, domainWarning("steps", "library has no steps"))
	}
	errs = append(errs, validateSteps(lib.Steps, "steps", declared, dc)...)
	return errs
}

func validateTags(tags []string) []*ValidationError {
	var errs []*ValidationError
	for i, t := range tags {
		if strings.TrimSpace(t) == "" {
			errs = append(errs, domainError(fmt.Sprintf("tags[%d]", i), "tag is empty"))
		} else if strings.ContainsAny(t, ",|") {
			errs = append(errs, domainError(fmt.Sprintf("tags[%d]", i),
				fmt.Sprintf("tag %q contains a filter separator", t)))
		}
	}
	return errs
}

func validateSteps(steps []StepNode, path string, declared map[string]bool, dc DomainContext) []*ValidationError {
	var errs []*ValidationError
	for i, s := range steps {
		p := fmt.Sprintf("%s[%d]", path, i)
		for _, k := range s.Extra {
			errs = append(errs, domainWarning(p, fmt.Sprintf("unknown field %q in %s step is ignored", k, s.Kind)))
		}
		switch s.Kind {
		case KindText:
			errs = append(errs, checkPlaceholders(s.Text, p, declared, dc)...)
		case KindConditional:
			c := s.Conditional
			switch {
			case c.Step == "" && len(c.Steps) == 0:
				errs = append(errs, domainError(p, "conditional step has neither step nor steps"))
			case c.Step != "" && len(c.Steps) > 0:
				errs = append(errs, domainWarning(p, "conditional step sets both step and steps; steps is ignored"))
			}
			if !strings.HasPrefix(strings.TrimSpace(c.Condition), eval.ExprPrefix) {
				errs = append(errs, checkPlaceholders(c.Condition, p+".condition", declared, dc)...)
			}
			errs = append(errs, checkPlaceholders(c.Step, p+".step", declared, dc)...)
			errs = append(errs, validateSteps(c.Steps, p+".steps", declared, dc)...)
		case KindInclude:
			if strings.TrimSpace(s.Include.Include) == "" {
				errs = append(errs, domainError(p+".include", "include names no library"))
			} else if dc.Libraries != nil && !dc.Libraries[s.Include.Include] {
				errs = append(errs, domainWarning(p+".include",
					fmt.Sprintf("unknown step library %q", s.Include.Include)))
			}
			for k, v := range s.Include.Parameters {
				errs = append(errs, checkPlaceholders(v, p+".parameters."+k, declared, dc)...)
			}
		case KindOpaque:
			errs = append(errs, domainWarning(p, "step is not a string, conditional or include; it will be passed through as JSON"))
		}
	}
	return errs
}

func checkPlaceholders(text, path string, declared map[string]bool, dc DomainContext) []*ValidationError {
	var errs []*ValidationError
	for _, name := range eval.Placeholders(text) {
		if declared[name] {
			continue
		}
		if _, ok := dc.Env[name]; ok {
			continue
		}
		errs = append(errs, domainWarning(path,
			fmt.Sprintf("variable %q is not a declared parameter or environment variable", name)))
	}
	return errs
}

func domainError(path, msg string) *ValidationError {
	return &ValidationError{Phase: "domain", Path: path, Message: msg, Severity: "error"}
}

func domainWarning(path, msg string) *ValidationError {
	return &ValidationError{Phase: "domain", Path: path, Message: msg, Severity: "warning"}
}
