package resolve

import (
	"errors"

	"github.com/ormasoftchile/testbook/pkg/schema"
	"github.com/ormasoftchile/testbook/pkg/tags"
)

// ResolveTestCase parses data as a test case and resolves it. It returns nil
// when filter rejects the case's tags. Parse and expansion failures are
// reported through TestCase.Error, never as a nil result.
func (e *Engine) ResolveTestCase(name, file string, data []byte, filter tags.Filter) *TestCase {
	def, err := schema.ParseTestCase(data)
	if err != nil {
		return FailedTestCase(name, file, err)
	}
	return e.ResolveTestCaseDefinition(name, file, def, filter)
}

// ResolveTestCaseDefinition resolves an already parsed definition.
func (e *Engine) ResolveTestCaseDefinition(name, file string, def *schema.TestCaseDefinition, filter tags.Filter) *TestCase {
	if def == nil {
		return FailedTestCase(name, file, errors.New("missing test case definition"))
	}
	if !filter.Matches(def.Tags) {
		return nil
	}

	raw := def.Steps
	if raw == nil {
		raw = []schema.StepNode{}
	}
	tc := &TestCase{
		Name:         name,
		OriginalFile: file,
		Description:  def.Description,
		Tags:         nonNil(def.Tags),
		RawSteps:     raw,
	}

	steps, err := e.expander.ExpandIncludes(raw, map[string]string{})
	if err != nil {
		tc.Steps = []string{}
		tc.Error = err.Error()
		return tc
	}
	tc.Steps = steps
	tc.StepCount = len(steps)
	return tc
}

// FailedTestCase is the result for a test case that could not be read or
// parsed: empty steps and tags, with err recorded.
func FailedTestCase(name, file string, err error) *TestCase {
	return &TestCase{
		Name:         name,
		OriginalFile: file,
		Tags:         []string{},
		Steps:        []string{},
		RawSteps:     []schema.StepNode{},
		Error:        err.Error(),
	}
}
