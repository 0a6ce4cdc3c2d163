package resolve

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/ormasoftchile/testbook/pkg/schema"
	"github.com/ormasoftchile/testbook/pkg/tags"
)

// InvalidReferenceMessage is recorded for suite entries that are neither a
// path string nor a mapping with a path field.
const InvalidReferenceMessage = "Invalid test case reference format"

// ResolveSuite parses data as a suite and resolves every referenced test
// case. The filter applies to the suite's own tags only; member cases are
// resolved unfiltered. Returns nil when the suite is filtered out.
func (e *Engine) ResolveSuite(name, file string, data []byte, filter tags.Filter) *TestSuite {
	def, err := schema.ParseSuite(data)
	if err != nil {
		return failedSuite(name, file, err)
	}
	return e.ResolveSuiteDefinition(name, file, def, filter)
}

// ResolveSuiteDefinition resolves an already parsed suite.
func (e *Engine) ResolveSuiteDefinition(name, file string, def *schema.TestSuiteDefinition, filter tags.Filter) *TestSuite {
	if def == nil {
		return failedSuite(name, file, errors.New("missing test suite definition"))
	}
	if !filter.Matches(def.Tags) {
		return nil
	}

	suite := &TestSuite{
		Name:         name,
		SuiteName:    def.Name,
		OriginalFile: file,
		Description:  def.Description,
		Tags:         nonNil(def.Tags),
		PreActions:   nonNil(def.PreActions),
		PostActions:  nonNil(def.PostActions),
		TestCases:    []*TestCase{},
		Errors:       []SuiteError{},
	}
	if suite.SuiteName == "" {
		suite.SuiteName = name
	}

	for _, ref := range def.TestCases {
		if ref.Invalid {
			suite.Errors = append(suite.Errors, SuiteError{
				TestCase: describeRef(ref.Raw),
				Error:    InvalidReferenceMessage,
			})
			continue
		}
		tc, err := e.loadCase(ref.Path)
		if err != nil {
			suite.Errors = append(suite.Errors, SuiteError{TestCase: ref.Path, Error: err.Error()})
			continue
		}
		if tc != nil {
			suite.TestCases = append(suite.TestCases, tc)
		}
	}

	suite.Summary = SuiteSummary{
		TotalTestCases: len(suite.TestCases),
		TotalErrors:    len(suite.Errors),
	}
	for _, tc := range suite.TestCases {
		suite.Summary.TotalSteps += tc.StepCount
	}
	return suite
}

// loadCase locates and resolves one member case with no tag filter.
func (e *Engine) loadCase(ref string) (*TestCase, error) {
	if e.loader == nil {
		return nil, errors.New("no test case loader configured")
	}
	path, err := e.loader.Locate(ref)
	if err != nil {
		return nil, notFound(ref, err)
	}
	data, err := e.loader.ReadFile(path)
	if err != nil {
		return nil, notFound(path, err)
	}
	return e.ResolveTestCase(schema.Stem(path), path, data, nil), nil
}

func notFound(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("Test case file not found: %s", path)
	}
	return err
}

func describeRef(raw any) string {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprint(raw)
	}
	return string(data)
}

func failedSuite(name, file string, err error) *TestSuite {
	return &TestSuite{
		Name:         name,
		SuiteName:    name,
		OriginalFile: file,
		Tags:         []string{},
		PreActions:   []string{},
		PostActions:  []string{},
		TestCases:    []*TestCase{},
		Errors:       []SuiteError{},
		Error:        err.Error(),
	}
}
