package resolve

import "github.com/ormasoftchile/testbook/pkg/schema"

// TestCase is a resolved test case: a flat, fully substituted instruction
// list plus the metadata it was resolved from. A TestCase with Error set
// failed to load or expand; its Steps are empty.
type TestCase struct {
	Name         string            `json:"name"`
	OriginalFile string            `json:"originalFile"`
	Description  string            `json:"description"`
	Tags         []string          `json:"tags"`
	Steps        []string          `json:"steps"`
	StepCount    int               `json:"stepCount"`
	RawSteps     []schema.StepNode `json:"rawSteps"`
	Error        string            `json:"error,omitempty"`
}

// SuiteError records one test case reference a suite could not resolve.
type SuiteError struct {
	TestCase string `json:"testCase"`
	Error    string `json:"error"`
}

// SuiteSummary aggregates counts over a resolved suite.
type SuiteSummary struct {
	TotalTestCases int `json:"totalTestCases"`
	TotalSteps     int `json:"totalSteps"`
	TotalErrors    int `json:"totalErrors"`
}

// TestSuite is a resolved suite. Reference failures are collected in Errors
// and never abort the suite.
type TestSuite struct {
	Name         string       `json:"name"`
	SuiteName    string       `json:"suiteName"`
	OriginalFile string       `json:"originalFile"`
	Description  string       `json:"description"`
	Tags         []string     `json:"tags"`
	PreActions   []string     `json:"preActions"`
	PostActions  []string     `json:"postActions"`
	TestCases    []*TestCase  `json:"testCases"`
	Errors       []SuiteError `json:"errors"`
	Summary      SuiteSummary `json:"summary"`
	Error        string       `json:"error,omitempty"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
