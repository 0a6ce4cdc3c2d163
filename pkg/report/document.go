// Package report assembles the document a resolve run emits and renders it
// as JSON or as a terminal listing.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ormasoftchile/testbook/pkg/resolve"
	"github.com/ormasoftchile/testbook/pkg/tags"
)

// Document is one resolve invocation's output.
type Document struct {
	Environment string               `json:"environment"`
	TagFilter   string               `json:"tagFilter"`
	EnvVars     map[string]string    `json:"envVars"`
	Libraries   []string             `json:"libraries"`
	TestCases   []*resolve.TestCase  `json:"testCases,omitempty"`
	TestSuites  []*resolve.TestSuite `json:"testSuites,omitempty"`
	Summary     Summary              `json:"summary"`
}

// Summary counts across standalone cases and suite members.
type Summary struct {
	TotalTestCases int `json:"totalTestCases"`
	TotalSteps     int `json:"totalSteps"`
	TotalErrors    int `json:"totalErrors"`
	FilteredOut    int `json:"filteredOut"`
}

// New starts a document. envVars should already be redacted.
func New(environment string, filter tags.Filter, envVars map[string]string, libraries []string) *Document {
	if envVars == nil {
		envVars = map[string]string{}
	}
	if libraries == nil {
		libraries = []string{}
	}
	return &Document{
		Environment: environment,
		TagFilter:   filter.String(),
		EnvVars:     envVars,
		Libraries:   libraries,
	}
}

// AddTestCase records a resolved case. A nil case counts as filtered out.
func (d *Document) AddTestCase(tc *resolve.TestCase) {
	if tc == nil {
		d.Summary.FilteredOut++
		return
	}
	d.TestCases = append(d.TestCases, tc)
	d.countCase(tc)
}

// AddSuite records a resolved suite. A nil suite counts as filtered out.
func (d *Document) AddSuite(s *resolve.TestSuite) {
	if s == nil {
		d.Summary.FilteredOut++
		return
	}
	d.TestSuites = append(d.TestSuites, s)
	if s.Error != "" {
		d.Summary.TotalErrors++
	}
	d.Summary.TotalErrors += len(s.Errors)
	for _, tc := range s.TestCases {
		d.countCase(tc)
	}
}

func (d *Document) countCase(tc *resolve.TestCase) {
	d.Summary.TotalTestCases++
	d.Summary.TotalSteps += tc.StepCount
	if tc.Error != "" {
		d.Summary.TotalErrors++
	}
}

// HasErrors reports whether anything in the document failed to resolve.
func (d *Document) HasErrors() bool { return d.Summary.TotalErrors > 0 }

// WriteJSON writes the document as indented JSON.
func (d *Document) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
