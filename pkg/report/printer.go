package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/ormasoftchile/testbook/pkg/resolve"
)

// Status glyphs.
const (
	GlyphOK    = "✓"
	GlyphError = "✗"
	GlyphWarn  = "!"
)

// Printer renders a Document for humans.
type Printer struct {
	out   io.Writer
	width int

	title  lipgloss.Style
	label  lipgloss.Style
	ok     lipgloss.Style
	failed lipgloss.Style
	dim    lipgloss.Style
}

// NewPrinter returns a Printer writing to out. Step text wider than width
// cells is truncated; width <= 0 disables truncation. Colors follow the
// capabilities of out.
func NewPrinter(out io.Writer, width int) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		out:    out,
		width:  width,
		title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("51")),
		label:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		ok:     r.NewStyle().Foreground(lipgloss.Color("42")),
		failed: r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		dim:    r.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// Print writes the whole document.
func (p *Printer) Print(d *Document) {
	filter := d.TagFilter
	if filter == "" {
		filter = "(none)"
	}
	env := d.Environment
	if env == "" {
		env = "(none)"
	}
	fmt.Fprintf(p.out, "%s %s  %s %s\n",
		p.label.Render("Environment:"), env, p.label.Render("Filter:"), filter)

	for _, tc := range d.TestCases {
		p.printCase(tc, "")
	}
	for _, s := range d.TestSuites {
		p.printSuite(s)
	}

	sum := d.Summary
	line := fmt.Sprintf("%d test cases, %d steps, %d errors, %d filtered out",
		sum.TotalTestCases, sum.TotalSteps, sum.TotalErrors, sum.FilteredOut)
	if sum.TotalErrors > 0 {
		line = p.failed.Render(line)
	} else {
		line = p.ok.Render(line)
	}
	fmt.Fprintf(p.out, "\n%s\n", line)
}

func (p *Printer) printCase(tc *resolve.TestCase, indent string) {
	if tc.Error != "" {
		fmt.Fprintf(p.out, "%s%s %s  %s\n", indent, p.failed.Render(GlyphError), p.title.Render(tc.Name), p.failed.Render(tc.Error))
		return
	}
	header := fmt.Sprintf("%s%s %s %s", indent, p.ok.Render(GlyphOK), p.title.Render(tc.Name),
		p.dim.Render(fmt.Sprintf("(%d steps)", tc.StepCount)))
	if len(tc.Tags) > 0 {
		header += " " + p.dim.Render("["+strings.Join(tc.Tags, ", ")+"]")
	}
	fmt.Fprintln(p.out, header)

	numWidth := len(fmt.Sprint(len(tc.Steps)))
	for i, step := range tc.Steps {
		prefix := fmt.Sprintf("%s    %*d. ", indent, numWidth, i+1)
		fmt.Fprintf(p.out, "%s%s\n", p.dim.Render(prefix), p.truncate(step, runewidth.StringWidth(prefix)))
	}
}

func (p *Printer) printSuite(s *resolve.TestSuite) {
	fmt.Fprintln(p.out)
	if s.Error != "" {
		fmt.Fprintf(p.out, "%s %s  %s\n", p.failed.Render(GlyphError), p.title.Render("Suite "+s.SuiteName), p.failed.Render(s.Error))
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", p.title.Render("Suite "+s.SuiteName),
		p.dim.Render(fmt.Sprintf("(%d test cases, %d steps, %d errors)",
			s.Summary.TotalTestCases, s.Summary.TotalSteps, s.Summary.TotalErrors)))

	for _, a := range s.PreActions {
		fmt.Fprintf(p.out, "  %s %s\n", p.label.Render("pre:"), p.truncate(a, 7))
	}
	for _, tc := range s.TestCases {
		p.printCase(tc, "  ")
	}
	for _, a := range s.PostActions {
		fmt.Fprintf(p.out, "  %s %s\n", p.label.Render("post:"), p.truncate(a, 8))
	}
	for _, e := range s.Errors {
		fmt.Fprintf(p.out, "  %s %s: %s\n", p.failed.Render(GlyphWarn), e.TestCase, e.Error)
	}
}

// truncate shortens s to fit the printer width after used cells.
func (p *Printer) truncate(s string, used int) string {
	if p.width <= 0 {
		return s
	}
	avail := p.width - used
	if avail < 1 {
		avail = 1
	}
	return runewidth.Truncate(s, avail, "…")
}
