package resolve

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ormasoftchile/testbook/pkg/eval"
	"github.com/ormasoftchile/testbook/pkg/schema"
)

// MissingLibraryFormat is the placeholder emitted for an include whose
// library is not in the table.
const MissingLibraryFormat = "[MISSING LIBRARY: %s]"

// IncludeError aborts expansion when an include re-enters a library already
// being expanded or nests deeper than the configured bound.
type IncludeError struct {
	Library string
	Chain   []string
	Reason  string
}

func (e *IncludeError) Error() string {
	return fmt.Sprintf("include %q: %s (chain: %s)", e.Library, e.Reason, strings.Join(e.Chain, " -> "))
}

// Expander flattens step lists, expanding includes depth-first in declared
// order.
type Expander struct {
	Libraries map[string]*schema.StepLibrary
	MaxDepth  int

	sub    *eval.Substituter
	cond   *eval.Evaluator
	logger *zap.Logger
}

// ResolveParameters layers provided over the library's declared defaults.
// Parameters with no default that the caller does not supply stay absent.
func (x *Expander) ResolveParameters(lib *schema.StepLibrary, provided map[string]string) map[string]string {
	merged := lib.Defaults()
	for k, v := range provided {
		merged[k] = v
	}
	return merged
}

// ExpandIncludes flattens steps in order with inherited as the parameter scope.
func (x *Expander) ExpandIncludes(steps []schema.StepNode, inherited map[string]string) ([]string, error) {
	return x.expandAll(steps, inherited, nil)
}

// ExpandSingleInclude expands one include. Call-site parameters override
// inherited ones, and both override the library defaults. Call-site values
// are themselves substituted in the caller's scope first.
func (x *Expander) ExpandSingleInclude(inc *schema.IncludeStep, inherited map[string]string) ([]string, error) {
	return x.expandInclude(inc, inherited, nil)
}

// ProcessStep resolves a single step node to zero or more instructions.
func (x *Expander) ProcessStep(step schema.StepNode, params map[string]string) ([]string, error) {
	return x.process(step, params, nil)
}

func (x *Expander) expandAll(steps []schema.StepNode, params map[string]string, chain []string) ([]string, error) {
	out := []string{}
	for _, s := range steps {
		resolved, err := x.process(s, params, chain)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved...)
	}
	return out, nil
}

func (x *Expander) process(step schema.StepNode, params map[string]string, chain []string) ([]string, error) {
	switch step.Kind {
	case schema.KindText:
		return []string{x.sub.Substitute(step.Text, params)}, nil

	case schema.KindConditional:
		c := step.Conditional
		if !x.cond.Evaluate(c.Condition, params) {
			return nil, nil
		}
		if c.Step != "" {
			return []string{x.sub.Substitute(c.Step, params)}, nil
		}
		return x.expandAll(c.Steps, params, chain)

	case schema.KindInclude:
		return x.expandInclude(step.Include, params, chain)

	case schema.KindOpaque:
		return []string{x.sub.Substitute(step.Canonical(), params)}, nil
	}
	return nil, fmt.Errorf("unhandled step kind %s", step.Kind)
}

func (x *Expander) expandInclude(inc *schema.IncludeStep, inherited map[string]string, chain []string) ([]string, error) {
	name := inc.Include
	lib, ok := x.Libraries[name]
	if !ok {
		x.logger.Warn("missing step library", zap.String("library", name))
		return []string{fmt.Sprintf(MissingLibraryFormat, name)}, nil
	}

	for _, active := range chain {
		if active == name {
			return nil, &IncludeError{Library: name, Chain: append(clone(chain), name), Reason: "include cycle"}
		}
	}
	if x.MaxDepth > 0 && len(chain) >= x.MaxDepth {
		return nil, &IncludeError{
			Library: name,
			Chain:   append(clone(chain), name),
			Reason:  fmt.Sprintf("maximum include depth %d exceeded", x.MaxDepth),
		}
	}

	provided := make(map[string]string, len(inherited)+len(inc.Parameters))
	for k, v := range inherited {
		provided[k] = v
	}
	for k, v := range inc.Parameters {
		provided[k] = x.sub.Substitute(v, inherited)
	}
	merged := x.ResolveParameters(lib, provided)

	return x.expandAll(lib.Steps, merged, append(clone(chain), name))
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
