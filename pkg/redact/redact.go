// Package redact masks secret-looking environment values before they are
// written into output documents. Rules match variable names, not values.
package redact

import (
	"fmt"
	"regexp"

	"github.com/ormasoftchile/testbook/pkg/schema"
)

// DefaultReplacement is used when a rule does not set one.
const DefaultReplacement = "[REDACTED]"

// DefaultRules always apply in addition to the manifest's rules.
var DefaultRules = []schema.RedactionRule{
	{Pattern: `(?i)(PASSWORD|SECRET|TOKEN|API_?KEY)`},
}

// Rule is a compiled redaction rule.
type Rule struct {
	Pattern *regexp.Regexp
	Replace string
}

// Compile compiles the default rules followed by extra.
func Compile(extra []schema.RedactionRule) ([]*Rule, error) {
	all := append(append([]schema.RedactionRule(nil), DefaultRules...), extra...)
	compiled := make([]*Rule, 0, len(all))
	for _, r := range all {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("redaction pattern %q: %w", r.Pattern, err)
		}
		replace := r.Replace
		if replace == "" {
			replace = DefaultReplacement
		}
		compiled = append(compiled, &Rule{Pattern: re, Replace: replace})
	}
	return compiled, nil
}

// Env returns a copy of env with the value of every matching name replaced.
// The first matching rule decides the replacement.
func Env(env map[string]string, rules []*Rule) map[string]string {
	out := make(map[string]string, len(env))
	for name, value := range env {
		out[name] = value
		for _, r := range rules {
			if r.Pattern.MatchString(name) {
				out[name] = r.Replace
				break
			}
		}
	}
	return out
}
