// Package eval implements {{NAME}} placeholder substitution and the small
// condition language used by conditional steps.
package eval

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// placeholderRe matches {{ NAME }}; the captured name is trimmed before lookup.
var placeholderRe = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// Layers is an ordered set of lookup tables. Earlier layers win.
type Layers []map[string]string

// Lookup returns the value of name from the first layer that defines it.
func (l Layers) Lookup(name string) (string, bool) {
	for _, m := range l {
		if v, ok := m[name]; ok {
			return v, true
		}
	}
	return "", false
}

// Expand replaces every {{NAME}} in text using layers. Names that no layer
// defines are reported to missing (if non-nil) and left verbatim.
// Example: Expand("Open {{ BASE_URL }}", Layers{{"BASE_URL": "https://x"}}, nil) → "Open https://x"
func Expand(text string, layers Layers, missing func(name string)) string {
	if !strings.Contains(text, "{{") {
		return text // fast path for literals
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(token string) string {
		name := strings.TrimSpace(token[2 : len(token)-2])
		if v, ok := layers.Lookup(name); ok {
			return v
		}
		if missing != nil {
			missing(name)
		}
		return token
	})
}

// Placeholders returns the distinct placeholder names referenced by text,
// in order of first appearance.
func Placeholders(text string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Substituter resolves placeholders against call-site parameters first and
// the environment profile second.
type Substituter struct {
	Env    map[string]string
	Logger *zap.Logger
}

// NewSubstituter returns a Substituter over a read-only environment map.
func NewSubstituter(env map[string]string, logger *zap.Logger) *Substituter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if env == nil {
		env = map[string]string{}
	}
	return &Substituter{Env: env, Logger: logger}
}

// Substitute expands text with params layered over the environment.
// Unresolved names are logged and left in place.
func (s *Substituter) Substitute(text string, params map[string]string) string {
	return Expand(text, Layers{params, s.Env}, func(name string) {
		s.Logger.Warn("unresolved variable", zap.String("name", name))
	})
}

// SubstituteValue substitutes into strings and returns any other value unchanged.
func (s *Substituter) SubstituteValue(v any, params map[string]string) any {
	str, ok := v.(string)
	if !ok {
		return v
	}
	return s.Substitute(str, params)
}
