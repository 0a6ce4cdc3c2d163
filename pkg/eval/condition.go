package eval

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"go.uber.org/zap"
)

// ExprPrefix marks a condition evaluated with expr-lang instead of the
// equality grammar, e.g. `expr: REGION == "eu" && RETRIES > 2`.
const ExprPrefix = "expr:"

// Evaluator evaluates step conditions.
//
// Grammar, applied after placeholder substitution:
//
//	left != right     string inequality
//	left == right     string equality; bool equality when right is true/false
//	true | false      literal
//	anything else     true when non-empty
//
// Operands are trimmed and one layer of surrounding quotes is stripped. When
// the operator repeats, only the first two operands are compared. In a
// comparison against true/false, the left operand counts as true only when
// it is exactly "true"; any other text counts as false.
type Evaluator struct {
	sub *Substituter
}

// NewEvaluator returns an Evaluator that substitutes through sub.
func NewEvaluator(sub *Substituter) *Evaluator {
	return &Evaluator{sub: sub}
}

// Evaluate reports whether condition holds. Evaluation errors are logged and
// treated as false so an unreadable condition suppresses its step.
func (e *Evaluator) Evaluate(condition string, params map[string]string) bool {
	ok, err := e.Eval(condition, params)
	if err != nil {
		e.sub.Logger.Warn("condition evaluation failed",
			zap.String("condition", condition), zap.Error(err))
		return false
	}
	return ok
}

// Eval is Evaluate with the error exposed.
func (e *Evaluator) Eval(condition string, params map[string]string) (bool, error) {
	trimmed := strings.TrimSpace(condition)
	if trimmed == "" {
		return true, nil // no condition = always true
	}
	if strings.HasPrefix(trimmed, ExprPrefix) {
		return e.evalExpr(strings.TrimSpace(strings.TrimPrefix(trimmed, ExprPrefix)), params)
	}

	resolved := e.sub.Substitute(trimmed, params)

	if l, r, ok := operands(resolved, "!="); ok {
		return l != r, nil
	}
	if l, r, ok := operands(resolved, "=="); ok {
		if rb, isBool := parseBool(r); isBool {
			return (l == "true") == rb, nil
		}
		return l == r, nil
	}

	resolved = strings.TrimSpace(resolved)
	if b, isBool := parseBool(resolved); isBool {
		return b, nil
	}
	return resolved != "", nil
}

// evalExpr runs an expr-lang program against env vars overlaid with params.
// "true"/"false" values are exposed as booleans.
func (e *Evaluator) evalExpr(code string, params map[string]string) (bool, error) {
	env := make(map[string]any, len(e.sub.Env)+len(params))
	for _, layer := range []map[string]string{e.sub.Env, params} {
		for k, v := range layer {
			if b, ok := parseBool(v); ok {
				env[k] = b
			} else {
				env[k] = v
			}
		}
	}

	program, err := expr.Compile(code, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compile condition %q: %w", code, err)
	}
	output, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("eval condition %q: %w", code, err)
	}
	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not return bool (got %T: %v)", code, output, output)
	}
	return result, nil
}

// operands splits text on op and returns the first two parts unquoted.
func operands(text, op string) (left, right string, ok bool) {
	parts := strings.SplitN(text, op, 3)
	if len(parts) < 2 {
		return "", "", false
	}
	return unquote(parts[0]), unquote(parts[1]), true
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 0 && (s[0] == '"' || s[0] == '\'') {
		s = s[1:]
	}
	if n := len(s); n > 0 && (s[n-1] == '"' || s[n-1] == '\'') {
		s = s[:n-1]
	}
	return s
}

func parseBool(s string) (value, ok bool) {
	switch s {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}
