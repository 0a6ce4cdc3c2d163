package resolve

import (
	"fmt"
	"io/fs"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ormasoftchile/testbook/pkg/schema"
	"github.com/ormasoftchile/testbook/pkg/tags"
)

// mapLoader serves test case files from memory.
type mapLoader map[string]string

func (m mapLoader) Locate(ref string) (string, error) {
	if _, ok := m[ref]; ok {
		return ref, nil
	}
	return "", fmt.Errorf("test case %q: %w", ref, fs.ErrNotExist)
}

func (m mapLoader) ReadFile(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(data), nil
}

func mustLibrary(t *testing.T, name, src string) *schema.StepLibrary {
	t.Helper()
	lib, err := schema.ParseLibrary([]byte(src))
	require.NoError(t, err)
	lib.Name = name
	return lib
}

func newEngine(t *testing.T, env map[string]string, libs ...*schema.StepLibrary) (*Engine, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	table := map[string]*schema.StepLibrary{}
	for _, l := range libs {
		table[l.Name] = l
	}
	return New(Config{Env: env, Libraries: table, Logger: zap.New(core)}), logs
}

func diffSteps(t *testing.T, want, got []string) {
	t.Helper()
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", d)
	}
}

// --- Expander ---

func TestResolveParameters(t *testing.T) {
	lib := mustLibrary(t, "login", `
parameters:
  - {name: USER, default: guest}
  - {name: PASS, default: secret}
  - {name: OTP}
steps: [x]
`)
	e, _ := newEngine(t, nil, lib)
	x := e.Expander()

	assert.Equal(t, map[string]string{"USER": "guest", "PASS": "secret"}, x.ResolveParameters(lib, map[string]string{}))
	assert.Equal(t, map[string]string{"USER": "bob", "PASS": "secret"}, x.ResolveParameters(lib, map[string]string{"USER": "bob"}))
}

func TestExpand_ScenarioA(t *testing.T) {
	login := mustLibrary(t, "login", `steps: ["Open {{BASE_URL}}", "Fill {{USER}}"]`)
	e, logs := newEngine(t, map[string]string{"BASE_URL": "https://x"}, login)

	got, err := e.Expander().ExpandSingleInclude(&schema.IncludeStep{
		Include:    "login",
		Parameters: map[string]string{"USER": "bob"},
	}, map[string]string{})
	require.NoError(t, err)
	diffSteps(t, []string{"Open https://x", "Fill bob"}, got)
	assert.Zero(t, logs.Len())
}

func TestExpand_TrivialIncludeRoundTrip(t *testing.T) {
	lib := mustLibrary(t, "plain", `steps: ["one", "two", "three"]`)
	e, _ := newEngine(t, nil, lib)

	got, err := e.Expander().ExpandIncludes([]schema.StepNode{schema.IncludeNode("plain", nil)}, nil)
	require.NoError(t, err)
	diffSteps(t, []string{"one", "two", "three"}, got)
}

func TestExpand_ParameterPrecedence(t *testing.T) {
	inner := mustLibrary(t, "inner", `
parameters:
  - {name: A, default: inner-default}
  - {name: B, default: inner-default}
  - {name: C, default: inner-default}
steps: ["A={{A}} B={{B}} C={{C}}"]
`)
	outer := mustLibrary(t, "outer", `
parameters:
  - {name: A, default: outer-default}
  - {name: B, default: outer-default}
steps:
  - include: inner
    parameters: {A: explicit}
`)
	e, _ := newEngine(t, nil, inner, outer)

	got, err := e.Expander().ExpandIncludes([]schema.StepNode{schema.IncludeNode("outer", nil)}, nil)
	require.NoError(t, err)
	// A: call site beats inherited; B: inherited beats inner default; C: default.
	diffSteps(t, []string{"A=explicit B=outer-default C=inner-default"}, got)
}

func TestExpand_CallSiteValuesSubstitutedInCallerScope(t *testing.T) {
	greet := mustLibrary(t, "greet", `steps: ["Hello {{WHO}}"]`)
	e, _ := newEngine(t, map[string]string{"ADMIN": "root"}, greet)

	got, err := e.Expander().ExpandIncludes([]schema.StepNode{
		schema.IncludeNode("greet", map[string]string{"WHO": "{{ADMIN}}"}),
	}, nil)
	require.NoError(t, err)
	diffSteps(t, []string{"Hello root"}, got)
}

func TestExpand_MissingLibrary(t *testing.T) {
	e, logs := newEngine(t, nil)

	got, err := e.Expander().ExpandIncludes([]schema.StepNode{
		schema.TextNode("before"),
		schema.IncludeNode("nope", nil),
		schema.TextNode("after"),
	}, nil)
	require.NoError(t, err)
	diffSteps(t, []string{"before", "[MISSING LIBRARY: nope]", "after"}, got)

	entries := logs.FilterMessage("missing step library").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "nope", entries[0].ContextMap()["library"])
}

func TestExpand_UnresolvedVariableLeftVerbatim(t *testing.T) {
	e, logs := newEngine(t, nil)

	got, err := e.Expander().ProcessStep(schema.TextNode("Go to {{NOWHERE}}"), nil)
	require.NoError(t, err)
	diffSteps(t, []string{"Go to {{NOWHERE}}"}, got)
	assert.Equal(t, 1, logs.FilterMessage("unresolved variable").Len())
}

func TestExpand_ScenarioB(t *testing.T) {
	lib := mustLibrary(t, "banner", `
steps:
  - condition: "{{ENABLED}} == true"
    step: Check the banner
  - Done
`)
	e, _ := newEngine(t, nil, lib)

	on, err := e.Expander().ExpandSingleInclude(&schema.IncludeStep{Include: "banner", Parameters: map[string]string{"ENABLED": "true"}}, nil)
	require.NoError(t, err)
	diffSteps(t, []string{"Check the banner", "Done"}, on)

	off, err := e.Expander().ExpandSingleInclude(&schema.IncludeStep{Include: "banner", Parameters: map[string]string{"ENABLED": "false"}}, nil)
	require.NoError(t, err)
	diffSteps(t, []string{"Done"}, off)
}

func TestExpand_ConditionalStepsBlock(t *testing.T) {
	sub := mustLibrary(t, "sub", `steps: ["nested {{X}}"]`)
	e, _ := newEngine(t, map[string]string{"MODE": "full"}, sub)

	steps := []schema.StepNode{
		schema.ConditionalNode(schema.ConditionalStep{
			Condition: "{{MODE}} != 'lite'",
			Steps: []schema.StepNode{
				schema.TextNode("first"),
				schema.IncludeNode("sub", map[string]string{"X": "1"}),
			},
		}),
		schema.ConditionalNode(schema.ConditionalStep{
			Condition: "{{MODE}} == lite",
			Step:      "never",
		}),
		schema.ConditionalNode(schema.ConditionalStep{
			Condition: "{{MODE}} == full",
			Step:      "single wins",
			Steps:     []schema.StepNode{schema.TextNode("ignored")},
		}),
	}
	got, err := e.Expander().ExpandIncludes(steps, nil)
	require.NoError(t, err)
	diffSteps(t, []string{"first", "nested 1", "single wins"}, got)
}

func TestExpand_FailedConditionSuppressesStep(t *testing.T) {
	e, logs := newEngine(t, nil)

	got, err := e.Expander().ProcessStep(schema.ConditionalNode(schema.ConditionalStep{
		Condition: "expr: MODE ==",
		Step:      "guarded",
	}), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, logs.FilterMessage("condition evaluation failed").Len())
}

func TestExpand_OpaqueStep(t *testing.T) {
	e, _ := newEngine(t, map[string]string{"URL": "https://x"})

	got, err := e.Expander().ProcessStep(schema.OpaqueNode(map[string]any{"wait": 2, "url": "{{URL}}"}), nil)
	require.NoError(t, err)
	diffSteps(t, []string{`{"url":"https://x","wait":2}`}, got)
}

func TestExpand_IncludeCycle(t *testing.T) {
	a := mustLibrary(t, "a", `steps: [{include: b}]`)
	b := mustLibrary(t, "b", `steps: [{include: a}]`)
	e, _ := newEngine(t, nil, a, b)

	_, err := e.Expander().ExpandIncludes([]schema.StepNode{schema.IncludeNode("a", nil)}, nil)
	var incErr *IncludeError
	require.ErrorAs(t, err, &incErr)
	assert.Equal(t, "a", incErr.Library)
	assert.Equal(t, []string{"a", "b", "a"}, incErr.Chain)
	assert.Equal(t, "include cycle", incErr.Reason)
}

func TestExpand_RepeatedSiblingIncludeIsNotACycle(t *testing.T) {
	step := mustLibrary(t, "step", `steps: ["tick {{N}}"]`)
	e, _ := newEngine(t, nil, step)

	got, err := e.Expander().ExpandIncludes([]schema.StepNode{
		schema.IncludeNode("step", map[string]string{"N": "1"}),
		schema.IncludeNode("step", map[string]string{"N": "2"}),
	}, nil)
	require.NoError(t, err)
	diffSteps(t, []string{"tick 1", "tick 2"}, got)
}

func TestExpand_MaxDepth(t *testing.T) {
	libs := []*schema.StepLibrary{
		mustLibrary(t, "l1", `steps: [{include: l2}]`),
		mustLibrary(t, "l2", `steps: [{include: l3}]`),
		mustLibrary(t, "l3", `steps: [leaf]`),
	}
	table := map[string]*schema.StepLibrary{}
	for _, l := range libs {
		table[l.Name] = l
	}

	deep := New(Config{Libraries: table, MaxIncludeDepth: 3})
	got, err := deep.Expander().ExpandIncludes([]schema.StepNode{schema.IncludeNode("l1", nil)}, nil)
	require.NoError(t, err)
	diffSteps(t, []string{"leaf"}, got)

	shallow := New(Config{Libraries: table, MaxIncludeDepth: 2})
	_, err = shallow.Expander().ExpandIncludes([]schema.StepNode{schema.IncludeNode("l1", nil)}, nil)
	var incErr *IncludeError
	require.ErrorAs(t, err, &incErr)
	assert.Equal(t, "l3", incErr.Library)
	assert.Contains(t, incErr.Error(), "maximum include depth 2 exceeded")
}

// --- TestCase resolution ---

func TestResolveTestCase_ScenarioD(t *testing.T) {
	e, _ := newEngine(t, nil)
	src := []byte("tags: [smoke, order]\nsteps: [Place order]\n")

	tc := e.ResolveTestCase("place-order", "tests/place-order.yaml", src, tags.Parse("smoke"))
	require.NotNil(t, tc)
	assert.Equal(t, []string{"smoke", "order"}, tc.Tags)
	assert.Equal(t, "place-order", tc.Name)
	assert.Equal(t, "tests/place-order.yaml", tc.OriginalFile)
	assert.Equal(t, 1, tc.StepCount)
	assert.Empty(t, tc.Error)

	assert.Nil(t, e.ResolveTestCase("place-order", "", src, tags.Parse("regression")))
}

func TestResolveTestCase_ScenarioE(t *testing.T) {
	e, _ := newEngine(t, nil)

	tc := e.ResolveTestCase("broken", "broken.yaml", []byte("steps: [unclosed\n"), tags.Parse("smoke"))
	require.NotNil(t, tc, "parse failures are never filtered out")
	assert.NotEmpty(t, tc.Error)
	assert.Equal(t, []string{}, tc.Steps)
	assert.Equal(t, []string{}, tc.Tags)
	assert.Zero(t, tc.StepCount)
}

func TestResolveTestCase_UndeclaredKeysStillResolve(t *testing.T) {
	login := mustLibrary(t, "login", `steps: ["Sign in as {{USER}}"]`)
	e, _ := newEngine(t, map[string]string{"USER": "bob"}, login)

	tc := e.ResolveTestCase("login", "login.yaml", []byte("name: Login\nsteps:\n  - a\n"), nil)
	require.NotNil(t, tc)
	assert.Empty(t, tc.Error)
	diffSteps(t, []string{"a"}, tc.Steps)

	tc = e.ResolveTestCase("checkout", "checkout.yaml", []byte(`
steps:
  - a
  - {include: login, description: login first}
  - {condition: "true", step: guarded, note: always}
  - b
`), nil)
	require.NotNil(t, tc)
	assert.Empty(t, tc.Error)
	diffSteps(t, []string{"a", "Sign in as bob", "guarded", "b"}, tc.Steps)
	assert.Equal(t, 4, tc.StepCount)
}

func TestResolveTestCase_EmptyDocument(t *testing.T) {
	e, _ := newEngine(t, nil)
	tc := e.ResolveTestCase("empty", "empty.yaml", nil, nil)
	require.NotNil(t, tc)
	assert.Contains(t, tc.Error, "empty document")
}

func TestResolveTestCase_TagsNilVersusEmpty(t *testing.T) {
	e, _ := newEngine(t, nil)
	filter := tags.Parse("smoke")

	untagged := e.ResolveTestCase("untagged", "", []byte("steps: [a]\n"), filter)
	require.NotNil(t, untagged)
	assert.Equal(t, []string{}, untagged.Tags)

	assert.Nil(t, e.ResolveTestCase("empty-tags", "", []byte("tags: []\nsteps: [a]\n"), filter))
	assert.NotNil(t, e.ResolveTestCase("empty-tags", "", []byte("tags: []\nsteps: [a]\n"), nil))
}

func TestResolveTestCase_RawStepsRetained(t *testing.T) {
	login := mustLibrary(t, "login", `steps: ["Open {{BASE_URL}}", "Fill {{USER}}"]`)
	e, _ := newEngine(t, map[string]string{"BASE_URL": "https://x"}, login)

	tc := e.ResolveTestCase("checkout", "", []byte(`
description: Guest checkout
steps:
  - include: login
    parameters: {USER: bob}
  - Pay
`), nil)
	require.NotNil(t, tc)
	diffSteps(t, []string{"Open https://x", "Fill bob", "Pay"}, tc.Steps)
	assert.Equal(t, 3, tc.StepCount)
	assert.Equal(t, "Guest checkout", tc.Description)
	require.Len(t, tc.RawSteps, 2)
	assert.Equal(t, schema.KindInclude, tc.RawSteps[0].Kind)
}

func TestResolveTestCase_IncludeCycleBecomesError(t *testing.T) {
	self := mustLibrary(t, "self", `steps: [{include: self}]`)
	e, _ := newEngine(t, nil, self)

	tc := e.ResolveTestCase("loop", "", []byte("steps: [{include: self}]\n"), nil)
	require.NotNil(t, tc)
	assert.Contains(t, tc.Error, "include cycle")
	assert.Equal(t, []string{}, tc.Steps)
	assert.Zero(t, tc.StepCount)
	assert.Len(t, tc.RawSteps, 1)
}

func TestResolveTestCaseDefinition_Nil(t *testing.T) {
	e, _ := newEngine(t, nil)
	tc := e.ResolveTestCaseDefinition("x", "", nil, nil)
	require.NotNil(t, tc)
	assert.NotEmpty(t, tc.Error)
}

// --- Suite resolution ---

func TestResolveSuite_ScenarioC(t *testing.T) {
	loader := mapLoader{
		"a.yaml": "tags: [smoke]\nsteps: [a1, a2]\n",
		"b.yaml": "tags: [regression]\nsteps: [b1]\n",
	}
	e := New(Config{Loader: loader})

	suite := e.ResolveSuite("nightly", "suites/nightly.yaml", []byte(`
name: Nightly
tags: [smoke]
pre-actions: [Reset database]
test-cases:
  - a.yaml
  - path: b.yaml
  - c.yaml
`), tags.Parse("smoke"))

	require.NotNil(t, suite)
	assert.Empty(t, suite.Error)
	assert.Equal(t, "nightly", suite.Name)
	assert.Equal(t, "Nightly", suite.SuiteName)
	assert.Equal(t, []string{"Reset database"}, suite.PreActions)
	assert.Equal(t, []string{}, suite.PostActions)

	// b.yaml is tagged regression but member cases ignore the filter.
	require.Len(t, suite.TestCases, 2)
	assert.Equal(t, "a", suite.TestCases[0].Name)
	assert.Equal(t, "b", suite.TestCases[1].Name)

	require.Len(t, suite.Errors, 1)
	assert.Equal(t, SuiteError{TestCase: "c.yaml", Error: "Test case file not found: c.yaml"}, suite.Errors[0])
	assert.Equal(t, SuiteSummary{TotalTestCases: 2, TotalSteps: 3, TotalErrors: 1}, suite.Summary)
}

func TestResolveSuite_InvalidReference(t *testing.T) {
	e := New(Config{Loader: mapLoader{"a.yaml": "steps: [a]\n"}})

	suite := e.ResolveSuite("s", "", []byte(`
test-cases:
  - {file: a.yaml}
  - a.yaml
  - 42
`), nil)
	require.NotNil(t, suite)
	require.Len(t, suite.TestCases, 1)
	require.Len(t, suite.Errors, 2)
	assert.Equal(t, SuiteError{TestCase: `{"file":"a.yaml"}`, Error: InvalidReferenceMessage}, suite.Errors[0])
	assert.Equal(t, SuiteError{TestCase: "42", Error: InvalidReferenceMessage}, suite.Errors[1])
	assert.Equal(t, "s", suite.SuiteName)
}

func TestResolveSuite_FilteredOut(t *testing.T) {
	e := New(Config{Loader: mapLoader{}})
	assert.Nil(t, e.ResolveSuite("s", "", []byte("tags: [slow]\ntest-cases: []\n"), tags.Parse("smoke")))
}

func TestResolveSuite_ParseError(t *testing.T) {
	e := New(Config{Loader: mapLoader{}})
	suite := e.ResolveSuite("s", "s.yaml", []byte("test-cases: [\n"), tags.Parse("smoke"))
	require.NotNil(t, suite)
	assert.NotEmpty(t, suite.Error)
	assert.Equal(t, []*TestCase{}, suite.TestCases)
	assert.Zero(t, suite.Summary.TotalTestCases)
}

func TestResolveSuite_BrokenMemberKeptWithError(t *testing.T) {
	e := New(Config{Loader: mapLoader{"bad.yaml": "steps: [\n"}})
	suite := e.ResolveSuite("s", "", []byte("test-cases: [bad.yaml]\n"), nil)
	require.NotNil(t, suite)
	require.Len(t, suite.TestCases, 1)
	assert.NotEmpty(t, suite.TestCases[0].Error)
	assert.Empty(t, suite.Errors)
}

func TestResolveSuite_NoLoader(t *testing.T) {
	e := New(Config{})
	suite := e.ResolveSuite("s", "", []byte("test-cases: [a.yaml]\n"), nil)
	require.NotNil(t, suite)
	require.Len(t, suite.Errors, 1)
	assert.Contains(t, suite.Errors[0].Error, "no test case loader")
}

func TestEngineLibraryNames(t *testing.T) {
	e, _ := newEngine(t, nil,
		mustLibrary(t, "shared/login", `steps: [x]`),
		mustLibrary(t, "cart", `steps: [y]`),
	)
	assert.Equal(t, []string{"cart", "shared/login"}, e.LibraryNames())
	_, ok := e.Library("cart")
	assert.True(t, ok)
}
