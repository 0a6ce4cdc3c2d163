package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(env map[string]string) (*Substituter, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.WarnLevel)
	return NewSubstituter(env, zap.New(core)), logs
}

func TestSubstitute_Literal(t *testing.T) {
	s, logs := newObserved(nil)
	assert.Equal(t, "hello world", s.Substitute("hello world", nil))
	assert.Equal(t, 0, logs.Len())
}

func TestSubstitute_ParamsBeforeEnv(t *testing.T) {
	s, _ := newObserved(map[string]string{"USER": "env-user", "BASE_URL": "https://x"})
	got := s.Substitute("Open {{BASE_URL}} as {{USER}}", map[string]string{"USER": "bob"})
	assert.Equal(t, "Open https://x as bob", got)
}

func TestSubstitute_TrimsName(t *testing.T) {
	s, _ := newObserved(map[string]string{"HOST": "srv1"})
	assert.Equal(t, "https://srv1/healthz", s.Substitute("https://{{ HOST }}/healthz", nil))
}

func TestSubstitute_CaseSensitive(t *testing.T) {
	s, logs := newObserved(map[string]string{"host": "srv1"})
	assert.Equal(t, "{{HOST}}", s.Substitute("{{HOST}}", nil))
	assert.Equal(t, 1, logs.Len())
}

func TestSubstitute_MissingLeftVerbatimAndWarned(t *testing.T) {
	s, logs := newObserved(nil)
	got := s.Substitute("Fill {{ USER }} and {{PASS}}", map[string]string{"PASS": "x"})
	assert.Equal(t, "Fill {{ USER }} and x", got)

	warned := logs.FilterMessage("unresolved variable").All()
	require.Len(t, warned, 1)
	assert.Equal(t, "USER", warned[0].ContextMap()["name"])
}

func TestSubstitute_RepeatedToken(t *testing.T) {
	s, _ := newObserved(map[string]string{"A": "1"})
	assert.Equal(t, "1-1", s.Substitute("{{A}}-{{A}}", nil))
}

func TestSubstituteValue_NonStringIdentity(t *testing.T) {
	s, _ := newObserved(map[string]string{"A": "1"})
	m := map[string]any{"k": "{{A}}"}
	assert.Equal(t, m, s.SubstituteValue(m, nil))
	assert.Equal(t, 42, s.SubstituteValue(42, nil))
	assert.Equal(t, "1", s.SubstituteValue("{{A}}", nil))
}

func TestLayers_Lookup(t *testing.T) {
	l := Layers{nil, {"A": "first"}, {"A": "second", "B": "b"}}
	v, ok := l.Lookup("A")
	assert.True(t, ok)
	assert.Equal(t, "first", v)
	v, ok = l.Lookup("B")
	assert.True(t, ok)
	assert.Equal(t, "b", v)
	_, ok = l.Lookup("C")
	assert.False(t, ok)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, Placeholders("{{A}} {{ B }} {{A}}"))
	assert.Nil(t, Placeholders("plain"))
}
