package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/testbook/pkg/schema"
)

func TestEnv_DefaultRules(t *testing.T) {
	rules, err := Compile(nil)
	require.NoError(t, err)

	env := map[string]string{
		"BASE_URL":       "https://x",
		"ADMIN_PASSWORD": "hunter2",
		"db_secret":      "s",
		"GITHUB_TOKEN":   "ghp",
		"STRIPE_APIKEY":  "k1",
		"MAPS_API_KEY":   "k2",
	}
	got := Env(env, rules)
	assert.Equal(t, map[string]string{
		"BASE_URL":       "https://x",
		"ADMIN_PASSWORD": DefaultReplacement,
		"db_secret":      DefaultReplacement,
		"GITHUB_TOKEN":   DefaultReplacement,
		"STRIPE_APIKEY":  DefaultReplacement,
		"MAPS_API_KEY":   DefaultReplacement,
	}, got)
	assert.Equal(t, "hunter2", env["ADMIN_PASSWORD"], "input must not be modified")
}

func TestEnv_ManifestRules(t *testing.T) {
	rules, err := Compile([]schema.RedactionRule{{Pattern: `^CARD_`, Replace: "****"}})
	require.NoError(t, err)

	got := Env(map[string]string{"CARD_NUMBER": "4111", "USER": "bob"}, rules)
	assert.Equal(t, "****", got["CARD_NUMBER"])
	assert.Equal(t, "bob", got["USER"])
}

func TestCompile_InvalidPattern(t *testing.T) {
	_, err := Compile([]schema.RedactionRule{{Pattern: `(`}})
	assert.Error(t, err)
}
