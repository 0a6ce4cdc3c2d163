package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p := Parse(`
# staging profile
BASE_URL=https://staging.example.com
QUERY=a=b&c=d

  USER = alice
QUOTED="hello world"
SINGLE='x'
MISMATCHED="x'
export REGION=eu
not a pair
=orphan
EMPTY=
`)
	assert.Equal(t, Profile{
		"BASE_URL":   "https://staging.example.com",
		"QUERY":      "a=b&c=d",
		"USER":       "alice",
		"QUOTED":     "hello world",
		"SINGLE":     "x",
		"MISMATCHED": `"x'`,
		"REGION":     "eu",
		"EMPTY":      "",
	}, p)
}

func TestParse_LaterLinesWin(t *testing.T) {
	p := Parse("A=1\nA=2\n")
	assert.Equal(t, "2", p["A"])
}

func TestParse_Empty(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("# only a comment\n\n"))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dev.env")
	require.NoError(t, os.WriteFile(path, []byte("B=2\nA=1\n"), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, p.Keys())

	_, err = Load(filepath.Join(dir, "missing.env"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
