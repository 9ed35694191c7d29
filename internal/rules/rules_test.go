package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const rulesDoc = `# Polish rules

Some context about the project.

- Never edit generated files
- Keep public API signatures unchanged
  - Including struct field order
- Run ` + "`gofmt`" + ` on everything you touch

More prose that is not a rule.

1. Prefer table tests
`

func TestParseDoc(t *testing.T) {
	rules := ParseDoc([]byte(rulesDoc))

	require.Equal(t, []string{
		"Never edit generated files",
		"Keep public API signatures unchanged",
		"Including struct field order",
		"Run gofmt on everything you touch",
		"Prefer table tests",
	}, rules)
}

func TestParseDocEmpty(t *testing.T) {
	require.Empty(t, ParseDoc([]byte("just prose, no lists\n")))
	require.Empty(t, ParseDoc(nil))
}

func TestLoadCombinesAndDedupes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "POLISH.md")
	require.NoError(t, os.WriteFile(path, []byte("- Never edit generated files\n- From the doc\n"), 0o644))

	rules, err := Load([]string{"From the config", "Never edit generated files"}, path)
	require.NoError(t, err)
	require.Equal(t, []string{
		"From the config",
		"Never edit generated files",
		"From the doc",
	}, rules)
}

func TestLoadMissingDocIsFine(t *testing.T) {
	rules, err := Load([]string{"only inline"}, filepath.Join(t.TempDir(), "nope.md"))
	require.NoError(t, err)
	require.Equal(t, []string{"only inline"}, rules)
}

func TestLoadNoDocConfigured(t *testing.T) {
	rules, err := Load(nil, "")
	require.NoError(t, err)
	require.Empty(t, rules)
}
