package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: passing
steps:
  - create_event: { label: e1, start: 2024-01-01, stop: 2024-01-02, author: alice, tags: [mms] }
assertions:
  - type: events
    filter: "'mms' in tags"
    expect: [e1]
`

const failingScenario = `name: failing
steps:
  - create_catalogue: { label: c1, name: crossings, author: alice }
assertions:
  - type: catalogue_count
    count: 2
`

func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	run := runCLI(t, nil, "test")
	assert.Equal(t, ExitCommandError, run.code)
	assert.Contains(t, run.stderr, "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	run := runCLI(t, nil, "test", "/nonexistent/scenarios")
	assert.Equal(t, ExitCommandError, run.code)
	assert.Contains(t, run.stderr, "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	run := runCLI(t, nil, "test", t.TempDir())
	require.Equal(t, ExitSuccess, run.code, run.stderr)
	assert.Contains(t, run.stdout, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	run := runCLI(t, nil, "--format", "json", "test", t.TempDir())
	require.Equal(t, ExitSuccess, run.code, run.stderr)

	got := decode[TestResult](t, run.stdout)
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, 0, got.Data.Total)
}

func TestTestCommandPassAndFail(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"passing.yaml":     passingScenario,
		"nested/fail.yaml": failingScenario,
	})

	run := runCLI(t, nil, "test", dir)
	assert.Equal(t, ExitFailure, run.code)
	assert.Contains(t, run.stdout, "✓ passing")
	assert.Contains(t, run.stdout, "✗ failing")
	assert.Contains(t, run.stdout, "Expected: 2 match(es)")
	assert.Contains(t, run.stdout, "Test Summary: 1 passed, 1 failed, 2 total")

	run = runCLI(t, nil, "--format", "json", "test", dir)
	assert.Equal(t, ExitFailure, run.code)
	got := decode[TestResult](t, run.stdout)
	assert.Equal(t, "error", got.Status)
	assert.Equal(t, 1, got.Data.Passed)
	assert.Equal(t, 1, got.Data.Failed)
}

func TestTestCommandFilter(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"passing.yaml":     passingScenario,
		"nested/fail.yaml": failingScenario,
	})

	run := runCLI(t, nil, "test", dir, "--filter", "pass*")
	require.Equal(t, ExitSuccess, run.code, run.stdout)
	assert.Contains(t, run.stdout, "✓ All scenarios passed")
	assert.NotContains(t, run.stdout, "failing")

	run = runCLI(t, nil, "test", dir, "--filter", "[unclosed")
	assert.Equal(t, ExitCommandError, run.code)
	assert.Contains(t, run.stderr, "invalid filter pattern")
}

func TestTestCommandGolden(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"passing.yaml": passingScenario})
	goldenPath := filepath.Join(dir, "golden", "passing.golden")

	run := runCLI(t, nil, "test", dir, "--update")
	require.Equal(t, ExitSuccess, run.code, run.stdout)
	assert.Contains(t, run.stdout, "✓ passing (golden updated)")
	require.FileExists(t, goldenPath)

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"passing"`)

	run = runCLI(t, nil, "--format", "json", "test", dir)
	require.Equal(t, ExitSuccess, run.code, run.stdout)
	got := decode[TestResult](t, run.stdout)
	require.Len(t, got.Data.Scenarios, 1)
	assert.Equal(t, goldenMatched, got.Data.Scenarios[0].Golden)

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"scenario_name":"passing","trace":[]}`), 0644))
	run = runCLI(t, nil, "test", dir)
	assert.Equal(t, ExitFailure, run.code)
	assert.Contains(t, run.stdout, "does not match golden file")
}

func TestTestCommandLoadError(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"broken.yml": "name: broken\nsteps: []\n"})

	run := runCLI(t, nil, "test", dir)
	assert.Equal(t, ExitFailure, run.code)
	assert.Contains(t, run.stdout, "✗ broken.yml")
	assert.Contains(t, run.stdout, "failed to load scenario")
}

func TestTestHelpText(t *testing.T) {
	run := runCLI(t, nil, "test", "--help")
	require.Equal(t, ExitSuccess, run.code)
	assert.Contains(t, run.stdout, "scenario")
	assert.Contains(t, run.stdout, "--update")
	assert.Contains(t, run.stdout, "--filter")
	assert.Contains(t, run.stdout, "scenarios-dir")
}

func TestFindScenarioFiles(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"a.yaml":            "",
		"b.yml":             "",
		"notes.txt":         "",
		"sub/c.yaml":        "",
		"sub/deeper/d.yaml": "",
	})

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	var rel []string
	for _, f := range files {
		r, err := filepath.Rel(dir, f)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.ElementsMatch(t, []string{"a.yaml", "b.yml", "sub/c.yaml", "sub/deeper/d.yaml"}, rel)

	files, err = findScenarioFiles(dir, "{a,d}")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "tags.golden"),
		goldenFilePath(filepath.Join("scenarios", "tags.yaml")))
	assert.Equal(t,
		filepath.Join("scenarios", "sub", "golden", "x.golden"),
		goldenFilePath(filepath.Join("scenarios", "sub", "x.yml")))
}
