package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyScenario copies a harness scenario into a fresh directory.
func copyScenario(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), data, 0o644))
	return dir
}

func runSimulateCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewSimulateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestSimulateCommandMissingArgs(t *testing.T) {
	_, err := runSimulateCmd(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestSimulateCommandNonExistentPath(t *testing.T) {
	_, err := runSimulateCmd(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenario path not found")
}

func TestSimulateCommandEmptyDir(t *testing.T) {
	out, err := runSimulateCmd(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestSimulateCommandPasses(t *testing.T) {
	dir := copyScenario(t, "weigh_and_save")

	out, err := runSimulateCmd(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ weigh_and_save")
	assert.Contains(t, out, "state=MealSaved meals=1 weight=77g")
	assert.Contains(t, out, "notices: meal_saved")
	assert.Contains(t, out, "Summary: 1 passed, 0 failed, 1 total")
}

func TestSimulateCommandUpdateWritesGolden(t *testing.T) {
	dir := copyScenario(t, "weigh_and_save")

	out, err := runSimulateCmd(t, "text", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "(golden updated)")

	got, err := os.ReadFile(filepath.Join(dir, "golden", "weigh_and_save.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "golden", "weigh_and_save.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	_, err = runSimulateCmd(t, "text", dir)
	require.NoError(t, err)
}

func TestSimulateCommandGoldenMismatch(t *testing.T) {
	dir := copyScenario(t, "weigh_and_save")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "weigh_and_save.golden"), []byte("{}\n"), 0o644))

	out, err := runSimulateCmd(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ weigh_and_save")
	assert.Contains(t, out, "does not match golden file")
}

func TestSimulateCommandFilter(t *testing.T) {
	dir := copyScenario(t, "weigh_and_save")
	data, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "scenarios", "offline_save.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "offline_save.yaml"), data, 0o644))

	out, err := runSimulateCmd(t, "text", dir, "--filter", "offline_*")
	require.NoError(t, err)
	assert.Contains(t, out, "offline_save")
	assert.NotContains(t, out, "weigh_and_save")
	assert.Contains(t, out, "1 total")
}

func TestSimulateCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [unclosed\n"), 0o644))

	out, err := runSimulateCmd(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "Load error")
}

func TestSimulateCommandJSON(t *testing.T) {
	dir := copyScenario(t, "weigh_and_save")

	out, err := runSimulateCmd(t, "json", dir)
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   SimulateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Passed)
	require.Len(t, resp.Data.Scenarios, 1)
	sr := resp.Data.Scenarios[0]
	assert.Equal(t, "weigh_and_save", sr.Name)
	require.NotNil(t, sr.Final)
	assert.Equal(t, 1, sr.Final.DailyMeals)
	assert.InDelta(t, 82.77, sr.Final.DailyKcal, 1e-9)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("scenarios", "golden", "offline_save.golden"),
		goldenFilePath(filepath.Join("scenarios", "offline_save.yaml")))
}
