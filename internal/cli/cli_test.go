package cli_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-stagerun/internal/cli"
	"github.com/askiada/go-stagerun/pkg/pipeline"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	err := cli.Execute(t.Context(), args, &stdout, &stderr)

	return stdout.String(), stderr.String(), err
}

func decodeEnv(t *testing.T, out string) map[string]any {
	t.Helper()

	got := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	return got
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "stagerun "+cli.Version+"\n", out)

	out, _, err = execute(t, "version", "--json")
	require.NoError(t, err)

	got := map[string]string{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, cli.Version, got["version"])
	assert.NotEmpty(t, got["go"])
}

func TestRun(t *testing.T) {
	t.Parallel()

	out, stderr, err := execute(t, "run", "-f", "testdata/typical.yaml")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"a": "from the definition",
		"b": "from the pipeline",
		"c": "from setup",
	}, decodeEnv(t, out))
	assert.Contains(t, stderr, "START OF PIPELINE aTypicalPipeline")
	assert.Contains(t, stderr, "END OF STAGE third_stage")
}

func TestRunInitialEnvironment(t *testing.T) {
	t.Parallel()

	envFile := filepath.Join(t.TempDir(), "pipeline.env")
	require.NoError(t, os.WriteFile(envFile, []byte("a=from dotenv\nx=from dotenv\n"), 0o600))

	out, _, err := execute(t, "run", "-f", "testdata/typical.yaml", "--env-file", envFile, "--env", "x=from flag")
	require.NoError(t, err)

	got := decodeEnv(t, out)
	assert.Equal(t, "from dotenv", got["a"])
	assert.Equal(t, "from flag", got["x"])
}

func TestRunInvalidEnv(t *testing.T) {
	t.Parallel()

	_, _, err := execute(t, "run", "-f", "testdata/typical.yaml", "--env", "novalue")
	require.ErrorIs(t, err, cli.ErrInvalidEnv)
}

func TestRunAfterAllBaseline(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "run", "-f", "testdata/typical.yaml", "--after-all", "baseline")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teardown")
	assert.Empty(t, out)

	_, _, err = execute(t, "run", "-f", "testdata/typical.yaml", "--after-all", "sometimes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--after-all")
}

func TestRunFailingJob(t *testing.T) {
	t.Parallel()

	out, stderr, err := execute(t, "run", "-f", "testdata/failing.yaml", "--metrics")
	require.Error(t, err)
	assert.Empty(t, out)

	var unitErr *pipeline.UnitError
	require.ErrorAs(t, err, &unitErr)
	assert.Equal(t, "boom", unitErr.Unit)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, stderr, `stagerun_runs_total{status="error"} 1`)
}

func TestRunMissingFile(t *testing.T) {
	t.Parallel()

	_, _, err := execute(t, "run")
	require.Error(t, err)

	_, _, err = execute(t, "run", "-f", "testdata/missing.yaml")
	require.Error(t, err)
}

func TestRunGraph(t *testing.T) {
	t.Parallel()

	graphFile := filepath.Join(t.TempDir(), "run.dot")

	_, _, err := execute(t, "run", "-f", "testdata/typical.yaml", "--graph", graphFile)
	require.NoError(t, err)

	data, err := os.ReadFile(graphFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "strict digraph"), string(data))
	assert.Contains(t, string(data), "first_stage/B")
}

func TestPlan(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "plan", "-f", "testdata/typical.yaml")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, `entry aTypicalPipeline
before-all setup
stage first_stage jobs=3
  before-each enter_first_stage_job job=B
  job B
  after-each exit_job job=B
  before-each enter_first_stage_job job=A
  job A
  after-each exit_job job=A
`), out)
	assert.Contains(t, out, "stage second_stage jobs=4\n")
	assert.True(t, strings.HasSuffix(out, "after-all teardown\n"), out)
}

func TestPlanDOT(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "plan", "-f", "testdata/typical.yaml", "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, "stage:third_stage")
}
