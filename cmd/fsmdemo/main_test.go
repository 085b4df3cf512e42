package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	err := cmd.ExecuteContext(t.Context())

	return out.String(), err
}

//nolint:paralleltest // Commands configure the global logger.
func TestRun_CompletesPipeline(t *testing.T) {
	out, err := execute(t, "run", "--step", "1ms", "--flaky", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "idle --START--> building")
	assert.Contains(t, out, "building --BUILT--> testing")
	assert.Contains(t, out, "testing --RETRY--> testing")
	assert.Contains(t, out, "testing --PASSED--> deploying")
	assert.Contains(t, out, "deploying --DEPLOYED--> done")
	assert.Contains(t, out, "finish")
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte("--RETRY-->")))
}

//nolint:paralleltest
func TestRun_FailedDeploy(t *testing.T) {
	out, err := execute(t, "run", "--step", "1ms", "--flaky", "0", "--fail")
	require.ErrorIs(t, err, errPipelineFailed)

	assert.Contains(t, out, "[runtime_error] "+errDeployFailed.Error())
	assert.NotContains(t, out, "finish")
}

//nolint:paralleltest
func TestRun_SettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jobTimeout: 5ms\n"), 0o600))

	out, err := execute(t, "--settings", path, "run", "--step", "1s")
	require.ErrorIs(t, err, errPipelineFailed)
	assert.Contains(t, out, "[job_time_limit_exceeded]")

	_, err = execute(t, "--settings", filepath.Join(t.TempDir(), "missing.yaml"), "run")
	require.ErrorIs(t, err, os.ErrNotExist)
}

//nolint:paralleltest
func TestDescribeMermaidValidate_RoundTrip(t *testing.T) {
	described, err := execute(t, "describe")
	require.NoError(t, err)

	def, err := fsm.ParseDefinition([]byte(described))
	require.NoError(t, err)
	assert.Equal(t, pipelineConfig(&deployment{}).Describe(), def)

	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(described), 0o600))

	diagram, err := execute(t, "mermaid", path, "--direction", "LR", "--highlight", "done")
	require.NoError(t, err)
	assert.Contains(t, diagram, "direction LR")
	assert.Contains(t, diagram, "idle --> building: START")
	assert.Contains(t, diagram, "testing --> testing: RETRY")
	assert.Contains(t, diagram, "class done highlighted")

	report, err := execute(t, "validate", path, "--strict")
	require.NoError(t, err)
	assert.Contains(t, report, "✓ Definition is valid")
}

//nolint:paralleltest
func TestValidate_InvalidDefinition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
initial: idle
states:
  - name: idle
    on:
      - event: GO
        candidates:
          - target: done
  - name: done
    terminal: true
  - name: orphan
    terminal: true
`), 0o600))

	report, err := execute(t, "validate", path)
	require.ErrorIs(t, err, errInvalidDefinition)
	assert.Contains(t, report, "[UNREACHABLE_STATE]")

	fixed, err := execute(t, "validate", path, "--fix")
	require.NoError(t, err)
	assert.Contains(t, fixed, "# 1 fix(es) applied")
	assert.NotContains(t, fixed, "name: orphan")
}
