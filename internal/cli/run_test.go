package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTextOutput(t *testing.T) {
	path := writeEstimate(t, towerEstimate)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path, "--seed", "42", "--iterations", "2000"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Seed:        42")
	assert.Contains(t, output, "Base cost:   150,000.00")
	assert.Contains(t, output, "p80:")
	assert.Contains(t, output, "Sensitivity")
	assert.Contains(t, output, "steel-price")
	assert.Contains(t, output, "Realized correlations:")
}

func TestRunJSONOutput(t *testing.T) {
	path := writeEstimate(t, towerEstimate)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path, "--seed", "42", "--iterations", "2000"})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var report RunReport
	require.NoError(t, json.Unmarshal(data, &report))

	assert.EqualValues(t, 42, report.Seed)
	assert.Equal(t, 2000, report.Iterations)
	assert.Equal(t, 150000.0, report.BaseCost)
	assert.Len(t, report.Percentiles, 3)
	assert.NotEmpty(t, report.InputHash)
	assert.NotEmpty(t, report.ResultHash)
}

func TestRunIsDeterministicForFixedSeed(t *testing.T) {
	path := writeEstimate(t, towerEstimate)

	hash := func() string {
		buf := &bytes.Buffer{}
		cmd := NewRunCommand(&RootOptions{Format: "json"})
		cmd.SetOut(buf)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{path, "--seed", "7", "--iterations", "2000"})
		require.NoError(t, cmd.Execute())

		var resp CLIResponse
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		var report RunReport
		require.NoError(t, json.Unmarshal(data, &report))
		return report.ResultHash
	}

	assert.Equal(t, hash(), hash())
}

func TestRunInvalidEstimateExitsWithFailure(t *testing.T) {
	path := writeEstimate(t, `
items:
  - id: a
    quantity: 1
    unit_cost: 10
    factor:
      id: f
      dist:
        kind: triangular
        min: 2.0
        mode: 1.0
        max: 0.5
`)

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path, "--seed", "1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRunMissingFileExitsWithCommandError(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"/nonexistent/estimate.yaml", "--seed", "1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunIterationsOutOfRange(t *testing.T) {
	path := writeEstimate(t, towerEstimate)

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{path, "--seed", "1", "--iterations", "10"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "E103")
}
