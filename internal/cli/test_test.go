package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/brokersim/internal/scenario"
	"github.com/roach88/brokersim/internal/store"
)

func executeTest(t *testing.T, rootOpts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestBuiltinDemosPass(t *testing.T) {
	out, err := executeTest(t, &RootOptions{Format: "text"})
	require.NoError(t, err)
	for _, name := range scenario.DemoNames {
		assert.Contains(t, out, "PASS "+name)
	}
	assert.Contains(t, out, "All scenarios passed")
}

func TestTestFilter(t *testing.T) {
	out, err := executeTest(t, &RootOptions{Format: "json"}, "--filter", "f*")
	require.NoError(t, err)

	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "fanout", resp.Data.Scenarios[0].Name)
}

func TestTestInvalidFilter(t *testing.T) {
	_, err := executeTest(t, &RootOptions{Format: "text"}, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestDirectoryWithFailure(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "orders.yaml", validScenario)
	writeScenario(t, dir, "backlog.yaml", failingScenario)

	out, err := executeTest(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "PASS orders")
	assert.Contains(t, out, "FAIL backlog")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestJSONFailure(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "backlog.yaml", failingScenario)

	out, err := executeTest(t, &RootOptions{Format: "json"}, dir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Failed)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
}

func TestTestLoadErrorIsFailure(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", invalidScenario)

	out, err := executeTest(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Contains(t, out, "FAIL broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestGoldenUpdateAndCompare(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "orders.yaml", validScenario)

	_, err := executeTest(t, &RootOptions{Format: "text"}, dir, "--update")
	require.NoError(t, err)

	golden := filepath.Join(dir, "golden", "orders.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scenario: orders")
	assert.Contains(t, string(data), "message_consumed")

	// Golden files are skipped when collecting scenarios, and a matching
	// trace passes.
	out, err := executeTest(t, &RootOptions{Format: "text"}, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")

	require.NoError(t, os.WriteFile(golden, []byte("scenario: orders\n"), 0644))
	out, err = executeTest(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestUpdateNeedsDirectory(t *testing.T) {
	_, err := executeTest(t, &RootOptions{Format: "text"}, "--update")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestMissingDirectory(t *testing.T) {
	_, err := executeTest(t, &RootOptions{Format: "text"}, filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestRecordJournalsEveryRun(t *testing.T) {
	journal := filepath.Join(t.TempDir(), "journal.db")
	_, err := executeTest(t, &RootOptions{Format: "text", Journal: journal}, "--record", "--filter", "dlq")
	require.NoError(t, err)

	st, err := store.Open(journal)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.LatestRun(context.Background(), "dlq")
	require.NoError(t, err)
	assert.Equal(t, "demo", run.Source)
	assert.True(t, run.Finished())
	assert.Positive(t, run.EventCount)
}
