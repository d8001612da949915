package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/brokersim/internal/scenario"
	"github.com/roach88/brokersim/internal/store"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
	Record bool   // journal every scenario run
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file,omitempty"`
	Pass   bool     `json:"pass"`
	Events int      `json:"events"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// scenarioCase is one scenario to run. file is empty for built-in demos.
type scenarioCase struct {
	file     string
	scenario *scenario.Scenario
	loadErr  error
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test [scenarios-dir]",
		Short: "Run scenarios in simulated time and check their assertions",
		Long: `Run scenario files in simulated time and evaluate their assertions.

Without a directory, the built-in demos are run. When a scenario has a
golden file (golden/<name>.golden next to it), the trace must match it
as well.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  brokersim test
  brokersim test ./scenarios
  brokersim test ./scenarios --filter "dlq-*"
  brokersim test ./scenarios --update
  brokersim test --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir string
			if len(args) == 1 {
				dir = args[0]
			}
			return runTests(opts, dir, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().BoolVar(&opts.Record, "record", false, "journal every scenario run")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	cfg, logger, err := opts.settings(cmd)
	if err != nil {
		return err
	}
	if opts.Update && dir == "" {
		return NewExitError(ExitCommandError, "--update needs a scenarios directory")
	}

	cases, err := collectCases(dir, opts.Filter)
	if err != nil {
		return err
	}

	formatter := opts.formatter(cmd)
	if len(cases) == 0 {
		if formatter.IsJSON() {
			return formatter.Success(TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	var st *store.Store
	if opts.Record {
		if st, err = openJournal(cfg.JournalPath, true); err != nil {
			return err
		}
		defer st.Close()
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(cases)),
		Total:     len(cases),
	}
	for _, c := range cases {
		sr := runCase(c, opts, st)
		logger.Debug("scenario finished", "scenario", sr.Name, "pass", sr.Pass, "events", sr.Events)
		if !formatter.IsJSON() {
			printScenarioResult(cmd, sr)
		}
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if formatter.IsJSON() {
		if result.Failed > 0 {
			msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
			if err := formatter.Failure(result, ErrCodeTestFailed, msg); err != nil {
				return err
			}
			return NewExitError(ExitFailure, msg)
		}
		return formatter.Success(result)
	}
	return outputTestText(cmd, result)
}

// collectCases returns the built-in demos when dir is empty, otherwise
// every YAML file under dir (golden directories excluded).
func collectCases(dir, filter string) ([]scenarioCase, error) {
	var cases []scenarioCase

	if dir == "" {
		catalog, err := scenario.DefaultCatalog()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load demos", err)
		}
		for _, s := range catalog.All() {
			ok, err := matchesFilter(filter, s.Name)
			if err != nil {
				return nil, err
			}
			if ok {
				cases = append(cases, scenarioCase{scenario: s})
			}
		}
		return cases, nil
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		ok, err := matchesFilter(filter, strings.TrimSuffix(filepath.Base(path), ext))
		if err != nil || !ok {
			return err
		}
		s, loadErr := scenario.Load(path)
		cases = append(cases, scenarioCase{file: path, scenario: s, loadErr: loadErr})
		return nil
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	return cases, nil
}

func matchesFilter(filter, name string) (bool, error) {
	if filter == "" {
		return true, nil
	}
	ok, err := filepath.Match(filter, name)
	if err != nil {
		return false, NewExitError(ExitCommandError, fmt.Sprintf("invalid filter pattern: %v", err))
	}
	return ok, nil
}

// runCase executes one scenario, journaling it when st is non-nil, and
// checks assertions and the golden trace.
func runCase(c scenarioCase, opts *TestOptions, st *store.Store) ScenarioResult {
	name := filepath.Base(c.file)
	if c.loadErr != nil {
		return ScenarioResult{Name: name, File: c.file, Errors: []string{fmt.Sprintf("failed to load scenario: %v", c.loadErr)}}
	}
	s := c.scenario
	sr := ScenarioResult{Name: s.Name, File: c.file}

	runOpts := []scenario.Option{scenario.WithLogger(opts.logger)}
	var rec *store.Recorder
	var runID int64
	if st != nil {
		source := c.file
		if source == "" {
			source = "demo"
		}
		id, err := st.BeginRun(context.Background(), s.Name, source, time.Now())
		if err != nil {
			sr.Errors = append(sr.Errors, fmt.Sprintf("journal: %v", err))
			return sr
		}
		runID = id
		rec = store.NewRecorder(context.Background(), st, runID, opts.logger)
		runOpts = append(runOpts, scenario.WithEventListener(rec.Record))
	}

	result, err := scenario.Run(s, runOpts...)
	if err != nil {
		sr.Errors = append(sr.Errors, fmt.Sprintf("execution failed: %v", err))
		return sr
	}
	sr.Events = len(result.Trace)
	sr.Errors = append(sr.Errors, result.Errors...)

	if st != nil {
		if err := st.FinishRun(context.Background(), runID, time.Now(), result.State); err != nil {
			sr.Errors = append(sr.Errors, fmt.Sprintf("journal: %v", err))
		}
		if err := rec.Err(); err != nil {
			sr.Errors = append(sr.Errors, fmt.Sprintf("journal: %v", err))
		}
	}

	if c.file != "" {
		trace := scenario.FormatTrace(s.Name, result.Trace)
		goldenPath := goldenFilePath(c.file)
		if opts.Update {
			if err := writeGolden(goldenPath, trace); err != nil {
				sr.Errors = append(sr.Errors, fmt.Sprintf("failed to update golden file: %v", err))
			}
		} else if want, err := os.ReadFile(goldenPath); err == nil {
			if !bytes.Equal(want, trace) {
				sr.Errors = append(sr.Errors, "trace does not match golden file (run with --update to regenerate)")
			}
		} else if !os.IsNotExist(err) {
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to read golden file: %v", err))
		}
	}

	sr.Pass = len(sr.Errors) == 0
	return sr
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGolden(path string, trace []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(path, trace, 0644)
}

func printScenarioResult(cmd *cobra.Command, sr ScenarioResult) {
	w := cmd.OutOrStdout()
	if sr.Pass {
		fmt.Fprintf(w, "PASS %s (%d events)\n", sr.Name, sr.Events)
		return
	}
	fmt.Fprintf(w, "FAIL %s\n", sr.Name)
	for _, e := range sr.Errors {
		for _, line := range strings.Split(strings.TrimRight(e, "\n"), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

// outputTestText outputs the test summary as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "All scenarios passed")
	return nil
}
