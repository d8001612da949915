package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/brokersim/internal/engine"
	"github.com/roach88/brokersim/internal/model"
	"github.com/roach88/brokersim/internal/render"
	"github.com/roach88/brokersim/internal/scenario"
	"github.com/roach88/brokersim/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Scenario  string
	Ticks     int
	Interval  time.Duration
	NoJournal bool
	Quiet     bool

	// Engine allows overriding engine options (for testing), appended after
	// the configured ones.
	Engine []engine.EngineOption
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Scenario string         `json:"scenario"`
	Ticks    int64          `json:"ticks"`
	RunID    int64          `json:"run_id,omitempty"`
	Digest   string         `json:"digest"`
	Events   []model.Event  `json:"events"`
	State    model.Snapshot `json:"state"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [demo]",
		Short: "Run a demo or scenario in real time",
		Long: `Load a demo topology (or a scenario file) and run the simulation in
real time. Canned publications fire on their schedule and the scheduler
delivers messages on every tick.

Events are printed as they happen and journaled to SQLite unless
--no-journal is given. The run stops after --ticks ticks, or on Ctrl-C.

Examples:
  brokersim run
  brokersim run dlq --ticks 10
  brokersim run --scenario ./orders.yaml --interval 250ms
  brokersim run fanout --ticks 5 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var demo string
			if len(args) == 1 {
				demo = args[0]
			}
			return runSimulation(opts, demo, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "scenario file to run instead of a demo")
	cmd.Flags().IntVar(&opts.Ticks, "ticks", 0, "stop after this many ticks (0 = until interrupted)")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "tick interval (default from config)")
	cmd.Flags().BoolVar(&opts.NoJournal, "no-journal", false, "do not record events")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "print only the final state")

	return cmd
}

func runSimulation(opts *RunOptions, demo string, cmd *cobra.Command) error {
	if demo != "" && opts.Scenario != "" {
		return NewExitError(ExitCommandError, "pass either a demo name or --scenario, not both")
	}
	cfg, logger, err := opts.settings(cmd)
	if err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	s, catalog, source, err := resolveScenario(demo, opts.Scenario)
	if err != nil {
		return err
	}

	engineOpts := append(cfg.EngineOptions(), engine.WithLogger(logger))
	eng := engine.New(append(engineOpts, opts.Engine...)...)

	// Journal
	var (
		st    *store.Store
		rec   *store.Recorder
		runID int64
	)
	if !opts.NoJournal && cfg.JournalPath != "" {
		st, err = openJournal(cfg.JournalPath, true)
		if err != nil {
			return err
		}
		defer st.Close()

		runID, err = st.BeginRun(context.Background(), s.Name, source, time.Now())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start journal run", err)
		}
		rec = store.NewRecorder(context.Background(), st, runID, logger)
		eng.OnEvent(rec.Record)
		formatter.VerboseLog("journaling run %d to %s", runID, cfg.JournalPath)
	}

	// Live output
	r := render.New(cmd.OutOrStdout())
	live := !formatter.IsJSON() && !opts.Quiet
	var events []model.Event
	eng.OnEvent(func(ev model.Event) {
		events = append(events, ev)
		if live {
			fmt.Fprintln(cmd.OutOrStdout(), r.Events([]model.Event{ev}))
		}
	})

	if live {
		fmt.Fprintln(cmd.OutOrStdout(), r.Header(s.Name))
	}
	if _, err := scenario.Apply(eng, s); err != nil {
		return WrapExitError(ExitCommandError, "failed to load topology", err)
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = cfg.TickInterval
	}
	runner := engine.NewRunner(eng,
		engine.WithInterval(interval),
		engine.WithTickLimit(opts.Ticks),
		engine.WithRepublisher(scenario.NewRepublisher(catalog, logger)),
		engine.WithRunnerLogger(logger),
	)
	runner.Resume()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("simulation starting", "scenario", s.Name, "interval", interval, "ticks", opts.Ticks)
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "runner error", err)
	}

	final := eng.Snapshot()
	digest, err := model.Digest(final)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to digest final state", err)
	}

	if st != nil {
		if err := st.FinishRun(context.Background(), runID, time.Now(), final); err != nil {
			logger.Warn("failed to finish journal run", "run", runID, "error", err)
		}
		if err := rec.Err(); err != nil {
			return WrapExitError(ExitFailure, "journal incomplete", err)
		}
	}

	result := RunResult{
		Scenario: s.Name,
		Ticks:    runner.Ticks(),
		RunID:    runID,
		Digest:   digest,
		Events:   events,
		State:    final,
	}
	if result.Events == nil {
		result.Events = []model.Event{}
	}
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w)
	fmt.Fprintln(w, r.Topology(final))
	fmt.Fprintln(w)
	fmt.Fprintln(w, r.Summary(final))
	fmt.Fprintf(w, "Ticks: %d  Events: %d  Digest: %s\n", result.Ticks, len(events), digest)
	if runID != 0 {
		fmt.Fprintf(w, "Journal: run %d (brokersim trace --run %d)\n", runID, runID)
	}
	return nil
}
