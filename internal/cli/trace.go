package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/brokersim/internal/model"
	"github.com/roach88/brokersim/internal/render"
	"github.com/roach88/brokersim/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	RunID    int64
	Demo     string
	Type     string
	AfterSeq int64
	Limit    int
	List     bool
}

// TraceResult holds the trace output.
type TraceResult struct {
	Run    store.Run     `json:"run"`
	Events []model.Event `json:"events"`
	Stats  TraceStats    `json:"stats"`
}

// TraceStats counts events by type.
type TraceStats struct {
	TotalEvents int                     `json:"total_events"`
	ByType      map[model.EventType]int `json:"by_type"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show journaled events of a run",
		Long: `Show the events journaled for a run, oldest first.

The engine keeps only the newest events in memory; the journal keeps
every event of every run. Without --run the latest run is shown.

Examples:
  brokersim trace --list
  brokersim trace
  brokersim trace --run 3 --type message_dlq
  brokersim trace --demo fanout --after 20 --limit 10 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.RunID, "run", 0, "run id (default: latest run)")
	cmd.Flags().StringVar(&opts.Demo, "demo", "", "pick the latest run of this demo or scenario")
	cmd.Flags().StringVar(&opts.Type, "type", "", "only events of this type")
	cmd.Flags().Int64Var(&opts.AfterSeq, "after", 0, "only events with a greater seq")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of events")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list journaled runs")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	cfg, _, err := opts.settings(cmd)
	if err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	if opts.Type != "" && !model.EventType(opts.Type).Valid() {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown event type %q", opts.Type))
	}

	st, err := openJournal(cfg.JournalPath, false)
	if err != nil {
		return err
	}
	defer st.Close()
	ctx := context.Background()

	if opts.List {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		if formatter.IsJSON() {
			return formatter.Success(runs)
		}
		return formatter.Success(formatRuns(runs))
	}

	run, err := selectRun(ctx, st, opts)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitCommandError, "run not found", err)
		}
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	events, err := st.ReadEvents(ctx, run.ID, store.EventFilter{
		Type:     model.EventType(opts.Type),
		AfterSeq: opts.AfterSeq,
		Limit:    opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	result := TraceResult{Run: run, Events: events, Stats: traceStats(events)}
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	r := render.New(cmd.OutOrStdout())
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, r.Header(fmt.Sprintf("run %d: %s", run.ID, run.Name)))
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}
	fmt.Fprintln(w, r.Events(events))
	fmt.Fprintf(w, "\n%d event(s)", len(events))
	if run.FinalDigest != "" {
		fmt.Fprintf(w, ", final digest %s", run.FinalDigest)
	}
	fmt.Fprintln(w)
	return nil
}

func selectRun(ctx context.Context, st *store.Store, opts *TraceOptions) (store.Run, error) {
	if opts.RunID != 0 {
		return st.GetRun(ctx, opts.RunID)
	}
	return st.LatestRun(ctx, opts.Demo)
}

func traceStats(events []model.Event) TraceStats {
	stats := TraceStats{TotalEvents: len(events), ByType: make(map[model.EventType]int)}
	for _, ev := range events {
		stats.ByType[ev.Type]++
	}
	return stats
}

func formatRuns(runs []store.Run) string {
	if len(runs) == 0 {
		return "No runs journaled."
	}
	var b strings.Builder
	for i, r := range runs {
		if i > 0 {
			b.WriteByte('\n')
		}
		status := "running"
		if r.Finished() {
			status = "finished"
		}
		fmt.Fprintf(&b, "%4d  %-16s %-8s %5d events  %s",
			r.ID, r.Name, status, r.EventCount, r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return b.String()
}
