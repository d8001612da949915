package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/brokersim/internal/engine"
	"github.com/roach88/brokersim/internal/model"
	"github.com/roach88/brokersim/internal/render"
	"github.com/roach88/brokersim/internal/scenario"
	"github.com/roach88/brokersim/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	File   string
	RunID  int64
	Export bool
}

// ShowResult is the JSON payload of the show command.
type ShowResult struct {
	Source string         `json:"source"`
	Digest string         `json:"digest"`
	State  model.Snapshot `json:"state"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [demo]",
		Short: "Show a topology and its state digest",
		Long: `Show a topology: a built-in demo before any message is published, an
exported state document (--file), or the final state of a journaled run
(--run). With --export the state is printed as an export document that
--file can read back.

Examples:
  brokersim show dlq
  brokersim show --run 4
  brokersim show scaling --export > scaling.json
  brokersim show --file scaling.json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var demo string
			if len(args) == 1 {
				demo = args[0]
			}
			return runShow(opts, demo, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "exported state document to load")
	cmd.Flags().Int64Var(&opts.RunID, "run", 0, "show the final state of a journaled run")
	cmd.Flags().BoolVar(&opts.Export, "export", false, "print the state as an export document")

	return cmd
}

func runShow(opts *ShowOptions, demo string, cmd *cobra.Command) error {
	sources := 0
	for _, set := range []bool{demo != "", opts.File != "", opts.RunID != 0} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return NewExitError(ExitCommandError, "pass only one of: demo name, --file, --run")
	}

	cfg, logger, err := opts.settings(cmd)
	if err != nil {
		return err
	}
	eng := engine.New(append(cfg.EngineOptions(), engine.WithLogger(logger))...)

	var source string
	switch {
	case opts.File != "":
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read state document", err)
		}
		if err := eng.Import(data); err != nil {
			return WrapExitError(ExitCommandError, "failed to import state document", err)
		}
		source = opts.File

	case opts.RunID != 0:
		st, err := openJournal(cfg.JournalPath, false)
		if err != nil {
			return err
		}
		defer st.Close()
		snap, _, err := st.LatestSnapshot(context.Background(), opts.RunID)
		if err != nil {
			if errors.Is(err, store.ErrRunNotFound) {
				return WrapExitError(ExitCommandError, "no state journaled for run", err)
			}
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		eng.Load(snap)
		source = fmt.Sprintf("run %d", opts.RunID)

	default:
		s, _, _, err := resolveScenario(demo, "")
		if err != nil {
			return err
		}
		if _, err := scenario.Apply(eng, s); err != nil {
			return WrapExitError(ExitCommandError, "failed to load topology", err)
		}
		source = s.Name
	}

	if opts.Export {
		data, err := eng.Export()
		if err != nil {
			return WrapExitError(ExitFailure, "export failed", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	state := eng.Snapshot()
	digest, err := model.Digest(state)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to digest state", err)
	}

	formatter := opts.formatter(cmd)
	if formatter.IsJSON() {
		return formatter.Success(ShowResult{Source: source, Digest: digest, State: state})
	}

	r := render.New(cmd.OutOrStdout())
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, r.Header(source))
	fmt.Fprintln(w, r.Topology(state))
	fmt.Fprintln(w)
	fmt.Fprintln(w, r.Summary(state))
	fmt.Fprintf(w, "Digest: %s\n", digest)
	return nil
}
