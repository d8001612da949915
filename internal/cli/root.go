package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/brokersim/internal/config"
	"github.com/roach88/brokersim/internal/logging"
	"github.com/roach88/brokersim/internal/xdg"
)

// RootOptions holds global flags for all commands, plus the settings they
// resolve to.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	ConfigDir string
	Journal   string

	// DataDir is where the default journal lives. Empty disables the
	// default journal.
	DataDir string

	config config.Config
	logger *slog.Logger
	loaded bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the brokersim CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "brokersim",
		Short: "brokersim - message broker simulator",
		Long: `Simulate a message broker: exchanges route published messages to
queues through bindings, consumers drain queues on every tick, and
rejected, expired or overflowing messages move to dead-letter queues.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.ConfigDir == "" {
				dir, err := xdg.ConfigDir()
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to locate config directory", err)
				}
				opts.ConfigDir = dir
			}
			if opts.DataDir == "" {
				// Without a home directory there is simply no default journal.
				opts.DataDir, _ = xdg.DataDir()
			}
			return opts.load(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "directory holding config.toml (default: XDG config dir)")
	cmd.PersistentFlags().StringVar(&opts.Journal, "journal", "", "path to the SQLite event journal")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewDemosCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))

	return cmd
}

// load resolves config file, environment and flags into settings.
// Flags win over the environment, which wins over the file.
func (o *RootOptions) load(stderr io.Writer) error {
	if o.loaded {
		return nil
	}

	fc := &config.FileConfig{}
	if o.ConfigDir != "" {
		var err error
		if fc, err = config.LoadFileConfig(o.ConfigDir); err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
	}
	cfg, err := fc.Resolve(o.ConfigDir, o.DataDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if o.Journal != "" {
		cfg.JournalPath = o.Journal
	}
	if o.Verbose {
		cfg.LogLevel = logging.LevelDebug
	}

	lc := cfg.Logging()
	lc.Output = stderr
	o.config = cfg
	o.logger = logging.New(lc)
	o.loaded = true
	return nil
}

// settings returns the resolved settings. Commands built without the root
// command (as in tests) resolve them here from flags and environment only.
func (o *RootOptions) settings(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	if err := o.load(cmd.ErrOrStderr()); err != nil {
		return config.Config{}, nil, err
	}
	return o.config, o.logger, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
