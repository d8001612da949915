package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/brokersim/internal/scenario"
)

// DemoInfo describes one built-in demo.
type DemoInfo struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Exchanges    int    `json:"exchanges"`
	Queues       int    `json:"queues"`
	Consumers    int    `json:"consumers"`
	Publications int    `json:"publications"`
}

// NewDemosCommand creates the demos command.
func NewDemosCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "demos",
		Short:         "List built-in demo topologies",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemos(rootOpts, cmd)
		},
	}
}

func runDemos(opts *RootOptions, cmd *cobra.Command) error {
	catalog, err := scenario.DefaultCatalog()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load demos", err)
	}

	infos := make([]DemoInfo, 0, len(catalog.Names()))
	for _, s := range catalog.All() {
		infos = append(infos, DemoInfo{
			Name:         s.Name,
			Description:  s.Description,
			Exchanges:    len(s.Exchanges),
			Queues:       len(s.Queues),
			Consumers:    len(s.Consumers),
			Publications: len(s.Publications),
		})
	}

	formatter := opts.formatter(cmd)
	if formatter.IsJSON() {
		return formatter.Success(infos)
	}

	var b strings.Builder
	for _, d := range infos {
		marker := " "
		if d.Name == scenario.DefaultDemo {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %-14s %s\n", marker, d.Name, d.Description)
		fmt.Fprintf(&b, "  %-14s %d exchanges, %d queues, %d consumers, %d publications\n",
			"", d.Exchanges, d.Queues, d.Consumers, d.Publications)
	}
	b.WriteString("\n* default demo")
	return formatter.Success(b.String())
}
