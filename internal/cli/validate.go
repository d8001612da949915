package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/brokersim/internal/scenario"
)

// FileValidation holds validation results for one scenario file.
type FileValidation struct {
	File   string                     `json:"file"`
	Valid  bool                       `json:"valid"`
	Errors []scenario.ValidationError `json:"errors,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-file>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario files against the scenario schema and check their
consistency: unique names, declared exchanges and queues, acyclic
dead-letter chains and well-formed assertions.

Every problem is reported, not only the first one.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("cannot read %s", file), err.Error())
			return WrapExitError(ExitCommandError, "failed to read scenario file", err)
		}

		formatter.VerboseLog("Validating %s", file)
		_, errs := scenario.Check(file, data)
		fv := FileValidation{File: file, Valid: len(errs) == 0, Errors: errs}
		result.Files = append(result.Files, fv)
		if !fv.Valid {
			result.Valid = false
		}
	}

	if result.Valid {
		if formatter.IsJSON() {
			return formatter.Success(result)
		}
		return formatter.Success(fmt.Sprintf("All %d scenario file(s) valid", len(files)))
	}

	total := 0
	for _, fv := range result.Files {
		total += len(fv.Errors)
	}
	msg := fmt.Sprintf("validation failed with %d error(s)", total)

	if formatter.IsJSON() {
		if err := formatter.Failure(result, firstErrorCode(result), msg); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}

	var b strings.Builder
	for _, fv := range result.Files {
		if fv.Valid {
			fmt.Fprintf(&b, "ok   %s\n", fv.File)
			continue
		}
		fmt.Fprintf(&b, "FAIL %s\n", fv.File)
		for _, e := range fv.Errors {
			fmt.Fprintf(&b, "  %s\n", e.Error())
		}
	}
	fmt.Fprint(formatter.Writer, b.String())
	return NewExitError(ExitFailure, msg)
}

func firstErrorCode(r ValidationResult) string {
	for _, fv := range r.Files {
		if len(fv.Errors) > 0 {
			return fv.Errors[0].Code
		}
	}
	return ErrCodeGeneric
}
