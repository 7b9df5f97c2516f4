package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidationReport is the validate command's JSON payload.
type ValidationReport struct {
	File    string   `json:"file"`
	Valid   bool     `json:"valid"`
	Items   int      `json:"items,omitempty"`
	Factors int      `json:"factors,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <estimate-file>",
		Short: "Validate an estimate file without running it",
		Long: `Validate an estimate file against the schema and semantic rules.

Structural checks (field types, distribution kinds, rho bounds) run
against the CUE schema and report every violation. Semantic checks
(parent references, cycles, distribution parameter ordering) run on
the decoded estimate.

Exit codes:
  0 - Estimate is valid
  1 - Estimate is invalid
  2 - Command error (file not found, etc.)

Examples:
  riskengine validate estimate.yaml
  riskengine validate estimate.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	est, errs := loadEstimate(path)
	if len(errs) > 0 {
		if code := GetExitCode(errs[0]); code == ExitCommandError {
			return errs[0]
		}

		report := ValidationReport{File: path, Valid: false}
		for _, e := range errs {
			report.Errors = append(report.Errors, e.Error())
		}
		if opts.Format == "json" {
			_ = formatter.Error(errorCode(errs[0]), "estimate is invalid", report)
		} else {
			for _, e := range errs {
				_ = formatter.Error(errorCode(e), e.Error(), nil)
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("estimate %s is invalid", path))
	}

	report := ValidationReport{
		File:    path,
		Valid:   true,
		Items:   len(est.Items),
		Factors: len(est.Factors()),
	}
	if opts.Format == "json" {
		return formatter.Success(report)
	}
	fmt.Fprintf(formatter.Writer, "%s is valid: %d items, %d risk factors\n",
		path, report.Items, report.Factors)
	return nil
}
