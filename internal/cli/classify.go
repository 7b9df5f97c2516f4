package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apexcost/riskengine/internal/aace"
)

// ClassifyOptions holds flags for the classify command.
type ClassifyOptions struct {
	*RootOptions
	Maturity     float64
	Completeness float64
}

// ClassifyReport is the classify command's JSON payload.
type ClassifyReport struct {
	Class                 int     `json:"class"`
	AccuracyRange         string  `json:"accuracy_range"`
	ConfidenceLevel       float64 `json:"confidence_level"`
	RecommendedIterations int     `json:"recommended_iterations"`
}

// NewClassifyCommand creates the classify command.
func NewClassifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClassifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Derive the AACE estimate class and simulation defaults",
		Long: `Derive the AACE International estimate class (1-5) from project
maturity inputs and report the recommended simulation defaults.

Engineering maturity and scope completeness are both scored 0-100 and
weighted 60/40. The class fixes the expected accuracy band, the
percentile backing contingency, and the default iteration count.

Examples:
  riskengine classify --maturity 65 --completeness 80
  riskengine classify --maturity 20 --completeness 35 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(opts, cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Maturity, "maturity", 0, "engineering maturity, 0-100 (required)")
	_ = cmd.MarkFlagRequired("maturity")
	cmd.Flags().Float64Var(&opts.Completeness, "completeness", 0, "scope completeness score, 0-100 (required)")
	_ = cmd.MarkFlagRequired("completeness")

	return cmd
}

func runClassify(opts *ClassifyOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	class, err := aace.Classify(opts.Maturity, opts.Completeness)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid classification inputs", err)
	}

	cfg := class.Config()
	report := ClassifyReport{
		Class:                 int(class),
		AccuracyRange:         class.AccuracyRange(),
		ConfidenceLevel:       class.ConfidenceLevel(),
		RecommendedIterations: cfg.Iterations,
	}

	if opts.Format == "json" {
		return formatter.Success(report)
	}
	fmt.Fprintf(formatter.Writer, "AACE class:       %d\n", report.Class)
	fmt.Fprintf(formatter.Writer, "Accuracy range:   %s\n", report.AccuracyRange)
	fmt.Fprintf(formatter.Writer, "Contingency at:   P%g\n", report.ConfidenceLevel*100)
	fmt.Fprintf(formatter.Writer, "Iterations:       %d\n", report.RecommendedIterations)
	return nil
}
