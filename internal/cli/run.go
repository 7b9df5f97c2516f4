package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/apexcost/riskengine/internal/engine"
	"github.com/apexcost/riskengine/internal/estimate"
	"github.com/apexcost/riskengine/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Iterations  int
	Seed        uint64
	Percentiles []float64
	KeepTotals  bool
	Database    string
	Timeout     time.Duration
}

// RunReport is the run command's JSON payload.
type RunReport struct {
	RunID                string                       `json:"run_id,omitempty"`
	Seed                 uint64                       `json:"seed"`
	Iterations           int                          `json:"iterations"`
	BaseCost             float64                      `json:"base_cost"`
	Percentiles          []engine.PercentileValue     `json:"percentiles"`
	Mean                 float64                      `json:"mean"`
	StdDev               float64                      `json:"std_dev"`
	Sensitivity          []SensitivityEntry           `json:"sensitivity,omitempty"`
	RealizedCorrelations []engine.RealizedCorrelation `json:"realized_correlations,omitempty"`
	CorrelationCorrected bool                         `json:"correlation_corrected,omitempty"`
	InputHash            string                       `json:"input_hash"`
	ResultHash           string                       `json:"result_hash"`
}

// SensitivityEntry is one tornado row.
type SensitivityEntry struct {
	FactorID string  `json:"factor_id"`
	Spearman float64 `json:"spearman"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <estimate-file>",
		Short: "Run a Monte Carlo simulation over an estimate",
		Long: `Run a Monte Carlo cost-risk simulation over an estimate file.

The estimate is schema-checked and validated, sampled with Latin
Hypercube stratification, correlated per its correlation specs, and
summarized as percentiles and a sensitivity ranking.

Without --seed a seed is generated and reported, so every run is
replayable. With --db the run is appended to the audit ledger and can
later be verified with "riskengine replay".

Exit codes:
  0 - Simulation completed
  1 - Invalid estimate or simulation failure
  2 - Command error (file not found, database error, etc.)

Examples:
  riskengine run estimate.yaml
  riskengine run estimate.yaml --seed 42 --iterations 20000
  riskengine run estimate.yaml --db runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Iterations, "iterations", 10_000, "Monte Carlo iteration count")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed (generated when omitted)")
	cmd.Flags().Float64SliceVar(&opts.Percentiles, "percentiles", nil, "reported levels in (0,1), e.g. 0.5,0.8,0.95")
	cmd.Flags().BoolVar(&opts.KeepTotals, "keep-totals", false, "retain the per-iteration totals array in JSON output")
	cmd.Flags().StringVar(&opts.Database, "db", "", "append the run to this SQLite audit ledger")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "abort the simulation after this duration")

	return cmd
}

func runSimulation(opts *RunOptions, path string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	est, errs := loadEstimate(path)
	if len(errs) > 0 {
		for _, e := range errs {
			_ = formatter.Error(errorCode(e), e.Error(), nil)
		}
		return exitErrorFrom(errs[0], "invalid estimate")
	}
	slog.Info("estimate loaded", "path", path, "items", len(est.Items), "factors", len(est.Factors()))

	cfg := engine.Config{
		Iterations:  opts.Iterations,
		Percentiles: opts.Percentiles,
		KeepTotals:  opts.KeepTotals,
	}
	if cmd.Flags().Changed("seed") {
		seed := opts.Seed
		cfg.Seed = &seed
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	started := time.Now()
	res, err := engine.Run(ctx, est, cfg)
	if err != nil {
		_ = formatter.Error(errorCode(err), err.Error(), nil)
		return exitErrorFrom(err, "simulation failed")
	}
	slog.Info("simulation complete", "iterations", res.Iterations, "seed", res.Seed, "elapsed", time.Since(started))

	inputHash, err := engine.InputHash(est, cfg, res.Seed)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to hash inputs", err)
	}
	resultHash, err := res.Hash()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to hash result", err)
	}

	report := buildRunReport(res, inputHash, resultHash)

	if opts.Database != "" {
		runID, err := persistRun(ctx, opts.Database, est, cfg, res, inputHash, resultHash)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		report.RunID = runID
		slog.Info("run recorded", "db", opts.Database, "run_id", runID)
	}

	if opts.Format == "json" {
		return formatter.Success(report)
	}
	printRunReport(formatter, report)
	return nil
}

func buildRunReport(res *engine.Result, inputHash, resultHash string) *RunReport {
	report := &RunReport{
		Seed:                 res.Seed,
		Iterations:           res.Iterations,
		BaseCost:             res.BaseCost,
		Percentiles:          res.Percentiles,
		Mean:                 res.Summary.Mean,
		StdDev:               res.Summary.StdDev,
		RealizedCorrelations: res.RealizedCorrelations,
		CorrelationCorrected: res.CorrelationCorrected,
		InputHash:            inputHash,
		ResultHash:           resultHash,
	}
	for _, s := range res.Sensitivity {
		report.Sensitivity = append(report.Sensitivity, SensitivityEntry{
			FactorID: s.FactorID,
			Spearman: s.Spearman,
		})
	}
	return report
}

func persistRun(ctx context.Context, dbPath string, est *estimate.Estimate, cfg engine.Config, res *engine.Result, inputHash, resultHash string) (string, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer st.Close()

	resultJSON, err := res.CanonicalJSON()
	if err != nil {
		return "", err
	}

	rec := store.RunRecord{
		ID:         store.NewRunID(),
		InputHash:  inputHash,
		Seed:       res.Seed,
		Iterations: res.Iterations,
		Estimate:   *est,
		Config:     cfg,
		ResultJSON: resultJSON,
		ResultHash: resultHash,
		CreatedAt:  time.Now(),
	}
	if err := st.WriteRun(ctx, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// printRunReport renders the human-readable report. Money columns use
// locale-aware digit grouping so a P95 of 1.2M reads as 1,204,517.38.
func printRunReport(f *OutputFormatter, r *RunReport) {
	prn := message.NewPrinter(language.English)
	money := func(v float64) any {
		return number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2))
	}

	prn.Fprintf(f.Writer, "Seed:        %d\n", r.Seed)
	prn.Fprintf(f.Writer, "Iterations:  %d\n", r.Iterations)
	prn.Fprintf(f.Writer, "Base cost:   %v\n", money(r.BaseCost))
	prn.Fprintf(f.Writer, "Mean:        %v\n", money(r.Mean))
	prn.Fprintf(f.Writer, "Std dev:     %v\n", money(r.StdDev))

	sorted := make([]engine.PercentileValue, len(r.Percentiles))
	copy(sorted, r.Percentiles)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Level < sorted[b].Level })
	for _, p := range sorted {
		prn.Fprintf(f.Writer, "%-12s %v\n", p.Label()+":", money(p.Value))
	}

	if len(r.Sensitivity) > 0 {
		fmt.Fprintln(f.Writer, "\nSensitivity (Spearman vs total):")
		for _, s := range r.Sensitivity {
			prn.Fprintf(f.Writer, "  %-24s %+.3f\n", s.FactorID, s.Spearman)
		}
	}
	if len(r.RealizedCorrelations) > 0 {
		fmt.Fprintln(f.Writer, "\nRealized correlations:")
		for _, rc := range r.RealizedCorrelations {
			prn.Fprintf(f.Writer, "  %s x %s: target %+.2f, realized %+.3f\n",
				rc.FactorA, rc.FactorB, rc.Target, rc.Realized)
		}
	}
	if r.CorrelationCorrected {
		fmt.Fprintln(f.Writer, "\nNote: correlation matrix was not positive semi-definite and was projected.")
	}
	if r.RunID != "" {
		prn.Fprintf(f.Writer, "\nRecorded as run %s (input %s)\n", r.RunID, shortHash(r.InputHash))
	}
	prn.Fprintf(f.Writer, "Result hash: %s\n", shortHash(r.ResultHash))
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// exitErrorFrom picks the exit code by error class: command errors keep
// code 2, everything domain-shaped is a failure (1).
func exitErrorFrom(err error, msg string) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return WrapExitError(ExitFailure, msg, err)
}

func configureLogging(verbose bool) {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
