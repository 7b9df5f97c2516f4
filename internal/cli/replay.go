package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apexcost/riskengine/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional, verify a single run
	Limit    int
}

// ReplayRunResult holds the verification outcome for one run.
type ReplayRunResult struct {
	RunID        string `json:"run_id"`
	Identical    bool   `json:"identical"`
	StoredHash   string `json:"stored_hash"`
	ReplayedHash string `json:"replayed_hash"`
}

// ReplayResult holds the overall replay outcome.
type ReplayResult struct {
	Runs         []ReplayRunResult `json:"runs"`
	TotalRuns    int               `json:"total_runs"`
	AllIdentical bool              `json:"all_identical"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay stored runs and verify result hashes",
		Long: `Replay stored runs from the audit ledger and verify determinism.

Each run is re-executed from its persisted estimate, config, and seed,
and the replayed result hash is compared byte for byte against the
stored hash. A mismatch means the record was altered or the engine's
numeric behavior changed.

Exit codes:
  0 - All replayed runs reproduced their stored hashes
  1 - At least one run did not reproduce its hash
  2 - Command error (database not found, unknown run id, etc.)

Examples:
  riskengine replay --db runs.db
  riskengine replay --db runs.db --run 01924f0a-...
  riskengine replay --db runs.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite audit ledger (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "verify a specific run only")
	cmd.Flags().IntVar(&opts.Limit, "limit", 100, "maximum number of runs to verify")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var ids []string
	if opts.RunID != "" {
		ids = []string{opts.RunID}
	} else {
		recs, err := st.ListRuns(ctx, opts.Limit)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		for _, rec := range recs {
			ids = append(ids, rec.ID)
		}
	}

	if len(ids) == 0 {
		if opts.Format == "json" {
			return formatter.Success(ReplayResult{Runs: []ReplayRunResult{}, AllIdentical: true})
		}
		fmt.Fprintln(formatter.Writer, "No runs found in database.")
		return nil
	}

	result := ReplayResult{
		Runs:         make([]ReplayRunResult, 0, len(ids)),
		TotalRuns:    len(ids),
		AllIdentical: true,
	}
	for _, id := range ids {
		report, err := st.Replay(ctx, id)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", id), err)
		}
		result.Runs = append(result.Runs, ReplayRunResult{
			RunID:        report.RunID,
			Identical:    report.Identical,
			StoredHash:   report.StoredHash,
			ReplayedHash: report.ReplayedHash,
		})
		if !report.Identical {
			result.AllIdentical = false
		}
		formatter.VerboseLog("replayed %s: identical=%v", id, report.Identical)
	}

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		for _, r := range result.Runs {
			status := "ok"
			if !r.Identical {
				status = "MISMATCH"
			}
			fmt.Fprintf(formatter.Writer, "%s  %s  %s\n", r.RunID, shortHash(r.StoredHash), status)
		}
		fmt.Fprintf(formatter.Writer, "%d runs verified\n", result.TotalRuns)
	}

	if !result.AllIdentical {
		return NewExitError(ExitFailure, "replay verification failed: stored results could not be reproduced")
	}
	return nil
}
