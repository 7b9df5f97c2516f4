package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/apexcost/riskengine/internal/store"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// ListEntry is one run in the list command's JSON payload.
type ListEntry struct {
	RunID      string    `json:"run_id"`
	InputHash  string    `json:"input_hash"`
	Seed       uint64    `json:"seed"`
	Iterations int       `json:"iterations"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Long: `List runs recorded in the audit ledger, newest first.

Examples:
  riskengine list --db runs.db
  riskengine list --db runs.db --limit 10 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite audit ledger (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
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

	recs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	entries := make([]ListEntry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, ListEntry{
			RunID:      rec.ID,
			InputHash:  rec.InputHash,
			Seed:       rec.Seed,
			Iterations: rec.Iterations,
			CreatedAt:  rec.CreatedAt,
		})
	}

	if opts.Format == "json" {
		return formatter.Success(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs found in database.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(formatter.Writer, "%s  %s  seed=%d  n=%d  %s\n",
			e.RunID, shortHash(e.InputHash), e.Seed, e.Iterations,
			e.CreatedAt.Format(time.RFC3339))
	}
	return nil
}
