package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Database string
}

// IngestResult reports what an ingest stored.
type IngestResult struct {
	Read     int `json:"read"`
	Inserted int `json:"inserted"`
	Total    int `json:"total"`
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <events.json>",
		Short: "Append a JSON stream to the store",
		Long: `Append the events of a JSON stream to a SQLite store, creating the
database if it doesn't exist. Events already stored with the same content
are skipped, so ingesting a file twice stores it once.

Example:
  pql ingest --db ./pql.db events.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runIngest(opts *IngestOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	stream, err := loadStream(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	st, err := openStore(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	defer st.Close()

	inserted, err := st.AppendEvents(ctx, stream)
	if err != nil {
		return formatter.Fail(ExitCommandError, &LoadError{Code: ErrCodeStore, Message: err.Error(), Err: err})
	}
	total, err := st.Count(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, &LoadError{Code: ErrCodeStore, Message: err.Error(), Err: err})
	}

	result := IngestResult{Read: len(stream), Inserted: inserted, Total: total}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Ingested %d of %d event(s) (%d skipped), %d stored\n",
		result.Inserted, result.Read, result.Read-result.Inserted, result.Total)
	return nil
}
