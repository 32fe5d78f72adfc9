package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// FiringsOptions holds flags for the firings command.
type FiringsOptions struct {
	*RootOptions
	Database string
	Rule     string
}

// FiringRecord is one persisted rule firing.
type FiringRecord struct {
	BindingHash string        `json:"binding_hash"`
	Entry       *EntrySummary `json:"entry,omitempty"` // nil when the rule emitted nothing
}

// FiringsResult holds the firings of one rule.
type FiringsResult struct {
	Rule    string         `json:"rule"`
	Firings []FiringRecord `json:"firings"`
	Emitted int            `json:"emitted"`
}

// NewFiringsCommand creates the firings command.
func NewFiringsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FiringsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "firings",
		Short: "List the bindings a rule has fired for",
		Long: `List the persisted firings of a rule, oldest first, with the entry
each firing emitted.

A binding listed here will not fire the rule again on later runs.

Examples:
  pql firings --db ./pql.db --rule tax-items
  pql firings --db ./pql.db --rule tax-items --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFirings(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Rule, "rule", "", "rule name (required)")
	_ = cmd.MarkFlagRequired("rule")

	return cmd
}

func runFirings(opts *FiringsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openStore(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	defer st.Close()

	firings, err := st.Firings(ctx, opts.Rule)
	if err != nil {
		return formatter.Fail(ExitCommandError, &LoadError{Code: ErrCodeStore, Message: err.Error(), Err: err})
	}

	result := FiringsResult{
		Rule:    opts.Rule,
		Firings: make([]FiringRecord, 0, len(firings)),
	}
	for _, f := range firings {
		record := FiringRecord{BindingHash: f.BindingHash}
		if f.EntryID != "" {
			entry, err := st.ReadEntry(ctx, f.EntryID)
			if err != nil {
				return formatter.Fail(ExitCommandError, &LoadError{Code: ErrCodeStore, Message: err.Error(), Err: err})
			}
			summary := EntrySummary{
				ID:          entry.ID,
				Description: entry.Description,
				Cause:       causeIDs(entry.Cause),
			}
			for _, e := range entry.Events {
				summary.Events = append(summary.Events, e.Type())
			}
			record.Entry = &summary
			result.Emitted += len(entry.Events)
		}
		result.Firings = append(result.Firings, record)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	if len(result.Firings) == 0 {
		fmt.Fprintf(formatter.Writer, "No firings recorded for rule: %s\n", opts.Rule)
		return nil
	}
	fmt.Fprintf(formatter.Writer, "Rule %s: %d firing(s), %d event(s) emitted\n",
		result.Rule, len(result.Firings), result.Emitted)
	for _, r := range result.Firings {
		if r.Entry == nil {
			fmt.Fprintf(formatter.Writer, "  %s (no entry)\n", shortHash(r.BindingHash))
			continue
		}
		fmt.Fprintf(formatter.Writer, "  %s → %s %v caused by %v\n",
			shortHash(r.BindingHash), r.Entry.ID, r.Entry.Events, r.Entry.Cause)
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
