package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/pql/internal/compiler"
	"github.com/roach88/pql/internal/engine"
	"github.com/roach88/pql/internal/event"
	"github.com/roach88/pql/internal/rule"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database   string
	MaxEntries int

	// IDGenerator overrides the generator for entry and event ids (for
	// testing). If nil, defaults to UUIDv7Generator.
	IDGenerator rule.IDGenerator
}

// RunResult summarizes one rule set application.
type RunResult struct {
	Rules    int                      `json:"rules"`
	Entries  []EntrySummary           `json:"entries"`
	Emitted  int                      `json:"emitted"`
	Warnings []compiler.CycleWarning `json:"warnings,omitempty"`
}

// EntrySummary describes one persisted entry.
type EntrySummary struct {
	ID          string   `json:"id"`
	Description string   `json:"description,omitempty"`
	Cause       []any    `json:"cause"`
	Events      []string `json:"events"` // emitted event types
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <rules>",
		Short: "Apply CUE rules to the stored stream",
		Long: `Apply the rules in a CUE file or directory to the stream in a store.

Rules run once each, in file name then declaration order. Events a rule
emits are visible to the rules after it. Emitted entries and rule firings
are persisted in one transaction, and a rule never fires twice for the
same binding, so running again only acts on new events.

Example:
  pql run --db ./pql.db ./rules
  pql run --db ./pql.db ./rules/tax.cue --max-entries 100 --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&opts.MaxEntries, "max-entries", rule.DefaultMaxEntries, "maximum entries one run may emit")

	return cmd
}

func runRules(opts *RunOptions, rulesPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Debug("loading rules", "path", rulesPath)
	defs, err := loadRules(rulesPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	warnings := compiler.AnalyzeCycles(defs.Rules)
	for _, w := range warnings {
		logger.Warn(w.Message, "path", w.Path)
	}

	ruleOpts := []rule.Option{
		rule.WithLogger(logger),
		rule.WithEngineOptions(engine.WithLogger(logger)),
	}
	if opts.IDGenerator != nil {
		ruleOpts = append(ruleOpts, rule.WithIDGenerator(opts.IDGenerator))
	}
	rules, err := defs.Build(ruleOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	logger.Debug("rules loaded", "rules", len(rules))

	st, err := openStore(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	stream, err := st.All(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, &LoadError{Code: ErrCodeStore, Message: err.Error(), Err: err})
	}

	rs := rule.NewRuleSet(rules,
		rule.WithMaxEntries(opts.MaxEntries),
		rule.WithSetLogger(logger),
	)
	entries, err := rs.Apply(ctx, stream, st.Begin())
	switch {
	case rule.IsEntriesExceededError(err):
		return formatter.Fail(ExitFailure, err)
	case err != nil:
		return formatter.Fail(ExitCommandError, err)
	}

	result := RunResult{
		Rules:    len(rules),
		Entries:  make([]EntrySummary, 0, len(entries)),
		Warnings: warnings,
	}
	for _, entry := range entries {
		summary := EntrySummary{
			ID:          entry.ID,
			Description: entry.Description,
			Cause:       causeIDs(entry.Cause),
		}
		for _, e := range entry.Events {
			summary.Events = append(summary.Events, e.Type())
		}
		result.Entries = append(result.Entries, summary)
		result.Emitted += len(entry.Events)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Applied %d rule(s): %d new entries, %d event(s) emitted\n",
		result.Rules, len(result.Entries), result.Emitted)
	for _, entry := range result.Entries {
		fmt.Fprintf(formatter.Writer, "  %s %v caused by %v\n", entry.ID, entry.Events, entry.Cause)
	}
	return nil
}

func causeIDs(cause event.List) []any {
	ids := make([]any, len(cause))
	for i, id := range cause {
		ids[i] = event.ToGo(id)
	}
	return ids
}
