package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pql/internal/engine"
	"github.com/roach88/pql/internal/event"
	"github.com/roach88/pql/internal/querysql"
)

// MatchOptions holds flags for the match command.
type MatchOptions struct {
	*RootOptions
	Stream    string   // JSON stream file
	Database  string   // SQLite store to read the stream from
	Types     []string // restrict stored events by type
	Now       string   // RFC 3339 instant for NOW
	Documents bool     // print bound events instead of ids
}

// MatchResult holds the outcome of applying a pattern.
type MatchResult struct {
	Successful  bool             `json:"successful"`
	Cardinality int              `json:"cardinality"`
	Bindings    []map[string]any `json:"bindings"`
}

// NewMatchCommand creates the match command.
func NewMatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "match <pattern.pql>",
		Short: "Apply a PQL pattern to a stream",
		Long: `Apply a PQL pattern to an event stream and print its named bindings.

The stream comes from a JSON file (--stream) or a store (--db). With --db,
--type narrows the events read from the store before matching.

Exit codes:
  0 - The pattern matched
  1 - The pattern did not match
  2 - Command error (bad pattern, unreadable stream, etc.)

Examples:
  pql match items.pql --stream events.json
  pql match items.pql --db ./pql.db --type ItemSelected --type TaxEntry
  pql match items.pql --stream events.json --now 2024-06-01T00:00:00Z --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Stream, "stream", "", "JSON file holding an array of events")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringSliceVar(&opts.Types, "type", nil, "read only stored events of this type (repeatable, requires --db)")
	cmd.Flags().StringVar(&opts.Now, "now", "", "RFC 3339 instant NOW evaluates to (default: current time)")
	cmd.Flags().BoolVar(&opts.Documents, "documents", false, "print bound events instead of their ids")
	cmd.MarkFlagsOneRequired("stream", "db")
	cmd.MarkFlagsMutuallyExclusive("stream", "db")

	return cmd
}

func runMatch(opts *MatchOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())

	engineOpts := []engine.Option{engine.WithLogger(logger)}
	if opts.Now != "" {
		now, err := time.Parse(time.RFC3339Nano, opts.Now)
		if err != nil {
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid --now: %v", err))
		}
		engineOpts = append(engineOpts, engine.WithClock(engine.FixedClock(now)))
	}
	if len(opts.Types) > 0 && opts.Database == "" {
		return NewExitError(ExitCommandError, "--type requires --db")
	}

	block, err := loadPattern(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stream, err := matchStream(ctx, opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	formatter.VerboseLog("Matching %d event(s)", len(stream))

	app, err := engine.Apply(block, stream, engineOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	result := MatchResult{
		Successful:  app.Successful(),
		Cardinality: app.Cardinality(),
		Bindings:    []map[string]any{},
	}
	for b := range app.NamedBindings() {
		result.Bindings = append(result.Bindings, bindingOutput(b, opts.Documents))
	}

	if formatter.JSON() {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		printMatch(formatter, app, result)
	}
	if !result.Successful {
		return NewExitError(ExitFailure, "pattern did not match")
	}
	return nil
}

func matchStream(ctx context.Context, opts *MatchOptions) (event.Stream, error) {
	if opts.Stream != "" {
		return loadStream(opts.Stream)
	}

	st, err := openStore(opts.Database)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	q := querysql.Select{}
	if len(opts.Types) > 0 {
		types := make(event.List, len(opts.Types))
		for i, t := range opts.Types {
			types[i] = event.String(t)
		}
		q.Filter = querysql.In{Field: event.FieldType, Values: types}
	}
	stream, err := st.Select(ctx, q)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeStore, Message: err.Error(), Err: err}
	}
	return stream, nil
}

// bindingOutput maps each name to the bound event id, or a list of ids for
// a sequence. With documents, the events themselves are used.
func bindingOutput(b engine.Binding, documents bool) map[string]any {
	out := make(map[string]any, len(b))
	for name, bound := range b {
		if documents {
			out[name] = bound.Document()
			continue
		}
		if e, ok := bound.Event(); ok {
			out[name] = event.ToGo(e.ID())
			continue
		}
		out[name] = event.ToGo(bound.Events().IDs())
	}
	return out
}

func printMatch(formatter *OutputFormatter, app *engine.BlockApplication, result MatchResult) {
	if !result.Successful {
		fmt.Fprintln(formatter.Writer, "✗ No match")
		for i, stmt := range app.Applications {
			if !stmt.Successful() {
				fmt.Fprintf(formatter.Writer, "  statement %d matched nothing\n", i+1)
			}
		}
		return
	}

	fmt.Fprintf(formatter.Writer, "✓ Matched: %d binding(s)\n", result.Cardinality)
	for i, b := range result.Bindings {
		fmt.Fprintf(formatter.Writer, "  [%d] %s\n", i+1, formatBinding(b))
	}
}

func formatBinding(b map[string]any) string {
	parts := make([]string, 0, len(b))
	for _, name := range slices.Sorted(maps.Keys(b)) {
		v, err := event.FromGo(b[name])
		if err != nil {
			parts = append(parts, fmt.Sprintf("%s=%v", name, b[name]))
			continue
		}
		parts = append(parts, name+"="+event.Format(v))
	}
	return strings.Join(parts, " ")
}
