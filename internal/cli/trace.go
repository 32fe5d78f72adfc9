package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/pql/internal/event"
	"github.com/roach88/pql/internal/querysql"
	"github.com/roach88/pql/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	EventID  string
}

// TraceNode is one event in the causal graph around the traced event.
type TraceNode struct {
	Depth int         `json:"depth"`
	Event event.Event `json:"event"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Event   event.Event `json:"event"`
	Causes  []TraceNode `json:"causes"`  // events the traced event was caused by, transitively
	Effects []TraceNode `json:"effects"` // events caused by the traced event, transitively
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the causal chain of a stored event",
		Long: `Follow caused_by links from a stored event.

Causes are the events that made rules emit it, back to events nobody
emitted. Effects are the events rules emitted because of it.

An id that parses as an integer matches both integer and string ids.

Examples:
  pql trace --db ./pql.db --event 1
  pql trace --db ./pql.db --event 0190c9e4-6b1a-7c2e-9f0a-3d5e8b7a1c24 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.EventID, "event", "", "id of the event to trace (required)")
	_ = cmd.MarkFlagRequired("event")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
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

	found, err := findByID(ctx, st, idValues(opts.EventID))
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	if len(found) == 0 {
		return formatter.Fail(ExitFailure, &LoadError{
			Code:    ErrCodeNotFound,
			Message: fmt.Sprintf("no event with id %s", opts.EventID),
		})
	}

	root := found[0]
	causes, err := traceCauses(ctx, st, root)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	all, err := st.All(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, &LoadError{Code: ErrCodeStore, Message: err.Error(), Err: err})
	}

	result := TraceResult{
		Event:   root,
		Causes:  causes,
		Effects: traceEffects(all, root),
	}
	if formatter.JSON() {
		return outputTraceJSON(cmd, result)
	}
	outputTraceText(formatter, result)
	return nil
}

// idValues returns the id values a command line id may stand for.
func idValues(id string) event.List {
	values := event.List{event.String(id)}
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		values = append(event.List{event.Int(n)}, values...)
	}
	return values
}

func findByID(ctx context.Context, st *store.Store, ids event.List) (event.Stream, error) {
	stream, err := st.Select(ctx, querysql.Select{
		Filter: querysql.In{Field: event.FieldID, Values: ids},
	})
	if err != nil {
		return nil, &LoadError{Code: ErrCodeStore, Message: err.Error(), Err: err}
	}
	return stream, nil
}

// traceCauses walks caused_by breadth first. Each event appears once, at
// the depth it is first reached.
func traceCauses(ctx context.Context, st *store.Store, root event.Event) ([]TraceNode, error) {
	seen := event.List{root.ID()}
	nodes := []TraceNode{}

	frontier := event.Stream{root}
	for depth := 1; len(frontier) > 0; depth++ {
		var next event.Stream
		for _, e := range frontier {
			cause, ok := e.Get(event.FieldCausedBy).(event.List)
			if !ok {
				continue
			}
			var ids event.List
			for _, id := range cause {
				if !event.Contains(seen, id) {
					seen = append(seen, id)
					ids = append(ids, id)
				}
			}
			if len(ids) == 0 {
				continue
			}
			parents, err := findByID(ctx, st, ids)
			if err != nil {
				return nil, err
			}
			for _, p := range parents {
				nodes = append(nodes, TraceNode{Depth: depth, Event: p})
			}
			next = append(next, parents...)
		}
		frontier = next
	}
	return nodes, nil
}

// traceEffects finds the events whose caused_by reaches root, in stream
// order within each depth.
func traceEffects(stream event.Stream, root event.Event) []TraceNode {
	reached := event.List{root.ID()}
	nodes := []TraceNode{}

	frontier := event.List{root.ID()}
	for depth := 1; len(frontier) > 0; depth++ {
		var next event.List
		for _, e := range stream {
			if event.Contains(reached, e.ID()) {
				continue
			}
			cause := e.Get(event.FieldCausedBy)
			if len(event.Intersection(cause, frontier)) == 0 {
				continue
			}
			reached = append(reached, e.ID())
			next = append(next, e.ID())
			nodes = append(nodes, TraceNode{Depth: depth, Event: e})
		}
		frontier = next
	}
	return nodes
}

// outputTraceJSON outputs the trace as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(CLIResponse{
		Status: "ok",
		Data:   result,
	})
}

// outputTraceText outputs the trace as an indented listing.
func outputTraceText(formatter *OutputFormatter, result TraceResult) {
	w := formatter.Writer
	fmt.Fprintf(w, "Event: %s\n", result.Event)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Causes (%d):\n", len(result.Causes))
	for _, n := range result.Causes {
		fmt.Fprintf(w, "%s← %s\n", strings.Repeat("  ", n.Depth), n.Event)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Effects (%d):\n", len(result.Effects))
	for _, n := range result.Effects {
		fmt.Fprintf(w, "%s→ %s\n", strings.Repeat("  ", n.Depth), n.Event)
	}
}
