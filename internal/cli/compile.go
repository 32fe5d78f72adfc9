package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/pql/internal/ast"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult describes a compiled pattern.
type CompilationResult struct {
	PQL        string   `json:"pql"`
	Statements []string `json:"statements"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <pattern.pql>",
		Short: "Check a PQL pattern and print its normalised form",
		Long: `Compile a PQL pattern without applying it.

Syntax errors, structural errors (duplicate names, bad join targets) and
unsupported constructs are reported with their error code. On success the
pattern is printed in normalised form.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the normalised pattern to a file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	block, err := loadPattern(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	result := CompilationResult{
		PQL:        ast.Format(block),
		Statements: make([]string, len(block.Statements)),
	}
	for i, stmt := range block.Statements {
		result.Statements[i] = stmt.Name
	}
	formatter.VerboseLog("Compiled %d statement(s) from %s", len(block.Statements), path)

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(result.PQL+"\n"), 0o644); err != nil {
			return formatter.Fail(ExitCommandError, &LoadError{
				Code:    ErrCodeWriteFailed,
				Message: fmt.Sprintf("writing output file: %v", err),
				Err:     err,
			})
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintln(formatter.Writer, result.PQL)
	if opts.Output != "" {
		fmt.Fprintf(formatter.GetErrWriter(), "Wrote normalised pattern to %s\n", opts.Output)
	}
	return nil
}
