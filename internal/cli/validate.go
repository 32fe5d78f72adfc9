package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pql/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Rules    int                        `json:"rules"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <rules>",
		Short: "Validate CUE rules without applying them",
		Long: `Validate the rules in a CUE file or directory without touching a store.

Patterns are compiled, bind paths are checked against statement names,
and emitted and matched types are checked against the taxonomy. Rules
that can trigger each other are reported as warnings.

Exit codes:
  0 - All rules valid (warnings allowed)
  1 - Validation errors found
  2 - Command error (path not found, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, rulesPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	defs, err := loadRules(rulesPath)
	if err != nil {
		var compileErr *compiler.CompileError
		if !errors.As(err, &compileErr) {
			return formatter.Fail(ExitCommandError, err)
		}
		code, _ := errorCode(err)
		return outputValidationErrors(formatter, ValidationResult{
			Errors: []compiler.ValidationError{{
				Field:   compileErr.Field,
				Message: compileErr.Message,
				Code:    code,
				Line:    compileErr.Pos.Line(),
			}},
		})
	}

	for _, spec := range defs.Rules {
		formatter.VerboseLog("Validating rule: %s", spec.Config.Name)
	}

	result := ValidationResult{
		Rules:    len(defs.Rules),
		Errors:   compiler.Validate(defs),
		Warnings: compiler.AnalyzeCycles(defs.Rules),
	}
	if len(result.Errors) > 0 {
		return outputValidationErrors(formatter, result)
	}

	result.Valid = true
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ All %d rule(s) valid\n", result.Rules)
	printWarnings(formatter, result.Warnings)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.JSON() {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	printWarnings(formatter, result.Warnings)

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

func printWarnings(formatter *OutputFormatter, warnings []compiler.CycleWarning) {
	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "⚠ %s\n", w.Message)
	}
}
