package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pql/internal/compiler"
)

func TestValidate_Valid(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/rules")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All 2 rule(s) valid")
}

func TestValidate_ValidJSON(t *testing.T) {
	out, _, err := execute(t, "validate", "--format", "json", "testdata/rules/tax.cue")
	require.NoError(t, err)

	status, result := decodeData[ValidationResult](t, out)
	assert.Equal(t, "ok", status)
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.Rules)
	assert.Empty(t, result.Errors)
}

func TestValidate_CycleIsWarning(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/rules-cycle")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All 1 rule(s) valid")
	assert.Contains(t, out, "⚠ rule echo can match events it emits")
}

func TestValidate_Invalid(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/rules-invalid")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, compiler.ErrUnknownType)
	assert.Contains(t, out, compiler.ErrUnboundName)
	assert.Contains(t, err.Error(), "validation failed with 2 error(s)")
}

func TestValidate_InvalidJSON(t *testing.T) {
	out, _, err := execute(t, "validate", "--format", "json", "testdata/rules-invalid")
	require.Error(t, err)

	status, result := decodeData[ValidationResult](t, out)
	assert.Equal(t, "error", status)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, compiler.ErrUnknownType, result.Errors[0].Code)
	assert.Equal(t, "rule.tax-items.emit[0].bind.applied_to", result.Errors[1].Field)
}

func TestValidate_PatternSyntaxError(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/rules-syntax")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "line 2")
	assert.Contains(t, out, ErrCodeSyntax+": pattern:")
}

func TestValidate_NotFound(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/no-rules")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeNotFound+"]")
}
