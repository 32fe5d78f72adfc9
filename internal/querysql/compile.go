package querysql

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/roach88/pql/internal/event"
)

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLCompiler compiles Selects against one table of JSON event documents.
type SQLCompiler struct {
	Table  string // table name, default "events"
	Column string // JSON document column, default "body"
}

// NewSQLCompiler returns a compiler for the store's events table.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{Table: "events", Column: "body"}
}

// Compile converts q to SQL and its parameters. Every query ends with
// ORDER BY seq ASC, key ASC COLLATE BINARY.
func (c *SQLCompiler) Compile(q Select) (string, []any, error) {
	var (
		where  string
		params []any
	)
	if q.Filter != nil {
		sql, p, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		where = " WHERE " + sql
		params = p
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY seq ASC, key ASC COLLATE BINARY",
		c.Column, c.Table, where)
	if q.Limit > 0 {
		sql += " LIMIT ?"
		params = append(params, q.Limit)
	}
	return sql, params, nil
}

func (c *SQLCompiler) compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case Equals:
		return c.compileEquals(pred)
	case *Equals:
		return c.compileEquals(*pred)
	case In:
		return c.compileIn(pred)
	case *In:
		return c.compileIn(*pred)
	case And:
		return c.compileAnd(pred)
	case *And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SQLCompiler) compileEquals(eq Equals) (string, []any, error) {
	path, err := fieldPath(eq.Field)
	if err != nil {
		return "", nil, err
	}
	if event.IsNull(eq.Value) {
		return fmt.Sprintf("json_extract(%s, ?) IS NULL", c.Column), []any{path}, nil
	}
	param, err := valueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("field %q: %w", eq.Field, err)
	}
	return fmt.Sprintf("json_extract(%s, ?) = ?", c.Column), []any{path, param}, nil
}

func (c *SQLCompiler) compileIn(in In) (string, []any, error) {
	path, err := fieldPath(in.Field)
	if err != nil {
		return "", nil, err
	}
	if len(in.Values) == 0 {
		return "1 = 0", nil, nil
	}

	params := []any{path}
	marks := make([]string, len(in.Values))
	for i, v := range in.Values {
		param, err := valueToParam(v)
		if err != nil {
			return "", nil, fmt.Errorf("field %q value %d: %w", in.Field, i, err)
		}
		params = append(params, param)
		marks[i] = "?"
	}
	sql := fmt.Sprintf("json_extract(%s, ?) IN (%s)", c.Column, strings.Join(marks, ", "))
	return sql, params, nil
}

func (c *SQLCompiler) compileAnd(and And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, p, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	if len(parts) == 1 {
		return parts[0], params, nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", params, nil
}

func fieldPath(field string) (string, error) {
	if !fieldPattern.MatchString(field) {
		return "", fmt.Errorf("invalid field name %q", field)
	}
	return "$." + field, nil
}

// valueToParam converts a scalar value to the form json_extract returns
// for it. JSON booleans come back from SQLite as 1 and 0.
func valueToParam(v event.Value) (any, error) {
	switch val := v.(type) {
	case event.String:
		return string(val), nil
	case event.Int:
		return int64(val), nil
	case event.Float:
		return float64(val), nil
	case event.Bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case event.Time:
		return val.UTC().Format(time.RFC3339Nano), nil
	case event.Null, nil:
		return nil, fmt.Errorf("null cannot be used as a parameter")
	default:
		return nil, fmt.Errorf("%T cannot be used as a SQL parameter", v)
	}
}
