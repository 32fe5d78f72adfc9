package ast

import (
	"strconv"
	"strings"
)

// Format renders a block as canonical PQL source, one statement per line.
// Compiling the output yields a block equal to b.
func Format(b *Block) string {
	var sb strings.Builder
	for i, s := range b.Statements {
		if i > 0 {
			sb.WriteByte('\n')
		}
		formatStatement(&sb, s)
		sb.WriteByte(';')
	}
	return sb.String()
}

// FormatCondition renders a condition as PQL source.
func FormatCondition(c *Condition) string {
	var sb strings.Builder
	formatCondition(&sb, c)
	return sb.String()
}

func formatStatement(sb *strings.Builder, s *Statement) {
	sb.WriteString("MATCH")
	for _, m := range s.Modifiers {
		sb.WriteByte(' ')
		formatModifier(sb, m)
	}
	if s.Name != "" {
		sb.WriteString(" AS ")
		sb.WriteString(s.Name)
	}
	sb.WriteString(" WHERE ")
	formatCondition(sb, s.Where)
	if s.Join != nil {
		sb.WriteString(" JOINING ")
		sb.WriteString(s.Join.Target)
		sb.WriteString(" WHERE ")
		formatCondition(sb, s.Join.Where)
	}
}

func formatModifier(sb *strings.Builder, m Modifier) {
	switch mod := m.(type) {
	case *Limit:
		sb.WriteString(mod.Kind.String())
		if mod.Explicit {
			sb.WriteByte(' ')
			sb.WriteString(strconv.Itoa(mod.Count))
		}
	case *Order:
		sb.WriteString("BY ")
		sb.WriteString(mod.Field)
		if mod.Descending {
			sb.WriteString(" DESCENDING")
		}
	case *Cardinality:
		sb.WriteString(mod.Kind.String())
		if mod.Kind == CardinalityGroupedBy {
			sb.WriteByte(' ')
			sb.WriteString(mod.Field)
		}
	}
}

func formatCondition(sb *strings.Builder, c *Condition) {
	formatOperand(sb, c.First)
	for _, clause := range c.Rest {
		sb.WriteByte(' ')
		sb.WriteString(clause.Op.String())
		sb.WriteByte(' ')
		formatOperand(sb, clause.Operand)
	}
}

func formatOperand(sb *strings.Builder, op Operand) {
	switch o := op.(type) {
	case *Condition:
		sb.WriteByte('(')
		formatCondition(sb, o)
		sb.WriteByte(')')
	case *Comparison:
		formatSide(sb, o.Left)
		sb.WriteByte(' ')
		sb.WriteString(o.Op.String())
		sb.WriteByte(' ')
		formatSide(sb, o.Right)
	}
}

func formatSide(sb *strings.Builder, side Side) {
	switch s := side.(type) {
	case *ValueExpression:
		sb.WriteByte('(')
		if s.Reducer != ReduceNone {
			sb.WriteString(s.Reducer.String())
			sb.WriteByte(' ')
		}
		for _, m := range s.Subset {
			formatModifier(sb, m)
			sb.WriteByte(' ')
		}
		sb.WriteString(s.Field)
		sb.WriteString(" WHERE ")
		formatCondition(sb, s.Where)
		sb.WriteByte(')')
	case *Reference:
		sb.WriteString(strings.Repeat("^", s.Escapes))
		if s.Subject != "" {
			sb.WriteString(s.Subject)
			sb.WriteByte('.')
		}
		sb.WriteString(s.Field)
	case *StringLiteral:
		sb.WriteString(QuoteString(s.Value))
	case *IntegerLiteral:
		sb.WriteString(strconv.FormatInt(s.Value, 10))
	case *FloatLiteral:
		sb.WriteString(formatFloat(s.Value))
	case *RegexpLiteral:
		sb.WriteByte('/')
		sb.WriteString(s.Value.String())
		sb.WriteByte('/')
	case *NullLiteral:
		sb.WriteString("NULL")
	case *NowLiteral:
		sb.WriteString("NOW")
	case *ListLiteral:
		sb.WriteByte('[')
		for i, elem := range s.Elements {
			if i > 0 {
				sb.WriteString(", ")
			}
			formatSide(sb, elem)
		}
		sb.WriteByte(']')
	case *TimeDeltaLiteral:
		sb.WriteString(strconv.FormatInt(s.Amount, 10))
		sb.WriteByte(' ')
		sb.WriteString(s.Unit)
	}
}

// QuoteString renders s as a PQL string literal. Backslash, double quote,
// newline and tab are escaped.
func QuoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
