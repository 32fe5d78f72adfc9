package parser

// TokenType represents the type of a lexical token.
type TokenType uint8

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenString  // "hello"
	TokenInteger // 42, -7
	TokenFloat   // 3.14, -0.5
	TokenRegex   // /pattern/
	TokenName    // field or statement name
	TokenKeyword // MATCH, WHERE, AND, ...

	// Grouping symbols
	TokenParenOpen    // (
	TokenParenClose   // )
	TokenBracketOpen  // [
	TokenBracketClose // ]

	// Basic symbols
	TokenComma     // ,
	TokenSemicolon // ;
	TokenDot       // .
	TokenCaret     // ^

	// Comparison symbols
	TokenEqual        // =
	TokenNotEqual     // !=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=
	TokenMatch        // =~
)

// String returns a string representation of the token type.
func (tt TokenType) String() string {
	switch tt {
	case TokenEOF:
		return "(eof)"
	case TokenError:
		return "(error)"
	case TokenString:
		return "(string)"
	case TokenInteger:
		return "(integer)"
	case TokenFloat:
		return "(float)"
	case TokenRegex:
		return "(regex)"
	case TokenName:
		return "(name)"
	case TokenKeyword:
		return "(keyword)"
	case TokenParenOpen:
		return "("
	case TokenParenClose:
		return ")"
	case TokenBracketOpen:
		return "["
	case TokenBracketClose:
		return "]"
	case TokenComma:
		return ","
	case TokenSemicolon:
		return ";"
	case TokenDot:
		return "."
	case TokenCaret:
		return "^"
	case TokenEqual:
		return "="
	case TokenNotEqual:
		return "!="
	case TokenLess:
		return "<"
	case TokenLessEqual:
		return "<="
	case TokenGreater:
		return ">"
	case TokenGreaterEqual:
		return ">="
	case TokenMatch:
		return "=~"
	default:
		return "(unknown)"
	}
}

// Token represents a lexical token in PQL source.
type Token struct {
	Type     TokenType // Type of the token
	Value    string    // Literal value of the token (string and regex without delimiters)
	Position int       // Starting byte offset in the input string
}

// symbols1 maps single-character symbols to token types.
var symbols1 = [...]TokenType{
	'(': TokenParenOpen,
	')': TokenParenClose,
	'[': TokenBracketOpen,
	']': TokenBracketClose,
	',': TokenComma,
	';': TokenSemicolon,
	'.': TokenDot,
	'^': TokenCaret,
	'=': TokenEqual,
	'<': TokenLess,
	'>': TokenGreater,
}

// runeTokenType pairs a rune with its corresponding token type.
type runeTokenType struct {
	r  rune
	tt TokenType
}

// symbols2 maps two-character symbol sequences to token types.
var symbols2 = [...][]runeTokenType{
	'!': {{'=', TokenNotEqual}},
	'<': {{'=', TokenLessEqual}},
	'>': {{'=', TokenGreaterEqual}},
	'=': {{'~', TokenMatch}},
}

func lookupSymbol1(r rune) TokenType {
	if r < 0 || int(r) >= len(symbols1) {
		return 0
	}
	return symbols1[r]
}

func lookupSymbol2(r rune) []runeTokenType {
	if r < 0 || int(r) >= len(symbols2) {
		return nil
	}
	return symbols2[r]
}

// keywords is the reserved word set. Keywords are case-sensitive and
// cannot be used as field or statement names.
var keywords = map[string]bool{
	"MATCH": true, "AS": true, "WHERE": true, "JOINING": true,

	"FIRST": true, "LAST": true, "IN": true, "ORDER": true, "BY": true,
	"DESCENDING": true, "DESC": true, "ASCENDING": true, "ASC": true,

	"NONE": true, "ALL": true, "ANY": true, "EACH": true, "GROUPED": true,

	"AND": true, "OR": true,

	"IS": true, "NOT": true, "MATCHES": true, "INCLUDES": true, "DOES": true,
	"INCLUDE": true, "EXCLUDES": true, "INTERSECTS": true, "DISJOINT": true,

	"MAX": true, "MIN": true, "SUM": true, "COUNT": true, "UNION": true,

	"NULL": true, "NOW": true,

	"SECOND": true, "SECONDS": true, "MINUTE": true, "MINUTES": true,
	"HOUR": true, "HOURS": true, "DAY": true, "DAYS": true,
	"WEEK": true, "WEEKS": true,
}

// timeUnits are the keywords accepted after an integer in a time delta.
var timeUnits = map[string]bool{
	"SECOND": true, "SECONDS": true, "MINUTE": true, "MINUTES": true,
	"HOUR": true, "HOURS": true, "DAY": true, "DAYS": true,
	"WEEK": true, "WEEKS": true,
}
