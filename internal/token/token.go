package token

import "fmt"

type TokenType string

type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{} // int64, float64, rune, string or bool for literal tokens
	Line    int
	Column  int
	// EndLine/EndColumn point just past the last character of the token.
	EndLine   int
	EndColumn int
}

// Span locates a source range. Lines and columns are 1-based; End is exclusive.
type Span struct {
	File      string
	Line      int
	Column    int
	EndLine   int
	EndColumn int
}

func (t Token) Span(file string) Span {
	return Span{File: file, Line: t.Line, Column: t.Column, EndLine: t.EndLine, EndColumn: t.EndColumn}
}

// To returns a span from the start of s to the end of other.
func (s Span) To(other Span) Span {
	return Span{File: s.File, Line: s.Line, Column: s.Column, EndLine: other.EndLine, EndColumn: other.EndColumn}
}

// Before reports whether s starts before o.
func (s Span) Before(o Span) bool {
	if s.File != o.File {
		return s.File < o.File
	}
	if s.Line != o.Line {
		return s.Line < o.Line
	}
	return s.Column < o.Column
}

func (s Span) String() string {
	if s.File == "" {
		return fmt.Sprintf("%d:%d", s.Line, s.Column)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"
	NEWLINE TokenType = "NEWLINE"

	IDENT_LOWER TokenType = "IDENT_LOWER" // values, functions, modules
	IDENT_UPPER TokenType = "IDENT_UPPER" // types, constructors, foreign classes
	INT         TokenType = "INT"
	LONG        TokenType = "LONG"
	FLOAT       TokenType = "FLOAT"
	DOUBLE      TokenType = "DOUBLE"
	CHAR        TokenType = "CHAR"
	STRING      TokenType = "STRING"

	ASSIGN     TokenType = "="
	PLUS       TokenType = "+"
	MINUS      TokenType = "-"
	ASTERISK   TokenType = "*"
	SLASH      TokenType = "/"
	PERCENT    TokenType = "%"
	BANG       TokenType = "!"
	EQ         TokenType = "=="
	NOT_EQ     TokenType = "!="
	LT         TokenType = "<"
	LTE        TokenType = "<="
	GT         TokenType = ">"
	GTE        TokenType = ">="
	AND        TokenType = "&&"
	OR         TokenType = "||"
	PIPE_GT    TokenType = "|>"
	ARROW      TokenType = "->"
	HASH       TokenType = "#"
	DOT        TokenType = "."
	COMMA      TokenType = ","
	COLON      TokenType = ":"
	SEMI       TokenType = ";"
	LPAREN     TokenType = "("
	RPAREN     TokenType = ")"
	LBRACE     TokenType = "{"
	RBRACE     TokenType = "}"
	LBRACKET   TokenType = "["
	RBRACKET   TokenType = "]"
	UNDERSCORE TokenType = "_"

	MODULE  TokenType = "module"
	IMPORT  TokenType = "import"
	USE     TokenType = "use"
	FOREIGN TokenType = "foreign"
	PUB     TokenType = "pub"
	STRUCT  TokenType = "struct"
	VARIANT TokenType = "variant"
	TYPE    TokenType = "type"
	FN      TokenType = "fn"
	LET     TokenType = "let"
	LOOP    TokenType = "loop"
	RECUR   TokenType = "recur"
	IF      TokenType = "if"
	ELSE    TokenType = "else"
	MATCH   TokenType = "match"
	AS      TokenType = "as"
	TRUE    TokenType = "true"
	FALSE   TokenType = "false"
)

var keywords = map[string]TokenType{
	"module":  MODULE,
	"import":  IMPORT,
	"use":     USE,
	"foreign": FOREIGN,
	"pub":     PUB,
	"struct":  STRUCT,
	"variant": VARIANT,
	"type":    TYPE,
	"fn":      FN,
	"let":     LET,
	"loop":    LOOP,
	"recur":   RECUR,
	"if":      IF,
	"else":    ELSE,
	"match":   MATCH,
	"as":      AS,
	"true":    TRUE,
	"false":   FALSE,
}

// LookupIdent classifies an identifier as keyword, type-case or value-case.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	if ident == "_" {
		return UNDERSCORE
	}
	if ident[0] >= 'A' && ident[0] <= 'Z' {
		return IDENT_UPPER
	}
	return IDENT_LOWER
}
