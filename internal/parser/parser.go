package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/lexer"
	"github.com/funvibe/sasquach/internal/token"
)

// MaxRecursionDepth bounds expression nesting so hostile input cannot
// overflow the Go stack.
const MaxRecursionDepth = 500

const (
	_ int = iota
	LOWEST
	PIPE        // |>
	OR          // ||
	AND         // &&
	EQUALS      // == !=
	LESSGREATER // < <= > >=
	SUM         // + -
	PRODUCT     // * / %
	CONVERSION  // as
	PREFIX      // -x !x
	CALL        // f(x) a.b
)

var precedences = map[token.TokenType]int{
	token.PIPE_GT:  PIPE,
	token.OR:       OR,
	token.AND:      AND,
	token.EQ:       EQUALS,
	token.NOT_EQ:   EQUALS,
	token.LT:       LESSGREATER,
	token.LTE:      LESSGREATER,
	token.GT:       LESSGREATER,
	token.GTE:      LESSGREATER,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.ASTERISK: PRODUCT,
	token.SLASH:    PRODUCT,
	token.PERCENT:  PRODUCT,
	token.AS:       CONVERSION,
	token.LPAREN:   CALL,
	token.DOT:      CALL,
}

type (
	prefixParseFn func() ast.Expr
	infixParseFn  func(ast.Expr) ast.Expr
)

type Parser struct {
	file   string
	tokens []token.Token
	pos    int

	curToken  token.Token
	peekToken token.Token

	errors diagnostics.List

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn

	depth int
	// noStruct is positive while parsing an if or match head, where `Name {`
	// starts the body rather than a struct literal.
	noStruct int
}

func New(file, input string) *Parser {
	p := &Parser{file: file, tokens: lexer.Tokenize(input)}

	p.prefixParseFns = map[token.TokenType]prefixParseFn{
		token.INT:         p.parseIntLiteral,
		token.LONG:        p.parseIntLiteral,
		token.FLOAT:       p.parseFloatLiteral,
		token.DOUBLE:      p.parseFloatLiteral,
		token.CHAR:        p.parseCharLiteral,
		token.STRING:      p.parseStringLiteral,
		token.TRUE:        p.parseBoolLiteral,
		token.FALSE:       p.parseBoolLiteral,
		token.IDENT_LOWER: p.parseIdentifier,
		token.IDENT_UPPER: p.parseUpperIdentifier,
		token.MINUS:       p.parsePrefixExpression,
		token.BANG:        p.parsePrefixExpression,
		token.LPAREN:      p.parseGroupedExpression,
		token.LBRACE:      p.parseBlockExpression,
		token.IF:          p.parseIfExpression,
		token.MATCH:       p.parseMatchExpression,
		token.FN:          p.parseLambda,
		token.LOOP:        p.parseLoopExpression,
		token.RECUR:       p.parseRecurExpression,
	}
	p.infixParseFns = map[token.TokenType]infixParseFn{
		token.PIPE_GT: p.parsePipeExpression,
		token.LPAREN:  p.parseCallExpression,
		token.DOT:     p.parseFieldAccess,
		token.AS:      p.parseConversion,
	}
	for _, op := range []token.TokenType{
		token.OR, token.AND, token.EQ, token.NOT_EQ, token.LT, token.LTE, token.GT, token.GTE,
		token.PLUS, token.MINUS, token.ASTERISK, token.SLASH, token.PERCENT,
	} {
		p.infixParseFns[op] = p.parseInfixExpression
	}

	p.pos = -2
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses one source file into a module. Syntax errors are reported as
// diagnostics; the returned module is then incomplete and must not be
// handed to later passes.
func Parse(file, input string) (*ast.Module, diagnostics.List) {
	p := New(file, input)
	mod := p.ParseModule()
	return mod, p.errors
}

func (p *Parser) Errors() diagnostics.List { return p.errors }

func (p *Parser) nextToken() {
	p.pos++
	p.curToken = p.at(p.pos)
	p.peekToken = p.at(p.pos + 1)
}

func (p *Parser) at(i int) token.Token {
	if i < 0 {
		return token.Token{}
	}
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *Parser) curTokenIs(t token.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken.Type == t }

// peekPastNewlines returns the first non-newline token after the current one.
func (p *Parser) peekPastNewlines() token.Token {
	for i := p.pos + 1; ; i++ {
		tok := p.at(i)
		if tok.Type != token.NEWLINE {
			return tok
		}
	}
}

// skipPeekNewlines advances until the peek token is not a newline.
func (p *Parser) skipPeekNewlines() {
	for p.peekTokenIs(token.NEWLINE) {
		p.nextToken()
	}
}

func (p *Parser) skipNewlines() {
	for p.curTokenIs(token.NEWLINE) || p.curTokenIs(token.SEMI) {
		p.nextToken()
	}
}

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t token.TokenType) {
	p.errorAt(p.peekToken, "expected %s, got %s", describe(t), describeToken(p.peekToken))
}

func (p *Parser) errorAt(tok token.Token, format string, args ...interface{}) {
	if tok.Type == token.ILLEGAL {
		p.errors.Add(diagnostics.NewError(diagnostics.SyntaxError, tok, p.file, "%s", tok.Lexeme))
		return
	}
	p.errors.Add(diagnostics.NewError(diagnostics.SyntaxError, tok, p.file, format, args...))
}

func (p *Parser) span(tok token.Token) token.Span { return tok.Span(p.file) }

// spanFrom covers start through the current token.
func (p *Parser) spanFrom(start token.Token) token.Span {
	return p.span(start).To(p.span(p.curToken))
}

func describe(t token.TokenType) string {
	switch t {
	case token.IDENT_LOWER:
		return "lower-case identifier"
	case token.IDENT_UPPER:
		return "upper-case identifier"
	case token.NEWLINE:
		return "newline"
	case token.EOF:
		return "end of file"
	}
	return fmt.Sprintf("'%s'", string(t))
}

func describeToken(tok token.Token) string {
	switch tok.Type {
	case token.IDENT_LOWER, token.IDENT_UPPER, token.INT, token.LONG, token.FLOAT, token.DOUBLE:
		return fmt.Sprintf("'%s'", tok.Lexeme)
	case token.STRING:
		return "string literal"
	case token.CHAR:
		return "char literal"
	}
	return describe(tok.Type)
}

// DefaultModuleName derives a module name from a file path when the file has
// no module declaration: src/app/main.sasq becomes Main.
func DefaultModuleName(file string) string {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	if base == "" || base == "." {
		return "Main"
	}
	r := []rune(base)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
