package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/funvibe/sasquach/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
		l.ch = r
		l.position = l.readPosition
		l.readPosition += w
		l.column++
		return
	}

	l.position = l.readPosition
	l.readPosition++
	l.column++
}

// Tokenize lexes the whole input, ending with an EOF token.
func Tokenize(input string) []token.Token {
	l := New(input)
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()
	line, col := l.line, l.column

	switch l.ch {
	case 0:
		return token.Token{Type: token.EOF, Line: line, Column: col, EndLine: line, EndColumn: col}
	case '\n':
		tok := newToken(token.NEWLINE, l.ch, line, col)
		l.readChar()
		return tok
	case '"':
		s, err := l.readString()
		if err != nil {
			return l.illegal(err.Error(), line, col)
		}
		return l.finish(token.Token{Type: token.STRING, Literal: s}, line, col)
	case '\'':
		r, err := l.readCharLiteral()
		if err != nil {
			return l.illegal(err.Error(), line, col)
		}
		return l.finish(token.Token{Type: token.CHAR, Literal: r}, line, col)
	}

	if isLetter(l.ch) {
		ident := l.readIdentifier()
		typ := token.LookupIdent(ident)
		tok := token.Token{Type: typ, Lexeme: ident, Literal: ident}
		switch typ {
		case token.TRUE:
			tok.Literal = true
		case token.FALSE:
			tok.Literal = false
		}
		tok.Line, tok.Column = line, col
		tok.EndLine, tok.EndColumn = l.line, l.column
		return tok
	}
	if isDigit(l.ch) {
		return l.readNumber()
	}

	typ, width := l.operator()
	if typ == token.ILLEGAL {
		ch := l.ch
		l.readChar()
		return l.illegal(fmt.Sprintf("unexpected character %q", ch), line, col)
	}
	for i := 0; i < width; i++ {
		l.readChar()
	}
	return l.finish(token.Token{Type: typ}, line, col)
}

// operator classifies punctuation at the current position and reports how
// many characters it spans.
func (l *Lexer) operator() (token.TokenType, int) {
	two := string(l.ch) + string(l.peekChar())
	switch two {
	case "==":
		return token.EQ, 2
	case "!=":
		return token.NOT_EQ, 2
	case "<=":
		return token.LTE, 2
	case ">=":
		return token.GTE, 2
	case "&&":
		return token.AND, 2
	case "||":
		return token.OR, 2
	case "|>":
		return token.PIPE_GT, 2
	case "->":
		return token.ARROW, 2
	}
	switch l.ch {
	case '=':
		return token.ASSIGN, 1
	case '+':
		return token.PLUS, 1
	case '-':
		return token.MINUS, 1
	case '*':
		return token.ASTERISK, 1
	case '/':
		return token.SLASH, 1
	case '%':
		return token.PERCENT, 1
	case '!':
		return token.BANG, 1
	case '<':
		return token.LT, 1
	case '>':
		return token.GT, 1
	case '#':
		return token.HASH, 1
	case '.':
		return token.DOT, 1
	case ',':
		return token.COMMA, 1
	case ':':
		return token.COLON, 1
	case ';':
		return token.SEMI, 1
	case '(':
		return token.LPAREN, 1
	case ')':
		return token.RPAREN, 1
	case '{':
		return token.LBRACE, 1
	case '}':
		return token.RBRACE, 1
	case '[':
		return token.LBRACKET, 1
	case ']':
		return token.RBRACKET, 1
	}
	return token.ILLEGAL, 0
}

// finish stamps the position and the lexeme consumed since (line, col).
func (l *Lexer) finish(tok token.Token, line, col int) token.Token {
	tok.Line, tok.Column = line, col
	tok.EndLine, tok.EndColumn = l.line, l.column
	if tok.Lexeme == "" {
		tok.Lexeme = string(tok.Type)
	}
	return tok
}

func (l *Lexer) illegal(msg string, line, col int) token.Token {
	return token.Token{Type: token.ILLEGAL, Lexeme: msg, Literal: msg, Line: line, Column: col, EndLine: l.line, EndColumn: l.column}
}

func (l *Lexer) readString() (string, error) {
	var sb strings.Builder
	l.readChar() // opening quote
	for {
		switch l.ch {
		case 0, '\n':
			return "", fmt.Errorf("unterminated string literal")
		case '"':
			l.readChar()
			return sb.String(), nil
		case '\\':
			r, err := l.readEscape()
			if err != nil {
				return "", err
			}
			sb.WriteRune(r)
		default:
			sb.WriteRune(l.ch)
			l.readChar()
		}
	}
}

func (l *Lexer) readCharLiteral() (rune, error) {
	l.readChar() // opening quote
	var r rune
	switch l.ch {
	case 0, '\n', '\'':
		return 0, fmt.Errorf("empty or unterminated char literal")
	case '\\':
		var err error
		if r, err = l.readEscape(); err != nil {
			return 0, err
		}
	default:
		r = l.ch
		l.readChar()
	}
	if l.ch != '\'' {
		return 0, fmt.Errorf("char literal must contain exactly one character")
	}
	l.readChar()
	if r > 0xFFFF {
		return 0, fmt.Errorf("char literal %q does not fit in 16 bits", r)
	}
	return r, nil
}

// readEscape consumes a backslash escape and returns the rune it denotes.
func (l *Lexer) readEscape() (rune, error) {
	l.readChar() // backslash
	ch := l.ch
	l.readChar()
	switch ch {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case '0':
		return 0, nil
	case '\\', '"', '\'':
		return ch, nil
	case 'u':
		start := l.position
		for i := 0; i < 4; i++ {
			if !isHexDigit(l.ch) {
				return 0, fmt.Errorf("\\u escape needs 4 hex digits")
			}
			l.readChar()
		}
		v, _ := strconv.ParseUint(l.input[start:l.position], 16, 32)
		return rune(v), nil
	}
	return 0, fmt.Errorf("unknown escape sequence \\%c", ch)
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber lexes 12, 0x1F, 12L, 1.5, 1.5e3, 1.5f, 2d.
func (l *Lexer) readNumber() token.Token {
	startLine, startCol := l.line, l.column
	position := l.position
	hex := false
	isFloat := false

	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		hex = true
		for isHexDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	} else {
		for isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
		if l.ch == '.' && isDigit(l.peekChar()) {
			isFloat = true
			l.readChar()
			for isDigit(l.ch) || l.ch == '_' {
				l.readChar()
			}
		}
		if l.ch == 'e' || l.ch == 'E' {
			next := l.peekChar()
			if isDigit(next) || next == '-' || next == '+' {
				isFloat = true
				l.readChar()
				if l.ch == '-' || l.ch == '+' {
					l.readChar()
				}
				for isDigit(l.ch) {
					l.readChar()
				}
			}
		}
	}

	digits := strings.ReplaceAll(l.input[position:l.position], "_", "")
	typ := token.INT
	switch {
	case l.ch == 'L' || l.ch == 'l':
		typ = token.LONG
		l.readChar()
	case !hex && (l.ch == 'f' || l.ch == 'F'):
		typ = token.FLOAT
		l.readChar()
	case !hex && (l.ch == 'd' || l.ch == 'D'):
		typ = token.DOUBLE
		l.readChar()
	case isFloat:
		typ = token.DOUBLE
	}
	lexeme := l.input[position:l.position]
	tok := token.Token{Type: typ, Lexeme: lexeme, Line: startLine, Column: startCol, EndLine: l.line, EndColumn: l.column}

	if isLetter(l.ch) {
		return l.illegal(fmt.Sprintf("invalid suffix on number literal %s", lexeme), startLine, startCol)
	}
	if isFloat && typ == token.LONG {
		return l.illegal("long literal cannot have a fraction", startLine, startCol)
	}

	switch typ {
	case token.FLOAT, token.DOUBLE:
		val, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			return l.illegal(fmt.Sprintf("invalid number %s", lexeme), startLine, startCol)
		}
		tok.Literal = val
	default:
		val, err := strconv.ParseInt(digits, 0, 64)
		if err != nil {
			return l.illegal(fmt.Sprintf("integer literal %s overflows 64 bits", lexeme), startLine, startCol)
		}
		tok.Literal = val
	}
	return tok
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func newToken(tokenType token.TokenType, ch rune, line, col int) token.Token {
	literal := string(ch)
	return token.Token{Type: tokenType, Lexeme: literal, Literal: literal, Line: line, Column: col, EndLine: line, EndColumn: col + 1}
}

func (l *Lexer) skipWhitespace() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == '/' {
			if l.peekChar() == '/' {
				for l.ch != '\n' && l.ch != 0 {
					l.readChar()
				}
				continue
			} else if l.peekChar() == '*' {
				l.readChar()
				l.readChar()
				for l.ch != 0 {
					if l.ch == '*' && l.peekChar() == '/' {
						l.readChar()
						l.readChar()
						break
					}
					l.readChar()
				}
				continue
			}
		}
		break
	}
}
