package parser

import (
	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/token"
)

// parsePattern parses one match pattern starting at the current token:
//
//	_ | name | literal | [Mod.]Ctor | [Mod.]Ctor(p, ...) | [Mod.]Ctor { f: p, g } | (p, q, ...)
func (p *Parser) parsePattern() ast.Pattern {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxRecursionDepth {
		p.errorAt(p.curToken, "pattern too complex: recursion depth limit exceeded")
		return nil
	}

	start := p.curToken
	switch p.curToken.Type {
	case token.UNDERSCORE:
		return &ast.WildcardPattern{Span: p.span(start)}
	case token.IDENT_LOWER:
		if p.peekTokenIs(token.DOT) {
			qualifier := start.Lexeme
			p.nextToken()
			if !p.expectPeek(token.IDENT_UPPER) {
				return nil
			}
			return p.parseConstructorPattern(start, qualifier)
		}
		return &ast.BindingPattern{Span: p.span(start), Name: start.Lexeme}
	case token.IDENT_UPPER:
		if p.peekTokenIs(token.DOT) {
			qualifier := start.Lexeme
			p.nextToken()
			if !p.expectPeek(token.IDENT_UPPER) {
				return nil
			}
			return p.parseConstructorPattern(start, qualifier)
		}
		return p.parseConstructorPattern(start, "")
	case token.INT, token.LONG, token.FLOAT, token.DOUBLE, token.CHAR, token.STRING, token.TRUE, token.FALSE:
		return &ast.LiteralPattern{Span: p.span(start), Value: p.prefixParseFns[start.Type]()}
	case token.MINUS:
		if !p.peekTokenIs(token.INT) && !p.peekTokenIs(token.LONG) && !p.peekTokenIs(token.FLOAT) && !p.peekTokenIs(token.DOUBLE) {
			p.errorAt(p.peekToken, "expected numeric literal after '-' in pattern, got %s", describeToken(p.peekToken))
			return nil
		}
		value := p.parsePrefixExpression()
		if value == nil {
			return nil
		}
		return &ast.LiteralPattern{Span: p.spanFrom(start), Value: value}
	case token.LPAREN:
		if p.peekTokenIs(token.RPAREN) {
			p.nextToken()
			return &ast.LiteralPattern{Span: p.spanFrom(start), Value: &ast.UnitLit{Span: p.spanFrom(start)}}
		}
		var elems []ast.Pattern
		for {
			p.skipPeekNewlines()
			p.nextToken()
			elem := p.parsePattern()
			if elem == nil {
				return nil
			}
			elems = append(elems, elem)
			p.skipPeekNewlines()
			if !p.peekTokenIs(token.COMMA) {
				break
			}
			p.nextToken()
		}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		if len(elems) == 1 {
			return elems[0]
		}
		return &ast.TuplePattern{Span: p.spanFrom(start), Elems: elems}
	}
	p.errorAt(p.curToken, "expected pattern, got %s", describeToken(p.curToken))
	return nil
}

// parseConstructorPattern continues after the constructor name, which is the
// current token.
func (p *Parser) parseConstructorPattern(start token.Token, qualifier string) ast.Pattern {
	pat := &ast.ConstructorPattern{Qualifier: qualifier, Name: p.curToken.Lexeme, Shape: ast.AltUnit}
	switch {
	case p.peekTokenIs(token.LPAREN):
		p.nextToken()
		pat.Shape = ast.AltTuple
		for {
			p.skipPeekNewlines()
			if p.peekTokenIs(token.RPAREN) {
				p.nextToken()
				break
			}
			p.nextToken()
			arg := p.parsePattern()
			if arg == nil {
				return nil
			}
			pat.Args = append(pat.Args, arg)
			p.skipPeekNewlines()
			if p.peekTokenIs(token.COMMA) {
				p.nextToken()
				continue
			}
			if !p.expectPeek(token.RPAREN) {
				return nil
			}
			break
		}
	case p.peekTokenIs(token.LBRACE):
		p.nextToken()
		pat.Shape = ast.AltRecord
		for {
			p.skipPeekSeparators()
			if p.peekTokenIs(token.RBRACE) {
				p.nextToken()
				break
			}
			if !p.expectPeek(token.IDENT_LOWER) {
				return nil
			}
			fieldTok := p.curToken
			field := &ast.FieldPattern{Name: fieldTok.Lexeme}
			if p.peekTokenIs(token.COLON) {
				p.nextToken()
				p.nextToken()
				if field.Pattern = p.parsePattern(); field.Pattern == nil {
					return nil
				}
			} else {
				field.Pattern = &ast.BindingPattern{Span: p.span(fieldTok), Name: fieldTok.Lexeme}
			}
			field.Span = p.spanFrom(fieldTok)
			pat.Fields = append(pat.Fields, field)
			if !p.peekTokenIs(token.COMMA) && !p.peekTokenIs(token.NEWLINE) && !p.peekTokenIs(token.RBRACE) {
				p.peekError(token.RBRACE)
				return nil
			}
		}
	}
	pat.Span = p.spanFrom(start)
	return pat
}
