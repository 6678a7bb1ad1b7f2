package parser

import (
	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/token"
)

// parseType parses a type expression starting at the current token and
// leaves the current token on its last token.
//
//	Name | Mod.Name | Name[T, ...] | fn(A, B) -> R | () | (T) | (A, B, ...)
func (p *Parser) parseType() ast.TypeExpr {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxRecursionDepth {
		p.errorAt(p.curToken, "type too complex: recursion depth limit exceeded")
		return nil
	}

	start := p.curToken
	switch p.curToken.Type {
	case token.FN:
		if !p.expectPeek(token.LPAREN) {
			return nil
		}
		params, ok := p.parseTypeList(token.RPAREN)
		if !ok || !p.expectPeek(token.ARROW) {
			return nil
		}
		p.nextToken()
		result := p.parseType()
		if result == nil {
			return nil
		}
		return &ast.FuncTypeExpr{Span: p.spanFrom(start), Params: params, Result: result}
	case token.LPAREN:
		elems, ok := p.parseTypeList(token.RPAREN)
		if !ok {
			return nil
		}
		switch len(elems) {
		case 0:
			return &ast.NamedType{Span: p.spanFrom(start), Name: "Unit"}
		case 1:
			return elems[0]
		}
		return &ast.TupleType{Span: p.spanFrom(start), Elems: elems}
	case token.IDENT_LOWER, token.IDENT_UPPER:
	default:
		p.errorAt(p.curToken, "expected type, got %s", describeToken(p.curToken))
		return nil
	}

	named := &ast.NamedType{Name: start.Lexeme}
	if p.peekTokenIs(token.DOT) {
		p.nextToken()
		if !p.expectPeek(token.IDENT_UPPER) {
			return nil
		}
		named.Qualifier = start.Lexeme
		named.Name = p.curToken.Lexeme
	} else if start.Type == token.IDENT_LOWER {
		p.errorAt(start, "type names start with an upper-case letter, got '%s'", start.Lexeme)
		return nil
	}
	named.Span = p.spanFrom(start)
	if !p.peekTokenIs(token.LBRACKET) {
		return named
	}
	p.nextToken()
	args, ok := p.parseTypeList(token.RBRACKET)
	if !ok {
		return nil
	}
	if len(args) == 0 {
		p.errorAt(p.curToken, "type arguments of %s must not be empty", named.Name)
		return nil
	}
	return &ast.AppliedType{Span: p.spanFrom(start), Base: named, Args: args}
}

// parseTypeList parses comma separated types with the current token on the
// opener and leaves it on end.
func (p *Parser) parseTypeList(end token.TokenType) ([]ast.TypeExpr, bool) {
	list := []ast.TypeExpr{}
	p.skipPeekNewlines()
	if p.peekTokenIs(end) {
		p.nextToken()
		return list, true
	}
	for {
		p.skipPeekNewlines()
		p.nextToken()
		typ := p.parseType()
		if typ == nil {
			return nil, false
		}
		list = append(list, typ)
		p.skipPeekNewlines()
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.skipPeekNewlines()
			if p.peekTokenIs(end) {
				p.nextToken()
				return list, true
			}
			continue
		}
		if !p.expectPeek(end) {
			return nil, false
		}
		return list, true
	}
}
