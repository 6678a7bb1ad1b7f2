package parser

import (
	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/token"
)

// ParseModule parses a whole file:
//
//	[module path]
//	{ import path [as Name] | use foreign path [as Name] | declaration }
func (p *Parser) ParseModule() *ast.Module {
	start := p.curToken
	mod := &ast.Module{File: p.file}
	p.skipNewlines()

	if p.curTokenIs(token.MODULE) {
		p.nextToken()
		mod.Name = p.parsePath()
		p.endOfDeclaration()
	}
	if mod.Name == "" {
		mod.Name = DefaultModuleName(p.file)
	}

	for !p.curTokenIs(token.EOF) {
		errCount := len(p.errors)
		switch p.curToken.Type {
		case token.IMPORT:
			if imp := p.parseImport(); imp != nil {
				mod.Imports = append(mod.Imports, imp)
			}
		case token.USE:
			if use := p.parseForeignUse(); use != nil {
				mod.Uses = append(mod.Uses, use)
			}
		default:
			if decl := p.parseDeclaration(); decl != nil {
				mod.Decls = append(mod.Decls, decl)
			}
		}
		if len(p.errors) > errCount {
			p.synchronize()
			continue
		}
		p.endOfDeclaration()
	}
	mod.Span = p.span(start).To(p.span(p.curToken))
	return mod
}

// endOfDeclaration moves past the last token of a declaration and requires a
// separator before the next one.
func (p *Parser) endOfDeclaration() {
	p.nextToken()
	if !p.curTokenIs(token.NEWLINE) && !p.curTokenIs(token.SEMI) && !p.curTokenIs(token.EOF) {
		p.errorAt(p.curToken, "expected newline after declaration, got %s", describeToken(p.curToken))
		p.synchronize()
		return
	}
	p.skipNewlines()
}

// synchronize skips to the next token that can start a top-level declaration.
func (p *Parser) synchronize() {
	depth := 0
	for !p.curTokenIs(token.EOF) {
		switch p.curToken.Type {
		case token.LBRACE, token.LPAREN, token.LBRACKET:
			depth++
		case token.RBRACE, token.RPAREN, token.RBRACKET:
			if depth > 0 {
				depth--
			}
		case token.NEWLINE:
			// A declaration keyword in the first column ends an unbalanced
			// construct as well.
			if depth == 0 || p.peekToken.Column == 1 {
				switch p.peekToken.Type {
				case token.FN, token.STRUCT, token.VARIANT, token.TYPE, token.LET, token.PUB, token.IMPORT, token.USE:
					p.nextToken()
					return
				}
			}
		}
		p.nextToken()
	}
}

// parsePath parses a/b/C and leaves the current token on the last segment.
func (p *Parser) parsePath() string {
	if !p.curTokenIs(token.IDENT_LOWER) && !p.curTokenIs(token.IDENT_UPPER) {
		p.errorAt(p.curToken, "expected module or class path, got %s", describeToken(p.curToken))
		return ""
	}
	path := p.curToken.Lexeme
	for p.peekTokenIs(token.SLASH) {
		p.nextToken()
		if !p.peekTokenIs(token.IDENT_LOWER) && !p.peekTokenIs(token.IDENT_UPPER) {
			p.errorAt(p.peekToken, "expected path segment after '/', got %s", describeToken(p.peekToken))
			return path
		}
		p.nextToken()
		path += "/" + p.curToken.Lexeme
	}
	return path
}

func (p *Parser) parseImport() *ast.Import {
	start := p.curToken
	p.nextToken()
	imp := &ast.Import{Path: p.parsePath()}
	if imp.Path == "" {
		return nil
	}
	if p.peekTokenIs(token.AS) {
		p.nextToken()
		if !p.peekTokenIs(token.IDENT_UPPER) && !p.peekTokenIs(token.IDENT_LOWER) {
			p.peekError(token.IDENT_UPPER)
			return nil
		}
		p.nextToken()
		imp.Alias = p.curToken.Lexeme
	}
	imp.Span = p.spanFrom(start)
	return imp
}

func (p *Parser) parseForeignUse() *ast.ForeignUse {
	start := p.curToken
	if !p.expectPeek(token.FOREIGN) {
		return nil
	}
	p.nextToken()
	use := &ast.ForeignUse{Class: p.parsePath()}
	if use.Class == "" {
		return nil
	}
	if p.peekTokenIs(token.AS) {
		p.nextToken()
		if !p.expectPeek(token.IDENT_UPPER) {
			return nil
		}
		use.Alias = p.curToken.Lexeme
	}
	use.Span = p.spanFrom(start)
	return use
}

func (p *Parser) parseDeclaration() ast.Decl {
	start := p.curToken
	pub := false
	if p.curTokenIs(token.PUB) {
		pub = true
		p.nextToken()
	}
	switch p.curToken.Type {
	case token.FN:
		return p.parseFunctionDecl(start, pub)
	case token.STRUCT:
		return p.parseStructDecl(start, pub)
	case token.VARIANT:
		return p.parseVariantDecl(start, pub)
	case token.TYPE:
		return p.parseTypeAliasDecl(start, pub)
	case token.LET:
		return p.parseLetDecl(start, pub)
	}
	p.errorAt(p.curToken, "expected declaration, got %s", describeToken(p.curToken))
	return nil
}

// fn name[T: Num](a: T, b: T): T = expr
// fn name(a: Int) { block }
func (p *Parser) parseFunctionDecl(start token.Token, pub bool) ast.Decl {
	if !p.expectPeek(token.IDENT_LOWER) {
		return nil
	}
	fn := &ast.FunctionDecl{Pub: pub, Name: p.curToken.Lexeme, NameSpan: p.span(p.curToken)}
	if p.peekTokenIs(token.LBRACKET) {
		p.nextToken()
		fn.TypeParams = p.parseTypeParams()
	}
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	fn.Params = p.parseParams(true)
	if fn.Params == nil && !p.curTokenIs(token.RPAREN) {
		return nil
	}
	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		p.nextToken()
		if fn.Result = p.parseType(); fn.Result == nil {
			return nil
		}
	}
	switch {
	case p.peekTokenIs(token.ASSIGN):
		p.nextToken()
		p.skipPeekNewlines()
		p.nextToken()
		fn.Body = p.parseExpression(LOWEST)
	case p.peekTokenIs(token.LBRACE):
		p.nextToken()
		fn.Body = p.parseBlockExpression()
	default:
		p.errorAt(p.peekToken, "expected '=' or '{' to start the body of %s, got %s", fn.Name, describeToken(p.peekToken))
		return nil
	}
	if fn.Body == nil {
		return nil
	}
	fn.Span = p.spanFrom(start)
	return fn
}

// parseTypeParams parses [T, U: Num] with the current token on '['.
func (p *Parser) parseTypeParams() []*ast.TypeParamDecl {
	var params []*ast.TypeParamDecl
	for {
		if !p.expectPeek(token.IDENT_UPPER) {
			return params
		}
		tp := &ast.TypeParamDecl{Name: p.curToken.Lexeme}
		start := p.curToken
		if p.peekTokenIs(token.COLON) {
			p.nextToken()
			if !p.expectPeek(token.IDENT_UPPER) {
				return params
			}
			tp.Bound = p.curToken.Lexeme
		}
		tp.Span = p.spanFrom(start)
		params = append(params, tp)
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		p.expectPeek(token.RBRACKET)
		return params
	}
}

// parseParams parses a parameter list with the current token on '(' and
// leaves it on ')'. Types are mandatory for declarations.
func (p *Parser) parseParams(typed bool) []*ast.Param {
	params := []*ast.Param{}
	p.skipPeekNewlines()
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params
	}
	for {
		p.skipPeekNewlines()
		if !p.expectPeek(token.IDENT_LOWER) {
			return nil
		}
		start := p.curToken
		param := &ast.Param{Name: p.curToken.Lexeme}
		if typed && p.peekTokenIs(token.IDENT_LOWER) {
			p.nextToken()
			param.Label, param.Name = param.Name, p.curToken.Lexeme
		}
		if p.peekTokenIs(token.COLON) {
			p.nextToken()
			p.nextToken()
			if param.Type = p.parseType(); param.Type == nil {
				return nil
			}
		} else if typed {
			p.errorAt(p.peekToken, "parameter %s needs a type annotation", param.Name)
			return nil
		}
		param.Span = p.spanFrom(start)
		params = append(params, param)
		p.skipPeekNewlines()
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.skipPeekNewlines()
			if p.peekTokenIs(token.RPAREN) {
				p.nextToken()
				return params
			}
			continue
		}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		return params
	}
}

// struct Name[T] { field: Type, ... }
func (p *Parser) parseStructDecl(start token.Token, pub bool) ast.Decl {
	if !p.expectPeek(token.IDENT_UPPER) {
		return nil
	}
	decl := &ast.StructDecl{Pub: pub, Name: p.curToken.Lexeme}
	if p.peekTokenIs(token.LBRACKET) {
		p.nextToken()
		decl.TypeParams = p.parseTypeParams()
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	fields, ok := p.parseFieldDecls()
	if !ok {
		return nil
	}
	decl.Fields = fields
	decl.Span = p.spanFrom(start)
	return decl
}

// parseFieldDecls parses `{ a: T, b: U }` with the current token on '{'.
// Fields may be separated by commas or newlines.
func (p *Parser) parseFieldDecls() ([]*ast.FieldDecl, bool) {
	var fields []*ast.FieldDecl
	for {
		p.skipPeekSeparators()
		if p.peekTokenIs(token.RBRACE) {
			p.nextToken()
			return fields, true
		}
		if !p.expectPeek(token.IDENT_LOWER) {
			return nil, false
		}
		start := p.curToken
		field := &ast.FieldDecl{Name: p.curToken.Lexeme}
		if !p.expectPeek(token.COLON) {
			return nil, false
		}
		p.nextToken()
		if field.Type = p.parseType(); field.Type == nil {
			return nil, false
		}
		field.Span = p.spanFrom(start)
		fields = append(fields, field)
		if !p.peekTokenIs(token.COMMA) && !p.peekTokenIs(token.NEWLINE) && !p.peekTokenIs(token.RBRACE) {
			p.peekError(token.RBRACE)
			return nil, false
		}
	}
}

func (p *Parser) skipPeekSeparators() {
	for p.peekTokenIs(token.NEWLINE) || p.peekTokenIs(token.COMMA) {
		p.nextToken()
	}
}

// variant Name[T] { A, B(T, U), C { f: T } }
func (p *Parser) parseVariantDecl(start token.Token, pub bool) ast.Decl {
	if !p.expectPeek(token.IDENT_UPPER) {
		return nil
	}
	decl := &ast.VariantDecl{Pub: pub, Name: p.curToken.Lexeme}
	if p.peekTokenIs(token.LBRACKET) {
		p.nextToken()
		decl.TypeParams = p.parseTypeParams()
	}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	for {
		p.skipPeekSeparators()
		if p.peekTokenIs(token.RBRACE) {
			p.nextToken()
			break
		}
		if !p.expectPeek(token.IDENT_UPPER) {
			return nil
		}
		altStart := p.curToken
		alt := &ast.AlternativeDecl{Name: p.curToken.Lexeme, Shape: ast.AltUnit}
		switch {
		case p.peekTokenIs(token.LPAREN):
			p.nextToken()
			alt.Shape = ast.AltTuple
			types, ok := p.parseTypeList(token.RPAREN)
			if !ok {
				return nil
			}
			if len(types) == 0 {
				p.errorAt(p.curToken, "tuple alternative %s needs at least one payload type", alt.Name)
				return nil
			}
			alt.Types = types
		case p.peekTokenIs(token.LBRACE):
			p.nextToken()
			alt.Shape = ast.AltRecord
			fields, ok := p.parseFieldDecls()
			if !ok {
				return nil
			}
			alt.Fields = fields
		}
		alt.Span = p.spanFrom(altStart)
		decl.Alternatives = append(decl.Alternatives, alt)
		if !p.peekTokenIs(token.COMMA) && !p.peekTokenIs(token.NEWLINE) && !p.peekTokenIs(token.RBRACE) {
			p.peekError(token.RBRACE)
			return nil
		}
	}
	if len(decl.Alternatives) == 0 {
		p.errorAt(p.curToken, "variant %s needs at least one alternative", decl.Name)
		return nil
	}
	decl.Span = p.spanFrom(start)
	return decl
}

// type Name[T] = Type
func (p *Parser) parseTypeAliasDecl(start token.Token, pub bool) ast.Decl {
	if !p.expectPeek(token.IDENT_UPPER) {
		return nil
	}
	decl := &ast.TypeAliasDecl{Pub: pub, Name: p.curToken.Lexeme}
	if p.peekTokenIs(token.LBRACKET) {
		p.nextToken()
		decl.TypeParams = p.parseTypeParams()
	}
	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.skipPeekNewlines()
	p.nextToken()
	if decl.Type = p.parseType(); decl.Type == nil {
		return nil
	}
	decl.Span = p.spanFrom(start)
	return decl
}

// let name[: Type] = expr
func (p *Parser) parseLetDecl(start token.Token, pub bool) ast.Decl {
	name, typ, value, ok := p.parseLetParts()
	if !ok {
		return nil
	}
	return &ast.LetDecl{Span: p.spanFrom(start), Pub: pub, Name: name, Type: typ, Value: value}
}

// parseLetParts parses the part of a let after the keyword, shared by module
// lets and block lets.
func (p *Parser) parseLetParts() (string, ast.TypeExpr, ast.Expr, bool) {
	if !p.expectPeek(token.IDENT_LOWER) {
		return "", nil, nil, false
	}
	name := p.curToken.Lexeme
	var typ ast.TypeExpr
	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		p.nextToken()
		if typ = p.parseType(); typ == nil {
			return "", nil, nil, false
		}
	}
	if !p.expectPeek(token.ASSIGN) {
		return "", nil, nil, false
	}
	p.skipPeekNewlines()
	p.nextToken()
	value := p.parseExpression(LOWEST)
	if value == nil {
		return "", nil, nil, false
	}
	return name, typ, value, true
}
