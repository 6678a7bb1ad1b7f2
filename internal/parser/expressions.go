package parser

import (
	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/token"
)

func (p *Parser) parseExpression(precedence int) ast.Expr {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxRecursionDepth {
		p.errorAt(p.curToken, "expression too complex: recursion depth limit exceeded")
		return nil
	}

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.errorAt(p.curToken, "expected expression, got %s", describeToken(p.curToken))
		return nil
	}
	leftExp := prefix()
	if leftExp == nil {
		return nil
	}

	for {
		if p.peekTokenIs(token.NEWLINE) {
			// Only a pipe may continue an expression on the next line.
			if p.peekPastNewlines().Type != token.PIPE_GT {
				break
			}
			p.skipPeekNewlines()
		}
		if precedence >= p.peekPrecedence() {
			break
		}
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		if leftExp = infix(leftExp); leftExp == nil {
			return nil
		}
	}
	return leftExp
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}

// withStructLiterals parses fn with struct literals re-enabled, as inside
// parentheses or braces.
func (p *Parser) withStructLiterals(fn func() ast.Expr) ast.Expr {
	saved := p.noStruct
	p.noStruct = 0
	defer func() { p.noStruct = saved }()
	return fn()
}

func (p *Parser) parseIntLiteral() ast.Expr {
	v, _ := p.curToken.Literal.(int64)
	return &ast.IntLit{Span: p.span(p.curToken), Value: v, Long: p.curTokenIs(token.LONG)}
}

func (p *Parser) parseFloatLiteral() ast.Expr {
	v, _ := p.curToken.Literal.(float64)
	return &ast.FloatLit{Span: p.span(p.curToken), Value: v, Single: p.curTokenIs(token.FLOAT)}
}

func (p *Parser) parseCharLiteral() ast.Expr {
	v, _ := p.curToken.Literal.(rune)
	return &ast.CharLit{Span: p.span(p.curToken), Value: v}
}

func (p *Parser) parseStringLiteral() ast.Expr {
	v, _ := p.curToken.Literal.(string)
	return &ast.StringLit{Span: p.span(p.curToken), Value: v}
}

func (p *Parser) parseBoolLiteral() ast.Expr {
	return &ast.BoolLit{Span: p.span(p.curToken), Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseIdentifier() ast.Expr {
	return &ast.Identifier{Span: p.span(p.curToken), Name: p.curToken.Lexeme}
}

// parseUpperIdentifier handles everything that starts with a type-case name:
// constructors, struct literals and foreign member access.
func (p *Parser) parseUpperIdentifier() ast.Expr {
	start := p.curToken
	name := start.Lexeme
	switch {
	case p.peekTokenIs(token.HASH):
		return p.parseForeignMember(start)
	case p.peekTokenIs(token.LBRACE) && p.noStruct == 0:
		p.nextToken()
		return p.parseStructLiteral(p.span(start), "", name)
	}
	return &ast.Identifier{Span: p.span(start), Name: name}
}

// Class#method(args) or Class#field
func (p *Parser) parseForeignMember(class token.Token) ast.Expr {
	p.nextToken() // '#'
	if !p.peekTokenIs(token.IDENT_LOWER) && !p.peekTokenIs(token.IDENT_UPPER) {
		p.peekError(token.IDENT_LOWER)
		return nil
	}
	p.nextToken()
	member := p.curToken.Lexeme
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		args, ok := p.parseExpressionList(token.RPAREN)
		if !ok {
			return nil
		}
		return &ast.ForeignCall{Span: p.spanFrom(class), Class: class.Lexeme, ClassSpan: p.span(class), Method: member, Args: args}
	}
	return &ast.ForeignField{Span: p.spanFrom(class), Class: class.Lexeme, ClassSpan: p.span(class), Field: member}
}

// parseStructLiteral parses `{ a: 1, b }` with the current token on '{'.
func (p *Parser) parseStructLiteral(start token.Span, qualifier, name string) ast.Expr {
	lit := &ast.StructLiteral{Qualifier: qualifier, Name: name}
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
		init := &ast.FieldInit{Name: fieldTok.Lexeme}
		if p.peekTokenIs(token.COLON) {
			p.nextToken()
			p.skipPeekNewlines()
			p.nextToken()
			init.Value = p.withStructLiterals(func() ast.Expr { return p.parseExpression(LOWEST) })
			if init.Value == nil {
				return nil
			}
		} else {
			init.Value = &ast.Identifier{Span: p.span(fieldTok), Name: fieldTok.Lexeme}
		}
		init.Span = p.spanFrom(fieldTok)
		lit.Fields = append(lit.Fields, init)
		if !p.peekTokenIs(token.COMMA) && !p.peekTokenIs(token.NEWLINE) && !p.peekTokenIs(token.RBRACE) {
			p.peekError(token.RBRACE)
			return nil
		}
	}
	lit.Span = start.To(p.span(p.curToken))
	return lit
}

func (p *Parser) parsePrefixExpression() ast.Expr {
	start := p.curToken
	p.nextToken()
	operand := p.parseExpression(PREFIX)
	if operand == nil {
		return nil
	}
	span := p.spanFrom(start)
	if start.Type == token.MINUS {
		// Fold negative literals so -2147483648 is an Int and patterns can
		// match negative numbers.
		switch lit := operand.(type) {
		case *ast.IntLit:
			return &ast.IntLit{Span: span, Value: -lit.Value, Long: lit.Long}
		case *ast.FloatLit:
			return &ast.FloatLit{Span: span, Value: -lit.Value, Single: lit.Single}
		}
	}
	return &ast.UnaryOp{Span: span, Op: start.Type, Operand: operand}
}

// ( expr ), () or a tuple (a, b, ...)
func (p *Parser) parseGroupedExpression() ast.Expr {
	start := p.curToken
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return &ast.UnitLit{Span: p.spanFrom(start)}
	}
	p.skipPeekNewlines()
	p.nextToken()
	exp := p.withStructLiterals(func() ast.Expr { return p.parseExpression(LOWEST) })
	if exp == nil {
		return nil
	}
	p.skipPeekNewlines()
	if !p.peekTokenIs(token.COMMA) {
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		return exp
	}
	p.nextToken()
	rest, ok := p.parseExpressionList(token.RPAREN)
	if !ok {
		return nil
	}
	if len(rest) == 0 {
		p.errorAt(p.curToken, "a tuple needs at least two elements")
		return nil
	}
	return &ast.TupleLit{Span: p.spanFrom(start), Elems: append([]ast.Expr{exp}, rest...)}
}

// loop (let a = 0, let b: Long = 1) -> body
func (p *Parser) parseLoopExpression() ast.Expr {
	start := p.curToken
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	loop := &ast.Loop{}
	for {
		p.skipPeekNewlines()
		if p.peekTokenIs(token.RPAREN) {
			p.nextToken()
			break
		}
		if !p.expectPeek(token.LET) {
			return nil
		}
		letStart := p.curToken
		name, typ, value, ok := p.parseLetParts()
		if !ok {
			return nil
		}
		loop.Bindings = append(loop.Bindings, &ast.LetStmt{Span: p.spanFrom(letStart), Name: name, Type: typ, Value: value})
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
	if !p.expectPeek(token.ARROW) {
		return nil
	}
	p.skipPeekNewlines()
	p.nextToken()
	if loop.Body = p.parseExpression(LOWEST); loop.Body == nil {
		return nil
	}
	loop.Span = p.spanFrom(start)
	return loop
}

// recur(args)
func (p *Parser) parseRecurExpression() ast.Expr {
	start := p.curToken
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	args, ok := p.parseExpressionList(token.RPAREN)
	if !ok {
		return nil
	}
	return &ast.Recur{Span: p.spanFrom(start), Args: args}
}

// parseBlockExpression parses `{ stmt; stmt; expr }` with the current token on '{'.
func (p *Parser) parseBlockExpression() ast.Expr {
	saved := p.noStruct
	p.noStruct = 0
	defer func() { p.noStruct = saved }()

	start := p.curToken
	block := &ast.Block{}
	p.nextToken()
	p.skipNewlines()
	for !p.curTokenIs(token.RBRACE) {
		if p.curTokenIs(token.EOF) {
			p.errorAt(p.curToken, "unterminated block, expected '}'")
			return nil
		}
		stmt := p.parseStatement()
		if stmt == nil {
			return nil
		}
		block.Stmts = append(block.Stmts, stmt)
		p.nextToken()
		if !p.curTokenIs(token.NEWLINE) && !p.curTokenIs(token.SEMI) && !p.curTokenIs(token.RBRACE) {
			p.errorAt(p.curToken, "expected newline or ';' after statement, got %s", describeToken(p.curToken))
			return nil
		}
		p.skipNewlines()
	}
	if n := len(block.Stmts); n > 0 {
		if es, ok := block.Stmts[n-1].(*ast.ExprStmt); ok {
			block.Result = es.Expr
			block.Stmts = block.Stmts[:n-1]
		}
	}
	block.Span = p.spanFrom(start)
	return block
}

func (p *Parser) parseStatement() ast.Stmt {
	start := p.curToken
	if p.curTokenIs(token.LET) {
		name, typ, value, ok := p.parseLetParts()
		if !ok {
			return nil
		}
		return &ast.LetStmt{Span: p.spanFrom(start), Name: name, Type: typ, Value: value}
	}
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}
	return &ast.ExprStmt{Span: p.spanFrom(start), Expr: expr}
}

// if cond { } [else { } | else if ...]
func (p *Parser) parseIfExpression() ast.Expr {
	start := p.curToken
	p.nextToken()
	p.noStruct++
	cond := p.parseExpression(LOWEST)
	p.noStruct--
	if cond == nil || !p.expectPeek(token.LBRACE) {
		return nil
	}
	then, _ := p.parseBlockExpression().(*ast.Block)
	if then == nil {
		return nil
	}
	expr := &ast.IfExpr{Cond: cond, Then: then}
	if p.peekPastNewlines().Type == token.ELSE {
		p.skipPeekNewlines()
		p.nextToken() // else
		if p.peekTokenIs(token.IF) {
			p.nextToken()
			expr.Else = p.parseIfExpression()
		} else if p.expectPeek(token.LBRACE) {
			expr.Else = p.parseBlockExpression()
		}
		if expr.Else == nil {
			return nil
		}
	}
	expr.Span = p.spanFrom(start)
	return expr
}

// match expr { pattern -> expr, ... }
func (p *Parser) parseMatchExpression() ast.Expr {
	start := p.curToken
	p.nextToken()
	p.noStruct++
	scrutinee := p.parseExpression(LOWEST)
	p.noStruct--
	if scrutinee == nil || !p.expectPeek(token.LBRACE) {
		return nil
	}

	saved := p.noStruct
	p.noStruct = 0
	defer func() { p.noStruct = saved }()

	match := &ast.MatchExpr{Scrutinee: scrutinee}
	for {
		p.skipPeekSeparators()
		if p.peekTokenIs(token.RBRACE) {
			p.nextToken()
			break
		}
		p.nextToken()
		armStart := p.curToken
		pat := p.parsePattern()
		if pat == nil || !p.expectPeek(token.ARROW) {
			return nil
		}
		p.skipPeekNewlines()
		p.nextToken()
		body := p.parseExpression(LOWEST)
		if body == nil {
			return nil
		}
		match.Arms = append(match.Arms, &ast.MatchArm{Span: p.spanFrom(armStart), Pattern: pat, Body: body})
		if !p.peekTokenIs(token.COMMA) && !p.peekTokenIs(token.NEWLINE) && !p.peekTokenIs(token.RBRACE) {
			p.peekError(token.RBRACE)
			return nil
		}
	}
	if len(match.Arms) == 0 {
		p.errorAt(p.curToken, "match needs at least one arm")
		return nil
	}
	match.Span = p.spanFrom(start)
	return match
}

// fn(x: Int, y) [: R] -> body
func (p *Parser) parseLambda() ast.Expr {
	start := p.curToken
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	params := p.parseParams(false)
	if params == nil {
		return nil
	}
	lambda := &ast.Lambda{Params: params}
	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		p.nextToken()
		if lambda.Result = p.parseType(); lambda.Result == nil {
			return nil
		}
	}
	if !p.expectPeek(token.ARROW) {
		return nil
	}
	p.skipPeekNewlines()
	p.nextToken()
	if lambda.Body = p.parseExpression(LOWEST); lambda.Body == nil {
		return nil
	}
	lambda.Span = p.spanFrom(start)
	return lambda
}

func (p *Parser) parseInfixExpression(left ast.Expr) ast.Expr {
	op := p.curToken.Type
	precedence := p.curPrecedence()
	p.nextToken()
	p.skipNewlines()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &ast.BinaryOp{Span: left.GetSpan().To(right.GetSpan()), Op: op, Left: left, Right: right}
}

// parsePipeExpression desugars `a |> f(b)` into `f(a, b)` and `a |> f` into `f(a)`.
func (p *Parser) parsePipeExpression(left ast.Expr) ast.Expr {
	p.nextToken()
	p.skipNewlines()
	right := p.parseExpression(PIPE)
	if right == nil {
		return nil
	}
	span := left.GetSpan().To(right.GetSpan())
	switch r := right.(type) {
	case *ast.Call:
		call := &ast.Call{Span: span, Callee: r.Callee, Args: append([]ast.Expr{left}, r.Args...)}
		if r.Labels != nil {
			call.Labels = append([]string{""}, r.Labels...)
		}
		return call
	case *ast.ForeignCall:
		return &ast.ForeignCall{Span: span, Class: r.Class, ClassSpan: r.ClassSpan, Method: r.Method, Args: append([]ast.Expr{left}, r.Args...)}
	}
	return &ast.Call{Span: span, Callee: right, Args: []ast.Expr{left}}
}

func (p *Parser) parseCallExpression(callee ast.Expr) ast.Expr {
	call := &ast.Call{Callee: callee, Args: []ast.Expr{}}
	p.skipPeekNewlines()
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		call.Span = callee.GetSpan().To(p.span(p.curToken))
		return call
	}
	for {
		p.skipPeekNewlines()
		p.nextToken()
		label := ""
		if p.curTokenIs(token.IDENT_LOWER) && p.peekTokenIs(token.ASSIGN) {
			label = p.curToken.Lexeme
			p.nextToken()
			p.skipPeekNewlines()
			p.nextToken()
		}
		arg := p.withStructLiterals(func() ast.Expr { return p.parseExpression(LOWEST) })
		if arg == nil {
			return nil
		}
		if label != "" && call.Labels == nil {
			call.Labels = make([]string, len(call.Args))
		}
		call.Args = append(call.Args, arg)
		if call.Labels != nil {
			call.Labels = append(call.Labels, label)
		}
		p.skipPeekNewlines()
		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			p.skipPeekNewlines()
			if p.peekTokenIs(token.RPAREN) {
				p.nextToken()
				break
			}
			continue
		}
		if !p.expectPeek(token.RPAREN) {
			return nil
		}
		break
	}
	call.Span = callee.GetSpan().To(p.span(p.curToken))
	return call
}

// parseExpressionList parses comma separated expressions with the current
// token on the opener, leaving it on end.
func (p *Parser) parseExpressionList(end token.TokenType) ([]ast.Expr, bool) {
	list := []ast.Expr{}
	p.skipPeekNewlines()
	if p.peekTokenIs(end) {
		p.nextToken()
		return list, true
	}
	for {
		p.skipPeekNewlines()
		p.nextToken()
		expr := p.withStructLiterals(func() ast.Expr { return p.parseExpression(LOWEST) })
		if expr == nil {
			return nil, false
		}
		list = append(list, expr)
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

// parseFieldAccess handles `.field`, `.Ctor` and `Mod.Struct { ... }`.
func (p *Parser) parseFieldAccess(left ast.Expr) ast.Expr {
	if !p.peekTokenIs(token.IDENT_LOWER) && !p.peekTokenIs(token.IDENT_UPPER) {
		p.peekError(token.IDENT_LOWER)
		return nil
	}
	p.nextToken()
	field := p.curToken
	if ident, ok := left.(*ast.Identifier); ok && field.Type == token.IDENT_UPPER &&
		p.peekTokenIs(token.LBRACE) && p.noStruct == 0 {
		p.nextToken()
		return p.parseStructLiteral(ident.Span, ident.Name, field.Lexeme)
	}
	return &ast.FieldAccess{
		Span:      left.GetSpan().To(p.span(field)),
		Target:    left,
		Field:     field.Lexeme,
		FieldSpan: p.span(field),
	}
}

func (p *Parser) parseConversion(left ast.Expr) ast.Expr {
	p.nextToken()
	typ := p.parseType()
	if typ == nil {
		return nil
	}
	return &ast.Conversion{Span: left.GetSpan().To(typ.GetSpan()), Value: left, Type: typ}
}
