package prettyprinter

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/token"
)

// --- Code Printer (Output looks like source code) ---

// Operator precedence (higher = binds tighter). Mirrors the parser table.
var operatorPrecedence = map[token.TokenType]int{
	token.OR:       2,
	token.AND:      3,
	token.EQ:       4,
	token.NOT_EQ:   4,
	token.LT:       5,
	token.LTE:      5,
	token.GT:       5,
	token.GTE:      5,
	token.PLUS:     6,
	token.MINUS:    6,
	token.ASTERISK: 7,
	token.SLASH:    7,
	token.PERCENT:  7,
}

const (
	precLowest     = 0
	precConversion = 8
	precPrefix     = 9
	precCall       = 10
)

func getPrecedence(op token.TokenType) int {
	if p, ok := operatorPrecedence[op]; ok {
		return p
	}
	return precCall
}

const indentUnit = "  "

type CodePrinter struct {
	buf       bytes.Buffer
	indent    int
	lineWidth int // max line width (0 = unlimited)
	column    int // current column position
	// noStruct is positive inside if conditions and match scrutinees, where
	// a bare struct literal would be read as the start of the body.
	noStruct int
}

func NewCodePrinter() *CodePrinter {
	return &CodePrinter{lineWidth: 100}
}

func NewCodePrinterWithWidth(width int) *CodePrinter {
	return &CodePrinter{lineWidth: width}
}

func (p *CodePrinter) SetLineWidth(width int) {
	p.lineWidth = width
}

// Print renders mod as source text.
func Print(mod *ast.Module) string {
	p := NewCodePrinter()
	p.PrintModule(mod)
	return p.String()
}

func (p *CodePrinter) String() string {
	return p.buf.String()
}

func (p *CodePrinter) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.buf.WriteString(indentUnit)
	}
	p.column = p.indent * len(indentUnit)
}

func (p *CodePrinter) write(s string) {
	p.buf.WriteString(s)
	// Track column position
	if idx := strings.LastIndex(s, "\n"); idx != -1 {
		p.column = len(s) - idx - 1
	} else {
		p.column += len(s)
	}
}

func (p *CodePrinter) writeln() {
	p.buf.WriteString("\n")
	p.column = 0
}

// child returns a printer for rendering a fragment one level deeper.
func (p *CodePrinter) child() *CodePrinter {
	return &CodePrinter{indent: p.indent + 1, lineWidth: p.lineWidth, noStruct: p.noStruct}
}

// printList writes items between open and close, on one line when they fit
// and one per line otherwise.
func (p *CodePrinter) printList(open, close string, items []func(*CodePrinter), spaced bool) {
	parts := make([]string, len(items))
	width := p.column + len(open) + len(close)
	multiline := false
	for i, item := range items {
		c := p.child()
		item(c)
		parts[i] = c.String()
		width += len(parts[i]) + 2
		if strings.Contains(parts[i], "\n") {
			multiline = true
		}
	}
	if len(items) == 0 {
		p.write(open + close)
		return
	}
	if !multiline && (p.lineWidth == 0 || width <= p.lineWidth) {
		p.write(open)
		if spaced {
			p.write(" ")
		}
		p.write(strings.Join(parts, ", "))
		if spaced {
			p.write(" ")
		}
		p.write(close)
		return
	}
	p.write(open)
	p.indent++
	for _, part := range parts {
		p.writeln()
		p.writeIndent()
		p.write(part + ",")
	}
	p.indent--
	p.writeln()
	p.writeIndent()
	p.write(close)
}

// PrintModule writes the header, imports, foreign uses and declarations of mod.
func (p *CodePrinter) PrintModule(mod *ast.Module) {
	p.write("module " + mod.Name)
	p.writeln()
	if len(mod.Imports) > 0 {
		p.writeln()
		for _, imp := range mod.Imports {
			p.write("import " + imp.Path)
			if imp.Alias != "" {
				p.write(" as " + imp.Alias)
			}
			p.writeln()
		}
	}
	if len(mod.Uses) > 0 {
		p.writeln()
		for _, use := range mod.Uses {
			p.write("use foreign " + use.Class)
			if use.Alias != "" {
				p.write(" as " + use.Alias)
			}
			p.writeln()
		}
	}
	prevMultiline := true
	for _, d := range mod.Decls {
		c := &CodePrinter{lineWidth: p.lineWidth}
		c.printDecl(d)
		text := c.String()
		multiline := strings.Contains(text, "\n")
		if multiline || prevMultiline {
			p.writeln()
		}
		p.write(text)
		p.writeln()
		prevMultiline = multiline
	}
}

func (p *CodePrinter) printDecl(d ast.Decl) {
	if d.IsPub() {
		p.write("pub ")
	}
	switch n := d.(type) {
	case *ast.FunctionDecl:
		p.write("fn " + n.Name)
		p.printTypeParams(n.TypeParams)
		p.printParams(n.Params)
		if n.Result != nil {
			p.write(": ")
			p.printType(n.Result)
		}
		if block, ok := n.Body.(*ast.Block); ok {
			p.write(" ")
			p.printBlock(block)
			return
		}
		p.write(" = ")
		p.printExpr(n.Body, precLowest, false)
	case *ast.StructDecl:
		p.write("struct " + n.Name)
		p.printTypeParams(n.TypeParams)
		p.write(" ")
		p.printFields(n.Fields)
	case *ast.VariantDecl:
		p.write("variant " + n.Name)
		p.printTypeParams(n.TypeParams)
		p.write(" ")
		items := make([]func(*CodePrinter), len(n.Alternatives))
		for i, alt := range n.Alternatives {
			items[i] = func(c *CodePrinter) { c.printAlternative(alt) }
		}
		p.printList("{", "}", items, true)
	case *ast.LetDecl:
		p.printLet(n.Name, n.Type, n.Value)
	case *ast.TypeAliasDecl:
		p.write("type " + n.Name)
		p.printTypeParams(n.TypeParams)
		p.write(" = ")
		p.printType(n.Type)
	}
}

func (p *CodePrinter) printAlternative(alt *ast.AlternativeDecl) {
	p.write(alt.Name)
	switch alt.Shape {
	case ast.AltTuple:
		items := make([]func(*CodePrinter), len(alt.Types))
		for i, t := range alt.Types {
			items[i] = func(c *CodePrinter) { c.printType(t) }
		}
		p.printList("(", ")", items, false)
	case ast.AltRecord:
		p.write(" ")
		p.printFields(alt.Fields)
	}
}

func (p *CodePrinter) printFields(fields []*ast.FieldDecl) {
	items := make([]func(*CodePrinter), len(fields))
	for i, f := range fields {
		items[i] = func(c *CodePrinter) {
			c.write(f.Name + ": ")
			c.printType(f.Type)
		}
	}
	p.printList("{", "}", items, true)
}

func (p *CodePrinter) printTypeParams(params []*ast.TypeParamDecl) {
	if len(params) == 0 {
		return
	}
	items := make([]func(*CodePrinter), len(params))
	for i, tp := range params {
		items[i] = func(c *CodePrinter) {
			c.write(tp.Name)
			if tp.Bound != "" {
				c.write(": " + tp.Bound)
			}
		}
	}
	p.printList("[", "]", items, false)
}

func (p *CodePrinter) printParams(params []*ast.Param) {
	items := make([]func(*CodePrinter), len(params))
	for i, param := range params {
		items[i] = func(c *CodePrinter) {
			if param.Label != "" {
				c.write(param.Label + " ")
			}
			c.write(param.Name)
			if param.Type != nil {
				c.write(": ")
				c.printType(param.Type)
			}
		}
	}
	p.printList("(", ")", items, false)
}

func (p *CodePrinter) printLet(name string, typ ast.TypeExpr, value ast.Expr) {
	p.write("let " + name)
	if typ != nil {
		p.write(": ")
		p.printType(typ)
	}
	p.write(" = ")
	p.printExpr(value, precLowest, false)
}

func (p *CodePrinter) printType(t ast.TypeExpr) {
	switch n := t.(type) {
	case *ast.NamedType:
		if n.Qualifier != "" {
			p.write(n.Qualifier + ".")
		}
		p.write(n.Name)
	case *ast.AppliedType:
		p.printType(n.Base)
		items := make([]func(*CodePrinter), len(n.Args))
		for i, arg := range n.Args {
			items[i] = func(c *CodePrinter) { c.printType(arg) }
		}
		p.printList("[", "]", items, false)
	case *ast.FuncTypeExpr:
		p.write("fn")
		items := make([]func(*CodePrinter), len(n.Params))
		for i, param := range n.Params {
			items[i] = func(c *CodePrinter) { c.printType(param) }
		}
		p.printList("(", ")", items, false)
		p.write(" -> ")
		p.printType(n.Result)
	case *ast.TupleType:
		items := make([]func(*CodePrinter), len(n.Elems))
		for i, elem := range n.Elems {
			items[i] = func(c *CodePrinter) { c.printType(elem) }
		}
		p.printList("(", ")", items, false)
	default:
		p.write("<???>")
	}
}

// printExpr prints an expression, adding parentheses only if needed
func (p *CodePrinter) printExpr(expr ast.Expr, parentPrec int, isRight bool) {
	switch e := expr.(type) {
	case nil:
		p.write("<???>")
	case *ast.BinaryOp:
		prec := getPrecedence(e.Op)
		// Binary operators are left-associative.
		needParens := prec < parentPrec || (prec == parentPrec && isRight)
		p.parenthesized(needParens, func() {
			p.printExpr(e.Left, prec, false)
			p.write(" " + string(e.Op) + " ")
			p.printExpr(e.Right, prec, true)
		})
	case *ast.Conversion:
		p.parenthesized(precConversion < parentPrec || (precConversion == parentPrec && isRight), func() {
			p.printExpr(e.Value, precConversion, false)
			p.write(" as ")
			p.printType(e.Type)
		})
	case *ast.UnaryOp:
		p.parenthesized(precPrefix < parentPrec, func() {
			p.write(string(e.Op))
			p.printExpr(e.Operand, precPrefix, true)
		})
	case *ast.IntLit, *ast.FloatLit:
		// A folded negative literal reads as a prefix expression.
		p.parenthesized(isNegative(e) && parentPrec >= precPrefix, func() { p.printLiteral(e) })
	case *ast.Lambda, *ast.Loop:
		// The body extends as far right as possible.
		p.parenthesized(parentPrec > precLowest, func() { p.printOpen(e) })
	case *ast.IfExpr, *ast.MatchExpr:
		p.parenthesized(parentPrec > precLowest && !isRight || parentPrec >= precCall, func() { p.printOpen(e) })
	default:
		p.printOperand(expr)
	}
}

func (p *CodePrinter) parenthesized(needParens bool, fn func()) {
	if !needParens {
		fn()
		return
	}
	p.write("(")
	saved := p.noStruct
	p.noStruct = 0
	fn()
	p.noStruct = saved
	p.write(")")
}

func isNegative(e ast.Expr) bool {
	switch lit := e.(type) {
	case *ast.IntLit:
		return lit.Value < 0
	case *ast.FloatLit:
		return math.Signbit(lit.Value)
	}
	return false
}

// printOpen prints the expressions that end in an expression or a brace.
func (p *CodePrinter) printOpen(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.Lambda:
		p.write("fn")
		p.printParams(e.Params)
		if e.Result != nil {
			p.write(": ")
			p.printType(e.Result)
		}
		p.write(" -> ")
		p.printExpr(e.Body, precLowest, false)
	case *ast.Loop:
		p.write("loop ")
		items := make([]func(*CodePrinter), len(e.Bindings))
		for i, b := range e.Bindings {
			items[i] = func(c *CodePrinter) {
				c.noStruct = 0
				c.printLet(b.Name, b.Type, b.Value)
			}
		}
		p.printList("(", ")", items, false)
		p.write(" -> ")
		p.printExpr(e.Body, precLowest, false)
	case *ast.IfExpr:
		p.printIf(e)
	case *ast.MatchExpr:
		p.write("match ")
		p.noStruct++
		p.printExpr(e.Scrutinee, precLowest, false)
		p.noStruct--
		p.write(" {")
		saved := p.noStruct
		p.noStruct = 0
		p.indent++
		for i, arm := range e.Arms {
			p.writeln()
			p.writeIndent()
			p.printPattern(arm.Pattern)
			p.write(" -> ")
			p.printExpr(arm.Body, precLowest, false)
			if i < len(e.Arms)-1 {
				p.write(",")
			}
		}
		p.indent--
		p.noStruct = saved
		p.writeln()
		p.writeIndent()
		p.write("}")
	}
}

func (p *CodePrinter) printIf(e *ast.IfExpr) {
	p.write("if ")
	p.noStruct++
	p.printExpr(e.Cond, precLowest, false)
	p.noStruct--
	p.write(" ")
	p.printBlock(e.Then)
	switch els := e.Else.(type) {
	case nil:
	case *ast.IfExpr:
		p.write(" else ")
		p.printIf(els)
	case *ast.Block:
		p.write(" else ")
		p.printBlock(els)
	}
}

func (p *CodePrinter) printBlock(b *ast.Block) {
	if len(b.Stmts) == 0 && b.Result == nil {
		p.write("{}")
		return
	}
	saved := p.noStruct
	p.noStruct = 0
	p.write("{")
	p.indent++
	for _, stmt := range b.Stmts {
		p.writeln()
		p.writeIndent()
		switch s := stmt.(type) {
		case *ast.LetStmt:
			p.printLet(s.Name, s.Type, s.Value)
		case *ast.ExprStmt:
			p.printExpr(s.Expr, precLowest, false)
		}
	}
	if b.Result != nil {
		p.writeln()
		p.writeIndent()
		p.printExpr(b.Result, precLowest, false)
	}
	p.indent--
	p.writeln()
	p.writeIndent()
	p.write("}")
	p.noStruct = saved
}

// printOperand prints expressions that bind at least as tightly as a call.
func (p *CodePrinter) printOperand(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.BoolLit, *ast.CharLit, *ast.StringLit, *ast.UnitLit:
		p.printLiteral(e)
	case *ast.Identifier:
		p.write(e.Name)
	case *ast.Call:
		p.printExpr(e.Callee, precCall, false)
		p.printArgs(e.Args, e.Labels)
	case *ast.TupleLit:
		p.printArgs(e.Elems, nil)
	case *ast.Recur:
		p.write("recur")
		p.printArgs(e.Args, nil)
	case *ast.FieldAccess:
		p.printExpr(e.Target, precCall, false)
		p.write("." + e.Field)
	case *ast.StructLiteral:
		p.parenthesized(p.noStruct > 0, func() { p.printStructLiteral(e) })
	case *ast.Block:
		p.printBlock(e)
	case *ast.ForeignCall:
		p.write(e.Class + "#" + e.Method)
		p.printArgs(e.Args, nil)
	case *ast.ForeignField:
		p.write(e.Class + "#" + e.Field)
	default:
		p.write("<???>")
	}
}

// printArgs prints a parenthesized argument list. labels is nil or runs
// parallel to args.
func (p *CodePrinter) printArgs(args []ast.Expr, labels []string) {
	items := make([]func(*CodePrinter), len(args))
	for i, arg := range args {
		items[i] = func(c *CodePrinter) {
			c.noStruct = 0
			if labels != nil && labels[i] != "" {
				c.write(labels[i] + " = ")
			}
			c.printExpr(arg, precLowest, false)
		}
	}
	p.printList("(", ")", items, false)
}

func (p *CodePrinter) printStructLiteral(e *ast.StructLiteral) {
	if e.Qualifier != "" {
		p.write(e.Qualifier + ".")
	}
	p.write(e.Name + " ")
	items := make([]func(*CodePrinter), len(e.Fields))
	for i, f := range e.Fields {
		items[i] = func(c *CodePrinter) {
			c.noStruct = 0
			if id, ok := f.Value.(*ast.Identifier); ok && id.Name == f.Name {
				c.write(f.Name)
				return
			}
			c.write(f.Name + ": ")
			c.printExpr(f.Value, precLowest, false)
		}
	}
	p.printList("{", "}", items, true)
}

func (p *CodePrinter) printLiteral(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.IntLit:
		p.write(strconv.FormatInt(e.Value, 10))
		if e.Long {
			p.write("L")
		}
	case *ast.FloatLit:
		if e.Single {
			p.write(formatFloat(e.Value, 32) + "f")
			return
		}
		p.write(formatFloat(e.Value, 64))
	case *ast.BoolLit:
		p.write(strconv.FormatBool(e.Value))
	case *ast.CharLit:
		p.write("'" + escape(string(e.Value), '\'') + "'")
	case *ast.StringLit:
		p.write(`"` + escape(e.Value, '"') + `"`)
	case *ast.UnitLit:
		p.write("()")
	}
}

// formatFloat prints the shortest form that still lexes as a floating literal.
func formatFloat(v float64, bits int) string {
	s := strconv.FormatFloat(v, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eIN") {
		s += ".0"
	}
	return s
}

func escape(s string, quote rune) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case 0:
			sb.WriteString(`\0`)
		case '\\':
			sb.WriteString(`\\`)
		case quote:
			sb.WriteRune('\\')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func (p *CodePrinter) printPattern(pat ast.Pattern) {
	switch n := pat.(type) {
	case *ast.WildcardPattern:
		p.write("_")
	case *ast.BindingPattern:
		p.write(n.Name)
	case *ast.LiteralPattern:
		p.printLiteral(n.Value)
	case *ast.ConstructorPattern:
		if n.Qualifier != "" {
			p.write(n.Qualifier + ".")
		}
		p.write(n.Name)
		switch n.Shape {
		case ast.AltTuple:
			items := make([]func(*CodePrinter), len(n.Args))
			for i, arg := range n.Args {
				items[i] = func(c *CodePrinter) { c.printPattern(arg) }
			}
			p.printList("(", ")", items, false)
		case ast.AltRecord:
			p.write(" ")
			items := make([]func(*CodePrinter), len(n.Fields))
			for i, f := range n.Fields {
				items[i] = func(c *CodePrinter) {
					if b, ok := f.Pattern.(*ast.BindingPattern); ok && b.Name == f.Name {
						c.write(f.Name)
						return
					}
					c.write(f.Name + ": ")
					c.printPattern(f.Pattern)
				}
			}
			p.printList("{", "}", items, true)
		}
	case *ast.TuplePattern:
		items := make([]func(*CodePrinter), len(n.Elems))
		for i, elem := range n.Elems {
			items[i] = func(c *CodePrinter) { c.printPattern(elem) }
		}
		p.printList("(", ")", items, false)
	default:
		p.write("<???>")
	}
}
