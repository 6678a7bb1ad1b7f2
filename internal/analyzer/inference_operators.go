package analyzer

import (
	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/token"
	"github.com/funvibe/sasquach/internal/typesystem"
)

// operands infers both sides of a binary operator. An Int literal on one
// side adopts the type of the other side when it fits.
func (c *Checker) operands(n *ast.BinaryOp) (typesystem.Type, typesystem.Type) {
	llit, lok := n.Left.(*ast.IntLit)
	rlit, rok := n.Right.(*ast.IntLit)
	switch {
	case lok && !rok:
		r := c.infer(n.Right)
		return c.literalOperand(llit, r), r
	case rok && !lok:
		l := c.infer(n.Left)
		return l, c.literalOperand(rlit, l)
	}
	return c.infer(n.Left), c.infer(n.Right)
}

func (c *Checker) literalOperand(lit *ast.IntLit, other typesystem.Type) typesystem.Type {
	switch o := c.resolve(other).(type) {
	case typesystem.Primitive:
		if !lit.Long && adoptsIntLiteral(o) && typesystem.IntLiteralFits(lit.Value, o) {
			return c.record(lit, o)
		}
	case *typesystem.Meta:
		return c.check(lit, o)
	}
	return c.infer(lit)
}

// promote records the widenings that bring both numeric operands to a
// common primitive and returns it.
func (c *Checker) promote(n *ast.BinaryOp, l, r typesystem.Primitive) (typesystem.Primitive, bool) {
	common, ok := typesystem.BinaryResult(l, r)
	if !ok {
		return 0, false
	}
	if l != common {
		c.result.Widenings[n.Left] = common
	}
	if r != common {
		c.result.Widenings[n.Right] = common
	}
	return common, true
}

func (c *Checker) inferBinary(n *ast.BinaryOp) typesystem.Type {
	switch n.Op {
	case token.AND, token.OR:
		c.check(n.Left, typesystem.Bool)
		c.check(n.Right, typesystem.Bool)
		return typesystem.Bool
	}

	l, r := c.operands(n)
	lt, rt := c.resolve(l), c.resolve(r)
	if typesystem.IsInvalid(lt) || typesystem.IsInvalid(rt) {
		switch n.Op {
		case token.EQ, token.NOT_EQ, token.LT, token.LTE, token.GT, token.GTE:
			return typesystem.Bool
		}
		return typesystem.Invalid
	}
	lp, lprim := lt.(typesystem.Primitive)
	rp, rprim := rt.(typesystem.Primitive)
	numeric := lprim && rprim && typesystem.IsNumeric(lp) && typesystem.IsNumeric(rp)

	switch n.Op {
	case token.EQ, token.NOT_EQ:
		if numeric {
			if _, ok := c.promote(n, lp, rp); ok {
				return typesystem.Bool
			}
		}
		if err := c.decl.unifier.Unify(l, r); err != nil {
			c.errorf(diagnostics.TypeMismatch, n.Span, "cannot compare %s with %s", c.apply(l), c.apply(r))
		}
		return typesystem.Bool

	case token.LT, token.LTE, token.GT, token.GTE:
		if numeric {
			if _, ok := c.promote(n, lp, rp); ok {
				return typesystem.Bool
			}
		}
		if lprim && rprim && lp == typesystem.String && rp == typesystem.String {
			return typesystem.Bool
		}
		if c.generic(n, lt, rt, typesystem.BoundOrd) != nil {
			return typesystem.Bool
		}
		c.errorf(diagnostics.TypeMismatch, n.Span, "operator %s needs ordered operands, found %s and %s",
			n.Op, c.apply(l), c.apply(r))
		return typesystem.Bool
	}

	// Arithmetic.
	if numeric {
		if common, ok := c.promote(n, lp, rp); ok {
			return common
		}
	}
	if n.Op == token.PLUS && lprim && rprim && lp == typesystem.String && rp == typesystem.String {
		return typesystem.String
	}
	if t := c.generic(n, lt, rt, typesystem.BoundNum); t != nil {
		return t
	}
	c.errorf(diagnostics.TypeMismatch, n.Span, "operator %s needs numeric operands, found %s and %s",
		n.Op, c.apply(l), c.apply(r))
	return typesystem.Invalid
}

// generic handles operands that are type parameters or metas. Both sides
// must be the same type and satisfy bound. It returns nil when the operands
// are not generic at all.
func (c *Checker) generic(n *ast.BinaryOp, l, r typesystem.Type, bound typesystem.Bound) typesystem.Type {
	_, lmeta := l.(*typesystem.Meta)
	_, rmeta := r.(*typesystem.Meta)
	lp, lparam := l.(*typesystem.TypeParam)
	_, rparam := r.(*typesystem.TypeParam)

	switch {
	case lparam && l == r:
		if !lp.Bound.Satisfies(bound) {
			c.errorf(diagnostics.TypeMismatch, n.Span, "%s is not %s; declare %s: %s",
				lp.Name, describeBound(bound), lp.Name, bound)
			return typesystem.Invalid
		}
		return l
	case lmeta || rmeta:
		m := c.fresh(bound)
		if c.unify(n.Left.GetSpan(), m, l) && c.unify(n.Right.GetSpan(), m, r) {
			return m
		}
		return typesystem.Invalid
	case lparam || rparam:
		c.errorf(diagnostics.TypeMismatch, n.Span, "operator %s needs operands of the same type, found %s and %s",
			n.Op, l, r)
		return typesystem.Invalid
	}
	return nil
}

func (c *Checker) inferUnary(n *ast.UnaryOp) typesystem.Type {
	if n.Op == token.BANG {
		c.check(n.Operand, typesystem.Bool)
		return typesystem.Bool
	}
	t := c.resolve(c.infer(n.Operand))
	switch tt := t.(type) {
	case typesystem.Primitive:
		if typesystem.IsNumeric(tt) {
			p := typesystem.Promote(tt)
			if p != tt {
				c.result.Widenings[n.Operand] = p
			}
			return p
		}
	case *typesystem.TypeParam:
		if tt.Bound.Satisfies(typesystem.BoundNum) {
			return tt
		}
	case *typesystem.Meta:
		m := c.fresh(typesystem.BoundNum)
		if c.unify(n.Operand.GetSpan(), m, tt) {
			return m
		}
		return typesystem.Invalid
	}
	if typesystem.IsInvalid(t) {
		return t
	}
	c.errorf(diagnostics.TypeMismatch, n.Span, "operator - needs a numeric operand, found %s", c.apply(t))
	return typesystem.Invalid
}
