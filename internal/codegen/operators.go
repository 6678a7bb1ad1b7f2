package codegen

import (
	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/classfile"
	"github.com/funvibe/sasquach/internal/token"
)

var arithmetic = map[token.TokenType]classfile.Opcode{
	token.PLUS:     classfile.IADD,
	token.MINUS:    classfile.ISUB,
	token.ASTERISK: classfile.IMUL,
	token.SLASH:    classfile.IDIV,
	token.PERCENT:  classfile.IREM,
}

// genericOps names the Ops helpers for operands of erased numeric type.
var genericOps = map[token.TokenType]string{
	token.PLUS:     "add",
	token.MINUS:    "sub",
	token.ASTERISK: "mul",
	token.SLASH:    "div",
	token.PERCENT:  "rem",
}

// relation indexes the ifeq..ifle and if_icmpeq..if_icmple families. An
// index xor 1 is its negation.
var relation = map[token.TokenType]classfile.Opcode{
	token.EQ:     0,
	token.NOT_EQ: 1,
	token.LT:     2,
	token.GTE:    3,
	token.GT:     4,
	token.LTE:    5,
}

func (f *fn) compileBinary(n *ast.BinaryOp) {
	if _, ok := relation[n.Op]; ok || n.Op == token.AND || n.Op == token.OR {
		f.materialize(n)
		return
	}
	natural := f.natural(n)
	switch {
	case natural == stringDesc && n.Op == token.PLUS:
		f.value(n.Left, stringDesc)
		f.value(n.Right, stringDesc)
		f.a.Invoke(classfile.INVOKEVIRTUAL, stringClass, "concat", "("+stringDesc+")"+stringDesc, false)
	case isPrimitiveDesc(natural):
		f.value(n.Left, natural)
		f.value(n.Right, natural)
		f.a.Math(arithmetic[n.Op] + kindOffset(natural[0]))
	default:
		f.value(n.Left, objectDesc)
		f.value(n.Right, objectDesc)
		f.usesOps = true
		f.a.Invoke(classfile.INVOKESTATIC, opsClass, genericOps[n.Op], "("+objectDesc+objectDesc+")"+objectDesc, false)
		f.coerce(objectDesc, natural)
	}
}

// materialize turns a condition into a 0 or 1 on the stack.
func (f *fn) materialize(e ast.Expr) {
	no, end := f.a.NewLabel(), f.a.NewLabel()
	f.branch(e, no, false)
	f.a.PushInt(1)
	f.a.Jump(classfile.GOTO, end)
	f.a.Mark(no)
	f.a.PushInt(0)
	f.a.Mark(end)
}

// branch jumps to target when e evaluates to when and falls through
// otherwise. It always emits at least one jump to target, so a later Mark of
// target is reachable.
func (f *fn) branch(e ast.Expr, target *classfile.Label, when bool) {
	switch n := e.(type) {
	case *ast.UnaryOp:
		if n.Op == token.BANG {
			f.branch(n.Operand, target, !when)
			return
		}
	case *ast.BinaryOp:
		switch n.Op {
		case token.AND, token.OR:
			// (a && b) jumps on false as soon as a side is false, and on true
			// only when both are. || is the mirror image.
			short := n.Op == token.OR
			if when == short {
				f.branch(n.Left, target, when)
				f.branch(n.Right, target, when)
				return
			}
			skip := f.a.NewLabel()
			f.branch(n.Left, skip, !when)
			f.branch(n.Right, target, when)
			f.a.Mark(skip)
			return
		}
		if rel, ok := relation[n.Op]; ok {
			if !when {
				rel ^= 1
			}
			f.compare(n, rel, target)
			return
		}
	}
	f.value(e, "Z")
	if when {
		f.a.Jump(classfile.IFNE, target)
	} else {
		f.a.Jump(classfile.IFEQ, target)
	}
}

// compare evaluates both operands and jumps to target when relation rel holds
// between them.
func (f *fn) compare(n *ast.BinaryOp, rel classfile.Opcode, target *classfile.Label) {
	d := f.desc(f.typeAfter(n.Left))
	switch {
	case d == voidDesc:
		f.value(n.Left, voidDesc)
		f.value(n.Right, voidDesc)
		// () == () always holds. Test a zero so the jump stays conditional.
		f.a.PushInt(0)
		f.a.Jump(classfile.IFEQ+rel, target)
		return
	case isPrimitiveDesc(d):
		f.value(n.Left, d)
		f.value(n.Right, d)
		switch stackKind(d[0]) {
		case 'I':
			f.a.Jump(classfile.IF_ICMPEQ+rel, target)
			return
		case 'J':
			f.a.Compare(classfile.LCMP)
		case 'F':
			f.a.Compare(nanSafe(n.Op, classfile.FCMPL, classfile.FCMPG))
		case 'D':
			f.a.Compare(nanSafe(n.Op, classfile.DCMPL, classfile.DCMPG))
		}
	case rel <= 1:
		f.value(n.Left, objectDesc)
		f.value(n.Right, objectDesc)
		f.a.Invoke(classfile.INVOKESTATIC, "java/util/Objects", "equals", "("+objectDesc+objectDesc+")Z", false)
		// equals leaves 1 for equal; EQ must jump on nonzero.
		f.a.Jump(classfile.IFEQ+(rel^1), target)
		return
	case d == stringDesc:
		f.value(n.Left, stringDesc)
		f.value(n.Right, stringDesc)
		f.a.Invoke(classfile.INVOKEVIRTUAL, stringClass, "compareTo", "("+stringDesc+")I", false)
	default:
		f.value(n.Left, objectDesc)
		f.value(n.Right, objectDesc)
		f.usesOps = true
		f.a.Invoke(classfile.INVOKESTATIC, opsClass, "compare", "("+objectDesc+objectDesc+")I", false)
	}
	f.a.Jump(classfile.IFEQ+rel, target)
}

// nanSafe picks the floating compare that makes a NaN operand fail the
// written operator: the g variant for < and <=, the l variant otherwise.
func nanSafe(op token.TokenType, l, g classfile.Opcode) classfile.Opcode {
	if op == token.LT || op == token.LTE {
		return g
	}
	return l
}
