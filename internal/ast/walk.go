package ast

// Inspect traverses the tree rooted at node in source order, calling f for
// each node. If f returns false the children of that node are skipped.
func Inspect(node Node, f func(Node) bool) {
	if node == nil || !f(node) {
		return
	}
	switch n := node.(type) {
	case *Module:
		for _, d := range n.Decls {
			Inspect(d, f)
		}
	case *FunctionDecl:
		for _, p := range n.Params {
			Inspect(p, f)
		}
		if n.Result != nil {
			Inspect(n.Result, f)
		}
		Inspect(n.Body, f)
	case *StructDecl:
		for _, fd := range n.Fields {
			Inspect(fd.Type, f)
		}
	case *VariantDecl:
		for _, alt := range n.Alternatives {
			for _, t := range alt.Types {
				Inspect(t, f)
			}
			for _, fd := range alt.Fields {
				Inspect(fd.Type, f)
			}
		}
	case *TypeAliasDecl:
		Inspect(n.Type, f)
	case *LetDecl:
		if n.Type != nil {
			Inspect(n.Type, f)
		}
		Inspect(n.Value, f)
	case *Param:
		if n.Type != nil {
			Inspect(n.Type, f)
		}

	case *Call:
		Inspect(n.Callee, f)
		for _, a := range n.Args {
			Inspect(a, f)
		}
	case *BinaryOp:
		Inspect(n.Left, f)
		Inspect(n.Right, f)
	case *UnaryOp:
		Inspect(n.Operand, f)
	case *IfExpr:
		Inspect(n.Cond, f)
		Inspect(n.Then, f)
		if n.Else != nil {
			Inspect(n.Else, f)
		}
	case *MatchExpr:
		Inspect(n.Scrutinee, f)
		for _, arm := range n.Arms {
			Inspect(arm, f)
		}
	case *MatchArm:
		Inspect(n.Pattern, f)
		Inspect(n.Body, f)
	case *FieldAccess:
		Inspect(n.Target, f)
	case *StructLiteral:
		for _, fi := range n.Fields {
			Inspect(fi, f)
		}
	case *FieldInit:
		Inspect(n.Value, f)
	case *Lambda:
		for _, p := range n.Params {
			Inspect(p, f)
		}
		if n.Result != nil {
			Inspect(n.Result, f)
		}
		Inspect(n.Body, f)
	case *Block:
		for _, s := range n.Stmts {
			Inspect(s, f)
		}
		if n.Result != nil {
			Inspect(n.Result, f)
		}
	case *Conversion:
		Inspect(n.Value, f)
		Inspect(n.Type, f)
	case *ForeignCall:
		for _, a := range n.Args {
			Inspect(a, f)
		}
	case *TupleLit:
		for _, e := range n.Elems {
			Inspect(e, f)
		}
	case *Loop:
		for _, b := range n.Bindings {
			Inspect(b, f)
		}
		Inspect(n.Body, f)
	case *Recur:
		for _, a := range n.Args {
			Inspect(a, f)
		}
	case *LetStmt:
		if n.Type != nil {
			Inspect(n.Type, f)
		}
		Inspect(n.Value, f)
	case *ExprStmt:
		Inspect(n.Expr, f)

	case *ConstructorPattern:
		for _, a := range n.Args {
			Inspect(a, f)
		}
		for _, fp := range n.Fields {
			Inspect(fp, f)
		}
	case *TuplePattern:
		for _, e := range n.Elems {
			Inspect(e, f)
		}
	case *FieldPattern:
		Inspect(n.Pattern, f)
	case *LiteralPattern:
		Inspect(n.Value, f)

	case *AppliedType:
		Inspect(n.Base, f)
		for _, a := range n.Args {
			Inspect(a, f)
		}
	case *FuncTypeExpr:
		for _, p := range n.Params {
			Inspect(p, f)
		}
		Inspect(n.Result, f)
	case *TupleType:
		for _, e := range n.Elems {
			Inspect(e, f)
		}
	}
}
