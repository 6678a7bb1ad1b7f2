package analyzer

import (
	"github.com/funvibe/sasquach/internal/ast"
	"github.com/funvibe/sasquach/internal/diagnostics"
	"github.com/funvibe/sasquach/internal/symbols"
	"github.com/funvibe/sasquach/internal/typesystem"
)

// inferCall types a call. The callee is a module function, a builtin, a
// tuple alternative or any expression of function type. want, when known,
// seeds the result before arguments are checked.
func (c *Checker) inferCall(n *ast.Call, want typesystem.Type) typesystem.Type {
	if sym, ok := c.calleeSymbol(n.Callee); ok {
		switch {
		case sym.Kind == symbols.FunctionSymbol && sym.Builtin != symbols.NotBuiltin:
			c.rejectLabels(n)
			return c.record(n, c.inferBuiltinCall(n, sym))
		case sym.Kind == symbols.ConstructorSymbol:
			c.rejectLabels(n)
			return c.record(n, c.inferConstructorCall(n, sym, want))
		case sym.Kind == symbols.FunctionSymbol:
			ft, ok := c.funcType(sym, n.Callee.GetSpan()).(*typesystem.FuncType)
			if !ok {
				c.record(n.Callee, typesystem.Invalid)
				c.inferArgs(n.Args)
				return c.record(n, typesystem.Invalid)
			}
			inst := c.instantiate(ft)
			c.record(n.Callee, inst)
			if decl, ok := sym.Decl.(*ast.FunctionDecl); ok && (n.Labels != nil || hasLabels(decl)) {
				args, ok := c.orderArgs(n, sym.Name, decl, ft)
				if !ok {
					c.inferArgs(n.Args)
					return c.record(n, inst.Result)
				}
				c.result.Args[n] = args
			}
			return c.record(n, c.applyFunc(n, sym.Name, inst, want))
		}
	}

	c.rejectLabels(n)
	callee := c.resolve(c.infer(n.Callee))
	switch ct := callee.(type) {
	case *typesystem.FuncType:
		return c.record(n, c.applyFunc(n, "function", ct, want))
	case *typesystem.Meta:
		// An unannotated lambda parameter used as a function.
		ft := &typesystem.FuncType{Result: c.fresh(typesystem.BoundNone)}
		for range n.Args {
			ft.Params = append(ft.Params, c.fresh(typesystem.BoundNone))
		}
		c.unify(n.Callee.GetSpan(), ct, ft)
		return c.record(n, c.applyFunc(n, "function", ft, want))
	}
	if !typesystem.IsInvalid(callee) {
		c.errorf(diagnostics.TypeMismatch, n.Callee.GetSpan(), "cannot call a value of type %s", c.apply(callee))
	}
	c.inferArgs(n.Args)
	return c.record(n, typesystem.Invalid)
}

// calleeSymbol finds the module-level symbol a callee names directly.
func (c *Checker) calleeSymbol(callee ast.Expr) (*symbols.Symbol, bool) {
	switch e := callee.(type) {
	case *ast.Identifier, *ast.FieldAccess:
		sym, ok := c.symbolOf(e)
		if ok && (sym.Kind == symbols.FunctionSymbol || sym.Kind == symbols.ConstructorSymbol) {
			return sym, true
		}
	}
	return nil, false
}

func hasLabels(decl *ast.FunctionDecl) bool {
	for _, p := range decl.Params {
		if p.Label != "" {
			return true
		}
	}
	return false
}

// rejectLabels reports labels on a call whose callee has no declared
// parameters to match them against. The arguments stay positional.
func (c *Checker) rejectLabels(n *ast.Call) {
	for i, l := range n.Labels {
		if l != "" {
			c.errorf(diagnostics.InvalidArgumentLabel, n.Args[i].GetSpan(),
				"argument label %s needs a call to a declared function", l)
		}
	}
}

// orderArgs matches the arguments of n to the parameters of decl. A labeled
// parameter takes the argument passed with its label; the others take the
// positional arguments in order.
func (c *Checker) orderArgs(n *ast.Call, name string, decl *ast.FunctionDecl, ft *typesystem.FuncType) ([]ast.Expr, bool) {
	out := make([]ast.Expr, len(decl.Params))
	var positional []ast.Expr
	ok := true
	for i, a := range n.Args {
		label := ""
		if n.Labels != nil {
			label = n.Labels[i]
		}
		if label == "" {
			positional = append(positional, a)
			continue
		}
		j := -1
		for k, p := range decl.Params {
			if p.Label == label {
				j = k
				break
			}
		}
		switch {
		case j < 0:
			c.errorf(diagnostics.InvalidArgumentLabel, a.GetSpan(), "%s has no parameter labeled %s", name, label)
			ok = false
		case out[j] != nil:
			c.errorf(diagnostics.InvalidArgumentLabel, a.GetSpan(), "argument %s is given twice", label)
			ok = false
		default:
			out[j] = a
		}
	}
	unlabeled := 0
	for _, p := range decl.Params {
		if p.Label == "" {
			unlabeled++
		}
	}
	if len(positional) != unlabeled {
		c.errorf(diagnostics.TypeMismatch, n.Span, "%s takes %d positional argument(s), found %d", name, unlabeled, len(positional))
		return nil, false
	}
	next := 0
	for j, p := range decl.Params {
		if p.Label == "" {
			out[j] = positional[next]
			next++
			continue
		}
		if out[j] == nil {
			t := typesystem.Invalid
			if j < len(ft.Params) {
				t = ft.Params[j]
			}
			c.errorf(diagnostics.InvalidArgumentLabel, n.Span, "missing labeled argument %s of type %s", p.Label, t)
			ok = false
		}
	}
	return out, ok
}

// argsOf returns the arguments of n in parameter order.
func (c *Checker) argsOf(n *ast.Call) []ast.Expr {
	if args, ok := c.result.Args[n]; ok {
		return args
	}
	return n.Args
}

func (c *Checker) inferArgs(args []ast.Expr) {
	for _, a := range args {
		c.infer(a)
	}
}

func (c *Checker) inferBuiltinCall(n *ast.Call, sym *symbols.Symbol) typesystem.Type {
	c.record(n.Callee, sym.Type)
	ft := sym.Type.(*typesystem.FuncType)
	if len(n.Args) != 1 {
		c.errorf(diagnostics.TypeMismatch, n.Span, "%s takes 1 argument, found %d", sym.Name, len(n.Args))
		c.inferArgs(n.Args)
		return ft.Result
	}
	c.infer(n.Args[0])
	return ft.Result
}

func (c *Checker) inferConstructorCall(n *ast.Call, sym *symbols.Symbol, want typesystem.Type) typesystem.Type {
	alt := sym.Alt
	result := c.instance(alt.Variant)
	c.record(n.Callee, result)
	switch alt.Kind {
	case typesystem.AltUnit:
		c.errorf(diagnostics.TypeMismatch, n.Span, "%s takes no arguments", sym.Name)
		c.inferArgs(n.Args)
		return result
	case typesystem.AltRecord:
		c.errorf(diagnostics.TypeMismatch, n.Span, "%s is built with %s { ... }", sym.Name, sym.Name)
		c.inferArgs(n.Args)
		return result
	}
	ft := &typesystem.FuncType{Result: result}
	for _, f := range typesystem.AltFields(alt, result) {
		ft.Params = append(ft.Params, f.Type)
	}
	return c.applyFunc(n, sym.Name, ft, want)
}

// applyFunc checks the arguments of n against a monomorphic signature.
// Lambdas go last so that metas they depend on are solved by the other
// arguments first.
func (c *Checker) applyFunc(n *ast.Call, name string, ft *typesystem.FuncType, want typesystem.Type) typesystem.Type {
	args := c.argsOf(n)
	if len(args) != len(ft.Params) {
		c.errorf(diagnostics.TypeMismatch, n.Span, "%s takes %d argument(s), found %d", name, len(ft.Params), len(args))
		c.inferArgs(args)
		return ft.Result
	}
	if want != nil && len(c.decl.unifier.Subst.FreeMetas(ft.Result)) > 0 {
		// Failure is reported by the caller's expect.
		_ = c.decl.unifier.Unify(want, ft.Result)
	}
	var lambdas []int
	for i, a := range args {
		if _, ok := a.(*ast.Lambda); ok {
			lambdas = append(lambdas, i)
			continue
		}
		c.check(a, ft.Params[i])
	}
	for _, i := range lambdas {
		c.check(args[i], c.apply(ft.Params[i]))
	}
	return ft.Result
}
