package typesystem

// Subst holds the solutions of inference metas.
type Subst map[*Meta]Type

// Resolve follows solved metas at the top level of t.
func (s Subst) Resolve(t Type) Type {
	for {
		m, ok := t.(*Meta)
		if !ok {
			return t
		}
		r, ok := s[m]
		if !ok {
			return t
		}
		t = r
	}
}

// Apply replaces every solved meta in t, recursively.
func (s Subst) Apply(t Type) Type {
	t = s.Resolve(t)
	switch tt := t.(type) {
	case *Applied:
		args := make([]Type, len(tt.Args))
		changed := false
		for i, a := range tt.Args {
			args[i] = s.Apply(a)
			changed = changed || args[i] != a
		}
		if !changed {
			return tt
		}
		return &Applied{Base: tt.Base, Args: args}
	case *FuncType:
		params := make([]Type, len(tt.Params))
		for i, p := range tt.Params {
			params[i] = s.Apply(p)
		}
		return &FuncType{TypeParams: tt.TypeParams, Params: params, Result: s.Apply(tt.Result)}
	case *TupleType:
		elems := make([]Type, len(tt.Elems))
		for i, e := range tt.Elems {
			elems[i] = s.Apply(e)
		}
		return &TupleType{Elems: elems}
	}
	return t
}

// Unifier solves metas by structural unification. It never applies widening:
// numeric conversions are the checker's business.
type Unifier struct {
	Subst Subst
	next  int
}

func NewUnifier() *Unifier {
	return &Unifier{Subst: make(Subst)}
}

func (u *Unifier) Fresh(bound Bound) *Meta {
	u.next++
	return &Meta{ID: u.next, Bound: bound}
}

func (u *Unifier) Apply(t Type) Type { return u.Subst.Apply(t) }

// Unify makes expected and actual identical or reports why it cannot.
// On failure no partial solution is rolled back; callers report the error
// and continue with Invalid.
func (u *Unifier) Unify(expected, actual Type) error {
	a := u.Subst.Resolve(expected)
	b := u.Subst.Resolve(actual)

	if IsInvalid(a) || IsInvalid(b) {
		return nil
	}
	if ma, ok := a.(*Meta); ok {
		return u.bind(ma, b)
	}
	if mb, ok := b.(*Meta); ok {
		return u.bind(mb, a)
	}

	mismatch := &MismatchError{Expected: u.Apply(expected), Actual: u.Apply(actual)}
	switch ta := a.(type) {
	case Primitive:
		if tb, ok := b.(Primitive); ok && ta == tb {
			return nil
		}
	case *StructType, *VariantType, *ForeignType:
		if SameNominal(a, b) {
			return nil
		}
	case *TypeParam:
		if ta == b {
			return nil
		}
	case *Applied:
		tb, ok := b.(*Applied)
		if !ok || !SameNominal(ta.Base, tb.Base) || len(ta.Args) != len(tb.Args) {
			return mismatch
		}
		for i := range ta.Args {
			if err := u.Unify(ta.Args[i], tb.Args[i]); err != nil {
				return mismatch
			}
		}
		return nil
	case *FuncType:
		tb, ok := b.(*FuncType)
		if !ok || len(ta.Params) != len(tb.Params) {
			return mismatch
		}
		for i := range ta.Params {
			if err := u.Unify(ta.Params[i], tb.Params[i]); err != nil {
				return mismatch
			}
		}
		if err := u.Unify(ta.Result, tb.Result); err != nil {
			return mismatch
		}
		return nil
	case *TupleType:
		tb, ok := b.(*TupleType)
		if !ok || len(ta.Elems) != len(tb.Elems) {
			return mismatch
		}
		for i := range ta.Elems {
			if err := u.Unify(ta.Elems[i], tb.Elems[i]); err != nil {
				return mismatch
			}
		}
		return nil
	}
	return mismatch
}

func (u *Unifier) bind(m *Meta, t Type) error {
	if other, ok := t.(*Meta); ok {
		if other == m {
			return nil
		}
		if m.Bound > other.Bound {
			other.Bound = m.Bound
		}
		u.Subst[m] = other
		return nil
	}
	if u.occurs(m, t) {
		return &OccursError{Meta: m, Type: u.Apply(t)}
	}
	if !SatisfiesBound(t, m.Bound) {
		err := &BoundError{Bound: m.Bound, Type: u.Apply(t)}
		// A failed meta absorbs later uses so the violation surfaces once.
		u.Subst[m] = Invalid
		return err
	}
	u.Subst[m] = t
	return nil
}

func (u *Unifier) occurs(m *Meta, t Type) bool {
	t = u.Subst.Resolve(t)
	switch tt := t.(type) {
	case *Meta:
		return tt == m
	case *Applied:
		for _, a := range tt.Args {
			if u.occurs(m, a) {
				return true
			}
		}
	case *FuncType:
		for _, p := range tt.Params {
			if u.occurs(m, p) {
				return true
			}
		}
		return u.occurs(m, tt.Result)
	case *TupleType:
		for _, e := range tt.Elems {
			if u.occurs(m, e) {
				return true
			}
		}
	}
	return false
}

// SatisfiesBound reports whether t supports the operations bound b requires.
func SatisfiesBound(t Type, b Bound) bool {
	if b == BoundNone || IsInvalid(t) {
		return true
	}
	switch tt := t.(type) {
	case Primitive:
		if b == BoundNum {
			return IsNumeric(tt)
		}
		return IsNumeric(tt) || tt == String
	case *TypeParam:
		return tt.Bound.Satisfies(b)
	case *Meta:
		return tt.Bound.Satisfies(b)
	}
	return false
}

// SameNominal compares nominal types by their interned key.
func SameNominal(a, b Type) bool {
	switch ta := a.(type) {
	case *StructType:
		tb, ok := b.(*StructType)
		return ok && ta.Key() == tb.Key()
	case *VariantType:
		tb, ok := b.(*VariantType)
		return ok && ta.Key() == tb.Key()
	case *ForeignType:
		tb, ok := b.(*ForeignType)
		return ok && ta.Class == tb.Class
	}
	return false
}

// Identical compares two fully solved types: nominally for struct, variant and
// foreign types, structurally for function and applied types.
func Identical(a, b Type) bool {
	switch ta := a.(type) {
	case Primitive:
		tb, ok := b.(Primitive)
		return ok && ta == tb
	case *StructType, *VariantType, *ForeignType:
		return SameNominal(a, b)
	case *Applied:
		tb, ok := b.(*Applied)
		if !ok || !SameNominal(ta.Base, tb.Base) || len(ta.Args) != len(tb.Args) {
			return false
		}
		for i := range ta.Args {
			if !Identical(ta.Args[i], tb.Args[i]) {
				return false
			}
		}
		return true
	case *FuncType:
		tb, ok := b.(*FuncType)
		if !ok || len(ta.Params) != len(tb.Params) {
			return false
		}
		for i := range ta.Params {
			if !Identical(ta.Params[i], tb.Params[i]) {
				return false
			}
		}
		return Identical(ta.Result, tb.Result)
	case *TupleType:
		tb, ok := b.(*TupleType)
		if !ok || len(ta.Elems) != len(tb.Elems) {
			return false
		}
		for i := range ta.Elems {
			if !Identical(ta.Elems[i], tb.Elems[i]) {
				return false
			}
		}
		return true
	case *TypeParam, *Meta:
		return a == b
	}
	return IsInvalid(a) && IsInvalid(b)
}

// FreeMetas returns the unsolved metas of t in first-occurrence order.
func (s Subst) FreeMetas(t Type) []*Meta {
	var out []*Meta
	seen := make(map[*Meta]bool)
	var walk func(Type)
	walk = func(t Type) {
		t = s.Resolve(t)
		switch tt := t.(type) {
		case *Meta:
			if !seen[tt] {
				seen[tt] = true
				out = append(out, tt)
			}
		case *Applied:
			for _, a := range tt.Args {
				walk(a)
			}
		case *FuncType:
			for _, p := range tt.Params {
				walk(p)
			}
			walk(tt.Result)
		case *TupleType:
			for _, e := range tt.Elems {
				walk(e)
			}
		}
	}
	walk(t)
	return out
}
