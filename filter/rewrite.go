package filter

// Optimize returns a predicate that matches exactly the same documents as p
// with a simpler shape.
//
// Rules: nested and/or nodes are flattened, MatchAll is dropped from and,
// MatchNone short-circuits and, MatchAll short-circuits or, double negation
// cancels, single-child combinators are unwrapped and a bool filter whose
// should clause does not restrict is kept for scoring. Nodes marked
// NoOptimize are returned untouched together with their subtree.
func Optimize(p Predicate) Predicate {
	if p == nil || p.Meta().NoOptimize {
		return p
	}
	switch v := p.(type) {
	case *And:
		return optimizeAnd(v.Children)
	case *Or:
		return optimizeOr(v.Children)
	case *Not:
		return optimizeNot(Optimize(v.Child))
	case *Boolean:
		return optimizeBoolean(v)
	case *Query:
		return &Query{Text: v.Text, Inner: Optimize(v.Inner)}
	case *Terms:
		if len(v.Values) == 1 && len(v.Excludes) == 0 {
			return &Term{Field: v.Field, Value: v.Values[0]}
		}
		return p
	default:
		return p
	}
}

func optimizeAnd(children []Predicate) Predicate {
	out := make([]Predicate, 0, len(children))
	for _, c := range children {
		c = Optimize(c)
		switch v := c.(type) {
		case *MatchAll:
			continue
		case *MatchNone:
			return &MatchNone{}
		case *And:
			if !v.M.NoOptimize {
				out = append(out, v.Children...)
				continue
			}
		}
		out = append(out, c)
	}
	switch len(out) {
	case 0:
		return &MatchAll{}
	case 1:
		return out[0]
	default:
		return &And{Children: out}
	}
}

func optimizeOr(children []Predicate) Predicate {
	out := make([]Predicate, 0, len(children))
	for _, c := range children {
		c = Optimize(c)
		switch v := c.(type) {
		case *MatchNone:
			continue
		case *MatchAll:
			return &MatchAll{}
		case *Or:
			if !v.M.NoOptimize {
				out = append(out, v.Children...)
				continue
			}
		}
		out = append(out, c)
	}
	switch len(out) {
	case 0:
		return &MatchNone{}
	case 1:
		return out[0]
	default:
		return &Or{Children: out}
	}
}

func optimizeNot(child Predicate) Predicate {
	switch v := child.(type) {
	case *MatchAll:
		return &MatchNone{}
	case *MatchNone:
		return &MatchAll{}
	case *Not:
		if !v.M.NoOptimize {
			return v.Child
		}
	}
	return &Not{Child: child}
}

func optimizeBoolean(b *Boolean) Predicate {
	if len(b.Should) > 0 && !b.ShouldRestricts() {
		return &Boolean{
			Must:    optimizeEach(b.Must),
			MustNot: optimizeEach(b.MustNot),
			Should:  optimizeEach(b.Should),
			Or:      b.Or,
		}
	}

	groups := make([]Predicate, 0, 3)
	if len(b.Must) > 0 {
		groups = append(groups, &And{Children: b.Must})
	}
	if len(b.MustNot) > 0 {
		groups = append(groups, &Not{Child: &Or{Children: b.MustNot}})
	}
	if b.ShouldRestricts() {
		groups = append(groups, &Or{Children: b.Should})
	}
	if len(groups) == 0 {
		return &MatchAll{}
	}
	if b.Or {
		return optimizeOr(groups)
	}
	return optimizeAnd(groups)
}

func optimizeEach(ps []Predicate) []Predicate {
	if len(ps) == 0 {
		return nil
	}
	out := make([]Predicate, len(ps))
	for i, p := range ps {
		out[i] = Optimize(p)
	}
	return out
}
