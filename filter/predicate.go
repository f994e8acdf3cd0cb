package filter

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

// Reader is a point-in-time view of one partition's index.
// Implementations must be safe for concurrent use and must not mutate
// returned bitmaps after handing them out.
type Reader interface {
	// MaxDoc returns one past the largest document number.
	MaxDoc() uint32
	// Live returns the non-deleted documents.
	Live() *roaring.Bitmap
	// Postings returns the documents holding term in field, or nil.
	Postings(field, term string) *roaring.Bitmap
	// Terms returns the distinct terms of field in ascending order.
	Terms(field string) []string
	// UIDs returns the document numbers of the given external ids.
	UIDs(uids []int64) *roaring.Bitmap
}

// Kind identifies a predicate node.
type Kind uint8

const (
	KindMatchAll Kind = iota
	KindMatchNone
	KindIDs
	KindTerm
	KindTerms
	KindSelection
	KindRange
	KindPath
	KindAnd
	KindOr
	KindNot
	KindBoolean
	KindQuery
)

var kindNames = [...]string{
	KindMatchAll:  "match_all",
	KindMatchNone: "match_none",
	KindIDs:       "ids",
	KindTerm:      "term",
	KindTerms:     "terms",
	KindSelection: "selection",
	KindRange:     "range",
	KindPath:      "path",
	KindAnd:       "and",
	KindOr:        "or",
	KindNot:       "not",
	KindBoolean:   "bool",
	KindQuery:     "query",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Meta carries execution hints that never change match semantics.
type Meta struct {
	// NoOptimize keeps Optimize from rewriting the node.
	NoOptimize bool
	// Params holds free-form facet handler parameters (selection filters).
	Params map[string]string
}

// Predicate is a node of an immutable predicate tree.
type Predicate interface {
	Kind() Kind
	Meta() Meta
	// Eval returns the live documents of r matching the predicate.
	// The returned bitmap is owned by the caller.
	Eval(r Reader) *roaring.Bitmap
	String() string
}

// Operator combines the values of a multi-term filter.
type Operator uint8

const (
	// OpOr matches documents holding any of the values.
	OpOr Operator = iota
	// OpAnd matches documents holding all of the values.
	OpAnd
)

func (o Operator) String() string {
	if o == OpAnd {
		return "and"
	}
	return "or"
}

// MatchAll matches every live document.
type MatchAll struct{ M Meta }

func (p *MatchAll) Kind() Kind                    { return KindMatchAll }
func (p *MatchAll) Meta() Meta                    { return p.M }
func (p *MatchAll) Eval(r Reader) *roaring.Bitmap { return r.Live().Clone() }
func (p *MatchAll) String() string                { return "*:*" }

// MatchNone matches nothing.
type MatchNone struct{ M Meta }

func (p *MatchNone) Kind() Kind                  { return KindMatchNone }
func (p *MatchNone) Meta() Meta                  { return p.M }
func (p *MatchNone) Eval(Reader) *roaring.Bitmap { return roaring.New() }
func (p *MatchNone) String() string              { return "-*:*" }

// IDs matches documents by external UID.
type IDs struct {
	Values []int64
	// HasValues distinguishes an empty values list (match nothing) from an
	// absent one (match everything not excluded).
	HasValues bool
	Excludes  []int64
	M         Meta
}

func (p *IDs) Kind() Kind { return KindIDs }
func (p *IDs) Meta() Meta { return p.M }

func (p *IDs) Eval(r Reader) *roaring.Bitmap {
	live := r.Live()
	var out *roaring.Bitmap
	if p.HasValues {
		out = and(r.UIDs(p.Values), live)
	} else {
		out = live.Clone()
	}
	if len(p.Excludes) > 0 {
		if ex := r.UIDs(p.Excludes); ex != nil {
			out.AndNot(ex)
		}
	}
	return out
}

func (p *IDs) String() string {
	var sb strings.Builder
	sb.WriteString("_uid:(")
	for i, v := range p.Values {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.FormatInt(v, 10))
	}
	sb.WriteByte(')')
	for _, v := range p.Excludes {
		sb.WriteString(" -_uid:")
		sb.WriteString(strconv.FormatInt(v, 10))
	}
	return sb.String()
}

// Term matches documents holding a single term.
type Term struct {
	Field string
	Value string
	M     Meta
}

func (p *Term) Kind() Kind { return KindTerm }
func (p *Term) Meta() Meta { return p.M }

func (p *Term) Eval(r Reader) *roaring.Bitmap {
	return and(r.Postings(p.Field, p.Value), r.Live())
}

func (p *Term) String() string { return p.Field + ":" + p.Value }

// Terms matches documents holding the listed values of a field, combined
// with Operator, minus documents holding any excluded value.
type Terms struct {
	Field    string
	Values   []string
	Excludes []string
	Operator Operator
	M        Meta
}

func (p *Terms) Kind() Kind                    { return KindTerms }
func (p *Terms) Meta() Meta                    { return p.M }
func (p *Terms) Eval(r Reader) *roaring.Bitmap { return evalTermSet(r, p.Field, p.Values, p.Excludes, p.Operator) }
func (p *Terms) String() string                { return termSetString(p.Field, p.Values, p.Excludes, p.Operator) }

// Selection is a facet value selection. It matches like Terms over the
// facet's precomputed values; Meta().Params carries the facet parameters.
type Selection struct {
	Field    string
	Values   []string
	Excludes []string
	Operator Operator
	M        Meta
}

func (p *Selection) Kind() Kind { return KindSelection }
func (p *Selection) Meta() Meta { return p.M }
func (p *Selection) Eval(r Reader) *roaring.Bitmap {
	return evalTermSet(r, p.Field, p.Values, p.Excludes, p.Operator)
}
func (p *Selection) String() string {
	return "facet(" + termSetString(p.Field, p.Values, p.Excludes, p.Operator) + ")"
}

func evalTermSet(r Reader, field string, values, excludes []string, op Operator) *roaring.Bitmap {
	live := r.Live()
	var out *roaring.Bitmap
	switch {
	case len(values) == 0:
		out = live.Clone()
	case op == OpAnd:
		out = live.Clone()
		for _, v := range values {
			pl := r.Postings(field, v)
			if pl == nil {
				return roaring.New()
			}
			out.And(pl)
		}
	default:
		out = roaring.New()
		for _, v := range values {
			if pl := r.Postings(field, v); pl != nil {
				out.Or(pl)
			}
		}
		out.And(live)
	}
	for _, v := range excludes {
		if pl := r.Postings(field, v); pl != nil {
			out.AndNot(pl)
		}
	}
	return out
}

func termSetString(field string, values, excludes []string, op Operator) string {
	var sb strings.Builder
	sb.WriteString(field)
	sb.WriteString(":(")
	sep := " OR "
	if op == OpAnd {
		sep = " AND "
	}
	sb.WriteString(strings.Join(values, sep))
	sb.WriteByte(')')
	for _, v := range excludes {
		sb.WriteString(" -")
		sb.WriteString(field)
		sb.WriteByte(':')
		sb.WriteString(v)
	}
	return sb.String()
}

// Bound is one side of a Range.
type Bound struct {
	// Set is false for an unbounded side.
	Set       bool
	Value     string
	Num       float64
	Inclusive bool
}

// Range matches documents whose field value lies within the bounds.
// Numeric ranges parse the indexed terms as float64, others compare them
// lexicographically.
type Range struct {
	Field   string
	Lower   Bound
	Upper   Bound
	Numeric bool
	M       Meta
}

func (p *Range) Kind() Kind { return KindRange }
func (p *Range) Meta() Meta { return p.M }

func (p *Range) Eval(r Reader) *roaring.Bitmap {
	terms := r.Terms(p.Field)
	out := roaring.New()
	if p.Numeric {
		for _, t := range terms {
			f, err := strconv.ParseFloat(t, 64)
			if err != nil || math.IsNaN(f) {
				continue
			}
			if p.inNumeric(f) {
				if pl := r.Postings(p.Field, t); pl != nil {
					out.Or(pl)
				}
			}
		}
	} else {
		start := 0
		if p.Lower.Set {
			start = sort.SearchStrings(terms, p.Lower.Value)
		}
		for _, t := range terms[start:] {
			if p.Lower.Set && !p.Lower.Inclusive && t == p.Lower.Value {
				continue
			}
			if p.Upper.Set {
				if t > p.Upper.Value || (!p.Upper.Inclusive && t == p.Upper.Value) {
					break
				}
			}
			if pl := r.Postings(p.Field, t); pl != nil {
				out.Or(pl)
			}
		}
	}
	out.And(r.Live())
	return out
}

func (p *Range) inNumeric(f float64) bool {
	if p.Lower.Set {
		if f < p.Lower.Num || (!p.Lower.Inclusive && f == p.Lower.Num) {
			return false
		}
	}
	if p.Upper.Set {
		if f > p.Upper.Num || (!p.Upper.Inclusive && f == p.Upper.Num) {
			return false
		}
	}
	return true
}

func (p *Range) String() string {
	var sb strings.Builder
	sb.WriteString(p.Field)
	sb.WriteByte(':')
	if p.Lower.Inclusive && p.Lower.Set {
		sb.WriteByte('[')
	} else {
		sb.WriteByte('{')
	}
	if p.Lower.Set {
		sb.WriteString(p.Lower.Value)
	} else {
		sb.WriteByte('*')
	}
	sb.WriteString(" TO ")
	if p.Upper.Set {
		sb.WriteString(p.Upper.Value)
	} else {
		sb.WriteByte('*')
	}
	if p.Upper.Inclusive && p.Upper.Set {
		sb.WriteByte(']')
	} else {
		sb.WriteByte('}')
	}
	return sb.String()
}

// Path matches documents whose path-valued field equals Value or lies below
// it. Matching is case-sensitive.
type Path struct {
	Field     string
	Value     string
	Separator string
	// Strict excludes Value itself and matches descendants only.
	Strict bool
	// Depth limits how many segments below Value still match; 0 is unlimited.
	Depth int
	M     Meta
}

func (p *Path) Kind() Kind { return KindPath }
func (p *Path) Meta() Meta { return p.M }

func (p *Path) Eval(r Reader) *roaring.Bitmap {
	sep := p.Separator
	if sep == "" {
		sep = DefaultPathSeparator
	}
	base := strings.TrimSuffix(p.Value, sep)
	prefix := base + sep

	terms := r.Terms(p.Field)
	out := roaring.New()
	for i := sort.SearchStrings(terms, base); i < len(terms); i++ {
		t := terms[i]
		if !strings.HasPrefix(t, base) {
			break
		}
		if t == base || t == prefix {
			if p.Strict {
				continue
			}
		} else {
			rest, ok := strings.CutPrefix(t, prefix)
			if !ok {
				continue
			}
			if p.Depth > 0 && strings.Count(strings.TrimSuffix(rest, sep), sep)+1 > p.Depth {
				continue
			}
		}
		if pl := r.Postings(p.Field, t); pl != nil {
			out.Or(pl)
		}
	}
	out.And(r.Live())
	return out
}

func (p *Path) String() string {
	s := p.Field + ":" + p.Value + p.Separator + "**"
	if p.Strict {
		s += "(strict)"
	}
	return s
}

// And matches documents matched by every child. No children match everything.
type And struct {
	Children []Predicate
	M        Meta
}

func (p *And) Kind() Kind                    { return KindAnd }
func (p *And) Meta() Meta                    { return p.M }
func (p *And) Eval(r Reader) *roaring.Bitmap { return evalAll(r, p.Children) }
func (p *And) String() string                { return joinChildren("+", " ", p.Children) }

// Or matches documents matched by any child. No children match nothing.
type Or struct {
	Children []Predicate
	M        Meta
}

func (p *Or) Kind() Kind                    { return KindOr }
func (p *Or) Meta() Meta                    { return p.M }
func (p *Or) Eval(r Reader) *roaring.Bitmap { return evalAny(r, p.Children) }
func (p *Or) String() string                { return joinChildren("", " OR ", p.Children) }

// Not matches the live documents its child does not match.
type Not struct {
	Child Predicate
	M     Meta
}

func (p *Not) Kind() Kind { return KindNot }
func (p *Not) Meta() Meta { return p.M }

func (p *Not) Eval(r Reader) *roaring.Bitmap {
	out := r.Live().Clone()
	out.AndNot(p.Child.Eval(r))
	return out
}

func (p *Not) String() string { return "-" + p.Child.String() }

// Boolean is the three-clause boolean filter.
//
// It matches AND(Must) and NOT OR(MustNot). Should restricts matching only
// when Must and MustNot are both empty; otherwise it is kept for scoring.
//
// Or joins the clause groups of this filter with OR instead of AND; it does
// not affect filters outside the Boolean. So {"must": A, "must_not": B,
// "or": true} matches A OR NOT B, which admits every document outside B.
type Boolean struct {
	Must    []Predicate
	MustNot []Predicate
	Should  []Predicate
	Or      bool
	M       Meta
}

func (p *Boolean) Kind() Kind { return KindBoolean }
func (p *Boolean) Meta() Meta { return p.M }

// ShouldRestricts reports whether the should clauses take part in matching.
func (p *Boolean) ShouldRestricts() bool {
	return len(p.Must) == 0 && len(p.MustNot) == 0 && len(p.Should) > 0
}

func (p *Boolean) Eval(r Reader) *roaring.Bitmap {
	groups := make([]*roaring.Bitmap, 0, 3)
	if len(p.Must) > 0 {
		groups = append(groups, evalAll(r, p.Must))
	}
	if len(p.MustNot) > 0 {
		g := r.Live().Clone()
		g.AndNot(evalAny(r, p.MustNot))
		groups = append(groups, g)
	}
	if p.ShouldRestricts() {
		groups = append(groups, evalAny(r, p.Should))
	}
	if len(groups) == 0 {
		return r.Live().Clone()
	}
	out := groups[0]
	for _, g := range groups[1:] {
		if p.Or {
			out.Or(g)
		} else {
			out.And(g)
		}
	}
	return out
}

func (p *Boolean) String() string {
	var sb strings.Builder
	sb.WriteString("bool(")
	write := func(name string, ps []Predicate) {
		if len(ps) == 0 {
			return
		}
		if sb.Len() > len("bool(") {
			sb.WriteByte(' ')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(joinChildren("", ", ", ps))
	}
	write("must", p.Must)
	write("must_not", p.MustNot)
	write("should", p.Should)
	if p.Or {
		sb.WriteString(" or")
	}
	sb.WriteByte(')')
	return sb.String()
}

// Query wraps the predicate parsed from an embedded free-text query.
type Query struct {
	Text  string
	Inner Predicate
	M     Meta
}

func (p *Query) Kind() Kind                    { return KindQuery }
func (p *Query) Meta() Meta                    { return p.M }
func (p *Query) Eval(r Reader) *roaring.Bitmap { return p.Inner.Eval(r) }
func (p *Query) String() string                { return "query(" + p.Inner.String() + ")" }

// Children returns the direct children of p.
func Children(p Predicate) []Predicate {
	switch v := p.(type) {
	case *And:
		return v.Children
	case *Or:
		return v.Children
	case *Not:
		return []Predicate{v.Child}
	case *Boolean:
		out := make([]Predicate, 0, len(v.Must)+len(v.MustNot)+len(v.Should))
		out = append(out, v.Must...)
		out = append(out, v.MustNot...)
		return append(out, v.Should...)
	case *Query:
		return []Predicate{v.Inner}
	default:
		return nil
	}
}

// Walk calls fn for p and every descendant in depth-first order.
// Returning false from fn skips the node's children.
func Walk(p Predicate, fn func(Predicate) bool) {
	if p == nil || !fn(p) {
		return
	}
	for _, c := range Children(p) {
		Walk(c, fn)
	}
}

func evalAll(r Reader, ps []Predicate) *roaring.Bitmap {
	if len(ps) == 0 {
		return r.Live().Clone()
	}
	out := ps[0].Eval(r)
	for _, c := range ps[1:] {
		if out.IsEmpty() {
			break
		}
		out.And(c.Eval(r))
	}
	return out
}

func evalAny(r Reader, ps []Predicate) *roaring.Bitmap {
	out := roaring.New()
	for _, c := range ps {
		out.Or(c.Eval(r))
	}
	return out
}

func and(a, live *roaring.Bitmap) *roaring.Bitmap {
	if a == nil {
		return roaring.New()
	}
	return roaring.And(a, live)
}

func joinChildren(prefix, sep string, ps []Predicate) string {
	parts := make([]string, len(ps))
	for i, c := range ps {
		parts[i] = prefix + c.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}
