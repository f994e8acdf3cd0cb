package qparser

import (
	"errors"
	"fmt"

	"github.com/strategist922/sensei/filter"
)

// DefaultField is searched by terms that name no field.
const DefaultField = "contents"

// ErrSyntax is matched by every ParseError.
var ErrSyntax = errors.New("qparser: syntax error")

// ParseError reports where a query could not be parsed.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("qparser: %s at offset %d", e.Msg, e.Pos)
}

// Is reports whether target is ErrSyntax.
func (e *ParseError) Is(target error) bool { return target == ErrSyntax }

// Operator is the implicit operator between adjacent clauses.
type Operator uint8

const (
	OperatorOr Operator = iota
	OperatorAnd
)

// Parser parses query strings. It is immutable and safe for concurrent use.
type Parser struct {
	field    string
	op       Operator
	analyzer Analyzer
}

var _ filter.QueryParser = (*Parser)(nil)

// Option configures a Parser.
type Option func(*Parser)

// WithDefaultField sets the field searched by unqualified terms.
func WithDefaultField(field string) Option {
	return func(p *Parser) {
		if field != "" {
			p.field = field
		}
	}
}

// WithDefaultOperator sets the operator between clauses without AND/OR.
func WithDefaultOperator(op Operator) Option {
	return func(p *Parser) {
		p.op = op
	}
}

// WithAnalyzer sets the value analyzer.
func WithAnalyzer(a Analyzer) Option {
	return func(p *Parser) {
		if a != nil {
			p.analyzer = a
		}
	}
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{
		field:    DefaultField,
		op:       OperatorOr,
		analyzer: StandardAnalyzer{},
	}
	for _, fn := range opts {
		fn(p)
	}
	return p
}

// DefaultField returns the field searched by unqualified terms.
func (p *Parser) DefaultField() string { return p.field }

// Parse implements filter.QueryParser. A blank query matches everything.
func (p *Parser) Parse(text string) (filter.Predicate, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	st := &state{p: p, toks: toks}
	pred, err := st.query(p.field)
	if err != nil {
		return nil, err
	}
	if t := st.peek(); t.kind != tokEOF {
		return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %s", t.kind)}
	}
	if pred == nil {
		return &filter.MatchAll{}, nil
	}
	return pred, nil
}

type occur uint8

const (
	occurShould occur = iota
	occurMust
	occurMustNot
)

type clause struct {
	occur occur
	pred  filter.Predicate
}

type state struct {
	p    *Parser
	toks []token
	i    int
}

func (s *state) peek() token { return s.toks[s.i] }

func (s *state) next() token {
	t := s.toks[s.i]
	if t.kind != tokEOF {
		s.i++
	}
	return t
}

// query parses clauses up to a closing parenthesis or the end of input.
// A nil predicate means no clause produced any term.
func (s *state) query(field string) (filter.Predicate, error) {
	var clauses []clause
	for {
		t := s.peek()
		if t.kind == tokEOF || t.kind == tokRParen {
			break
		}

		conj := tokEOF
		if t.kind == tokAnd || t.kind == tokOr {
			if len(clauses) == 0 {
				return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("%s without a left operand", t.kind)}
			}
			conj = s.next().kind
		}

		mod := tokEOF
		switch s.peek().kind {
		case tokPlus, tokMinus, tokNot:
			mod = s.next().kind
		}

		pred, err := s.primary(field)
		if err != nil {
			return nil, err
		}

		// The previous clause takes the conjunction too.
		if n := len(clauses); n > 0 && clauses[n-1].occur != occurMustNot {
			if conj == tokAnd {
				clauses[n-1].occur = occurMust
			} else if conj == tokOr && s.p.op == OperatorAnd {
				clauses[n-1].occur = occurShould
			}
		}

		c := clause{pred: pred}
		switch {
		case mod == tokMinus || mod == tokNot:
			c.occur = occurMustNot
		case mod == tokPlus:
			c.occur = occurMust
		case conj == tokAnd:
			c.occur = occurMust
		case conj == tokOr:
			c.occur = occurShould
		case s.p.op == OperatorAnd:
			c.occur = occurMust
		}
		if pred != nil {
			clauses = append(clauses, c)
		}
	}
	return combine(clauses), nil
}

func (s *state) primary(field string) (filter.Predicate, error) {
	t := s.next()
	switch t.kind {
	case tokLParen:
		return s.group(field, t)
	case tokPhrase:
		return s.p.terms(field, t.text), nil
	case tokWord:
		if s.peek().kind != tokColon {
			return s.p.terms(field, t.text), nil
		}
		s.next()
		v := s.next()
		switch v.kind {
		case tokWord, tokPhrase:
			return s.p.terms(t.text, v.text), nil
		case tokLParen:
			return s.group(t.text, v)
		default:
			return nil, &ParseError{Pos: v.pos, Msg: fmt.Sprintf("expected a value after %q:", t.text)}
		}
	default:
		return nil, &ParseError{Pos: t.pos, Msg: fmt.Sprintf("unexpected %s", t.kind)}
	}
}

func (s *state) group(field string, open token) (filter.Predicate, error) {
	pred, err := s.query(field)
	if err != nil {
		return nil, err
	}
	if s.next().kind != tokRParen {
		return nil, &ParseError{Pos: open.pos, Msg: "unbalanced parenthesis"}
	}
	return pred, nil
}

// terms analyzes a value. Several terms must all match, which is how
// phrases are approximated without positional postings.
func (p *Parser) terms(field, text string) filter.Predicate {
	ts := p.analyzer.Analyze(field, text)
	switch len(ts) {
	case 0:
		return nil
	case 1:
		return &filter.Term{Field: field, Value: ts[0]}
	}
	children := make([]filter.Predicate, len(ts))
	for i, v := range ts {
		children[i] = &filter.Term{Field: field, Value: v}
	}
	return &filter.And{Children: children}
}

func combine(clauses []clause) filter.Predicate {
	if len(clauses) == 0 {
		return nil
	}
	if len(clauses) == 1 && clauses[0].occur != occurMustNot {
		return clauses[0].pred
	}
	var b filter.Boolean
	for _, c := range clauses {
		switch c.occur {
		case occurMust:
			b.Must = append(b.Must, c.pred)
		case occurMustNot:
			b.MustNot = append(b.MustNot, c.pred)
		default:
			b.Should = append(b.Should, c.pred)
		}
	}
	switch {
	case len(b.MustNot) == 0 && len(b.Should) == 0:
		return &filter.And{Children: b.Must}
	case len(b.MustNot) == 0 && len(b.Must) == 0:
		return &filter.Or{Children: b.Should}
	}
	return &b
}
