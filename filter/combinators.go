package filter

import "strings"

// QueryParser parses the free-text query syntax into a predicate.
// Implementations must be safe for concurrent use.
type QueryParser interface {
	Parse(text string) (Predicate, error)
}

// queryConstructor owns the injected parser.
type queryConstructor struct {
	parser QueryParser
}

func (c queryConstructor) Construct(_ *Builder, params any) (Predicate, error) {
	var (
		text string
		meta Meta
		err  error
	)
	switch v := params.(type) {
	case string:
		text = v
	case map[string]any:
		s, ok := v[ParamQuery].(string)
		if !ok {
			return nil, malformed(TypeQuery, "%q must be a string", ParamQuery)
		}
		text = s
		if meta, err = metaParam(TypeQuery, v); err != nil {
			return nil, err
		}
	default:
		return nil, malformed(TypeQuery, "expected a query string or an object")
	}
	if strings.TrimSpace(text) == "" {
		return &Query{Text: text, Inner: &MatchAll{}, M: meta}, nil
	}
	if c.parser == nil {
		return nil, malformed(TypeQuery, "no query parser configured")
	}
	inner, err := c.parser.Parse(text)
	if err != nil {
		return nil, malformedCause(TypeQuery, err, "cannot parse %q: %v", text, err)
	}
	return &Query{Text: text, Inner: inner, M: meta}, nil
}

// The combinators compile their children through the Builder, which
// dispatches with the same parser as the query constructor.

type andConstructor struct{}

func (andConstructor) Construct(b *Builder, params any) (Predicate, error) {
	children, err := childList(TypeAnd, b, params)
	if err != nil {
		return nil, err
	}
	return &And{Children: children}, nil
}

type orConstructor struct{}

func (orConstructor) Construct(b *Builder, params any) (Predicate, error) {
	children, err := childList(TypeOr, b, params)
	if err != nil {
		return nil, err
	}
	return &Or{Children: children}, nil
}

type boolConstructor struct{}

func (boolConstructor) Construct(b *Builder, params any) (Predicate, error) {
	obj, ok := asObject(params)
	if !ok {
		return nil, malformed(TypeBool, "expected an object")
	}
	for k := range obj {
		switch k {
		case ParamMust, ParamMustNot, ParamShould, ParamOr, ParamNoOptimize:
		default:
			return nil, malformed(TypeBool, "unknown clause %q", k)
		}
	}

	var (
		p   = &Boolean{}
		err error
	)
	if p.Must, err = optionalChildList(TypeBool, b, obj[ParamMust]); err != nil {
		return nil, err
	}
	if p.MustNot, err = optionalChildList(TypeBool, b, obj[ParamMustNot]); err != nil {
		return nil, err
	}
	if p.Should, err = optionalChildList(TypeBool, b, obj[ParamShould]); err != nil {
		return nil, err
	}
	if p.Or, err = boolParam(TypeBool, obj, ParamOr, false); err != nil {
		return nil, err
	}
	if p.M, err = metaParam(TypeBool, obj); err != nil {
		return nil, err
	}
	return p, nil
}

// childList compiles an array of filters. A single filter object is
// accepted as a one-element list.
func childList(typ string, b *Builder, params any) ([]Predicate, error) {
	var items []any
	switch v := params.(type) {
	case []any:
		items = v
	case map[string]any:
		items = []any{v}
	default:
		return nil, malformed(typ, "expected an array of filters")
	}
	out := make([]Predicate, 0, len(items))
	for _, item := range items {
		p, err := b.Compile(item)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func optionalChildList(typ string, b *Builder, params any) ([]Predicate, error) {
	if params == nil {
		return nil, nil
	}
	return childList(typ, b, params)
}
