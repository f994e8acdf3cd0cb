package filter

import (
	"sort"
)

// Filter type names.
const (
	TypeIDs       = "ids"
	TypeSelection = "selection"
	TypeRange     = "range"
	TypeTerm      = "term"
	TypePath      = "path"
	TypeTerms     = "terms"
	TypeQuery     = "query"
	TypeAnd       = "and"
	TypeOr        = "or"
	TypeBool      = "bool"
)

// MaxDepth bounds the nesting depth of a filter document.
const MaxDepth = 64

// Constructor builds a predicate from the parameters of one filter type.
type Constructor interface {
	Construct(b *Builder, params any) (Predicate, error)
}

// leafConstructors is the static table. It is never written after init.
var leafConstructors = map[string]Constructor{
	TypeIDs:       idsConstructor{},
	TypeSelection: selectionConstructor{},
	TypeRange:     rangeConstructor{},
	TypeTerm:      termConstructor{},
	TypePath:      pathConstructor{},
	TypeTerms:     termsConstructor{},
}

var parameterizedTypes = []string{TypeQuery, TypeAnd, TypeOr, TypeBool}

// newParameterized returns the constructor of a parser-bound type.
func newParameterized(typ string, parser QueryParser) (Constructor, bool) {
	switch typ {
	case TypeQuery:
		return queryConstructor{parser: parser}, true
	case TypeAnd:
		return andConstructor{}, true
	case TypeOr:
		return orConstructor{}, true
	case TypeBool:
		return boolConstructor{}, true
	default:
		return nil, false
	}
}

// Types returns every registered filter type name in sorted order.
func Types() []string {
	out := make([]string, 0, len(leafConstructors)+len(parameterizedTypes))
	for name := range leafConstructors {
		out = append(out, name)
	}
	out = append(out, parameterizedTypes...)
	sort.Strings(out)
	return out
}

// IsRegistered reports whether typ names a filter type.
func IsRegistered(typ string) bool {
	if _, ok := leafConstructors[typ]; ok {
		return true
	}
	_, ok := newParameterized(typ, nil)
	return ok
}

// dispatcher resolves type names against both tables.
type dispatcher struct {
	schema        Schema
	parameterized map[string]Constructor
}

func newDispatcher(schema Schema, parser QueryParser) *dispatcher {
	d := &dispatcher{
		schema:        schema,
		parameterized: make(map[string]Constructor, len(parameterizedTypes)),
	}
	for _, typ := range parameterizedTypes {
		c, _ := newParameterized(typ, parser)
		d.parameterized[typ] = c
	}
	return d
}

func (d *dispatcher) lookup(typ string) (Constructor, bool) {
	if c, ok := leafConstructors[typ]; ok {
		return c, true
	}
	c, ok := d.parameterized[typ]
	return c, ok
}

func (d *dispatcher) compile(doc any, depth int) (Predicate, error) {
	if depth > MaxDepth {
		return nil, malformed("", "filter nesting exceeds %d levels", MaxDepth)
	}
	obj, ok := doc.(map[string]any)
	if !ok || obj == nil {
		return nil, malformed("", "filter must be a JSON object, got %T", doc)
	}
	switch len(obj) {
	case 0:
		return nil, malformed("", "filter type not specified")
	case 1:
	default:
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, malformed("", "filter must have exactly one type key, got %v", keys)
	}
	for typ, params := range obj {
		c, ok := d.lookup(typ)
		if !ok {
			return nil, &UnsupportedFilterTypeError{Type: typ}
		}
		return c.Construct(&Builder{d: d, depth: depth}, params)
	}
	panic("unreachable")
}

// Builder is handed to constructors to compile nested filters.
type Builder struct {
	d     *dispatcher
	depth int
}

// Compile compiles a nested filter expression.
func (b *Builder) Compile(doc any) (Predicate, error) {
	return b.d.compile(doc, b.depth+1)
}

// Schema returns the field metadata used for leaf comparisons.
func (b *Builder) Schema() Schema { return b.d.schema }
