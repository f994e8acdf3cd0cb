package querybuilder

import (
	"fmt"

	"github.com/strategist922/sensei/filter"
)

// JSONFactory is the default Factory. The query text goes through the
// parser and the filter document through a filter.Compiler that shares it.
type JSONFactory struct {
	parser   filter.QueryParser
	compiler *filter.Compiler
}

var _ Factory = (*JSONFactory)(nil)

// NewJSONFactory creates a factory. A nil parser rejects non-empty queries.
func NewJSONFactory(parser filter.QueryParser, opts ...filter.Option) *JSONFactory {
	all := make([]filter.Option, 0, len(opts)+1)
	all = append(all, filter.WithQueryParser(parser))
	all = append(all, opts...)
	return &JSONFactory{
		parser:   parser,
		compiler: filter.NewCompiler(all...),
	}
}

// Compiler returns the filter compiler used by the factory.
func (f *JSONFactory) Compiler() *filter.Compiler { return f.compiler }

// NewBuilder implements Factory.
func (f *JSONFactory) NewBuilder(req *Request) (Builder, error) {
	if req == nil {
		req = &Request{}
	}
	b := &builder{query: &filter.MatchAll{}, filter: &filter.MatchAll{}}
	if req.Query != "" {
		if f.parser == nil {
			return nil, fmt.Errorf("%w: no query parser configured", ErrInvalidRequest)
		}
		q, err := f.parser.Parse(req.Query)
		if err != nil {
			return nil, fmt.Errorf("%w: query %q: %w", ErrInvalidRequest, req.Query, err)
		}
		b.query = q
	}
	if req.Filter != nil {
		p, err := f.compiler.Compile(req.Filter)
		if err != nil {
			return nil, err
		}
		b.filter = p
	}
	return b, nil
}
