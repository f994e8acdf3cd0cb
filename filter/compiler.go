package filter

import (
	"github.com/strategist922/sensei/codec"
)

// Compiler turns filter documents into predicate trees.
//
// A Compiler is immutable after construction and safe for concurrent use.
// It holds no per-query state.
type Compiler struct {
	d     *dispatcher
	codec codec.Codec
}

type compilerOptions struct {
	schema Schema
	parser QueryParser
	codec  codec.Codec
}

// Option configures a Compiler.
type Option func(*compilerOptions)

// WithQueryParser sets the parser used by "query" filters.
func WithQueryParser(p QueryParser) Option {
	return func(o *compilerOptions) {
		o.parser = p
	}
}

// WithSchema sets the field metadata consulted by leaf filters.
func WithSchema(s Schema) Option {
	return func(o *compilerOptions) {
		if s != nil {
			o.schema = s
		}
	}
}

// WithCodec sets the codec used by CompileJSON.
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *compilerOptions) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// NewCompiler creates a Compiler.
func NewCompiler(opts ...Option) *Compiler {
	o := compilerOptions{
		schema: emptySchema{},
		codec:  codec.Default,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return &Compiler{
		d:     newDispatcher(o.schema, o.parser),
		codec: o.codec,
	}
}

// Compile compiles one filter expression.
func (c *Compiler) Compile(doc map[string]any) (Predicate, error) {
	if doc == nil {
		return nil, malformed("", "filter is null")
	}
	return c.d.compile(doc, 0)
}

// CompileJSON decodes data with the compiler's codec and compiles it.
//
// Numbers are decoded as float64, so ids above 2^53 lose precision.
func (c *Compiler) CompileJSON(data []byte) (Predicate, error) {
	if len(data) == 0 {
		return nil, malformed("", "filter is empty")
	}
	var doc any
	if err := c.codec.Unmarshal(data, &doc); err != nil {
		return nil, malformedCause("", err, "invalid JSON: %v", err)
	}
	if doc == nil {
		return nil, malformed("", "filter is null")
	}
	return c.d.compile(doc, 0)
}

// CompileValue compiles an already decoded filter value, as found nested
// inside a larger request document.
func (c *Compiler) CompileValue(doc any) (Predicate, error) {
	if doc == nil {
		return nil, malformed("", "filter is null")
	}
	return c.d.compile(doc, 0)
}
