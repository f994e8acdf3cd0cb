// Package querybuilder turns search requests into predicate trees.
package querybuilder

import (
	"errors"
	"fmt"

	"github.com/strategist922/sensei/codec"
	"github.com/strategist922/sensei/filter"
)

// ErrInvalidRequest is returned for requests that cannot be decoded.
var ErrInvalidRequest = errors.New("querybuilder: invalid request")

// Request is the query part of a search request.
type Request struct {
	// Query is free text in the qparser syntax. Empty matches everything.
	Query string `json:"query,omitempty" msgpack:"query,omitempty"`
	// Filter is a filter document, e.g. {"term": {"color": "red"}}.
	Filter map[string]any `json:"filter,omitempty" msgpack:"filter,omitempty"`
}

// DecodeRequest decodes a JSON request with c, or codec.Default if c is nil.
func DecodeRequest(data []byte, c codec.Codec) (*Request, error) {
	if c == nil {
		c = codec.Default
	}
	var req Request
	if err := c.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return &req, nil
}

// Builder holds the compiled parts of one request.
type Builder interface {
	// Query returns the parsed query, never nil.
	Query() filter.Predicate
	// Filter returns the compiled filter, never nil.
	Filter() filter.Predicate
}

// Factory creates a Builder per request. Implementations are bound to a
// partition by the node and must be safe for concurrent use.
type Factory interface {
	NewBuilder(req *Request) (Builder, error)
}

// Combined returns the predicate selecting the documents of b: the query
// AND-ed with the filter, simplified by filter.Optimize.
func Combined(b Builder) filter.Predicate {
	return filter.Optimize(&filter.And{Children: []filter.Predicate{b.Query(), b.Filter()}})
}

type builder struct {
	query  filter.Predicate
	filter filter.Predicate
}

func (b *builder) Query() filter.Predicate  { return b.query }
func (b *builder) Filter() filter.Predicate { return b.filter }
