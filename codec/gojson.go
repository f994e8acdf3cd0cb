package codec

import gojson "github.com/goccy/go-json"

// GoJSON is the default codec. It decodes filter documents and search
// requests, and encodes search results for callers that serialize them.
//
// Decoding into any yields map[string]any, []any, string, bool and float64
// values, which is the shape filter.Compiler walks.
type GoJSON struct{}

// Marshal encodes v as JSON.
func (GoJSON) Marshal(v any) ([]byte, error) { return gojson.Marshal(v) }

// Unmarshal decodes a JSON document into v.
func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }

// Name returns "go-json", the name ByName resolves.
func (GoJSON) Name() string { return "go-json" }
