// Package filter compiles the JSON filter DSL into predicate trees.
//
// A filter expression is a JSON object with exactly one key naming the filter
// type. The value carries type specific parameters:
//
//	{"and": [
//	    {"term":  {"color": "red"}},
//	    {"range": {"year": {"from": 2000, "to": 2010, "include_upper": false}}},
//	    {"bool":  {"must_not": {"terms": {"tags": {"values": ["sold", "hidden"]}}}}}
//	]}
//
// # Filter Types
//
// Leaf types are stateless and shared by every Compiler:
//
//   - ids:       exact document UID match ("values", "excludes")
//   - selection: facet value selection ("values", "excludes", "operator", "params")
//   - range:     bounded field range ("from", "to", "include_lower", "include_upper")
//   - term:      single term equality ("value")
//   - terms:     multi-term membership ("values", "excludes", "operator")
//   - path:      hierarchical prefix match ("value", "strict", "depth")
//
// Parameterized types are bound to the Compiler's QueryParser:
//
//   - query: embedded free-text query
//   - and:   all children match (empty list matches everything)
//   - or:    any child matches (empty list matches nothing)
//   - bool:  "must", "must_not", "should" clause groups
//
// Any object-valued filter may carry "_noOptimize": true, which keeps
// Optimize from rewriting that node.
//
// # Evaluation
//
// A Predicate evaluates against a Reader, a point-in-time view of one
// partition, and returns the matching document numbers as a roaring bitmap.
// Predicates are immutable and safe to evaluate concurrently.
package filter
