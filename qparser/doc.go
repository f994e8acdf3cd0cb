// Package qparser parses the free-text query syntax used by the "query"
// filter and by the "query" member of search requests.
//
// Syntax:
//
//	red car              terms on the default field, OR-ed
//	color:red            term on a named field
//	"red car"            phrase, every token must match
//	+color:red -year:1999
//	                     required and prohibited clauses
//	a AND b, a OR b, NOT a, a && b, a || b, !a
//	color:(red OR blue)  grouping, with a field scope
//
// Values are analyzed by the parser's Analyzer (lowercased Unicode words by
// default). Field names are kept as written.
package qparser
