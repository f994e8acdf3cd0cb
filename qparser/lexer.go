package qparser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokWord
	tokPhrase
	tokColon
	tokLParen
	tokRParen
	tokPlus
	tokMinus
	tokAnd
	tokOr
	tokNot
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokWord:
		return "word"
	case tokPhrase:
		return "phrase"
	case tokColon:
		return "':'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokPlus:
		return "'+'"
	case tokMinus:
		return "'-'"
	case tokAnd:
		return "AND"
	case tokOr:
		return "OR"
	case tokNot:
		return "NOT"
	default:
		return "unknown"
	}
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

// tokenize splits a query into tokens. "color:red" yields word, colon, word.
func tokenize(query string) ([]token, error) {
	var toks []token
	for i := 0; i < len(query); {
		r, size := utf8.DecodeRuneInString(query[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case r == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case r == ':':
			toks = append(toks, token{kind: tokColon, text: ":", pos: i})
			i++
		case r == '+' && startsClause(toks):
			toks = append(toks, token{kind: tokPlus, text: "+", pos: i})
			i++
		case r == '-' && startsClause(toks):
			toks = append(toks, token{kind: tokMinus, text: "-", pos: i})
			i++
		case r == '!':
			toks = append(toks, token{kind: tokNot, text: "!", pos: i})
			i++
		case strings.HasPrefix(query[i:], "&&"):
			toks = append(toks, token{kind: tokAnd, text: "&&", pos: i})
			i += 2
		case strings.HasPrefix(query[i:], "||"):
			toks = append(toks, token{kind: tokOr, text: "||", pos: i})
			i += 2
		case r == '"':
			end := strings.IndexByte(query[i+1:], '"')
			if end < 0 {
				return nil, &ParseError{Pos: i, Msg: "unterminated phrase"}
			}
			toks = append(toks, token{kind: tokPhrase, text: query[i+1 : i+1+end], pos: i})
			i += end + 2
		default:
			start := i
			for i < len(query) {
				r, size = utf8.DecodeRuneInString(query[i:])
				if unicode.IsSpace(r) || r == '(' || r == ')' || r == ':' || r == '"' {
					break
				}
				i += size
			}
			word := query[start:i]
			toks = append(toks, token{kind: keyword(word), text: word, pos: start})
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(query)}), nil
}

// startsClause reports whether a '+' or '-' at this point is a modifier
// rather than part of a word such as "2004-10".
func startsClause(toks []token) bool {
	if len(toks) == 0 {
		return true
	}
	switch toks[len(toks)-1].kind {
	case tokLParen, tokAnd, tokOr, tokNot, tokWord, tokPhrase, tokRParen:
		return true
	}
	return false
}

// keyword recognizes the upper-case operators. Lower-case "and" is a term.
func keyword(word string) tokenKind {
	switch word {
	case "AND":
		return tokAnd
	case "OR":
		return tokOr
	case "NOT":
		return tokNot
	default:
		return tokWord
	}
}
