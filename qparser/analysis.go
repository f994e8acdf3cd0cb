package qparser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Analyzer turns a query value into index terms.
// Implementations must be safe for concurrent use.
type Analyzer interface {
	Analyze(field, text string) []string
}

// StandardAnalyzer splits on Unicode word boundaries and lowercases.
type StandardAnalyzer struct{}

// Analyze implements Analyzer.
func (StandardAnalyzer) Analyze(_ string, text string) []string {
	var terms []string
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isWordRune(r) {
			i += size
			continue
		}
		start := i
		for i < len(text) {
			r, size = utf8.DecodeRuneInString(text[i:])
			if !isWordRune(r) {
				break
			}
			i += size
		}
		// Dots are kept inside numbers such as "1.5" only.
		if t := strings.Trim(text[start:i], "."); t != "" {
			terms = append(terms, strings.ToLower(t))
		}
	}
	return terms
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.'
}

// KeywordAnalyzer keeps the whole value as one term.
type KeywordAnalyzer struct{}

// Analyze implements Analyzer.
func (KeywordAnalyzer) Analyze(_ string, text string) []string {
	if text == "" {
		return nil
	}
	return []string{text}
}

// PerFieldAnalyzer dispatches on the field name and falls back to Default.
type PerFieldAnalyzer struct {
	Default Analyzer
	Fields  map[string]Analyzer
}

// Analyze implements Analyzer.
func (a PerFieldAnalyzer) Analyze(field, text string) []string {
	if fa, ok := a.Fields[field]; ok {
		return fa.Analyze(field, text)
	}
	if a.Default == nil {
		return StandardAnalyzer{}.Analyze(field, text)
	}
	return a.Default.Analyze(field, text)
}
