package filter

import (
	"strconv"
)

// FieldType decides how leaf filters compare values of a field.
type FieldType uint8

const (
	// FieldString compares values lexicographically.
	FieldString FieldType = iota
	// FieldNumeric compares values as float64.
	FieldNumeric
	// FieldPath holds delimited hierarchical values.
	FieldPath
)

func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "string"
	case FieldNumeric:
		return "numeric"
	case FieldPath:
		return "path"
	default:
		return "unknown"
	}
}

// DefaultPathSeparator separates path segments when the schema names none.
const DefaultPathSeparator = "/"

// FieldInfo describes one field of the index schema.
type FieldInfo struct {
	Type FieldType
	// Separator is the path delimiter for FieldPath fields.
	Separator string
	// Multi marks fields that hold several values per document.
	Multi bool
}

// Schema is a read-only lookup of field metadata.
// Implementations must be safe for concurrent use.
type Schema interface {
	Field(name string) (FieldInfo, bool)
}

// MapSchema is a Schema backed by a map.
type MapSchema map[string]FieldInfo

// Field implements Schema.
func (s MapSchema) Field(name string) (FieldInfo, bool) {
	fi, ok := s[name]
	return fi, ok
}

// emptySchema knows no fields; every field compares as a string.
type emptySchema struct{}

func (emptySchema) Field(string) (FieldInfo, bool) { return FieldInfo{}, false }

// FormatNumber returns the canonical term for a numeric value.
// Indexers must store numeric fields with the same formatting so that
// term filters on numeric fields hit.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func fieldInfo(s Schema, field string) FieldInfo {
	if fi, ok := s.Field(field); ok {
		if fi.Type == FieldPath && fi.Separator == "" {
			fi.Separator = DefaultPathSeparator
		}
		return fi
	}
	return FieldInfo{Type: FieldString}
}
