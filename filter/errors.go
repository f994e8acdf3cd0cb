package filter

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedFilter matches every *MalformedFilterError.
	ErrMalformedFilter = errors.New("malformed filter")

	// ErrUnsupportedFilterType matches every *UnsupportedFilterTypeError.
	ErrUnsupportedFilterType = errors.New("unsupported filter type")
)

// MalformedFilterError indicates a filter document that cannot be compiled:
// a root with zero or several keys, a wrong parameter shape, or a missing
// mandatory parameter.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type MalformedFilterError struct {
	// Type is the filter type being compiled, empty at the expression root.
	Type   string
	Reason string
	cause  error
}

func (e *MalformedFilterError) Error() string {
	if e.Type == "" {
		return "malformed filter: " + e.Reason
	}
	return fmt.Sprintf("malformed %s filter: %s", e.Type, e.Reason)
}

func (e *MalformedFilterError) Unwrap() error { return e.cause }

// Is reports whether target is ErrMalformedFilter.
func (e *MalformedFilterError) Is(target error) bool { return target == ErrMalformedFilter }

// UnsupportedFilterTypeError indicates a filter type name that is not registered.
type UnsupportedFilterTypeError struct {
	Type string
}

func (e *UnsupportedFilterTypeError) Error() string {
	return fmt.Sprintf("filter type %q not supported", e.Type)
}

// Is reports whether target is ErrUnsupportedFilterType.
func (e *UnsupportedFilterTypeError) Is(target error) bool { return target == ErrUnsupportedFilterType }

func malformed(typ, format string, args ...any) *MalformedFilterError {
	return &MalformedFilterError{Type: typ, Reason: fmt.Sprintf(format, args...)}
}

func malformedCause(typ string, cause error, format string, args ...any) *MalformedFilterError {
	return &MalformedFilterError{Type: typ, Reason: fmt.Sprintf(format, args...), cause: cause}
}
