// Package ident derives identity keys for resources handed out by
// factories.
//
// Two values share a key only when they are the same reference: a non-nil
// pointer, map or channel to the same non-empty allocation, with the same
// dynamic type. Every other value (structs, funcs, pointers to zero-size
// types) has no key and is distinct from everything, including copies of
// itself.
package ident

import "reflect"

// Key identifies one referenced allocation.
type Key struct {
	typ reflect.Type
	ptr uintptr
}

// Of returns the identity key of v, or false when v has none.
func Of(v any) (Key, bool) {
	if v == nil {
		return Key{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() || rv.Type().Elem().Size() == 0 {
			return Key{}, false
		}
	case reflect.Map, reflect.Chan:
		if rv.IsNil() {
			return Key{}, false
		}
	default:
		return Key{}, false
	}
	return Key{typ: rv.Type(), ptr: rv.Pointer()}, true
}

// Set tracks values by identity in insertion order. Values without a key
// are always added as new entries.
type Set[T any] struct {
	seen  map[Key]struct{}
	order []T
}

// NewSet creates an empty Set.
func NewSet[T any]() *Set[T] {
	return &Set[T]{seen: map[Key]struct{}{}}
}

// Add reports whether v was not tracked yet.
func (s *Set[T]) Add(v T) bool {
	if k, ok := Of(v); ok {
		if _, dup := s.seen[k]; dup {
			return false
		}
		s.seen[k] = struct{}{}
	}
	s.order = append(s.order, v)
	return true
}

// Contains reports whether v is tracked. It is false for values without a
// key.
func (s *Set[T]) Contains(v T) bool {
	k, ok := Of(v)
	if !ok {
		return false
	}
	_, ok = s.seen[k]
	return ok
}

// Items returns the tracked values in insertion order.
func (s *Set[T]) Items() []T { return s.order }

// Len returns the number of tracked values.
func (s *Set[T]) Len() int { return len(s.order) }

// Clear forgets every value.
func (s *Set[T]) Clear() {
	clear(s.seen)
	s.order = nil
}
