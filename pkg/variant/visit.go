package variant

import (
	"fmt"
	"reflect"
)

// Case handles one logical alternative type. Build cases with On, OnPtr and Default.
type Case[R any] struct {
	typ reflect.Type
	ptr bool
	fn  func(any) R
}

// On handles alternative T by value.
func On[T, R any](fn func(T) R) Case[R] {
	return Case[R]{
		typ: reflect.TypeFor[T](),
		fn: func(v any) R {
			x, _ := v.(T)
			return fn(x)
		},
	}
}

// OnPtr handles alternative T through a pointer that may be used to mutate
// the payload in place. It is consulted by VisitPtr only.
func OnPtr[T, R any](fn func(*T) R) Case[R] {
	return Case[R]{
		typ: reflect.TypeFor[T](),
		ptr: true,
		fn:  func(p any) R { return fn(p.(*T)) },
	}
}

// Default handles any alternative without a case of its own.
func Default[R any](fn func(v any) R) Case[R] {
	return Case[R]{fn: fn}
}

// Visitor maps logical alternative types to handlers. Handlers never see a
// Box: boxed payloads are unwrapped before the call.
type Visitor[R any] struct {
	values   map[reflect.Type]func(any) R
	ptrs     map[reflect.Type]func(any) R
	fallback func(any) R
}

// Cases builds a visitor. A later case for the same type replaces an earlier one.
func Cases[R any](cases ...Case[R]) Visitor[R] {
	v := Visitor[R]{
		values: make(map[reflect.Type]func(any) R),
		ptrs:   make(map[reflect.Type]func(any) R),
	}
	for _, c := range cases {
		switch {
		case c.typ == nil:
			v.fallback = c.fn
		case c.ptr:
			v.ptrs[c.typ] = c.fn
		default:
			v.values[c.typ] = c.fn
		}
	}
	return v
}

// Handles reports whether the visitor has a value case or a default for t.
func (v Visitor[R]) Handles(t reflect.Type) bool {
	_, ok := v.values[t]
	return ok || v.fallback != nil
}

func (v Visitor[R]) valueCase(sl Slot) (func(any) R, error) {
	if fn, ok := v.values[sl.Type]; ok {
		return fn, nil
	}
	if v.fallback != nil {
		return v.fallback, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoCase, sl)
}

// Visit calls the visitor's case for the active alternative with its logical value.
func Visit[D, R any](s Sum[D], v Visitor[R]) (R, error) {
	var zero R
	l, err := s.resolve()
	if err != nil {
		return zero, err
	}
	fn, err := v.valueCase(l.slots[s.tag])
	if err != nil {
		return zero, err
	}
	return fn(s.Value()), nil
}

// MustVisit is like Visit but panics on error.
func MustVisit[D, R any](s Sum[D], v Visitor[R]) R {
	r, err := Visit(s, v)
	if err != nil {
		panic(fmt.Sprintf("variant: %v", err))
	}
	return r
}

// VisitPtr calls the pointer case for the active alternative so the payload
// can be mutated in place: a boxed payload through its box, a bare payload
// through a copy that is stored back after the call. Without a pointer case
// it behaves like Visit.
func VisitPtr[D, R any](s *Sum[D], v Visitor[R]) (R, error) {
	var zero R
	if err := s.materialize(); err != nil {
		return zero, err
	}
	sl := s.layout.slots[s.tag]
	fn, ok := v.ptrs[sl.Type]
	if !ok {
		return Visit(*s, v)
	}
	if sl.Rep == Boxed {
		return fn(s.slot.(boxed).addr()), nil
	}
	p := sl.alt.ref(s.slot)
	r := fn(p)
	s.slot = sl.alt.deref(p)
	return r, nil
}

// VisitMove hands the logical value to the visitor and resets s. If the
// visitor has no matching case s is left unchanged.
func VisitMove[D, R any](s *Sum[D], v Visitor[R]) (R, error) {
	var zero R
	l, err := s.resolve()
	if err != nil {
		return zero, err
	}
	fn, err := v.valueCase(l.slots[s.tag])
	if err != nil {
		return zero, err
	}
	moved := s.Move()
	return fn(moved.Value()), nil
}

// Variant is the type-erased view of any Sum, used for dispatch over several
// sums of possibly different declarations.
type Variant interface {
	Index() int
	Value() any
	Valid() bool
}

// Dispatch unwraps every argument to its logical value and makes one joint call.
func Dispatch[R any](fn func(vals ...any) R, sums ...Variant) (R, error) {
	var zero R
	vals := make([]any, len(sums))
	for i, s := range sums {
		if !s.Valid() {
			return zero, fmt.Errorf("%w: argument %d", ErrUndeclared, i)
		}
		vals[i] = s.Value()
	}
	return fn(vals...), nil
}
